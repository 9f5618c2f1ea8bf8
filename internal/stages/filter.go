package stages

import (
	"fmt"
	"path"

	"github.com/network-observability/network-observability-lab/internal/domain"
)

// Filter holds the namepass/tagpass predicates restricting which samples a
// stage processes. Empty slices match everything; a mismatch is normal flow,
// never an error.
type Filter struct {
	NamePass []string            `yaml:"namepass"`
	TagPass  map[string][]string `yaml:"tagpass"`
}

// Match reports whether the sample passes both predicates. NamePass patterns
// are globs against the measurement name; TagPass passes when any configured
// tag key is present with a value matching one of its patterns.
func (f Filter) Match(s *domain.Sample) bool {
	if len(f.NamePass) > 0 {
		if !matchAny(f.NamePass, s.Measurement) {
			return false
		}
	}
	if len(f.TagPass) > 0 {
		passed := false
		for key, patterns := range f.TagPass {
			v, ok := s.Tags[key]
			if !ok {
				continue
			}
			if matchAny(patterns, v) {
				passed = true
				break
			}
		}
		if !passed {
			return false
		}
	}
	return true
}

// Validate rejects malformed glob patterns up front so a bad config fails at
// load time rather than silently never matching.
func (f Filter) Validate() error {
	for _, pat := range f.NamePass {
		if _, err := path.Match(pat, ""); err != nil {
			return fmt.Errorf("namepass pattern %q: %w", pat, err)
		}
	}
	for key, patterns := range f.TagPass {
		if key == "" {
			return fmt.Errorf("tagpass has an empty tag key")
		}
		for _, pat := range patterns {
			if _, err := path.Match(pat, ""); err != nil {
				return fmt.Errorf("tagpass %s pattern %q: %w", key, pat, err)
			}
		}
	}
	return nil
}

func matchAny(patterns []string, value string) bool {
	for _, pat := range patterns {
		if ok, err := path.Match(pat, value); err == nil && ok {
			return true
		}
	}
	return false
}

// meta carries the identity and filter shared by every stage kind.
type meta struct {
	name   string
	order  int
	filter Filter
}

func (m meta) Name() string { return m.name }

func (m meta) Order() int { return m.order }

func (m meta) Match(s *domain.Sample) bool { return m.filter.Match(s) }
