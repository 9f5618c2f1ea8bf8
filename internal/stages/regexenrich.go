package stages

import (
	"fmt"
	"regexp"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// EnrichRule derives a new tag from an existing tag via pattern match.
type EnrichRule struct {
	SourceTag   string `yaml:"source_tag"`
	Pattern     string `yaml:"pattern"`
	NewTag      string `yaml:"new_tag"`
	Replacement string `yaml:"replacement"`
}

type compiledEnrichRule struct {
	EnrichRule
	re *regexp.Regexp
}

// RegexEnrichStage evaluates its rules in declaration order against each
// rule's source tag. First match wins per source tag: once a rule matches a
// tag, later rules for that same tag are not evaluated. A sample whose source
// tag matches no rule simply never gets the new tag.
type RegexEnrichStage struct {
	meta
	rules []compiledEnrichRule
}

func NewRegexEnrichStage(name string, order int, filter Filter, rules []EnrichRule) (*RegexEnrichStage, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("regex_enrich stage %q: at least one rule is required", name)
	}
	compiled := make([]compiledEnrichRule, 0, len(rules))
	for i, r := range rules {
		if r.SourceTag == "" || r.NewTag == "" {
			return nil, fmt.Errorf("regex_enrich stage %q rule %d: source_tag and new_tag are required", name, i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("regex_enrich stage %q rule %d: %w", name, i, err)
		}
		compiled = append(compiled, compiledEnrichRule{EnrichRule: r, re: re})
	}
	return &RegexEnrichStage{
		meta:  meta{name: name, order: order, filter: filter},
		rules: compiled,
	}, nil
}

func (st *RegexEnrichStage) Apply(s *domain.Sample) (*domain.Sample, error) {
	var out *domain.Sample
	matched := make(map[string]bool, 1)

	for _, r := range st.rules {
		if matched[r.SourceTag] {
			continue
		}
		v, ok := s.Tags[r.SourceTag]
		if !ok || !r.re.MatchString(v) {
			continue
		}
		matched[r.SourceTag] = true
		if out == nil {
			out = s.Clone()
		}
		// Replacement may reference capture groups ($1, ${name}).
		out.Tags[r.NewTag] = r.re.ReplaceAllString(v, r.Replacement)
	}

	if out == nil {
		return s, nil
	}
	return out, nil
}

var _ ports.Stage = (*RegexEnrichStage)(nil)
