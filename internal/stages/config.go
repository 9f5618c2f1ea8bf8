package stages

import (
	"fmt"
	"sort"

	"github.com/network-observability/network-observability-lab/internal/ports"
)

// Stage kinds accepted in configuration. The set is deliberately closed:
// bespoke transforms become new named kinds here rather than an embedded
// scripting interpreter.
const (
	KindRename      = "rename"
	KindEnum        = "enum"
	KindDerived     = "derived"
	KindRegexEnrich = "regex_enrich"
	KindTagPop      = "tag_pop"
)

// Config declares one stage. Exactly the rule block matching Kind must be
// set.
type Config struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Order  int    `yaml:"order"`
	Filter Filter `yaml:",inline"`

	Rename      *RenameConfig      `yaml:"rename,omitempty"`
	Enum        *EnumConfig        `yaml:"enum,omitempty"`
	Derived     *DerivedFieldNames `yaml:"derived,omitempty"`
	RegexEnrich *RegexEnrichConfig `yaml:"regex_enrich,omitempty"`
	TagPop      *TagPopConfig      `yaml:"tag_pop,omitempty"`
}

type RenameConfig struct {
	Rules []RenameRule `yaml:"rules"`
}

type EnumConfig struct {
	Target  string                 `yaml:"target"`
	Name    string                 `yaml:"name"`
	Mapping map[string]interface{} `yaml:"mapping"`
}

type RegexEnrichConfig struct {
	Rules []EnrichRule `yaml:"rules"`
}

type TagPopConfig struct {
	Tag string `yaml:"tag"`
}

// Build validates the declarations and returns the frozen, ordered stage
// list: ascending Order, declaration order on ties. The returned slice is
// never mutated afterwards and is safe for concurrent reads.
func Build(cfgs []Config) ([]ports.Stage, error) {
	seen := make(map[string]bool, len(cfgs))
	out := make([]ports.Stage, 0, len(cfgs))

	for i, cfg := range cfgs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("stage %q declared twice", cfg.Name)
		}
		seen[cfg.Name] = true

		if err := cfg.Filter.Validate(); err != nil {
			return nil, fmt.Errorf("stage %q: %w", cfg.Name, err)
		}

		st, err := buildOne(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Order() < out[b].Order() })
	return out, nil
}

func buildOne(cfg Config) (ports.Stage, error) {
	switch cfg.Kind {
	case KindRename:
		if cfg.Rename == nil {
			return nil, fmt.Errorf("stage %q: rename block is required", cfg.Name)
		}
		return NewRenameStage(cfg.Name, cfg.Order, cfg.Filter, cfg.Rename.Rules)
	case KindEnum:
		if cfg.Enum == nil {
			return nil, fmt.Errorf("stage %q: enum block is required", cfg.Name)
		}
		return NewEnumStage(cfg.Name, cfg.Order, cfg.Filter, cfg.Enum.Target, cfg.Enum.Name, cfg.Enum.Mapping)
	case KindDerived:
		names := DerivedFieldNames{}
		if cfg.Derived != nil {
			names = *cfg.Derived
		}
		return NewDerivedStage(cfg.Name, cfg.Order, cfg.Filter, names)
	case KindRegexEnrich:
		if cfg.RegexEnrich == nil {
			return nil, fmt.Errorf("stage %q: regex_enrich block is required", cfg.Name)
		}
		return NewRegexEnrichStage(cfg.Name, cfg.Order, cfg.Filter, cfg.RegexEnrich.Rules)
	case KindTagPop:
		if cfg.TagPop == nil {
			return nil, fmt.Errorf("stage %q: tag_pop block is required", cfg.Name)
		}
		return NewTagPopStage(cfg.Name, cfg.Order, cfg.Filter, cfg.TagPop.Tag)
	default:
		return nil, fmt.Errorf("stage %q: unknown kind %q", cfg.Name, cfg.Kind)
	}
}
