package stages

import (
	"fmt"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// Rename rule kinds.
const (
	RenameTag         = "tag"
	RenameField       = "field"
	RenameMeasurement = "measurement"
)

// RenameRule renames one tag key, field key, or the measurement name.
type RenameRule struct {
	Kind string `yaml:"kind"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// RenameStage applies its rules in declaration order; renaming a key that is
// absent is a no-op, and later rules see the results of earlier ones.
type RenameStage struct {
	meta
	rules []RenameRule
}

func NewRenameStage(name string, order int, filter Filter, rules []RenameRule) (*RenameStage, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("rename stage %q: at least one rule is required", name)
	}
	for i, r := range rules {
		switch r.Kind {
		case RenameTag, RenameField, RenameMeasurement:
		default:
			return nil, fmt.Errorf("rename stage %q rule %d: unknown kind %q", name, i, r.Kind)
		}
		if r.From == "" || r.To == "" {
			return nil, fmt.Errorf("rename stage %q rule %d: from and to are required", name, i)
		}
	}
	return &RenameStage{
		meta:  meta{name: name, order: order, filter: filter},
		rules: rules,
	}, nil
}

func (st *RenameStage) Apply(s *domain.Sample) (*domain.Sample, error) {
	out := s.Clone()
	for _, r := range st.rules {
		switch r.Kind {
		case RenameTag:
			if v, ok := out.Tags[r.From]; ok {
				delete(out.Tags, r.From)
				out.Tags[r.To] = v
			}
		case RenameField:
			if v, ok := out.Fields[r.From]; ok {
				delete(out.Fields, r.From)
				out.Fields[r.To] = v
			}
		case RenameMeasurement:
			if out.Measurement == r.From {
				out.Measurement = r.To
			}
		}
	}
	return out, nil
}

var _ ports.Stage = (*RenameStage)(nil)
