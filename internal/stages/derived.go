package stages

import (
	"fmt"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// DerivedStage computes storage-utilization fields from raw unit counters:
//
//	total        = size_units * alloc_units
//	used_percent = 100 * used_units * alloc_units / total
//	free_percent = 100 - used_percent
//
// The three input fields are removed once consumed so downstream stages never
// see both raw and derived forms. A zero total drops the sample outright —
// there is no meaningful percentage of nothing, and emitting NaN downstream
// corrupts the store.
type DerivedStage struct {
	meta
	sizeField  string
	allocField string
	usedField  string

	totalField   string
	usedPctField string
	freePctField string
}

// DerivedFieldNames overrides the input/output field names of a DerivedStage.
// Zero values keep the defaults.
type DerivedFieldNames struct {
	Size  string `yaml:"size_field"`
	Alloc string `yaml:"alloc_field"`
	Used  string `yaml:"used_field"`

	Total       string `yaml:"total_field"`
	UsedPercent string `yaml:"used_percent_field"`
	FreePercent string `yaml:"free_percent_field"`
}

func NewDerivedStage(name string, order int, filter Filter, names DerivedFieldNames) (*DerivedStage, error) {
	st := &DerivedStage{
		meta:         meta{name: name, order: order, filter: filter},
		sizeField:    defaultName(names.Size, "size_units"),
		allocField:   defaultName(names.Alloc, "alloc_units"),
		usedField:    defaultName(names.Used, "used_units"),
		totalField:   defaultName(names.Total, "total"),
		usedPctField: defaultName(names.UsedPercent, "used_percent"),
		freePctField: defaultName(names.FreePercent, "free_percent"),
	}
	inputs := map[string]bool{st.sizeField: true, st.allocField: true, st.usedField: true}
	if len(inputs) != 3 {
		return nil, fmt.Errorf("derived stage %q: input field names must be distinct", name)
	}
	return st, nil
}

// Apply computes the derived fields. Samples missing any input field pass
// through untouched (missing keys are never an error); a zero total returns
// (nil, nil) so the router records the drop.
func (st *DerivedStage) Apply(s *domain.Sample) (*domain.Sample, error) {
	size, ok1 := s.FieldFloat(st.sizeField)
	alloc, ok2 := s.FieldFloat(st.allocField)
	used, ok3 := s.FieldFloat(st.usedField)
	if !ok1 || !ok2 || !ok3 {
		return s, nil
	}

	total := size * alloc
	if total == 0 {
		return nil, nil
	}

	usedPct := 100 * (used * alloc) / total
	out := s.Clone()
	delete(out.Fields, st.sizeField)
	delete(out.Fields, st.allocField)
	delete(out.Fields, st.usedField)
	out.Fields[st.totalField] = total
	out.Fields[st.usedPctField] = usedPct
	out.Fields[st.freePctField] = 100 - usedPct
	return out, nil
}

// DropCause names the only reason this stage discards samples.
func (st *DerivedStage) DropCause() string { return "zero_total" }

func defaultName(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ ports.Stage = (*DerivedStage)(nil)
