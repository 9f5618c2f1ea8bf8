package stages

import (
	"fmt"
	"strconv"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// Enum targets.
const (
	EnumField = "field"
	EnumTag   = "tag"
)

// EnumStage replaces a field or tag's symbolic value using a fixed lookup
// table. Values outside the table pass through unchanged: polling can surface
// transient vendor states the enumeration does not know about, and losing
// them would be worse than storing the raw symbol.
//
// Mapping tables are scoped per stage instance, so the same symbol can map to
// different codes on different measurements without colliding.
type EnumStage struct {
	meta
	target  string
	key     string
	mapping map[string]interface{}
}

func NewEnumStage(name string, order int, filter Filter, target, key string, mapping map[string]interface{}) (*EnumStage, error) {
	switch target {
	case EnumField, EnumTag:
	default:
		return nil, fmt.Errorf("enum stage %q: target must be %q or %q, got %q", name, EnumField, EnumTag, target)
	}
	if key == "" {
		return nil, fmt.Errorf("enum stage %q: name of the target %s is required", name, target)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("enum stage %q: mapping is empty", name)
	}
	normalized := make(map[string]interface{}, len(mapping))
	for sym, code := range mapping {
		normalized[sym] = domain.NormalizeFieldValue(code)
	}
	return &EnumStage{
		meta:    meta{name: name, order: order, filter: filter},
		target:  target,
		key:     key,
		mapping: normalized,
	}, nil
}

func (st *EnumStage) Apply(s *domain.Sample) (*domain.Sample, error) {
	switch st.target {
	case EnumField:
		v, ok := s.Fields[st.key]
		if !ok {
			return s, nil
		}
		mapped, ok := st.mapping[symbolOf(v)]
		if !ok {
			return s, nil
		}
		out := s.Clone()
		out.Fields[st.key] = mapped
		return out, nil
	default: // EnumTag
		v, ok := s.Tags[st.key]
		if !ok {
			return s, nil
		}
		mapped, ok := st.mapping[v]
		if !ok {
			return s, nil
		}
		out := s.Clone()
		out.Tags[st.key] = symbolOf(mapped)
		return out, nil
	}
}

// symbolOf renders a field value the way it would appear as a lookup symbol.
func symbolOf(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", n)
	}
}

var _ ports.Stage = (*EnumStage)(nil)
