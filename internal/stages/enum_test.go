package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-observability/network-observability-lab/internal/domain"
)

func TestEnumStageFieldMapping(t *testing.T) {
	st, err := NewEnumStage("oper-status", 20, Filter{}, EnumField, "oper_status",
		map[string]interface{}{"UP": 1, "DOWN": 2})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Fields["oper_status"] = "UP"

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Fields["oper_status"])

	// Input untouched.
	assert.Equal(t, "UP", in.Fields["oper_status"])
}

func TestEnumStageUnmappedValuePassesThrough(t *testing.T) {
	st, err := NewEnumStage("oper-status", 20, Filter{}, EnumField, "oper_status",
		map[string]interface{}{"UP": 1, "DOWN": 2})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Fields["oper_status"] = "TESTING"

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Same(t, in, out)
	assert.Equal(t, "TESTING", out.Fields["oper_status"])
}

func TestEnumStageMissingKeyPassesThrough(t *testing.T) {
	st, err := NewEnumStage("oper-status", 20, Filter{}, EnumField, "oper_status",
		map[string]interface{}{"UP": 1})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Fields["other"] = int64(5)

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestEnumStageNumericSymbols(t *testing.T) {
	// Codes already numeric on the wire look up by their rendered symbol.
	st, err := NewEnumStage("severity", 0, Filter{}, EnumField, "severity",
		map[string]interface{}{"1": "critical", "2": "major"})
	require.NoError(t, err)

	in := domain.New("alarm")
	in.Fields["severity"] = int64(1)

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "critical", out.Fields["severity"])
}

func TestEnumStageTagTarget(t *testing.T) {
	st, err := NewEnumStage("site-code", 0, Filter{}, EnumTag, "site",
		map[string]interface{}{"lab1": "atlanta", "lab2": "berlin"})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Tags["site"] = "lab2"

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "berlin", out.Tags["site"])
}

func TestEnumStagePerInstanceMappings(t *testing.T) {
	intf, err := NewEnumStage("intf-status", 0, Filter{NamePass: []string{"intf"}},
		EnumField, "status", map[string]interface{}{"UP": 1})
	require.NoError(t, err)
	bgp, err := NewEnumStage("bgp-status", 0, Filter{NamePass: []string{"bgp"}},
		EnumField, "status", map[string]interface{}{"UP": 6})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Fields["status"] = "UP"

	out1, err := intf.Apply(in)
	require.NoError(t, err)
	out2, err := bgp.Apply(in)
	require.NoError(t, err)

	assert.Equal(t, int64(1), out1.Fields["status"])
	assert.Equal(t, int64(6), out2.Fields["status"])
}

func TestEnumStageValidation(t *testing.T) {
	_, err := NewEnumStage("bad-target", 0, Filter{}, "measurement", "x",
		map[string]interface{}{"a": 1})
	require.Error(t, err)

	_, err = NewEnumStage("no-key", 0, Filter{}, EnumField, "",
		map[string]interface{}{"a": 1})
	require.Error(t, err)

	_, err = NewEnumStage("empty-mapping", 0, Filter{}, EnumField, "x", nil)
	require.Error(t, err)
}
