package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-observability/network-observability-lab/internal/domain"
)

func TestRenameStageFields(t *testing.T) {
	st, err := NewRenameStage("intf-normalize", 10, Filter{}, []RenameRule{
		{Kind: RenameField, From: "in_crc_errors", To: "in_fcs_errors"},
		{Kind: RenameField, From: "in_errors", To: "in_errors_pkts"},
		{Kind: RenameField, From: "in_discards", To: "in_discards_pkts"},
	})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Tags["device"] = "ceos-01"
	in.Fields["in_crc_errors"] = int64(3)
	in.Fields["in_errors"] = int64(7)
	in.Fields["in_discards"] = int64(0)
	in.Fields["in_octets"] = int64(1000)
	in.Timestamp = 1700000000000000000

	out, err := st.Apply(in)
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.Fields["in_fcs_errors"])
	assert.Equal(t, int64(7), out.Fields["in_errors_pkts"])
	assert.Equal(t, int64(0), out.Fields["in_discards_pkts"])
	assert.Equal(t, int64(1000), out.Fields["in_octets"])
	assert.NotContains(t, out.Fields, "in_crc_errors")
	assert.NotContains(t, out.Fields, "in_errors")
	assert.NotContains(t, out.Fields, "in_discards")
	assert.Equal(t, int64(1700000000000000000), out.Timestamp)

	// The input sample is never mutated.
	assert.Contains(t, in.Fields, "in_crc_errors")
}

func TestRenameStageTagsAndMeasurement(t *testing.T) {
	st, err := NewRenameStage("relabel", 0, Filter{}, []RenameRule{
		{Kind: RenameTag, From: "intf", To: "name"},
		{Kind: RenameMeasurement, From: "interfaces", To: "intf"},
	})
	require.NoError(t, err)

	in := domain.New("interfaces")
	in.Tags["intf"] = "Ethernet1"
	in.Fields["v"] = int64(1)

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "intf", out.Measurement)
	assert.Equal(t, "Ethernet1", out.Tags["name"])
	assert.NotContains(t, out.Tags, "intf")

	// Measurement rename is an exact match; "intf" is not "interfaces".
	out2, err := st.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, "intf", out2.Measurement)
}

func TestRenameStageMissingKeyIsNoop(t *testing.T) {
	st, err := NewRenameStage("noop", 0, Filter{}, []RenameRule{
		{Kind: RenameField, From: "absent", To: "still_absent"},
	})
	require.NoError(t, err)

	in := domain.New("intf")
	in.Fields["v"] = int64(1)

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, in.Fields, out.Fields)
	assert.NotContains(t, out.Fields, "still_absent")
}

func TestRenameStageRulesSeeEarlierResults(t *testing.T) {
	st, err := NewRenameStage("chain", 0, Filter{}, []RenameRule{
		{Kind: RenameField, From: "a", To: "b"},
		{Kind: RenameField, From: "b", To: "c"},
	})
	require.NoError(t, err)

	in := domain.New("m")
	in.Fields["a"] = int64(1)

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.Contains(t, out.Fields, "c")
	assert.NotContains(t, out.Fields, "a")
	assert.NotContains(t, out.Fields, "b")
}

func TestRenameStageValidation(t *testing.T) {
	_, err := NewRenameStage("empty", 0, Filter{}, nil)
	require.Error(t, err)

	_, err = NewRenameStage("bad-kind", 0, Filter{}, []RenameRule{
		{Kind: "column", From: "a", To: "b"},
	})
	require.Error(t, err)

	_, err = NewRenameStage("no-to", 0, Filter{}, []RenameRule{
		{Kind: RenameField, From: "a"},
	})
	require.Error(t, err)
}
