package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-observability/network-observability-lab/internal/domain"
)

func TestBuildOrdersStages(t *testing.T) {
	built, err := Build([]Config{
		{Name: "late", Kind: KindTagPop, Order: 90, TagPop: &TagPopConfig{Tag: "host"}},
		{Name: "early", Kind: KindRename, Order: 10, Rename: &RenameConfig{
			Rules: []RenameRule{{Kind: RenameField, From: "a", To: "b"}},
		}},
		{Name: "middle", Kind: KindDerived, Order: 50},
	})
	require.NoError(t, err)
	require.Len(t, built, 3)

	assert.Equal(t, "early", built[0].Name())
	assert.Equal(t, "middle", built[1].Name())
	assert.Equal(t, "late", built[2].Name())
}

func TestBuildTiesKeepDeclarationOrder(t *testing.T) {
	built, err := Build([]Config{
		{Name: "first", Kind: KindTagPop, Order: 10, TagPop: &TagPopConfig{Tag: "a"}},
		{Name: "second", Kind: KindTagPop, Order: 10, TagPop: &TagPopConfig{Tag: "b"}},
		{Name: "third", Kind: KindTagPop, Order: 10, TagPop: &TagPopConfig{Tag: "c"}},
	})
	require.NoError(t, err)

	names := []string{built[0].Name(), built[1].Name(), built[2].Name()}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	_, err := Build([]Config{
		{Name: "dup", Kind: KindTagPop, TagPop: &TagPopConfig{Tag: "a"}},
		{Name: "dup", Kind: KindTagPop, TagPop: &TagPopConfig{Tag: "b"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
}

func TestBuildRejectsMissingName(t *testing.T) {
	_, err := Build([]Config{{Kind: KindTagPop, TagPop: &TagPopConfig{Tag: "a"}}})
	require.Error(t, err)
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	_, err := Build([]Config{{Name: "x", Kind: "uppercase"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestBuildRejectsMissingRuleBlock(t *testing.T) {
	for _, kind := range []string{KindRename, KindEnum, KindRegexEnrich, KindTagPop} {
		_, err := Build([]Config{{Name: "x", Kind: kind}})
		require.Error(t, err, "kind %s", kind)
	}
}

func TestBuildRejectsBadFilter(t *testing.T) {
	_, err := Build([]Config{{
		Name:   "x",
		Kind:   KindTagPop,
		Filter: Filter{NamePass: []string{"[bad"}},
		TagPop: &TagPopConfig{Tag: "a"},
	}})
	require.Error(t, err)
}

func TestBuildPropagatesFilter(t *testing.T) {
	built, err := Build([]Config{{
		Name:   "intf-only",
		Kind:   KindTagPop,
		Filter: Filter{NamePass: []string{"intf"}},
		TagPop: &TagPopConfig{Tag: "host"},
	}})
	require.NoError(t, err)

	intf := domain.New("intf")
	other := domain.New("bgp")
	assert.True(t, built[0].Match(intf))
	assert.False(t, built[0].Match(other))
}

func TestTagPopStage(t *testing.T) {
	st, err := NewTagPopStage("drop-host", 0, Filter{}, "host")
	require.NoError(t, err)

	in := domain.New("intf")
	in.Tags["host"] = "collector-01"
	in.Tags["device"] = "ceos-01"

	out, err := st.Apply(in)
	require.NoError(t, err)
	assert.NotContains(t, out.Tags, "host")
	assert.Equal(t, "ceos-01", out.Tags["device"])
	assert.Contains(t, in.Tags, "host")

	// Absent tag is a no-op, no clone.
	again, err := st.Apply(out)
	require.NoError(t, err)
	assert.Same(t, out, again)
}
