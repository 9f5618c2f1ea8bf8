package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsDeep(t *testing.T) {
	s := New("intf")
	s.Tags["device"] = "ceos-01"
	s.Fields["in_octets"] = int64(100)
	s.Timestamp = 42

	c := s.Clone()
	c.Tags["device"] = "ceos-02"
	c.Fields["in_octets"] = int64(200)
	c.Measurement = "other"

	assert.Equal(t, "intf", s.Measurement)
	assert.Equal(t, "ceos-01", s.Tags["device"])
	assert.Equal(t, int64(100), s.Fields["in_octets"])
	assert.Equal(t, int64(42), c.Timestamp)
}

func TestFieldFloat(t *testing.T) {
	s := New("intf")
	s.Fields["f"] = 1.5
	s.Fields["i"] = int64(3)
	s.Fields["s"] = "nope"
	s.Fields["b"] = true

	v, ok := s.FieldFloat("f")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = s.FieldFloat("i")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = s.FieldFloat("s")
	assert.False(t, ok)
	_, ok = s.FieldFloat("b")
	assert.False(t, ok)
	_, ok = s.FieldFloat("missing")
	assert.False(t, ok)
}

func TestNormalizeFieldValue(t *testing.T) {
	assert.Equal(t, int64(1), NormalizeFieldValue(int(1)))
	assert.Equal(t, int64(2), NormalizeFieldValue(int8(2)))
	assert.Equal(t, int64(3), NormalizeFieldValue(uint32(3)))
	assert.Equal(t, int64(4), NormalizeFieldValue(uint64(4)))
	assert.Equal(t, float64(float32(1.5)), NormalizeFieldValue(float32(1.5)))
	assert.Equal(t, "x", NormalizeFieldValue("x"))
	assert.Equal(t, true, NormalizeFieldValue(true))
	assert.Equal(t, 2.5, NormalizeFieldValue(2.5))
}
