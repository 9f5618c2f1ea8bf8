package domain

// Sample is the canonical unit of telemetry in netobs: one observation with a
// measurement name, a tag set, a field set, and an optional timestamp.
//
// Field values are restricted to the types the line protocol can carry:
// float64, int64, bool, and string. Collectors produce a Sample once; stages
// never mutate a Sample they did not receive, they return the (possibly
// cloned) result instead.
type Sample struct {
	Measurement string                 `msgpack:"measurement"`
	Tags        map[string]string      `msgpack:"tags"`
	Fields      map[string]interface{} `msgpack:"fields"`
	// Timestamp is Unix nanoseconds; zero means the source supplied none.
	Timestamp int64 `msgpack:"ts"`
}

// New returns an empty sample with allocated tag and field maps.
func New(measurement string) *Sample {
	return &Sample{
		Measurement: measurement,
		Tags:        make(map[string]string),
		Fields:      make(map[string]interface{}),
	}
}

// Clone returns a deep copy so a stage can rewrite keys without aliasing the
// maps of the sample it was handed.
func (s *Sample) Clone() *Sample {
	out := &Sample{
		Measurement: s.Measurement,
		Timestamp:   s.Timestamp,
		Tags:        make(map[string]string, len(s.Tags)),
		Fields:      make(map[string]interface{}, len(s.Fields)),
	}
	for k, v := range s.Tags {
		out.Tags[k] = v
	}
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return out
}

// FieldFloat reads a field as float64, coercing int64 values. It reports
// false for missing fields and for bool/string values.
func (s *Sample) FieldFloat(name string) (float64, bool) {
	v, ok := s.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// NormalizeFieldValue maps a decoded value onto the canonical field types.
// Codecs (msgpack, YAML) hand back narrower integer widths; everything
// numeric becomes float64 or int64 so stage logic only sees the four
// canonical types.
func NormalizeFieldValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
