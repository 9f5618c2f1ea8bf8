// Package lineproto implements the line-oriented text format the collectors
// speak: measurement,tag=v,... field=v,... [timestamp]. Integer fields carry
// an "i" suffix, strings are double-quoted, booleans are true/false, and the
// optional trailing timestamp is Unix nanoseconds. Spaces, commas, and equal
// signs inside names and tag values are backslash-escaped.
package lineproto

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/network-observability/network-observability-lab/internal/domain"
)

// ErrEmptyLine marks lines with no content; callers skip these silently.
var ErrEmptyLine = errors.New("lineproto: empty line")

// Parse decodes a single line into a Sample.
func Parse(line string) (*domain.Sample, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmptyLine
	}

	sc := &scanner{src: line}

	measurement, delim := sc.readUntil(",= ")
	if measurement == "" {
		return nil, fmt.Errorf("lineproto: missing measurement in %q", line)
	}
	if delim == '=' {
		return nil, fmt.Errorf("lineproto: unexpected '=' after measurement in %q", line)
	}

	s := domain.New(measurement)

	for delim == ',' {
		key, d := sc.readUntil("=, ")
		if d != '=' || key == "" {
			return nil, fmt.Errorf("lineproto: malformed tag in %q", line)
		}
		val, d2 := sc.readUntil(", ")
		if val == "" {
			return nil, fmt.Errorf("lineproto: empty value for tag %q in %q", key, line)
		}
		s.Tags[key] = val
		delim = d2
	}
	if delim != ' ' {
		return nil, fmt.Errorf("lineproto: missing field set in %q", line)
	}

	delim = ','
	for delim == ',' {
		key, d := sc.readUntil("=, ")
		if d != '=' || key == "" {
			return nil, fmt.Errorf("lineproto: malformed field in %q", line)
		}
		val, d2, err := sc.readFieldValue()
		if err != nil {
			return nil, fmt.Errorf("lineproto: field %q in %q: %w", key, line, err)
		}
		s.Fields[key] = val
		delim = d2
	}
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("lineproto: no fields in %q", line)
	}

	if delim == ' ' {
		ts := strings.TrimSpace(sc.rest())
		if ts != "" {
			n, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("lineproto: bad timestamp %q: %w", ts, err)
			}
			s.Timestamp = n
		}
	}

	return s, nil
}

// Serialize renders a sample back to one line. Tag and field keys are sorted
// so output is deterministic; equality across a round trip is key-order
// independent either way.
func Serialize(s *domain.Sample) string {
	var b strings.Builder
	b.WriteString(escape(s.Measurement, ", "))

	for _, k := range sortedKeys(s.Tags) {
		b.WriteByte(',')
		b.WriteString(escape(k, ",= "))
		b.WriteByte('=')
		b.WriteString(escape(s.Tags[k], ",= "))
	}

	b.WriteByte(' ')
	first := true
	for _, k := range sortedFieldKeys(s.Fields) {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(escape(k, ",= "))
		b.WriteByte('=')
		b.WriteString(formatFieldValue(s.Fields[k]))
	}

	if s.Timestamp != 0 {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(s.Timestamp, 10))
	}
	return b.String()
}

func formatFieldValue(v interface{}) string {
	switch n := v.(type) {
	case bool:
		if n {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(n, 10) + "i"
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case string:
		return quoteString(n)
	default:
		return quoteString(fmt.Sprintf("%v", n))
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func escape(s, special string) string {
	if !strings.ContainsAny(s, special+`\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '\\' || strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scanner walks a line byte by byte, honoring backslash escapes.
type scanner struct {
	src string
	pos int
}

// readUntil consumes up to (and including) the first unescaped delimiter,
// returning the unescaped token and the delimiter hit, or 0 at end of input.
func (sc *scanner) readUntil(delims string) (string, byte) {
	var b strings.Builder
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if c == '\\' && sc.pos+1 < len(sc.src) {
			b.WriteByte(sc.src[sc.pos+1])
			sc.pos += 2
			continue
		}
		if strings.IndexByte(delims, c) >= 0 {
			sc.pos++
			return b.String(), c
		}
		b.WriteByte(c)
		sc.pos++
	}
	return b.String(), 0
}

func (sc *scanner) rest() string {
	out := sc.src[sc.pos:]
	sc.pos = len(sc.src)
	return out
}

// readFieldValue decodes one field value plus its trailing delimiter.
func (sc *scanner) readFieldValue() (interface{}, byte, error) {
	if sc.pos < len(sc.src) && sc.src[sc.pos] == '"' {
		sc.pos++
		val, err := sc.readQuoted()
		if err != nil {
			return nil, 0, err
		}
		var delim byte
		if sc.pos < len(sc.src) {
			delim = sc.src[sc.pos]
			if delim != ',' && delim != ' ' {
				return nil, 0, fmt.Errorf("unexpected %q after string value", delim)
			}
			sc.pos++
		}
		return val, delim, nil
	}

	raw, delim := sc.readUntil(", ")
	if raw == "" {
		return nil, 0, errors.New("empty field value")
	}

	switch raw {
	case "true", "True", "TRUE", "t", "T":
		return true, delim, nil
	case "false", "False", "FALSE", "f", "F":
		return false, delim, nil
	}

	if strings.HasSuffix(raw, "i") {
		n, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("bad integer %q: %w", raw, err)
		}
		return n, delim, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("bad number %q: %w", raw, err)
	}
	return f, delim, nil
}

func (sc *scanner) readQuoted() (string, error) {
	var b strings.Builder
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		if c == '\\' && sc.pos+1 < len(sc.src) {
			b.WriteByte(sc.src[sc.pos+1])
			sc.pos += 2
			continue
		}
		if c == '"' {
			sc.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		sc.pos++
	}
	return "", errors.New("unterminated string value")
}
