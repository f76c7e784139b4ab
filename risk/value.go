package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// Value is a single feature value as submitted by a caller.
// It accepts JSON numbers, numeric strings (form posts), booleans and anything
// else without failing; values that do not parse are kept but compare false
// against every threshold.
type Value struct {
	raw     string
	num     float64
	present bool
	valid   bool
}

// Num returns a parsed numeric value.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{raw: "NaN", present: true}
	}
	return Value{
		raw:     strconv.FormatFloat(f, 'f', -1, 64),
		num:     f,
		present: true,
		valid:   true,
	}
}

// Text parses a textual value such as a form field.
func Text(s string) Value {
	v := Value{raw: s, present: true}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return v
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) {
		return v
	}
	v.num = f
	v.valid = true
	return v
}

// Present reports whether the field was supplied at all (JSON null counts as absent).
func (v Value) Present() bool {
	return v.present
}

// Filled reports whether the field was supplied with a non-blank value.
func (v Value) Filled() bool {
	return v.present && strings.TrimSpace(v.raw) != ""
}

// Valid reports whether the value parsed as a number.
func (v Value) Valid() bool {
	return v.valid
}

// Float returns the parsed number.
func (v Value) Float() (float64, bool) {
	return v.num, v.valid
}

// Is reports whether the value parsed and equals n.
func (v Value) Is(n float64) bool {
	return v.valid && v.num == n
}

// LeadingFloat parses the longest numeric prefix, so "2.5mm" reads as 2.5.
func (v Value) LeadingFloat() (float64, bool) {
	if v.valid {
		return v.num, true
	}
	m := leadingFloat.FindString(strings.TrimSpace(v.raw))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// LeadingInt parses the integer prefix, truncating toward zero: "2.7" reads as 2.
// Magnitudes beyond MaxInt32 saturate at ±MaxInt32.
func (v Value) LeadingInt() (int, bool) {
	if v.valid {
		return saturate(v.num), true
	}
	m := leadingInt.FindString(strings.TrimSpace(v.raw))
	if m == "" {
		return 0, false
	}
	// digit runs too long for an int still parse, possibly as ±Inf
	f, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return saturate(f), true
}

func saturate(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < -math.MaxInt32:
		return -math.MaxInt32
	}
	return int(math.Trunc(f))
}

// String returns the value as it was submitted.
func (v Value) String() string {
	return v.raw
}

// UnmarshalJSON never fails on well-formed JSON; unusable values are kept as invalid.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case 't':
		*v = Value{raw: "true", num: 1, present: true, valid: true}
	case 'f':
		*v = Value{raw: "false", num: 0, present: true, valid: true}
	case '{', '[':
		*v = Value{raw: string(data), present: true}
	default:
		*v = Text(string(data))
	}
	return nil
}

// MarshalJSON writes numbers as JSON numbers and everything else as the submitted text.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case !v.present:
		return []byte("null"), nil
	case v.valid && !math.IsInf(v.num, 0):
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	default:
		return json.Marshal(v.raw)
	}
}

// MarshalYAML mirrors MarshalJSON for YAML output.
func (v Value) MarshalYAML() (any, error) {
	switch {
	case !v.present:
		return nil, nil
	case v.valid && !math.IsInf(v.num, 0):
		return v.num, nil
	default:
		return v.raw, nil
	}
}
