package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupportedType is returned for value type tags other than boolean,
// number and string.
var ErrUnsupportedType = errors.New("unsupported value type")

// ValueType is the type tag of a Value.
type ValueType uint8

const (
	// TypeBoolean is a true/false value.
	TypeBoolean ValueType = iota + 1

	// TypeNumber is a float64 value.
	TypeNumber

	// TypeString is a text value.
	TypeString
)

// String returns the type tag as used in object definitions.
func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ParseValueType maps an object type tag to a ValueType.
func ParseValueType(tag string) (ValueType, error) {
	switch tag {
	case "boolean":
		return TypeBoolean, nil
	case "number":
		return TypeNumber, nil
	case "string":
		return TypeString, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, tag)
	}
}

// Value is a typed value. The zero Value has no type and equals nothing.
type Value struct {
	typ ValueType
	b   bool
	n   float64
	s   string
}

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// NumberValue returns a number Value.
func NumberValue(n float64) Value { return Value{typ: TypeNumber, n: n} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{typ: TypeString, s: s} }

// Coerce converts a raw configuration value into a Value of type t.
//
// Booleans are true only for a raw boolean true. Numbers follow numeric
// conversion (booleans become 0 or 1, nil and blank strings become 0,
// anything unparseable becomes NaN). Strings use the textual form of raw.
func Coerce(t ValueType, raw any) (Value, error) {
	switch t {
	case TypeBoolean:
		b, _ := raw.(bool)
		return BoolValue(b), nil
	case TypeNumber:
		return NumberValue(toNumber(raw)), nil
	case TypeString:
		return StringValue(toText(raw)), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

// Type returns the value's type tag.
func (v Value) Type() ValueType { return v.typ }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.b }

// Number returns the number payload.
func (v Value) Number() float64 { return v.n }

// Any returns the value as a plain Go value suitable for writing to a store.
func (v Value) Any() any {
	switch v.typ {
	case TypeBoolean:
		return v.b
	case TypeNumber:
		return v.n
	case TypeString:
		return v.s
	default:
		return nil
	}
}

// String returns the textual form of the value.
func (v Value) String() string {
	if v.typ == 0 {
		return "<none>"
	}
	return toText(v.Any())
}

// Equal reports whether raw loosely equals v.
// nil equals nothing; NaN equals nothing.
func (v Value) Equal(raw any) bool {
	if raw == nil {
		return false
	}

	switch v.typ {
	case TypeBoolean:
		if b, ok := raw.(bool); ok {
			return b == v.b
		}
		return numericEqual(boolNumber(v.b), raw)
	case TypeNumber:
		return numericEqual(v.n, raw)
	case TypeString:
		if s, ok := raw.(string); ok {
			return s == v.s
		}
		return numericEqual(parseNumber(v.s), raw)
	default:
		return false
	}
}

// numericEqual compares n with raw converted to a number.
func numericEqual(n float64, raw any) bool {
	other := toNumber(raw)
	if math.IsNaN(n) || math.IsNaN(other) {
		return false
	}
	return n == other
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// toNumber converts raw to a float64, NaN if it has no numeric meaning.
func toNumber(raw any) float64 {
	switch x := raw.(type) {
	case nil:
		return 0
	case bool:
		return boolNumber(x)
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case string:
		return parseNumber(x)
	case fmt.Stringer:
		return parseNumber(x.String())
	default:
		return math.NaN()
	}
}

// parseNumber converts a whole string to a number. Blank is 0.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func toText(raw any) string {
	switch x := raw.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	default:
		return fmt.Sprint(raw)
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
