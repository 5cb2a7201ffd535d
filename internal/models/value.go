package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which field of a Value is populated
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBool
)

// Value is one dataset cell
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Flag bool
}

// Null returns a missing cell
func Null() Value { return Value{Kind: KindNull} }

// Number returns a numeric cell. NaN and infinities become nulls.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{Kind: KindNumber, Num: f}
}

// Text returns a string cell
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Bool returns a boolean cell
func Bool(b bool) Value { return Value{Kind: KindBool, Flag: b} }

// IsNull reports whether the cell is missing
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String formats the cell for labels and tables. Integral numbers print
// without a fractional part; null prints as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Flag)
	default:
		return ""
	}
}

// Float returns the numeric interpretation of the cell and whether one exists.
// Bools map to 0/1 and numeric-looking text is parsed.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindBool:
		if v.Flag {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Interface returns the cell as a plain Go value (nil, float64, string or bool)
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Str
	case KindBool:
		return v.Flag
	default:
		return nil
	}
}

// MarshalJSON encodes the cell as its plain JSON value
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a plain JSON scalar into a cell
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// FromInterface converts a decoded scalar into a cell. Nested values are
// kept as their JSON text.
func FromInterface(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Number(f)
		}
		return Text(x.String())
	case string:
		return Text(x)
	case bool:
		return Bool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return Null()
		}
		return Text(string(b))
	}
}

// Compare orders two non-null cells of any kind. Numbers compare
// numerically, text lexicographically, false sorts before true. Cells of
// different kinds order by kind so the result is always a total order.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		switch {
		case a.Kind < b.Kind:
			return -1
		default:
			return 1
		}
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(a.Str, b.Str)
	case KindBool:
		switch {
		case a.Flag == b.Flag:
			return 0
		case !a.Flag:
			return -1
		default:
			return 1
		}
	}
	return 0
}
