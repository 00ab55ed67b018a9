// Package schema implements the engine's column model: logical types,
// per-type validators, the DEFAULT/MAX_SIZE constraint table, and parsing
// of externally supplied literals into typed Values. Grounded on the
// prototype's Column/validator classes but reshaped into Go's preferred
// tagged-enum-with-methods style per the polymorphism note in the design
// notes.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
)

// Type is a column's logical type.
type Type int

const (
	Number Type = iota
	String
	DateType
)

func (t Type) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	case DateType:
		return "date"
	default:
		return "unknown"
	}
}

// ParseType maps the lowercase keyword used in CREATE TABLE column
// declarations to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "number":
		return Number, nil
	case "string":
		return String, nil
	case "date":
		return DateType, nil
	default:
		return 0, dberrors.Parse(fmt.Sprintf("unknown column type %q", s))
	}
}

// Value is a tagged value of one of the three logical types. Numbers carry
// an IsInt flag recording whether they were supplied (or computed) as a
// signed 32-bit integer or a 64-bit float, since the row encoding chooses
// the 'I' or 'F' wire tag per value rather than per column.
type Value struct {
	Kind  Type
	Num   float64
	IsInt bool
	Str   string
	Date  dates.Date
}

// NumberInt builds an integer-tagged Number value.
func NumberInt(v int32) Value { return Value{Kind: Number, Num: float64(v), IsInt: true} }

// NumberFloat builds a float-tagged Number value.
func NumberFloat(v float64) Value { return Value{Kind: Number, Num: v, IsInt: false} }

// NewString builds a String value.
func NewString(v string) Value { return Value{Kind: String, Str: v} }

// NewDate builds a Date value.
func NewDate(v dates.Date) Value { return Value{Kind: DateType, Date: v} }

// Int32 returns the value truncated/rounded to an int32, for the 'I' wire
// encoding; it is only meaningful when Kind == Number.
func (v Value) Int32() int32 { return int32(v.Num) }

// String renders the value the way it appears in query output and in the
// merge sort's row-record serialization.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		if v.IsInt {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case String:
		return v.Str
	case DateType:
		return v.Date.String()
	default:
		return ""
	}
}

// Compare orders two values of the same Kind; byte-lexicographic for
// strings per the spec's explicit non-goal of Unicode collation.
func (v Value) Compare(other Value) int {
	switch v.Kind {
	case Number:
		switch {
		case v.Num < other.Num:
			return -1
		case v.Num > other.Num:
			return 1
		default:
			return 0
		}
	case String:
		return strings.Compare(v.Str, other.Str)
	case DateType:
		return v.Date.Compare(other.Date)
	default:
		return 0
	}
}
