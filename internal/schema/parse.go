package schema

import (
	"fmt"
	"strconv"
	"strings"

	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
)

// ParseLiteral converts an externally supplied literal token (already
// unquoted) into a typed Value for the given column type, the way the
// parser's parse_value / validators.is_valid_number translate query text
// into row data.
func ParseLiteral(typ Type, literal string) (Value, error) {
	switch typ {
	case Number:
		return parseNumber(literal)
	case String:
		return NewString(literal), nil
	case DateType:
		d, err := dates.Parse(literal)
		if err != nil {
			return Value{}, err
		}
		return NewDate(d), nil
	default:
		return Value{}, dberrors.Value(fmt.Sprintf("unknown column type for literal %q", literal))
	}
}

func parseNumber(literal string) (Value, error) {
	if !strings.Contains(literal, ".") {
		if i, err := strconv.ParseInt(literal, 10, 32); err == nil {
			return NumberInt(int32(i)), nil
		}
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return Value{}, dberrors.Value(fmt.Sprintf("%q is not a valid number", literal))
	}
	return NumberFloat(f), nil
}

// InferLiteralKind guesses the logical Type of a bare literal token seen
// by the tokenizer, used to disambiguate date-looking strings from plain
// strings before a column type is known (e.g. in a WHERE literal).
func InferLiteralKind(literal string) Type {
	if dates.IsValid(literal) {
		return DateType
	}
	if _, err := parseNumber(literal); err == nil {
		return Number
	}
	return String
}
