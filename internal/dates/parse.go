package dates

import (
	"strconv"
	"strings"

	"pengobase/internal/dberrors"
)

// Parse parses a DD.MM.YYYY string into a Date, validating the calendar
// the same way New does.
func Parse(s string) (Date, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Date{}, dberrors.Value("date must be in DD.MM.YYYY form, got " + s)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, dberrors.Value("date must be in DD.MM.YYYY form, got " + s)
	}
	return New(day, month, year)
}

// IsValid reports whether s parses as a valid DD.MM.YYYY date, used by the
// tokenizer to disambiguate a quoted date literal from a plain string.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}
