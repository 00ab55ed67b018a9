package schema

import (
	"fmt"

	"pengobase/internal/dberrors"
)

// Default max sizes per type, mirroring the prototype's validator
// defaults (NumberValidator/StringValidator/DateValidator DEFAULT_MAX).
const (
	DefaultNumberMax = 2147483647
	DefaultStringMax = 255
	DateMaxSize      = 10 // fixed, "DD.MM.YYYY"
)

// Column describes one declared column of a table: its name, logical
// type, and constraint map. The constraint map recognizes exactly
// MAX_SIZE and DEFAULT per §6.5; IsPrimaryKey is a supplemental flag
// carried alongside but outside that map (see DESIGN.md) since the core
// grammar does not list PRIMARY_KEY as a recognized constraint keyword.
type Column struct {
	Name         string
	Type         Type
	MaxSize      int    // effective max; string/number bound, fixed for date
	HasDefault   bool
	Default      Value
	IsPrimaryKey bool
}

// NewColumn builds a Column with type-appropriate defaults applied.
func NewColumn(name string, typ Type) Column {
	c := Column{Name: name, Type: typ}
	switch typ {
	case Number:
		c.MaxSize = DefaultNumberMax
	case String:
		c.MaxSize = DefaultStringMax
	case DateType:
		c.MaxSize = DateMaxSize
	}
	return c
}

// WithMaxSize returns a copy of c with MaxSize overridden, validating it
// is a positive integer and, for DateType, still exactly DateMaxSize
// (dates have no variable width).
func (c Column) WithMaxSize(size int) (Column, error) {
	if size <= 0 {
		return c, dberrors.Value(fmt.Sprintf("MAX_SIZE must be positive, got %d", size))
	}
	if c.Type == DateType && size != DateMaxSize {
		return c, dberrors.Value("MAX_SIZE is fixed at 10 for date columns")
	}
	c.MaxSize = size
	return c, nil
}

// WithDefault returns a copy of c with a validated default value set.
func (c Column) WithDefault(v Value) (Column, error) {
	if err := c.Validate(v); err != nil {
		return c, err
	}
	c.HasDefault = true
	c.Default = v
	return c, nil
}

// Validate checks that v satisfies c's type and MAX_SIZE constraint.
func (c Column) Validate(v Value) error {
	if v.Kind != c.Type {
		return dberrors.Value(fmt.Sprintf("column %q expects %s, got %s", c.Name, c.Type, v.Kind))
	}
	switch c.Type {
	case Number:
		if v.Num > float64(c.MaxSize) || v.Num < -float64(c.MaxSize) {
			return dberrors.Value(fmt.Sprintf("column %q value %v exceeds MAX_SIZE %d", c.Name, v.Num, c.MaxSize))
		}
	case String:
		if len(v.Str) > c.MaxSize {
			return dberrors.Value(fmt.Sprintf("column %q value exceeds MAX_SIZE %d", c.Name, c.MaxSize))
		}
	case DateType:
		// calendar validity already enforced by dates.New/Parse at construction.
	}
	return nil
}

// ResolveMandatory returns v if present, or the column's DEFAULT if one is
// declared, or a TableError if the column is mandatory and no value or
// default is available — matching the "required column absent on insert"
// TableError case from §7.
func (c Column) ResolveMandatory(v *Value) (Value, error) {
	if v != nil {
		return *v, nil
	}
	if c.HasDefault {
		return c.Default, nil
	}
	return Value{}, dberrors.Table(fmt.Sprintf("missing required column %q and no DEFAULT declared", c.Name))
}
