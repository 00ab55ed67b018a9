package schema

import "pengobase/internal/dberrors"

// Row is an ordered association from column name to typed value. Values
// are stored positionally, aligned 1:1 with the table's declared Columns
// slice, since row ordering follows CREATE TABLE's column order rather
// than insertion order of a map.
type Row struct {
	Columns []Column
	Values  []Value
}

// Get returns the value of the named column and whether it exists.
func (r Row) Get(name string) (Value, bool) {
	for i, c := range r.Columns {
		if c.Name == name {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// ColumnIndex returns the positional index of name, or -1 if absent.
func (r Row) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Project returns a new Row containing only the named columns, in the
// order requested, for SELECT's column projection.
func (r Row) Project(names []string) (Row, error) {
	out := Row{}
	for _, n := range names {
		idx := r.ColumnIndex(n)
		if idx < 0 {
			return Row{}, dberrors.Parse("unknown column in projection: " + n)
		}
		out.Columns = append(out.Columns, r.Columns[idx])
		out.Values = append(out.Values, r.Values[idx])
	}
	return out, nil
}
