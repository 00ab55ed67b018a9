// Package exec implements Execute, the single entry point the
// spec's §6.6 result contract describes: it type-switches over an
// ast.Statement, drives the catalog and heap table operations, consults
// the index planner for WHERE, and finishes DISTINCT/ORDER BY through
// the external merge sort. Grounded on the prototype's
// query_parser_package/statements.py, whose execute() methods on each
// statement class play the same dispatch role.
package exec

import (
	"math/rand"
	"strings"

	"pengobase/internal/catalog"
	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
	"pengobase/internal/query/ast"
	"pengobase/internal/query/plan"
	"pengobase/internal/query/sortmerge"
	"pengobase/internal/schema"
	"pengobase/internal/storage/heap"
	"pengobase/internal/storage/index"
	"pengobase/internal/storage/metadata"
)

// Result is the execution result descriptor from spec.md §6.6. Table is
// nil unless the statement resolved one; Rows/Columns are nil for
// statements that do not produce a row set; TableInfo is set only by
// TABLEINFO; TableAction is true when the statement changed the
// catalog (CREATE/DROP TABLE, CREATE/DROP INDEX, DEFRAGMENT).
type Result struct {
	Message     string
	Table       *heap.Table
	Rows        []schema.Row
	Columns     []string
	TableInfo   *TableInfo
	TableAction bool
}

// TableInfo is the structured metadata summary returned by TABLEINFO.
type TableInfo struct {
	Name      string
	Columns   []schema.Column
	RowCount  int64
	Indexes   []metadata.IndexEntry
	DataBytes int64
}

// Execute runs stmt against cat and returns its result descriptor. Every
// error returned already carries the taxonomy Kind from
// internal/dberrors (§7); callers map it to a message without needing to
// inspect statement type.
func Execute(cat *catalog.Catalog, stmt ast.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case ast.CreateTable:
		return execCreateTable(cat, s)
	case ast.CreateIndex:
		return execCreateIndex(cat, s)
	case ast.DropTable:
		return execDropTable(cat, s)
	case ast.DropIndex:
		return execDropIndex(cat, s)
	case ast.TableInfo:
		return execTableInfo(cat, s)
	case ast.InsertValues:
		return execInsertValues(cat, s)
	case ast.InsertRandom:
		return execInsertRandom(cat, s)
	case ast.GetRow:
		return execGetRow(cat, s)
	case ast.DeleteRow:
		return execDeleteRow(cat, s)
	case ast.DeleteWhere:
		return execDeleteWhere(cat, s)
	case ast.Select:
		return execSelect(cat, s)
	case ast.Defragment:
		return execDefragment(cat, s)
	default:
		return nil, dberrors.Parse("unrecognized statement")
	}
}

func execCreateTable(cat *catalog.Catalog, s ast.CreateTable) (*Result, error) {
	columns := make([]schema.Column, 0, len(s.Columns))
	for _, def := range s.Columns {
		typ, err := schema.ParseType(def.Type)
		if err != nil {
			return nil, err
		}
		col := schema.NewColumn(def.Name, typ)
		if def.HasMaxSize {
			n, err := schema.ParseLiteral(schema.Number, def.MaxSize)
			if err != nil {
				return nil, err
			}
			col, err = col.WithMaxSize(int(n.Int32()))
			if err != nil {
				return nil, err
			}
		}
		if def.HasDefault {
			v, err := schema.ParseLiteral(typ, def.Default)
			if err != nil {
				return nil, err
			}
			col, err = col.WithDefault(v)
			if err != nil {
				return nil, err
			}
		}
		if def.HasPrimary {
			col.IsPrimaryKey = def.IsPrimary
		}
		columns = append(columns, col)
	}

	t, err := cat.CreateTable(s.Table, columns)
	if err != nil {
		return nil, err
	}
	return &Result{Message: "table " + s.Table + " created", Table: t, TableAction: true}, nil
}

func execCreateIndex(cat *catalog.Catalog, s ast.CreateIndex) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if err := t.CreateIndex(s.Index, s.Column); err != nil {
		return nil, err
	}
	return &Result{Message: "index " + s.Index + " created", Table: t, TableAction: true}, nil
}

func execDropTable(cat *catalog.Catalog, s ast.DropTable) (*Result, error) {
	if err := cat.DropTable(s.Table); err != nil {
		return nil, err
	}
	return &Result{Message: "table " + s.Table + " dropped", TableAction: true}, nil
}

func execDropIndex(cat *catalog.Catalog, s ast.DropIndex) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	column, ok := t.ColumnForIndex(s.Index)
	if !ok {
		return nil, dberrors.Table("index " + s.Index + " does not exist")
	}
	if err := t.DropIndex(column); err != nil {
		return nil, err
	}
	return &Result{Message: "index " + s.Index + " dropped", Table: t, TableAction: true}, nil
}

func execTableInfo(cat *catalog.Catalog, s ast.TableInfo) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	info := &TableInfo{
		Name:      t.Name(),
		Columns:   t.Columns(),
		RowCount:  t.RowCount(),
		Indexes:   t.IndexEntries(),
		DataBytes: t.DataSize(),
	}
	return &Result{Message: "table info for " + s.Table, Table: t, TableInfo: info}, nil
}

func execInsertValues(cat *catalog.Catalog, s ast.InsertValues) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	colTypes := make(map[string]schema.Type, len(t.Columns()))
	for _, c := range t.Columns() {
		colTypes[c.Name] = c.Type
	}

	for _, r := range s.Rows {
		values := make([]schema.Value, len(s.Columns))
		for i, colName := range s.Columns {
			typ, ok := colTypes[colName]
			if !ok {
				return nil, dberrors.Parse("unknown column " + colName)
			}
			v, err := schema.ParseLiteral(typ, r.Values[i])
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		row, err := t.BuildRow(s.Columns, values)
		if err != nil {
			return nil, err
		}
		if _, err := t.Insert(row); err != nil {
			return nil, err
		}
	}
	return &Result{Message: "inserted rows into " + s.Table, Table: t, TableAction: true}, nil
}

const (
	smallAscii = "abcdefghijklmnopqrstuvwxyz"
	bigAscii   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	letters    = smallAscii + bigAscii
)

func execInsertRandom(cat *catalog.Catalog, s ast.InsertRandom) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	colByName := make(map[string]schema.Column, len(t.Columns()))
	for _, c := range t.Columns() {
		colByName[c.Name] = c
	}

	for i := 0; i < s.Count; i++ {
		values := make([]schema.Value, len(s.Columns))
		for i, colName := range s.Columns {
			col, ok := colByName[colName]
			if !ok {
				return nil, dberrors.Parse("unknown column " + colName)
			}
			values[i] = randomValue(col)
		}
		row, err := t.BuildRow(s.Columns, values)
		if err != nil {
			return nil, err
		}
		if _, err := t.Insert(row); err != nil {
			return nil, err
		}
	}
	return &Result{Message: "inserted random rows into " + s.Table, Table: t, TableAction: true}, nil
}

func randomValue(col schema.Column) schema.Value {
	switch col.Type {
	case schema.Number:
		if rand.Intn(2) == 0 {
			return schema.NumberInt(int32(rand.Intn(10_000)))
		}
		return schema.NumberFloat(rand.Float64() * 1000)
	case schema.String:
		maxSize := col.MaxSize
		if maxSize <= 0 {
			maxSize = schema.DefaultStringMax
		}
		size := 1 + rand.Intn(maxSize)
		var sb strings.Builder
		for i := 0; i < size; i++ {
			sb.WriteByte(letters[rand.Intn(len(letters))])
		}
		return schema.NewString(sb.String())
	case schema.DateType:
		year := 1900 + rand.Intn(201)
		month := 1 + rand.Intn(12)
		day := 1 + rand.Intn(dates.DaysInMonth(month, year))
		d, _ := dates.New(day, month, year)
		return schema.NewDate(d)
	default:
		return schema.Value{}
	}
}

func execGetRow(cat *catalog.Catalog, s ast.GetRow) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	rows, err := t.GetRows(s.RowNumbers)
	if err != nil {
		return nil, err
	}
	return &Result{Message: "fetched rows", Table: t, Rows: rows}, nil
}

func execDeleteRow(cat *catalog.Catalog, s ast.DeleteRow) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if err := t.DeleteRows(s.RowNumbers); err != nil {
		return nil, err
	}
	return &Result{Message: "deleted rows", Table: t, TableAction: true}, nil
}

// execDeleteWhere always performs a full scan: mutating the same B-tree
// a DELETE is iterating through is not supported, per spec.md's explicit
// note in §4.1.
func execDeleteWhere(cat *catalog.Catalog, s ast.DeleteWhere) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if _, err := t.DeleteFiltered(func(row schema.Row) bool {
		matched, err := s.Where.Eval(row)
		if err != nil {
			return true // keep the row on evaluation error rather than delete it
		}
		return !matched
	}); err != nil {
		return nil, err
	}
	return &Result{Message: "deleted rows matching WHERE", Table: t, TableAction: true}, nil
}

func execSelect(cat *catalog.Catalog, s ast.Select) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}

	rows, err := resolveRows(t, s.Where)
	if err != nil {
		return nil, err
	}

	projected := rows
	columns := s.Columns
	if len(s.Columns) != 1 || s.Columns[0] != "*" {
		projected = make([]schema.Row, len(rows))
		for i, row := range rows {
			p, err := row.Project(s.Columns)
			if err != nil {
				return nil, err
			}
			projected[i] = p
		}
	} else {
		columns = nil
		for _, c := range t.Columns() {
			columns = append(columns, c.Name)
		}
	}

	cfg := sortmerge.Config{}
	if s.OrderBy != nil {
		cfg.OrderByCol, cfg.HasOrderBy, cfg.Desc = s.OrderBy.Column, true, s.OrderBy.Desc
	}
	if s.Distinct {
		cfg.DistinctCols = columns
	}
	sorted, err := sortmerge.Run(cat.Root(), s.Table, projected, cfg)
	if err != nil {
		return nil, err
	}

	return &Result{Message: "selected rows", Table: t, Rows: sorted, Columns: columns}, nil
}

// resolveRows tries the index planner first; if where is nil or cannot
// be fully index-resolved, it falls back to a full scan re-checked
// against the expression (or returned unfiltered if where is nil).
func resolveRows(t *heap.Table, where ast.BoolExpr) ([]schema.Row, error) {
	if where == nil {
		return t.IterateAll()
	}

	lookup := func(column string) (plan.Searchable, bool) {
		binding, ok := t.Index(column)
		if !ok {
			return nil, false
		}
		ti, ok := binding.(*index.TableIndex)
		return ti, ok
	}

	if offsets, ok, err := plan.Resolve(where, lookup); err != nil {
		return nil, err
	} else if ok {
		candidates, err := t.Select(offsets)
		if err != nil {
			return nil, err
		}
		var out []schema.Row
		for _, row := range candidates {
			matched, err := where.Eval(row)
			if err != nil {
				return nil, err
			}
			if matched {
				out = append(out, row)
			}
		}
		return out, nil
	}

	all, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	var out []schema.Row
	for _, row := range all {
		matched, err := where.Eval(row)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, row)
		}
	}
	return out, nil
}

func execDefragment(cat *catalog.Catalog, s ast.Defragment) (*Result, error) {
	t, err := cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if err := t.Defragment(); err != nil {
		return nil, err
	}
	return &Result{Message: "defragmented " + s.Table, Table: t, TableAction: true}, nil
}
