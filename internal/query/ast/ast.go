// Package ast defines the expression tree and statement nodes produced
// by the query parser. Grounded on the prototype's
// query_parser_package/expressions.py, statements.py and
// substructures.py, reshaped from its duck-typed BinaryOpNode (which
// evaluates to either a bool or a raw value depending on operator) into
// two explicit Go interfaces — ValueExpr and BoolExpr — so a comparison
// can only be built from two ValueExprs and AND/OR/NOT can only combine
// BoolExprs, a distinction the planner (internal/query/plan) also
// switches on.
package ast

import (
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

// ValueExpr evaluates to a single typed value against a row: either a
// literal or a column reference.
type ValueExpr interface {
	Eval(row schema.Row) (schema.Value, error)
}

// Literal is a constant value parsed from the query text.
type Literal struct {
	Value schema.Value
}

func (l Literal) Eval(row schema.Row) (schema.Value, error) { return l.Value, nil }

// ColumnRef resolves to the row's value for the named column.
type ColumnRef struct {
	Name string
}

func (c ColumnRef) Eval(row schema.Row) (schema.Value, error) {
	v, ok := row.Get(c.Name)
	if !ok {
		return schema.Value{}, dberrors.Parse("unknown column " + c.Name)
	}
	return v, nil
}

// BoolExpr evaluates to a boolean verdict for WHERE filtering.
type BoolExpr interface {
	Eval(row schema.Row) (bool, error)
}

// Comparison is a leaf WHERE predicate: left <op> right.
type Comparison struct {
	Left  ValueExpr
	Op    string // "=", "!=", "<", "<=", ">", ">="
	Right ValueExpr
}

func (c Comparison) Eval(row schema.Row) (bool, error) {
	l, err := c.Left.Eval(row)
	if err != nil {
		return false, err
	}
	r, err := c.Right.Eval(row)
	if err != nil {
		return false, err
	}
	if l.Kind != r.Kind {
		return false, dberrors.Parse("comparison not valid: incompatible types")
	}
	cmp := l.Compare(r)
	switch c.Op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, dberrors.Parse("unknown comparison operator " + c.Op)
	}
}

// And is a short-circuiting conjunction.
type And struct {
	Left, Right BoolExpr
}

func (a And) Eval(row schema.Row) (bool, error) {
	l, err := a.Left.Eval(row)
	if err != nil || !l {
		return false, err
	}
	return a.Right.Eval(row)
}

// Or is a short-circuiting disjunction.
type Or struct {
	Left, Right BoolExpr
}

func (o Or) Eval(row schema.Row) (bool, error) {
	l, err := o.Left.Eval(row)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return o.Right.Eval(row)
}

// Not negates its operand. The index planner never descends through a
// Not node (spec.md's explicit Open Question), so WHERE clauses
// containing one always fall back to full scan.
type Not struct {
	Expr BoolExpr
}

func (n Not) Eval(row schema.Row) (bool, error) {
	v, err := n.Expr.Eval(row)
	if err != nil {
		return false, err
	}
	return !v, nil
}

// ColumnDef is one column declaration inside CREATE TABLE, carrying the
// column's raw constraint literals before they are resolved into a
// schema.Column by the executor (which knows how to parse a literal
// against the column's own type).
type ColumnDef struct {
	Name        string
	Type        string
	Default     string
	HasDefault  bool
	MaxSize     string
	HasMaxSize  bool
	IsPrimary   bool
	HasPrimary  bool
}

// OrderByItem names the ORDER BY column and direction.
type OrderByItem struct {
	Column string
	Desc   bool
}

// Row is one literal VALUES row: parallel to the INSERT column list.
type Row struct {
	Values []string
}

// Statement is the union of every top-level statement the parser can
// produce; the executor type-switches on it.
type Statement interface {
	isStatement()
}

type CreateTable struct {
	Table   string
	Columns []ColumnDef
}

type CreateIndex struct {
	Index  string
	Table  string
	Column string
}

type DropTable struct {
	Table string
}

type DropIndex struct {
	Index string
	Table string
}

type TableInfo struct {
	Table string
}

type InsertValues struct {
	Table   string
	Columns []string
	Rows    []Row
}

type InsertRandom struct {
	Table   string
	Columns []string
	Count   int
}

type GetRow struct {
	Table      string
	RowNumbers []int64
}

type DeleteRow struct {
	Table      string
	RowNumbers []int64
}

type DeleteWhere struct {
	Table string
	Where BoolExpr
}

type Select struct {
	Table    string
	Columns  []string
	Distinct bool
	Where    BoolExpr
	OrderBy  *OrderByItem
}

type Defragment struct {
	Table string
}

func (CreateTable) isStatement()  {}
func (CreateIndex) isStatement()  {}
func (DropTable) isStatement()    {}
func (DropIndex) isStatement()    {}
func (TableInfo) isStatement()    {}
func (InsertValues) isStatement() {}
func (InsertRandom) isStatement() {}
func (GetRow) isStatement()       {}
func (DeleteRow) isStatement()    {}
func (DeleteWhere) isStatement()  {}
func (Select) isStatement()       {}
func (Defragment) isStatement()   {}
