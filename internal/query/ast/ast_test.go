package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/schema"
)

func testRow(t *testing.T) schema.Row {
	t.Helper()
	cols := []schema.Column{
		{Name: "id", Type: schema.Number},
		{Name: "name", Type: schema.String},
	}
	return schema.Row{
		Columns: cols,
		Values:  []schema.Value{schema.NumberInt(7), schema.NewString("Ivo")},
	}
}

func TestColumnRef_Eval(t *testing.T) {
	row := testRow(t)
	v, err := ColumnRef{Name: "name"}.Eval(row)
	require.NoError(t, err)
	assert.Equal(t, "Ivo", v.Str)
}

func TestColumnRef_Eval_UnknownColumn(t *testing.T) {
	row := testRow(t)
	_, err := ColumnRef{Name: "ghost"}.Eval(row)
	assert.Error(t, err)
}

func TestComparison_Eval(t *testing.T) {
	row := testRow(t)
	cmp := Comparison{Left: ColumnRef{Name: "id"}, Op: ">=", Right: Literal{Value: schema.NumberInt(5)}}
	ok, err := cmp.Eval(row)
	require.NoError(t, err)
	assert.True(t, ok)

	cmp = Comparison{Left: ColumnRef{Name: "id"}, Op: "<", Right: Literal{Value: schema.NumberInt(5)}}
	ok, err = cmp.Eval(row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparison_Eval_TypeMismatch(t *testing.T) {
	row := testRow(t)
	cmp := Comparison{Left: ColumnRef{Name: "id"}, Op: "=", Right: Literal{Value: schema.NewString("7")}}
	_, err := cmp.Eval(row)
	assert.Error(t, err)
}

func TestComparison_Eval_UnknownOperator(t *testing.T) {
	row := testRow(t)
	cmp := Comparison{Left: ColumnRef{Name: "id"}, Op: "~=", Right: Literal{Value: schema.NumberInt(7)}}
	_, err := cmp.Eval(row)
	assert.Error(t, err)
}

func TestAnd_ShortCircuits(t *testing.T) {
	row := testRow(t)
	left := Comparison{Left: ColumnRef{Name: "id"}, Op: "=", Right: Literal{Value: schema.NumberInt(1)}}
	right := Comparison{Left: ColumnRef{Name: "ghost"}, Op: "=", Right: Literal{Value: schema.NumberInt(1)}}
	ok, err := And{Left: left, Right: right}.Eval(row)
	require.NoError(t, err)
	assert.False(t, ok, "false left should short-circuit before evaluating the erroring right side")
}

func TestOr_ShortCircuits(t *testing.T) {
	row := testRow(t)
	left := Comparison{Left: ColumnRef{Name: "id"}, Op: "=", Right: Literal{Value: schema.NumberInt(7)}}
	right := Comparison{Left: ColumnRef{Name: "ghost"}, Op: "=", Right: Literal{Value: schema.NumberInt(7)}}
	ok, err := Or{Left: left, Right: right}.Eval(row)
	require.NoError(t, err)
	assert.True(t, ok, "true left should short-circuit before evaluating the erroring right side")
}

func TestNot_Eval(t *testing.T) {
	row := testRow(t)
	cmp := Comparison{Left: ColumnRef{Name: "id"}, Op: "=", Right: Literal{Value: schema.NumberInt(7)}}
	ok, err := Not{Expr: cmp}.Eval(row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatement_TypeSwitch(t *testing.T) {
	var stmts []Statement = []Statement{
		CreateTable{Table: "t"},
		CreateIndex{Index: "idx", Table: "t", Column: "id"},
		DropTable{Table: "t"},
		DropIndex{Index: "idx", Table: "t"},
		TableInfo{Table: "t"},
		InsertValues{Table: "t"},
		InsertRandom{Table: "t", Count: 3},
		GetRow{Table: "t", RowNumbers: []int64{1}},
		DeleteRow{Table: "t", RowNumbers: []int64{1}},
		DeleteWhere{Table: "t"},
		Select{Table: "t"},
		Defragment{Table: "t"},
	}
	assert.Len(t, stmts, 12, "every statement kind constructs and satisfies the Statement interface")
}
