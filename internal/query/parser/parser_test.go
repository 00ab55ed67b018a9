package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/query/ast"
	"pengobase/internal/query/lexer"
	"pengobase/internal/query/token"
)

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users (id:number PRIMARY_KEY:TRUE, name:string MAX_SIZE:50 DEFAULT:'anon');")
	require.NoError(t, err)
	ct, ok := stmt.(ast.CreateTable)
	require.True(t, ok)
	assert.Equal(t, "users", ct.Table)
	require.Len(t, ct.Columns, 2)
	assert.Equal(t, "id", ct.Columns[0].Name)
	assert.True(t, ct.Columns[0].IsPrimary)
	assert.Equal(t, "50", ct.Columns[1].MaxSize)
	assert.Equal(t, "anon", ct.Columns[1].Default)
}

func TestParse_CreateIndex(t *testing.T) {
	stmt, err := Parse("CREATE INDEX idx_id ON users (id);")
	require.NoError(t, err)
	ci, ok := stmt.(ast.CreateIndex)
	require.True(t, ok)
	assert.Equal(t, "idx_id", ci.Index)
	assert.Equal(t, "users", ci.Table)
	assert.Equal(t, "id", ci.Column)
}

func TestParse_DropTableAndIndex(t *testing.T) {
	stmt, err := Parse("DROP TABLE users;")
	require.NoError(t, err)
	assert.Equal(t, ast.DropTable{Table: "users"}, stmt)

	stmt, err = Parse("DROP INDEX idx_id ON users;")
	require.NoError(t, err)
	assert.Equal(t, ast.DropIndex{Index: "idx_id", Table: "users"}, stmt)
}

func TestParse_TableInfo(t *testing.T) {
	stmt, err := Parse("TABLEINFO users;")
	require.NoError(t, err)
	assert.Equal(t, ast.TableInfo{Table: "users"}, stmt)
}

func TestParse_InsertValues(t *testing.T) {
	stmt, err := Parse("INSERT INTO users (id, name) VALUES (1, 'Ivo'), (2, 'Maria');")
	require.NoError(t, err)
	iv, ok := stmt.(ast.InsertValues)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, iv.Columns)
	require.Len(t, iv.Rows, 2)
	assert.Equal(t, []string{"1", "Ivo"}, iv.Rows[0].Values)
}

func TestParse_InsertValues_ArityMismatch(t *testing.T) {
	_, err := Parse("INSERT INTO users (id, name) VALUES (1);")
	assert.Error(t, err)
}

func TestParse_InsertRandom(t *testing.T) {
	stmt, err := Parse("INSERT INTO users (id, name) RANDOM 5;")
	require.NoError(t, err)
	assert.Equal(t, ast.InsertRandom{Table: "users", Columns: []string{"id", "name"}, Count: 5}, stmt)
}

func TestParse_InsertRandom_NonPositiveCount(t *testing.T) {
	_, err := Parse("INSERT INTO users (id) RANDOM 0;")
	assert.Error(t, err)
}

func TestParse_GetRow(t *testing.T) {
	stmt, err := Parse("GET ROW 1, 2 FROM users;")
	require.NoError(t, err)
	assert.Equal(t, ast.GetRow{Table: "users", RowNumbers: []int64{1, 2}}, stmt)
}

func TestParse_DeleteRow(t *testing.T) {
	stmt, err := Parse("DELETE FROM users ROW 3;")
	require.NoError(t, err)
	assert.Equal(t, ast.DeleteRow{Table: "users", RowNumbers: []int64{3}}, stmt)
}

func TestParse_DeleteRow_RequiresAtLeastOneRow(t *testing.T) {
	_, err := Parse("DELETE FROM users ROW;")
	assert.Error(t, err)
}

func TestParse_DeleteWhere(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE id = 1;")
	require.NoError(t, err)
	dw, ok := stmt.(ast.DeleteWhere)
	require.True(t, ok)
	assert.Equal(t, "users", dw.Table)
	cmp, ok := dw.Where.(ast.Comparison)
	require.True(t, ok)
	assert.Equal(t, "=", cmp.Op)
}

func TestParse_SelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users;")
	require.NoError(t, err)
	sel, ok := stmt.(ast.Select)
	require.True(t, ok)
	assert.Equal(t, []string{"*"}, sel.Columns)
	assert.False(t, sel.Distinct)
	assert.Nil(t, sel.Where)
}

func TestParse_SelectDistinctOrderBy(t *testing.T) {
	stmt, err := Parse("SELECT DISTINCT name FROM users ORDER BY name DESC;")
	require.NoError(t, err)
	sel, ok := stmt.(ast.Select)
	require.True(t, ok)
	assert.True(t, sel.Distinct)
	require.NotNil(t, sel.OrderBy)
	assert.Equal(t, "name", sel.OrderBy.Column)
	assert.True(t, sel.OrderBy.Desc)
}

func TestParse_SelectWhereAndOr(t *testing.T) {
	stmt, err := Parse("SELECT id FROM users WHERE id = 1 OR name = 'Ivo';")
	require.NoError(t, err)
	sel, ok := stmt.(ast.Select)
	require.True(t, ok)
	_, isOr := sel.Where.(ast.Or)
	assert.True(t, isOr)
}

func TestParse_SelectWhereParenthesized(t *testing.T) {
	stmt, err := Parse("SELECT id FROM users WHERE (id = 1 OR id = 2) AND name = 'Ivo';")
	require.NoError(t, err)
	sel, ok := stmt.(ast.Select)
	require.True(t, ok)
	and, isAnd := sel.Where.(ast.And)
	require.True(t, isAnd)
	_, leftIsOr := and.Left.(ast.Or)
	assert.True(t, leftIsOr)
}

func TestParse_SelectWhereNot(t *testing.T) {
	stmt, err := Parse("SELECT id FROM users WHERE NOT id = 1;")
	require.NoError(t, err)
	sel, ok := stmt.(ast.Select)
	require.True(t, ok)
	_, isNot := sel.Where.(ast.Not)
	assert.True(t, isNot)
}

func TestParse_Defragment(t *testing.T) {
	stmt, err := Parse("DEFRAGMENT users;")
	require.NoError(t, err)
	assert.Equal(t, ast.Defragment{Table: "users"}, stmt)
}

func TestParse_TrailingTokensAfterSemicolonIsError(t *testing.T) {
	toks := lexer.Tokenize("DROP TABLE users;")
	last := len(toks) - 1
	toks = append(toks[:last], token.Token{Type: token.IDENTIFIER, Value: "extra"}, toks[last])
	_, err := New(toks).ParseStatement()
	assert.Error(t, err)
}

func TestParse_UnknownStatement(t *testing.T) {
	_, err := Parse("BANANA users;")
	assert.Error(t, err)
}
