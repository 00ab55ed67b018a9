package mysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseDump_CreateTableAndInsert(t *testing.T) {
	dump := `
CREATE TABLE users (
  id INT PRIMARY KEY,
  name VARCHAR(100) DEFAULT 'anon',
  signup_date DATE
);
INSERT INTO users (id, name, signup_date) VALUES (1, 'Ivo', '2024-03-05'), (2, 'Maria', '2023-12-31');
`
	res, err := NewParser().ParseDump(dump)
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)

	table := res.Tables[0]
	assert.Equal(t, "users", table.Name)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.Equal(t, "number", table.Columns[0].Type)
	assert.True(t, table.Columns[0].PrimaryKey)
	assert.Equal(t, "string", table.Columns[1].Type)
	assert.True(t, table.Columns[1].HasDefault)
	assert.Equal(t, "anon", table.Columns[1].Default)
	assert.Equal(t, "date", table.Columns[2].Type)

	require.Len(t, res.Statements, 2)
	assert.Equal(t, "CREATE TABLE users (id:number PRIMARY_KEY:TRUE, name:string MAX_SIZE:100 DEFAULT:'anon', signup_date:date);", res.Statements[0])
	assert.Contains(t, res.Statements[1], "INSERT INTO users (id, name, signup_date) VALUES")
	assert.Contains(t, res.Statements[1], "(1, 'Ivo', '05.03.2024')")
	assert.Contains(t, res.Statements[1], "(2, 'Maria', '31.12.2023')")
}

func TestParser_ParseDump_UnsupportedColumnDropped(t *testing.T) {
	dump := `CREATE TABLE blobs (id INT, payload BLOB);`
	res, err := NewParser().ParseDump(dump)
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)
	require.Len(t, res.Tables[0].Columns, 1)
	assert.Equal(t, "id", res.Tables[0].Columns[0].Name)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "payload") {
			found = true
		}
	}
	assert.True(t, found, "expected a warning about the dropped payload column")
}

func TestParser_ParseDump_InsertIntoUnknownTableIgnored(t *testing.T) {
	dump := `INSERT INTO ghost (id) VALUES (1);`
	res, err := NewParser().ParseDump(dump)
	require.NoError(t, err)
	assert.Empty(t, res.Statements)
	assert.Contains(t, res.Warnings[0], "unknown or skipped table")
}

func TestParser_ParseDump_CompositePrimaryKeyWarns(t *testing.T) {
	dump := `CREATE TABLE pair (a INT, b INT, PRIMARY KEY (a, b));`
	res, err := NewParser().ParseDump(dump)
	require.NoError(t, err)
	require.Len(t, res.Tables, 1)
	assert.True(t, res.Tables[0].Columns[0].PrimaryKey)
	assert.False(t, res.Tables[0].Columns[1].PrimaryKey)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "composite PRIMARY KEY") {
			found = true
		}
	}
	assert.True(t, found)
}
