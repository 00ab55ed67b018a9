package mysql

import "testing"

import "github.com/stretchr/testify/assert"

func TestIsoDateToPengo(t *testing.T) {
	d, ok := isoDateToPengo("2024-03-05")
	assert.True(t, ok)
	assert.Equal(t, "05.03.2024", d)

	d, ok = isoDateToPengo("2024-03-05 12:00:00")
	assert.True(t, ok)
	assert.Equal(t, "05.03.2024", d)

	_, ok = isoDateToPengo("not-a-date-at-all-really")
	assert.False(t, ok, "non-numeric year segment fails the Atoi gate")

	_, ok = isoDateToPengo("nodashes")
	assert.False(t, ok)
}

func TestTryUnquoteSQLStringLiteral(t *testing.T) {
	s, ok := tryUnquoteSQLStringLiteral("'anon'")
	assert.True(t, ok)
	assert.Equal(t, "anon", s)

	s, ok = tryUnquoteSQLStringLiteral("'it''s here'")
	assert.True(t, ok)
	assert.Equal(t, "it's here", s)

	_, ok = tryUnquoteSQLStringLiteral("42")
	assert.False(t, ok)

	s, ok = tryUnquoteSQLStringLiteral("_utf8'hello'")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
}

func TestHasAnyPrefix(t *testing.T) {
	assert.True(t, hasAnyPrefix("varchar(255)", "varchar", "char"))
	assert.False(t, hasAnyPrefix("blob", "varchar", "char"))
}
