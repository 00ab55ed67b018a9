package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn_ValidateMaxSize(t *testing.T) {
	col := NewColumn("name", String)
	col, err := col.WithMaxSize(3)
	require.NoError(t, err)

	assert.NoError(t, col.Validate(NewString("ab")))
	assert.Error(t, col.Validate(NewString("abcd")))
}

func TestColumn_WithDefault(t *testing.T) {
	col := NewColumn("age", Number)
	col, err := col.WithDefault(NumberInt(18))
	require.NoError(t, err)

	v, err := col.ResolveMandatory(nil)
	require.NoError(t, err)
	assert.Equal(t, int32(18), v.Int32())
}

func TestColumn_ResolveMandatory_MissingWithoutDefault(t *testing.T) {
	col := NewColumn("age", Number)
	_, err := col.ResolveMandatory(nil)
	assert.Error(t, err)
}

func TestParseLiteral_Number(t *testing.T) {
	v, err := ParseLiteral(Number, "42")
	require.NoError(t, err)
	assert.True(t, v.IsInt)

	v, err = ParseLiteral(Number, "4.5")
	require.NoError(t, err)
	assert.False(t, v.IsInt)
}

func TestDateMaxSizeFixed(t *testing.T) {
	col := NewColumn("d", DateType)
	_, err := col.WithMaxSize(5)
	assert.Error(t, err)
}
