package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/dates"
)

func TestParseType(t *testing.T) {
	typ, err := ParseType("number")
	require.NoError(t, err)
	assert.Equal(t, Number, typ)

	typ, err = ParseType("STRING")
	require.NoError(t, err)
	assert.Equal(t, String, typ)

	_, err = ParseType("blob")
	assert.Error(t, err)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "number", Number.String())
	assert.Equal(t, "string", String.String())
	assert.Equal(t, "date", DateType.String())
	assert.Equal(t, "unknown", Type(999).String())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "7", NumberInt(7).String())
	assert.Equal(t, "3.5", NumberFloat(3.5).String())
	assert.Equal(t, "Ivo", NewString("Ivo").String())

	d, err := dates.New(5, 3, 2024)
	require.NoError(t, err)
	assert.Equal(t, "05.03.2024", NewDate(d).String())
}

func TestValue_Int32(t *testing.T) {
	assert.EqualValues(t, 7, NumberInt(7).Int32())
	assert.EqualValues(t, 3, NumberFloat(3.9).Int32())
}

func TestValue_Compare_Number(t *testing.T) {
	assert.Equal(t, -1, NumberInt(1).Compare(NumberInt(2)))
	assert.Equal(t, 1, NumberInt(2).Compare(NumberInt(1)))
	assert.Equal(t, 0, NumberInt(2).Compare(NumberInt(2)))
}

func TestValue_Compare_String(t *testing.T) {
	assert.Equal(t, -1, NewString("a").Compare(NewString("b")))
	assert.Equal(t, 0, NewString("a").Compare(NewString("a")))
}

func TestValue_Compare_Date(t *testing.T) {
	d1, err := dates.New(1, 1, 2024)
	require.NoError(t, err)
	d2, err := dates.New(2, 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, -1, NewDate(d1).Compare(NewDate(d2)))
}
