package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral_String(t *testing.T) {
	v, err := ParseLiteral(String, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Str)
}

func TestParseLiteral_Date(t *testing.T) {
	v, err := ParseLiteral(DateType, "05.03.2024")
	require.NoError(t, err)
	assert.Equal(t, "05.03.2024", v.Date.String())
}

func TestParseLiteral_Date_Invalid(t *testing.T) {
	_, err := ParseLiteral(DateType, "not-a-date")
	assert.Error(t, err)
}

func TestParseLiteral_Number_Invalid(t *testing.T) {
	_, err := ParseLiteral(Number, "abc")
	assert.Error(t, err)
}

func TestInferLiteralKind_Date(t *testing.T) {
	assert.Equal(t, DateType, InferLiteralKind("05.03.2024"))
}

func TestInferLiteralKind_Number(t *testing.T) {
	assert.Equal(t, Number, InferLiteralKind("42"))
	assert.Equal(t, Number, InferLiteralKind("3.14"))
}

func TestInferLiteralKind_String(t *testing.T) {
	assert.Equal(t, String, InferLiteralKind("Ivo"))
}
