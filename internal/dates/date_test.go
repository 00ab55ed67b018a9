package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LeapYear(t *testing.T) {
	d, err := New(29, 2, 2024)
	require.NoError(t, err)
	assert.Equal(t, "29.02.2024", d.String())

	_, err = New(29, 2, 2023)
	assert.Error(t, err)
}

func TestIsLeapYear(t *testing.T) {
	cases := map[int]bool{
		2000: true,
		1900: false,
		2024: true,
		2023: false,
	}
	for year, want := range cases {
		assert.Equalf(t, want, IsLeapYear(year), "year %d", year)
	}
}

func TestCompare(t *testing.T) {
	a, _ := New(1, 1, 2020)
	b, _ := New(2, 1, 2020)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestParse(t *testing.T) {
	d, err := Parse("31.12.9999")
	require.NoError(t, err)
	assert.Equal(t, Max, d)

	_, err = Parse("31.13.2020")
	assert.Error(t, err)

	_, err = Parse("not-a-date")
	assert.Error(t, err)
}
