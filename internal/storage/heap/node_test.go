package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/dates"
	"pengobase/internal/schema"
)

func sampleRow(t *testing.T) schema.Row {
	t.Helper()
	d, err := dates.New(5, 3, 2024)
	require.NoError(t, err)
	cols := []schema.Column{
		{Name: "id", Type: schema.Number},
		{Name: "price", Type: schema.Number},
		{Name: "name", Type: schema.String},
		{Name: "joined", Type: schema.DateType},
	}
	return schema.Row{
		Columns: cols,
		Values: []schema.Value{
			schema.NumberInt(7),
			schema.NumberFloat(3.5),
			schema.NewString("Ivo"),
			schema.NewDate(d),
		},
	}
}

func TestSerializeDeserializeRow_RoundTrip(t *testing.T) {
	row := sampleRow(t)
	data := serializeRow(row)

	decoded, err := deserializeRow(row.Columns, data)
	require.NoError(t, err)

	v, _ := decoded.Get("id")
	assert.EqualValues(t, 7, v.Int32())
	assert.True(t, v.IsInt)

	v, _ = decoded.Get("price")
	assert.InDelta(t, 3.5, v.Num, 1e-9)
	assert.False(t, v.IsInt)

	v, _ = decoded.Get("name")
	assert.Equal(t, "Ivo", v.Str)

	v, _ = decoded.Get("joined")
	assert.Equal(t, "05.03.2024", v.Date.String())
}

func TestDeserializeRow_TruncatedData(t *testing.T) {
	row := sampleRow(t)
	data := serializeRow(row)
	_, err := deserializeRow(row.Columns, data[:len(data)-5])
	assert.Error(t, err)
}

func TestSerializeDeserializeNode_RoundTrip(t *testing.T) {
	row := sampleRow(t)
	n := node{prev: 10, next: 20, row: row}
	encoded := serializeNode(n)

	decoded, err := deserializeNode(row.Columns, encoded)
	require.NoError(t, err)
	assert.EqualValues(t, 10, decoded.prev)
	assert.EqualValues(t, 20, decoded.next)
	v, _ := decoded.row.Get("name")
	assert.Equal(t, "Ivo", v.Str)
}

func TestDeserializeNode_ChecksumMismatch(t *testing.T) {
	row := sampleRow(t)
	n := node{prev: -1, next: -1, row: row}
	encoded := serializeNode(n)
	encoded[len(encoded)-1] ^= 0xFF

	_, err := deserializeNode(row.Columns, encoded)
	assert.Error(t, err)
}

func TestDeserializeNode_TooShort(t *testing.T) {
	_, err := deserializeNode(nil, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRecordSize_MatchesSerializedLength(t *testing.T) {
	row := sampleRow(t)
	n := node{prev: -1, next: -1, row: row}
	assert.Equal(t, len(serializeNode(n)), recordSize(row))
}
