package sortmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/schema"
)

func makeRow(id int32, name string) schema.Row {
	idCol := schema.NewColumn("id", schema.Number)
	nameCol := schema.NewColumn("name", schema.String)
	return schema.Row{
		Columns: []schema.Column{idCol, nameCol},
		Values:  []schema.Value{schema.NumberInt(id), schema.NewString(name)},
	}
}

func TestRun_OrderByAscending(t *testing.T) {
	rows := []schema.Row{
		makeRow(3, "c"),
		makeRow(1, "a"),
		makeRow(2, "b"),
	}
	out, err := Run(t.TempDir(), "people", rows, Config{OrderByCol: "id", HasOrderBy: true, ChunkSize: 2})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, want := range []int32{1, 2, 3} {
		v, ok := out[i].Get("id")
		require.True(t, ok)
		assert.Equal(t, want, v.Int32())
	}
}

func TestRun_OrderByDescending(t *testing.T) {
	rows := []schema.Row{makeRow(1, "a"), makeRow(3, "c"), makeRow(2, "b")}
	out, err := Run(t.TempDir(), "people", rows, Config{OrderByCol: "id", HasOrderBy: true, Desc: true, ChunkSize: 2})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, want := range []int32{3, 2, 1} {
		v, ok := out[i].Get("id")
		require.True(t, ok)
		assert.Equal(t, want, v.Int32())
	}
}

func TestRun_Distinct(t *testing.T) {
	rows := []schema.Row{
		makeRow(1, "a"),
		makeRow(1, "a"),
		makeRow(2, "b"),
	}
	out, err := Run(t.TempDir(), "people", rows, Config{
		OrderByCol: "id", HasOrderBy: true,
		DistinctCols: []string{"id", "name"},
		ChunkSize:    10,
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRun_SpillsAcrossMultipleChunks(t *testing.T) {
	var rows []schema.Row
	for i := int32(20); i > 0; i-- {
		rows = append(rows, makeRow(i, "x"))
	}
	out, err := Run(t.TempDir(), "people", rows, Config{OrderByCol: "id", HasOrderBy: true, ChunkSize: 3})
	require.NoError(t, err)
	require.Len(t, out, 20)
	for i := 0; i < 20; i++ {
		v, _ := out[i].Get("id")
		assert.Equal(t, int32(i+1), v.Int32())
	}
}

func TestRowRecordRoundTrip(t *testing.T) {
	row := makeRow(42, "hello")
	payload := serializeRow(row)
	decoded, err := deserializeRow(payload)
	require.NoError(t, err)
	v, ok := decoded.Get("id")
	require.True(t, ok)
	assert.Equal(t, int32(42), v.Int32())
	nv, ok := decoded.Get("name")
	require.True(t, ok)
	assert.Equal(t, "hello", nv.Str)
}

func TestRun_NoOrderOrDistinct_ReturnsUnchanged(t *testing.T) {
	rows := []schema.Row{makeRow(2, "b"), makeRow(1, "a")}
	out, err := Run(t.TempDir(), "people", rows, Config{})
	require.NoError(t, err)
	assert.Equal(t, rows, out)
}
