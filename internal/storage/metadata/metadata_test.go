package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/schema"
)

func sampleColumns(t *testing.T) []schema.Column {
	t.Helper()
	id := schema.NewColumn("id", schema.Number)
	id.IsPrimaryKey = true
	name, err := schema.NewColumn("name", schema.String).WithMaxSize(40)
	require.NoError(t, err)
	name, err = name.WithDefault(schema.NewString("anon"))
	require.NoError(t, err)
	return []schema.Column{id, name}
}

func TestNew(t *testing.T) {
	m := New("users", sampleColumns(t))
	assert.Equal(t, "users", m.Title)
	assert.EqualValues(t, -1, m.FirstOffset)
	assert.EqualValues(t, -1, m.LastOffset)
	assert.Zero(t, m.Rows)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.meta")

	m := New("users", sampleColumns(t))
	m.Rows = 3
	m.TableEnd = 512
	m.FirstOffset = 0
	m.LastOffset = 400
	m.FreeSlots = []FreeSlot{{Position: 64, Length: 32}}
	m.Indexes = []IndexEntry{{Column: "id", Name: "idx_id", NodesPath: "idx_id_index.index", PtrlstPath: "idx_id_index.data"}}

	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "users", loaded.Title)
	assert.EqualValues(t, 3, loaded.Rows)
	assert.EqualValues(t, 512, loaded.TableEnd)
	assert.EqualValues(t, 0, loaded.FirstOffset)
	assert.EqualValues(t, 400, loaded.LastOffset)
	require.Len(t, loaded.FreeSlots, 1)
	assert.EqualValues(t, 64, loaded.FreeSlots[0].Position)
	assert.EqualValues(t, 32, loaded.FreeSlots[0].Length)
	require.Len(t, loaded.Indexes, 1)
	assert.Equal(t, "idx_id", loaded.Indexes[0].Name)

	require.Len(t, loaded.Columns, 2)
	assert.Equal(t, "id", loaded.Columns[0].Name)
	assert.True(t, loaded.Columns[0].IsPrimaryKey)
	assert.Equal(t, "name", loaded.Columns[1].Name)
	assert.Equal(t, 40, loaded.Columns[1].MaxSize)
	assert.True(t, loaded.Columns[1].HasDefault)
	assert.Equal(t, "anon", loaded.Columns[1].Default.Str)
}

func TestSaveAndLoad_NoFreeSlotsOrIndexes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.meta")
	m := New("t", []schema.Column{schema.NewColumn("id", schema.Number)})
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.FreeSlots)
	assert.Empty(t, loaded.Indexes)
}

func TestLoad_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.meta")
	m := New("t", []schema.Column{schema.NewColumn("id", schema.Number)})
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingHashHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.meta")
	require.NoError(t, os.WriteFile(path, []byte("Total Lines:0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFreeSlot_String(t *testing.T) {
	fs := FreeSlot{Position: 10, Length: 20}
	assert.Equal(t, "10|20", fs.String())
}
