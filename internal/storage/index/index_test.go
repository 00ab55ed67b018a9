package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pengobase/internal/schema"
)

func TestCreate_NumberColumn(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, "idx_id", idx.Name())
	assert.Equal(t, "id", idx.Column())
	assert.FileExists(t, idx.NodesPath())
	assert.FileExists(t, idx.PtrlstPath())
}

func TestInsertSearchDelete(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(schema.NumberInt(1), 100))
	require.NoError(t, idx.Insert(schema.NumberInt(2), 200))

	offsets, err := idx.Search(schema.NumberInt(1))
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, offsets)

	require.NoError(t, idx.Delete(schema.NumberInt(1), 100))
	offsets, err = idx.Search(schema.NumberInt(1))
	require.NoError(t, err)
	assert.Nil(t, offsets)
}

func TestRangeSearch_OpenBoundsUseKeyTypeDefaults(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)
	defer idx.Close()

	for i := int32(1); i <= 5; i++ {
		require.NoError(t, idx.Insert(schema.NumberInt(i), int64(i)))
	}

	offsets, err := idx.RangeSearch(nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, offsets)

	lo := schema.NumberInt(3)
	offsets, err = idx.RangeSearch(&lo, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3, 4, 5}, offsets)
}

func TestStringColumn_KeyMaxSizeFromColumn(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "name", Type: schema.String, MaxSize: 20}
	idx, err := Create(dir, "idx_name", "name", col, DefaultDegree)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(schema.NewString("Ivo"), 1))
	offsets, err := idx.Search(schema.NewString("Ivo"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, offsets)
}

func TestOpen_ReopensExistingIndex(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)
	require.NoError(t, idx.Insert(schema.NumberInt(9), 90))
	nodesPath, ptrlstPath := idx.NodesPath(), idx.PtrlstPath()
	require.NoError(t, idx.Close())

	reopened, err := Open("idx_id", "id", nodesPath, ptrlstPath)
	require.NoError(t, err)
	defer reopened.Close()

	offsets, err := reopened.Search(schema.NumberInt(9))
	require.NoError(t, err)
	assert.Equal(t, []int64{90}, offsets)
}

func TestReset_ClearsIndexContents(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Insert(schema.NumberInt(1), 100))
	require.NoError(t, idx.Reset())

	offsets, err := idx.Search(schema.NumberInt(1))
	require.NoError(t, err)
	assert.Nil(t, offsets)

	require.NoError(t, idx.Insert(schema.NumberInt(2), 200))
	offsets, err = idx.Search(schema.NumberInt(2))
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, offsets)
}

func TestDrop_RemovesBackingFiles(t *testing.T) {
	dir := t.TempDir()
	col := schema.Column{Name: "id", Type: schema.Number}
	idx, err := Create(dir, "idx_id", "id", col, DefaultDegree)
	require.NoError(t, err)

	nodesPath, ptrlstPath := idx.NodesPath(), idx.PtrlstPath()
	require.NoError(t, idx.Drop())

	_, err = os.Stat(nodesPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(ptrlstPath)
	assert.True(t, os.IsNotExist(err))
}

func TestPathsFor(t *testing.T) {
	nodesPath, ptrlstPath := pathsFor("/data", "idx_id")
	assert.Equal(t, filepath.Join("/data", "idx_id_index.index"), nodesPath)
	assert.Equal(t, filepath.Join("/data", "idx_id_index.data"), ptrlstPath)
}
