package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeManager_CreateAndSaveLoad(t *testing.T) {
	dir := t.TempDir()
	nm, err := createNodeManager(filepath.Join(dir, "nodes.bin"), 2, KeyFloat, 0)
	require.NoError(t, err)
	defer nm.close()

	assert.EqualValues(t, -1, nm.rootOffset)

	n := node{offset: -1, isLeaf: true}
	offset, err := nm.save(n)
	require.NoError(t, err)

	loaded, err := nm.load(offset)
	require.NoError(t, err)
	assert.True(t, loaded.isLeaf)
}

func TestNodeManager_OpenReloadsHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nodes.bin")
	nm, err := createNodeManager(path, 3, KeyString, 12)
	require.NoError(t, err)
	nm.rootOffset = 42
	require.NoError(t, nm.saveHeader())
	require.NoError(t, nm.close())

	reopened, err := openNodeManager(path)
	require.NoError(t, err)
	defer reopened.close()
	assert.EqualValues(t, 42, reopened.rootOffset)
	assert.Equal(t, 3, reopened.layout.t)
	assert.Equal(t, KeyString, reopened.layout.keyType)
	assert.Equal(t, 12, reopened.layout.keyMaxSize)
}

func TestNodeManager_LoadNullOffsetErrors(t *testing.T) {
	dir := t.TempDir()
	nm, err := createNodeManager(filepath.Join(dir, "nodes.bin"), 2, KeyFloat, 0)
	require.NoError(t, err)
	defer nm.close()

	_, err = nm.load(-1)
	assert.Error(t, err)
}

func TestPointerListManager_CreateAppendTraverse(t *testing.T) {
	dir := t.TempDir()
	pm, err := createPointerListManager(filepath.Join(dir, "ptrlst.bin"))
	require.NoError(t, err)
	defer pm.close()

	head, err := pm.createList(100)
	require.NoError(t, err)
	require.NoError(t, pm.append(head, 200))
	require.NoError(t, pm.append(head, 300))

	values, err := pm.traverse(head)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, values)
}

func TestPointerListManager_PopFirst(t *testing.T) {
	dir := t.TempDir()
	pm, err := createPointerListManager(filepath.Join(dir, "ptrlst.bin"))
	require.NoError(t, err)
	defer pm.close()

	head, err := pm.createList(1)
	require.NoError(t, err)
	require.NoError(t, pm.append(head, 2))
	require.NoError(t, pm.append(head, 3))

	value, newHead, err := pm.popFirst(head)
	require.NoError(t, err)
	assert.EqualValues(t, 1, value)

	values, err := pm.traverse(newHead)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, values)
}

func TestPointerListManager_DeletePointer_Middle(t *testing.T) {
	dir := t.TempDir()
	pm, err := createPointerListManager(filepath.Join(dir, "ptrlst.bin"))
	require.NoError(t, err)
	defer pm.close()

	head, err := pm.createList(1)
	require.NoError(t, err)
	require.NoError(t, pm.append(head, 2))
	require.NoError(t, pm.append(head, 3))

	newHead, found, err := pm.deletePointer(head, 2)
	require.NoError(t, err)
	assert.True(t, found)

	values, err := pm.traverse(newHead)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, values)
}

func TestPointerListManager_DeletePointer_Head(t *testing.T) {
	dir := t.TempDir()
	pm, err := createPointerListManager(filepath.Join(dir, "ptrlst.bin"))
	require.NoError(t, err)
	defer pm.close()

	head, err := pm.createList(1)
	require.NoError(t, err)
	require.NoError(t, pm.append(head, 2))

	newHead, found, err := pm.deletePointer(head, 1)
	require.NoError(t, err)
	assert.True(t, found)

	values, err := pm.traverse(newHead)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, values)
}

func TestPointerListManager_DeletePointer_NotFound(t *testing.T) {
	dir := t.TempDir()
	pm, err := createPointerListManager(filepath.Join(dir, "ptrlst.bin"))
	require.NoError(t, err)
	defer pm.close()

	head, err := pm.createList(1)
	require.NoError(t, err)

	_, found, err := pm.deletePointer(head, 999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPointerListManager_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ptrlst.bin")
	pm, err := createPointerListManager(path)
	require.NoError(t, err)
	head, err := pm.createList(7)
	require.NoError(t, err)
	require.NoError(t, pm.close())

	reopened, err := openPointerListManager(path)
	require.NoError(t, err)
	defer reopened.close()

	values, err := reopened.traverse(head)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, values)
}
