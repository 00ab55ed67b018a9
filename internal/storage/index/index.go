// Package index binds a persistent B-tree to one table column, giving
// the heap table a narrow IndexBinding interface (Column/Insert/Delete/
// Close) while keeping every B-tree/pointer-list detail inside
// storage/btree. Grounded on the prototype's db_components/index.py,
// which plays the same connective role between a table and its btree.
package index

import (
	"os"
	"path/filepath"

	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
	"pengobase/internal/storage/btree"
)

// DefaultDegree is the B-tree minimum degree used for every index
// created by the engine, chosen to keep node records a few hundred
// bytes wide for typical string key sizes (see DESIGN.md).
const DefaultDegree = 3

// TableIndex is one secondary index bound to a single column.
type TableIndex struct {
	name       string
	column     string
	nodesPath  string
	ptrlstPath string
	keyType    btree.KeyType
	keyMaxSize int
	degree     int
	tree       *btree.BTree
}

func pathsFor(dir, name string) (nodesPath, ptrlstPath string) {
	return filepath.Join(dir, name+"_index.index"), filepath.Join(dir, name+"_index.data")
}

// Create builds a brand-new, empty index for column, named name, with
// its two files under dir.
func Create(dir, name, column string, col schema.Column, degree int) (*TableIndex, error) {
	nodesPath, ptrlstPath := pathsFor(dir, name)
	keyType := btree.NewKeyType(col.Type)
	keyMaxSize := col.MaxSize
	if col.Type != schema.String {
		keyMaxSize = 0
	}
	tree, err := btree.Create(nodesPath, ptrlstPath, degree, keyType, keyMaxSize)
	if err != nil {
		return nil, err
	}
	return &TableIndex{
		name: name, column: column, nodesPath: nodesPath, ptrlstPath: ptrlstPath,
		keyType: keyType, keyMaxSize: keyMaxSize, degree: degree, tree: tree,
	}, nil
}

// Open reopens an existing index from the paths recorded in the table's
// metadata.
func Open(name, column, nodesPath, ptrlstPath string) (*TableIndex, error) {
	tree, err := btree.Open(nodesPath, ptrlstPath)
	if err != nil {
		return nil, err
	}
	return &TableIndex{
		name: name, column: column, nodesPath: nodesPath, ptrlstPath: ptrlstPath,
		keyType: tree.KeyType(), keyMaxSize: tree.KeyMaxSize(), degree: tree.Degree(), tree: tree,
	}, nil
}

// Name returns this index's name, as stored in the table metadata.
func (idx *TableIndex) Name() string { return idx.name }

// Column returns the column this index is bound to.
func (idx *TableIndex) Column() string { return idx.column }

// NodesPath and PtrlstPath return the index's two backing file paths,
// for recording in table metadata.
func (idx *TableIndex) NodesPath() string  { return idx.nodesPath }
func (idx *TableIndex) PtrlstPath() string { return idx.ptrlstPath }

// Insert adds one (key, row offset) occurrence.
func (idx *TableIndex) Insert(key schema.Value, position int64) error {
	return idx.tree.Insert(key, position)
}

// Delete removes one (key, row offset) occurrence, per the B-tree's
// delete_pointer semantics: the key itself is only removed once its
// last occurrence is gone.
func (idx *TableIndex) Delete(key schema.Value, position int64) error {
	return idx.tree.DeletePointer(key, position)
}

// Search returns every row offset stored under key.
func (idx *TableIndex) Search(key schema.Value) ([]int64, error) {
	return idx.tree.Search(key)
}

// RangeSearch returns every row offset for keys in [lo, hi]. A nil lo or
// hi is replaced with this index's key type's open-bound default.
func (idx *TableIndex) RangeSearch(lo, hi *schema.Value) ([]int64, error) {
	loVal := idx.keyType.MinValue(idx.keyMaxSize)
	hiVal := idx.keyType.MaxValue(idx.keyMaxSize)
	if lo != nil {
		loVal = *lo
	}
	if hi != nil {
		hiVal = *hi
	}
	return idx.tree.RangeSearch(loVal, hiVal)
}

// Reset drops this index's on-disk state and rebuilds empty files with
// the same (degree, keyType, keyMaxSize), for use after a table
// defragment where every row is about to be reinserted at a new offset.
func (idx *TableIndex) Reset() error {
	if err := idx.tree.Close(); err != nil {
		return err
	}
	tree, err := btree.Create(idx.nodesPath, idx.ptrlstPath, idx.degree, idx.keyType, idx.keyMaxSize)
	if err != nil {
		return err
	}
	idx.tree = tree
	return nil
}

// Close releases the index's underlying files.
func (idx *TableIndex) Close() error { return idx.tree.Close() }

// Drop closes and removes both of the index's backing files.
func (idx *TableIndex) Drop() error {
	if err := idx.tree.Close(); err != nil {
		return err
	}
	if err := os.Remove(idx.nodesPath); err != nil && !os.IsNotExist(err) {
		return dberrors.TableWrap("remove index node file", err)
	}
	if err := os.Remove(idx.ptrlstPath); err != nil && !os.IsNotExist(err) {
		return dberrors.TableWrap("remove index pointer list file", err)
	}
	return nil
}
