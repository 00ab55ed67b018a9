package btree

import (
	"pengobase/internal/dberrors"
	"pengobase/internal/dsutil"
	"pengobase/internal/schema"
)

// BTree is the persistent B-tree handle, owning a nodeManager and a
// pointerListManager, each constructed with its own path and never
// sharing a file cursor (DESIGN.md Ownership note).
type BTree struct {
	nm *nodeManager
	pm *pointerListManager
	t  int
}

// Create makes a fresh, empty index backed by the two given files.
func Create(nodesPath, ptrlstPath string, t int, keyType KeyType, keyMaxSize int) (*BTree, error) {
	nm, err := createNodeManager(nodesPath, t, keyType, keyMaxSize)
	if err != nil {
		return nil, err
	}
	pm, err := createPointerListManager(ptrlstPath)
	if err != nil {
		return nil, err
	}
	return &BTree{nm: nm, pm: pm, t: t}, nil
}

// Open loads an existing index from its two files.
func Open(nodesPath, ptrlstPath string) (*BTree, error) {
	nm, err := openNodeManager(nodesPath)
	if err != nil {
		return nil, err
	}
	pm, err := openPointerListManager(ptrlstPath)
	if err != nil {
		return nil, err
	}
	return &BTree{nm: nm, pm: pm, t: nm.layout.t}, nil
}

// Close releases both underlying files.
func (bt *BTree) Close() error {
	err1 := bt.nm.close()
	err2 := bt.pm.close()
	if err1 != nil {
		return err1
	}
	return err2
}

// KeyType and KeyMaxSize expose the index's fixed key shape, needed by
// callers encoding search/range bounds.
func (bt *BTree) KeyType() KeyType { return bt.nm.layout.keyType }
func (bt *BTree) KeyMaxSize() int  { return bt.nm.layout.keyMaxSize }
func (bt *BTree) Degree() int      { return bt.t }

func (bt *BTree) cmp(a, b schema.Value) int { return a.Compare(b) }

// Search returns every row offset (primary pointer plus the full
// duplicate list) stored under key, or nil if key is absent.
func (bt *BTree) Search(key schema.Value) ([]int64, error) {
	if bt.nm.rootOffset < 0 {
		return nil, nil
	}
	return bt.search(bt.nm.rootOffset, key)
}

func (bt *BTree) search(offset int64, key schema.Value) ([]int64, error) {
	n, err := bt.nm.load(offset)
	if err != nil {
		return nil, err
	}
	i := 0
	for i < len(n.keys) && bt.cmp(n.keys[i].value, key) < 0 {
		i++
	}
	if i < len(n.keys) && bt.cmp(n.keys[i].value, key) == 0 {
		out := []int64{n.keys[i].primary}
		if n.keys[i].listHead != -1 {
			dups, err := bt.pm.traverse(n.keys[i].listHead)
			if err != nil {
				return nil, err
			}
			out = append(out, dups...)
		}
		return out, nil
	}
	if n.isLeaf {
		return nil, nil
	}
	return bt.search(n.children[i], key)
}

// Insert adds (key, ptr) to the tree. If key already exists, ptr is
// appended to its duplicate-pointer list rather than inserting a new
// key.
func (bt *BTree) Insert(key schema.Value, ptr int64) error {
	if bt.nm.rootOffset < 0 {
		root := node{offset: -1, isLeaf: true, keys: []entry{{value: key, primary: ptr, listHead: -1}}}
		offset, err := bt.nm.save(root)
		if err != nil {
			return err
		}
		bt.nm.rootOffset = offset
		return bt.nm.saveHeader()
	}

	root, err := bt.nm.load(bt.nm.rootOffset)
	if err != nil {
		return err
	}

	if existed, err := bt.attachIfExists(&root, key, ptr); err != nil {
		return err
	} else if existed {
		return nil
	}

	if len(root.keys) == bt.nm.layout.maxKeys() {
		newRoot := node{offset: -1, isLeaf: false, children: []int64{root.offset}}
		newRootOffset, err := bt.nm.save(newRoot)
		if err != nil {
			return err
		}
		newRoot.offset = newRootOffset
		if err := bt.splitChild(&newRoot, 0); err != nil {
			return err
		}
		bt.nm.rootOffset = newRoot.offset
		if err := bt.nm.saveHeader(); err != nil {
			return err
		}
		return bt.insertNonFull(&newRoot, key, ptr)
	}
	return bt.insertNonFull(&root, key, ptr)
}

// attachIfExists checks whether key is already present anywhere in the
// subtree rooted at n and, if so, appends ptr to its duplicate list.
func (bt *BTree) attachIfExists(n *node, key schema.Value, ptr int64) (bool, error) {
	i := 0
	for i < len(n.keys) && bt.cmp(n.keys[i].value, key) < 0 {
		i++
	}
	if i < len(n.keys) && bt.cmp(n.keys[i].value, key) == 0 {
		if n.keys[i].listHead == -1 {
			head, err := bt.pm.createList(ptr)
			if err != nil {
				return true, err
			}
			n.keys[i].listHead = head
		} else {
			if err := bt.pm.append(n.keys[i].listHead, ptr); err != nil {
				return true, err
			}
		}
		if _, err := bt.nm.save(*n); err != nil {
			return true, err
		}
		return true, nil
	}
	if n.isLeaf {
		return false, nil
	}
	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return false, err
	}
	return bt.attachIfExists(&child, key, ptr)
}

// splitChild splits the full child at n.children[i], promoting its
// median key into n at index i.
func (bt *BTree) splitChild(n *node, i int) error {
	t := bt.t
	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}

	mid := child.keys[t-1]
	left := node{offset: child.offset, isLeaf: child.isLeaf, keys: append([]entry{}, child.keys[:t-1]...)}
	right := node{offset: -1, isLeaf: child.isLeaf, keys: append([]entry{}, child.keys[t:]...)}
	if !child.isLeaf {
		left.children = append([]int64{}, child.children[:t]...)
		right.children = append([]int64{}, child.children[t:]...)
	}

	rightOffset, err := bt.nm.save(right)
	if err != nil {
		return err
	}
	right.offset = rightOffset

	if _, err := bt.nm.save(left); err != nil {
		return err
	}

	n.keys = append(n.keys, entry{})
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = mid

	n.children = append(n.children, 0)
	copy(n.children[i+2:], n.children[i+1:])
	n.children[i+1] = rightOffset

	_, err = bt.nm.save(*n)
	return err
}

// insertNonFull descends from a known non-full node n, pre-splitting any
// full child before recursing into it.
func (bt *BTree) insertNonFull(n *node, key schema.Value, ptr int64) error {
	i := len(n.keys) - 1
	if n.isLeaf {
		n.keys = append(n.keys, entry{})
		for i >= 0 && bt.cmp(key, n.keys[i].value) < 0 {
			n.keys[i+1] = n.keys[i]
			i--
		}
		n.keys[i+1] = entry{value: key, primary: ptr, listHead: -1}
		_, err := bt.nm.save(*n)
		return err
	}

	for i >= 0 && bt.cmp(key, n.keys[i].value) < 0 {
		i--
	}
	i++
	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	if len(child.keys) == bt.nm.layout.maxKeys() {
		if err := bt.splitChild(n, i); err != nil {
			return err
		}
		if bt.cmp(key, n.keys[i].value) > 0 {
			i++
		}
		child, err = bt.nm.load(n.children[i])
		if err != nil {
			return err
		}
	}
	return bt.insertNonFull(&child, key, ptr)
}

// Delete removes key and its entire duplicate-pointer list from the
// tree.
func (bt *BTree) Delete(key schema.Value) error {
	if bt.nm.rootOffset < 0 {
		return nil
	}
	root, err := bt.nm.load(bt.nm.rootOffset)
	if err != nil {
		return err
	}
	if err := bt.deleteFrom(&root, key); err != nil {
		return err
	}
	root, err = bt.nm.load(bt.nm.rootOffset)
	if err != nil {
		return err
	}
	if len(root.keys) == 0 {
		if root.isLeaf {
			bt.nm.rootOffset = -1
		} else {
			bt.nm.rootOffset = root.children[0]
		}
		return bt.nm.saveHeader()
	}
	return nil
}

// DeletePointer implements delete_pointer(key, pointer): removes one
// offset from key's occurrence set, promoting the first duplicate to
// primary if the primary is the one removed, and only deletes the key
// entirely once its pointer set is empty.
func (bt *BTree) DeletePointer(key schema.Value, ptr int64) error {
	if bt.nm.rootOffset < 0 {
		return dberrors.Table("delete_pointer on empty index")
	}
	return bt.deletePointerAt(bt.nm.rootOffset, key, ptr)
}

func (bt *BTree) deletePointerAt(offset int64, key schema.Value, ptr int64) error {
	n, err := bt.nm.load(offset)
	if err != nil {
		return err
	}
	i := 0
	for i < len(n.keys) && bt.cmp(n.keys[i].value, key) < 0 {
		i++
	}
	if i >= len(n.keys) || bt.cmp(n.keys[i].value, key) != 0 {
		if n.isLeaf {
			return dberrors.Table("delete_pointer: key not found")
		}
		return bt.deletePointerAt(n.children[i], key, ptr)
	}

	if n.keys[i].primary == ptr {
		if n.keys[i].listHead == -1 {
			return bt.Delete(key)
		}
		value, newHead, err := bt.pm.popFirst(n.keys[i].listHead)
		if err != nil {
			return err
		}
		n.keys[i].primary = value
		n.keys[i].listHead = newHead
		_, err = bt.nm.save(n)
		return err
	}

	if n.keys[i].listHead != -1 {
		newHead, found, err := bt.pm.deletePointer(n.keys[i].listHead, ptr)
		if err != nil {
			return err
		}
		if found {
			n.keys[i].listHead = newHead
			_, err = bt.nm.save(n)
			return err
		}
	}
	return dberrors.Table("delete_pointer: pointer not found for key")
}

// deleteFrom implements the CLRS-style three-case delete, descending
// from a node known to have at least t keys (or being the root).
func (bt *BTree) deleteFrom(n *node, key schema.Value) error {
	t := bt.t
	i := 0
	for i < len(n.keys) && bt.cmp(n.keys[i].value, key) < 0 {
		i++
	}

	if i < len(n.keys) && bt.cmp(n.keys[i].value, key) == 0 {
		if n.isLeaf {
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			_, err := bt.nm.save(*n)
			return err
		}
		return bt.deleteInternal(n, i)
	}

	if n.isLeaf {
		return dberrors.Table("key not found for delete")
	}

	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	if len(child.keys) < t {
		if err := bt.fixChild(n, i); err != nil {
			return err
		}
		// indices may have shifted after a merge; re-resolve.
		i = 0
		for i < len(n.keys) && bt.cmp(n.keys[i].value, key) < 0 {
			i++
		}
		if i < len(n.keys) && bt.cmp(n.keys[i].value, key) == 0 {
			if n.isLeaf {
				n.keys = append(n.keys[:i], n.keys[i+1:]...)
				_, err := bt.nm.save(*n)
				return err
			}
			return bt.deleteInternal(n, i)
		}
		child, err = bt.nm.load(n.children[i])
		if err != nil {
			return err
		}
	}
	return bt.deleteFrom(&child, key)
}

func (bt *BTree) deleteInternal(n *node, i int) error {
	t := bt.t
	left, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	right, err := bt.nm.load(n.children[i+1])
	if err != nil {
		return err
	}

	switch {
	case len(left.keys) >= t:
		pred := bt.maxEntry(&left)
		n.keys[i] = pred
		if _, err := bt.nm.save(*n); err != nil {
			return err
		}
		return bt.deleteFrom(&left, pred.value)
	case len(right.keys) >= t:
		succ := bt.minEntry(&right)
		n.keys[i] = succ
		if _, err := bt.nm.save(*n); err != nil {
			return err
		}
		return bt.deleteFrom(&right, succ.value)
	default:
		deletedKey := n.keys[i].value
		merged := bt.merge(left, n.keys[i], right)
		mergedOffset, err := bt.nm.save(merged)
		if err != nil {
			return err
		}
		n.keys = append(n.keys[:i], n.keys[i+1:]...)
		n.children = append(n.children[:i+1], n.children[i+2:]...)
		n.children[i] = mergedOffset
		if _, err := bt.nm.save(*n); err != nil {
			return err
		}
		merged.offset = mergedOffset
		return bt.deleteFrom(&merged, deletedKey)
	}
}

func (bt *BTree) maxEntry(n *node) entry {
	for !n.isLeaf {
		child, err := bt.nm.load(n.children[len(n.children)-1])
		if err != nil {
			return entry{}
		}
		*n = child
	}
	return n.keys[len(n.keys)-1]
}

func (bt *BTree) minEntry(n *node) entry {
	for !n.isLeaf {
		child, err := bt.nm.load(n.children[0])
		if err != nil {
			return entry{}
		}
		*n = child
	}
	return n.keys[0]
}

func (bt *BTree) merge(left node, mid entry, right node) node {
	merged := node{offset: left.offset, isLeaf: left.isLeaf}
	merged.keys = append(append(append([]entry{}, left.keys...), mid), right.keys...)
	if !left.isLeaf {
		merged.children = append(append([]int64{}, left.children...), right.children...)
	}
	return merged
}

// fixChild ensures n.children[i] has at least t keys before descending
// into it, borrowing from a sibling (left preferred) or merging.
func (bt *BTree) fixChild(n *node, i int) error {
	t := bt.t
	if i > 0 {
		left, err := bt.nm.load(n.children[i-1])
		if err != nil {
			return err
		}
		if len(left.keys) >= t {
			return bt.borrowFromLeft(n, i, &left)
		}
	}
	if i < len(n.children)-1 {
		right, err := bt.nm.load(n.children[i+1])
		if err != nil {
			return err
		}
		if len(right.keys) >= t {
			return bt.borrowFromRight(n, i, &right)
		}
	}
	if i > 0 {
		i--
	}
	left, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	right, err := bt.nm.load(n.children[i+1])
	if err != nil {
		return err
	}
	merged := bt.merge(left, n.keys[i], right)
	mergedOffset, err := bt.nm.save(merged)
	if err != nil {
		return err
	}
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.children = append(n.children[:i+1], n.children[i+2:]...)
	n.children[i] = mergedOffset
	_, err = bt.nm.save(*n)
	return err
}

func (bt *BTree) borrowFromLeft(n *node, i int, left *node) error {
	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	child.keys = append([]entry{n.keys[i-1]}, child.keys...)
	if !left.isLeaf {
		lastChild := left.children[len(left.children)-1]
		left.children = left.children[:len(left.children)-1]
		child.children = append([]int64{lastChild}, child.children...)
	}
	n.keys[i-1] = left.keys[len(left.keys)-1]
	left.keys = left.keys[:len(left.keys)-1]

	if _, err := bt.nm.save(*left); err != nil {
		return err
	}
	if _, err := bt.nm.save(child); err != nil {
		return err
	}
	_, err = bt.nm.save(*n)
	return err
}

func (bt *BTree) borrowFromRight(n *node, i int, right *node) error {
	child, err := bt.nm.load(n.children[i])
	if err != nil {
		return err
	}
	child.keys = append(child.keys, n.keys[i])
	if !right.isLeaf {
		firstChild := right.children[0]
		right.children = right.children[1:]
		child.children = append(child.children, firstChild)
	}
	n.keys[i] = right.keys[0]
	right.keys = right.keys[1:]

	if _, err := bt.nm.save(*right); err != nil {
		return err
	}
	if _, err := bt.nm.save(child); err != nil {
		return err
	}
	_, err = bt.nm.save(*n)
	return err
}

// RangeSearch returns every row offset (including duplicate-list
// members) for keys in [lo, hi], in ascending key order.
func (bt *BTree) RangeSearch(lo, hi schema.Value) ([]int64, error) {
	if bt.nm.rootOffset < 0 {
		return nil, nil
	}
	var out []int64
	err := bt.rangeSearch(bt.nm.rootOffset, lo, hi, &out)
	return out, err
}

func (bt *BTree) rangeSearch(offset int64, lo, hi schema.Value, out *[]int64) error {
	n, err := bt.nm.load(offset)
	if err != nil {
		return err
	}
	i := 0
	for i < len(n.keys) && bt.cmp(n.keys[i].value, lo) < 0 {
		i++
	}
	if !n.isLeaf {
		if err := bt.rangeSearch(n.children[i], lo, hi, out); err != nil {
			return err
		}
	}
	for i < len(n.keys) && bt.cmp(n.keys[i].value, hi) <= 0 {
		*out = append(*out, n.keys[i].primary)
		if n.keys[i].listHead != -1 {
			dups, err := bt.pm.traverse(n.keys[i].listHead)
			if err != nil {
				return err
			}
			*out = append(*out, dups...)
		}
		if !n.isLeaf {
			if err := bt.rangeSearch(n.children[i+1], lo, hi, out); err != nil {
				return err
			}
		}
		i++
	}
	return nil
}

// sortOffsets orders a slice of row offsets ascending via binary
// insertion sort. Nothing in the module calls it.
func sortOffsets(offsets []int64) {
	dsutil.BinaryInsertionSortInt64(offsets, dsutil.Ascending)
}
