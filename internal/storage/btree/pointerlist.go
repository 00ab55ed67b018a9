package btree

import (
	"os"

	"pengobase/internal/binformat"
	"pengobase/internal/dberrors"
)

const (
	ptrHeaderSize = 4 + 8 + 8      // checksum, free_slot, eof
	ptrRecordSize = 4 + 8 + 8 + 8  // checksum, prev, current, next
)

// pointerListManager owns the duplicate-key pointer-list file: one
// doubly-linked chain per duplicate key, each triple (prev, current,
// next) holding a heap-row offset in current and the positions of its
// neighbouring triples in this file in prev and next. Grounded on pointer_list_manager.py,
// including its documented non-reclaiming free-slot simplification.
type pointerListManager struct {
	path     string
	file     *os.File
	freeSlot int64
	eof      int64
}

func createPointerListManager(path string) (*pointerListManager, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, dberrors.TableWrap("create pointer list file", err)
	}
	m := &pointerListManager{path: path, file: f, freeSlot: ptrHeaderSize, eof: ptrHeaderSize}
	if err := m.saveHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

func openPointerListManager(path string) (*pointerListManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, dberrors.TableWrap("open pointer list file", err)
	}
	buf := make([]byte, ptrHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, dberrors.TableWrap("read pointer list header", err)
	}
	wantChecksum := binformat.Uint32(buf[0:4])
	if !binformat.Verify(buf[4:], wantChecksum) {
		f.Close()
		return nil, dberrors.Table("pointer list header checksum mismatch, index is corrupted")
	}
	return &pointerListManager{
		path:     path,
		file:     f,
		freeSlot: binformat.Int64(buf[4:12]),
		eof:      binformat.Int64(buf[12:20]),
	}, nil
}

func (m *pointerListManager) saveHeader() error {
	buf := make([]byte, ptrHeaderSize)
	binformat.PutInt64(buf[4:12], m.freeSlot)
	binformat.PutInt64(buf[12:20], m.eof)
	checksum := binformat.Checksum(buf[4:])
	binformat.PutUint32(buf[0:4], checksum)
	if _, err := m.file.WriteAt(buf, 0); err != nil {
		return dberrors.TableWrap("write pointer list header", err)
	}
	return nil
}

func (m *pointerListManager) close() error { return m.file.Close() }

type ptrTriple struct {
	prev, current, next int64
}

func (m *pointerListManager) allocate() int64 {
	pos := m.freeSlot
	if pos == m.eof {
		m.eof += ptrRecordSize
	}
	m.freeSlot = m.eof
	return pos
}

func (m *pointerListManager) writeTriple(pos int64, t ptrTriple) error {
	buf := make([]byte, ptrRecordSize)
	binformat.PutInt64(buf[4:12], t.prev)
	binformat.PutInt64(buf[12:20], t.current)
	binformat.PutInt64(buf[20:28], t.next)
	checksum := binformat.Checksum(buf[4:])
	binformat.PutUint32(buf[0:4], checksum)
	if _, err := m.file.WriteAt(buf, pos); err != nil {
		return dberrors.TableWrap("write pointer list node", err)
	}
	return nil
}

func (m *pointerListManager) readTriple(pos int64) (ptrTriple, error) {
	buf := make([]byte, ptrRecordSize)
	if _, err := m.file.ReadAt(buf, pos); err != nil {
		return ptrTriple{}, dberrors.TableWrap("read pointer list node", err)
	}
	wantChecksum := binformat.Uint32(buf[0:4])
	if !binformat.Verify(buf[4:], wantChecksum) {
		return ptrTriple{}, dberrors.Table("pointer list node checksum mismatch, index is corrupted")
	}
	return ptrTriple{
		prev:    binformat.Int64(buf[4:12]),
		current: binformat.Int64(buf[12:20]),
		next:    binformat.Int64(buf[20:28]),
	}, nil
}

// createList writes a single-element chain holding ptr and returns its
// position, to become a key's list_head.
func (m *pointerListManager) createList(ptr int64) (int64, error) {
	pos := m.allocate()
	if err := m.writeTriple(pos, ptrTriple{prev: -1, current: ptr, next: -1}); err != nil {
		return 0, err
	}
	if err := m.saveHeader(); err != nil {
		return 0, err
	}
	return pos, nil
}

// append walks the chain from head to its tail and links a new triple
// holding ptr onto the end.
func (m *pointerListManager) append(head int64, ptr int64) error {
	pos := head
	for {
		t, err := m.readTriple(pos)
		if err != nil {
			return err
		}
		if t.next == -1 {
			newPos := m.allocate()
			if err := m.writeTriple(newPos, ptrTriple{prev: pos, current: ptr, next: -1}); err != nil {
				return err
			}
			t.next = newPos
			if err := m.writeTriple(pos, t); err != nil {
				return err
			}
			return m.saveHeader()
		}
		pos = t.next
	}
}

// traverse returns every offset stored in the chain starting at head, in
// order.
func (m *pointerListManager) traverse(head int64) ([]int64, error) {
	var out []int64
	pos := head
	for pos != -1 {
		t, err := m.readTriple(pos)
		if err != nil {
			return nil, err
		}
		out = append(out, t.current)
		pos = t.next
	}
	return out, nil
}

// deletePointer removes the triple holding ptr from the chain starting
// at head, relinking its neighbors, and returns the (possibly new) head.
// Returns head unchanged with found=false if ptr is not in the chain.
func (m *pointerListManager) deletePointer(head int64, ptr int64) (newHead int64, found bool, err error) {
	pos := head
	for pos != -1 {
		t, rerr := m.readTriple(pos)
		if rerr != nil {
			return head, false, rerr
		}
		if t.current == ptr {
			if t.prev != -1 {
				prevT, rerr := m.readTriple(t.prev)
				if rerr != nil {
					return head, false, rerr
				}
				prevT.next = t.next
				if werr := m.writeTriple(t.prev, prevT); werr != nil {
					return head, false, werr
				}
			}
			if t.next != -1 {
				nextT, rerr := m.readTriple(t.next)
				if rerr != nil {
					return head, false, rerr
				}
				nextT.prev = t.prev
				if werr := m.writeTriple(t.next, nextT); werr != nil {
					return head, false, werr
				}
			}
			newHead = head
			if pos == head {
				newHead = t.next
			}
			return newHead, true, nil
		}
		pos = t.next
	}
	return head, false, nil
}

// popFirst removes and returns the head element of the chain, along with
// the new head (-1 if the chain is now empty).
func (m *pointerListManager) popFirst(head int64) (value int64, newHead int64, err error) {
	t, err := m.readTriple(head)
	if err != nil {
		return 0, head, err
	}
	newHead = t.next
	if newHead != -1 {
		nextT, err := m.readTriple(newHead)
		if err != nil {
			return 0, head, err
		}
		nextT.prev = -1
		if err := m.writeTriple(newHead, nextT); err != nil {
			return 0, head, err
		}
	}
	return t.current, newHead, nil
}
