package btree

import (
	"os"

	"pengobase/internal/binformat"
	"pengobase/internal/dberrors"
)

// headerSize is the constant on-disk size of the node-file header:
// checksum(4) + t(4) + root_offset(8) + eof(8) + key_type(1) + key_max_size(4).
const headerSize = 4 + 4 + 8 + 8 + 1 + 4

// nodeManager owns one B-tree node file: its header (t, root offset,
// eof, key type, key max size) and fixed-size node record I/O. It is
// constructed with a path and never shares its file cursor with anyone
// else, per DESIGN.md's Ownership note.
type nodeManager struct {
	path       string
	file       *os.File
	layout     layout
	rootOffset int64
	eof        int64
}

// createNodeManager creates a fresh, empty node file with the given
// parameters and an empty tree (root_offset = -1).
func createNodeManager(path string, t int, keyType KeyType, keyMaxSize int) (*nodeManager, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, dberrors.TableWrap("create btree node file", err)
	}
	m := &nodeManager{
		path:       path,
		file:       f,
		layout:     layout{t: t, keyType: keyType, keyMaxSize: keyMaxSize},
		rootOffset: -1,
		eof:        headerSize,
	}
	if err := m.saveHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

// openNodeManager opens an existing node file and validates its header
// checksum.
func openNodeManager(path string) (*nodeManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, dberrors.TableWrap("open btree node file", err)
	}
	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, dberrors.TableWrap("read btree header", err)
	}
	wantChecksum := binformat.Uint32(buf[0:4])
	if !binformat.Verify(buf[4:], wantChecksum) {
		f.Close()
		return nil, dberrors.Table("btree header checksum mismatch, index is corrupted")
	}
	t := int(binformat.Int32(buf[4:8]))
	rootOffset := binformat.Int64(buf[8:16])
	eof := binformat.Int64(buf[16:24])
	keyType := KeyType(buf[24])
	keyMaxSize := int(binformat.Int32(buf[25:29]))

	return &nodeManager{
		path:       path,
		file:       f,
		layout:     layout{t: t, keyType: keyType, keyMaxSize: keyMaxSize},
		rootOffset: rootOffset,
		eof:        eof,
	}, nil
}

func (m *nodeManager) saveHeader() error {
	buf := make([]byte, headerSize)
	binformat.PutInt32(buf[4:8], int32(m.layout.t))
	binformat.PutInt64(buf[8:16], m.rootOffset)
	binformat.PutInt64(buf[16:24], m.eof)
	buf[24] = byte(m.layout.keyType)
	binformat.PutInt32(buf[25:29], int32(m.layout.keyMaxSize))
	checksum := binformat.Checksum(buf[4:])
	binformat.PutUint32(buf[0:4], checksum)
	if _, err := m.file.WriteAt(buf, 0); err != nil {
		return dberrors.TableWrap("write btree header", err)
	}
	return nil
}

// load reads the node at offset.
func (m *nodeManager) load(offset int64) (node, error) {
	if offset < 0 {
		return node{}, dberrors.Table("attempted to load a null btree node offset")
	}
	buf := make([]byte, m.layout.recordSize())
	if _, err := m.file.ReadAt(buf, offset); err != nil {
		return node{}, dberrors.TableWrap("read btree node", err)
	}
	return m.layout.decode(offset, buf)
}

// save writes n to disk, allocating a new offset at eof if n.offset < 0,
// and returns the (possibly new) offset.
func (m *nodeManager) save(n node) (int64, error) {
	encoded := m.layout.encode(n)
	offset := n.offset
	allocated := offset < 0
	if allocated {
		offset = m.eof
		m.eof += int64(len(encoded))
	}
	if _, err := m.file.WriteAt(encoded, offset); err != nil {
		return 0, dberrors.TableWrap("write btree node", err)
	}
	if allocated {
		if err := m.saveHeader(); err != nil {
			return 0, err
		}
	}
	return offset, nil
}

func (m *nodeManager) close() error { return m.file.Close() }
