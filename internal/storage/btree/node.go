package btree

import (
	"pengobase/internal/binformat"
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

// entry is one key slot: the typed key value plus its primary row
// pointer and the head offset of its duplicate-pointer list (-1 if none).
type entry struct {
	value    schema.Value
	primary  int64
	listHead int64
}

// node is the in-memory form of one B-tree node. offset is the node's
// own file position, -1 for an unsaved node.
type node struct {
	offset   int64
	isLeaf   bool
	keys     []entry
	children []int64 // node-file offsets of child nodes; -1 when unused
}

// layout describes the constant shape derived from (t, keyType,
// keyMaxSize), used to compute slot sizes and the node record's total
// constant payload length.
type layout struct {
	t          int
	keyType    KeyType
	keyMaxSize int
}

func (l layout) maxKeys() int     { return 2*l.t - 1 }
func (l layout) maxChildren() int { return 2 * l.t }
func (l layout) keySlotSize() int { return l.keyType.KeySize(l.keyMaxSize) + 16 } // +primary +listHead
func (l layout) payloadSize() int {
	return 1 + 4 + 4 + l.maxKeys()*l.keySlotSize() + l.maxChildren()*8
}
func (l layout) recordSize() int { return 8 + l.payloadSize() } // checksum + length prefix

// encode serializes n into a fixed-size record: [checksum u32][length
// u32][payload], payload padded to this layout's constant shape.
func (l layout) encode(n node) []byte {
	payload := make([]byte, l.payloadSize())
	pos := 0
	if n.isLeaf {
		payload[pos] = 1
	}
	pos++
	binformat.PutInt32(payload[pos:], int32(len(n.keys)))
	pos += 4
	binformat.PutInt32(payload[pos:], int32(len(n.children)))
	pos += 4

	slotSize := l.keySlotSize()
	keySize := l.keyType.KeySize(l.keyMaxSize)
	for i := 0; i < l.maxKeys(); i++ {
		base := pos + i*slotSize
		if i < len(n.keys) {
			kb, _ := l.keyType.EncodeKey(n.keys[i].value, l.keyMaxSize)
			copy(payload[base:base+keySize], kb)
			binformat.PutInt64(payload[base+keySize:base+keySize+8], n.keys[i].primary)
			binformat.PutInt64(payload[base+keySize+8:base+keySize+16], n.keys[i].listHead)
		} else {
			binformat.PutInt64(payload[base+keySize:base+keySize+8], -1)
			binformat.PutInt64(payload[base+keySize+8:base+keySize+16], -1)
		}
	}
	pos += l.maxKeys() * slotSize

	for i := 0; i < l.maxChildren(); i++ {
		base := pos + i*8
		if i < len(n.children) {
			binformat.PutInt64(payload[base:base+8], n.children[i])
		} else {
			binformat.PutInt64(payload[base:base+8], -1)
		}
	}

	out := make([]byte, 8+len(payload))
	binformat.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	checksum := binformat.Checksum(out[4:])
	binformat.PutUint32(out[0:4], checksum)
	return out
}

// decode parses a record previously written by encode, verifying its
// checksum first.
func (l layout) decode(offset int64, data []byte) (node, error) {
	if len(data) < 8 {
		return node{}, dberrors.Table("btree node record too short")
	}
	wantChecksum := binformat.Uint32(data[0:4])
	length := binformat.Uint32(data[4:8])
	if int(length) != l.payloadSize() {
		return node{}, dberrors.Table("btree node payload length mismatch")
	}
	payload := data[8 : 8+length]
	if !binformat.Verify(data[4:8+length], wantChecksum) {
		return node{}, dberrors.Table("btree node checksum mismatch, index is corrupted")
	}

	n := node{offset: offset}
	pos := 0
	n.isLeaf = payload[pos] == 1
	pos++
	keyCount := int(binformat.Int32(payload[pos:]))
	pos += 4
	childCount := int(binformat.Int32(payload[pos:]))
	pos += 4

	slotSize := l.keySlotSize()
	keySize := l.keyType.KeySize(l.keyMaxSize)
	for i := 0; i < keyCount; i++ {
		base := pos + i*slotSize
		v, err := l.keyType.DecodeKey(payload[base : base+keySize])
		if err != nil {
			return node{}, err
		}
		primary := binformat.Int64(payload[base+keySize : base+keySize+8])
		listHead := binformat.Int64(payload[base+keySize+8 : base+keySize+16])
		n.keys = append(n.keys, entry{value: v, primary: primary, listHead: listHead})
	}
	pos += l.maxKeys() * slotSize

	for i := 0; i < childCount; i++ {
		base := pos + i*8
		n.children = append(n.children, binformat.Int64(payload[base:base+8]))
	}

	return n, nil
}
