// Package binformat holds the fixed-width binary encoding and checksum
// helpers shared by the heap table, the B-tree node/pointer-list managers,
// and the external merge sort's spill files. Every on-disk record in the
// engine is prefixed by a checksum produced by Checksum below.
package binformat

const (
	hashBase uint64 = 257
	hashMod  uint64 = 1 << 32
)

// Checksum computes the polynomial rolling hash used as the corruption
// check prefixing every on-disk record (table node, B-tree node, B-tree
// header, pointer-list entry, merge-sort spill row). It is the sole
// corruption defense the engine provides; a mismatch on read means the
// record is treated as corrupted rather than silently trusted.
func Checksum(data []byte) uint32 {
	var h uint64
	for _, b := range data {
		h = (h*hashBase + uint64(b)) % hashMod
	}
	return uint32(h)
}

// Verify reports whether want matches the checksum of data.
func Verify(data []byte, want uint32) bool {
	return Checksum(data) == want
}
