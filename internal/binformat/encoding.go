package binformat

import (
	"encoding/binary"
	"math"
)

// PutUint32 / Uint32, PutUint64 / Uint64, PutFloat64 / Float64 wrap
// encoding/binary with the little-endian order the spec mandates for every
// on-disk record in the engine, so node offsets, row lengths and numeric
// column values all serialize the same way regardless of which package
// wrote them.

func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }

func PutUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func Uint64(b []byte) uint64       { return binary.LittleEndian.Uint64(b) }

func PutInt64(b []byte, v int64) { binary.LittleEndian.PutUint64(b, uint64(v)) }
func Int64(b []byte) int64       { return int64(binary.LittleEndian.Uint64(b)) }

func PutInt32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }
func Int32(b []byte) int32       { return int32(binary.LittleEndian.Uint32(b)) }

func PutFloat64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }
func Float64(b []byte) float64       { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }

// PutString writes a length-prefixed (uint32) UTF-8 string into b and
// returns the number of bytes written. Callers size the buffer with
// StringSize first.
func PutString(b []byte, s string) int {
	PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return 4 + len(s)
}

// StringSize returns the on-disk size of a length-prefixed string.
func StringSize(s string) int { return 4 + len(s) }

// ReadString reads a length-prefixed string written by PutString and
// returns it along with the number of bytes consumed.
func ReadString(b []byte) (string, int) {
	n := int(Uint32(b))
	return string(b[4 : 4+n]), 4 + n
}
