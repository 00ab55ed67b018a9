// Package btree implements the persistent B-tree index: a minimum-degree
// t B-tree whose nodes and duplicate-key pointer lists live in two
// separate files, with fixed-size node records and per-record checksums.
// Grounded on the prototype's data_structures/btree package (btree.py,
// btree_node_manager.py, pointer_list_manager.py), translated from its
// recursive generator style into explicit Go recursion per CLRS 18.1-18.3
// with the duplicate-pointer-list modifications spec.md documents.
package btree

import (
	"bytes"
	"fmt"
	"math"

	"pengobase/internal/binformat"
	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// KeyType tags which fixed encoding a node's key slots use. Number
// columns always key as KeyFloat (float64); every Value.Num the engine
// carries is already a float64 internally regardless of its IsInt tag,
// so this keeps key slots a constant size without a second numeric key
// type (see DESIGN.md Open Question #6).
type KeyType byte

const (
	KeyInt    KeyType = 'I' // reserved; not produced by NewKeyType today
	KeyFloat  KeyType = 'F'
	KeyDate   KeyType = 'D'
	KeyString KeyType = 'S'
)

// NewKeyType derives the on-disk key tag for an index bound to a column
// of the given logical type.
func NewKeyType(t schema.Type) KeyType {
	switch t {
	case schema.Number:
		return KeyFloat
	case schema.DateType:
		return KeyDate
	default:
		return KeyString
	}
}

// KeySize returns the constant number of bytes a key's encoded value
// occupies on disk for this key type, given keyMaxSize (meaningful only
// for KeyString).
func (kt KeyType) KeySize(keyMaxSize int) int {
	switch kt {
	case KeyFloat:
		return 8
	case KeyDate:
		return 10
	case KeyString:
		return keyMaxSize
	default:
		return 8
	}
}

// EncodeKey renders v as this key type's fixed-width byte form. String
// keys are null-padded to keyMaxSize.
func (kt KeyType) EncodeKey(v schema.Value, keyMaxSize int) ([]byte, error) {
	switch kt {
	case KeyFloat:
		buf := make([]byte, 8)
		binformat.PutFloat64(buf, v.Num)
		return buf, nil
	case KeyDate:
		return []byte(v.Date.String()), nil
	case KeyString:
		if len(v.Str) > keyMaxSize {
			return nil, dberrors.Value(fmt.Sprintf("index key %q exceeds key_max_size %d", v.Str, keyMaxSize))
		}
		buf := make([]byte, keyMaxSize)
		copy(buf, v.Str)
		return buf, nil
	default:
		return nil, dberrors.Table("unsupported key type")
	}
}

// DecodeKey parses a fixed-width key slot back into a schema.Value.
func (kt KeyType) DecodeKey(raw []byte) (schema.Value, error) {
	switch kt {
	case KeyFloat:
		return schema.NumberFloat(binformat.Float64(raw)), nil
	case KeyDate:
		d, err := dates.Parse(string(raw))
		if err != nil {
			return schema.Value{}, err
		}
		return schema.NewDate(d), nil
	case KeyString:
		return schema.NewString(string(bytes.TrimRight(raw, "\x00"))), nil
	default:
		return schema.Value{}, dberrors.Table("unsupported key type")
	}
}

// MinValue and MaxValue return the type-specific open-bound defaults used
// by range_search when a bound is omitted (§6.4).
func (kt KeyType) MinValue(keyMaxSize int) schema.Value {
	switch kt {
	case KeyFloat:
		return schema.NumberFloat(negInf)
	case KeyDate:
		return schema.NewDate(dates.Min)
	default:
		return schema.NewString(" ")
	}
}

func (kt KeyType) MaxValue(keyMaxSize int) schema.Value {
	switch kt {
	case KeyFloat:
		return schema.NumberFloat(posInf)
	case KeyDate:
		return schema.NewDate(dates.Max)
	default:
		return schema.NewString(bytesRepeat("~", keyMaxSize))
	}
}

func bytesRepeat(s string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = s[0]
	}
	return string(b)
}
