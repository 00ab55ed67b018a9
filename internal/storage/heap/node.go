// Package heap implements the heap table: a doubly-linked list of
// variable-length row records in a single data file with a companion
// metadata file, free-slot reuse, defragmentation and per-node
// checksums. Grounded on the prototype's db_components/table.py,
// extended with the checksums, index maintenance and defragment that
// spec.md requires but the prototype's older table.py lacks.
package heap

import (
	"pengobase/internal/binformat"
	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

func parseDateBytes(b []byte) (dates.Date, error) {
	return dates.Parse(string(b))
}

// node is one on-disk record: the doubly-linked pointers plus its row
// payload. -1 marks "no neighbor" for prev/next, matching the offset
// convention used throughout the B-tree and pointer-list files too.
type node struct {
	prev int32
	next int32
	row  schema.Row
}

// serializeRow encodes a row's values in declared column order:
//   - number:  'I' + int32 LE, or 'F' + float64 LE, chosen per value
//   - string:  int32 LE byte length + UTF-8 bytes
//   - date:    exactly 10 ASCII bytes "DD.MM.YYYY"
func serializeRow(row schema.Row) []byte {
	var out []byte
	for _, v := range row.Values {
		switch v.Kind {
		case schema.Number:
			tag := byte('F')
			buf := make([]byte, 9)
			if v.IsInt {
				tag = 'I'
				buf = make([]byte, 5)
				binformat.PutInt32(buf[1:], v.Int32())
			} else {
				binformat.PutFloat64(buf[1:], v.Num)
			}
			buf[0] = tag
			out = append(out, buf...)
		case schema.String:
			buf := make([]byte, 4+len(v.Str))
			binformat.PutInt32(buf[:4], int32(len(v.Str)))
			copy(buf[4:], v.Str)
			out = append(out, buf...)
		case schema.DateType:
			out = append(out, []byte(v.Date.String())...)
		}
	}
	return out
}

// deserializeRow decodes row bytes against the declared column schema,
// producing typed values in the same order.
func deserializeRow(columns []schema.Column, data []byte) (schema.Row, error) {
	row := schema.Row{Columns: columns, Values: make([]schema.Value, len(columns))}
	pos := 0
	for i, col := range columns {
		switch col.Type {
		case schema.Number:
			if pos+1 > len(data) {
				return schema.Row{}, dberrors.Table("row data truncated reading number tag")
			}
			tag := data[pos]
			pos++
			switch tag {
			case 'I':
				if pos+4 > len(data) {
					return schema.Row{}, dberrors.Table("row data truncated reading int32")
				}
				row.Values[i] = schema.NumberInt(binformat.Int32(data[pos : pos+4]))
				pos += 4
			case 'F':
				if pos+8 > len(data) {
					return schema.Row{}, dberrors.Table("row data truncated reading float64")
				}
				row.Values[i] = schema.NumberFloat(binformat.Float64(data[pos : pos+8]))
				pos += 8
			default:
				return schema.Row{}, dberrors.Table("unknown number tag in row data")
			}
		case schema.String:
			if pos+4 > len(data) {
				return schema.Row{}, dberrors.Table("row data truncated reading string length")
			}
			n := int(binformat.Int32(data[pos : pos+4]))
			pos += 4
			if pos+n > len(data) {
				return schema.Row{}, dberrors.Table("row data truncated reading string bytes")
			}
			row.Values[i] = schema.NewString(string(data[pos : pos+n]))
			pos += n
		case schema.DateType:
			if pos+10 > len(data) {
				return schema.Row{}, dberrors.Table("row data truncated reading date bytes")
			}
			d, err := parseDateBytes(data[pos : pos+10])
			if err != nil {
				return schema.Row{}, err
			}
			row.Values[i] = schema.NewDate(d)
			pos += 10
		}
	}
	return row, nil
}

// serializeNode produces the full on-disk record: checksum, prev, next,
// row length, row bytes.
func serializeNode(n node) []byte {
	payload := serializeRow(n.row)
	header := make([]byte, 12)
	binformat.PutInt32(header[0:4], n.prev)
	binformat.PutInt32(header[4:8], n.next)
	binformat.PutInt32(header[8:12], int32(len(payload)))

	rest := append(header, payload...)
	checksum := binformat.Checksum(rest)

	out := make([]byte, 4+len(rest))
	binformat.PutUint32(out[:4], checksum)
	copy(out[4:], rest)
	return out
}

// deserializeNode parses a full on-disk record previously written by
// serializeNode, verifying the checksum first.
func deserializeNode(columns []schema.Column, data []byte) (node, error) {
	if len(data) < 16 {
		return node{}, dberrors.Table("node record too short")
	}
	wantChecksum := binformat.Uint32(data[0:4])
	rest := data[4:]
	if !binformat.Verify(rest, wantChecksum) {
		return node{}, dberrors.Table("node checksum mismatch, record is corrupted")
	}

	prev := binformat.Int32(rest[0:4])
	next := binformat.Int32(rest[4:8])
	rowLen := binformat.Int32(rest[8:12])
	payload := rest[12:]
	if int32(len(payload)) != rowLen {
		return node{}, dberrors.Table("node row length mismatch")
	}

	row, err := deserializeRow(columns, payload)
	if err != nil {
		return node{}, err
	}
	return node{prev: prev, next: next, row: row}, nil
}

// recordSize returns the on-disk size (including the checksum prefix) of
// a node carrying the given row, without actually serializing it.
func recordSize(row schema.Row) int {
	return 4 + 12 + len(serializeRow(row))
}
