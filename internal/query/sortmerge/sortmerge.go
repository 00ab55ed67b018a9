// Package sortmerge implements the external k-way merge sort used to
// realize SELECT ... DISTINCT / ORDER BY over arbitrarily large row
// streams. Grounded on the prototype's db_components/merge_sort_handler.py:
// phase 1 buffers rows into chunk_size runs, sorts each in memory with a
// from-scratch recursive merge sort (matching the prototype's own
// mergesort_in_memory/merge_two_lists rather than reaching for
// sort.Slice), and spills each run to a temp file of length-prefixed,
// checksummed row records; phase 2 does a linear-scan k-way merge over
// open run files, optionally dropping consecutive duplicate
// distinct-column tuples.
package sortmerge

import (
	"os"

	"pengobase/internal/binformat"
	"pengobase/internal/dates"
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

// DefaultChunkSize is the run size used when a Config does not override
// it, matching the prototype's default.
const DefaultChunkSize = 1000

// Config describes one sort/distinct request.
type Config struct {
	OrderByCol   string   // empty if no ORDER BY
	HasOrderBy   bool
	Desc         bool
	DistinctCols []string // nil if no DISTINCT
	ChunkSize    int      // 0 -> DefaultChunkSize
}

func (c Config) chunkSize() int {
	if c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

// distinctKey builds the tuple of DISTINCT column values used to detect
// consecutive duplicates during the merge.
func distinctKey(row schema.Row, cfg Config) []schema.Value {
	key := make([]schema.Value, 0, len(cfg.DistinctCols))
	for _, col := range cfg.DistinctCols {
		if v, ok := row.Get(col); ok {
			key = append(key, v)
		}
	}
	return key
}

func keysEqual(a, b []schema.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Compare(b[i]) != 0 {
			return false
		}
	}
	return true
}

// compareRows orders two rows by cfg's composite key, honoring Desc on
// the ORDER BY column per the prototype's compare_rows.
func compareRows(a, b schema.Row, cfg Config) int {
	if cfg.HasOrderBy {
		av, aok := a.Get(cfg.OrderByCol)
		bv, bok := b.Get(cfg.OrderByCol)
		if aok && bok {
			c := av.Compare(bv)
			if c != 0 {
				if cfg.Desc {
					return -c
				}
				return c
			}
		}
	}
	for _, col := range cfg.DistinctCols {
		if col == cfg.OrderByCol {
			continue
		}
		av, aok := a.Get(col)
		bv, bok := b.Get(col)
		if aok && bok {
			if c := av.Compare(bv); c != 0 {
				return c
			}
		}
	}
	return 0
}

// mergeSort is a from-scratch recursive merge sort over rows, ordered by
// compareRows.
func mergeSort(rows []schema.Row, cfg Config) []schema.Row {
	if len(rows) <= 1 {
		return rows
	}
	mid := len(rows) / 2
	left := mergeSort(append([]schema.Row(nil), rows[:mid]...), cfg)
	right := mergeSort(append([]schema.Row(nil), rows[mid:]...), cfg)
	return mergeTwo(left, right, cfg)
}

func mergeTwo(left, right []schema.Row, cfg Config) []schema.Row {
	result := make([]schema.Row, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if compareRows(left[i], right[j], cfg) <= 0 {
			result = append(result, left[i])
			i++
		} else {
			result = append(result, right[j])
			j++
		}
	}
	result = append(result, left[i:]...)
	result = append(result, right[j:]...)
	return result
}

// Run sorts (and optionally de-duplicates) rows according to cfg,
// spilling intermediate chunks under dir and cleaning them up before
// returning. On success, returns the fully ordered row slice.
func Run(dir, tableName string, rows []schema.Row, cfg Config) ([]schema.Row, error) {
	if !cfg.HasOrderBy && len(cfg.DistinctCols) == 0 {
		return rows, nil
	}

	chunkSize := cfg.chunkSize()
	var chunkPaths []string
	defer func() {
		for _, p := range chunkPaths {
			_ = os.Remove(p)
		}
	}()

	var buffer []schema.Row
	for _, row := range rows {
		buffer = append(buffer, row)
		if len(buffer) >= chunkSize {
			path, err := writeChunk(dir, tableName, buffer, cfg)
			if err != nil {
				return nil, err
			}
			chunkPaths = append(chunkPaths, path)
			buffer = nil
		}
	}
	if len(buffer) > 0 {
		path, err := writeChunk(dir, tableName, buffer, cfg)
		if err != nil {
			return nil, err
		}
		chunkPaths = append(chunkPaths, path)
	}

	return mergeRuns(chunkPaths, cfg)
}

func writeChunk(dir, tableName string, rows []schema.Row, cfg Config) (string, error) {
	sorted := mergeSort(rows, cfg)

	f, err := os.CreateTemp(dir, tableName+"_chunk_*.temp")
	if err != nil {
		return "", dberrors.TableWrap("create sort chunk file", err)
	}
	defer f.Close()

	for _, row := range sorted {
		if err := writeRow(f, row); err != nil {
			return "", err
		}
	}
	return f.Name(), nil
}

// run is one open chunk file with its look-ahead buffer.
type run struct {
	f   *os.File
	row *schema.Row
	err error
}

func mergeRuns(chunkPaths []string, cfg Config) ([]schema.Row, error) {
	runs := make([]*run, 0, len(chunkPaths))
	for _, p := range chunkPaths {
		f, err := os.Open(p)
		if err != nil {
			return nil, dberrors.TableWrap("open sort chunk file", err)
		}
		r := &run{f: f}
		r.row, r.err = readRow(f)
		runs = append(runs, r)
	}
	defer func() {
		for _, r := range runs {
			r.f.Close()
		}
	}()

	var out []schema.Row
	var lastDistinct []schema.Value
	haveLast := false

	for {
		chosen := -1
		for i, r := range runs {
			if r.err != nil {
				return nil, r.err
			}
			if r.row == nil {
				continue
			}
			if chosen == -1 || compareRows(*r.row, *runs[chosen].row, cfg) < 0 {
				chosen = i
			}
		}
		if chosen == -1 {
			break
		}

		row := *runs[chosen].row
		if len(cfg.DistinctCols) > 0 {
			key := distinctKey(row, cfg)
			if !haveLast || !keysEqual(key, lastDistinct) {
				out = append(out, row)
				lastDistinct, haveLast = key, true
			}
		} else {
			out = append(out, row)
		}

		runs[chosen].row, runs[chosen].err = readRow(runs[chosen].f)
	}
	return out, nil
}

// --- row record wire format, grounded on merge_sort_handler.py's
// write_row/read_next_row/serialize_row/deserialize_row ---

func writeRow(f *os.File, row schema.Row) error {
	payload := serializeRow(row)
	length := make([]byte, 4)
	binformat.PutInt32(length, int32(len(payload)))
	checksum := binformat.Checksum(append(append([]byte{}, length...), payload...))

	header := make([]byte, 8)
	binformat.PutUint32(header[0:4], checksum)
	copy(header[4:8], length)
	if _, err := f.Write(header); err != nil {
		return dberrors.TableWrap("write sort row header", err)
	}
	if _, err := f.Write(payload); err != nil {
		return dberrors.TableWrap("write sort row payload", err)
	}
	return nil
}

// readRow returns (nil, nil) at a clean end of stream, matching the
// prototype's "short read means end of file, not corruption" contract:
// a short read of the header or of the payload ends the stream. A
// checksum mismatch is a TableError.
func readRow(f *os.File) (*schema.Row, error) {
	header := make([]byte, 8)
	n, err := f.Read(header)
	if n != 8 || err != nil {
		return nil, nil
	}
	checksum := binformat.Uint32(header[0:4])
	length := binformat.Int32(header[4:8])

	payload := make([]byte, length)
	n, err = f.Read(payload)
	if n != int(length) || err != nil {
		return nil, nil
	}

	if !binformat.Verify(append(append([]byte{}, header[4:8]...), payload...), checksum) {
		return nil, dberrors.Table("corrupted file: sort row checksum mismatch")
	}

	row, err := deserializeRow(payload)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func serializeRow(row schema.Row) []byte {
	var buf []byte
	countBuf := make([]byte, 4)
	binformat.PutInt32(countBuf, int32(len(row.Columns)))
	buf = append(buf, countBuf...)

	for i, col := range row.Columns {
		nameBuf := make([]byte, 4)
		binformat.PutInt32(nameBuf, int32(len(col.Name)))
		buf = append(buf, nameBuf...)
		buf = append(buf, []byte(col.Name)...)

		v := row.Values[i]
		switch v.Kind {
		case schema.Number:
			if v.IsInt {
				buf = append(buf, 'I')
				ib := make([]byte, 4)
				binformat.PutInt32(ib, v.Int32())
				buf = append(buf, ib...)
			} else {
				buf = append(buf, 'F')
				fb := make([]byte, 8)
				binformat.PutFloat64(fb, v.Num)
				buf = append(buf, fb...)
			}
		case schema.DateType:
			buf = append(buf, 'D')
			buf = append(buf, []byte(v.Date.String())...) // fixed 10 bytes, "DD.MM.YYYY"
		case schema.String:
			buf = append(buf, 'S')
			lb := make([]byte, 4)
			binformat.PutInt32(lb, int32(len(v.Str)))
			buf = append(buf, lb...)
			buf = append(buf, []byte(v.Str)...)
		}
	}
	return buf
}

func deserializeRow(data []byte) (schema.Row, error) {
	if len(data) < 4 {
		return schema.Row{}, dberrors.Table("corrupted file: sort row too short")
	}
	pos := 0
	count := int(binformat.Int32(data[pos : pos+4]))
	pos += 4

	row := schema.Row{}
	for i := 0; i < count; i++ {
		nameLen := int(binformat.Int32(data[pos : pos+4]))
		pos += 4
		name := string(data[pos : pos+nameLen])
		pos += nameLen

		tag := data[pos]
		pos++

		var v schema.Value
		switch tag {
		case 'I':
			v = schema.NumberInt(binformat.Int32(data[pos : pos+4]))
			pos += 4
		case 'F':
			v = schema.NumberFloat(binformat.Float64(data[pos : pos+8]))
			pos += 8
		case 'D':
			d, err := dates.Parse(string(data[pos : pos+10]))
			if err != nil {
				return schema.Row{}, err
			}
			v = schema.NewDate(d)
			pos += 10
		case 'S':
			strLen := int(binformat.Int32(data[pos : pos+4]))
			pos += 4
			v = schema.NewString(string(data[pos : pos+strLen]))
			pos += strLen
		default:
			return schema.Row{}, dberrors.Table("corrupted file: unknown sort value tag")
		}

		row.Columns = append(row.Columns, schema.NewColumn(name, v.Kind))
		row.Values = append(row.Values, v)
	}
	return row, nil
}
