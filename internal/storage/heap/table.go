package heap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"pengobase/internal/dberrors"
	"pengobase/internal/dsutil"
	"pengobase/internal/schema"
	"pengobase/internal/storage/index"
	"pengobase/internal/storage/metadata"
)

const noOffset int32 = -1

// IndexBinding is the subset of storage/index.TableIndex's behavior the
// heap table needs in order to keep secondary indexes in sync with
// inserts and deletes, without heap depending on the B-tree internals
// directly.
type IndexBinding interface {
	Column() string
	Insert(key schema.Value, position int64) error
	Delete(key schema.Value, position int64) error
	Close() error
}

// Table is the heap table handle: it exclusively owns the metadata in
// memory and flushes it to disk after every mutation (DESIGN.md
// Ownership note). Indexes are driven by the table; they hold no
// back-reference to it.
type Table struct {
	name     string
	dir      string
	dataPath string
	metaPath string
	meta     *metadata.Metadata
	data     *os.File
	indexes  map[string]IndexBinding
	log      *zap.SugaredLogger
}

func paths(dir, name string) (dataPath, metaPath string) {
	return filepath.Join(dir, name+".data"), filepath.Join(dir, name+".meta")
}

// Create makes a new, empty table directory and files for the given
// schema.
func Create(rootDir, name string, columns []schema.Column, log *zap.SugaredLogger) (*Table, error) {
	dir := filepath.Join(rootDir, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, dberrors.Table(fmt.Sprintf("table %q already exists", name))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberrors.TableWrap("create table directory", err)
	}

	dataPath, metaPath := paths(dir, name)
	data, err := os.Create(dataPath)
	if err != nil {
		return nil, dberrors.TableWrap("create data file", err)
	}

	m := metadata.New(name, columns)
	if err := m.Save(metaPath); err != nil {
		data.Close()
		return nil, err
	}

	log.Infow("created table", "table", name, "columns", len(columns))
	return &Table{
		name: name, dir: dir, dataPath: dataPath, metaPath: metaPath,
		meta: m, data: data, indexes: map[string]IndexBinding{}, log: log,
	}, nil
}

// Open loads an existing table's metadata and data file, and re-opens
// every secondary index recorded in the metadata.
func Open(rootDir, name string, log *zap.SugaredLogger) (*Table, error) {
	dir := filepath.Join(rootDir, name)
	dataPath, metaPath := paths(dir, name)

	m, err := metadata.Load(metaPath)
	if err != nil {
		return nil, err
	}
	data, err := os.OpenFile(dataPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, dberrors.TableWrap("open data file", err)
	}

	t := &Table{
		name: name, dir: dir, dataPath: dataPath, metaPath: metaPath,
		meta: m, data: data, indexes: map[string]IndexBinding{}, log: log,
	}

	for _, entry := range m.Indexes {
		idx, err := index.Open(entry.Name, entry.Column, entry.NodesPath, entry.PtrlstPath)
		if err != nil {
			data.Close()
			return nil, err
		}
		t.indexes[entry.Column] = idx
	}

	log.Infow("opened table", "table", name, "rows", m.Rows, "indexes", len(t.indexes))
	return t, nil
}

// Close releases the table's file handles and its indexes'.
func (t *Table) Close() error {
	for _, idx := range t.indexes {
		_ = idx.Close()
	}
	return t.data.Close()
}

// Drop closes the table and removes its entire directory, including all
// index files.
func (t *Table) Drop() error {
	_ = t.Close()
	if err := os.RemoveAll(t.dir); err != nil {
		return dberrors.TableWrap("drop table", err)
	}
	return nil
}

// Columns returns the table's declared schema, in declaration order.
func (t *Table) Columns() []schema.Column { return t.meta.Columns }

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// RowCount returns the current number of live rows.
func (t *Table) RowCount() int64 { return t.meta.Rows }

// DataSize returns the current size in bytes of the table's data file,
// for TABLEINFO's size reporting (mirrors the prototype's
// os.path.getsize(data_path) call).
func (t *Table) DataSize() int64 { return t.meta.TableEnd }

// HasIndex reports whether column has a secondary index.
func (t *Table) HasIndex(column string) bool {
	_, ok := t.indexes[column]
	return ok
}

// Index returns the binding for column, if indexed.
func (t *Table) Index(column string) (IndexBinding, bool) {
	b, ok := t.indexes[column]
	return b, ok
}

// IndexEntries returns the table's secondary indexes as recorded in
// metadata, for TABLEINFO and for resolving an index name (DROP INDEX
// only names the index, not its column) back to its bound column.
func (t *Table) IndexEntries() []metadata.IndexEntry {
	return append([]metadata.IndexEntry(nil), t.meta.Indexes...)
}

// ColumnForIndex resolves an index name to the column it is bound to.
func (t *Table) ColumnForIndex(indexName string) (string, bool) {
	for _, entry := range t.meta.Indexes {
		if entry.Name == indexName {
			return entry.Column, true
		}
	}
	return "", false
}

// BuildRow resolves a partial column/value assignment (as supplied by an
// INSERT statement) into a full Row in declared-column order, applying
// DEFAULT where a column was omitted and failing with a TableError for
// any mandatory column left unresolved.
func (t *Table) BuildRow(names []string, values []schema.Value) (schema.Row, error) {
	if len(names) != len(values) {
		return schema.Row{}, dberrors.Parse("column and value counts do not match")
	}
	provided := make(map[string]schema.Value, len(names))
	for i, n := range names {
		provided[n] = values[i]
	}

	row := schema.Row{Columns: t.meta.Columns, Values: make([]schema.Value, len(t.meta.Columns))}
	for i, col := range t.meta.Columns {
		v, has := provided[col.Name]
		var resolved schema.Value
		var err error
		if has {
			if err := col.Validate(v); err != nil {
				return schema.Row{}, err
			}
			resolved = v
		} else {
			resolved, err = col.ResolveMandatory(nil)
			if err != nil {
				return schema.Row{}, err
			}
		}
		row.Values[i] = resolved
	}
	return row, nil
}

// Insert appends row to the table, reusing a free slot if one is large
// enough, and maintains every secondary index. Metadata is persisted
// after this call returns successfully.
func (t *Table) Insert(row schema.Row) (int64, error) {
	n := node{prev: noOffset, next: noOffset, row: row}
	encoded := serializeNode(n)
	size := len(encoded)

	offset, reused := t.claimFreeSlot(size)
	if !reused {
		offset = t.meta.TableEnd
	}

	n.prev = int32(t.meta.LastOffset)
	encoded = serializeNode(n)

	if err := t.writeAt(offset, encoded); err != nil {
		return 0, err
	}

	if t.meta.LastOffset >= 0 {
		if err := t.rewriteNext(t.meta.LastOffset, int32(offset)); err != nil {
			return 0, err
		}
	}
	if t.meta.FirstOffset < 0 {
		t.meta.FirstOffset = offset
	}
	t.meta.LastOffset = offset
	if !reused {
		t.meta.TableEnd = offset + int64(size)
	}
	t.meta.Rows++

	for col, idx := range t.indexes {
		if v, ok := row.Get(col); ok {
			if err := idx.Insert(v, offset); err != nil {
				return 0, err
			}
		}
	}

	if err := t.meta.Save(t.metaPath); err != nil {
		return 0, err
	}
	return offset, nil
}

func (t *Table) claimFreeSlot(size int) (offset int64, reused bool) {
	for i, fs := range t.meta.FreeSlots {
		if fs.Length >= int64(size) {
			t.meta.FreeSlots = append(t.meta.FreeSlots[:i], t.meta.FreeSlots[i+1:]...)
			return fs.Position, true
		}
	}
	return 0, false
}

func (t *Table) writeAt(offset int64, data []byte) error {
	if _, err := t.data.WriteAt(data, offset); err != nil {
		return dberrors.TableWrap("write table node", err)
	}
	return nil
}

func (t *Table) readNodeAt(offset int64, size int) (node, []byte, error) {
	buf := make([]byte, size)
	if _, err := t.data.ReadAt(buf, offset); err != nil {
		return node{}, nil, dberrors.TableWrap("read table node", err)
	}
	n, err := deserializeNode(t.meta.Columns, buf)
	return n, buf, err
}

// readNodeSizedAt reads just enough to learn the row length so callers
// can then read the full record; it re-reads from the start since the
// checksum covers the whole record.
func (t *Table) readNodeSizedAt(offset int64) (node, int, error) {
	head := make([]byte, 16)
	if _, err := t.data.ReadAt(head, offset); err != nil {
		return node{}, 0, dberrors.TableWrap("read table node header", err)
	}
	rowLen := int(int32FromLE(head[12:16]))
	size := 16 + rowLen
	n, _, err := t.readNodeAt(offset, size)
	return n, size, err
}

func int32FromLE(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

// rewriteNext rewrites only the `next` pointer of the node at offset,
// in place, since changing a pointer field never changes record size.
func (t *Table) rewriteNext(offset int64, next int32) error {
	n, size, err := t.readNodeSizedAt(offset)
	if err != nil {
		return err
	}
	n.next = next
	return t.writeAt(offset, serializeNode(n)[:size])
}

// rewritePrev rewrites only the `prev` pointer of the node at offset.
func (t *Table) rewritePrev(offset int64, prev int32) error {
	n, size, err := t.readNodeSizedAt(offset)
	if err != nil {
		return err
	}
	n.prev = prev
	return t.writeAt(offset, serializeNode(n)[:size])
}

// GetRows returns the rows at the given 1-based row numbers, in
// ascending row-number order, by walking the doubly-linked list once.
// An out-of-range row number fails the whole call with OutOfRange.
func (t *Table) GetRows(rowNumbers []int64) ([]schema.Row, error) {
	queue := dsutil.FromSortedInt64s(rowNumbers)
	var out []schema.Row
	err := t.walk(func(rowNum int64, offset int64, n node) (remove bool, stop bool, err error) {
		head, ok := queue.Peek()
		if !ok {
			return false, true, nil
		}
		if rowNum == head {
			out = append(out, n.row)
			queue.Dequeue()
		}
		return false, false, nil
	})
	if err != nil {
		return nil, err
	}
	if queue.Len() > 0 {
		return nil, dberrors.OutOfRange("row number past end of table")
	}
	return out, nil
}

// DeleteRows deletes the rows at the given 1-based row numbers.
func (t *Table) DeleteRows(rowNumbers []int64) error {
	queue := dsutil.FromSortedInt64s(rowNumbers)
	var toDelete []int64
	err := t.walk(func(rowNum int64, offset int64, n node) (remove bool, stop bool, err error) {
		head, ok := queue.Peek()
		if !ok {
			return false, true, nil
		}
		if rowNum == head {
			toDelete = append(toDelete, offset)
			queue.Dequeue()
		}
		return false, false, nil
	})
	if err != nil {
		return err
	}
	if queue.Len() > 0 {
		return dberrors.OutOfRange("row number past end of table")
	}
	for _, offset := range toDelete {
		if err := t.deleteAt(offset); err != nil {
			return err
		}
	}
	return t.meta.Save(t.metaPath)
}

// DeleteFiltered deletes every row for which keep returns false, used by
// DELETE ... WHERE, which evaluates its expression inside keep during
// this full scan.
func (t *Table) DeleteFiltered(keep func(schema.Row) bool) (int64, error) {
	var toDelete []int64
	err := t.walk(func(rowNum int64, offset int64, n node) (remove bool, stop bool, err error) {
		if !keep(n.row) {
			toDelete = append(toDelete, offset)
		}
		return false, false, nil
	})
	if err != nil {
		return 0, err
	}
	for _, offset := range toDelete {
		if err := t.deleteAt(offset); err != nil {
			return 0, err
		}
	}
	if err := t.meta.Save(t.metaPath); err != nil {
		return 0, err
	}
	return int64(len(toDelete)), nil
}

// deleteAt removes a single node: re-links neighbors, appends a free
// slot, decrements the row count, and removes the row from every
// secondary index.
func (t *Table) deleteAt(offset int64) error {
	n, size, err := t.readNodeSizedAt(offset)
	if err != nil {
		return err
	}

	if n.prev == noOffset {
		t.meta.FirstOffset = int64(n.next)
	} else {
		if err := t.rewriteNext(int64(n.prev), n.next); err != nil {
			return err
		}
	}
	if n.next == noOffset {
		t.meta.LastOffset = int64(n.prev)
	} else {
		if err := t.rewritePrev(int64(n.next), n.prev); err != nil {
			return err
		}
	}

	t.meta.FreeSlots = append(t.meta.FreeSlots, metadata.FreeSlot{Position: offset, Length: int64(size)})
	t.meta.Rows--

	for col, idx := range t.indexes {
		if v, ok := n.row.Get(col); ok {
			if err := idx.Delete(v, offset); err != nil {
				return err
			}
		}
	}
	return nil
}

// walk traverses the linked list from FirstOffset, invoking visit with
// the 1-based row number and byte offset of each live node in order.
// visit's remove return value is currently unused by callers (deletion
// is batched after a full walk to keep traversal and mutation separate)
// but is part of the walker's contract for future in-place callers.
func (t *Table) walk(visit func(rowNum int64, offset int64, n node) (remove, stop bool, err error)) error {
	offset := t.meta.FirstOffset
	rowNum := int64(1)
	for offset >= 0 {
		n, size, err := t.readNodeSizedAt(offset)
		if err != nil {
			return err
		}
		_, stop, err := visit(rowNum, offset, n)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		offset = int64(n.next)
		rowNum++
		_ = size
	}
	return nil
}

// IterateAll returns every live row in table order, for full_scan and
// the merge-sort's input stream.
func (t *Table) IterateAll() ([]schema.Row, error) {
	var out []schema.Row
	err := t.walk(func(rowNum int64, offset int64, n node) (bool, bool, error) {
		out = append(out, n.row)
		return false, false, nil
	})
	return out, err
}

// Select returns the rows selected by the offsets slice, in the order
// given, as produced by the query planner's index lookups.
func (t *Table) Select(offsets []int64) ([]schema.Row, error) {
	sorted := append([]int64(nil), offsets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	byOffset := make(map[int64]schema.Row, len(sorted))
	for _, offset := range sorted {
		n, _, err := t.readNodeSizedAt(offset)
		if err != nil {
			return nil, err
		}
		byOffset[offset] = n.row
	}
	out := make([]schema.Row, len(offsets))
	for i, offset := range offsets {
		out[i] = byOffset[offset]
	}
	return out, nil
}

// CreateIndex builds a new secondary index over column and backfills it
// from every live row, recording the index in metadata so a later Open
// reopens it automatically.
func (t *Table) CreateIndex(name, column string) error {
	if t.HasIndex(column) {
		return dberrors.Table(fmt.Sprintf("column %q is already indexed", column))
	}
	var col schema.Column
	found := false
	for _, c := range t.meta.Columns {
		if c.Name == column {
			col, found = c, true
			break
		}
	}
	if !found {
		return dberrors.Parse("unknown column " + column)
	}

	idx, err := index.Create(t.dir, name, column, col, index.DefaultDegree)
	if err != nil {
		return err
	}

	err = t.walk(func(rowNum int64, offset int64, n node) (remove, stop bool, err error) {
		if v, ok := n.row.Get(column); ok {
			if err := idx.Insert(v, offset); err != nil {
				return false, true, err
			}
		}
		return false, false, nil
	})
	if err != nil {
		_ = idx.Drop()
		return err
	}

	t.indexes[column] = idx
	t.meta.Indexes = append(t.meta.Indexes, metadata.IndexEntry{
		Column: column, Name: name, NodesPath: idx.NodesPath(), PtrlstPath: idx.PtrlstPath(),
	})
	if err := t.meta.Save(t.metaPath); err != nil {
		return err
	}
	t.log.Infow("created index", "table", t.name, "column", column, "index", name)
	return nil
}

// DropIndex removes the secondary index on column, if one exists.
func (t *Table) DropIndex(column string) error {
	idx, ok := t.indexes[column]
	if !ok {
		return dberrors.Table(fmt.Sprintf("column %q has no index", column))
	}
	ti, ok := idx.(*index.TableIndex)
	if !ok {
		return dberrors.Table("index binding is not a B-tree index")
	}
	if err := ti.Drop(); err != nil {
		return err
	}
	delete(t.indexes, column)

	for i, entry := range t.meta.Indexes {
		if entry.Column == column {
			t.meta.Indexes = append(t.meta.Indexes[:i], t.meta.Indexes[i+1:]...)
			break
		}
	}
	if err := t.meta.Save(t.metaPath); err != nil {
		return err
	}
	t.log.Infow("dropped index", "table", t.name, "column", column)
	return nil
}

// Defragment rewrites the data file compactly (dropping free-slot
// fragmentation) and rebuilds every secondary index against the new
// offsets.
func (t *Table) Defragment() error {
	rows, err := t.IterateAll()
	if err != nil {
		return err
	}

	newPath := t.dataPath + ".defrag"
	newFile, err := os.Create(newPath)
	if err != nil {
		return dberrors.TableWrap("create defragment file", err)
	}

	offsets := make([]int64, len(rows))
	var cursor int64
	for i, row := range rows {
		prev := int32(noOffset)
		if i > 0 {
			prev = int32(offsets[i-1])
		}
		n := node{prev: prev, next: noOffset, row: row}
		encoded := serializeNode(n)
		offsets[i] = cursor
		if _, err := newFile.WriteAt(encoded, cursor); err != nil {
			newFile.Close()
			return dberrors.TableWrap("write defragmented node", err)
		}
		cursor += int64(len(encoded))
	}
	for i := 0; i < len(rows)-1; i++ {
		if err := rewriteNextIn(newFile, t.meta.Columns, offsets[i], int32(offsets[i+1])); err != nil {
			newFile.Close()
			return err
		}
	}
	newFile.Close()

	t.data.Close()
	if err := os.Rename(newPath, t.dataPath); err != nil {
		return dberrors.TableWrap("replace data file with defragmented copy", err)
	}
	data, err := os.OpenFile(t.dataPath, os.O_RDWR, 0o644)
	if err != nil {
		return dberrors.TableWrap("reopen defragmented data file", err)
	}
	t.data = data

	t.meta.FreeSlots = nil
	t.meta.TableEnd = cursor
	if len(offsets) == 0 {
		t.meta.FirstOffset, t.meta.LastOffset = -1, -1
	} else {
		t.meta.FirstOffset = offsets[0]
		t.meta.LastOffset = offsets[len(offsets)-1]
	}

	for _, idx := range t.indexes {
		if err := idx.(*index.TableIndex).Reset(); err != nil {
			return err
		}
	}
	for i, row := range rows {
		for col, idx := range t.indexes {
			if v, ok := row.Get(col); ok {
				if err := idx.Insert(v, offsets[i]); err != nil {
					return err
				}
			}
		}
	}

	t.log.Infow("defragmented table", "table", t.name, "rows", len(rows))
	return t.meta.Save(t.metaPath)
}

func rewriteNextIn(f *os.File, columns []schema.Column, offset int64, next int32) error {
	head := make([]byte, 16)
	if _, err := f.ReadAt(head, offset); err != nil {
		return dberrors.TableWrap("read defragmented node header", err)
	}
	rowLen := int(int32FromLE(head[12:16]))
	buf := make([]byte, 16+rowLen)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return dberrors.TableWrap("read defragmented node", err)
	}
	n, err := deserializeNode(columns, buf)
	if err != nil {
		return err
	}
	n.next = next
	encoded := serializeNode(n)
	if _, err := f.WriteAt(encoded, offset); err != nil {
		return dberrors.TableWrap("write defragmented node pointer", err)
	}
	return nil
}
