// Package metadata reads and writes a table's textual metadata file: the
// human-readable header describing schema, row count, the free-slot list,
// first/last record offsets, and the table's secondary indexes. Grounded
// on the prototype's db_components/metadata.py, extended with the
// checksum, Total Lines count, and Indexes section spec.md's richer
// format adds on top of the prototype.
package metadata

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pengobase/internal/binformat"
	"pengobase/internal/dberrors"
	"pengobase/internal/schema"
)

// FreeSlot identifies a reusable (position, length) hole in the data file
// left by a prior delete.
type FreeSlot struct {
	Position int64
	Length   int64
}

func (f FreeSlot) String() string { return fmt.Sprintf("%d|%d", f.Position, f.Length) }

// IndexEntry describes one secondary index bound to a column.
type IndexEntry struct {
	Column     string
	Name       string
	NodesPath  string
	PtrlstPath string
}

// Metadata is the in-memory mirror of a table's .meta file. The table
// handle exclusively owns one of these and flushes it to disk after
// every mutation (per DESIGN.md's Ownership note).
type Metadata struct {
	Title        string
	Columns      []schema.Column
	Rows         int64
	FreeSlots    []FreeSlot
	TableEnd     int64
	FirstOffset  int64
	LastOffset   int64
	Indexes      []IndexEntry
}

// New returns an empty metadata header for a freshly created table.
func New(title string, columns []schema.Column) *Metadata {
	return &Metadata{
		Title:       title,
		Columns:     columns,
		FirstOffset: -1,
		LastOffset:  -1,
	}
}

// Save serializes m to path, computing the Hash line over everything
// from "Total Lines:" onward.
func (m *Metadata) Save(path string) error {
	body := m.bodyLines()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total Lines:%d\n", len(body)))
	for _, line := range body {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	hash := binformat.Checksum([]byte(sb.String()))

	f, err := os.Create(path)
	if err != nil {
		return dberrors.TableWrap("create metadata file", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "Hash:%d\n", hash); err != nil {
		return dberrors.TableWrap("write metadata hash", err)
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return dberrors.TableWrap("write metadata body", err)
	}
	return nil
}

func (m *Metadata) bodyLines() []string {
	lines := []string{
		fmt.Sprintf("Title:%s", m.Title),
		fmt.Sprintf("Total Columns:%d", len(m.Columns)),
		"Columns:",
	}
	for _, c := range m.Columns {
		lines = append(lines, columnLine(c))
	}
	lines = append(lines, fmt.Sprintf("Rows:%d", m.Rows))

	slotParts := make([]string, len(m.FreeSlots))
	for i, s := range m.FreeSlots {
		slotParts[i] = s.String()
	}
	lines = append(lines, "Free Slots:"+strings.Join(slotParts, ","))
	lines = append(lines, fmt.Sprintf("Table End:%d", m.TableEnd))
	lines = append(lines, fmt.Sprintf("Offsets:%d|%d", m.FirstOffset, m.LastOffset))
	lines = append(lines, fmt.Sprintf("Indexes:%d", len(m.Indexes)))
	for _, idx := range m.Indexes {
		lines = append(lines, fmt.Sprintf("%s|%s|%s|%s", idx.Column, idx.Name, idx.NodesPath, idx.PtrlstPath))
	}
	return lines
}

func columnLine(c schema.Column) string {
	parts := []string{c.Name, c.Type.String()}
	if c.HasDefault {
		parts = append(parts, "DEFAULT:"+c.Default.String())
	}
	parts = append(parts, fmt.Sprintf("MAX_SIZE:%d", c.MaxSize))
	if c.IsPrimaryKey {
		parts = append(parts, "PRIMARY_KEY:TRUE")
	}
	return strings.Join(parts, "|")
}

// Load reads and validates a metadata file, returning a TableError if the
// checksum does not match or the file is structurally malformed.
func Load(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberrors.TableWrap("open metadata file", err)
	}
	defer f.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dberrors.TableWrap("read metadata file", err)
	}

	nl := strings.IndexByte(string(raw), '\n')
	if nl < 0 || !strings.HasPrefix(string(raw), "Hash:") {
		return nil, dberrors.Table("metadata file missing Hash header")
	}
	hashLine := string(raw[:nl])
	body := raw[nl+1:]

	wantHash, err := strconv.ParseUint(strings.TrimPrefix(hashLine, "Hash:"), 10, 32)
	if err != nil {
		return nil, dberrors.Table("metadata Hash header is not a number")
	}
	if !binformat.Verify(body, uint32(wantHash)) {
		return nil, dberrors.Table("metadata checksum mismatch, file is corrupted")
	}

	return parseBody(body)
}

func parseBody(body []byte) (*Metadata, error) {
	sc := bufio.NewScanner(strings.NewReader(string(body)))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	line, ok := next()
	if !ok || !strings.HasPrefix(line, "Total Lines:") {
		return nil, dberrors.Table("metadata missing Total Lines")
	}

	m := &Metadata{}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Title:") {
		return nil, dberrors.Table("metadata missing Title")
	}
	m.Title = strings.TrimPrefix(line, "Title:")

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Total Columns:") {
		return nil, dberrors.Table("metadata missing Total Columns")
	}
	colCount, err := strconv.Atoi(strings.TrimPrefix(line, "Total Columns:"))
	if err != nil {
		return nil, dberrors.Table("metadata Total Columns is not a number")
	}

	line, ok = next()
	if !ok || line != "Columns:" {
		return nil, dberrors.Table("metadata missing Columns: section")
	}
	for i := 0; i < colCount; i++ {
		line, ok = next()
		if !ok {
			return nil, dberrors.Table("metadata truncated in Columns section")
		}
		col, err := parseColumnLine(line)
		if err != nil {
			return nil, err
		}
		m.Columns = append(m.Columns, col)
	}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Rows:") {
		return nil, dberrors.Table("metadata missing Rows")
	}
	m.Rows, err = strconv.ParseInt(strings.TrimPrefix(line, "Rows:"), 10, 64)
	if err != nil {
		return nil, dberrors.Table("metadata Rows is not a number")
	}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Free Slots:") {
		return nil, dberrors.Table("metadata missing Free Slots")
	}
	slotsRaw := strings.TrimPrefix(line, "Free Slots:")
	if slotsRaw != "" {
		for _, part := range strings.Split(slotsRaw, ",") {
			fs, err := parseFreeSlot(part)
			if err != nil {
				return nil, err
			}
			m.FreeSlots = append(m.FreeSlots, fs)
		}
	}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Table End:") {
		return nil, dberrors.Table("metadata missing Table End")
	}
	m.TableEnd, err = strconv.ParseInt(strings.TrimPrefix(line, "Table End:"), 10, 64)
	if err != nil {
		return nil, dberrors.Table("metadata Table End is not a number")
	}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Offsets:") {
		return nil, dberrors.Table("metadata missing Offsets")
	}
	offParts := strings.SplitN(strings.TrimPrefix(line, "Offsets:"), "|", 2)
	if len(offParts) != 2 {
		return nil, dberrors.Table("metadata Offsets malformed")
	}
	m.FirstOffset, err = strconv.ParseInt(offParts[0], 10, 64)
	if err != nil {
		return nil, dberrors.Table("metadata first offset is not a number")
	}
	m.LastOffset, err = strconv.ParseInt(offParts[1], 10, 64)
	if err != nil {
		return nil, dberrors.Table("metadata last offset is not a number")
	}

	line, ok = next()
	if !ok || !strings.HasPrefix(line, "Indexes:") {
		return nil, dberrors.Table("metadata missing Indexes")
	}
	idxCount, err := strconv.Atoi(strings.TrimPrefix(line, "Indexes:"))
	if err != nil {
		return nil, dberrors.Table("metadata Indexes count is not a number")
	}
	for i := 0; i < idxCount; i++ {
		line, ok = next()
		if !ok {
			return nil, dberrors.Table("metadata truncated in Indexes section")
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			return nil, dberrors.Table("metadata index line malformed: " + line)
		}
		m.Indexes = append(m.Indexes, IndexEntry{Column: parts[0], Name: parts[1], NodesPath: parts[2], PtrlstPath: parts[3]})
	}

	return m, nil
}

func parseFreeSlot(s string) (FreeSlot, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return FreeSlot{}, dberrors.Table("free slot entry malformed: " + s)
	}
	pos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return FreeSlot{}, dberrors.Table("free slot position not a number: " + s)
	}
	length, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return FreeSlot{}, dberrors.Table("free slot length not a number: " + s)
	}
	return FreeSlot{Position: pos, Length: length}, nil
}

func parseColumnLine(line string) (schema.Column, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return schema.Column{}, dberrors.Table("column line malformed: " + line)
	}
	typ, err := schema.ParseType(parts[1])
	if err != nil {
		return schema.Column{}, err
	}
	col := schema.NewColumn(parts[0], typ)
	for _, extra := range parts[2:] {
		kv := strings.SplitN(extra, ":", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "MAX_SIZE":
			n, err := strconv.Atoi(kv[1])
			if err != nil {
				return schema.Column{}, dberrors.Table("MAX_SIZE not a number: " + extra)
			}
			col, err = col.WithMaxSize(n)
			if err != nil {
				return schema.Column{}, err
			}
		case "DEFAULT":
			v, err := schema.ParseLiteral(typ, kv[1])
			if err != nil {
				return schema.Column{}, err
			}
			col, err = col.WithDefault(v)
			if err != nil {
				return schema.Column{}, err
			}
		case "PRIMARY_KEY":
			col.IsPrimaryKey = kv[1] == "TRUE"
		}
	}
	return col, nil
}
