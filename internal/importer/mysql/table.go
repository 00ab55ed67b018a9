package mysql

import (
	"strconv"
	"strings"
)

// Table is a MySQL table converted into this engine's model: a name plus
// the ColumnSpecs convertColumn produced for its representable columns.
type Table struct {
	Name    string
	Columns []ColumnSpec
}

// CreateTableStatement renders t as a CREATE TABLE statement in this
// engine's own grammar (§4.3), ready to hand to query/parser.Parse.
func (t Table) CreateTableStatement() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(t.Name)
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(":")
		b.WriteString(c.Type)
		if c.Type == "string" && c.MaxSize > 0 {
			b.WriteString(" MAX_SIZE:")
			b.WriteString(strconv.Itoa(c.MaxSize))
		}
		if c.HasDefault {
			b.WriteString(" DEFAULT:")
			b.WriteString(literalFor(c.Type, c.Default))
		}
		if c.PrimaryKey {
			b.WriteString(" PRIMARY_KEY:TRUE")
		}
	}
	b.WriteString(");")
	return b.String()
}

// literalFor quotes string and date values the way the query grammar
// expects string/date literals (single-quoted); numbers are written bare.
func literalFor(pengoType, value string) string {
	if pengoType == "string" || pengoType == "date" {
		return "'" + value + "'"
	}
	return value
}
