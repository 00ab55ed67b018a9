package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"pengobase/internal/catalog"
	"pengobase/internal/query/exec"
	"pengobase/internal/query/parser"
)

// Importer connects to a live MySQL instance to introspect its schema
// and export its rows, as an alternative to parsing an offline dump
// file. Mirrors the teacher's Applier: open-and-ping on Connect, a
// single *sql.DB held for the Importer's lifetime, closed by Close.
type Importer struct {
	db *sql.DB
}

// Connect opens a connection to dsn and verifies it is reachable.
func (im *Importer) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql: open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("mysql: ping: %w", err)
	}
	im.db = db
	return nil
}

// Close closes the underlying connection, if one was opened.
func (im *Importer) Close() error {
	if im.db == nil {
		return nil
	}
	return im.db.Close()
}

type liveColumn struct {
	name       string
	dataType   string
	charMaxLen sql.NullInt64
	colKey     string
}

// IntrospectSchema reads every table in schemaName from
// information_schema and converts its columns the same way ParseDump
// converts a dump's CREATE TABLE, so both import paths share one
// column-mapping policy.
func (im *Importer) IntrospectSchema(ctx context.Context, schemaName string) ([]Table, []string, error) {
	tableNames, err := im.listTables(ctx, schemaName)
	if err != nil {
		return nil, nil, err
	}

	var tables []Table
	var warnings []string
	for _, name := range tableNames {
		cols, err := im.listColumns(ctx, schemaName, name)
		if err != nil {
			return nil, nil, err
		}
		table := Table{Name: name}
		for _, c := range cols {
			spec, ok := convertInformationSchemaColumn(c)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%s.%s: unsupported type %q, column dropped", name, c.name, c.dataType))
				continue
			}
			table.Columns = append(table.Columns, spec)
		}
		if len(table.Columns) == 0 {
			warnings = append(warnings, fmt.Sprintf("table %s has no representable columns, skipped", name))
			continue
		}
		tables = append(tables, table)
	}
	return tables, warnings, nil
}

func (im *Importer) listTables(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := im.db.QueryContext(ctx,
		`SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("mysql: list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("mysql: scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (im *Importer) listColumns(ctx context.Context, schemaName, tableName string) ([]liveColumn, error) {
	rows, err := im.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("mysql: list columns for %s: %w", tableName, err)
	}
	defer rows.Close()

	var cols []liveColumn
	for rows.Next() {
		var c liveColumn
		if err := rows.Scan(&c.name, &c.dataType, &c.charMaxLen, &c.colKey); err != nil {
			return nil, fmt.Errorf("mysql: scan column of %s: %w", tableName, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func convertInformationSchemaColumn(c liveColumn) (ColumnSpec, bool) {
	raw := strings.ToLower(c.dataType)
	spec := ColumnSpec{Name: c.name, PrimaryKey: c.colKey == "PRI"}

	switch {
	case hasAnyPrefix(raw, "int", "tinyint", "smallint", "mediumint", "bigint",
		"float", "double", "decimal", "numeric"):
		spec.Type = "number"
	case hasAnyPrefix(raw, "varchar", "char", "text", "tinytext", "mediumtext", "longtext"):
		spec.Type = "string"
		if c.charMaxLen.Valid && c.charMaxLen.Int64 > 0 {
			spec.MaxSize = int(c.charMaxLen.Int64)
		} else {
			spec.MaxSize = 255
		}
	case hasAnyPrefix(raw, "date", "datetime", "timestamp"):
		spec.Type = "date"
	default:
		for _, bad := range unsupportedMySQLTypes {
			if strings.HasPrefix(raw, bad) {
				return ColumnSpec{}, false
			}
		}
		spec.Type = "string"
		spec.MaxSize = 255
	}
	return spec, true
}

// ExportRows scans every row of table out of the live connection and
// renders them as pengobase INSERT INTO statements, batched the same
// way convertInsert batches a dump's VALUES rows.
func (im *Importer) ExportRows(ctx context.Context, schemaName string, table Table) ([]string, error) {
	colNames := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		colNames[i] = c.Name
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s", strings.Join(colNames, ", "), schemaName, table.Name)

	rows, err := im.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mysql: export rows of %s: %w", table.Name, err)
	}
	defer rows.Close()

	scanDest := make([]sql.NullString, len(colNames))
	scanArgs := make([]any, len(colNames))
	for i := range scanDest {
		scanArgs[i] = &scanDest[i]
	}

	var literalRows []string
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("mysql: scan row of %s: %w", table.Name, err)
		}
		literals := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			if !scanDest[i].Valid {
				literals[i] = literalFor(c.Type, "")
				continue
			}
			val := scanDest[i].String
			if c.Type == "date" {
				if reformatted, ok := isoDateToPengo(val); ok {
					val = reformatted
				}
			}
			literals[i] = literalFor(c.Type, val)
		}
		literalRows = append(literalRows, "("+strings.Join(literals, ", ")+")")
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(literalRows) == 0 {
		return nil, nil
	}

	colList := strings.Join(colNames, ", ")
	var statements []string
	for start := 0; start < len(literalRows); start += rowsPerBatch {
		end := min(start+rowsPerBatch, len(literalRows))
		statements = append(statements, fmt.Sprintf("INSERT INTO %s (%s) VALUES %s;", table.Name, colList, strings.Join(literalRows[start:end], ", ")))
	}
	return statements, nil
}

// Apply runs every statement against cat, in order, stopping at the
// first error. CREATE TABLE statements must precede the INSERT
// statements that populate them, which callers get for free from
// ParseDump's ordering or by emitting CreateTableStatement() before
// ExportRows's output.
func Apply(cat *catalog.Catalog, statements []string) error {
	for i, stmtText := range statements {
		stmt, err := parser.Parse(stmtText)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		if _, err := exec.Execute(cat, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}
