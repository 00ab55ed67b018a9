// Package mysql converts MySQL schema dumps and live MySQL schemas into
// this engine's own statement grammar, so a user can bulk-load an
// existing MySQL database's tables and rows. It uses TiDB's parser for
// dump parsing, so it accepts both MySQL and TiDB-specific SQL, and
// go-sql-driver/mysql for live introspection and row export (live.go).
package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// Parser translates a MySQL schema dump (a CREATE TABLE + INSERT INTO
// .sql file) into pengobase CREATE TABLE and INSERT INTO statement text.
type Parser struct {
	p *parser.Parser
}

// NewParser returns a Parser wrapping a fresh TiDB SQL parser instance.
func NewParser() *Parser {
	return &Parser{p: parser.New()}
}

// Result holds everything ParseDump extracted from one dump file.
type Result struct {
	Tables     []Table
	Statements []string // CREATE TABLE followed by INSERT INTO statements, in dump order
	Warnings   []string
}

// ParseDump parses sql (the full contents of a mysqldump-style file) and
// converts every CREATE TABLE and INSERT INTO it finds.
func (p *Parser) ParseDump(sql string) (*Result, error) {
	stmtNodes, _, err := p.p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("mysql: parse error: %w", err)
	}

	res := &Result{}
	tablesByName := map[string]Table{}
	for _, stmt := range stmtNodes {
		switch node := stmt.(type) {
		case *ast.CreateTableStmt:
			table, warnings := convertCreateTable(node)
			res.Warnings = append(res.Warnings, warnings...)
			if len(table.Columns) == 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("table %s has no representable columns, skipped", table.Name))
				continue
			}
			tablesByName[table.Name] = table
			res.Tables = append(res.Tables, table)
			res.Statements = append(res.Statements, table.CreateTableStatement())
		case *ast.InsertStmt:
			table, ok := tablesByName[node.Table.TableRefs.Left.(*ast.TableSource).Source.(*ast.TableName).Name.O]
			if !ok {
				res.Warnings = append(res.Warnings, "INSERT into unknown or skipped table, ignored")
				continue
			}
			stmts, warnings := convertInsert(node, table)
			res.Warnings = append(res.Warnings, warnings...)
			res.Statements = append(res.Statements, stmts...)
		}
	}
	return res, nil
}

func convertCreateTable(stmt *ast.CreateTableStmt) (Table, []string) {
	table := Table{Name: stmt.Table.Name.O}
	var warnings []string
	for _, colDef := range stmt.Cols {
		spec, ok := convertColumn(colDef)
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"%s.%s: unsupported MySQL type %q, column dropped",
				table.Name, colDef.Name.Name.O, colDef.Tp.String()))
			continue
		}
		table.Columns = append(table.Columns, spec)
	}

	for _, c := range stmt.Constraints {
		if c.Tp == ast.ConstraintPrimaryKey && len(c.Keys) > 0 {
			applyPrimaryKey(&table, c.Keys[0].Column.Name.O)
		}
	}

	warnings = append(warnings, analyzeCreateTable(stmt)...)
	return table, warnings
}

func applyPrimaryKey(table *Table, column string) {
	for i := range table.Columns {
		if table.Columns[i].Name == column {
			table.Columns[i].PrimaryKey = true
			return
		}
	}
}

// convertInsert renders each VALUES row as a pengobase INSERT INTO
// statement. Rows are emitted one statement per batch of rowsPerBatch to
// keep generated statement text manageable; batching is purely
// cosmetic since the grammar allows arbitrarily many rows per INSERT.
const rowsPerBatch = 200

func convertInsert(stmt *ast.InsertStmt, table Table) ([]string, []string) {
	colsByName := make(map[string]ColumnSpec, len(table.Columns))
	for _, c := range table.Columns {
		colsByName[c.Name] = c
	}

	var targetCols []string
	if len(stmt.Columns) > 0 {
		for _, c := range stmt.Columns {
			targetCols = append(targetCols, c.Name.O)
		}
	} else {
		for _, c := range table.Columns {
			targetCols = append(targetCols, c.Name)
		}
	}

	var warnings []string
	var rows []string
	for _, tuple := range stmt.Lists {
		if len(tuple) != len(targetCols) {
			warnings = append(warnings, fmt.Sprintf("%s: row arity mismatch, skipped", table.Name))
			continue
		}
		literals := make([]string, 0, len(tuple))
		skip := false
		for i, expr := range tuple {
			col, ok := colsByName[targetCols[i]]
			if !ok {
				skip = true
				break
			}
			raw := restoreExpr(expr)
			if col.Type == "date" {
				if reformatted, ok := isoDateToPengo(raw); ok {
					raw = reformatted
				}
			}
			literals = append(literals, literalFor(col.Type, raw))
		}
		if skip {
			continue
		}
		rows = append(rows, "("+strings.Join(literals, ", ")+")")
	}
	if len(rows) == 0 {
		return nil, warnings
	}

	colList := strings.Join(targetCols, ", ")
	var statements []string
	for start := 0; start < len(rows); start += rowsPerBatch {
		end := min(start+rowsPerBatch, len(rows))
		stmtText := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s;", table.Name, colList, strings.Join(rows[start:end], ", "))
		statements = append(statements, stmtText)
	}
	return statements, warnings
}

// restoreExpr renders a VALUES tuple expression as SQL text, unquoting a
// string literal if that is what it is. Date reformatting happens
// separately in convertInsert, keyed off the destination column's type, so
// an ordinary string value is never mistaken for a date.
func restoreExpr(expr ast.ExprNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := expr.Restore(ctx); err != nil {
		return ""
	}
	s := strings.TrimSpace(sb.String())
	if unquoted, ok := tryUnquoteSQLStringLiteral(s); ok {
		return unquoted
	}
	return s
}
