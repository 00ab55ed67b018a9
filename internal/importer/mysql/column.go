package mysql

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// ColumnSpec is a MySQL column definition translated into this engine's
// three-type model (number/string/date), ready to render as a coldef
// clause in a CREATE TABLE statement.
type ColumnSpec struct {
	Name       string
	Type       string // "number", "string", or "date"
	MaxSize    int    // 0 means "use the engine default for Type"
	HasDefault bool
	Default    string
	PrimaryKey bool
}

// unsupportedMySQLTypes lists raw type prefixes this engine has no
// representation for; columns of these types are dropped with a warning
// (see convertCreateTable in parser.go) rather than silently misconverted.
var unsupportedMySQLTypes = []string{"blob", "json", "enum", "set", "geometry", "binary", "bit"}

// convertColumn maps one TiDB-parsed column definition to a ColumnSpec.
// ok is false for a type this engine cannot represent at all.
func convertColumn(colDef *ast.ColumnDef) (ColumnSpec, bool) {
	raw := strings.ToLower(colDef.Tp.String())
	spec := ColumnSpec{Name: colDef.Name.Name.O}

	switch {
	case hasAnyPrefix(raw, "int", "tinyint", "smallint", "mediumint", "bigint",
		"float", "double", "decimal", "numeric"):
		spec.Type = "number"
	case hasAnyPrefix(raw, "varchar", "char", "text", "tinytext", "mediumtext", "longtext"):
		spec.Type = "string"
		if flen := colDef.Tp.GetFlen(); flen > 0 {
			spec.MaxSize = flen
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

	for _, opt := range colDef.Options {
		switch opt.Tp {
		case ast.ColumnOptionPrimaryKey:
			spec.PrimaryKey = true
		case ast.ColumnOptionDefaultValue:
			if s := exprToString(opt.Expr); s != nil {
				if lit, ok := convertDefaultLiteral(*s, spec.Type); ok {
					spec.Default, spec.HasDefault = lit, true
				}
			}
		}
	}
	return spec, true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// convertDefaultLiteral reformats a restored MySQL DEFAULT expression into
// a pengobase literal. On a date column, ISO dates ("YYYY-MM-DD") become
// pengobase's "DD.MM.YYYY" and anything else, such as CURRENT_TIMESTAMP,
// is dropped (ok=false). Defaults of other types are passed through
// unchanged.
func convertDefaultLiteral(s, pengoType string) (string, bool) {
	if pengoType == "date" {
		d, ok := isoDateToPengo(s)
		return d, ok
	}
	return s, true
}

func isoDateToPengo(s string) (string, bool) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return "", false
	}
	year, month, day := parts[0], parts[1], strings.SplitN(parts[2], " ", 2)[0]
	if _, err := strconv.Atoi(year); err != nil {
		return "", false
	}
	return day + "." + month + "." + year, true
}

// exprToString restores expr to SQL text and unquotes it if it is a
// string literal, matching the shape MySQL dump defaults appear in.
func exprToString(expr ast.ExprNode) *string {
	if expr == nil {
		return nil
	}

	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := expr.Restore(restoreCtx); err != nil {
		return nil
	}
	s := strings.TrimSpace(sb.String())

	if unquoted, ok := tryUnquoteSQLStringLiteral(s); ok {
		return &unquoted
	}
	return &s
}

func tryUnquoteSQLStringLiteral(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return "", false
	}
	if s[0] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}

	q := strings.IndexByte(s, '\'')
	if q <= 0 {
		return "", false
	}
	prefix := strings.TrimSpace(s[:q])
	if !isSQLStringIntroducer(prefix) {
		return "", false
	}
	inner := s[q+1 : len(s)-1]
	return strings.ReplaceAll(inner, "''", "'"), true
}

func isSQLStringIntroducer(prefix string) bool {
	if prefix == "" {
		return false
	}
	if strings.EqualFold(prefix, "N") {
		return true
	}
	if !strings.HasPrefix(prefix, "_") || len(prefix) == 1 {
		return false
	}
	for _, r := range prefix[1:] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
