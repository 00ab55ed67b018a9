package mysql

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// analyzeCreateTable reports dump features this engine cannot carry over:
// foreign keys, composite primary keys, AUTO_INCREMENT, generated
// columns. It never blocks the conversion, only warns, matching
// convertColumn's permissive "unknown type becomes string" default.
func analyzeCreateTable(stmt *ast.CreateTableStmt) []string {
	var warnings []string
	tableName := stmt.Table.Name.O

	var pkCols int
	for _, colDef := range stmt.Cols {
		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionPrimaryKey:
				pkCols++
			case ast.ColumnOptionAutoIncrement:
				warnings = append(warnings, fmt.Sprintf(
					"%s.%s: AUTO_INCREMENT has no equivalent, dropped", tableName, colDef.Name.Name.O))
			case ast.ColumnOptionGenerated:
				warnings = append(warnings, fmt.Sprintf(
					"%s.%s: generated columns are not supported, converted as a plain column", tableName, colDef.Name.Name.O))
			case ast.ColumnOptionReference:
				warnings = append(warnings, fmt.Sprintf(
					"%s.%s: foreign key reference dropped, referential integrity is not enforced", tableName, colDef.Name.Name.O))
			}
		}
	}

	for _, c := range stmt.Constraints {
		switch c.Tp {
		case ast.ConstraintPrimaryKey:
			pkCols += len(c.Keys)
		case ast.ConstraintForeignKey:
			warnings = append(warnings, fmt.Sprintf("%s: FOREIGN KEY constraint %q dropped", tableName, c.Name))
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			warnings = append(warnings, fmt.Sprintf("%s: UNIQUE constraint %q is not enforced, per §9's open question on PRIMARY_KEY uniqueness", tableName, c.Name))
		case ast.ConstraintIndex, ast.ConstraintKey:
			warnings = append(warnings, fmt.Sprintf(
				"%s: secondary index %q not carried over; recreate with CREATE INDEX after import if needed", tableName, c.Name))
		}
	}
	if pkCols > 1 {
		warnings = append(warnings, fmt.Sprintf(
			"%s: composite PRIMARY KEY (%d columns) is not representable, PRIMARY_KEY:TRUE applied to the first key column only", tableName, pkCols))
	}
	return warnings
}
