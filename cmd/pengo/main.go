// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pengobase/internal/catalog"
	"pengobase/internal/config"
	"pengobase/internal/humanize"
	importermysql "pengobase/internal/importer/mysql"
	"pengobase/internal/query/exec"
	"pengobase/internal/query/parser"
	"pengobase/internal/schema"
)

type rootFlags struct {
	configPath string
	dataRoot   string
}

type execFlags struct {
	command string
}

type importMySQLFlags struct {
	dumpFile string
	dsn      string
	schema   string
}

func main() {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "pengo",
		Short: "A small single-node relational database engine",
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "pengo.toml", "path to pengo.toml")
	rootCmd.PersistentFlags().StringVar(&flags.dataRoot, "data-root", "", "override data_root from the config file")

	rootCmd.AddCommand(execCmd(flags))
	rootCmd.AddCommand(importMySQLCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openCatalog(flags *rootFlags) (*catalog.Catalog, *zap.SugaredLogger, error) {
	cfg, err := config.NewParser().ParseFile(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if flags.dataRoot != "" {
		cfg.DataRoot = flags.dataRoot
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	sugar := logger.Sugar()

	cat, err := catalog.Open(cfg.DataRoot, sugar)
	if err != nil {
		return nil, sugar, fmt.Errorf("opening catalog at %s: %w", cfg.DataRoot, err)
	}
	return cat, sugar, nil
}

func execCmd(root *rootFlags) *cobra.Command {
	flags := &execFlags{}
	cmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Run one or more statements against the database",
		Long: `Runs statements against the database, in this engine's own grammar
(CREATE TABLE, INSERT INTO, SELECT, DELETE FROM, GET ROW, CREATE INDEX,
DROP INDEX, DROP TABLE, TABLEINFO, DEFRAGMENT). Reads from stdin, a file
argument, or a single statement passed with --command.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runExec(root, flags, path)
		},
	}
	cmd.Flags().StringVarP(&flags.command, "command", "c", "", "a single statement to run, instead of reading from a file or stdin")
	return cmd
}

func runExec(root *rootFlags, flags *execFlags, path string) error {
	text, err := readStatementSource(flags.command, path)
	if err != nil {
		return err
	}

	cat, logger, err := openCatalog(root)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.CloseAll(); err != nil {
			logger.Warnw("closing catalog", "error", err)
		}
	}()

	for _, stmtText := range splitStatements(text) {
		if err := runOneStatement(cat, stmtText); err != nil {
			return err
		}
	}
	return nil
}

func readStatementSource(command, path string) (string, error) {
	if command != "" {
		return command, nil
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return string(content), nil
	}
	content, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(content), nil
}

// splitStatements breaks a source blob into individual statement texts
// on top-level ';' terminators, mirroring how the prototype's REPL reads
// one statement at a time up to its trailing semicolon.
func splitStatements(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ";") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed+";")
	}
	return out
}

func runOneStatement(cat *catalog.Catalog, stmtText string) error {
	stmt, err := parser.Parse(stmtText)
	if err != nil {
		return fmt.Errorf("%s\n  %w", stmtText, err)
	}
	res, err := exec.Execute(cat, stmt)
	if err != nil {
		return fmt.Errorf("%s\n  %w", stmtText, err)
	}
	printResult(res)
	return nil
}

func printResult(res *exec.Result) {
	switch {
	case res.TableInfo != nil:
		printTableInfo(res.TableInfo)
	case res.Rows != nil:
		printRows(res.Columns, res.Rows)
	case res.Message != "":
		fmt.Println(res.Message)
	case res.TableAction:
		fmt.Println("OK")
	}
}

func printTableInfo(info *exec.TableInfo) {
	fmt.Printf("table %s (%d rows, %s)\n", info.Name, info.RowCount, humanize.FormatSize(info.DataBytes))
	for _, c := range info.Columns {
		fmt.Printf("  %s %s\n", c.Name, c.Type)
	}
	for _, idx := range info.Indexes {
		fmt.Printf("  index on %s\n", idx.Column)
	}
}

func printRows(columns []string, rows []schema.Row) {
	fmt.Println(strings.Join(columns, " | "))
	for _, row := range rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, " | "))
	}
}

func importMySQLCmd(root *rootFlags) *cobra.Command {
	flags := &importMySQLFlags{}
	cmd := &cobra.Command{
		Use:   "import-mysql",
		Short: "Import tables and rows from a MySQL dump or a live MySQL database",
		Long: `Converts a mysqldump-style .sql file (--dump) or a live MySQL schema
(--dsn, --schema) into this engine's own CREATE TABLE / INSERT INTO
statements and applies them to the database at --data-root.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runImportMySQL(root, flags)
		},
	}
	cmd.Flags().StringVar(&flags.dumpFile, "dump", "", "path to a mysqldump-style .sql file")
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "DSN of a live MySQL database to introspect instead of --dump")
	cmd.Flags().StringVar(&flags.schema, "schema", "", "schema name to introspect, required with --dsn")
	return cmd
}

func runImportMySQL(root *rootFlags, flags *importMySQLFlags) error {
	statements, warnings, err := gatherImportStatements(flags)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if len(statements) == 0 {
		fmt.Println("nothing to import")
		return nil
	}

	cat, logger, err := openCatalog(root)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.CloseAll(); err != nil {
			logger.Warnw("closing catalog", "error", err)
		}
	}()

	if err := importermysql.Apply(cat, statements); err != nil {
		return fmt.Errorf("applying imported statements: %w", err)
	}
	fmt.Printf("applied %d statement(s)\n", len(statements))
	return nil
}

func gatherImportStatements(flags *importMySQLFlags) ([]string, []string, error) {
	switch {
	case flags.dumpFile != "":
		content, err := os.ReadFile(flags.dumpFile)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", flags.dumpFile, err)
		}
		res, err := importermysql.NewParser().ParseDump(string(content))
		if err != nil {
			return nil, nil, fmt.Errorf("parsing dump: %w", err)
		}
		return res.Statements, res.Warnings, nil
	case flags.dsn != "":
		if flags.schema == "" {
			return nil, nil, fmt.Errorf("--schema is required with --dsn")
		}
		return importFromLiveMySQL(flags.dsn, flags.schema)
	default:
		return nil, nil, fmt.Errorf("one of --dump or --dsn is required")
	}
}

func importFromLiveMySQL(dsn, schemaName string) ([]string, []string, error) {
	ctx := context.Background()
	im := &importermysql.Importer{}
	if err := im.Connect(ctx, dsn); err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", dsn, err)
	}
	defer func() { _ = im.Close() }()

	tables, warnings, err := im.IntrospectSchema(ctx, schemaName)
	if err != nil {
		return nil, nil, fmt.Errorf("introspecting schema %s: %w", schemaName, err)
	}

	var statements []string
	for _, table := range tables {
		statements = append(statements, table.CreateTableStatement())
		rows, err := im.ExportRows(ctx, schemaName, table)
		if err != nil {
			return nil, nil, fmt.Errorf("exporting rows of %s: %w", table.Name, err)
		}
		statements = append(statements, rows...)
	}
	return statements, warnings, nil
}
