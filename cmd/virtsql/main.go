package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vegasq/virtsql"
	"github.com/vegasq/virtsql/internal/config"
	"github.com/vegasq/virtsql/output"
	"github.com/vegasq/virtsql/reader"
	"github.com/vegasq/virtsql/stream"
)

func usage(fs *pflag.FlagSet, w io.Writer) func() {
	return func() {
		fmt.Fprintf(w, "Usage: %s [options] [file...]\n\n", os.Args[0])
		fmt.Fprintf(w, "Query data files and SQL databases with SQL.\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  %s data.parquet\n", os.Args[0])
		fmt.Fprintf(w, "  %s -f csv data.parquet\n", os.Args[0])
		fmt.Fprintf(w, "  %s -q \"select * from data where age > :min\" -p min=30 data.parquet\n", os.Args[0])
		fmt.Fprintf(w, "  %s --db shop=sqlite://shop.db -q \"select * from shop.orders\"\n", os.Args[0])
		fmt.Fprintf(w, "  %s --schema data.parquet\n", os.Args[0])
		fmt.Fprintf(w, "  %s --db shop=sqlite://shop.db   (interactive shell)\n", os.Args[0])
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run executes one invocation of the command.
func run(args []string, stdin io.ReadCloser, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("virtsql", pflag.ContinueOnError)
	fs.Usage = usage(fs, stderr)
	config.Flags(fs)
	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}

	if cfg.Schema != "" {
		if cfg.Query != "" {
			return errors.New("--schema and -q cannot be used together")
		}
		return printSchema(cfg.Schema, cfg.Format, stdout, stderr)
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	level, _ := cfg.Level()
	logger.SetLevel(level)
	if cfg.File != "" {
		logger.WithField("file", cfg.File).Debug("config loaded")
	}

	db, err := open(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sql := cfg.Query
	if sql == "" && len(cfg.Files) > 0 {
		sql = fmt.Sprintf("SELECT * FROM %s", quoteName(cfg.Files[0]))
	}
	if sql == "" {
		if !isTerminal(stdin) {
			fs.Usage()
			return errors.New("missing query or file argument")
		}
		return shell(db, cfg, stdout, stderr)
	}

	formatter, err := output.New(cfg.Format, stdout)
	if err != nil {
		return err
	}
	header, rows, err := db.Query(sql, cfg.Params)
	if err != nil {
		return err
	}
	if cfg.Limit > 0 {
		rows = stream.Limit(rows, cfg.Limit)
	}
	return formatter.Format(header, rows)
}

// open builds the DB from the configured sources. Files given as arguments
// become views named after the file.
func open(cfg *config.Config, logger *logrus.Logger) (*virtsql.DB, error) {
	db, err := virtsql.New(
		virtsql.WithLogger(logger),
		virtsql.WithCollation(cfg.Collation),
		virtsql.WithPlanCacheSize(cfg.PlanCacheSize),
	)
	if err != nil {
		return nil, err
	}
	if err := attach(db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func attach(db *virtsql.DB, cfg *config.Config) error {
	for _, name := range sortedKeys(cfg.Databases) {
		if err := db.AddDatabase(name, cfg.Databases[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(cfg.Directories) {
		if err := db.AddDirectory(name, cfg.Directories[name]); err != nil {
			return err
		}
	}
	for _, path := range cfg.Files {
		if strings.ContainsAny(path, "*?[") {
			continue
		}
		header, rows, err := reader.Open(path, "", nil)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file '%s' not found", path)
			}
			return err
		}
		db.AddTable(viewName(path), stream.Table{Header: header, Rows: rows})
	}
	for _, name := range sortedKeys(cfg.Views) {
		if err := db.AddSQLView(name, cfg.Views[name]); err != nil {
			return err
		}
	}
	return nil
}

// viewName names the view of a file: its base name without extension.
func viewName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func quoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// printSchema lists the columns of a parquet file.
func printSchema(pattern, format string, stdout, stderr io.Writer) error {
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) > 1 {
			fmt.Fprintf(stderr, "# Showing schema from: %s (%d files matched)\n", matches[0], len(matches))
		}
	}

	infos, err := reader.ExtractSchemaInfo(pattern)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file '%s' not found", pattern)
		}
		return err
	}

	header := stream.Header{"name", "type", "physical_type", "logical_type", "required", "optional", "repeated"}
	rows := make([]stream.Row, len(infos))
	for i, f := range infos {
		rows[i] = stream.Row{f.Name, f.Type, f.PhysicalType, f.LogicalType, f.Required, f.Optional, f.Repeated}
	}

	formatter, err := output.New(format, stdout)
	if err != nil {
		return err
	}
	return formatter.Format(header, stream.FromRows(rows))
}
