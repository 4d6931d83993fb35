package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vegasq/virtsql/output"
	"github.com/vegasq/virtsql/reader"
	"github.com/vegasq/virtsql/stream"
)

// ErrNotWritable is returned when rows cannot be loaded into a target.
var ErrNotWritable = errors.New("target is not writable")

// Loader is a Source that can store rows in its tables.
type Loader interface {
	// Load writes rows into table, replacing its rows unless appendRows is
	// set, and returns the number of rows written.
	Load(table string, header stream.Header, rows stream.RowStream, appendRows bool) (int64, error)
}

// Load writes rows into the table a name refers to: a table of a registered
// source that is a Loader, or a file named by a format or file scheme or by
// its path. Views cannot be loaded into.
func (r *Registry) Load(name string, header stream.Header, rows stream.RowStream, appendRows bool) (int64, error) {
	t := r.lookup(name)
	switch {
	case t.view != nil:
		return 0, fmt.Errorf("%w: %s is a view", ErrNotWritable, name)
	case t.format != "":
		data, err := stream.Collect(rows)
		if err != nil {
			return 0, err
		}
		if err := writeFile(t.table, t.format, t.opts, header, data, appendRows); err != nil {
			return 0, err
		}
		return int64(len(data)), nil
	case t.src != nil:
		loader, ok := t.src.(Loader)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNotWritable, name)
		}
		return loader.Load(t.table, header, rows, appendRows)
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load implements Loader. The table must exist. Rows are read in full
// before the write starts, so a query may read the table it replaces. The
// write runs in one transaction.
func (d *Database) Load(table string, header stream.Header, rows stream.RowStream, appendRows bool) (int64, error) {
	if !d.Has(table) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	data, err := stream.Collect(rows)
	if err != nil {
		return 0, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin load of %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	name := d.quoteName(table)
	if !appendRows {
		if _, err := tx.Exec("DELETE FROM " + name); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	columns := make([]string, len(header))
	marks := make([]string, len(header))
	for i, c := range header {
		columns[i] = d.dialect.quote(c)
		marks[i] = d.dialect.placeholder(i + 1)
	}
	insert, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(columns, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer func() { _ = insert.Close() }()

	for _, row := range data {
		if _, err := insert.Exec(row...); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit load of %s: %w", table, err)
	}
	return int64(len(data)), nil
}

// Load implements Loader. An existing file of the table is rewritten in its
// own format; a new file is created as CSV unless the table name carries a
// supported extension. Rows are read in full before the file is opened.
func (d *Directory) Load(table string, header stream.Header, rows stream.RowStream, appendRows bool) (int64, error) {
	path, ok := d.locate(table)
	if !ok {
		var err error
		if path, err = d.newFile(table); err != nil {
			return 0, err
		}
	}
	if isGlob(path) {
		return 0, fmt.Errorf("%w: %s names several files", ErrNotWritable, table)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	data, err := stream.Collect(rows)
	if err != nil {
		return 0, err
	}
	if err := writeFile(path, format, d.Options[format], header, data, appendRows); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// newFile names the file a new table is written to.
func (d *Directory) newFile(table string) (string, error) {
	var path string
	if filepath.IsAbs(table) {
		if !d.allowAbsolute {
			return "", fmt.Errorf("%w: %s is outside %s", ErrNotWritable, table, d.root)
		}
		path = filepath.Clean(table)
	} else {
		path = filepath.Join(d.root, filepath.FromSlash(table))
		if !d.allowAbsolute && !within(d.root, path) {
			return "", fmt.Errorf("%w: %s is outside %s", ErrNotWritable, table, d.root)
		}
	}
	if !reader.Supported(filepath.Ext(path)) {
		path += ".csv"
	}
	return path, nil
}

// writeFile writes a table as csv, tsv or JSON lines. Appending to a
// non-empty CSV file leaves out the header.
func writeFile(path, format string, opts reader.Options, header stream.Header, data []stream.Row, appendRows bool) (err error) {
	var formatter output.Formatter
	switch format {
	case "csv", "tsv":
		comma, err := reader.Delimiter(format, opts)
		if err != nil {
			return err
		}
		formatter = &output.CSVFormatter{Comma: comma, Raw: true, NoHeader: appendRows && hasData(path)}
	case "jsonl", "ndjson", "json":
		formatter = output.NewJSONFormatter(nil)
	default:
		return fmt.Errorf("%w: cannot write %s files", ErrNotWritable, format)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendRows {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	formatter.SetOutput(f)
	if err := formatter.Format(header, stream.FromRows(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func hasData(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
