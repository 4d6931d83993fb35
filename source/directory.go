package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vegasq/virtsql/reader"
	"github.com/vegasq/virtsql/stream"
)

// Directory serves the data files below a directory as tables. A table
// names a file by its path relative to the directory, with or without the
// extension: "sales" finds sales.csv, sales.parquet and so on.
type Directory struct {
	root string
	// allowAbsolute lets tables name files outside root by absolute path.
	allowAbsolute bool
	// Options holds per-format read options, keyed by extension.
	Options map[string]reader.Options
}

// NewDirectory serves the files below root.
func NewDirectory(root string) (*Directory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &Directory{root: abs}, nil
}

// workingDirectory serves any readable file, relative to the working
// directory or by absolute path.
func workingDirectory() *Directory {
	return &Directory{root: ".", allowAbsolute: true}
}

// Root returns the directory path.
func (d *Directory) Root() string {
	return d.root
}

// locate finds the file a table name refers to.
func (d *Directory) locate(table string) (string, bool) {
	var base string
	switch {
	case filepath.IsAbs(table):
		if !d.allowAbsolute {
			return "", false
		}
		base = filepath.Clean(table)
	default:
		base = filepath.Join(d.root, filepath.FromSlash(table))
		if !d.allowAbsolute && !within(d.root, base) {
			return "", false
		}
	}

	if reader.Supported(filepath.Ext(base)) && (isFile(base) || isGlob(base)) {
		return base, true
	}
	for _, ext := range reader.Formats {
		if candidate := base + "." + ext; isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Has implements Source.
func (d *Directory) Has(table string) bool {
	_, ok := d.locate(table)
	return ok
}

// Get implements Source. Options for the file's format are merged under
// opts.
func (d *Directory) Get(table string, opts reader.Options) (stream.Header, stream.RowStream, error) {
	path, ok := d.locate(table)
	if !ok {
		return nil, nil, fmt.Errorf("no data file for %s in %s", table, d.root)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	merged := reader.Options{}
	for k, v := range d.Options[ext] {
		merged[k] = v
	}
	for k, v := range opts {
		merged[k] = v
	}
	return reader.Open(path, "", merged)
}

// Tables implements Source: the supported files directly in the directory,
// without their extensions.
func (d *Directory) Tables() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.root, err)
	}
	var tables []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !reader.Supported(ext) {
			continue
		}
		tables = append(tables, strings.TrimSuffix(e.Name(), ext))
	}
	slices.Sort(tables)
	return slices.Compact(tables), nil
}

// Close implements Source.
func (d *Directory) Close() error {
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
