package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/vegasq/virtsql/stream"
)

// FileColumn is added to every row of a glob read and holds the source path.
const FileColumn = "_file"

// maxFiles limits the number of files a glob pattern may expand to.
const maxFiles = 1000

// Reader reads one parquet file.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader creates a new parquet reader for the specified file path.
//
// The file is opened and validated as a parquet file. Returns an error if
// the file doesn't exist or is not a valid parquet file.
//
// Example:
//
//	r, err := NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//	fmt.Println(r.Header())
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{
		file:   file,
		pqFile: pqFile,
	}, nil
}

// Header returns the top-level column names in schema order.
func (r *Reader) Header() stream.Header {
	fields := r.pqFile.Schema().Fields()
	header := make(stream.Header, len(fields))
	for i, f := range fields {
		header[i] = f.Name()
	}
	return header
}

// each calls fn with every row of the file laid out along header. Columns
// missing from the file read as NULL.
func (r *Reader) each(header stream.Header, fn func(stream.Row) bool) error {
	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	for {
		values := make(map[string]any)
		if err := reader.Read(&values); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read row: %w", err)
		}
		row := make(stream.Row, len(header))
		for i, name := range header {
			row[i] = Normalize(values[name])
		}
		if !fn(row) {
			return nil
		}
	}
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close closes the parquet reader and releases associated resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Parquet opens a parquet file, or every file matching a glob pattern, as
// one table.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// The header comes from the first file. A glob read appends the FileColumn
// column; a single file read keeps the file's own shape. Files are opened
// when the stream is ranged over, one at a time, and columns a later file
// lacks read as NULL.
//
// The stream can be ranged over more than once; each pass reopens the
// files. Breaking out of the loop closes the file being read.
//
// Example:
//
//	header, rows, err := Parquet("logs/2024-*.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for row, err := range rows {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(row[header.Index(FileColumn)])
//	}
func Parquet(pattern string) (stream.Header, stream.RowStream, error) {
	files, glob, err := expand(pattern)
	if err != nil {
		return nil, nil, err
	}

	first, err := NewReader(files[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", files[0], err)
	}
	columns := first.Header()
	if err := first.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to close %s: %w", files[0], err)
	}

	header := columns
	if glob {
		header = columns.Concat(stream.Header{FileColumn})
	}

	rows := func(yield func(stream.Row, error) bool) {
		for _, path := range files {
			r, err := NewReader(path)
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s: %w", path, err))
				return
			}
			more := true
			readErr := r.each(columns, func(row stream.Row) bool {
				if glob {
					row = append(row, path)
				}
				more = yield(row, nil)
				return more
			})
			closeErr := r.Close()

			// Preserve the first error encountered
			if readErr != nil {
				yield(nil, fmt.Errorf("failed to read rows from %s: %w", path, readErr))
				return
			}
			if closeErr != nil {
				yield(nil, fmt.Errorf("failed to close %s: %w", path, closeErr))
				return
			}
			if !more {
				return
			}
		}
	}
	return header, rows, nil
}

// expand resolves a path or glob pattern to the files it names.
func expand(pattern string) (files []string, glob bool, err error) {
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, false, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, true, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, true, fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > maxFiles {
		return nil, true, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}
	return matches, true, nil
}
