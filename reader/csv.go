package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/vegasq/virtsql/stream"
)

// CSV opens a delimited text file whose first record is the header. Values
// are read as strings; empty fields stay empty strings.
func CSV(path string, delimiter rune) (stream.Header, stream.RowStream, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	if !utf8.ValidRune(delimiter) || delimiter == '"' || delimiter == '\n' || delimiter == '\r' {
		return nil, nil, fmt.Errorf("invalid delimiter %q", delimiter)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	first, err := newCSVReader(f, delimiter).Read()
	_ = f.Close()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: missing header record", path)
		}
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header := stream.Header(first)

	rows := func(yield func(stream.Row, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open file: %w", err))
			return
		}
		defer func() { _ = f.Close() }()

		r := newCSVReader(f, delimiter)
		if _, err := r.Read(); err != nil {
			yield(nil, fmt.Errorf("failed to read header of %s: %w", path, err))
			return
		}
		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("failed to read %s: %w", path, err))
				return
			}
			row := make(stream.Row, len(record))
			for i, v := range record {
				row[i] = v
			}
			if !yield(row, nil) {
				return
			}
		}
	}
	return header, rows, nil
}

func newCSVReader(r io.Reader, delimiter rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	return cr
}
