package output

import (
	"fmt"
	"io"

	"github.com/vegasq/virtsql/stream"
)

// Formatter defines the interface for output formatters.
//
// Implementers must provide Format to write a result in the target format
// and SetOutput to change the output destination.
type Formatter interface {
	// Format writes the rows of a result in the formatter's specific format.
	// It stops at the first stream error and returns it.
	Format(header stream.Header, rows stream.RowStream) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Formats lists the names New accepts.
var Formats = []string{"jsonl", "csv", "table"}

// New returns the formatter for a format name.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "jsonl", "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "table":
		return NewTableFormatter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
}
