package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vegasq/virtsql/stream"
)

// JSONFormatter outputs rows as JSON Lines format
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row with keys in header order.
func (j *JSONFormatter) Format(header stream.Header, rows stream.RowStream) error {
	keys := make([][]byte, len(header))
	for i, name := range header {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	w := bufio.NewWriter(j.writer)
	for row, err := range rows {
		if err != nil {
			_ = w.Flush()
			return err
		}
		_ = w.WriteByte('{')
		for i, v := range row {
			if i > 0 {
				_ = w.WriteByte(',')
			}
			value, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", header[i], err)
			}
			_, _ = w.Write(keys[i])
			_ = w.WriteByte(':')
			_, _ = w.Write(value)
		}
		_, _ = w.WriteString("}\n")
	}
	return w.Flush()
}
