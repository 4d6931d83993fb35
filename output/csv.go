package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/virtsql/stream"
)

// CSVFormatter outputs rows as CSV format
type CSVFormatter struct {
	writer io.Writer

	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// NoHeader skips the header record, for appending to existing files.
	NoHeader bool
	// Raw writes strings as they are, without guarding spreadsheet formulas.
	Raw bool
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the header record followed by one record per row. NULL is
// written as an empty field. Unless Raw is set, strings that a spreadsheet
// would run as a formula are prefixed with a quote.
func (c *CSVFormatter) Format(header stream.Header, rows stream.RowStream) error {
	csvWriter := csv.NewWriter(c.writer)
	if c.Comma != 0 {
		csvWriter.Comma = c.Comma
	}

	if !c.NoHeader {
		if err := csvWriter.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	cell := formatValue
	if c.Raw {
		cell = cellValue
	}

	record := make([]string, len(header))
	for row, err := range rows {
		if err != nil {
			csvWriter.Flush()
			return err
		}
		for i, v := range row {
			record[i] = cell(v)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	// Flush and check for errors
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}

// formatValue converts a value to string for CSV output
func formatValue(v any) string {
	if val, ok := v.(string); ok && len(val) > 0 {
		// Sanitize against CSV injection by prefixing dangerous characters
		// that could trigger formula execution in spreadsheet applications
		switch val[0] {
		case '=', '+', '-', '@', '\t', '\r', '\n', '|':
			return "'" + strings.ReplaceAll(val, "'", "''")
		}
	}
	return cellValue(v)
}

// cellValue renders a value as text. NULL is the empty string.
func cellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}
