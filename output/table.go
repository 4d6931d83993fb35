package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/virtsql/stream"
)

// TableFormatter renders rows as an aligned text table. The whole result is
// buffered before rendering.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders the header and rows as a table. NULL shows as "NULL".
func (t *TableFormatter) Format(header stream.Header, rows stream.RowStream) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for row, err := range rows {
		if err != nil {
			return err
		}
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = cellValue(v)
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}
