// Package output provides formatters that write query results.
//
// This package defines the Formatter interface and provides implementations
// for JSON Lines, CSV and text tables. All formatters consume a result as a
// header plus a row stream, so JSON Lines and CSV output start before the
// query finishes.
//
// # Supported Formats
//
//   - jsonl: One JSON object per line, keys in column order
//   - csv: Comma-separated values with header row
//   - table: An aligned text table
//
// # Basic Usage
//
//	formatter, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(header, rows); err != nil {
//	    log.Fatal(err)
//	}
//
// # Security Considerations
//
// The CSV formatter sanitizes string values that start with characters that
// spreadsheet applications interpret as formulas (=, +, -, @, tab, carriage
// return, newline, pipe) by prefixing them with a single quote.
package output
