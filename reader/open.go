package reader

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/virtsql/stream"
)

// Options tunes how a file is read. Recognized keys: "delimiter" for CSV
// and TSV files.
type Options map[string]string

// Formats lists the file extensions Open understands.
var Formats = []string{"csv", "tsv", "yaml", "yml", "jsonl", "ndjson", "json", "parquet"}

// Open reads a file as a table, picking the format from its extension.
// format overrides the extension when not empty.
func Open(path, format string, opts Options) (stream.Header, stream.RowStream, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "csv", "tsv":
		delimiter, err := Delimiter(format, opts)
		if err != nil {
			return nil, nil, err
		}
		return CSV(path, delimiter)
	case "yaml", "yml":
		return YAML(path)
	case "jsonl", "ndjson", "json":
		return JSONLines(path)
	case "parquet":
		return Parquet(path)
	}
	return nil, nil, fmt.Errorf("unsupported file format %q for %s", format, path)
}

// Delimiter returns the field separator for a csv or tsv file: a comma or
// a tab, unless opts sets "delimiter".
func Delimiter(format string, opts Options) (rune, error) {
	delimiter := ','
	if format == "tsv" {
		delimiter = '\t'
	}
	if d, ok := opts["delimiter"]; ok {
		r, size := utf8.DecodeRuneInString(unescape(d))
		if size == 0 || size != len(unescape(d)) {
			return 0, fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		delimiter = r
	}
	return delimiter, nil
}

// Supported reports whether Open can read files with the given extension.
func Supported(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	return slices.Contains(Formats, ext)
}

// unescape lets "\t" stand for a tab in option values.
func unescape(s string) string {
	if s == `\t` {
		return "\t"
	}
	return s
}
