package reader

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vegasq/virtsql/stream"
)

// JSONLines opens a file holding one JSON object per line. The header lists
// every top-level key in order of first appearance. Nested objects and arrays
// are returned as decoded Go values.
func JSONLines(path string) (stream.Header, stream.RowStream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	text := string(data)

	var header stream.Header
	index := make(map[string]int)
	var bad error
	line := 0
	gjson.ForEachLine(text, func(obj gjson.Result) bool {
		line++
		if !obj.IsObject() {
			bad = fmt.Errorf("%s: record %d is not a JSON object", path, line)
			return false
		}
		obj.ForEach(func(key, _ gjson.Result) bool {
			if _, ok := index[key.String()]; !ok {
				index[key.String()] = len(header)
				header = append(header, key.String())
			}
			return true
		})
		return true
	})
	if bad != nil {
		return nil, nil, bad
	}

	rows := func(yield func(stream.Row, error) bool) {
		gjson.ForEachLine(text, func(obj gjson.Result) bool {
			row := make(stream.Row, len(header))
			obj.ForEach(func(key, value gjson.Result) bool {
				row[index[key.String()]] = jsonValue(value)
				return true
			})
			return yield(row, nil)
		})
	}
	return header, rows, nil
}

// jsonValue converts a gjson value. Integral numbers stay int64.
func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return v.String()
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			return v.Int()
		}
		return v.Float()
	}
	return v.Value()
}
