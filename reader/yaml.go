package reader

import (
	"fmt"
	"os"

	"github.com/vegasq/virtsql/stream"
	"gopkg.in/yaml.v3"
)

// YAML opens a file holding a sequence of mappings. The header lists every
// key in order of first appearance; a record without a key reads NULL there.
func YAML(path string) (stream.Header, stream.RowStream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return stream.Header{}, stream.FromRows(nil), nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("%s: expected a sequence of mappings at line %d", path, seq.Line)
	}

	// Mapping nodes keep their keys in document order.
	var header stream.Header
	index := make(map[string]int)
	records := make([]map[string]any, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.MappingNode {
			return nil, nil, fmt.Errorf("%s: expected a mapping at line %d", path, item.Line)
		}
		record := make(map[string]any, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			key := item.Content[i].Value
			var value any
			if err := item.Content[i+1].Decode(&value); err != nil {
				return nil, nil, fmt.Errorf("%s: key %s at line %d: %w", path, key, item.Content[i].Line, err)
			}
			if _, ok := index[key]; !ok {
				index[key] = len(header)
				header = append(header, key)
			}
			record[key] = Normalize(value)
		}
		records = append(records, record)
	}

	rows := make([]stream.Row, len(records))
	for i, record := range records {
		row := make(stream.Row, len(header))
		for key, v := range record {
			row[index[key]] = v
		}
		rows[i] = row
	}
	return header, stream.FromRows(rows), nil
}
