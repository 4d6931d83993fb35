package stream

// Distinct drops every row equal to one already emitted.
func Distinct(in RowStream) RowStream {
	return func(yield func(Row, error) bool) {
		seen := make(map[string]struct{})
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			key := Key(row)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if !yield(row, nil) {
				return
			}
		}
	}
}
