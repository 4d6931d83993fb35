package stream

// Filter keeps the rows for which keep returns true.
func Filter(in RowStream, keep func(Row) bool) RowStream {
	return func(yield func(Row, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			if !keep(row) {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
