package stream

import "slices"

// Sort buffers the input and emits it stably ordered by the key fields.
// Reverse flips the order while keeping ties in input order.
func Sort(in RowStream, keys []int, reverse bool, cmp Comparator) RowStream {
	if cmp == nil {
		cmp = Compare
	}
	return func(yield func(Row, error) bool) {
		rows, err := Collect(in)
		if err != nil {
			yield(nil, err)
			return
		}
		slices.SortStableFunc(rows, func(a, b Row) int {
			for _, k := range keys {
				if c := cmp(a[k], b[k]); c != 0 {
					if reverse {
						return -c
					}
					return c
				}
			}
			return 0
		})
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}
