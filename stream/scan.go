package stream

// Number appends a 1-based row number to every row.
func Number(in RowStream) RowStream {
	return func(yield func(Row, error) bool) {
		var n int64
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			n++
			out := make(Row, len(row)+1)
			copy(out, row)
			out[len(row)] = n
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Select keeps the fields at idx, in that order. It implements both the
// scan-time subset and the Narrow projection.
func Select(in RowStream, idx []int) RowStream {
	return func(yield func(Row, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			out := make(Row, len(idx))
			for i, j := range idx {
				out[i] = row[j]
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Augment appends one computed field per function, evaluated in order, so a
// later function may read a field appended by an earlier one.
func Augment(in RowStream, fns []func(Row) any) RowStream {
	if len(fns) == 0 {
		return in
	}
	return func(yield func(Row, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			out := make(Row, len(row), len(row)+len(fns))
			copy(out, row)
			for _, fn := range fns {
				out = append(out, fn(out))
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
