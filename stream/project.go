package stream

// Narrow is Select under its projection name.
func Narrow(in RowStream, idx []int) RowStream {
	return Select(in, idx)
}

// Remap builds each output row from scratch, one function per output field.
func Remap(in RowStream, fns []func(Row) any) RowStream {
	return func(yield func(Row, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			out := make(Row, len(fns))
			for i, fn := range fns {
				out[i] = fn(row)
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
