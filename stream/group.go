package stream

// Reducer folds one materialized group into a single value.
type Reducer func(group []Row) any

// GroupReduce partitions the input into runs of consecutive rows sharing the
// key tuple and emits one row per run: the key fields followed by one value
// per reducer. The input must already be ordered by the key; unordered input
// yields one output row per run, not per distinct key.
func GroupReduce(in RowStream, keys []int, reducers []Reducer) RowStream {
	return func(yield func(Row, error) bool) {
		var (
			group   []Row
			current string
		)
		flush := func() bool {
			out := make(Row, 0, len(keys)+len(reducers))
			for _, k := range keys {
				out = append(out, group[0][k])
			}
			for _, reduce := range reducers {
				out = append(out, reduce(group))
			}
			group = nil
			return yield(out, nil)
		}

		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			key := Key(pick(row, keys))
			if len(group) > 0 && key != current {
				if !flush() {
					return
				}
			}
			current = key
			group = append(group, row)
		}
		if len(group) > 0 {
			flush()
		}
	}
}

// Collapse reduces the whole input to exactly one row, even when the input
// is empty.
func Collapse(in RowStream, reducers []Reducer) RowStream {
	return func(yield func(Row, error) bool) {
		group, err := Collect(in)
		if err != nil {
			yield(nil, err)
			return
		}
		out := make(Row, len(reducers))
		for i, reduce := range reducers {
			out[i] = reduce(group)
		}
		yield(out, nil)
	}
}

func pick(row Row, idx []int) []any {
	values := make([]any, len(idx))
	for i, j := range idx {
		values[i] = row[j]
	}
	return values
}
