package stream

import "fmt"

// JoinKind selects the join variant.
type JoinKind int

const (
	InnerJoin JoinKind = iota // INNER JOIN (default)
	LeftJoin                  // LEFT JOIN / LEFT OUTER JOIN
	RightJoin                 // RIGHT JOIN / RIGHT OUTER JOIN
	FullJoin                  // FULL JOIN / FULL OUTER JOIN
	CrossJoin                 // CROSS JOIN and comma-separated sources
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case CrossJoin:
		return "CROSS"
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// JoinSide describes one input of a join.
type JoinSide struct {
	Rows  RowStream
	Keys  []int // key field positions, parallel to the other side's Keys
	Width int   // header arity, used for null padding
}

// Join combines two streams. Output rows are the left fields followed by the
// right fields. Keyed variants hash the build side in memory; a key tuple
// holding a null never matches.
func Join(kind JoinKind, left, right JoinSide) RowStream {
	switch kind {
	case CrossJoin:
		return crossJoin(left, right)
	case RightJoin:
		return func(yield func(Row, error) bool) {
			probeJoin(right, left, true, true, false, yield)
		}
	default:
		return func(yield func(Row, error) bool) {
			probeJoin(left, right, false, kind == LeftJoin || kind == FullJoin, kind == FullJoin, yield)
		}
	}
}

type hashTable struct {
	rows    []Row
	buckets map[string][]int
	matched []bool
}

func buildHashTable(side JoinSide) (*hashTable, error) {
	table := &hashTable{buckets: make(map[string][]int)}
	for row, err := range side.Rows {
		if err != nil {
			return nil, err
		}
		table.rows = append(table.rows, row)
		if key, ok := joinKey(row, side.Keys); ok {
			table.buckets[key] = append(table.buckets[key], len(table.rows)-1)
		}
	}
	table.matched = make([]bool, len(table.rows))
	return table, nil
}

func joinKey(row Row, keys []int) (string, bool) {
	values := make([]any, len(keys))
	for i, k := range keys {
		if row[k] == nil {
			return "", false
		}
		values[i] = row[k]
	}
	return Key(values), true
}

// probeJoin streams probe against a hash table built from build. When
// probeIsRight is set the probe input is the right side, and rows are still
// emitted left fields first.
func probeJoin(probe, build JoinSide, probeIsRight, keepProbe, keepBuild bool, yield func(Row, error) bool) {
	emit := func(p, b Row) bool {
		if probeIsRight {
			return yield(concatRows(b, p), nil)
		}
		return yield(concatRows(p, b), nil)
	}

	table, err := buildHashTable(build)
	if err != nil {
		yield(nil, err)
		return
	}
	for row, err := range probe.Rows {
		if err != nil {
			yield(nil, err)
			return
		}
		matched := false
		if key, ok := joinKey(row, probe.Keys); ok {
			for _, i := range table.buckets[key] {
				matched = true
				table.matched[i] = true
				if !emit(row, table.rows[i]) {
					return
				}
			}
		}
		if !matched && keepProbe {
			if !emit(row, make(Row, build.Width)) {
				return
			}
		}
	}
	if !keepBuild {
		return
	}
	for i, row := range table.rows {
		if table.matched[i] {
			continue
		}
		if !emit(make(Row, probe.Width), row) {
			return
		}
	}
}

func crossJoin(left, right JoinSide) RowStream {
	return func(yield func(Row, error) bool) {
		rights, err := Collect(right.Rows)
		if err != nil {
			yield(nil, err)
			return
		}
		for row, err := range left.Rows {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, r := range rights {
				if !yield(concatRows(row, r), nil) {
					return
				}
			}
		}
	}
}

func concatRows(a, b Row) Row {
	out := make(Row, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
