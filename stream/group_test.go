package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sumField(idx int) Reducer {
	return func(group []Row) any {
		total := 0
		for _, r := range group {
			total += r[idx].(int)
		}
		return total
	}
}

func countRows(group []Row) any { return len(group) }

func TestGroupReduceConsecutiveRuns(t *testing.T) {
	src := FromRows(rowsOf([]any{1, 10}, []any{1, 20}, []any{2, 5}))
	got := collect(t, GroupReduce(src, []int{0}, []Reducer{sumField(1), countRows}))
	assert.Equal(t, rowsOf([]any{1, 30, 2}, []any{2, 5, 1}), got)
}

func TestGroupReduceNeedsOrderedInput(t *testing.T) {
	src := FromRows(rowsOf([]any{1, 10}, []any{2, 5}, []any{1, 20}))

	unsorted := collect(t, GroupReduce(src, []int{0}, []Reducer{sumField(1)}))
	assert.Len(t, unsorted, 3)

	sorted := collect(t, GroupReduce(Sort(src, []int{0}, false, nil), []int{0}, []Reducer{sumField(1)}))
	assert.Equal(t, rowsOf([]any{1, 30}, []any{2, 5}), sorted)
}

func TestCollapseEmptyInput(t *testing.T) {
	got := collect(t, Collapse(FromRows(nil), []Reducer{countRows}))
	assert.Equal(t, rowsOf([]any{0}), got)
}

func TestSortStableAndReverse(t *testing.T) {
	src := FromRows(rowsOf(
		[]any{2, "first"},
		[]any{1, "x"},
		[]any{2, "second"},
		[]any{nil, "null"},
	))

	asc := collect(t, Sort(src, []int{0}, false, nil))
	assert.Equal(t, rowsOf(
		[]any{nil, "null"},
		[]any{1, "x"},
		[]any{2, "first"},
		[]any{2, "second"},
	), asc)

	desc := collect(t, Sort(src, []int{0}, true, nil))
	assert.Equal(t, rowsOf(
		[]any{2, "first"},
		[]any{2, "second"},
		[]any{1, "x"},
		[]any{nil, "null"},
	), desc)
}

func TestDistinct(t *testing.T) {
	src := FromRows(rowsOf([]any{1, "a"}, []any{1.0, "a"}, []any{2, "a"}, []any{1, "a"}))
	assert.Equal(t, rowsOf([]any{1, "a"}, []any{2, "a"}), collect(t, Distinct(src)))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"int vs float", int64(3), 3.0, 0},
		{"strings", "b", "a", 1},
		{"null first", nil, 0, -1},
		{"bools", false, true, -1},
		{"number before string", 10, "1", -1},
		{"large ints", int64(1234567890123456789), int64(1234567890123456790), -1},
		{"large uint", uint64(1 << 63), int64(1<<63 - 1), 1},
		{"negative vs uint", int64(-1), uint64(1 << 63), -1},
		{"uint vs int", uint64(7), int64(7), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestKeyNormalizesNumbers(t *testing.T) {
	assert.Equal(t, Key([]any{1, "a"}), Key([]any{1.0, "a"}))
	assert.NotEqual(t, Key([]any{1}), Key([]any{"1"}))
	assert.NotEqual(t, Key([]any{nil}), Key([]any{"n"}))
	assert.Equal(t, Key([]any{uint64(7)}), Key([]any{int64(7)}))
}

func TestLargeIntegersStayDistinct(t *testing.T) {
	const a, b = int64(1234567890123456789), int64(1234567890123456790)
	assert.NotEqual(t, Key([]any{a}), Key([]any{b}))

	src := FromRows(rowsOf([]any{a}, []any{b}, []any{a}))
	assert.Equal(t, rowsOf([]any{a}, []any{b}), collect(t, Distinct(src)))

	grouped := collect(t, GroupReduce(Sort(src, []int{0}, false, nil), []int{0}, []Reducer{countRows}))
	assert.Equal(t, rowsOf([]any{a, 2}, []any{b, 1}), grouped)

	joined := collect(t, Join(InnerJoin,
		JoinSide{Rows: FromRows(rowsOf([]any{a}, []any{b})), Keys: []int{0}, Width: 1},
		JoinSide{Rows: FromRows(rowsOf([]any{b})), Keys: []int{0}, Width: 1}))
	assert.Equal(t, rowsOf([]any{b, b}), joined)
}
