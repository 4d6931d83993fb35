package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsOf(values ...[]any) []Row {
	out := make([]Row, len(values))
	for i, v := range values {
		out[i] = Row(v)
	}
	return out
}

func collect(t *testing.T, rs RowStream) []Row {
	t.Helper()
	rows, err := Collect(rs)
	require.NoError(t, err)
	return rows
}

func TestHeaderIndex(t *testing.T) {
	h := Header{"a", "b", "c"}
	assert.Equal(t, 1, h.Index("b"))
	assert.Equal(t, -1, h.Index("z"))
	assert.Equal(t, []int{2, -1, 0}, h.Indexes([]string{"c", "x", "a"}))
	assert.True(t, h.Equal(Header{"a", "b", "c"}))
	assert.False(t, h.Equal(Header{"a", "c", "b"}))
	assert.Equal(t, Header{"a", "b", "c", "d"}, h.Concat(Header{"d"}))
}

func TestStreamIsReusable(t *testing.T) {
	rs := Number(FromRows(rowsOf([]any{"x"}, []any{"y"})))
	first := collect(t, rs)
	second := collect(t, rs)
	assert.Equal(t, first, second)
	assert.Equal(t, rowsOf([]any{"x", int64(1)}, []any{"y", int64(2)}), first)
}

func TestBreakReleasesProducer(t *testing.T) {
	closed := false
	src := RowStream(func(yield func(Row, error) bool) {
		defer func() { closed = true }()
		for i := 0; i < 100; i++ {
			if !yield(Row{i}, nil) {
				return
			}
		}
	})

	count := 0
	for _, err := range Filter(src, func(Row) bool { return true }) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
	assert.True(t, closed)
}

func TestLimit(t *testing.T) {
	src := FromRows(rowsOf([]any{1}, []any{2}, []any{3}))
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"unlimited", 0, 3},
		{"fewer", 2, 2},
		{"more", 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, collect(t, Limit(src, tt.n)), tt.want)
		})
	}
}

func TestAugmentSeesEarlierFields(t *testing.T) {
	src := FromRows(rowsOf([]any{2}))
	rs := Augment(src, []func(Row) any{
		func(r Row) any { return r[0].(int) * 10 },
		func(r Row) any { return r[1].(int) + 1 },
	})
	assert.Equal(t, rowsOf([]any{2, 20, 21}), collect(t, rs))
}

func TestSelectAndRemap(t *testing.T) {
	src := FromRows(rowsOf([]any{1, "a", true}))
	assert.Equal(t, rowsOf([]any{true, 1}), collect(t, Select(src, []int{2, 0})))

	rs := Remap(src, []func(Row) any{
		func(r Row) any { return r[1] },
		func(r Row) any { return "const" },
	})
	assert.Equal(t, rowsOf([]any{"a", "const"}), collect(t, rs))
}

func TestErrorsStopTheStream(t *testing.T) {
	boom := assert.AnError
	src := RowStream(func(yield func(Row, error) bool) {
		if !yield(Row{1}, nil) {
			return
		}
		yield(nil, boom)
	})
	_, err := Collect(Sort(src, []int{0}, false, nil))
	assert.ErrorIs(t, err, boom)
	_, err = Collect(Distinct(src))
	assert.ErrorIs(t, err, boom)
}
