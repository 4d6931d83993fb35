package stream

import (
	"iter"
	"slices"
)

// Header is the ordered list of field names describing every row of a stream.
type Header []string

// Index returns the position of name in the header, or -1.
func (h Header) Index(name string) int {
	return slices.Index(h, name)
}

// Indexes maps names to positions. Unknown names map to -1.
func (h Header) Indexes(names []string) []int {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = h.Index(name)
	}
	return idx
}

// Equal reports whether both headers list the same names in the same order.
func (h Header) Equal(other Header) bool {
	return slices.Equal(h, other)
}

// Concat returns a new header made of h followed by other.
func (h Header) Concat(other Header) Header {
	out := make(Header, 0, len(h)+len(other))
	out = append(out, h...)
	return append(out, other...)
}

// Row is one tuple of values. Its arity always matches the stream header.
// A nil element is SQL NULL.
type Row []any

// RowStream is a lazy sequence of rows. A non-nil error ends the sequence.
// Ranging over the same RowStream twice re-runs the producers.
type RowStream = iter.Seq2[Row, error]

// Table pairs a header with the stream it describes.
type Table struct {
	Header Header
	Rows   RowStream
}

// FromRows returns a stream over an in-memory slice of rows.
func FromRows(rows []Row) RowStream {
	return func(yield func(Row, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Fail returns a stream that yields err and stops.
func Fail(err error) RowStream {
	return func(yield func(Row, error) bool) {
		yield(nil, err)
	}
}

// Collect drains the stream into memory.
func Collect(rows RowStream) ([]Row, error) {
	var out []Row
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Limit stops the stream after n rows. A non-positive n means no limit.
func Limit(in RowStream, n int) RowStream {
	if n <= 0 {
		return in
	}
	return func(yield func(Row, error) bool) {
		count := 0
		for row, err := range in {
			if !yield(row, err) || err != nil {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
