package reader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vegasq/virtsql/stream"
)

type person struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
	Age  int32  `parquet:"age"`
}

func TestParquet_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.parquet")
	writeParquet(t, path, []person{{1, "Alice", 30}, {2, "Bob", 25}})

	header, rows, err := Parquet(path)
	require.NoError(t, err)
	assert.Equal(t, stream.Header{"id", "name", "age"}, header)

	got, err := stream.Collect(rows)
	require.NoError(t, err)
	assert.Equal(t, []stream.Row{
		{int64(1), "Alice", int64(30)},
		{int64(2), "Bob", int64(25)},
	}, got)

	// The stream rereads the file.
	again, err := stream.Collect(rows)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestParquet_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "2024-01.parquet")
	second := filepath.Join(dir, "2024-02.parquet")
	writeParquet(t, first, []person{{1, "Alice", 30}})
	writeParquet(t, second, []person{{2, "Bob", 25}, {3, "Carol", 41}})
	writeParquet(t, filepath.Join(dir, "other.parquet"), []person{{9, "Zed", 1}})

	header, rows, err := Parquet(filepath.Join(dir, "2024-*.parquet"))
	require.NoError(t, err)
	assert.Equal(t, stream.Header{"id", "name", "age", FileColumn}, header)

	got, err := stream.Collect(rows)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, first, got[0][3])
	assert.Equal(t, second, got[2][3])
}

func TestParquet_StopsEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.parquet")
	writeParquet(t, path, []person{{1, "Alice", 30}, {2, "Bob", 25}, {3, "Carol", 41}})

	_, rows, err := Parquet(path)
	require.NoError(t, err)
	got, err := stream.Collect(stream.Limit(rows, 1))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParquet_NoMatch(t *testing.T) {
	_, _, err := Parquet(filepath.Join(t.TempDir(), "*.parquet"))
	assert.ErrorContains(t, err, "no files match pattern")
}
