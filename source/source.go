// Package source resolves table names to tables. A Registry holds in-memory
// views and named sources: directories of data files and SQL databases.
package source

import (
	"github.com/vegasq/virtsql/reader"
	"github.com/vegasq/virtsql/stream"
)

// Source is a named collection of tables.
type Source interface {
	// Has reports whether table exists.
	Has(table string) bool
	// Get returns the header of table and a stream that reads it. The stream
	// does no work until ranged over.
	Get(table string, opts reader.Options) (stream.Header, stream.RowStream, error)
	// Tables lists the tables of the source.
	Tables() ([]string, error)
	Close() error
}
