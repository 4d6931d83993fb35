package source

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/vegasq/virtsql/reader"
	"github.com/vegasq/virtsql/stream"
)

// FileScheme reads any file relative to the working directory or by
// absolute path: "file:data/sales.csv".
const FileScheme = "file"

// ErrNotFound is returned for table names no source can serve.
var ErrNotFound = errors.New("table not found")

// Registry resolves table names to tables. It holds in-memory views and
// named sources, and reads files through the format and file schemes.
// A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	views   map[string]stream.Table
	sources map[string]Source
	files   *Directory
	logger  logrus.FieldLogger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logrus.FieldLogger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		views:   make(map[string]stream.Table),
		sources: make(map[string]Source),
		files:   workingDirectory(),
		logger:  logger,
	}
}

// AddView registers a table under name, replacing any view of that name.
func (r *Registry) AddView(name string, table stream.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[name] = table
}

// RemoveView drops a view. It reports whether the view existed.
func (r *Registry) RemoveView(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.views[name]
	delete(r.views, name)
	return ok
}

// AddSource registers a source whose tables are named "name.table" or
// "name:table". A source registered under an existing name replaces it; the
// old source is closed.
func (r *Registry) AddSource(name string, src Source) error {
	if name == "" || name == FileScheme || reader.Supported(name) {
		return fmt.Errorf("invalid source name %q", name)
	}
	r.mu.Lock()
	old := r.sources[name]
	r.sources[name] = src
	r.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// Source returns a registered source.
func (r *Registry) Source(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// Views lists the registered view names in order.
func (r *Registry) Views() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.views))
}

// Sources lists the registered source names in order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sources))
}

// target is what serves a table name: a view, a file read in a format, or
// a table of a source.
type target struct {
	view   *stream.Table
	format string
	src    Source
	table  string
	opts   reader.Options
}

func (r *Registry) lookup(name string) target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.views[name]; ok {
		return target{view: &v}
	}

	n := ParseName(name)
	switch {
	case n.Source == "":
	case n.Scheme && n.Source == FileScheme:
		return target{src: r.files, table: n.Path, opts: n.Options}
	case n.Scheme && reader.Supported(n.Source):
		return target{format: n.Source, table: n.Path, opts: n.Options}
	default:
		if s, ok := r.sources[n.Source]; ok {
			return target{src: s, table: n.Path, opts: n.Options}
		}
	}

	// A bare file name such as "sales.csv".
	if reader.Supported(filepath.Ext(name)) {
		return target{src: r.files, table: name}
	}
	return target{}
}

// Has reports whether a table name can be served.
func (r *Registry) Has(name string) bool {
	t := r.lookup(name)
	switch {
	case t.view != nil:
		return true
	case t.format != "":
		return isFile(t.table) || isGlob(t.table)
	case t.src != nil:
		return t.src.Has(t.table)
	}
	return false
}

// Get returns the header of a table and a stream that reads it.
func (r *Registry) Get(name string) (stream.Header, stream.RowStream, error) {
	t := r.lookup(name)
	switch {
	case t.view != nil:
		return t.view.Header, t.view.Rows, nil
	case t.format != "":
		r.logger.WithFields(logrus.Fields{"table": t.table, "source": t.format}).Debug("opening file")
		return reader.Open(t.table, t.format, t.opts)
	case t.src != nil && t.src.Has(t.table):
		r.logger.WithFields(logrus.Fields{"table": t.table, "source": name}).Debug("opening table")
		return t.src.Get(t.table, t.opts)
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Close closes every registered source and reports all failures.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs *multierror.Error
	for _, name := range slices.Sorted(maps.Keys(r.sources)) {
		if err := r.sources[name].Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close %s: %w", name, err))
		}
	}
	r.sources = make(map[string]Source)
	return errs.ErrorOrNil()
}
