// Package virtsql runs SQL SELECT queries over in-memory views, data files
// and SQL databases.
//
// A DB holds the views, sources and functions queries can use:
//
//	db, err := virtsql.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	db.AddView("people", []string{"id", "name"}, []stream.Row{{int64(1), "ann"}})
//	if err := db.AddDirectory("data", "./data"); err != nil {
//	    log.Fatal(err)
//	}
//
//	header, rows, err := db.Query("SELECT name, amount FROM people JOIN data.sales USING (id)", nil)
//
// Tables are named "view", "source.table" for registered databases and
// directories, or "format:path?options" for files, for example
// 'csv:sales.txt?delimiter=;'.
package virtsql

import (
	"errors"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/vegasq/virtsql/eval"
	"github.com/vegasq/virtsql/output"
	"github.com/vegasq/virtsql/plan"
	"github.com/vegasq/virtsql/query"
	"github.com/vegasq/virtsql/source"
	"github.com/vegasq/virtsql/stream"
)

// DefaultPlanCacheSize is the number of compiled plans a DB keeps.
const DefaultPlanCacheSize = 128

// ErrViewParams is returned for SQL views that use parameters.
var ErrViewParams = errors.New("views cannot take parameters")

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. The default is a new logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithCollation sets the string ordering of ORDER BY: "binary", "nocase" or
// a BCP 47 language tag.
func WithCollation(collation string) Option {
	return func(db *DB) { db.collation = collation }
}

// WithPlanCacheSize sets how many compiled plans are kept. Zero disables
// the cache.
func WithPlanCacheSize(n int) Option {
	return func(db *DB) { db.cacheSize = n }
}

// DB is a virtual database. It is safe for concurrent use.
type DB struct {
	log       *logrus.Logger
	collation string
	cacheSize int

	tables  *source.Registry
	symbols *eval.Registry
	plans   *lru.Cache // SQL text -> *plan.Plan
}

// New creates an empty DB.
func New(opts ...Option) (*DB, error) {
	db := &DB{
		log:       logrus.New(),
		cacheSize: DefaultPlanCacheSize,
		symbols:   eval.NewRegistry(),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.tables = source.NewRegistry(db.log)

	if db.cacheSize > 0 {
		cache, err := lru.New(db.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create plan cache: %w", err)
		}
		db.plans = cache
	}
	return db, nil
}

// Logger returns the DB's logger.
func (db *DB) Logger() *logrus.Logger {
	return db.log
}

// AddView registers in-memory rows as a view. Every row must have one value
// per header name.
func (db *DB) AddView(name string, header []string, rows []stream.Row) error {
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("view %s: row %d has %d values, want %d", name, i, len(row), len(header))
		}
	}
	db.AddTable(name, stream.Table{Header: header, Rows: stream.FromRows(rows)})
	return nil
}

// AddTable registers a table as a view. The stream is ranged over once per
// query execution that reads it.
func (db *DB) AddTable(name string, table stream.Table) {
	db.tables.AddView(name, table)
	db.purge()
	db.log.WithField("table", name).Debug("view added")
}

// AddSQLView registers a view defined by a query. The query is compiled
// now and runs whenever the view is read.
func (db *DB) AddSQLView(name, sql string) error {
	p, err := db.compile(sql)
	if err != nil {
		return fmt.Errorf("view %s: %w", name, err)
	}
	if len(p.Params()) > 0 {
		return fmt.Errorf("view %s: %w: %v", name, ErrViewParams, p.Params())
	}
	rows := func(yield func(stream.Row, error) bool) {
		_, rows, err := p.Execute(nil)
		if err != nil {
			yield(nil, err)
			return
		}
		for row, err := range rows {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
	db.AddTable(name, stream.Table{Header: p.Header(), Rows: rows})
	return nil
}

// RemoveView drops a view.
func (db *DB) RemoveView(name string) {
	if db.tables.RemoveView(name) {
		db.purge()
	}
}

// AddDatabase connects to a SQL database and serves its tables as
// "name.table". See source.OpenDatabase for the URL forms.
func (db *DB) AddDatabase(name, url string) error {
	conn, err := source.OpenDatabase(url)
	if err != nil {
		return fmt.Errorf("database %s: %w", name, err)
	}
	if err := db.tables.AddSource(name, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("database %s: %w", name, err)
	}
	db.purge()
	db.log.WithField("source", name).Info("database added")
	return nil
}

// AddDirectory serves the data files below path as "name.table".
func (db *DB) AddDirectory(name, path string) error {
	dir, err := source.NewDirectory(path)
	if err != nil {
		return fmt.Errorf("directory %s: %w", name, err)
	}
	if err := db.tables.AddSource(name, dir); err != nil {
		return fmt.Errorf("directory %s: %w", name, err)
	}
	db.purge()
	db.log.WithFields(logrus.Fields{"source": name, "path": dir.Root()}).Info("directory added")
	return nil
}

// RegisterFunction makes a scalar function callable from queries. Names are
// case-insensitive.
func (db *DB) RegisterFunction(name string, fn func(args ...any) (any, error)) {
	db.Register(eval.FuncOf(name, fn))
}

// Register makes a scalar function with checked arity callable from queries.
func (db *DB) Register(fn eval.Function) {
	db.symbols.Register(fn)
	db.purge()
}

// RegisterAggregate makes an aggregate callable from queries. newAggregator
// is called once per group.
func (db *DB) RegisterAggregate(name string, newAggregator func() eval.Aggregator) {
	db.symbols.RegisterAggregate(eval.AggregateOf(name, newAggregator))
	db.purge()
}

// Define binds a named constant that queries can reference like a column.
func (db *DB) Define(name string, value any) {
	db.symbols.Define(name, value)
	db.purge()
}

// Compile parses and plans a query. Plans are cached by query text.
func (db *DB) Compile(sql string) (*plan.Plan, error) {
	return db.compile(sql)
}

func (db *DB) compile(sql string) (*plan.Plan, error) {
	if db.plans != nil {
		if p, ok := db.plans.Get(sql); ok {
			db.log.WithFields(logrus.Fields{"sql": sql, "cached": true}).Debug("compiled query")
			return p.(*plan.Plan), nil
		}
	}

	stmt, err := query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	p, err := plan.Compile(stmt, db.tables, db.symbols,
		plan.WithLogger(db.log), plan.WithCollation(db.collation))
	if err != nil {
		return nil, err
	}

	if db.plans != nil {
		db.plans.Add(sql, p)
	}
	db.log.WithFields(logrus.Fields{"sql": sql, "cached": false}).Debug("compiled query")
	return p, nil
}

// Query compiles sql and executes it with params. No rows are read until
// the stream is ranged over.
//
// Named parameters are written :name in the query and bound from params;
// a parameter missing from params fails with plan.ErrUnboundParameter.
// The plan comes from the cache when the same text was compiled before.
//
// Example:
//
//	header, rows, err := db.Query("SELECT name FROM people WHERE id = :id", map[string]any{"id": 1})
//	if err != nil {
//	    return err
//	}
//	for row, err := range rows {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(header[0], row[0])
//	}
func (db *DB) Query(sql string, params map[string]any) (stream.Header, stream.RowStream, error) {
	p, err := db.Compile(sql)
	if err != nil {
		return nil, nil, err
	}
	return p.Execute(params)
}

// Load runs a query and writes its rows into target, replacing the rows
// already there unless appendRows is set. It returns the number of rows
// written. A target is one of:
//
//	db.table          a table of a registered database; the table must exist
//	dir.name          a file of a registered directory, created as CSV when new
//	csv:path, jsonl:path, file:path or a bare "path.csv"
//
// The query result is read in full before the target is written, so a query
// may read the table it replaces:
//
//	n, err := db.Load("SELECT * FROM shop.orders WHERE total > 100", nil, "archive.big_orders", true)
func (db *DB) Load(sql string, params map[string]any, target string, appendRows bool) (int64, error) {
	header, rows, err := db.Query(sql, params)
	if err != nil {
		return 0, err
	}
	n, err := db.tables.Load(target, header, rows, appendRows)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", target, err)
	}
	db.purge()
	db.log.WithFields(logrus.Fields{"table": target, "rows": n, "append": appendRows}).Info("rows loaded")
	return n, nil
}

// Look prints up to limit rows of a query as a table. A limit of zero or
// less prints every row.
func (db *DB) Look(w io.Writer, sql string, params map[string]any, limit int) error {
	header, rows, err := db.Query(sql, params)
	if err != nil {
		return err
	}
	if limit > 0 {
		rows = stream.Limit(rows, limit)
	}
	return output.NewTableFormatter(w).Format(header, rows)
}

// Tables lists the registered views and, for every source, its tables as
// "source.table".
func (db *DB) Tables() ([]string, error) {
	names := db.tables.Views()
	for _, name := range db.tables.Sources() {
		src, _ := db.tables.Source(name)
		tables, err := src.Tables()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		for _, t := range tables {
			names = append(names, name+"."+t)
		}
	}
	return names, nil
}

// Close closes every database connection.
func (db *DB) Close() error {
	db.purge()
	return db.tables.Close()
}

// purge drops cached plans. Plans bind names when compiled, so any change
// to views, sources or functions invalidates them.
func (db *DB) purge() {
	if db.plans != nil {
		db.plans.Purge()
	}
}
