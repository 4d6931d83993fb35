// Package plan turns a resolved statement into a reusable chain of stream
// operators.
//
// Stages run in a fixed order: scan, join, filter, group, sort, project and
// distinct. A stage that needs derived fields is preceded by an augment
// stage computing them. A Plan is immutable: every Execute builds a fresh
// operator chain, so executions never share buffers.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/eval"
	"github.com/vegasq/virtsql/resolve"
	"github.com/vegasq/virtsql/stream"
)

// Collation names besides language tags.
const (
	CollationBinary = "binary"
	CollationNoCase = "nocase"
)

// ErrUnboundParameter is returned by Execute when a parameter has no value.
var ErrUnboundParameter = eval.ErrUnboundParameter

// Option configures compilation.
type Option func(*options)

type options struct {
	log       logrus.FieldLogger
	collation string
}

// WithLogger sets the logger receiving evaluation faults at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithCollation sets how ORDER BY compares strings: "binary" (the default)
// compares bytes, "nocase" ignores case, and any other value is a BCP 47
// language tag selecting a locale collation.
func WithCollation(tag string) Option {
	return func(o *options) { o.collation = tag }
}

// node produces the rows of one stage for one execution.
type node func(p eval.Params) (stream.RowStream, error)

// Plan is a compiled statement.
type Plan struct {
	header stream.Header
	params []string
	root   node
}

// Compile resolves stmt against the catalog and the registry and plans it.
//
// Every name in stmt is bound here: tables through the catalog, functions
// and constants through symbols (the builtins when nil). Unknown names are
// reported together in one *resolve.CompileError. The registry is consulted
// only while compiling, so later registrations do not change the plan.
//
// The returned Plan is immutable and may be executed any number of times,
// also concurrently, with different parameters:
//
//	stmt, err := query.Parse("SELECT name FROM people WHERE age > :min")
//	if err != nil {
//	    return err
//	}
//	p, err := plan.Compile(stmt, catalog, nil, plan.WithCollation(plan.CollationNoCase))
//	if err != nil {
//	    return err
//	}
//	_, rows, err := p.Execute(eval.Params{"min": 30})
func Compile(stmt *ast.Statement, catalog resolve.Catalog, symbols *eval.Registry, opts ...Option) (*Plan, error) {
	if symbols == nil {
		symbols = eval.NewRegistry()
	}
	if err := resolve.Resolve(stmt, catalog, symbols); err != nil {
		return nil, err
	}
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.collation {
	case "", CollationBinary, CollationNoCase:
	default:
		if _, err := language.Parse(o.collation); err != nil {
			return nil, fmt.Errorf("invalid collation %q: %w", o.collation, err)
		}
	}
	b := &builder{catalog: catalog, opts: o, views: make(map[*ast.Statement]*Plan)}
	return b.plan(stmt)
}

// Header returns the output field names.
func (p *Plan) Header() stream.Header {
	return p.header
}

// Params returns the names of the parameters the plan needs, sorted.
func (p *Plan) Params() []string {
	return p.params
}

// Execute binds params and returns the output header and a lazy stream of
// result rows. No rows are read until the stream is ranged over.
func (p *Plan) Execute(params eval.Params) (stream.Header, stream.RowStream, error) {
	for _, name := range p.params {
		if _, ok := params[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnboundParameter, name)
		}
	}
	rows, err := p.root(eval.WithMemo(params))
	if err != nil {
		return nil, nil, err
	}
	return p.header, rows, nil
}

func paramNames(stmt *ast.Statement) []string {
	names := make([]string, 0, len(stmt.Params))
	for name := range stmt.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// comparator returns the ordering for ORDER BY. Collators are not safe for
// concurrent use, so each execution builds its own.
func (o options) comparator() stream.Comparator {
	switch o.collation {
	case "", CollationBinary:
		return stream.Compare
	case CollationNoCase:
		return stream.Collated(func(a, b string) int {
			return strings.Compare(strings.ToLower(a), strings.ToLower(b))
		})
	}
	c := collate.New(language.Make(o.collation))
	return stream.Collated(c.CompareString)
}
