// Package resolve binds the names of a parsed statement and decides where
// every derived value is computed.
//
// Resolution runs in two passes. The first binds each identifier to a table
// column, a projection alias, a column of an enclosing statement or a global
// symbol, and records for every variable which other variables it needs.
// The second claims each derived variable for the earliest stage that needs
// it (join, filter, grouping, ordering, projection), so a value is computed
// once and is available to every later stage.
package resolve

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/eval"
	"github.com/vegasq/virtsql/stream"
)

// Catalog resolves table names to sources.
type Catalog interface {
	Has(name string) bool
	Get(name string) (stream.Header, stream.RowStream, error)
}

type viewState int

const (
	viewActive viewState = iota + 1
	viewDone
)

type resolver struct {
	catalog Catalog
	symbols *eval.Registry

	refs  map[*ast.Variable]*pending
	using map[*ast.JoinNode][][2]*ast.ColumnRef
	views map[*ast.Statement]viewState

	keyVars map[*ast.Variable]bool

	names   []string
	errs    *multierror.Error
	failure error
}

// Resolve binds stmt, its views and its subqueries in place. Unresolved
// names are collected across the whole statement and reported together.
func Resolve(stmt *ast.Statement, catalog Catalog, symbols *eval.Registry) error {
	if symbols == nil {
		symbols = eval.NewRegistry()
	}
	r := &resolver{
		catalog: catalog,
		symbols: symbols,
		refs:    make(map[*ast.Variable]*pending),
		using:   make(map[*ast.JoinNode][][2]*ast.ColumnRef),
		views:   make(map[*ast.Statement]viewState),
		keyVars: make(map[*ast.Variable]bool),
	}
	if err := r.statement(stmt, nil); err != nil {
		return err
	}
	if r.failure != nil {
		return r.failure
	}
	if len(r.names) > 0 {
		return &CompileError{Kind: ErrUnresolved, Names: r.names, Err: r.errs.ErrorOrNil()}
	}
	return nil
}

func (r *resolver) fail(err error) {
	if r.failure == nil {
		r.failure = err
	}
}

func (r *resolver) unresolved(c clause, name string) {
	r.names = append(r.names, name)
	r.errs = multierror.Append(r.errs, fmt.Errorf("%w %s in %s", ErrUnresolved, name, c))
}

func (r *resolver) statement(stmt *ast.Statement, parent *Scope) error {
	sc := newScope(stmt, parent)
	if err := r.bindSource(sc, stmt.Source); err != nil {
		return err
	}
	if stmt.Wildcard {
		r.expandWildcard(sc)
	}
	r.nameColumns(sc)

	for _, v := range stmt.Columns {
		p := newPending(clauseSelect, v)
		v.Value = r.visit(sc, v.Value, p)
		if !v.Aggregate {
			r.refs[v] = p
		}
		// Bare once bound to a source column; an alias, outer column or
		// constant is computed.
		if ref, ok := v.Value.(*ast.ColumnRef); ok && v.Alias == "" && ref.Table != nil {
			v.Bare = true
		}
	}
	r.bindJoins(sc, stmt.Source)
	stmt.Where = r.visit(sc, stmt.Where, newPending(clauseWhere, nil))
	for _, ref := range stmt.GroupBy {
		r.bind(sc, ref, newPending(clauseGroupBy, nil))
	}
	for _, ref := range stmt.OrderBy {
		r.bind(sc, ref, newPending(clauseOrderBy, nil))
	}
	if r.failure != nil || len(r.names) > 0 {
		return nil
	}

	qualifyCollisions(sc)
	for _, v := range stmt.Columns {
		if ref, ok := v.Value.(*ast.ColumnRef); ok && v.Bare {
			v.Name = ref.Field()
		}
	}
	if err := r.validateGrouping(sc); err != nil {
		return err
	}
	return r.claimAll(sc)
}

// bindSource binds the tables of FROM in declaration order.
func (r *resolver) bindSource(sc *Scope, src ast.Source) error {
	switch s := src.(type) {
	case nil:
		return nil
	case *ast.TableRef:
		return r.bindTable(sc, s)
	case *ast.JoinNode:
		if err := r.bindSource(sc, s.Left); err != nil {
			return err
		}
		return r.bindSource(sc, s.Right)
	}
	return fmt.Errorf("unsupported source %T", src)
}

func (r *resolver) bindTable(sc *Scope, t *ast.TableRef) error {
	label := t.Label()
	for _, other := range sc.tables {
		if other.Label() == label {
			return compileError(ErrDuplicateTable, "FROM", label)
		}
	}
	if view, ok := sc.stmt.LookupView(t.Name); ok {
		if err := r.view(view, t.Name); err != nil {
			return err
		}
		t.View = view
		t.Header = view.Names()
	} else if r.catalog != nil && r.catalog.Has(t.Name) {
		header, _, err := r.catalog.Get(t.Name)
		if err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		t.Header = header
	} else {
		return compileError(ErrUnknownTable, "FROM", t.Name)
	}
	sc.tables = append(sc.tables, t)
	return nil
}

func (r *resolver) view(view *ast.Statement, name string) error {
	switch r.views[view] {
	case viewDone:
		return nil
	case viewActive:
		return compileError(ErrCircular, "WITH", name)
	}
	r.views[view] = viewActive
	if err := r.statement(view, nil); err != nil {
		return err
	}
	r.views[view] = viewDone
	if n := len(view.ViewColumns); n > 0 && n != len(view.Columns) {
		return &CompileError{Kind: ErrUnknownTarget, Clause: "WITH",
			Err: fmt.Errorf("view %s names %d columns but selects %d", name, n, len(view.Columns))}
	}
	return nil
}

func (r *resolver) subquery(sc *Scope, stmt *ast.Statement) {
	if err := r.statement(stmt, sc); err != nil {
		r.fail(err)
		return
	}
	if n := len(stmt.Columns); n != 1 {
		r.fail(&CompileError{Kind: ErrSubquery, Err: fmt.Errorf("subquery must select one column, got %d", n)})
	}
}

// expandWildcard puts every column of every table, in declaration order,
// ahead of the explicit projection items.
func (r *resolver) expandWildcard(sc *Scope) {
	var cols []*ast.Variable
	for _, t := range sc.tables {
		for _, c := range t.Header {
			cols = append(cols, &ast.Variable{Value: &ast.ColumnRef{Name: c, Table: t, Column: c}})
		}
	}
	sc.stmt.Columns = append(cols, sc.stmt.Columns...)
	sc.stmt.Wildcard = false
}

// nameColumns names the projection items and registers their aliases. A
// plain column reference keeps its column name; other unnamed items get a
// generated one.
func (r *resolver) nameColumns(sc *Scope) {
	for _, v := range sc.stmt.Columns {
		switch ref, isRef := v.Value.(*ast.ColumnRef); {
		case v.Alias != "":
			v.Name = v.Alias
			sc.aliases[v.Alias] = v
		case isRef:
			_, v.Name = splitName(ref.Name)
			if ref.Table != nil {
				v.Name = ref.Column
			}
		default:
			v.Name = sc.generate()
		}
	}
}

// bindJoins binds USING columns and ON conditions, innermost joins first.
func (r *resolver) bindJoins(sc *Scope, src ast.Source) {
	j, ok := src.(*ast.JoinNode)
	if !ok {
		return
	}
	r.bindJoins(sc, j.Left)
	r.bindJoins(sc, j.Right)
	for _, name := range j.Using {
		left, right := findColumn(j.Left, name), findColumn(j.Right, name)
		if left == nil || right == nil {
			r.fail(&CompileError{Kind: ErrJoinCondition, Clause: "USING", Names: []string{name}})
			continue
		}
		lref := &ast.ColumnRef{Name: name, Table: left, Column: name}
		rref := &ast.ColumnRef{Name: name, Table: right, Column: name}
		left.Use(name)
		right.Use(name)
		r.using[j] = append(r.using[j], [2]*ast.ColumnRef{lref, rref})
	}
	j.On = r.visit(sc, j.On, newPending(clauseJoin, nil))
}

func findColumn(src ast.Source, column string) *ast.TableRef {
	for _, t := range src.Tables() {
		if t.HasColumn(column) {
			return t
		}
	}
	return nil
}

// qualifyCollisions prefixes a referenced column with its table label when
// more than one table references a column of that name.
func qualifyCollisions(sc *Scope) {
	count := make(map[string]int)
	for _, t := range sc.tables {
		for _, f := range t.Fields {
			count[f.Column]++
		}
	}
	for _, t := range sc.tables {
		for _, f := range t.Fields {
			if count[f.Column] > 1 {
				t.Qualify(f.Column)
			}
		}
	}
}
