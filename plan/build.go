package plan

import (
	"fmt"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/eval"
	"github.com/vegasq/virtsql/resolve"
	"github.com/vegasq/virtsql/stream"
)

type builder struct {
	catalog resolve.Catalog
	opts    options
	views   map[*ast.Statement]*Plan
}

var joinKinds = map[ast.JoinKind]stream.JoinKind{
	ast.JoinInner: stream.InnerJoin,
	ast.JoinLeft:  stream.LeftJoin,
	ast.JoinRight: stream.RightJoin,
	ast.JoinFull:  stream.FullJoin,
	ast.JoinCross: stream.CrossJoin,
}

func (b *builder) compiler(h stream.Header) *eval.Compiler {
	return &eval.Compiler{Header: h, Subquery: b.subquery}
}

func (b *builder) subquery(stmt *ast.Statement) (eval.Subplan, error) {
	return b.plan(stmt)
}

// plan chains the stages of a resolved statement.
func (b *builder) plan(stmt *ast.Statement) (*Plan, error) {
	h, root, err := b.source(stmt.Source)
	if err != nil {
		return nil, err
	}

	if stmt.Where != nil {
		if h, root, err = b.augment(h, root, stmt.WhereDeps); err != nil {
			return nil, err
		}
		if root, err = b.filter(h, root, stmt.Where); err != nil {
			return nil, err
		}
	}

	if stmt.Grouped() {
		if h, root, err = b.augment(h, root, stmt.GroupDeps); err != nil {
			return nil, err
		}
		if h, root, err = b.group(h, root, stmt); err != nil {
			return nil, err
		}
	}

	if len(stmt.OrderKeys) > 0 {
		if h, root, err = b.augment(h, root, stmt.OrderDeps); err != nil {
			return nil, err
		}
		if root, err = b.sort(h, root, stmt.OrderKeys, stmt.Desc); err != nil {
			return nil, err
		}
	}

	if root, err = b.project(h, root, stmt); err != nil {
		return nil, err
	}
	if stmt.Distinct {
		in := root
		root = func(p eval.Params) (stream.RowStream, error) {
			rows, err := in(p)
			if err != nil {
				return nil, err
			}
			return stream.Distinct(rows), nil
		}
	}
	return &Plan{header: stmt.Names(), params: paramNames(stmt), root: root}, nil
}

// source plans FROM: scans of tables and views joined left to right.
func (b *builder) source(src ast.Source) (stream.Header, node, error) {
	switch s := src.(type) {
	case nil:
		return stream.Header{}, func(eval.Params) (stream.RowStream, error) {
			return stream.FromRows([]stream.Row{{}}), nil
		}, nil
	case *ast.TableRef:
		return b.scan(s)
	case *ast.JoinNode:
		return b.join(s)
	}
	return nil, nil, fmt.Errorf("unsupported source %T", src)
}

// scan reads the referenced columns of one table, numbering rows first when
// the row number is referenced.
func (b *builder) scan(t *ast.TableRef) (stream.Header, node, error) {
	var open node
	var header stream.Header
	if t.View != nil {
		view, ok := b.views[t.View]
		if !ok {
			var err error
			if view, err = b.plan(t.View); err != nil {
				return nil, nil, fmt.Errorf("view %s: %w", t.Name, err)
			}
			b.views[t.View] = view
		}
		header = view.Header()
		open = func(p eval.Params) (stream.RowStream, error) {
			_, rows, err := view.Execute(p)
			return rows, err
		}
	} else {
		h, rows, err := b.catalog.Get(t.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		header = h
		open = func(eval.Params) (stream.RowStream, error) { return rows, nil }
	}

	if t.RowNumber {
		header = header.Concat(stream.Header{ast.RowNumberColumn})
	}
	idx := make([]int, len(t.Fields))
	out := make(stream.Header, len(t.Fields))
	for i, f := range t.Fields {
		if idx[i] = header.Index(f.Column); idx[i] < 0 {
			return nil, nil, fmt.Errorf("table %s has no column %s", t.Name, f.Column)
		}
		out[i] = f.Field
	}
	number := t.RowNumber
	return out, func(p eval.Params) (stream.RowStream, error) {
		rows, err := open(p)
		if err != nil {
			return nil, err
		}
		if number {
			rows = stream.Number(rows)
		}
		return stream.Select(rows, idx), nil
	}, nil
}

func (b *builder) join(j *ast.JoinNode) (stream.Header, node, error) {
	lh, left, err := b.source(j.Left)
	if err != nil {
		return nil, nil, err
	}
	rh, right, err := b.source(j.Right)
	if err != nil {
		return nil, nil, err
	}
	if lh, left, err = b.augment(lh, left, j.LeftDeps); err != nil {
		return nil, nil, err
	}
	if rh, right, err = b.augment(rh, right, j.RightDeps); err != nil {
		return nil, nil, err
	}
	lkeys, err := indexes(lh, j.LeftKeys)
	if err != nil {
		return nil, nil, err
	}
	rkeys, err := indexes(rh, j.RightKeys)
	if err != nil {
		return nil, nil, err
	}
	kind := joinKinds[j.Kind]
	lw, rw := len(lh), len(rh)
	return lh.Concat(rh), func(p eval.Params) (stream.RowStream, error) {
		l, err := left(p)
		if err != nil {
			return nil, err
		}
		r, err := right(p)
		if err != nil {
			return nil, err
		}
		return stream.Join(kind,
			stream.JoinSide{Rows: l, Keys: lkeys, Width: lw},
			stream.JoinSide{Rows: r, Keys: rkeys, Width: rw}), nil
	}, nil
}

// augment appends one computed field per variable. Later variables may read
// the fields of earlier ones.
func (b *builder) augment(h stream.Header, in node, vars []*ast.Variable) (stream.Header, node, error) {
	if len(vars) == 0 {
		return h, in, nil
	}
	evs := make([]eval.Evaluator, len(vars))
	for i, v := range vars {
		ev, err := b.compiler(h).Compile(v.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		evs[i] = ev
		h = h.Concat(stream.Header{v.Name})
	}
	return h, func(p eval.Params) (stream.RowStream, error) {
		rows, err := in(p)
		if err != nil {
			return nil, err
		}
		return stream.Augment(rows, b.rowFuncs(evs, p)), nil
	}, nil
}

func (b *builder) filter(h stream.Header, in node, cond ast.Expr) (node, error) {
	ev, err := b.compiler(h).Compile(cond)
	if err != nil {
		return nil, fmt.Errorf("WHERE: %w", err)
	}
	return func(p eval.Params) (stream.RowStream, error) {
		rows, err := in(p)
		if err != nil {
			return nil, err
		}
		return stream.Filter(rows, func(row stream.Row) bool {
			r := ev(row, p)
			b.fault(r)
			return r.Truthy()
		}), nil
	}, nil
}

// group sorts by the grouping keys and reduces each run of equal keys, or
// collapses the whole input when there are no keys.
func (b *builder) group(h stream.Header, in node, stmt *ast.Statement) (stream.Header, node, error) {
	keys, err := indexes(h, stmt.GroupKeys)
	if err != nil {
		return nil, nil, err
	}
	evs := make([]eval.GroupEvaluator, len(stmt.Aggregates))
	out := append(stream.Header{}, stmt.GroupKeys...)
	for i, v := range stmt.Aggregates {
		if evs[i], err = b.compiler(h).CompileGroup(v.Value); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		out = append(out, v.Name)
	}
	return out, func(p eval.Params) (stream.RowStream, error) {
		rows, err := in(p)
		if err != nil {
			return nil, err
		}
		reducers := make([]stream.Reducer, len(evs))
		for i, ev := range evs {
			reducers[i] = func(group []stream.Row) any { return b.value(ev(group, p)) }
		}
		if len(keys) == 0 {
			return stream.Collapse(rows, reducers), nil
		}
		return stream.GroupReduce(stream.Sort(rows, keys, false, stream.Compare), keys, reducers), nil
	}, nil
}

func (b *builder) sort(h stream.Header, in node, names []string, desc bool) (node, error) {
	keys, err := indexes(h, names)
	if err != nil {
		return nil, err
	}
	return func(p eval.Params) (stream.RowStream, error) {
		rows, err := in(p)
		if err != nil {
			return nil, err
		}
		return stream.Sort(rows, keys, desc, b.opts.comparator()), nil
	}, nil
}

// project shapes the output header: untouched when the header already
// matches, narrowed when every output field exists, and otherwise remapped
// from the computed fields.
func (b *builder) project(h stream.Header, in node, stmt *ast.Statement) (node, error) {
	names := make([]string, len(stmt.Columns))
	for i, v := range stmt.Columns {
		names[i] = v.Name
	}
	if len(stmt.SelectDeps) == 0 {
		if h.Equal(names) {
			return in, nil
		}
		idx, err := indexes(h, names)
		if err != nil {
			return nil, err
		}
		return func(p eval.Params) (stream.RowStream, error) {
			rows, err := in(p)
			if err != nil {
				return nil, err
			}
			return stream.Narrow(rows, idx), nil
		}, nil
	}

	if !independent(stmt.SelectDeps) {
		ah, augmented, err := b.augment(h, in, stmt.SelectDeps)
		if err != nil {
			return nil, err
		}
		return b.project(ah, augmented, &ast.Statement{Columns: stmt.Columns})
	}

	computed := make(map[*ast.Variable]bool, len(stmt.SelectDeps))
	for _, v := range stmt.SelectDeps {
		computed[v] = true
	}
	evs := make([]eval.Evaluator, len(stmt.Columns))
	for i, v := range stmt.Columns {
		if !computed[v] {
			idx := h.Index(v.Name)
			if idx < 0 {
				return nil, fmt.Errorf("field %q is not available", v.Name)
			}
			evs[i] = func(row stream.Row, _ eval.Params) eval.Result { return eval.Ok(row[idx]) }
			continue
		}
		ev, err := b.compiler(h).Compile(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Name, err)
		}
		evs[i] = ev
	}
	return func(p eval.Params) (stream.RowStream, error) {
		rows, err := in(p)
		if err != nil {
			return nil, err
		}
		return stream.Remap(rows, b.rowFuncs(evs, p)), nil
	}, nil
}

// independent reports whether no variable reads the field of another, so
// all of them can be computed from the same input row.
func independent(vars []*ast.Variable) bool {
	set := make(map[*ast.Variable]bool, len(vars))
	for _, v := range vars {
		set[v] = true
	}
	ok := true
	for _, v := range vars {
		ast.Walk(v.Value, func(e ast.Expr) bool {
			if ref, isRef := e.(*ast.ColumnRef); isRef && set[ref.Var] {
				ok = false
			}
			return ok
		})
	}
	return ok
}

func (b *builder) rowFuncs(evs []eval.Evaluator, p eval.Params) []func(stream.Row) any {
	fns := make([]func(stream.Row) any, len(evs))
	for i, ev := range evs {
		fns[i] = func(row stream.Row) any { return b.value(ev(row, p)) }
	}
	return fns
}

// value turns an evaluation fault into a null cell.
func (b *builder) value(r eval.Result) any {
	b.fault(r)
	return r.OrNull()
}

func (b *builder) fault(r eval.Result) {
	if r.Err != nil {
		b.opts.log.WithError(r.Err).Debug("expression evaluated to null")
	}
}

func indexes(h stream.Header, names []string) ([]int, error) {
	idx := h.Indexes(names)
	for i, n := range idx {
		if n < 0 {
			return nil, fmt.Errorf("field %q is not available", names[i])
		}
	}
	return idx, nil
}
