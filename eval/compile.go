package eval

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/stream"
)

// ErrUnboundParameter is returned when a parameter has no value at execution.
var ErrUnboundParameter = errors.New("unbound parameter")

// Subplan is a compiled nested statement.
type Subplan interface {
	Execute(p Params) (stream.Header, stream.RowStream, error)
}

// Compiler turns expressions into evaluators over rows described by Header.
type Compiler struct {
	Header stream.Header

	// Subquery compiles nested statements. Required only when expressions
	// contain subqueries.
	Subquery func(*ast.Statement) (Subplan, error)
}

type compileFunc func(c *Compiler, e ast.Expr) (Evaluator, error)

var rowCompilers [ast.KindCount]compileFunc

func init() {
	rowCompilers = [ast.KindCount]compileFunc{
		ast.KindColumn:       compileColumn,
		ast.KindLiteral:      compileLiteral,
		ast.KindParam:        compileParam,
		ast.KindNot:          compileNot,
		ast.KindArith:        compileArith,
		ast.KindAnd:          compileAnd,
		ast.KindOr:           compileOr,
		ast.KindCompare:      compileCompare,
		ast.KindBetween:      compileBetween,
		ast.KindLike:         compileLike,
		ast.KindIn:           compileIn,
		ast.KindContaining:   compileContaining,
		ast.KindStarting:     compileStarting,
		ast.KindDistinctFrom: compileDistinctFrom,
		ast.KindIsTruth:      compileIsTruth,
		ast.KindSimpleCase:   compileSimpleCase,
		ast.KindSearchedCase: compileSearchedCase,
		ast.KindAggregate:    compileMisplacedAggregate,
		ast.KindFunction:     compileFunction,
		ast.KindSubquery:     compileSubquery,
	}
}

// Compile builds a row evaluator for e.
func (c *Compiler) Compile(e ast.Expr) (Evaluator, error) {
	if e == nil {
		return func(stream.Row, Params) Result { return Ok(nil) }, nil
	}
	return rowCompilers[e.Kind()](c, e)
}

func (c *Compiler) compileAll(exprs []ast.Expr) ([]Evaluator, error) {
	out := make([]Evaluator, len(exprs))
	for i, e := range exprs {
		ev, err := c.Compile(e)
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

// OuterParam is the hidden parameter carrying a correlated outer field into
// a subquery.
func OuterParam(ref *ast.ColumnRef) string {
	return "^" + ref.Field()
}

func compileColumn(c *Compiler, e ast.Expr) (Evaluator, error) {
	ref := e.(*ast.ColumnRef)
	switch {
	case ref.Outer != nil:
		key := OuterParam(ref.Outer)
		return func(_ stream.Row, p Params) Result {
			v, ok := p[key]
			if !ok {
				return Fault(fmt.Errorf("outer reference %s is not bound", ref.Name))
			}
			return Ok(v)
		}, nil
	case ref.Symbol != nil:
		switch s := ref.Symbol.(type) {
		case *Constant:
			v := s.Value
			return func(stream.Row, Params) Result { return Ok(v) }, nil
		case Function:
			return compileCall(c, s, nil)
		default:
			return nil, fmt.Errorf("%s cannot be used as a value", ref.Name)
		}
	}

	field := ref.Field()
	idx := c.Header.Index(field)
	if idx < 0 {
		return nil, fmt.Errorf("field %q is not available here", field)
	}
	return func(row stream.Row, _ Params) Result { return Ok(row[idx]) }, nil
}

func compileLiteral(_ *Compiler, e ast.Expr) (Evaluator, error) {
	v := e.(*ast.Literal).Value
	return func(stream.Row, Params) Result { return Ok(v) }, nil
}

func compileParam(_ *Compiler, e ast.Expr) (Evaluator, error) {
	name := e.(*ast.Param).Name
	return func(_ stream.Row, p Params) Result {
		v, ok := p[name]
		if !ok {
			return Fault(fmt.Errorf("%w: %s", ErrUnboundParameter, name))
		}
		return Ok(v)
	}, nil
}

func compileNot(c *Compiler, e ast.Expr) (Evaluator, error) {
	x, err := c.Compile(e.(*ast.Not).X)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		r := x(row, p)
		if r.Null() {
			return r
		}
		return Ok(!r.Truthy())
	}, nil
}

func compileArith(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Arith)
	l, err := c.Compile(n.L)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(n.R)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(row stream.Row, p Params) Result {
		a, b := l(row, p), r(row, p)
		if a.Null() || b.Null() {
			return firstFault(a, b)
		}
		v, err := arithmetic(op, a.Value, b.Value)
		if err != nil {
			return Fault(err)
		}
		return Ok(v)
	}, nil
}

// firstFault returns the first failed result, or NULL.
func firstFault(results ...Result) Result {
	for _, r := range results {
		if r.Err != nil {
			return r
		}
	}
	return Ok(nil)
}

// compileAnd evaluates every operand; NULL and faults count as false.
func compileAnd(c *Compiler, e ast.Expr) (Evaluator, error) {
	args, err := c.compileAll(e.(*ast.And).Args)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		all := true
		for _, arg := range args {
			if !arg(row, p).Truthy() {
				all = false
			}
		}
		return Ok(all)
	}, nil
}

// compileOr evaluates every operand; NULL and faults count as false.
func compileOr(c *Compiler, e ast.Expr) (Evaluator, error) {
	args, err := c.compileAll(e.(*ast.Or).Args)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		found := false
		for _, arg := range args {
			if arg(row, p).Truthy() {
				found = true
			}
		}
		return Ok(found)
	}, nil
}

func compileCompare(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Compare)
	l, err := c.Compile(n.L)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(n.R)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(row stream.Row, p Params) Result {
		a, b := l(row, p), r(row, p)
		if a.Null() || b.Null() {
			return firstFault(a, b)
		}
		ok, err := compareOp(op, a.Value, b.Value)
		if err != nil {
			return Fault(err)
		}
		return Ok(ok)
	}, nil
}

func compileBetween(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Between)
	evs, err := c.compileAll([]ast.Expr{n.X, n.Lo, n.Hi})
	if err != nil {
		return nil, err
	}
	within := func(x, lo, hi any) (bool, error) {
		above, err := compareOp(">=", x, lo)
		if err != nil || !above {
			return false, err
		}
		return compareOp("<=", x, hi)
	}
	return func(row stream.Row, p Params) Result {
		x, lo, hi := evs[0](row, p), evs[1](row, p), evs[2](row, p)
		if x.Null() || lo.Null() || hi.Null() {
			return firstFault(x, lo, hi)
		}
		ok, err := within(x.Value, lo.Value, hi.Value)
		if err == nil && !ok && n.Symmetric {
			ok, err = within(x.Value, hi.Value, lo.Value)
		}
		if err != nil {
			return Fault(err)
		}
		return Ok(ok != n.Negated)
	}, nil
}

func compileLike(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Like)
	x, err := c.Compile(n.X)
	if err != nil {
		return nil, err
	}
	rx, err := PatternToRegexp(n.Pattern, n.Escape, n.Regex)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		r := x(row, p)
		if r.Null() {
			return r
		}
		s, err := valueToString(r.Value)
		if err != nil {
			return Fault(err)
		}
		return Ok(rx.MatchString(s) != n.Negated)
	}, nil
}

func compileIn(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.In)
	x, err := c.Compile(n.X)
	if err != nil {
		return nil, err
	}

	var candidates func(row stream.Row, p Params) ([]any, error)
	if n.Query != nil {
		sub, err := c.compileSubplan(n.Query.Stmt)
		if err != nil {
			return nil, err
		}
		candidates = func(row stream.Row, p Params) ([]any, error) {
			return sub.column(row, p)
		}
	} else {
		list, err := c.compileAll(n.List)
		if err != nil {
			return nil, err
		}
		candidates = func(row stream.Row, p Params) ([]any, error) {
			values := make([]any, len(list))
			for i, ev := range list {
				values[i] = ev(row, p).OrNull()
			}
			return values, nil
		}
	}

	return func(row stream.Row, p Params) Result {
		r := x(row, p)
		if r.Null() {
			return r
		}
		values, err := candidates(row, p)
		if err != nil {
			return Fault(err)
		}
		for _, v := range values {
			if v == nil {
				continue
			}
			if eq, err := equal(r.Value, v); err == nil && eq {
				return Ok(!n.Negated)
			}
		}
		return Ok(n.Negated)
	}, nil
}

func compileStringTest(c *Compiler, x, y ast.Expr, negated bool, test func(s, sub string) bool) (Evaluator, error) {
	xe, err := c.Compile(x)
	if err != nil {
		return nil, err
	}
	ye, err := c.Compile(y)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		a, b := xe(row, p), ye(row, p)
		if a.Null() || b.Null() {
			return firstFault(a, b)
		}
		s, err := valueToString(a.Value)
		if err != nil {
			return Fault(err)
		}
		sub, err := valueToString(b.Value)
		if err != nil {
			return Fault(err)
		}
		return Ok(test(s, sub) != negated)
	}, nil
}

func compileContaining(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Containing)
	return compileStringTest(c, n.X, n.Y, n.Negated, strings.Contains)
}

func compileStarting(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Starting)
	return compileStringTest(c, n.X, n.Y, n.Negated, strings.HasPrefix)
}

func compileDistinctFrom(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.DistinctFrom)
	l, err := c.Compile(n.L)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(n.R)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		a, b := l(row, p), r(row, p)
		if a.Err != nil || b.Err != nil {
			return firstFault(a, b)
		}
		var distinct bool
		switch {
		case a.Value == nil && b.Value == nil:
			distinct = false
		case a.Value == nil || b.Value == nil:
			distinct = true
		default:
			eq, err := equal(a.Value, b.Value)
			distinct = err != nil || !eq
		}
		return Ok(distinct != n.Negated)
	}, nil
}

// compileIsTruth tests identity with TRUE, FALSE or NULL. A fault counts as
// a failed test.
func compileIsTruth(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.IsTruth)
	x, err := c.Compile(n.X)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		r := x(row, p)
		var is bool
		switch {
		case r.Err != nil:
			is = false
		case n.Value == nil:
			is = r.Value == nil
		default:
			b, ok := r.Value.(bool)
			is = ok && b == *n.Value
		}
		return Ok(is != n.Negated)
	}, nil
}

type branch struct {
	cond   Evaluator
	result Evaluator
	test   bool
}

func (c *Compiler) compileBranches(whens []ast.When, els ast.Expr) ([]branch, Evaluator, error) {
	branches := make([]branch, len(whens))
	for i, w := range whens {
		cond, err := c.Compile(w.Cond)
		if err != nil {
			return nil, nil, err
		}
		result, err := c.Compile(w.Result)
		if err != nil {
			return nil, nil, err
		}
		branches[i] = branch{cond: cond, result: result, test: w.Test}
	}
	elseEv, err := c.Compile(els)
	if err != nil {
		return nil, nil, err
	}
	return branches, elseEv, nil
}

func compileSimpleCase(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.SimpleCase)
	sw, err := c.Compile(n.Switch)
	if err != nil {
		return nil, err
	}
	branches, elseEv, err := c.compileBranches(n.Whens, n.Else)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		value := sw(row, p)
		for _, b := range branches {
			cond := b.cond(row, p)
			if b.test {
				if cond.Truthy() {
					return b.result(row, p)
				}
				continue
			}
			if value.Null() || cond.Null() {
				continue
			}
			if eq, err := equal(value.Value, cond.Value); err == nil && eq {
				return b.result(row, p)
			}
		}
		return elseEv(row, p)
	}, nil
}

func compileSearchedCase(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.SearchedCase)
	branches, elseEv, err := c.compileBranches(n.Whens, n.Else)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		for _, b := range branches {
			if b.cond(row, p).Truthy() {
				return b.result(row, p)
			}
		}
		return elseEv(row, p)
	}, nil
}

func compileMisplacedAggregate(_ *Compiler, e ast.Expr) (Evaluator, error) {
	return nil, fmt.Errorf("aggregate %s is not allowed here", e.(*ast.Aggregate).Func)
}

func compileFunction(c *Compiler, e ast.Expr) (Evaluator, error) {
	n := e.(*ast.Function)
	switch fn := n.Symbol.(type) {
	case Function:
		return compileCall(c, fn, n.Args)
	case AggregateFunction:
		return nil, fmt.Errorf("aggregate %s is not allowed here", n.Name)
	default:
		return nil, fmt.Errorf("unknown function %s", n.Name)
	}
}

func compileCall(c *Compiler, fn Function, argExprs []ast.Expr) (Evaluator, error) {
	if err := CheckArity(fn, len(argExprs)); err != nil {
		return nil, err
	}
	args, err := c.compileAll(argExprs)
	if err != nil {
		return nil, err
	}
	strict := isStrict(fn)
	return func(row stream.Row, p Params) Result {
		values := make([]any, len(args))
		for i, arg := range args {
			r := arg(row, p)
			if strict && r.Null() {
				return firstFault(r)
			}
			values[i] = r.OrNull()
		}
		v, err := fn.Evaluate(values)
		if err != nil {
			return Fault(err)
		}
		return Ok(v)
	}, nil
}

// boundSubplan runs a nested statement with the outer fields of the current
// row passed as hidden parameters.
type boundSubplan struct {
	plan  Subplan
	outer []int
	keys  []string
}

func (c *Compiler) compileSubplan(stmt *ast.Statement) (*boundSubplan, error) {
	if c.Subquery == nil {
		return nil, fmt.Errorf("subqueries are not supported here")
	}
	plan, err := c.Subquery(stmt)
	if err != nil {
		return nil, err
	}
	b := &boundSubplan{plan: plan}
	for _, ref := range stmt.Outer {
		idx := c.Header.Index(ref.Outer.Field())
		if idx < 0 {
			// Bound further out and forwarded through the parameters.
			continue
		}
		b.outer = append(b.outer, idx)
		b.keys = append(b.keys, OuterParam(ref.Outer))
	}
	return b, nil
}

// column returns the first column of the nested statement. A statement with
// no outer references runs once per execution when p carries a memo.
func (b *boundSubplan) column(row stream.Row, p Params) ([]any, error) {
	if len(b.outer) == 0 {
		if m, ok := p[memoParam].(*memo); ok {
			return m.load(b, func() ([]any, error) { return b.run(row, p) })
		}
	}
	return b.run(row, p)
}

func (b *boundSubplan) run(row stream.Row, p Params) ([]any, error) {
	params := p
	if len(b.outer) > 0 {
		params = maps.Clone(p)
		if params == nil {
			params = make(Params, len(b.outer))
		}
		for i, idx := range b.outer {
			params[b.keys[i]] = row[idx]
		}
	}
	_, rows, err := b.plan.Execute(params)
	if err != nil {
		return nil, err
	}
	var values []any
	for r, err := range rows {
		if err != nil {
			return nil, err
		}
		if len(r) > 0 {
			values = append(values, r[0])
		}
	}
	return values, nil
}

// memoParam is the hidden parameter holding an execution's memo.
const memoParam = "\x00memo"

// memo holds the results of uncorrelated subqueries for one execution.
type memo struct {
	mu     sync.Mutex
	values map[*boundSubplan][]any
}

// WithMemo returns params carrying a fresh memo for one execution. Params
// that already carry one, as those of a nested execution do, are returned
// unchanged.
func WithMemo(p Params) Params {
	if _, ok := p[memoParam]; ok {
		return p
	}
	out := make(Params, len(p)+1)
	maps.Copy(out, p)
	out[memoParam] = &memo{values: make(map[*boundSubplan][]any)}
	return out
}

func (m *memo) load(b *boundSubplan, compute func() ([]any, error)) ([]any, error) {
	m.mu.Lock()
	values, ok := m.values[b]
	m.mu.Unlock()
	if ok {
		return values, nil
	}
	values, err := compute()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.values[b] = values
	m.mu.Unlock()
	return values, nil
}

func compileSubquery(c *Compiler, e ast.Expr) (Evaluator, error) {
	sub, err := c.compileSubplan(e.(*ast.Subquery).Stmt)
	if err != nil {
		return nil, err
	}
	return func(row stream.Row, p Params) Result {
		values, err := sub.column(row, p)
		if err != nil {
			return Fault(err)
		}
		if len(values) == 0 {
			return Ok(nil)
		}
		return Ok(values[0])
	}, nil
}
