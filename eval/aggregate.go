package eval

import (
	"fmt"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/stream"
)

// CompileGroup builds a group evaluator for an aggregate: a builtin
// *ast.Aggregate or an *ast.Function bound to an AggregateFunction. Argument
// and FILTER expressions are compiled against the compiler's header, which
// describes the rows entering the group.
func (c *Compiler) CompileGroup(e ast.Expr) (GroupEvaluator, error) {
	switch n := e.(type) {
	case *ast.Aggregate:
		return c.compileBuiltinAggregate(n)
	case *ast.Function:
		fn, ok := n.Symbol.(AggregateFunction)
		if !ok {
			return nil, fmt.Errorf("%s is not an aggregate", n.Name)
		}
		return c.compileUserAggregate(n, fn)
	}
	return nil, fmt.Errorf("%s is not an aggregate", e.Kind())
}

// groupInput yields the argument values of the rows that pass the filter.
type groupInput struct {
	args   []Evaluator
	filter Evaluator
}

func (c *Compiler) newGroupInput(args []ast.Expr, filter ast.Expr) (*groupInput, error) {
	in := &groupInput{}
	var err error
	if in.args, err = c.compileAll(args); err != nil {
		return nil, err
	}
	if filter != nil {
		if in.filter, err = c.Compile(filter); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// each calls fn with the argument value of every row passing the filter: a
// single value for one argument, a []any tuple for several, nil for none.
func (in *groupInput) each(group []stream.Row, p Params, fn func(v any) error) error {
	for _, row := range group {
		if in.filter != nil && !in.filter(row, p).Truthy() {
			continue
		}
		var v any
		switch len(in.args) {
		case 0:
		case 1:
			v = in.args[0](row, p).OrNull()
		default:
			tuple := make([]any, len(in.args))
			for i, arg := range in.args {
				tuple[i] = arg(row, p).OrNull()
			}
			v = tuple
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// values collects the non-NULL argument values, deduplicated when distinct.
func (in *groupInput) values(group []stream.Row, p Params, distinct bool) []any {
	var out []any
	seen := make(map[string]struct{})
	_ = in.each(group, p, func(v any) error {
		if v == nil {
			return nil
		}
		if distinct {
			key := distinctKey(v)
			if _, ok := seen[key]; ok {
				return nil
			}
			seen[key] = struct{}{}
		}
		out = append(out, v)
		return nil
	})
	return out
}

func distinctKey(v any) string {
	if tuple, ok := v.([]any); ok {
		return stream.Key(tuple)
	}
	return stream.Key([]any{v})
}

func (c *Compiler) compileBuiltinAggregate(n *ast.Aggregate) (GroupEvaluator, error) {
	in, err := c.newGroupInput(n.Args, n.Filter)
	if err != nil {
		return nil, err
	}
	if len(n.Args) > 1 && n.Func != ast.AggList {
		return nil, fmt.Errorf("%s takes one argument", n.Func)
	}

	if n.Func == ast.AggCount && len(n.Args) == 0 {
		return func(group []stream.Row, p Params) Result {
			var count int64
			_ = in.each(group, p, func(any) error {
				count++
				return nil
			})
			return Ok(count)
		}, nil
	}

	reduce := reducers[n.Func]
	distinct := n.Distinct
	return func(group []stream.Row, p Params) Result {
		return reduce(in.values(group, p, distinct))
	}, nil
}

var reducers = map[ast.AggFunc]func(values []any) Result{
	ast.AggCount: func(values []any) Result { return Ok(int64(len(values))) },
	ast.AggSum:   sumValues,
	ast.AggAvg:   avgValues,
	ast.AggMin:   func(values []any) Result { return extreme(values, -1) },
	ast.AggMax:   func(values []any) Result { return extreme(values, 1) },
	ast.AggList: func(values []any) Result {
		if values == nil {
			values = []any{}
		}
		return Ok(values)
	},
}

// sumValues keeps integer sums integral. An empty input sums to NULL.
func sumValues(values []any) Result {
	if len(values) == 0 {
		return Ok(nil)
	}
	var (
		isum    int64
		fsum    float64
		integer = true
	)
	for _, v := range values {
		n, ok := numeric(v)
		if !ok {
			return Fault(fmt.Errorf("SUM: cannot add %T", v))
		}
		switch x := n.(type) {
		case int64:
			isum += x
			fsum += float64(x)
		case float64:
			integer = false
			fsum += x
		}
	}
	if integer {
		return Ok(isum)
	}
	return Ok(fsum)
}

func avgValues(values []any) Result {
	if len(values) == 0 {
		return Ok(nil)
	}
	sum := sumValues(values)
	if sum.Err != nil {
		return sum
	}
	total, _ := stream.ToFloat64(sum.Value)
	return Ok(total / float64(len(values)))
}

// extreme returns the minimum (sign -1) or maximum (sign 1) value.
func extreme(values []any, sign int) Result {
	if len(values) == 0 {
		return Ok(nil)
	}
	best := values[0]
	for _, v := range values[1:] {
		c, err := order(v, best)
		if err != nil {
			return Fault(err)
		}
		if c*sign > 0 {
			best = v
		}
	}
	return Ok(best)
}

// compileUserAggregate drives a registered aggregate: one instance per
// group, Step per row in order, then Finalize. NULL values are passed on.
func (c *Compiler) compileUserAggregate(n *ast.Function, fn AggregateFunction) (GroupEvaluator, error) {
	in, err := c.newGroupInput(n.Args, nil)
	if err != nil {
		return nil, err
	}
	return func(group []stream.Row, p Params) Result {
		agg := fn.New()
		if err := in.each(group, p, agg.Step); err != nil {
			return Fault(fmt.Errorf("%s: %w", fn.Name(), err))
		}
		v, err := agg.Finalize()
		if err != nil {
			return Fault(fmt.Errorf("%s: %w", fn.Name(), err))
		}
		return Ok(v)
	}, nil
}
