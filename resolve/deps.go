package resolve

import (
	"fmt"

	"github.com/vegasq/virtsql/ast"
)

// claims tracks which derived variables are available at the current stage.
type claims struct {
	computed map[*ast.Variable]bool
	visiting map[*ast.Variable]bool
}

// claim appends v to deps after the derived variables it needs, unless the
// variable is already available. Aggregates are never claimed: the grouping
// stage computes them, and row stages cannot see them.
func (r *resolver) claim(cl *claims, v *ast.Variable, c clause, deps *[]*ast.Variable) error {
	if !v.Derived() || cl.computed[v] {
		return nil
	}
	if v.Aggregate {
		return &CompileError{Kind: ErrAggregateMix, Clause: c.String(),
			Err: fmt.Errorf("%s depends on an aggregate", v.Name)}
	}
	if cl.visiting[v] {
		return compileError(ErrCircular, c.String(), v.Name)
	}
	cl.visiting[v] = true
	if p := r.refs[v]; p != nil {
		for _, dep := range p.vars {
			if err := r.claim(cl, dep, c, deps); err != nil {
				return err
			}
		}
	}
	delete(cl.visiting, v)
	cl.computed[v] = true
	*deps = append(*deps, v)
	return nil
}

// claimAll assigns every derived variable to the first stage that needs it:
// join keys, then the filter, then grouping, then ordering, and whatever is
// left to the final projection.
func (r *resolver) claimAll(sc *Scope) error {
	stmt := sc.stmt
	cl := &claims{computed: make(map[*ast.Variable]bool), visiting: make(map[*ast.Variable]bool)}

	if j, ok := stmt.Source.(*ast.JoinNode); ok {
		if err := r.claimJoin(sc, cl, j); err != nil {
			return err
		}
	}
	if stmt.Where != nil {
		for _, v := range collect(stmt.Where, newPending(clauseWhere, nil)).vars {
			if err := r.claim(cl, v, clauseWhere, &stmt.WhereDeps); err != nil {
				return err
			}
		}
	}

	grouped := len(stmt.GroupBy) > 0 || len(sc.aggregates) > 0
	keys := make(map[string]bool)
	if grouped {
		for _, ref := range stmt.GroupBy {
			field, err := r.target(cl, ref, clauseGroupBy, &stmt.GroupDeps)
			if err != nil {
				return err
			}
			stmt.GroupKeys = append(stmt.GroupKeys, field)
			keys[field] = true
		}
		for _, a := range sc.aggregates {
			for _, dep := range r.refs[a].vars {
				if err := r.claim(cl, dep, clauseAggregate, &stmt.GroupDeps); err != nil {
					return err
				}
			}
		}
		stmt.Aggregates = sc.aggregates

		// Only the keys and the aggregates survive grouping.
		cl.computed = make(map[*ast.Variable]bool)
		for _, ref := range stmt.GroupBy {
			if ref.Var != nil {
				cl.computed[ref.Var] = true
			}
		}
		for _, a := range sc.aggregates {
			cl.computed[a] = true
		}
	}

	for _, ref := range stmt.OrderBy {
		if grouped && !r.groupSafeRef(ref, keys) {
			return compileError(ErrUnknownTarget, clauseOrderBy.String(), ref.Name)
		}
		field, err := r.target(cl, ref, clauseOrderBy, &stmt.OrderDeps)
		if err != nil {
			return err
		}
		stmt.OrderKeys = append(stmt.OrderKeys, field)
	}

	for _, v := range stmt.Columns {
		if err := r.claim(cl, v, clauseSelect, &stmt.SelectDeps); err != nil {
			return err
		}
	}
	return nil
}

// target resolves a GROUP BY or ORDER BY name to the field it reads,
// claiming the variable it names when that is derived.
func (r *resolver) target(cl *claims, ref *ast.ColumnRef, c clause, deps *[]*ast.Variable) (string, error) {
	switch {
	case ref.Table != nil:
		return ref.Field(), nil
	case ref.Var != nil:
		if ref.Var.Aggregate && c == clauseGroupBy {
			return "", &CompileError{Kind: ErrAggregateMix, Clause: c.String(),
				Err: fmt.Errorf("cannot group by aggregate %s", ref.Var.Name)}
		}
		if err := r.claim(cl, ref.Var, c, deps); err != nil {
			return "", err
		}
		return ref.Var.Name, nil
	}
	return "", compileError(ErrUnknownTarget, c.String(), ref.Name)
}

// claimJoin splits the join conditions into key fields per side, innermost
// joins first. Derived keys are claimed for the side that computes them.
func (r *resolver) claimJoin(sc *Scope, cl *claims, j *ast.JoinNode) error {
	for _, side := range []ast.Source{j.Left, j.Right} {
		if inner, ok := side.(*ast.JoinNode); ok {
			if err := r.claimJoin(sc, cl, inner); err != nil {
				return err
			}
		}
	}
	for _, pair := range r.using[j] {
		j.LeftKeys = append(j.LeftKeys, pair[0].Field())
		j.RightKeys = append(j.RightKeys, pair[1].Field())
	}
	if j.On == nil {
		if j.Kind != ast.JoinCross && len(j.LeftKeys) == 0 {
			return &CompileError{Kind: ErrJoinCondition, Clause: clauseJoin.String(),
				Err: fmt.Errorf("join needs ON or USING")}
		}
		return nil
	}

	left, right := tableSet(j.Left), tableSet(j.Right)
	for _, cond := range conjuncts(j.On) {
		cmp, ok := cond.(*ast.Compare)
		if !ok || (cmp.Op != "=" && cmp.Op != "==") {
			return &CompileError{Kind: ErrJoinCondition, Clause: clauseJoin.String(),
				Err: fmt.Errorf("only equality conditions joined by AND are supported, got %s", cond.Kind())}
		}
		l, rt := cmp.L, cmp.R
		lTables, rTables := r.tablesOf(l), r.tablesOf(rt)
		switch {
		case within(lTables, left) && within(rTables, right):
		case within(lTables, right) && within(rTables, left):
			l, rt = rt, l
		default:
			return &CompileError{Kind: ErrJoinCondition, Clause: clauseJoin.String(),
				Err: fmt.Errorf("each side of a join condition must read one side of the join")}
		}
		lk, err := r.joinKey(sc, cl, l, &j.LeftDeps)
		if err != nil {
			return err
		}
		rk, err := r.joinKey(sc, cl, rt, &j.RightDeps)
		if err != nil {
			return err
		}
		j.LeftKeys = append(j.LeftKeys, lk)
		j.RightKeys = append(j.RightKeys, rk)
	}
	return nil
}

// joinKey returns the field holding one side of a join equality. A key that
// is neither a column nor a variable becomes a hidden variable.
func (r *resolver) joinKey(sc *Scope, cl *claims, e ast.Expr, deps *[]*ast.Variable) (string, error) {
	if ref, ok := e.(*ast.ColumnRef); ok {
		switch {
		case ref.Table != nil:
			return ref.Field(), nil
		case ref.Var != nil:
			if err := r.claim(cl, ref.Var, clauseJoin, deps); err != nil {
				return "", err
			}
			return ref.Var.Name, nil
		}
	}
	v := &ast.Variable{Value: e, Name: sc.generate(), Hidden: true}
	r.refs[v] = collect(e, newPending(clauseJoin, v))
	if err := r.claim(cl, v, clauseJoin, deps); err != nil {
		return "", err
	}
	return v.Name, nil
}

func conjuncts(e ast.Expr) []ast.Expr {
	and, ok := e.(*ast.And)
	if !ok {
		return []ast.Expr{e}
	}
	var out []ast.Expr
	for _, a := range and.Args {
		out = append(out, conjuncts(a)...)
	}
	return out
}

func tableSet(src ast.Source) map[*ast.TableRef]bool {
	set := make(map[*ast.TableRef]bool)
	for _, t := range src.Tables() {
		set[t] = true
	}
	return set
}

// within reports whether tables is a non-empty subset of side.
func within(tables, side map[*ast.TableRef]bool) bool {
	if len(tables) == 0 {
		return false
	}
	for t := range tables {
		if !side[t] {
			return false
		}
	}
	return true
}

// tablesOf returns the tables an expression reads, following variables.
func (r *resolver) tablesOf(e ast.Expr) map[*ast.TableRef]bool {
	set := make(map[*ast.TableRef]bool)
	seen := make(map[*ast.Variable]bool)
	var add func(p *pending)
	add = func(p *pending) {
		for _, c := range p.columns {
			set[c.Table] = true
		}
		for _, v := range p.vars {
			if !seen[v] && r.refs[v] != nil {
				seen[v] = true
				add(r.refs[v])
			}
		}
	}
	add(collect(e, newPending(clauseJoin, nil)))
	return set
}

// validateGrouping checks that in a grouped statement every output item is
// an aggregate, a grouping key or computed from them.
func (r *resolver) validateGrouping(sc *Scope) error {
	stmt := sc.stmt
	if len(stmt.GroupBy) == 0 && len(sc.aggregates) == 0 {
		return nil
	}
	keys := make(map[string]bool)
	for _, ref := range stmt.GroupBy {
		switch {
		case ref.Table != nil:
			keys[ref.Field()] = true
		case ref.Var != nil:
			r.keyVars[ref.Var] = true
		}
	}
	for _, v := range stmt.Columns {
		if r.groupSafe(v, keys, make(map[*ast.Variable]bool)) {
			continue
		}
		if len(stmt.GroupBy) == 0 {
			return &CompileError{Kind: ErrAggregateMix, Clause: clauseSelect.String(), Names: []string{v.Name},
				Err: fmt.Errorf("cannot mix aggregate and non-aggregate columns without GROUP BY")}
		}
		return &CompileError{Kind: ErrAggregateMix, Clause: clauseGroupBy.String(), Names: []string{v.Name},
			Err: fmt.Errorf("column must appear in GROUP BY or be used in an aggregate")}
	}
	return nil
}

func (r *resolver) groupSafe(v *ast.Variable, keys map[string]bool, seen map[*ast.Variable]bool) bool {
	if v.Aggregate || r.keyVars[v] || seen[v] {
		return true
	}
	seen[v] = true
	p := r.refs[v]
	if p == nil {
		return true
	}
	for _, c := range p.columns {
		if !keys[c.Field()] {
			return false
		}
	}
	for _, dep := range p.vars {
		if !r.groupSafe(dep, keys, seen) {
			return false
		}
	}
	return true
}

func (r *resolver) groupSafeRef(ref *ast.ColumnRef, keys map[string]bool) bool {
	switch {
	case ref.Table != nil:
		return keys[ref.Field()]
	case ref.Var != nil:
		return r.groupSafe(ref.Var, keys, make(map[*ast.Variable]bool))
	}
	return false
}

