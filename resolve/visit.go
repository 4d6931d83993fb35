package resolve

import (
	"fmt"

	"github.com/vegasq/virtsql/ast"
	"github.com/vegasq/virtsql/eval"
)

// visitFunc binds the names inside one expression kind and returns the node
// that replaces it.
type visitFunc func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr

var visitors [ast.KindCount]visitFunc

func init() {
	leaf := func(_ *resolver, _ *Scope, e ast.Expr, _ *pending) ast.Expr { return e }
	visitors = [ast.KindCount]visitFunc{
		ast.KindColumn: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			r.bind(sc, e.(*ast.ColumnRef), p)
			return e
		},
		ast.KindLiteral: leaf,
		ast.KindParam:   leaf,
		ast.KindNot: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Not)
			n.X = r.visit(sc, n.X, p)
			return n
		},
		ast.KindArith: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Arith)
			n.L, n.R = r.visit(sc, n.L, p), r.visit(sc, n.R, p)
			return n
		},
		ast.KindAnd: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			r.visitAll(sc, e.(*ast.And).Args, p)
			return e
		},
		ast.KindOr: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			r.visitAll(sc, e.(*ast.Or).Args, p)
			return e
		},
		ast.KindCompare: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Compare)
			n.L, n.R = r.visit(sc, n.L, p), r.visit(sc, n.R, p)
			return n
		},
		ast.KindBetween: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Between)
			n.X = r.visit(sc, n.X, p)
			n.Lo, n.Hi = r.visit(sc, n.Lo, p), r.visit(sc, n.Hi, p)
			return n
		},
		ast.KindLike: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Like)
			n.X = r.visit(sc, n.X, p)
			return n
		},
		ast.KindIn: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.In)
			n.X = r.visit(sc, n.X, p)
			r.visitAll(sc, n.List, p)
			if n.Query != nil {
				r.subquery(sc, n.Query.Stmt)
			}
			return n
		},
		ast.KindContaining: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Containing)
			n.X, n.Y = r.visit(sc, n.X, p), r.visit(sc, n.Y, p)
			return n
		},
		ast.KindStarting: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Starting)
			n.X, n.Y = r.visit(sc, n.X, p), r.visit(sc, n.Y, p)
			return n
		},
		ast.KindDistinctFrom: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.DistinctFrom)
			n.L, n.R = r.visit(sc, n.L, p), r.visit(sc, n.R, p)
			return n
		},
		ast.KindIsTruth: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.IsTruth)
			n.X = r.visit(sc, n.X, p)
			return n
		},
		ast.KindSimpleCase: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.SimpleCase)
			n.Switch = r.visit(sc, n.Switch, p)
			r.visitWhens(sc, n.Whens, p)
			n.Else = r.visit(sc, n.Else, p)
			return n
		},
		ast.KindSearchedCase: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.SearchedCase)
			r.visitWhens(sc, n.Whens, p)
			n.Else = r.visit(sc, n.Else, p)
			return n
		},
		ast.KindAggregate: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Aggregate)
			return r.aggregate(sc, e, n.Func.String(), p, func(args *pending) {
				r.visitAll(sc, n.Args, args)
				n.Filter = r.visit(sc, n.Filter, args)
			})
		},
		ast.KindFunction: func(r *resolver, sc *Scope, e ast.Expr, p *pending) ast.Expr {
			n := e.(*ast.Function)
			sym, ok := r.symbols.Lookup(n.Name)
			if !ok {
				r.unresolved(p.clause, n.Name+"()")
				r.visitAll(sc, n.Args, p)
				return n
			}
			n.Symbol = sym
			if eval.IsAggregate(sym) {
				return r.aggregate(sc, e, n.Name, p, func(args *pending) {
					r.visitAll(sc, n.Args, args)
				})
			}
			r.visitAll(sc, n.Args, p)
			return n
		},
		ast.KindSubquery: func(r *resolver, sc *Scope, e ast.Expr, _ *pending) ast.Expr {
			r.subquery(sc, e.(*ast.Subquery).Stmt)
			return e
		},
	}
}

func (r *resolver) visit(sc *Scope, e ast.Expr, p *pending) ast.Expr {
	if e == nil {
		return nil
	}
	return visitors[e.Kind()](r, sc, e, p)
}

func (r *resolver) visitAll(sc *Scope, exprs []ast.Expr, p *pending) {
	for i, e := range exprs {
		exprs[i] = r.visit(sc, e, p)
	}
}

func (r *resolver) visitWhens(sc *Scope, whens []ast.When, p *pending) {
	for i := range whens {
		whens[i].Cond = r.visit(sc, whens[i].Cond, p)
		whens[i].Result = r.visit(sc, whens[i].Result, p)
	}
}

// aggregate binds an aggregate call. A call that is a whole projection item
// makes that item an aggregate; one nested in a larger expression moves into
// a hidden variable the expression then references.
func (r *resolver) aggregate(sc *Scope, e ast.Expr, name string, p *pending, bindArgs func(*pending)) ast.Expr {
	switch {
	case p.clause == clauseAggregate:
		r.fail(&CompileError{Kind: ErrAggregateMix, Clause: p.clause.String(),
			Err: fmt.Errorf("aggregate %s cannot be nested in another aggregate", name)})
		return e
	case p.clause != clauseSelect:
		r.fail(&CompileError{Kind: ErrAggregateMix, Clause: p.clause.String(),
			Err: fmt.Errorf("aggregate %s is not allowed here", name)})
		return e
	}

	v := p.owner
	if v == nil || v.Value != e {
		v = &ast.Variable{Value: e, Name: sc.generate(), Hidden: true}
	}
	args := newPending(clauseAggregate, v)
	bindArgs(args)
	v.Aggregate = true
	r.refs[v] = args
	sc.aggregates = append(sc.aggregates, v)
	if v == p.owner {
		return e
	}
	p.addVar(v)
	return &ast.ColumnRef{Name: v.Name, Var: v}
}

// bind resolves a name: the statement's tables in declaration order, then
// projection aliases, then the tables of enclosing statements, then global
// symbols.
func (r *resolver) bind(sc *Scope, ref *ast.ColumnRef, p *pending) {
	switch {
	case ref.Table != nil:
		r.bindColumn(ref, ref.Table, ref.Column, p)
		return
	case ref.Var != nil:
		p.addVar(ref.Var)
		return
	case ref.Outer != nil, ref.Symbol != nil:
		return
	}
	qualifier, column := splitName(ref.Name)
	if t := sc.table(qualifier, column); t != nil {
		r.bindColumn(ref, t, column, p)
		return
	}
	if qualifier == "" {
		if v, ok := sc.aliases[column]; ok {
			ref.Var = v
			p.addVar(v)
			return
		}
	}
	for outer := sc.parent; outer != nil; outer = outer.parent {
		t := outer.table(qualifier, column)
		if t == nil {
			continue
		}
		t.Use(column)
		ref.Outer = &ast.ColumnRef{Name: ref.Name, Table: t, Column: column}
		for s := sc; s != outer; s = s.parent {
			s.stmt.Outer = append(s.stmt.Outer, ref)
		}
		return
	}
	if qualifier == "" {
		if sym, ok := r.symbols.Lookup(column); ok && !eval.IsAggregate(sym) {
			ref.Symbol = sym
			return
		}
	}
	r.unresolved(p.clause, ref.Name)
}

func (r *resolver) bindColumn(ref *ast.ColumnRef, t *ast.TableRef, column string, p *pending) {
	ref.Table = t
	ref.Column = column
	t.Use(column)
	p.columns = append(p.columns, ref)
}

// collect gathers the references of an expression that is already bound.
func collect(e ast.Expr, p *pending) *pending {
	ast.Walk(e, func(n ast.Expr) bool {
		if ref, ok := n.(*ast.ColumnRef); ok {
			switch {
			case ref.Var != nil:
				p.addVar(ref.Var)
			case ref.Table != nil:
				p.columns = append(p.columns, ref)
			}
		}
		return true
	})
	return p
}
