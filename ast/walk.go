package ast

var children [KindCount]func(Expr) []Expr

func init() {
	none := func(Expr) []Expr { return nil }
	children = [KindCount]func(Expr) []Expr{
		KindColumn:  none,
		KindLiteral: none,
		KindParam:   none,
		KindNot:     func(e Expr) []Expr { return []Expr{e.(*Not).X} },
		KindArith: func(e Expr) []Expr {
			n := e.(*Arith)
			return []Expr{n.L, n.R}
		},
		KindAnd: func(e Expr) []Expr { return e.(*And).Args },
		KindOr:  func(e Expr) []Expr { return e.(*Or).Args },
		KindCompare: func(e Expr) []Expr {
			n := e.(*Compare)
			return []Expr{n.L, n.R}
		},
		KindBetween: func(e Expr) []Expr {
			n := e.(*Between)
			return []Expr{n.X, n.Lo, n.Hi}
		},
		KindLike: func(e Expr) []Expr { return []Expr{e.(*Like).X} },
		KindIn: func(e Expr) []Expr {
			n := e.(*In)
			return append([]Expr{n.X}, n.List...)
		},
		KindContaining: func(e Expr) []Expr {
			n := e.(*Containing)
			return []Expr{n.X, n.Y}
		},
		KindStarting: func(e Expr) []Expr {
			n := e.(*Starting)
			return []Expr{n.X, n.Y}
		},
		KindDistinctFrom: func(e Expr) []Expr {
			n := e.(*DistinctFrom)
			return []Expr{n.L, n.R}
		},
		KindIsTruth: func(e Expr) []Expr { return []Expr{e.(*IsTruth).X} },
		KindSimpleCase: func(e Expr) []Expr {
			n := e.(*SimpleCase)
			return append([]Expr{n.Switch}, whenChildren(n.Whens, n.Else)...)
		},
		KindSearchedCase: func(e Expr) []Expr {
			n := e.(*SearchedCase)
			return whenChildren(n.Whens, n.Else)
		},
		KindAggregate: func(e Expr) []Expr {
			n := e.(*Aggregate)
			out := append([]Expr(nil), n.Args...)
			if n.Filter != nil {
				out = append(out, n.Filter)
			}
			return out
		},
		KindFunction: func(e Expr) []Expr { return e.(*Function).Args },
		KindSubquery: none,
	}
}

func whenChildren(whens []When, els Expr) []Expr {
	var out []Expr
	for _, w := range whens {
		out = append(out, w.Cond, w.Result)
	}
	if els != nil {
		out = append(out, els)
	}
	return out
}

// Children returns the direct sub-expressions of e. Nested statements are
// not entered.
func Children(e Expr) []Expr {
	var out []Expr
	for _, c := range children[e.Kind()](e) {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits e and its descendants in pre-order. Returning false from visit
// skips the node's children.
func Walk(e Expr, visit func(Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, visit)
	}
}
