// Package ast defines the parsed statement tree shared by the front end,
// the resolver and the planner.
//
// Expressions form a closed union: every node reports a Kind, and passes over
// the tree dispatch on it through lookup tables instead of type switches.
package ast

import "fmt"

// Kind tags each expression variant.
type Kind int

const (
	KindColumn Kind = iota
	KindLiteral
	KindParam
	KindNot
	KindArith
	KindAnd
	KindOr
	KindCompare
	KindBetween
	KindLike
	KindIn
	KindContaining
	KindStarting
	KindDistinctFrom
	KindIsTruth
	KindSimpleCase
	KindSearchedCase
	KindAggregate
	KindFunction
	KindSubquery

	// KindCount is the number of expression kinds, used to size dispatch tables.
	KindCount
)

var kindNames = [KindCount]string{
	"column", "literal", "parameter", "not", "arithmetic", "and", "or",
	"comparison", "between", "like", "in", "containing", "starting",
	"distinct from", "is", "case", "case", "aggregate", "function", "subquery",
}

func (k Kind) String() string {
	if k >= 0 && k < KindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Expr is a value expression.
type Expr interface {
	Kind() Kind
}

// ColumnRef names a column, a projection alias or a global symbol. The
// resolver fills exactly one of Table, Var, Outer or Symbol.
type ColumnRef struct {
	Name string // as written, possibly qualified ("t.col")

	Table  *TableRef  // bound table; the field is Table.Field(Column)
	Column string     // source column within Table
	Var    *Variable  // bound projection or generated variable
	Outer  *ColumnRef // correlated reference into an enclosing statement
	Symbol any        // registry entry for a global name
}

// Literal is a constant value.
type Literal struct {
	Value any
}

// Param is a named parameter (":name") bound at execution time.
type Param struct {
	Name string
}

// Not negates a condition.
type Not struct {
	X Expr
}

// Arith is a binary arithmetic or concatenation operator: + - * / % ||.
type Arith struct {
	Op   string
	L, R Expr
}

// And is an n-ary conjunction.
type And struct {
	Args []Expr
}

// Or is an n-ary disjunction.
type Or struct {
	Args []Expr
}

// Compare is a binary comparison: = != < <= > >=.
type Compare struct {
	Op   string
	L, R Expr
}

// Between tests X against [Lo, Hi]; Symmetric accepts the bounds in either order.
type Between struct {
	X, Lo, Hi Expr
	Symmetric bool
	Negated   bool
}

// Like matches X against a LIKE pattern, or a SIMILAR TO pattern when Regex is set.
type Like struct {
	X       Expr
	Pattern string
	Escape  string
	Regex   bool
	Negated bool
}

// In tests membership in a value list or in the first column of a subquery.
type In struct {
	X       Expr
	List    []Expr
	Query   *Subquery
	Negated bool
}

// Containing tests whether string X contains Y.
type Containing struct {
	X, Y    Expr
	Negated bool
}

// Starting tests whether string X starts with Y.
type Starting struct {
	X, Y    Expr
	Negated bool
}

// DistinctFrom is the null-safe inequality IS [NOT] DISTINCT FROM.
type DistinctFrom struct {
	L, R    Expr
	Negated bool
}

// IsTruth is X IS [NOT] TRUE/FALSE/UNKNOWN/NULL. Value is nil for UNKNOWN and NULL.
type IsTruth struct {
	X       Expr
	Value   *bool
	Negated bool
}

// When is one CASE branch. In a simple CASE, Test marks a condition that
// already compares against the switch value ("WHEN > 5").
type When struct {
	Cond   Expr
	Result Expr
	Test   bool
}

// SimpleCase compares Switch with each WHEN value in order.
type SimpleCase struct {
	Switch Expr
	Whens  []When
	Else   Expr
}

// SearchedCase evaluates WHEN conditions in order.
type SearchedCase struct {
	Whens []When
	Else  Expr
}

// AggFunc identifies a builtin aggregate.
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggList
)

func (f AggFunc) String() string {
	return [...]string{"COUNT", "SUM", "AVG", "MIN", "MAX", "LIST"}[f]
}

// Aggregate is a builtin aggregate call. Args is empty for COUNT(*).
type Aggregate struct {
	Func     AggFunc
	Distinct bool
	Args     []Expr
	Filter   Expr
}

// Function is a call to a builtin or registered function. The resolver sets
// Symbol to the registry entry it binds to.
type Function struct {
	Name   string
	Args   []Expr
	Symbol any
}

// Subquery is a nested SELECT used as a value.
type Subquery struct {
	Stmt *Statement
}

func (*ColumnRef) Kind() Kind    { return KindColumn }
func (*Literal) Kind() Kind      { return KindLiteral }
func (*Param) Kind() Kind        { return KindParam }
func (*Not) Kind() Kind          { return KindNot }
func (*Arith) Kind() Kind        { return KindArith }
func (*And) Kind() Kind          { return KindAnd }
func (*Or) Kind() Kind           { return KindOr }
func (*Compare) Kind() Kind      { return KindCompare }
func (*Between) Kind() Kind      { return KindBetween }
func (*Like) Kind() Kind         { return KindLike }
func (*In) Kind() Kind           { return KindIn }
func (*Containing) Kind() Kind   { return KindContaining }
func (*Starting) Kind() Kind     { return KindStarting }
func (*DistinctFrom) Kind() Kind { return KindDistinctFrom }
func (*IsTruth) Kind() Kind      { return KindIsTruth }
func (*SimpleCase) Kind() Kind   { return KindSimpleCase }
func (*SearchedCase) Kind() Kind { return KindSearchedCase }
func (*Aggregate) Kind() Kind    { return KindAggregate }
func (*Function) Kind() Kind     { return KindFunction }
func (*Subquery) Kind() Kind     { return KindSubquery }

// Field returns the row field a bound reference reads.
func (c *ColumnRef) Field() string {
	switch {
	case c.Var != nil:
		return c.Var.Name
	case c.Table != nil:
		return c.Table.Field(c.Column)
	}
	return c.Name
}
