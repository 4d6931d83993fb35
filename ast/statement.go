package ast

import (
	"path"
	"strings"
)

// JoinKind selects the join variant of a JoinNode.
type JoinKind int

const (
	JoinInner JoinKind = iota // INNER JOIN (default)
	JoinLeft                  // LEFT [OUTER] JOIN
	JoinRight                 // RIGHT [OUTER] JOIN
	JoinFull                  // FULL [OUTER] JOIN
	JoinCross                 // CROSS JOIN or a comma
)

// RowNumberColumn is the pseudo-column that asks a scan to number its rows.
const RowNumberColumn = "rownumber"

// Statement is one SELECT.
type Statement struct {
	Distinct bool
	Source   Source
	Where    Expr
	GroupBy  []*ColumnRef
	OrderBy  []*ColumnRef
	Desc     bool

	Columns  []*Variable // projection; expanded from "*" when Wildcard is set
	Wildcard bool

	Params map[string]*Param
	Parent *Statement
	Views  map[string]*Statement // WITH views, visible to this statement and its subqueries

	// ViewColumns renames the output header when the statement defines a view
	// with an explicit column list.
	ViewColumns []string

	// Filled by the resolver.
	WhereDeps  []*Variable  // derived fields materialized before the filter
	GroupDeps  []*Variable  // derived fields materialized before grouping
	GroupKeys  []string     // grouping key field names
	Aggregates []*Variable  // aggregates computed by the grouping stage
	OrderDeps  []*Variable  // derived fields materialized before sorting
	OrderKeys  []string     // sort key field names
	SelectDeps []*Variable  // derived fields left for the final projection
	Outer      []*ColumnRef // correlated references made from this statement
}

// AddParam registers a named parameter and returns its node.
func (s *Statement) AddParam(name string) *Param {
	if s.Params == nil {
		s.Params = make(map[string]*Param)
	}
	if p, ok := s.Params[name]; ok {
		return p
	}
	p := &Param{Name: name}
	s.Params[name] = p
	return p
}

// Grouped reports whether the statement aggregates, with or without GROUP BY.
func (s *Statement) Grouped() bool {
	return len(s.GroupBy) > 0 || len(s.Aggregates) > 0
}

// Names returns the output header of the statement.
func (s *Statement) Names() []string {
	names := make([]string, len(s.Columns))
	for i, v := range s.Columns {
		names[i] = v.Name
	}
	if len(s.ViewColumns) == len(names) {
		copy(names, s.ViewColumns)
	}
	return names
}

// LookupView finds a WITH view visible from the statement.
func (s *Statement) LookupView(name string) (*Statement, bool) {
	for st := s; st != nil; st = st.Parent {
		if v, ok := st.Views[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Source is a FROM item: a *TableRef or a *JoinNode.
type Source interface {
	Tables() []*TableRef
}

// FieldMap maps one output field of a scan to a source column.
type FieldMap struct {
	Field  string
	Column string
}

// TableRef is one table in FROM.
type TableRef struct {
	Name  string // qualified name as written
	Alias string

	// Filled by the resolver.
	Header    []string   // source header
	View      *Statement // set when Name refers to a WITH view
	RowNumber bool       // the rownumber pseudo-column is referenced
	Fields    []FieldMap // referenced columns in header order
}

// Label is the name qualified column references and collision prefixes use.
func (t *TableRef) Label() string {
	if t.Alias != "" {
		return t.Alias
	}
	name := t.Name
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = path.Base(name[i+1:])
		return strings.TrimSuffix(name, path.Ext(name))
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// HasColumn reports whether column exists in the table, including the
// rownumber pseudo-column.
func (t *TableRef) HasColumn(column string) bool {
	return column == RowNumberColumn || t.headerHas(column)
}

// Use records a reference to column and returns its current field name.
func (t *TableRef) Use(column string) string {
	for _, f := range t.Fields {
		if f.Column == column {
			return f.Field
		}
	}
	if column == RowNumberColumn && !t.headerHas(column) {
		t.RowNumber = true
	}
	t.Fields = append(t.Fields, FieldMap{Field: column, Column: column})
	t.sortFields()
	return column
}

// Field returns the output field name of a referenced column.
func (t *TableRef) Field(column string) string {
	for _, f := range t.Fields {
		if f.Column == column {
			return f.Field
		}
	}
	return column
}

// Qualify renames the field of column to "<label>_<column>".
func (t *TableRef) Qualify(column string) {
	for i, f := range t.Fields {
		if f.Column == column {
			t.Fields[i].Field = t.Label() + "_" + column
		}
	}
}

// Tables implements Source.
func (t *TableRef) Tables() []*TableRef {
	return []*TableRef{t}
}

func (t *TableRef) headerHas(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

// sortFields keeps Fields in header order with the row number last.
func (t *TableRef) sortFields() {
	pos := func(column string) int {
		for i, h := range t.Header {
			if h == column {
				return i
			}
		}
		return len(t.Header)
	}
	for i := 1; i < len(t.Fields); i++ {
		for j := i; j > 0 && pos(t.Fields[j].Column) < pos(t.Fields[j-1].Column); j-- {
			t.Fields[j], t.Fields[j-1] = t.Fields[j-1], t.Fields[j]
		}
	}
}

// JoinNode joins two sources.
type JoinNode struct {
	Kind        JoinKind
	Left, Right Source
	Using       []string
	On          Expr

	// Filled by the resolver: parallel key field names and the derived key
	// fields each side materializes before the join.
	LeftKeys, RightKeys []string
	LeftDeps, RightDeps []*Variable
}

// Tables implements Source.
func (j *JoinNode) Tables() []*TableRef {
	return append(j.Left.Tables(), j.Right.Tables()...)
}

// Variable is a named value: a projection item or a generated helper field.
type Variable struct {
	Alias string
	Value Expr

	// Filled by the resolver.
	Name      string
	Bare      bool // a plain column reference without alias
	Aggregate bool // Value is an aggregate computed by the grouping stage
	Hidden    bool // generated helper, never part of the output
}

// Derived reports whether the variable must be computed rather than read
// from a source column.
func (v *Variable) Derived() bool {
	return !v.Bare
}
