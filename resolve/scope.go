package resolve

import (
	"fmt"
	"strings"

	"github.com/vegasq/virtsql/ast"
)

// Scope is the name environment of one statement: its tables in declaration
// order, its projection aliases and the enclosing statement's scope.
type Scope struct {
	stmt    *ast.Statement
	parent  *Scope
	tables  []*ast.TableRef
	aliases map[string]*ast.Variable

	generated int

	// aggregates in projection order, nested ones at their position.
	aggregates []*ast.Variable
}

func newScope(stmt *ast.Statement, parent *Scope) *Scope {
	return &Scope{stmt: stmt, parent: parent, aliases: make(map[string]*ast.Variable)}
}

// table finds the table holding column. A qualifier restricts the search to
// the table with that label.
func (s *Scope) table(qualifier, column string) *ast.TableRef {
	for _, t := range s.tables {
		if qualifier != "" && t.Label() != qualifier {
			continue
		}
		if t.HasColumn(column) {
			return t
		}
	}
	return nil
}

// hasField reports whether any table of the scope or its parents has a
// column named field.
func (s *Scope) hasField(field string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		for _, t := range sc.tables {
			if t.HasColumn(field) {
				return true
			}
		}
	}
	return false
}

// generate returns a fresh name for an unnamed or hidden variable.
func (s *Scope) generate() string {
	for {
		s.generated++
		name := fmt.Sprintf("c%d", s.generated)
		if _, taken := s.aliases[name]; !taken && !s.hasField(name) {
			return name
		}
	}
}

func splitName(name string) (qualifier, column string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// clause names the part of a statement an expression belongs to.
type clause int

const (
	clauseSelect clause = iota
	clauseAggregate
	clauseJoin
	clauseWhere
	clauseGroupBy
	clauseOrderBy
)

func (c clause) String() string {
	return [...]string{"SELECT", "aggregate", "JOIN", "WHERE", "GROUP BY", "ORDER BY"}[c]
}

// pending collects what one expression references while it is bound: the
// derived variables it needs computed first and the table columns it reads.
type pending struct {
	clause  clause
	owner   *ast.Variable
	vars    []*ast.Variable
	columns []*ast.ColumnRef
}

func newPending(c clause, owner *ast.Variable) *pending {
	return &pending{clause: c, owner: owner}
}

func (p *pending) addVar(v *ast.Variable) {
	for _, seen := range p.vars {
		if seen == v {
			return
		}
	}
	p.vars = append(p.vars, v)
}

// row reports whether the clause is evaluated per source row, where
// aggregates have no value yet.
func (p *pending) row() bool {
	return p.clause == clauseJoin || p.clause == clauseWhere
}
