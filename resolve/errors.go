package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors identifying each kind of compile failure.
var (
	ErrUnresolved     = errors.New("unresolved name")
	ErrUnknownTable   = errors.New("unknown table")
	ErrDuplicateTable = errors.New("duplicate table name")
	ErrJoinCondition  = errors.New("unsupported join condition")
	ErrAggregateMix   = errors.New("invalid mix of aggregate and non-aggregate expressions")
	ErrUnknownTarget  = errors.New("unknown target")
	ErrCircular       = errors.New("circular reference")
	ErrSubquery       = errors.New("invalid subquery")
)

// CompileError reports why a statement could not be compiled. Kind is one
// of the sentinel errors above, so errors.Is(err, ErrUnresolved) works.
type CompileError struct {
	Kind   error
	Clause string
	Names  []string
	Err    error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Clause != "" {
		fmt.Fprintf(&b, " in %s", e.Clause)
	}
	if len(e.Names) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Names, ", "))
	}
	if e.Err != nil && len(e.Names) == 0 {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func compileError(kind error, clause string, names ...string) *CompileError {
	return &CompileError{Kind: kind, Clause: clause, Names: names}
}
