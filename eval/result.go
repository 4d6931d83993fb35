// Package eval compiles expression trees into row and group evaluators.
//
// Evaluators never panic or abort a stream on bad data: they return a
// Result, and a Result carrying an error degrades to NULL through OrNull.
// The Registry holds the scalar functions, aggregates and constants a
// statement may call; compiled evaluators capture the entries directly, so a
// compiled plan does not observe later registry changes.
package eval

import (
	"github.com/vegasq/virtsql/stream"
)

// Params carries named parameter values for one execution.
type Params map[string]any

// Result is the outcome of evaluating an expression against one row or group.
type Result struct {
	Value any
	Err   error
}

// Ok wraps a value.
func Ok(v any) Result { return Result{Value: v} }

// Fault wraps an evaluation error.
func Fault(err error) Result { return Result{Err: err} }

// OrNull returns the value, or nil when evaluation failed.
func (r Result) OrNull() any {
	if r.Err != nil {
		return nil
	}
	return r.Value
}

// Null reports whether the result is NULL or a fault.
func (r Result) Null() bool {
	return r.Err != nil || r.Value == nil
}

// Truthy reports whether the result counts as true in a condition. NULL,
// faults, false, zero and the empty string are false.
func (r Result) Truthy() bool {
	if r.Err != nil || r.Value == nil {
		return false
	}
	switch v := r.Value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	}
	if f, ok := stream.ToFloat64(r.Value); ok {
		return f != 0
	}
	return true
}

// Evaluator computes a value from one row.
type Evaluator func(row stream.Row, p Params) Result

// GroupEvaluator computes a value from every row of one group.
type GroupEvaluator func(group []stream.Row, p Params) Result
