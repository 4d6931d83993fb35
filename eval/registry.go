package eval

import (
	"fmt"
	"strings"
	"sync"
)

// Function represents a scalar function that can be evaluated
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []any) (any, error)
}

// Aggregator is one in-flight user aggregate: Step is called once per row of
// the group in order, then Finalize once.
type Aggregator interface {
	Step(value any) error
	Finalize() (any, error)
}

// AggregateFunction creates a fresh Aggregator for every group.
type AggregateFunction interface {
	Name() string
	New() Aggregator
}

// Constant is a named value bound in the registry.
type Constant struct {
	Name  string
	Value any
}

// Registry manages function, aggregate and constant lookup. Names are
// case-insensitive.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]any
}

// NewRegistry creates a registry holding the builtin scalar functions.
func NewRegistry() *Registry {
	r := &Registry{symbols: make(map[string]any)}
	for _, f := range builtinFunctions() {
		r.Register(f)
	}
	return r
}

// Register registers a scalar function, replacing any symbol of that name.
func (r *Registry) Register(f Function) {
	r.set(f.Name(), f)
}

// RegisterAggregate registers a user aggregate.
func (r *Registry) RegisterAggregate(a AggregateFunction) {
	r.set(a.Name(), a)
}

// Define binds a constant.
func (r *Registry) Define(name string, value any) {
	r.set(name, &Constant{Name: name, Value: value})
}

func (r *Registry) set(name string, symbol any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[strings.ToUpper(name)] = symbol
}

// Lookup retrieves a symbol by name: a Function, an AggregateFunction or a
// *Constant.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.symbols[strings.ToUpper(name)]
	return s, ok
}

// IsAggregate reports whether symbol implements the aggregator capability.
func IsAggregate(symbol any) bool {
	_, ok := symbol.(AggregateFunction)
	return ok
}

// CheckArity validates an argument count against a function's arity.
func CheckArity(f Function, n int) error {
	if n < f.MinArity() || (f.MaxArity() >= 0 && n > f.MaxArity()) {
		if f.MinArity() == f.MaxArity() {
			return fmt.Errorf("%s expects %d argument(s), got %d", f.Name(), f.MinArity(), n)
		}
		if f.MaxArity() < 0 {
			return fmt.Errorf("%s expects at least %d argument(s), got %d", f.Name(), f.MinArity(), n)
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", f.Name(), f.MinArity(), f.MaxArity(), n)
	}
	return nil
}

// funcOf adapts a plain callable to Function.
type funcOf struct {
	name string
	fn   func(args ...any) (any, error)
}

// FuncOf wraps a plain Go callable as a variadic Function.
func FuncOf(name string, fn func(args ...any) (any, error)) Function {
	return &funcOf{name: name, fn: fn}
}

func (f *funcOf) Name() string                     { return f.name }
func (f *funcOf) MinArity() int                    { return 0 }
func (f *funcOf) MaxArity() int                    { return -1 }
func (f *funcOf) Evaluate(args []any) (any, error) { return f.fn(args...) }

// aggregateOf adapts a factory function to AggregateFunction.
type aggregateOf struct {
	name    string
	factory func() Aggregator
}

// AggregateOf wraps a constructor as an AggregateFunction.
func AggregateOf(name string, factory func() Aggregator) AggregateFunction {
	return &aggregateOf{name: name, factory: factory}
}

func (a *aggregateOf) Name() string    { return a.name }
func (a *aggregateOf) New() Aggregator { return a.factory() }
