package subst

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownFunction is returned when a policy rule calls a function that was
// never registered. Rule failures wrap it in an *EvaluationError naming the
// rule expression and the reference key.
var ErrUnknownFunction = errors.New("subst: unknown rule function")

// Function is a helper callable from policy rules, either by name or through
// `call(name, args...)`. Rules see the reference key, value and metadata, so
// functions typically classify keys (secret, optional, deprecated).
type Function func(args ...any) (any, error)

// FunctionRegistry holds the functions available to policy rules. Names are
// case-insensitive; expr and goja rules see them lowercased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register makes fn callable from rules as name. A name can be registered
// once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return errors.New("subst: rule function name must not be empty")
	case fn == nil:
		return fmt.Errorf("subst: rule function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("subst: rule function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a copy that later registrations on r do not affect. Each
// Substitutor and evaluator owns a clone.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call runs the function registered as name with the arguments a rule
// passed. Unknown names fail with ErrUnknownFunction and list what is
// registered.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.functions[strings.ToLower(name)]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownFunction, name, r.describe())
	}
	return fn(args...)
}

// Names returns the registered names, lowercased and sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *FunctionRegistry) describe() string {
	names := r.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// WithFunctionRegistry exposes the functions in registry to policy rules
// compiled by the default expr engine. The registry is cloned.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction exposes fn to policy rules under name. Registration
// failures, such as a duplicate name, are reported by New.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.functionErrs = append(cfg.functionErrs, err)
		}
	}
}
