package validation

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ConstraintRegistry is a ConstraintValidatorFactory backed by explicit registration.
// It is safe for concurrent use.
type ConstraintRegistry struct {
	mu    sync.RWMutex
	funcs map[string]ConstraintFunc
	order []string
}

// NewConstraintRegistry creates an empty ConstraintRegistry.
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{
		funcs: make(map[string]ConstraintFunc),
	}
}

// Register adds fn under tag. Registering a tag twice is an error.
func (r *ConstraintRegistry) Register(tag string, fn ConstraintFunc) error {
	if tag == "" {
		return fmt.Errorf("constraint tag is required")
	}
	if fn == nil {
		return fmt.Errorf("constraint %q: nil implementation", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[tag]; exists {
		return fmt.Errorf("constraint %q already registered", tag)
	}
	r.funcs[tag] = fn
	r.order = append(r.order, tag)
	return nil
}

// Lookup implements ConstraintValidatorFactory.
func (r *ConstraintRegistry) Lookup(tag string) (ConstraintFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[tag]
	return fn, ok
}

// Tags implements ConstraintValidatorFactory.
func (r *ConstraintRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, len(r.order))
	copy(tags, r.order)
	return tags
}

// DefaultParameterNameProvider uses declared parameter names and falls back to
// "arg0", "arg1", ... for unnamed parameters.
type DefaultParameterNameProvider struct{}

// ParameterNames implements ParameterNameProvider.
func (DefaultParameterNameProvider) ParameterNames(e Executable) []string {
	params := e.ExecutableParameters()
	names := make([]string, len(params))
	for i, p := range params {
		if p.Name != "" {
			names[i] = p.Name
			continue
		}
		names[i] = fmt.Sprintf("arg%d", i)
	}
	return names
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements ClockProvider.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant. Useful for deterministic tests.
type FixedClock time.Time

// Now implements ClockProvider.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// TraverseAll makes every property reachable.
type TraverseAll struct{}

// IsReachable implements TraversableResolver.
func (TraverseAll) IsReachable(reflect.Type, string) bool {
	return true
}

// Compile-time checks for the default collaborators.
var (
	_ ConstraintValidatorFactory = (*ConstraintRegistry)(nil)
	_ ParameterNameProvider      = DefaultParameterNameProvider{}
	_ ClockProvider              = SystemClock{}
	_ ClockProvider              = FixedClock{}
	_ TraversableResolver        = TraverseAll{}
)
