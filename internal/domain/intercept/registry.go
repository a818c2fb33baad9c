package intercept

import (
	"context"
	"fmt"
	"sync"
)

// Predicate restricts an interceptor to matching invocations. It sees the call's
// inputs only, so the before and after hooks of one call always agree.
type Predicate interface {
	Match(ctx context.Context, inv *Invocation) bool
}

// PredicateFunc adapts an ordinary function to Predicate.
type PredicateFunc func(ctx context.Context, inv *Invocation) bool

// Match calls f(ctx, inv).
func (f PredicateFunc) Match(ctx context.Context, inv *Invocation) bool {
	return f(ctx, inv)
}

// Registration is one entry of an interceptor set.
type Registration struct {
	Interceptor Interceptor
	// When, if set, limits dispatch to matching invocations.
	When Predicate
}

// Discovery returns the interceptor set, in dispatch order.
// Providers call it once and keep the result.
type Discovery interface {
	Interceptors() []Registration
}

// RegisterOption customizes a Registration.
type RegisterOption func(*Registration)

// When limits the interceptor to invocations matched by p.
func When(p Predicate) RegisterOption {
	return func(r *Registration) {
		r.When = p
	}
}

// Registry is an ordered, append-only interceptor set. It is safe for concurrent use.
// Registering the same interceptor twice dispatches it twice.
type Registry struct {
	mu   sync.RWMutex
	regs []Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends i to the set.
func (r *Registry) Register(i Interceptor, opts ...RegisterOption) error {
	if i == nil {
		return fmt.Errorf("register interceptor: nil interceptor")
	}
	if !hasAnyHook(i) {
		return fmt.Errorf("register interceptor %q: %w", i.Name(), ErrNoHooks)
	}

	reg := Registration{Interceptor: i}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs = append(r.regs, reg)
	return nil
}

// Interceptors implements Discovery. The returned slice is a snapshot.
func (r *Registry) Interceptors() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := make([]Registration, len(r.regs))
	copy(regs, r.regs)
	return regs
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

var defaultRegistry = NewRegistry()

// Register appends i to the process-wide registry.
func Register(i Interceptor, opts ...RegisterOption) error {
	return defaultRegistry.Register(i, opts...)
}

// Registered returns the process-wide registry.
func Registered() Discovery {
	return defaultRegistry
}

// Static is a Discovery over a fixed list of interceptors without predicates.
type Static []Interceptor

// Interceptors implements Discovery.
func (s Static) Interceptors() []Registration {
	regs := make([]Registration, 0, len(s))
	for _, i := range s {
		regs = append(regs, Registration{Interceptor: i})
	}
	return regs
}
