// Package execution defines the execution context that beanguard keys
// per-call bookkeeping on.
//
// Go has no goroutine-local storage, so the unit of isolation is an explicit
// Scope carried by a context.Context. The intercepting validator ensures every
// entry point runs inside a scope; nested validations that pass along the ctx
// they were given share it, while independent top-level calls each get their own.
//
// This package should have no dependencies on other internal packages.
package execution

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// scopeKey is the context key type for the execution scope.
type scopeKey struct{}

// Scope is the state of one execution context.
//
// A scope is owned by the goroutine that created it. Its bookkeeping is guarded
// by a mutex so a scoped ctx shared by mistake stays memory-safe, but sharing one
// across goroutines interleaves their stacks. Use WithScope to fork.
type Scope struct {
	id     string
	mu     sync.Mutex
	values map[any]any
}

// WithScope returns a child of ctx carrying a new, empty scope.
func WithScope(ctx context.Context) context.Context {
	s := &Scope{
		id:     uuid.NewString(),
		values: make(map[any]any),
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// Ensure returns ctx unchanged when it already carries a scope, and a child
// carrying a new scope otherwise.
func Ensure(ctx context.Context) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	return WithScope(ctx)
}

// FromContext returns the scope carried by ctx.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// ID returns the scope identifier, or "" when ctx carries no scope.
func ID(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.id
	}
	return ""
}

// ID returns the unique identifier of the scope.
func (s *Scope) ID() string {
	return s.id
}

// update runs fn with exclusive access to the value stored under key.
// fn returns the new value; returning nil deletes the key.
func (s *Scope) update(key any, fn func(current any) any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.values[key])
	if next == nil {
		delete(s.values, key)
		return
	}
	s.values[key] = next
}

// load returns the value stored under key.
func (s *Scope) load(key any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}
