// Package correlation tracks which bean each execution scope is currently
// validating, so that constraint implementations, which only see a relative
// property path, can recover the enclosing bean.
package correlation

import (
	"context"
	"reflect"

	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

// Stack is a per-scope last-in-first-out sequence of beans under validation.
// Scopes never see each other's entries.
type Stack struct {
	beans *execution.Stack[any]
}

// NewStack creates an empty Stack.
func NewStack(name string) *Stack {
	return &Stack{beans: execution.NewStack[any](name)}
}

// Push records bean as the innermost bean under validation in ctx's scope.
// It reports false when ctx carries no scope.
func (s *Stack) Push(ctx context.Context, bean any) bool {
	return s.beans.Push(ctx, bean)
}

// Pop removes the most recent entry equal to bean. Popping a bean that is absent,
// or popping from an empty stack, is a no-op that reports false: an unbalanced
// hook must not break the validation it observes.
func (s *Stack) Pop(ctx context.Context, bean any) bool {
	return s.beans.RemoveLast(ctx, func(entry any) bool {
		return same(entry, bean)
	})
}

// Current returns the innermost bean under validation in ctx's scope.
func (s *Stack) Current(ctx context.Context) (any, bool) {
	return s.beans.Peek(ctx)
}

// Depth returns the number of beans under validation in ctx's scope.
func (s *Stack) Depth(ctx context.Context) int {
	return s.beans.Len(ctx)
}

// same reports whether two stack entries denote the same bean: identity for
// pointers, == for other comparable values, deep equality otherwise.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return comparableEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// comparableEqual compares with ==, falling back to deep equality when the
// dynamic value holds an incomparable field behind an interface.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// Beans is the stack maintained by Interceptor.
var Beans = NewStack("correlation.beans")

// CurrentBean returns the innermost bean whose validation is in progress in
// ctx's scope. Constraint implementations call it with the ctx they were given.
func CurrentBean(ctx context.Context) (any, bool) {
	return Beans.Current(ctx)
}
