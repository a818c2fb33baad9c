package execution

import "context"

// stackKey distinguishes stacks stored in the same scope. Pointer identity makes
// every NewStack call produce a distinct key.
type stackKey struct {
	name string
}

// Stack is a last-in-first-out sequence of T kept separately in every scope.
// A zero Stack is not usable; create one with NewStack.
type Stack[T any] struct {
	key *stackKey
}

// NewStack creates a Stack. name is only used for debugging.
func NewStack[T any](name string) *Stack[T] {
	return &Stack[T]{key: &stackKey{name: name}}
}

// Push appends v to the scope's sequence. It reports false, and does nothing,
// when ctx carries no scope.
func (s *Stack[T]) Push(ctx context.Context, v T) bool {
	scope, ok := FromContext(ctx)
	if !ok {
		return false
	}
	scope.update(s.key, func(current any) any {
		items, _ := current.([]T)
		return append(items, v)
	})
	return true
}

// Pop removes and returns the most recently pushed value.
func (s *Stack[T]) Pop(ctx context.Context) (T, bool) {
	var top T
	found := false
	scope, ok := FromContext(ctx)
	if !ok {
		return top, false
	}
	scope.update(s.key, func(current any) any {
		items, _ := current.([]T)
		if len(items) == 0 {
			return nil
		}
		top, found = items[len(items)-1], true
		return shrink(items, len(items)-1)
	})
	return top, found
}

// RemoveLast removes the most recent value for which match returns true.
// It reports whether a value was removed.
func (s *Stack[T]) RemoveLast(ctx context.Context, match func(T) bool) bool {
	scope, ok := FromContext(ctx)
	if !ok {
		return false
	}
	removed := false
	scope.update(s.key, func(current any) any {
		items, _ := current.([]T)
		for i := len(items) - 1; i >= 0; i-- {
			if match(items[i]) {
				copy(items[i:], items[i+1:])
				removed = true
				return shrink(items, len(items)-1)
			}
		}
		if len(items) == 0 {
			return nil
		}
		return items
	})
	return removed
}

// Peek returns the most recently pushed value without removing it.
func (s *Stack[T]) Peek(ctx context.Context) (T, bool) {
	var top T
	scope, ok := FromContext(ctx)
	if !ok {
		return top, false
	}
	items, _ := scope.load(s.key).([]T)
	if len(items) == 0 {
		return top, false
	}
	return items[len(items)-1], true
}

// Len returns the number of values in the scope's sequence.
func (s *Stack[T]) Len(ctx context.Context) int {
	scope, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	items, _ := scope.load(s.key).([]T)
	return len(items)
}

// shrink truncates items to n, clearing the dropped slot so it does not pin
// the popped value, and returns nil for an empty result so the scope entry is dropped.
func shrink[T any](items []T, n int) any {
	if n < len(items) {
		var zero T
		items[n] = zero
	}
	if n == 0 {
		return nil
	}
	return items[:n]
}
