package correlation_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/Sentinel-Gate/beanguard/internal/domain/correlation"
	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

type account struct {
	ID string
}

// engine is a delegate whose Validate calls back into validateFn.
type engine struct {
	validation.Validator
	validateFn func(ctx context.Context, object any) (validation.Violations, error)
}

func (e *engine) Validate(ctx context.Context, object any, _ ...validation.Group) (validation.Violations, error) {
	return e.validateFn(ctx, object)
}

func (e *engine) ForExecutables() validation.ExecutableValidator { return nil }

func TestStack_LIFO(t *testing.T) {
	t.Parallel()

	s := correlation.NewStack("test")
	ctx := execution.WithScope(context.Background())
	a, b := &account{ID: "a"}, &account{ID: "b"}

	if _, ok := s.Current(ctx); ok {
		t.Fatal("Current() on an empty stack should be absent")
	}

	s.Push(ctx, a)
	s.Push(ctx, b)
	if got, _ := s.Current(ctx); got != b {
		t.Errorf("Current() = %v, want b", got)
	}
	if !s.Pop(ctx, b) {
		t.Error("Pop(b) = false, want true")
	}
	if got, _ := s.Current(ctx); got != a {
		t.Errorf("Current() = %v, want a", got)
	}
	s.Pop(ctx, a)
	if s.Depth(ctx) != 0 {
		t.Errorf("Depth() = %d, want 0", s.Depth(ctx))
	}
}

func TestStack_LenientPop(t *testing.T) {
	t.Parallel()

	s := correlation.NewStack("test")
	ctx := execution.WithScope(context.Background())
	a, b, c := &account{ID: "a"}, &account{ID: "b"}, &account{ID: "c"}

	if s.Pop(ctx, a) {
		t.Error("Pop() on an empty stack should be a no-op")
	}

	s.Push(ctx, a)
	s.Push(ctx, b)
	if s.Pop(ctx, c) {
		t.Error("Pop() of an absent bean should be a no-op")
	}
	if s.Depth(ctx) != 2 {
		t.Errorf("Depth() = %d, want 2", s.Depth(ctx))
	}

	// Out-of-order pop removes by value.
	if !s.Pop(ctx, a) {
		t.Error("Pop(a) below the top should succeed")
	}
	if got, _ := s.Current(ctx); got != b {
		t.Errorf("Current() = %v, want b", got)
	}
}

func TestStack_PopMatching(t *testing.T) {
	t.Parallel()

	s := correlation.NewStack("test")
	ctx := execution.WithScope(context.Background())

	tests := []struct {
		name   string
		pushed any
		popped any
		want   bool
	}{
		{"same pointer", &account{ID: "x"}, nil, true},
		{"distinct equal pointers", &account{ID: "x"}, &account{ID: "x"}, false},
		{"equal values", account{ID: "x"}, account{ID: "x"}, true},
		{"equal maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"different types", 1, int64(1), false},
	}

	for _, tt := range tests {
		popped := tt.popped
		if popped == nil {
			popped = tt.pushed
		}
		s.Push(ctx, tt.pushed)
		if got := s.Pop(ctx, popped); got != tt.want {
			t.Errorf("%s: Pop() = %v, want %v", tt.name, got, tt.want)
		}
		s.Pop(ctx, tt.pushed)
		if d := s.Depth(ctx); d != 0 {
			t.Fatalf("%s: Depth() = %d after cleanup", tt.name, d)
		}
	}
}

func TestStack_NoScope(t *testing.T) {
	t.Parallel()

	s := correlation.NewStack("test")
	if s.Push(context.Background(), &account{}) {
		t.Error("Push() without a scope should report false")
	}
	if _, ok := s.Current(context.Background()); ok {
		t.Error("Current() without a scope should be absent")
	}
}

func TestInterceptor_NestedValidation(t *testing.T) {
	t.Parallel()

	stack := correlation.NewStack("nested")
	a, b := &account{ID: "a"}, &account{ID: "b"}

	var seen []string
	record := func(ctx context.Context, label string) {
		cur, ok := stack.Current(ctx)
		if !ok {
			seen = append(seen, label+":none")
			return
		}
		seen = append(seen, label+":"+cur.(*account).ID)
	}

	var v *intercept.Validator
	delegate := &engine{}
	delegate.validateFn = func(ctx context.Context, object any) (validation.Violations, error) {
		record(ctx, "in-"+object.(*account).ID)
		if object == a {
			// A constraint on a triggers validation of b.
			if _, err := v.Validate(ctx, b); err != nil {
				return nil, err
			}
			record(ctx, "back-in-a")
		}
		return nil, nil
	}
	chain := intercept.NewChain(intercept.Static{correlation.NewInterceptor(stack)}.Interceptors())
	v = intercept.NewValidator(delegate, chain)

	ctx := execution.WithScope(context.Background())
	if _, err := v.Validate(ctx, a); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	record(ctx, "after")

	want := []string{"in-a:a", "in-b:b", "back-in-a:a", "after:none"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestInterceptor_PopsOnDelegatePanic(t *testing.T) {
	t.Parallel()

	stack := correlation.NewStack("panic")
	delegate := &engine{validateFn: func(context.Context, any) (validation.Violations, error) {
		panic("engine failure")
	}}
	v := intercept.NewValidator(delegate, intercept.NewChain(intercept.Static{correlation.NewInterceptor(stack)}.Interceptors()))

	ctx := execution.WithScope(context.Background())
	func() {
		defer func() { _ = recover() }()
		_, _ = v.Validate(ctx, &account{ID: "a"})
	}()

	if d := stack.Depth(ctx); d != 0 {
		t.Errorf("Depth() = %d after a failed validation, want 0", d)
	}
}

// brokenHook panics in its before-hook.
type brokenHook struct {
	intercept.Base
}

func (brokenHook) Name() string { return "broken" }

func (brokenHook) BeforeValidate(context.Context, any, ...validation.Group) {
	panic("broken before-hook")
}

func TestInterceptor_PopsWhenLaterBeforeHookPanics(t *testing.T) {
	t.Parallel()

	stack := correlation.NewStack("unwind")
	delegate := &engine{validateFn: func(context.Context, any) (validation.Violations, error) {
		t.Error("delegate called after a before-hook panic")
		return nil, nil
	}}
	chain := intercept.NewChain(
		intercept.Static{correlation.NewInterceptor(stack), brokenHook{}}.Interceptors(),
		intercept.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	v := intercept.NewValidator(delegate, chain)

	ctx := execution.WithScope(context.Background())
	recovered := func() (r any) {
		defer func() { r = recover() }()
		_, _ = v.Validate(ctx, &account{ID: "a"})
		return nil
	}()

	if recovered != "broken before-hook" {
		t.Fatalf("recovered %v, want the before-hook's panic value", recovered)
	}
	if d := stack.Depth(ctx); d != 0 {
		current, _ := stack.Current(ctx)
		t.Errorf("Depth() = %d (current %v) after an aborted validation, want 0", d, current)
	}
}

func TestInterceptor_MethodValidation(t *testing.T) {
	t.Parallel()

	stack := correlation.NewStack("method")
	i := correlation.NewInterceptor(stack)
	ctx := execution.WithScope(context.Background())
	target := &account{ID: "t"}
	method := validation.Method{Name: "Deposit"}

	i.BeforeValidateParameters(ctx, target, method, []any{10})
	if got, _ := stack.Current(ctx); got != target {
		t.Errorf("Current() = %v during parameter validation, want target", got)
	}
	i.AfterValidateParameters(ctx, target, method, []any{10}, validation.Violations{}, nil)

	i.BeforeValidateReturnValue(ctx, target, method, 20)
	if got, _ := stack.Current(ctx); got != target {
		t.Errorf("Current() = %v during return value validation, want target", got)
	}
	i.AfterValidateReturnValue(ctx, target, method, 20, validation.Violations{}, nil)

	if stack.Depth(ctx) != 0 {
		t.Errorf("Depth() = %d, want 0", stack.Depth(ctx))
	}
}

func TestInterceptor_ConcurrentScopesAreIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const n = 64
	delegate := &engine{}
	delegate.validateFn = func(ctx context.Context, object any) (validation.Violations, error) {
		cur, ok := correlation.CurrentBean(ctx)
		if !ok || cur != object {
			return nil, fmt.Errorf("saw %v while validating %v", cur, object)
		}
		return nil, nil
	}
	v := intercept.NewValidator(delegate, intercept.NewChain(intercept.Static{correlation.NewInterceptor(nil)}.Interceptors()))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			bean := &account{ID: fmt.Sprint(id)}
			for j := 0; j < 20; j++ {
				if _, err := v.Validate(context.Background(), bean); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
