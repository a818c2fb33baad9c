package intercept

import (
	"errors"
	"fmt"
	"strings"
)

// FailurePolicy decides what happens when a hook panics.
type FailurePolicy string

const (
	// FailurePolicyPropagate lets the panic continue with its original value once it
	// has been logged and counted. Remaining interceptors are not dispatched; a
	// panicking before-hook aborts the delegate call, and the interceptors whose
	// before-hook already completed receive their after-hook with the *HookError.
	FailurePolicyPropagate FailurePolicy = "propagate"

	// FailurePolicySuppress logs and counts the failure as a *HookError and
	// continues with the next interceptor. Validation results are unaffected.
	FailurePolicySuppress FailurePolicy = "suppress"
)

// ParseFailurePolicy converts a configuration string into a FailurePolicy.
// The empty string selects FailurePolicyPropagate.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailurePolicyPropagate:
		return FailurePolicyPropagate, nil
	case FailurePolicySuppress:
		return FailurePolicySuppress, nil
	default:
		return "", fmt.Errorf("unknown hook failure policy %q (want %q or %q)", s, FailurePolicyPropagate, FailurePolicySuppress)
	}
}

// HookError describes a panic raised by an interceptor hook.
type HookError struct {
	Interceptor string
	Kind        Kind
	Phase       Phase
	// Value is the value the hook panicked with.
	Value any
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("interceptor %q panicked in %s %s hook: %v", e.Interceptor, e.Phase, e.Kind, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *HookError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// DelegatePanicError is the failure after-hooks receive when the delegate
// validator panicked. The original panic value is re-raised once they ran.
type DelegatePanicError struct {
	Value any
}

// Error implements the error interface.
func (e *DelegatePanicError) Error() string {
	return fmt.Sprintf("delegate validator panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *DelegatePanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// ErrDelegateAborted is the failure after-hooks receive when the delegate
// validator exited its goroutine (runtime.Goexit) instead of returning.
var ErrDelegateAborted = errors.New("delegate validator did not return")

// ErrNoHooks is returned when registering an interceptor that implements no hook.
var ErrNoHooks = errors.New("interceptor implements no hook")
