package intercept

import (
	"context"
	"reflect"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

// Validator wraps a delegate validator and dispatches the chain's hooks around
// every call. It is also its own executable view: ForExecutables returns the
// receiver, so method and constructor validations share its chain.
//
// Results are exactly the delegate's. Hooks observe, they never alter.
type Validator struct {
	delegate validation.Validator
	chain    *Chain
}

// NewValidator wraps delegate. A nil chain dispatches nothing.
func NewValidator(delegate validation.Validator, chain *Chain) *Validator {
	if chain == nil {
		chain = NewChain(nil)
	}
	return &Validator{delegate: delegate, chain: chain}
}

// Chain returns the dispatcher used by the validator.
func (v *Validator) Chain() *Chain {
	return v.chain
}

// Validate implements validation.Validator.
func (v *Validator) Validate(ctx context.Context, object any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidate(ctx, object, groups...) },
		func() (validation.Violations, error) { return v.delegate.Validate(ctx, object, groups...) },
		func(violations validation.Violations, err error) {
			v.chain.AfterValidate(ctx, object, violations, err, groups...)
		},
	)
}

// ValidateProperty implements validation.Validator.
func (v *Validator) ValidateProperty(ctx context.Context, object any, property string, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateProperty(ctx, object, property, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ValidateProperty(ctx, object, property, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateProperty(ctx, object, property, violations, err, groups...)
		},
	)
}

// ValidateValue implements validation.Validator.
func (v *Validator) ValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateValue(ctx, beanType, property, value, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ValidateValue(ctx, beanType, property, value, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateValue(ctx, beanType, property, value, violations, err, groups...)
		},
	)
}

// ForExecutables implements validation.Validator. It returns the receiver.
func (v *Validator) ForExecutables() validation.ExecutableValidator {
	return v
}

// Unwrap implements validation.Validator by forwarding to the delegate.
func (v *Validator) Unwrap(target any) bool {
	return v.delegate.Unwrap(target)
}

// ValidateParameters implements validation.ExecutableValidator.
func (v *Validator) ValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateParameters(ctx, object, method, parameters, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ForExecutables().ValidateParameters(ctx, object, method, parameters, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateParameters(ctx, object, method, parameters, violations, err, groups...)
		},
	)
}

// ValidateReturnValue implements validation.ExecutableValidator.
func (v *Validator) ValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateReturnValue(ctx, object, method, returnValue, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ForExecutables().ValidateReturnValue(ctx, object, method, returnValue, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateReturnValue(ctx, object, method, returnValue, violations, err, groups...)
		},
	)
}

// ValidateConstructorParameters implements validation.ExecutableValidator.
func (v *Validator) ValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateConstructorParameters(ctx, constructor, parameters, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ForExecutables().ValidateConstructorParameters(ctx, constructor, parameters, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateConstructorParameters(ctx, constructor, parameters, violations, err, groups...)
		},
	)
}

// ValidateConstructorReturnValue implements validation.ExecutableValidator.
func (v *Validator) ValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, groups ...validation.Group) (validation.Violations, error) {
	ctx = execution.Ensure(ctx)
	return guard(
		func() { v.chain.BeforeValidateConstructorReturnValue(ctx, constructor, created, groups...) },
		func() (validation.Violations, error) {
			return v.delegate.ForExecutables().ValidateConstructorReturnValue(ctx, constructor, created, groups...)
		},
		func(violations validation.Violations, err error) {
			v.chain.AfterValidateConstructorReturnValue(ctx, constructor, created, violations, err, groups...)
		},
	)
}

// guard runs before, then call, then after, where after runs however call ends.
//
// When call returns, after sees its violations (an empty set in place of nil)
// and error, and the caller gets call's results untouched. When call panics,
// after sees an empty set and a *DelegatePanicError, then the original value is
// re-panicked. When call exits the goroutine, after sees ErrDelegateAborted.
// A panic out of before skips call and after; the chain has already given the
// interceptors whose before-hook completed their after-hook.
func guard(before func(), call func() (validation.Violations, error), after func(validation.Violations, error)) (validation.Violations, error) {
	before()

	returned := false
	defer func() {
		if returned {
			return
		}
		r := recover()
		var err error = ErrDelegateAborted
		if r != nil {
			err = &DelegatePanicError{Value: r}
		}
		after(validation.Violations{}, err)
		if r != nil {
			panic(r)
		}
	}()

	violations, err := call()
	returned = true

	observed := violations
	if err != nil || observed == nil {
		observed = validation.Violations{}
	}
	after(observed, err)
	return violations, err
}

// Compile-time checks that Validator implements both validator views.
var (
	_ validation.Validator           = (*Validator)(nil)
	_ validation.ExecutableValidator = (*Validator)(nil)
)
