// Package intercept decorates a validation engine so that registered
// interceptors observe every validation call.
//
// The decorator chain mirrors the engine's bootstrap: ProviderResolver wraps
// every Provider, Provider wraps the ValidatorFactory it builds, and
// ValidatorFactory hands out Validators that dispatch hooks around each call.
package intercept

import (
	"context"
	"reflect"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Interceptor observes validation calls. Besides Name, an interceptor implements
// any subset of the hook interfaces below; the dispatcher only calls the hooks an
// interceptor has. Embed Base to inherit no-op hooks for everything else.
//
// Hooks run synchronously on the caller's goroutine. They must not modify their
// inputs and cannot short-circuit the call. A panicking hook is handled by the
// Chain's FailurePolicy.
type Interceptor interface {
	// Name identifies the interceptor in logs and metrics.
	Name() string
}

// ValidateHook observes Validator.Validate.
type ValidateHook interface {
	BeforeValidate(ctx context.Context, object any, groups ...validation.Group)
	AfterValidate(ctx context.Context, object any, violations validation.Violations, err error, groups ...validation.Group)
}

// PropertyHook observes Validator.ValidateProperty.
type PropertyHook interface {
	BeforeValidateProperty(ctx context.Context, object any, property string, groups ...validation.Group)
	AfterValidateProperty(ctx context.Context, object any, property string, violations validation.Violations, err error, groups ...validation.Group)
}

// ValueHook observes Validator.ValidateValue.
type ValueHook interface {
	BeforeValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...validation.Group)
	AfterValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, violations validation.Violations, err error, groups ...validation.Group)
}

// ParametersHook observes ExecutableValidator.ValidateParameters.
type ParametersHook interface {
	BeforeValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, groups ...validation.Group)
	AfterValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, violations validation.Violations, err error, groups ...validation.Group)
}

// ReturnValueHook observes ExecutableValidator.ValidateReturnValue.
type ReturnValueHook interface {
	BeforeValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, groups ...validation.Group)
	AfterValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, violations validation.Violations, err error, groups ...validation.Group)
}

// ConstructorParametersHook observes ExecutableValidator.ValidateConstructorParameters.
type ConstructorParametersHook interface {
	BeforeValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, groups ...validation.Group)
	AfterValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, violations validation.Violations, err error, groups ...validation.Group)
}

// ConstructorReturnValueHook observes ExecutableValidator.ValidateConstructorReturnValue.
type ConstructorReturnValueHook interface {
	BeforeValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, groups ...validation.Group)
	AfterValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, violations validation.Violations, err error, groups ...validation.Group)
}

// Base implements every hook as a no-op.
type Base struct{}

func (Base) BeforeValidate(context.Context, any, ...validation.Group) {}
func (Base) AfterValidate(context.Context, any, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateProperty(context.Context, any, string, ...validation.Group) {}
func (Base) AfterValidateProperty(context.Context, any, string, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateValue(context.Context, reflect.Type, string, any, ...validation.Group) {}
func (Base) AfterValidateValue(context.Context, reflect.Type, string, any, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateParameters(context.Context, any, validation.Method, []any, ...validation.Group) {
}
func (Base) AfterValidateParameters(context.Context, any, validation.Method, []any, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateReturnValue(context.Context, any, validation.Method, any, ...validation.Group) {
}
func (Base) AfterValidateReturnValue(context.Context, any, validation.Method, any, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateConstructorParameters(context.Context, validation.Constructor, []any, ...validation.Group) {
}
func (Base) AfterValidateConstructorParameters(context.Context, validation.Constructor, []any, validation.Violations, error, ...validation.Group) {
}
func (Base) BeforeValidateConstructorReturnValue(context.Context, validation.Constructor, any, ...validation.Group) {
}
func (Base) AfterValidateConstructorReturnValue(context.Context, validation.Constructor, any, validation.Violations, error, ...validation.Group) {
}

// Compile-time check that Base implements every hook.
var (
	_ ValidateHook               = Base{}
	_ PropertyHook               = Base{}
	_ ValueHook                  = Base{}
	_ ParametersHook             = Base{}
	_ ReturnValueHook            = Base{}
	_ ConstructorParametersHook  = Base{}
	_ ConstructorReturnValueHook = Base{}
)

// implements reports whether i has the hook interface for kind.
func implements(i Interceptor, kind Kind) bool {
	switch kind {
	case KindValidate:
		_, ok := i.(ValidateHook)
		return ok
	case KindValidateProperty:
		_, ok := i.(PropertyHook)
		return ok
	case KindValidateValue:
		_, ok := i.(ValueHook)
		return ok
	case KindValidateParameters:
		_, ok := i.(ParametersHook)
		return ok
	case KindValidateReturnValue:
		_, ok := i.(ReturnValueHook)
		return ok
	case KindValidateConstructorParameters:
		_, ok := i.(ConstructorParametersHook)
		return ok
	case KindValidateConstructorReturnValue:
		_, ok := i.(ConstructorReturnValueHook)
		return ok
	default:
		return false
	}
}

// hasAnyHook reports whether i implements at least one hook interface.
func hasAnyHook(i Interceptor) bool {
	for _, k := range Kinds() {
		if implements(i, k) {
			return true
		}
	}
	return false
}
