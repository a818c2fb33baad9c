package validation

import (
	"context"
	"reflect"
	"time"
)

// Validator validates beans, single properties and candidate values.
//
// Every method returns the violation set produced by the engine, or an error when
// the engine could not validate at all (for example a nil or non-struct input).
// An error is distinct from a non-empty violation set.
type Validator interface {
	// Validate validates every constraint of object in the given groups.
	Validate(ctx context.Context, object any, groups ...Group) (Violations, error)

	// ValidateProperty validates the constraints of one property of object.
	ValidateProperty(ctx context.Context, object any, property string, groups ...Group) (Violations, error)

	// ValidateValue validates the constraints declared on property of beanType
	// against value, without an instance of beanType.
	ValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...Group) (Violations, error)

	// ForExecutables returns the view validating method and constructor calls.
	ForExecutables() ExecutableValidator

	// Unwrap stores the engine's concrete value into target, which must be a
	// non-nil pointer. It reports whether the concrete value was assignable.
	Unwrap(target any) bool
}

// ExecutableValidator validates method and constructor parameters and return values.
type ExecutableValidator interface {
	// ValidateParameters validates the arguments of a call to method on object.
	ValidateParameters(ctx context.Context, object any, method Method, parameters []any, groups ...Group) (Violations, error)

	// ValidateReturnValue validates the value returned by method on object.
	ValidateReturnValue(ctx context.Context, object any, method Method, returnValue any, groups ...Group) (Violations, error)

	// ValidateConstructorParameters validates the arguments of a call to constructor.
	ValidateConstructorParameters(ctx context.Context, constructor Constructor, parameters []any, groups ...Group) (Violations, error)

	// ValidateConstructorReturnValue validates the object created by constructor.
	ValidateConstructorReturnValue(ctx context.Context, constructor Constructor, created any, groups ...Group) (Violations, error)
}

// ValidatorFactory produces validators and exposes the collaborators it was built with.
type ValidatorFactory interface {
	// Validator returns a validator. Whether instances are cached is up to the implementation.
	Validator() Validator

	MessageInterpolator() MessageInterpolator
	TraversableResolver() TraversableResolver
	ConstraintValidatorFactory() ConstraintValidatorFactory
	ParameterNameProvider() ParameterNameProvider
	ClockProvider() ClockProvider

	// Unwrap stores the factory's concrete engine value into target. See Validator.Unwrap.
	Unwrap(target any) bool

	// Close releases the factory's resources. Validators obtained from a closed
	// factory must not be used.
	Close() error
}

// Provider is the service-provider entry point of a validation engine.
type Provider interface {
	// Name identifies the provider, e.g. "go-playground".
	Name() string

	// CreateSpecializedConfiguration returns a configuration pinned to this provider,
	// which may expose provider-specific options.
	CreateSpecializedConfiguration(state BootstrapState) Configuration

	// CreateGenericConfiguration returns a provider-agnostic configuration.
	CreateGenericConfiguration(state BootstrapState) Configuration

	// BuildValidatorFactory builds a factory from a completed configuration.
	BuildValidatorFactory(state ConfigurationState) (ValidatorFactory, error)
}

// ProviderResolver discovers the available providers.
type ProviderResolver interface {
	// ValidationProviders returns the providers in preference order.
	ValidationProviders() []Provider
}

// MessageTemplate is the input of message interpolation.
type MessageTemplate struct {
	// Constraint is the failing constraint tag.
	Constraint string
	// Field is the display name of the validated property.
	Field string
	// Param is the constraint parameter.
	Param string
	// Value is the invalid value.
	Value any
}

// MessageInterpolator renders violation messages.
type MessageInterpolator interface {
	Interpolate(t MessageTemplate) string
}

// TraversableResolver decides whether the engine may reach a property.
// path is the property path relative to the root, e.g. "Payer.Name".
type TraversableResolver interface {
	IsReachable(rootType reflect.Type, path string) bool
}

// ParameterNameProvider names the parameters of an executable in violation paths.
type ParameterNameProvider interface {
	ParameterNames(e Executable) []string
}

// ClockProvider supplies the reference time for temporal constraints such as "past".
type ClockProvider interface {
	Now() time.Time
}

// ConstraintContext is what a custom constraint sees of the value it checks.
//
// It deliberately carries only the relative property path, not the root bean.
// Constraints that need the enclosing bean recover it through the correlation
// stack using the ctx passed to ConstraintFunc.
type ConstraintContext struct {
	// Value is the value under test.
	Value any
	// Path is the dotted field path of the value relative to the validated
	// root, e.g. "Payer.Account". It is empty for standalone values.
	Path string
	// Param is the constraint parameter, e.g. "decimal" for "stringformat=decimal".
	Param string
}

// ConstraintFunc checks one custom constraint. It reports whether the value is valid.
type ConstraintFunc func(ctx context.Context, c ConstraintContext) bool

// ConstraintValidatorFactory supplies custom constraint implementations by tag.
type ConstraintValidatorFactory interface {
	// Lookup returns the implementation registered for tag.
	Lookup(tag string) (ConstraintFunc, bool)

	// Tags returns every registered tag in registration order.
	Tags() []string
}
