package validation

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for bootstrap and engine operations.
var (
	// ErrNoProvider is returned when the provider resolver yields no provider.
	ErrNoProvider = errors.New("no validation provider available")

	// ErrProviderNotFound is returned when a provider requested by name is not resolvable.
	ErrProviderNotFound = errors.New("validation provider not found")

	// ErrParameterCount is returned when the number of arguments does not match
	// the number of declared parameters of an executable.
	ErrParameterCount = errors.New("argument count does not match declared parameters")

	// ErrUnknownProperty is returned when a property path does not name a field of the bean type.
	ErrUnknownProperty = errors.New("unknown property")
)

// ConfigurationError reports a validation subsystem that cannot be set up.
// It is fatal: there is no degraded mode and retrying will not help.
type ConfigurationError struct {
	// Message describes what is misconfigured.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation configuration error: %s: %v", e.Message, e.Err)
	}
	return "validation configuration error: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(message string, err error) *ConfigurationError {
	return &ConfigurationError{Message: message, Err: err}
}

// AssignTo stores value into target, which must be a non-nil pointer whose element
// type value is assignable to. It reports whether the assignment happened.
// Engines use it to implement Unwrap.
func AssignTo(target, value any) bool {
	if target == nil || value == nil {
		return false
	}
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return false
	}
	elem := ptr.Elem()
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(elem.Type()) {
		return false
	}
	elem.Set(v)
	return true
}
