package intercept

import (
	"reflect"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Kind identifies a validation entry point.
type Kind int

// Validation entry points, in SPI order.
const (
	KindValidate Kind = iota
	KindValidateProperty
	KindValidateValue
	KindValidateParameters
	KindValidateReturnValue
	KindValidateConstructorParameters
	KindValidateConstructorReturnValue
)

var kindNames = [...]string{
	KindValidate:                       "validate",
	KindValidateProperty:               "validate_property",
	KindValidateValue:                  "validate_value",
	KindValidateParameters:             "validate_parameters",
	KindValidateReturnValue:            "validate_return_value",
	KindValidateConstructorParameters:  "validate_constructor_parameters",
	KindValidateConstructorReturnValue: "validate_constructor_return_value",
}

// String returns the snake_case name of the entry point.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds returns every entry point.
func Kinds() []Kind {
	return []Kind{
		KindValidate,
		KindValidateProperty,
		KindValidateValue,
		KindValidateParameters,
		KindValidateReturnValue,
		KindValidateConstructorParameters,
		KindValidateConstructorReturnValue,
	}
}

// Phase says whether a hook runs before or after the delegate call.
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseAfter
)

// String returns "before" or "after".
func (p Phase) String() string {
	if p == PhaseAfter {
		return "after"
	}
	return "before"
}

// Invocation describes one validation call. It exists for the duration of the
// call only and is never retained by the dispatcher.
//
// Fields that do not apply to Kind are zero.
type Invocation struct {
	Kind Kind

	// Object is the validated bean (validate, validate_property) or the object
	// the method is invoked on (parameters, return value).
	Object any

	// BeanType is the type of Object, the explicit bean type of validate_value,
	// or the type built by a constructor.
	BeanType reflect.Type

	Property    string
	Value       any
	Method      *validation.Method
	Constructor *validation.Constructor
	Parameters  []any
	ReturnValue any
	Groups      []validation.Group
}

// Target returns the bean the invocation is about: Object when set, otherwise
// the created object of a constructor return value validation.
func (inv *Invocation) Target() any {
	if inv.Object != nil {
		return inv.Object
	}
	if inv.Kind == KindValidateConstructorReturnValue {
		return inv.ReturnValue
	}
	return nil
}

// BeanTypeName returns the name of BeanType, or "" when unknown.
func (inv *Invocation) BeanTypeName() string {
	if inv.BeanType == nil {
		return ""
	}
	return inv.BeanType.String()
}

// ExecutableName returns the method or constructor name, or "".
func (inv *Invocation) ExecutableName() string {
	switch {
	case inv.Method != nil:
		return inv.Method.ExecutableName()
	case inv.Constructor != nil:
		return inv.Constructor.ExecutableName()
	default:
		return ""
	}
}

// GroupNames returns Groups as plain strings.
func (inv *Invocation) GroupNames() []string {
	names := make([]string, len(inv.Groups))
	for i, g := range inv.Groups {
		names[i] = string(g)
	}
	return names
}

// Outcome classifies the result of a validation call.
type Outcome string

const (
	OutcomeValid   Outcome = "valid"
	OutcomeInvalid Outcome = "invalid"
	OutcomeError   Outcome = "error"
)

// OutcomeOf classifies a delegate result as seen by an after-hook.
func OutcomeOf(violations validation.Violations, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeError
	case len(violations) > 0:
		return OutcomeInvalid
	default:
		return OutcomeValid
	}
}
