package playground

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// returnValueNode names the return value in executable violation paths.
const returnValueNode = "<return value>"

// Validator validates through the factory's engine. It is safe for concurrent use.
type Validator struct {
	factory *Factory
}

// Validate implements validation.Validator.
//
// Fields outside the requested groups, and fields the TraversableResolver
// declares unreachable, are skipped along with everything below them.
func (v *Validator) Validate(ctx context.Context, object any, groups ...validation.Group) (validation.Violations, error) {
	root := validation.TypeOf(object)
	if root == nil || root.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validate: %w", &validator.InvalidValidationError{Type: reflect.TypeOf(object)})
	}

	fields := v.factory.fields.of(root)
	err := v.factory.validate.StructFilteredCtx(ctx, object, func(ns []byte) bool {
		return v.skip(root, fields, relativePath(root, string(ns)), groups)
	})
	return v.violations(err, root)
}

// ValidateProperty implements validation.Validator. property is a dotted path
// relative to object, e.g. "Payer.Name".
func (v *Validator) ValidateProperty(ctx context.Context, object any, property string, groups ...validation.Group) (validation.Violations, error) {
	root := validation.TypeOf(object)
	if root == nil || root.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validate property %q: %w", property, &validator.InvalidValidationError{Type: reflect.TypeOf(object)})
	}
	fields := v.factory.fields.of(root)
	info, ok := fields[property]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", validation.ErrUnknownProperty, root.Name(), property)
	}
	if !inGroups(info.groups, groups) || !v.factory.traversable.IsReachable(root, property) {
		return validation.Violations{}, nil
	}

	err := v.factory.validate.StructPartialCtx(ctx, object, property)
	violations, err := v.violations(err, root)
	if err != nil {
		return nil, err
	}

	// The partial run also reports the constraints of nested fields; keep only
	// those that pass the same group and reachability rules as Validate.
	kept := make(validation.Violations, 0, len(violations))
	for _, vl := range violations {
		if !v.skip(root, fields, stripIndexes(vl.Path), groups) {
			kept = append(kept, vl)
		}
	}
	return kept, nil
}

// ValidateValue implements validation.Validator. value is checked against the
// constraints declared on property of beanType.
func (v *Validator) ValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...validation.Group) (validation.Violations, error) {
	if beanType == nil {
		return nil, fmt.Errorf("validate value %q: nil bean type", property)
	}
	root := elemType(beanType)
	info, ok := v.factory.fields.of(root)[property]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", validation.ErrUnknownProperty, root.Name(), property)
	}
	if !inGroups(info.groups, groups) {
		return validation.Violations{}, nil
	}
	return v.checkValue(ctx, value, info.field.Tag.Get(v.factory.tagName), property, info.field.Name, root)
}

// ForExecutables implements validation.Validator.
func (v *Validator) ForExecutables() validation.ExecutableValidator {
	return v
}

// Unwrap implements validation.Validator. The concrete value is the engine's
// *validator.Validate.
func (v *Validator) Unwrap(target any) bool {
	return validation.AssignTo(target, v.factory.validate)
}

// ValidateParameters implements validation.ExecutableValidator. Parameter
// constraints belong to every group.
func (v *Validator) ValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, _ ...validation.Group) (validation.Violations, error) {
	return v.checkParameters(ctx, method, method.Name, parameters, validation.TypeOf(object))
}

// ValidateReturnValue implements validation.ExecutableValidator.
func (v *Validator) ValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, _ ...validation.Group) (validation.Violations, error) {
	return v.checkValue(ctx, returnValue, method.ReturnConstraint, method.Name+"."+returnValueNode, returnValueNode, validation.TypeOf(object))
}

// ValidateConstructorParameters implements validation.ExecutableValidator.
func (v *Validator) ValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, _ ...validation.Group) (validation.Violations, error) {
	var root reflect.Type
	if constructor.Type != nil {
		root = elemType(constructor.Type)
	}
	return v.checkParameters(ctx, constructor, constructor.Name, parameters, root)
}

// ValidateConstructorReturnValue implements validation.ExecutableValidator.
// A created struct is validated as a whole in the requested groups, with paths
// below the return value node. Any other value, a nil pointer included, is
// checked against the return constraint.
func (v *Validator) ValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, groups ...validation.Group) (validation.Violations, error) {
	var root reflect.Type
	if constructor.Type != nil {
		root = elemType(constructor.Type)
	}
	prefix := constructor.Name + "." + returnValueNode

	t := validation.TypeOf(created)
	if t == nil || t.Kind() != reflect.Struct || isNilPointer(created) {
		return v.checkValue(ctx, created, constructor.ReturnConstraint, prefix, returnValueNode, root)
	}

	nested, err := v.Validate(ctx, created, groups...)
	if err != nil {
		return nil, err
	}
	for i := range nested {
		nested[i].Path = prefix + "." + nested[i].Path
	}
	return nested, nil
}

func (v *Validator) checkParameters(ctx context.Context, e validation.Executable, name string, parameters []any, root reflect.Type) (validation.Violations, error) {
	declared := e.ExecutableParameters()
	if len(parameters) != len(declared) {
		return nil, fmt.Errorf("%s: %w (got %d, want %d)", e.ExecutableName(), validation.ErrParameterCount, len(parameters), len(declared))
	}

	names := v.factory.parameterNames.ParameterNames(e)
	violations := validation.Violations{}
	for i, p := range declared {
		paramName := fmt.Sprintf("arg%d", i)
		if i < len(names) && names[i] != "" {
			paramName = names[i]
		}
		found, err := v.checkValue(ctx, parameters[i], p.Constraint, name+"."+paramName, paramName, root)
		if err != nil {
			return nil, err
		}
		violations = append(violations, found...)
	}
	return violations, nil
}

// checkValue runs tag against value. path and field name the value in the
// resulting violations.
func (v *Validator) checkValue(ctx context.Context, value any, tag, path, field string, root reflect.Type) (validation.Violations, error) {
	if strings.TrimSpace(tag) == "" {
		return validation.Violations{}, nil
	}
	err := v.factory.validate.VarCtx(ctx, value, tag)
	if err == nil {
		return validation.Violations{}, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	violations := make(validation.Violations, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, validation.Violation{
			Path:         path,
			Constraint:   fe.Tag(),
			Param:        fe.Param(),
			Message:      v.factory.message(fe, field),
			InvalidValue: fe.Value(),
			RootType:     root,
		})
	}
	return violations, nil
}

// skip is the engine filter: true drops the field at path, relative to root
// and without indexes, and everything below it.
func (v *Validator) skip(root reflect.Type, fields fieldIndex, path string, groups []validation.Group) bool {
	if !v.factory.traversable.IsReachable(root, path) {
		return true
	}
	info, ok := fields[path]
	if !ok {
		return false
	}
	return !inGroups(info.groups, groups)
}

// violations converts an engine result into a violation set. A nil error is
// an empty set; an engine misuse error is returned as is.
func (v *Validator) violations(err error, root reflect.Type) (validation.Violations, error) {
	if err == nil {
		return validation.Violations{}, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate %s: %w", root, err)
	}

	violations := make(validation.Violations, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := trimRoot(root, fe.StructNamespace())
		violations = append(violations, validation.Violation{
			Path:         path,
			Constraint:   fe.Tag(),
			Param:        fe.Param(),
			Message:      v.factory.message(fe, fe.Field()),
			InvalidValue: fe.Value(),
			RootType:     root,
		})
	}
	return violations, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Compile-time checks that Validator implements both validator views.
var (
	_ validation.Validator           = (*Validator)(nil)
	_ validation.ExecutableValidator = (*Validator)(nil)
)
