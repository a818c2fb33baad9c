// Package validation defines the boundary between beanguard and the validation
// engine it decorates: the validator, factory and provider interfaces, the
// collaborators a factory exposes, and the bootstrap that discovers providers.
//
// Nothing in this package checks constraints. The engine does that; this
// package only describes how it is reached.
package validation

import (
	"fmt"
	"reflect"
)

// Group is a classifier tag narrowing which constraints apply.
// Groups are opaque to the interception layer and forwarded verbatim.
type Group string

// DefaultGroup is the group a constraint belongs to when none is declared.
const DefaultGroup Group = "default"

// Violation is one reported constraint failure.
type Violation struct {
	// Path is the property path relative to the validated root, e.g. "Address.Street".
	// For executable validation it names the parameter ("Transfer.amount") or
	// the return value ("Transfer.<return value>").
	Path string `json:"path"`

	// Constraint is the engine tag that failed, e.g. "required".
	Constraint string `json:"constraint"`

	// Param is the constraint parameter, e.g. "3" for "min=3".
	Param string `json:"param,omitempty"`

	// Message is the interpolated, human-readable message.
	Message string `json:"message"`

	// InvalidValue is the value that failed the constraint.
	InvalidValue any `json:"-"`

	// RootType is the type of the root object, when one exists.
	RootType reflect.Type `json:"-"`
}

// String renders the violation as "path: message".
func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Violations is the set of violations produced by one validation call.
// An empty set means the validated input satisfied every applicable constraint.
type Violations []Violation

// Empty reports whether the set holds no violations.
func (vs Violations) Empty() bool {
	return len(vs) == 0
}

// Paths returns the property path of every violation, in order.
func (vs Violations) Paths() []string {
	paths := make([]string, len(vs))
	for i, v := range vs {
		paths[i] = v.Path
	}
	return paths
}

// Parameter describes one parameter of a method or constructor.
type Parameter struct {
	// Name is the declared parameter name. May be empty; see ParameterNameProvider.
	Name string

	// Constraint is the engine tag expression applied to the argument, e.g. "required,gt=0".
	Constraint string
}

// Executable is implemented by Method and Constructor.
type Executable interface {
	// ExecutableName returns a display name such as "Account.Transfer".
	ExecutableName() string

	// ExecutableParameters returns the declared parameters in order.
	ExecutableParameters() []Parameter
}

// Method references a method whose parameters or return value are validated.
type Method struct {
	// Receiver is the type declaring the method.
	Receiver reflect.Type

	// Name is the method name.
	Name string

	// Parameters are the declared parameters in order.
	Parameters []Parameter

	// ReturnConstraint is the engine tag expression applied to the return value.
	ReturnConstraint string
}

// ExecutableName implements Executable.
func (m Method) ExecutableName() string {
	return qualifiedName(m.Receiver, m.Name)
}

// ExecutableParameters implements Executable.
func (m Method) ExecutableParameters() []Parameter {
	return m.Parameters
}

// Constructor references a constructor function, e.g. NewAccount for *Account.
type Constructor struct {
	// Type is the type the constructor produces.
	Type reflect.Type

	// Name is the constructor function name.
	Name string

	// Parameters are the declared parameters in order.
	Parameters []Parameter

	// ReturnConstraint is the engine tag expression applied to the created object,
	// in addition to the object's own struct constraints.
	ReturnConstraint string
}

// ExecutableName implements Executable.
func (c Constructor) ExecutableName() string {
	return qualifiedName(c.Type, c.Name)
}

// ExecutableParameters implements Executable.
func (c Constructor) ExecutableParameters() []Parameter {
	return c.Parameters
}

func qualifiedName(t reflect.Type, name string) string {
	if t == nil {
		return name
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name() + "." + name
}

// TypeOf returns the dynamic type of v with pointers dereferenced, or nil for a nil interface.
func TypeOf(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Compile-time checks that Method and Constructor implement Executable.
var (
	_ Executable = Method{}
	_ Executable = Constructor{}
)
