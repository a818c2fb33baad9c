package correlation

import (
	"context"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Interceptor binds the bean under validation to the stack for the duration of
// whole-object, method parameter and method return value validations.
type Interceptor struct {
	stack *Stack
}

// NewInterceptor creates an Interceptor over stack. A nil stack means Beans.
func NewInterceptor(stack *Stack) *Interceptor {
	if stack == nil {
		stack = Beans
	}
	return &Interceptor{stack: stack}
}

// Name implements intercept.Interceptor.
func (i *Interceptor) Name() string {
	return "correlation"
}

func (i *Interceptor) BeforeValidate(ctx context.Context, object any, _ ...validation.Group) {
	i.stack.Push(ctx, object)
}

func (i *Interceptor) AfterValidate(ctx context.Context, object any, _ validation.Violations, _ error, _ ...validation.Group) {
	i.stack.Pop(ctx, object)
}

func (i *Interceptor) BeforeValidateParameters(ctx context.Context, object any, _ validation.Method, _ []any, _ ...validation.Group) {
	i.stack.Push(ctx, object)
}

func (i *Interceptor) AfterValidateParameters(ctx context.Context, object any, _ validation.Method, _ []any, _ validation.Violations, _ error, _ ...validation.Group) {
	i.stack.Pop(ctx, object)
}

func (i *Interceptor) BeforeValidateReturnValue(ctx context.Context, object any, _ validation.Method, _ any, _ ...validation.Group) {
	i.stack.Push(ctx, object)
}

func (i *Interceptor) AfterValidateReturnValue(ctx context.Context, object any, _ validation.Method, _ any, _ validation.Violations, _ error, _ ...validation.Group) {
	i.stack.Pop(ctx, object)
}

// Compile-time checks that Interceptor implements its hooks.
var (
	_ intercept.ValidateHook    = (*Interceptor)(nil)
	_ intercept.ParametersHook  = (*Interceptor)(nil)
	_ intercept.ReturnValueHook = (*Interceptor)(nil)
)
