package intercept

import (
	"context"
	"reflect"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Observer is a kind-agnostic alternative to the per-entry-point hooks, for
// interceptors that treat every validation call alike (logging, metrics, tracing).
type Observer interface {
	Before(ctx context.Context, inv *Invocation)
	After(ctx context.Context, inv *Invocation, violations validation.Violations, err error)
}

// Observe adapts an Observer to the full hook contract under the given name.
func Observe(name string, o Observer) Interceptor {
	return &observerInterceptor{name: name, observer: o}
}

type observerInterceptor struct {
	name     string
	observer Observer
}

func (o *observerInterceptor) Name() string { return o.name }

func (o *observerInterceptor) BeforeValidate(ctx context.Context, object any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidate, Object: object, BeanType: validation.TypeOf(object), Groups: groups})
}

func (o *observerInterceptor) AfterValidate(ctx context.Context, object any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidate, Object: object, BeanType: validation.TypeOf(object), Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateProperty(ctx context.Context, object any, property string, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateProperty, Object: object, BeanType: validation.TypeOf(object), Property: property, Groups: groups})
}

func (o *observerInterceptor) AfterValidateProperty(ctx context.Context, object any, property string, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateProperty, Object: object, BeanType: validation.TypeOf(object), Property: property, Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateValue, BeanType: beanType, Property: property, Value: value, Groups: groups})
}

func (o *observerInterceptor) AfterValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateValue, BeanType: beanType, Property: property, Value: value, Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateParameters, Object: object, BeanType: validation.TypeOf(object), Method: &method, Parameters: parameters, Groups: groups})
}

func (o *observerInterceptor) AfterValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateParameters, Object: object, BeanType: validation.TypeOf(object), Method: &method, Parameters: parameters, Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateReturnValue, Object: object, BeanType: validation.TypeOf(object), Method: &method, ReturnValue: returnValue, Groups: groups})
}

func (o *observerInterceptor) AfterValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateReturnValue, Object: object, BeanType: validation.TypeOf(object), Method: &method, ReturnValue: returnValue, Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateConstructorParameters, BeanType: constructedType(constructor), Constructor: &constructor, Parameters: parameters, Groups: groups})
}

func (o *observerInterceptor) AfterValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateConstructorParameters, BeanType: constructedType(constructor), Constructor: &constructor, Parameters: parameters, Groups: groups}, violations, err)
}

func (o *observerInterceptor) BeforeValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, groups ...validation.Group) {
	o.observer.Before(ctx, &Invocation{Kind: KindValidateConstructorReturnValue, BeanType: constructedType(constructor), Constructor: &constructor, ReturnValue: created, Groups: groups})
}

func (o *observerInterceptor) AfterValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, violations validation.Violations, err error, groups ...validation.Group) {
	o.observer.After(ctx, &Invocation{Kind: KindValidateConstructorReturnValue, BeanType: constructedType(constructor), Constructor: &constructor, ReturnValue: created, Groups: groups}, violations, err)
}

// Compile-time checks that the observer adapter implements the full contract.
var (
	_ ValidateHook               = (*observerInterceptor)(nil)
	_ PropertyHook               = (*observerInterceptor)(nil)
	_ ValueHook                  = (*observerInterceptor)(nil)
	_ ParametersHook             = (*observerInterceptor)(nil)
	_ ReturnValueHook            = (*observerInterceptor)(nil)
	_ ConstructorParametersHook  = (*observerInterceptor)(nil)
	_ ConstructorReturnValueHook = (*observerInterceptor)(nil)
)
