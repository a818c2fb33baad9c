package intercept

import (
	"context"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// instrumentationName is the otel meter name used by the dispatcher.
const instrumentationName = "github.com/Sentinel-Gate/beanguard/internal/domain/intercept"

// Chain dispatches hooks to an immutable interceptor set, in registration order.
// It implements every hook interface itself, so a Chain can be registered inside
// another Chain. It is safe for concurrent use.
type Chain struct {
	entries  []Registration
	policy   FailurePolicy
	logger   *slog.Logger
	failures metric.Int64Counter
}

type chainOptions struct {
	policy FailurePolicy
	logger *slog.Logger
	meter  metric.Meter
}

// ChainOption configures a Chain.
type ChainOption func(*chainOptions)

// WithFailurePolicy sets how hook panics are handled. Default: FailurePolicyPropagate.
func WithFailurePolicy(p FailurePolicy) ChainOption {
	return func(o *chainOptions) {
		o.policy = p
	}
}

// WithLogger sets the logger used to report hook failures. Default: slog.Default().
func WithLogger(logger *slog.Logger) ChainOption {
	return func(o *chainOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeter sets the meter the hook failure counter is created on.
// Default: the global otel meter provider.
func WithMeter(meter metric.Meter) ChainOption {
	return func(o *chainOptions) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// NewChain creates a Chain over a snapshot of regs.
func NewChain(regs []Registration, opts ...ChainOption) *Chain {
	o := chainOptions{
		policy: FailurePolicyPropagate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}

	entries := make([]Registration, 0, len(regs))
	for _, r := range regs {
		if r.Interceptor != nil {
			entries = append(entries, r)
		}
	}

	failures, err := o.meter.Int64Counter("beanguard.hook.failures",
		metric.WithDescription("Interceptor hook invocations that panicked"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		o.logger.Warn("hook failure counter unavailable", "error", err)
		failures = noop.Int64Counter{}
	}

	return &Chain{
		entries:  entries,
		policy:   o.policy,
		logger:   o.logger,
		failures: failures,
	}
}

// Name implements Interceptor.
func (c *Chain) Name() string {
	return "chain"
}

// Len returns the number of interceptors in the chain.
func (c *Chain) Len() int {
	return len(c.entries)
}

// Names returns the interceptor names in dispatch order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Interceptor.Name()
	}
	return names
}

// Policy returns the chain's failure policy.
func (c *Chain) Policy() FailurePolicy {
	return c.policy
}

// dispatch calls hook for every interceptor that implements inv.Kind and whose
// predicate matches, in order.
func (c *Chain) dispatch(ctx context.Context, inv *Invocation, phase Phase, hook func(Interceptor)) {
	for _, e := range c.entries {
		if !implements(e.Interceptor, inv.Kind) {
			continue
		}
		c.run(ctx, e, inv, phase, hook)
	}
}

// dispatchBefore is dispatch for before-hooks. When a before-hook panic
// propagates, every interceptor whose before-hook already completed gets its
// after-hook with an empty set and the *HookError before the panic continues,
// so before and after stay paired.
func (c *Chain) dispatchBefore(ctx context.Context, inv *Invocation, before func(Interceptor), after func(Interceptor, validation.Violations, error)) {
	var (
		completed []Registration
		current   Interceptor
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cause := newHookError(current, inv, PhaseBefore, r)
		for _, e := range completed {
			c.unwind(ctx, e.Interceptor, inv, cause, after)
		}
		panic(r)
	}()

	for _, e := range c.entries {
		if !implements(e.Interceptor, inv.Kind) {
			continue
		}
		current = e.Interceptor
		if c.run(ctx, e, inv, PhaseBefore, before) {
			completed = append(completed, e)
		}
	}
}

// unwind runs one after-hook for an aborted call. A panic there is recorded
// but never replaces the failure already in flight.
func (c *Chain) unwind(ctx context.Context, i Interceptor, inv *Invocation, cause *HookError, after func(Interceptor, validation.Violations, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.record(ctx, newHookError(i, inv, PhaseAfter, r), "interceptor hook failed during unwind")
		}
	}()
	after(i, validation.Violations{}, cause)
}

// run invokes one hook, applying the failure policy if it panics. It reports
// whether the hook ran to completion.
func (c *Chain) run(ctx context.Context, e Registration, inv *Invocation, phase Phase, hook func(Interceptor)) (completed bool) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(ctx, e.Interceptor, inv, phase, r)
		}
	}()

	if e.When != nil && !e.When.Match(ctx, inv) {
		return false
	}
	hook(e.Interceptor)
	return true
}

// fail records a hook panic and either swallows it or re-raises the original value.
func (c *Chain) fail(ctx context.Context, i Interceptor, inv *Invocation, phase Phase, r any) {
	hookErr := newHookError(i, inv, phase, r)
	if c.policy == FailurePolicySuppress {
		c.record(ctx, hookErr, "interceptor hook failed, continuing")
		return
	}
	c.record(ctx, hookErr, "interceptor hook failed")
	panic(r)
}

// record logs and counts a hook failure.
func (c *Chain) record(ctx context.Context, hookErr *HookError, msg string) {
	c.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("interceptor", hookErr.Interceptor),
		attribute.String("kind", hookErr.Kind.String()),
		attribute.String("phase", hookErr.Phase.String()),
		attribute.String("policy", string(c.policy)),
	))
	c.logger.ErrorContext(ctx, msg,
		"interceptor", hookErr.Interceptor,
		"kind", hookErr.Kind.String(),
		"phase", hookErr.Phase.String(),
		"error", hookErr,
	)
}

func newHookError(i Interceptor, inv *Invocation, phase Phase, r any) *HookError {
	name := ""
	if i != nil {
		name = i.Name()
	}
	return &HookError{Interceptor: name, Kind: inv.Kind, Phase: phase, Value: r}
}

// BeforeValidate implements ValidateHook.
func (c *Chain) BeforeValidate(ctx context.Context, object any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidate, Object: object, BeanType: validation.TypeOf(object), Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ValidateHook).BeforeValidate(ctx, object, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ValidateHook).AfterValidate(ctx, object, violations, err, groups...)
	})
}

// AfterValidate implements ValidateHook.
func (c *Chain) AfterValidate(ctx context.Context, object any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidate, Object: object, BeanType: validation.TypeOf(object), Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ValidateHook).AfterValidate(ctx, object, violations, err, groups...)
	})
}

// BeforeValidateProperty implements PropertyHook.
func (c *Chain) BeforeValidateProperty(ctx context.Context, object any, property string, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateProperty, Object: object, BeanType: validation.TypeOf(object), Property: property, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(PropertyHook).BeforeValidateProperty(ctx, object, property, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(PropertyHook).AfterValidateProperty(ctx, object, property, violations, err, groups...)
	})
}

// AfterValidateProperty implements PropertyHook.
func (c *Chain) AfterValidateProperty(ctx context.Context, object any, property string, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateProperty, Object: object, BeanType: validation.TypeOf(object), Property: property, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(PropertyHook).AfterValidateProperty(ctx, object, property, violations, err, groups...)
	})
}

// BeforeValidateValue implements ValueHook.
func (c *Chain) BeforeValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateValue, BeanType: beanType, Property: property, Value: value, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ValueHook).BeforeValidateValue(ctx, beanType, property, value, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ValueHook).AfterValidateValue(ctx, beanType, property, value, violations, err, groups...)
	})
}

// AfterValidateValue implements ValueHook.
func (c *Chain) AfterValidateValue(ctx context.Context, beanType reflect.Type, property string, value any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateValue, BeanType: beanType, Property: property, Value: value, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ValueHook).AfterValidateValue(ctx, beanType, property, value, violations, err, groups...)
	})
}

// BeforeValidateParameters implements ParametersHook.
func (c *Chain) BeforeValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateParameters, Object: object, BeanType: validation.TypeOf(object), Method: &method, Parameters: parameters, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ParametersHook).BeforeValidateParameters(ctx, object, method, parameters, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ParametersHook).AfterValidateParameters(ctx, object, method, parameters, violations, err, groups...)
	})
}

// AfterValidateParameters implements ParametersHook.
func (c *Chain) AfterValidateParameters(ctx context.Context, object any, method validation.Method, parameters []any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateParameters, Object: object, BeanType: validation.TypeOf(object), Method: &method, Parameters: parameters, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ParametersHook).AfterValidateParameters(ctx, object, method, parameters, violations, err, groups...)
	})
}

// BeforeValidateReturnValue implements ReturnValueHook.
func (c *Chain) BeforeValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateReturnValue, Object: object, BeanType: validation.TypeOf(object), Method: &method, ReturnValue: returnValue, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ReturnValueHook).BeforeValidateReturnValue(ctx, object, method, returnValue, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ReturnValueHook).AfterValidateReturnValue(ctx, object, method, returnValue, violations, err, groups...)
	})
}

// AfterValidateReturnValue implements ReturnValueHook.
func (c *Chain) AfterValidateReturnValue(ctx context.Context, object any, method validation.Method, returnValue any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateReturnValue, Object: object, BeanType: validation.TypeOf(object), Method: &method, ReturnValue: returnValue, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ReturnValueHook).AfterValidateReturnValue(ctx, object, method, returnValue, violations, err, groups...)
	})
}

// BeforeValidateConstructorParameters implements ConstructorParametersHook.
func (c *Chain) BeforeValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateConstructorParameters, BeanType: constructedType(constructor), Constructor: &constructor, Parameters: parameters, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ConstructorParametersHook).BeforeValidateConstructorParameters(ctx, constructor, parameters, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ConstructorParametersHook).AfterValidateConstructorParameters(ctx, constructor, parameters, violations, err, groups...)
	})
}

// AfterValidateConstructorParameters implements ConstructorParametersHook.
func (c *Chain) AfterValidateConstructorParameters(ctx context.Context, constructor validation.Constructor, parameters []any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateConstructorParameters, BeanType: constructedType(constructor), Constructor: &constructor, Parameters: parameters, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ConstructorParametersHook).AfterValidateConstructorParameters(ctx, constructor, parameters, violations, err, groups...)
	})
}

// BeforeValidateConstructorReturnValue implements ConstructorReturnValueHook.
func (c *Chain) BeforeValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateConstructorReturnValue, BeanType: constructedType(constructor), Constructor: &constructor, ReturnValue: created, Groups: groups}
	c.dispatchBefore(ctx, inv, func(i Interceptor) {
		i.(ConstructorReturnValueHook).BeforeValidateConstructorReturnValue(ctx, constructor, created, groups...)
	}, func(i Interceptor, violations validation.Violations, err error) {
		i.(ConstructorReturnValueHook).AfterValidateConstructorReturnValue(ctx, constructor, created, violations, err, groups...)
	})
}

// AfterValidateConstructorReturnValue implements ConstructorReturnValueHook.
func (c *Chain) AfterValidateConstructorReturnValue(ctx context.Context, constructor validation.Constructor, created any, violations validation.Violations, err error, groups ...validation.Group) {
	inv := &Invocation{Kind: KindValidateConstructorReturnValue, BeanType: constructedType(constructor), Constructor: &constructor, ReturnValue: created, Groups: groups}
	c.dispatch(ctx, inv, PhaseAfter, func(i Interceptor) {
		i.(ConstructorReturnValueHook).AfterValidateConstructorReturnValue(ctx, constructor, created, violations, err, groups...)
	})
}

// constructedType returns the dereferenced type a constructor builds.
func constructedType(c validation.Constructor) reflect.Type {
	t := c.Type
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Compile-time checks that Chain implements the full contract.
var (
	_ Interceptor                = (*Chain)(nil)
	_ ValidateHook               = (*Chain)(nil)
	_ PropertyHook               = (*Chain)(nil)
	_ ValueHook                  = (*Chain)(nil)
	_ ParametersHook             = (*Chain)(nil)
	_ ReturnValueHook            = (*Chain)(nil)
	_ ConstructorParametersHook  = (*Chain)(nil)
	_ ConstructorReturnValueHook = (*Chain)(nil)
)
