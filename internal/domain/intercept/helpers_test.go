package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// journal is an ordered, concurrency-safe event log shared by test doubles.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	copy(out, j.events)
	return out
}

// recorder logs every before and after hook it receives.
type recorder struct {
	name string
	log  *journal

	mu    sync.Mutex
	after []afterCall
}

type afterCall struct {
	kind       Kind
	violations validation.Violations
	err        error
}

func newRecorder(name string, log *journal) *recorder {
	return &recorder{name: name, log: log}
}

func (r *recorder) Before(_ context.Context, inv *Invocation) {
	r.log.add("%s.before.%s", r.name, inv.Kind)
}

func (r *recorder) After(_ context.Context, inv *Invocation, violations validation.Violations, err error) {
	r.log.add("%s.after.%s", r.name, inv.Kind)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = append(r.after, afterCall{kind: inv.Kind, violations: violations, err: err})
}

func (r *recorder) afterCalls() []afterCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]afterCall, len(r.after))
	copy(out, r.after)
	return out
}

func (r *recorder) interceptor() Interceptor {
	return Observe(r.name, r)
}

// fakeValidator is a scripted delegate.
type fakeValidator struct {
	log        *journal
	violations validation.Violations
	err        error
	panicValue any
}

func (f *fakeValidator) result(kind Kind) (validation.Violations, error) {
	if f.log != nil {
		f.log.add("delegate.%s", kind)
	}
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	return f.violations, f.err
}

func (f *fakeValidator) Validate(context.Context, any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidate)
}

func (f *fakeValidator) ValidateProperty(context.Context, any, string, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateProperty)
}

func (f *fakeValidator) ValidateValue(context.Context, reflect.Type, string, any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateValue)
}

func (f *fakeValidator) ForExecutables() validation.ExecutableValidator { return f }

func (f *fakeValidator) Unwrap(target any) bool { return validation.AssignTo(target, f) }

func (f *fakeValidator) ValidateParameters(context.Context, any, validation.Method, []any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateParameters)
}

func (f *fakeValidator) ValidateReturnValue(context.Context, any, validation.Method, any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateReturnValue)
}

func (f *fakeValidator) ValidateConstructorParameters(context.Context, validation.Constructor, []any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateConstructorParameters)
}

func (f *fakeValidator) ValidateConstructorReturnValue(context.Context, validation.Constructor, any, ...validation.Group) (validation.Violations, error) {
	return f.result(KindValidateConstructorReturnValue)
}

// fakeFactory hands out its validator and counts closes.
type fakeFactory struct {
	validator    validation.Validator
	interpolator validation.MessageInterpolator
	clock        validation.ClockProvider
	closed       int
}

func (f *fakeFactory) Validator() validation.Validator { return f.validator }
func (f *fakeFactory) MessageInterpolator() validation.MessageInterpolator {
	return f.interpolator
}
func (f *fakeFactory) TraversableResolver() validation.TraversableResolver { return validation.TraverseAll{} }
func (f *fakeFactory) ConstraintValidatorFactory() validation.ConstraintValidatorFactory {
	return validation.NewConstraintRegistry()
}
func (f *fakeFactory) ParameterNameProvider() validation.ParameterNameProvider {
	return validation.DefaultParameterNameProvider{}
}
func (f *fakeFactory) ClockProvider() validation.ClockProvider { return f.clock }
func (f *fakeFactory) Unwrap(target any) bool               { return validation.AssignTo(target, f) }
func (f *fakeFactory) Close() error {
	f.closed++
	return nil
}

// fakeProvider builds fakeFactory instances.
type fakeProvider struct {
	name    string
	factory *fakeFactory
	err     error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreateSpecializedConfiguration(state validation.BootstrapState) validation.Configuration {
	return validation.NewConfiguration(state, p.name)
}

func (p *fakeProvider) CreateGenericConfiguration(state validation.BootstrapState) validation.Configuration {
	return validation.NewConfiguration(state, "")
}

func (p *fakeProvider) BuildValidatorFactory(validation.ConfigurationState) (validation.ValidatorFactory, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.factory, nil
}

type interpolatorFunc func(validation.MessageTemplate) string

func (f interpolatorFunc) Interpolate(t validation.MessageTemplate) string { return f(t) }

// panicking panics in its before or after validate hook.
type panicking struct {
	Base
	name    string
	inAfter bool
	value   any
}

func (p *panicking) Name() string { return p.name }

func (p *panicking) BeforeValidate(context.Context, any, ...validation.Group) {
	if !p.inAfter {
		panic(p.value)
	}
}

func (p *panicking) AfterValidate(context.Context, any, validation.Violations, error, ...validation.Group) {
	if p.inAfter {
		panic(p.value)
	}
}

type bean struct {
	Name string
}

func sampleViolations() validation.Violations {
	return validation.Violations{
		{Path: "bean.Name", Constraint: "required", Message: "Name is a required field"},
	}
}

func sampleMethod() validation.Method {
	return validation.Method{
		Receiver:   reflect.TypeOf(bean{}),
		Name:       "Rename",
		Parameters: []validation.Parameter{{Name: "name", Constraint: "required"}},
	}
}

func sampleConstructor() validation.Constructor {
	return validation.Constructor{
		Type:       reflect.TypeOf(&bean{}),
		Name:       "NewBean",
		Parameters: []validation.Parameter{{Name: "name", Constraint: "required"}},
	}
}

// callKind invokes the entry point of kind on v.
func callKind(ctx context.Context, v validation.Validator, kind Kind) (validation.Violations, error) {
	b := &bean{Name: "x"}
	switch kind {
	case KindValidate:
		return v.Validate(ctx, b)
	case KindValidateProperty:
		return v.ValidateProperty(ctx, b, "Name")
	case KindValidateValue:
		return v.ValidateValue(ctx, reflect.TypeOf(bean{}), "Name", "x")
	case KindValidateParameters:
		return v.ForExecutables().ValidateParameters(ctx, b, sampleMethod(), []any{"y"})
	case KindValidateReturnValue:
		return v.ForExecutables().ValidateReturnValue(ctx, b, sampleMethod(), nil)
	case KindValidateConstructorParameters:
		return v.ForExecutables().ValidateConstructorParameters(ctx, sampleConstructor(), []any{"y"})
	case KindValidateConstructorReturnValue:
		return v.ForExecutables().ValidateConstructorReturnValue(ctx, sampleConstructor(), b)
	default:
		panic("unknown kind")
	}
}
