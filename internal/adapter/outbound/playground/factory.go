package playground

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Defaults applied when the configuration leaves a property unset.
const (
	DefaultTagName = "validate"
	DefaultLocale  = "en"
)

var timeType = reflect.TypeOf(time.Time{})

// Factory is the go-playground ValidatorFactory. The underlying
// *validator.Validate is safe for concurrent use, so one Validator is shared.
type Factory struct {
	validate       *validator.Validate
	tagName        string
	interpolator   validation.MessageInterpolator
	translator     *Translator
	traversable    validation.TraversableResolver
	constraints    validation.ConstraintValidatorFactory
	parameterNames validation.ParameterNameProvider
	clock          validation.ClockProvider
	fields         *fieldIndexes
	validator      *Validator
	closed         atomic.Bool
	logger         *slog.Logger
}

// NewFactory builds a factory from state. Collaborators left nil in state get
// the defaults: bundled translations, TraverseAll, no custom constraints,
// DefaultParameterNameProvider and SystemClock.
func NewFactory(state validation.ConfigurationState, logger *slog.Logger) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	props := state.Properties()
	tagName := propertyOr(props, PropertyTagName, DefaultTagName)
	locale := propertyOr(props, PropertyLocale, DefaultLocale)
	requiredStruct, err := strconv.ParseBool(propertyOr(props, PropertyRequiredStruct, "true"))
	if err != nil {
		return nil, validation.NewConfigurationError("invalid "+PropertyRequiredStruct, err)
	}

	var opts []validator.Option
	if requiredStruct {
		opts = append(opts, validator.WithRequiredStructEnabled())
	}
	v := validator.New(opts...)
	v.SetTagName(tagName)

	f := &Factory{
		validate:       v,
		tagName:        tagName,
		interpolator:   state.MessageInterpolator(),
		traversable:    state.TraversableResolver(),
		constraints:    state.ConstraintValidatorFactory(),
		parameterNames: state.ParameterNameProvider(),
		clock:          state.ClockProvider(),
		fields:         &fieldIndexes{},
		logger:         logger,
	}
	if f.traversable == nil {
		f.traversable = validation.TraverseAll{}
	}
	if f.constraints == nil {
		f.constraints = validation.NewConstraintRegistry()
	}
	if f.parameterNames == nil {
		f.parameterNames = validation.DefaultParameterNameProvider{}
	}
	if f.clock == nil {
		f.clock = validation.SystemClock{}
	}

	if err := f.registerTemporal(); err != nil {
		return nil, validation.NewConfigurationError("register temporal constraints", err)
	}
	if err := f.registerConstraints(); err != nil {
		return nil, validation.NewConfigurationError("register custom constraints", err)
	}

	// Translations are registered after the constraints so every tag exists.
	if f.interpolator == nil {
		tr, err := NewTranslator(v, locale)
		if err != nil {
			return nil, validation.NewConfigurationError("set up message interpolation", err)
		}
		f.translator = tr
		f.interpolator = tr
	}

	f.validator = &Validator{factory: f}

	logger.Debug("validator factory built",
		"provider", ProviderName,
		"tag_name", tagName,
		"locale", locale,
		"required_struct", requiredStruct,
		"custom_constraints", f.constraints.Tags(),
	)
	return f, nil
}

func propertyOr(props map[string]string, key, def string) string {
	if v, ok := props[key]; ok && v != "" {
		return v
	}
	return def
}

// registerTemporal adds "past" and "future" for time.Time fields, judged
// against the factory's clock.
func (f *Factory) registerTemporal() error {
	temporal := map[string]func(t, now time.Time) bool{
		"past":   func(t, now time.Time) bool { return t.Before(now) },
		"future": func(t, now time.Time) bool { return t.After(now) },
	}
	for tag, check := range temporal {
		err := f.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Type() != timeType {
				return false
			}
			return check(field.Interface().(time.Time), f.clock.Now())
		})
		if err != nil {
			return fmt.Errorf("%s: %w", tag, err)
		}
	}
	return nil
}

// registerConstraints exposes every ConstraintValidatorFactory tag to the engine.
// The ctx handed to a ConstraintFunc is the one the validation was started with.
func (f *Factory) registerConstraints() error {
	for _, tag := range f.constraints.Tags() {
		fn, ok := f.constraints.Lookup(tag)
		if !ok {
			continue
		}
		err := f.validate.RegisterValidationCtx(tag, func(ctx context.Context, fl validator.FieldLevel) bool {
			field := fl.Field()
			var value any
			if field.IsValid() && field.CanInterface() {
				value = field.Interface()
			}
			return fn(ctx, validation.ConstraintContext{
				Value: value,
				Path:  constraintPath(fl),
				Param: fl.Param(),
			})
		})
		if err != nil {
			return fmt.Errorf("%s: %w", tag, err)
		}
	}
	return nil
}

// Validator implements validation.ValidatorFactory.
func (f *Factory) Validator() validation.Validator {
	if f.closed.Load() {
		f.logger.Warn("validator requested from a closed factory", "provider", ProviderName)
	}
	return f.validator
}

// MessageInterpolator implements validation.ValidatorFactory.
func (f *Factory) MessageInterpolator() validation.MessageInterpolator { return f.interpolator }

// TraversableResolver implements validation.ValidatorFactory.
func (f *Factory) TraversableResolver() validation.TraversableResolver { return f.traversable }

// ConstraintValidatorFactory implements validation.ValidatorFactory.
func (f *Factory) ConstraintValidatorFactory() validation.ConstraintValidatorFactory {
	return f.constraints
}

// ParameterNameProvider implements validation.ValidatorFactory.
func (f *Factory) ParameterNameProvider() validation.ParameterNameProvider { return f.parameterNames }

// ClockProvider implements validation.ValidatorFactory.
func (f *Factory) ClockProvider() validation.ClockProvider { return f.clock }

// Unwrap implements validation.ValidatorFactory. The concrete value is the
// engine's *validator.Validate.
func (f *Factory) Unwrap(target any) bool {
	return validation.AssignTo(target, f.validate)
}

// Close implements validation.ValidatorFactory. The engine holds no external
// resources; closing only marks the factory.
func (f *Factory) Close() error {
	f.closed.Store(true)
	return nil
}

// message renders the message of one engine failure.
func (f *Factory) message(fe validator.FieldError, field string) string {
	if f.translator != nil && f.interpolator == validation.MessageInterpolator(f.translator) && fe.Field() != "" {
		if msg := f.translator.translate(fe); msg != fe.Error() {
			return msg
		}
	}
	return f.interpolator.Interpolate(validation.MessageTemplate{
		Constraint: fe.Tag(),
		Field:      field,
		Param:      fe.Param(),
		Value:      fe.Value(),
	})
}

// Compile-time check that Factory implements validation.ValidatorFactory.
var _ validation.ValidatorFactory = (*Factory)(nil)
