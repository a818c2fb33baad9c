package playground

import (
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Translator is the default MessageInterpolator, backed by the validator's
// bundled translations.
type Translator struct {
	trans ut.Translator
}

// extraTranslations cover the constraints this package adds to the engine.
var extraTranslations = map[string]string{
	"past":   "{0} must be in the past",
	"future": "{0} must be in the future",
}

// NewTranslator registers the translations for locale on v.
func NewTranslator(v *validator.Validate, locale string) (*Translator, error) {
	english := en.New()
	uni := ut.New(english, english)

	trans, found := uni.GetTranslator(locale)
	if !found {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register %s translations: %w", locale, err)
	}

	for tag, text := range extraTranslations {
		err := v.RegisterTranslation(tag, trans,
			func(t ut.Translator) error {
				return t.Add(tag, text, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					return fe.Error()
				}
				return msg
			},
		)
		if err != nil {
			return nil, fmt.Errorf("register %q translation: %w", tag, err)
		}
	}

	return &Translator{trans: trans}, nil
}

// Interpolate implements validation.MessageInterpolator. Constraints without a
// plain translation get a generic message.
func (t *Translator) Interpolate(m validation.MessageTemplate) (msg string) {
	defer func() {
		// Some bundled translations take more parameters than a template carries.
		if recover() != nil {
			msg = genericMessage(m)
		}
	}()

	msg, err := t.trans.T(m.Constraint, m.Field, m.Param)
	if err != nil || msg == "" {
		return genericMessage(m)
	}
	return msg
}

// translate renders a field error with its bundled translation.
func (t *Translator) translate(fe validator.FieldError) string {
	return fe.Translate(t.trans)
}

func genericMessage(m validation.MessageTemplate) string {
	if m.Param != "" {
		return fmt.Sprintf("%s failed on the '%s=%s' constraint", m.Field, m.Constraint, m.Param)
	}
	return fmt.Sprintf("%s failed on the '%s' constraint", m.Field, m.Constraint)
}

// Compile-time check that Translator implements validation.MessageInterpolator.
var _ validation.MessageInterpolator = (*Translator)(nil)
