// Package playground implements the validation SPI on top of
// github.com/go-playground/validator/v10.
package playground

import (
	"log/slog"
	"strconv"

	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// ProviderName is the name the provider registers under.
const ProviderName = "go-playground"

// Configuration properties understood by the provider.
const (
	PropertyTagName        = "playground.tag_name"
	PropertyLocale         = "playground.locale"
	PropertyRequiredStruct = "playground.required_struct"
)

// Provider is the go-playground validation provider.
type Provider struct {
	logger *slog.Logger
}

// NewProvider creates a Provider.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{logger: logger}
}

// Name implements validation.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// CreateSpecializedConfiguration implements validation.Provider.
// The result is a *Configuration exposing engine options.
func (p *Provider) CreateSpecializedConfiguration(state validation.BootstrapState) validation.Configuration {
	return &Configuration{Config: validation.NewConfiguration(state, ProviderName)}
}

// CreateGenericConfiguration implements validation.Provider.
func (p *Provider) CreateGenericConfiguration(state validation.BootstrapState) validation.Configuration {
	return validation.NewConfiguration(state, "")
}

// BuildValidatorFactory implements validation.Provider.
func (p *Provider) BuildValidatorFactory(state validation.ConfigurationState) (validation.ValidatorFactory, error) {
	return NewFactory(state, p.logger)
}

// Configuration is the provider-specific configuration.
type Configuration struct {
	*validation.Config
}

// TagName sets the struct tag constraints are read from. Default: "validate".
func (c *Configuration) TagName(name string) *Configuration {
	c.AddProperty(PropertyTagName, name)
	return c
}

// Locale sets the locale of violation messages. Default: "en".
func (c *Configuration) Locale(locale string) *Configuration {
	c.AddProperty(PropertyLocale, locale)
	return c
}

// RequiredStruct makes "required" apply to non-pointer struct fields. Default: true.
func (c *Configuration) RequiredStruct(enabled bool) *Configuration {
	c.AddProperty(PropertyRequiredStruct, strconv.FormatBool(enabled))
	return c
}

// Compile-time checks.
var (
	_ validation.Provider      = (*Provider)(nil)
	_ validation.Configuration = (*Configuration)(nil)
)
