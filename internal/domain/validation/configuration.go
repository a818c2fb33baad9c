package validation

import (
	"fmt"
	"maps"
)

// Configuration collects the collaborators and properties a factory is built from.
type Configuration interface {
	WithMessageInterpolator(i MessageInterpolator) Configuration
	WithTraversableResolver(r TraversableResolver) Configuration
	WithConstraintValidatorFactory(f ConstraintValidatorFactory) Configuration
	WithParameterNameProvider(p ParameterNameProvider) Configuration
	WithClockProvider(c ClockProvider) Configuration

	// AddProperty sets a provider-specific property.
	AddProperty(name, value string) Configuration

	// BuildValidatorFactory resolves the provider and builds a factory from this configuration.
	BuildValidatorFactory() (ValidatorFactory, error)
}

// ConfigurationState is the read-only view of a configuration handed to
// Provider.BuildValidatorFactory. Nil collaborators mean "provider default".
type ConfigurationState interface {
	MessageInterpolator() MessageInterpolator
	TraversableResolver() TraversableResolver
	ConstraintValidatorFactory() ConstraintValidatorFactory
	ParameterNameProvider() ParameterNameProvider
	ClockProvider() ClockProvider
	Properties() map[string]string
}

// Config is the stock Configuration and ConfigurationState implementation.
// Providers return it from CreateGenericConfiguration, or embed it in a
// specialized configuration.
type Config struct {
	bootstrap      BootstrapState
	providerName   string
	interpolator   MessageInterpolator
	traversable    TraversableResolver
	constraints    ConstraintValidatorFactory
	parameterNames ParameterNameProvider
	clock          ClockProvider
	properties     map[string]string
}

// NewConfiguration creates a Config bound to bootstrap state.
// A non-empty providerName pins the configuration to that provider; an empty
// one selects the first provider the resolver returns.
func NewConfiguration(state BootstrapState, providerName string) *Config {
	return &Config{
		bootstrap:    state,
		providerName: providerName,
		properties:   make(map[string]string),
	}
}

// WithMessageInterpolator implements Configuration.
func (c *Config) WithMessageInterpolator(i MessageInterpolator) Configuration {
	c.interpolator = i
	return c
}

// WithTraversableResolver implements Configuration.
func (c *Config) WithTraversableResolver(r TraversableResolver) Configuration {
	c.traversable = r
	return c
}

// WithConstraintValidatorFactory implements Configuration.
func (c *Config) WithConstraintValidatorFactory(f ConstraintValidatorFactory) Configuration {
	c.constraints = f
	return c
}

// WithParameterNameProvider implements Configuration.
func (c *Config) WithParameterNameProvider(p ParameterNameProvider) Configuration {
	c.parameterNames = p
	return c
}

// WithClockProvider implements Configuration.
func (c *Config) WithClockProvider(clock ClockProvider) Configuration {
	c.clock = clock
	return c
}

// AddProperty implements Configuration.
func (c *Config) AddProperty(name, value string) Configuration {
	c.properties[name] = value
	return c
}

// MessageInterpolator implements ConfigurationState.
func (c *Config) MessageInterpolator() MessageInterpolator { return c.interpolator }

// TraversableResolver implements ConfigurationState.
func (c *Config) TraversableResolver() TraversableResolver { return c.traversable }

// ConstraintValidatorFactory implements ConfigurationState.
func (c *Config) ConstraintValidatorFactory() ConstraintValidatorFactory { return c.constraints }

// ParameterNameProvider implements ConfigurationState.
func (c *Config) ParameterNameProvider() ParameterNameProvider { return c.parameterNames }

// ClockProvider implements ConfigurationState.
func (c *Config) ClockProvider() ClockProvider { return c.clock }

// Properties implements ConfigurationState. The returned map is a copy.
func (c *Config) Properties() map[string]string {
	return maps.Clone(c.properties)
}

// ProviderName returns the provider this configuration is pinned to, or "".
func (c *Config) ProviderName() string {
	return c.providerName
}

// BuildValidatorFactory implements Configuration.
//
// The provider is looked up through the bootstrap state's resolver, falling back to
// the default resolver. Going through the resolver, rather than calling the provider
// that created this configuration, is what lets a decorating resolver take effect.
func (c *Config) BuildValidatorFactory() (ValidatorFactory, error) {
	provider, err := resolveProvider(c.bootstrap, c.providerName)
	if err != nil {
		return nil, err
	}
	factory, err := provider.BuildValidatorFactory(c)
	if err != nil {
		return nil, fmt.Errorf("build validator factory with provider %q: %w", provider.Name(), err)
	}
	return factory, nil
}

// resolveProvider returns the named provider, or the first one when name is empty.
func resolveProvider(state BootstrapState, name string) (Provider, error) {
	var resolver ProviderResolver
	if state != nil {
		resolver = state.ProviderResolver()
		if resolver == nil {
			resolver = state.DefaultProviderResolver()
		}
	}
	if resolver == nil {
		resolver = DefaultProviderResolver()
	}

	providers := resolver.ValidationProviders()
	if len(providers) == 0 {
		return nil, ErrNoProvider
	}
	if name == "" {
		return providers[0], nil
	}
	for _, p := range providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// Compile-time checks that Config implements both views.
var (
	_ Configuration      = (*Config)(nil)
	_ ConfigurationState = (*Config)(nil)
)
