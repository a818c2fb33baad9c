package validation

import (
	"errors"
	"fmt"
	"sync"
)

// GenericBootstrap starts the configuration of the validation subsystem.
type GenericBootstrap interface {
	// WithProviderResolver replaces the resolver used to discover providers.
	WithProviderResolver(r ProviderResolver) GenericBootstrap

	// Configure resolves a provider and returns its configuration.
	Configure() (Configuration, error)
}

// BootstrapState is the introspectable state of a bootstrap, handed to providers.
type BootstrapState interface {
	// ProviderResolver returns the resolver set by the user, or nil.
	ProviderResolver() ProviderResolver

	// DefaultProviderResolver returns the built-in resolver.
	DefaultProviderResolver() ProviderResolver
}

// bootstrap implements both GenericBootstrap and BootstrapState.
type bootstrap struct {
	resolver     ProviderResolver
	providerName string
}

// ByDefaultProvider returns a bootstrap that configures the first provider the
// resolver yields.
func ByDefaultProvider() GenericBootstrap {
	return &bootstrap{}
}

// ByProvider returns a bootstrap that configures the provider with the given name,
// using its specialized configuration.
func ByProvider(name string) GenericBootstrap {
	return &bootstrap{providerName: name}
}

// WithProviderResolver implements GenericBootstrap.
func (b *bootstrap) WithProviderResolver(r ProviderResolver) GenericBootstrap {
	b.resolver = r
	return b
}

// ProviderResolver implements BootstrapState.
func (b *bootstrap) ProviderResolver() ProviderResolver {
	return b.resolver
}

// DefaultProviderResolver implements BootstrapState.
func (b *bootstrap) DefaultProviderResolver() ProviderResolver {
	return DefaultProviderResolver()
}

// Configure implements GenericBootstrap.
func (b *bootstrap) Configure() (Configuration, error) {
	provider, err := resolveProvider(b, b.providerName)
	if err != nil {
		return nil, NewConfigurationError("unable to resolve a validation provider", err)
	}
	if b.providerName != "" {
		return provider.CreateSpecializedConfiguration(b), nil
	}
	return provider.CreateGenericConfiguration(b), nil
}

// Compile-time checks that bootstrap implements both views.
var (
	_ GenericBootstrap = (*bootstrap)(nil)
	_ BootstrapState   = (*bootstrap)(nil)
)

// ErrDuplicateProvider is returned when a provider name is registered twice.
var ErrDuplicateProvider = errors.New("validation provider already registered")

// providerRegistry is the built-in provider discovery mechanism.
type providerRegistry struct {
	mu        sync.RWMutex
	providers []Provider
}

var defaultProviders = &providerRegistry{}

// RegisterProvider makes p discoverable through DefaultProviderResolver.
// Providers are returned in registration order.
func RegisterProvider(p Provider) error {
	if p == nil {
		return errors.New("validation provider is nil")
	}

	defaultProviders.mu.Lock()
	defer defaultProviders.mu.Unlock()

	for _, existing := range defaultProviders.providers {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
		}
	}
	defaultProviders.providers = append(defaultProviders.providers, p)
	return nil
}

// DefaultProviderResolver returns the built-in resolver over registered providers.
func DefaultProviderResolver() ProviderResolver {
	return defaultProviders
}

// ValidationProviders implements ProviderResolver. The returned slice is a copy.
func (r *providerRegistry) ValidationProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, len(r.providers))
	copy(providers, r.providers)
	return providers
}

// ProviderList is a ProviderResolver over a fixed list of providers.
type ProviderList []Provider

// ValidationProviders implements ProviderResolver.
func (l ProviderList) ValidationProviders() []Provider {
	providers := make([]Provider, len(l))
	copy(providers, l)
	return providers
}
