package intercept

import (
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// ProviderResolver wraps a delegate resolver so that every provider it yields
// intercepts. Install it with validation.GenericBootstrap.WithProviderResolver.
type ProviderResolver struct {
	delegate  validation.ProviderResolver
	discovery Discovery
	opts      []ChainOption
}

// NewProviderResolver wraps delegate. A nil discovery means the process-wide registry.
func NewProviderResolver(delegate validation.ProviderResolver, discovery Discovery, opts ...ChainOption) *ProviderResolver {
	if discovery == nil {
		discovery = Registered()
	}
	return &ProviderResolver{
		delegate:  delegate,
		discovery: discovery,
		opts:      opts,
	}
}

// NewDefaultProviderResolver wraps the built-in resolver of the default-provider bootstrap.
func NewDefaultProviderResolver(discovery Discovery, opts ...ChainOption) (*ProviderResolver, error) {
	return NewProviderResolverFromBootstrap(validation.ByDefaultProvider(), discovery, opts...)
}

// NewProviderResolverFromBootstrap wraps the built-in resolver exposed by b.
// It fails with a *validation.ConfigurationError when b does not expose its state.
func NewProviderResolverFromBootstrap(b validation.GenericBootstrap, discovery Discovery, opts ...ChainOption) (*ProviderResolver, error) {
	state, ok := b.(validation.BootstrapState)
	if !ok {
		return nil, validation.NewConfigurationError("bootstrap does not expose its provider resolver state", nil)
	}
	delegate := state.DefaultProviderResolver()
	if delegate == nil {
		return nil, validation.NewConfigurationError("bootstrap has no default provider resolver", nil)
	}
	return NewProviderResolver(delegate, discovery, opts...), nil
}

// ValidationProviders returns the delegate's providers, each wrapped by a
// Provider, in the same order. Each call wraps afresh, so every returned
// Provider holds the interceptor set as it was at the time of the call.
func (r *ProviderResolver) ValidationProviders() []validation.Provider {
	delegates := r.delegate.ValidationProviders()
	providers := make([]validation.Provider, len(delegates))
	for i, p := range delegates {
		providers[i] = NewProvider(p, r.discovery, r.opts...)
	}
	return providers
}

// Compile-time check that ProviderResolver implements validation.ProviderResolver.
var _ validation.ProviderResolver = (*ProviderResolver)(nil)
