package intercept

import (
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// Provider wraps a delegate provider so that the factories it builds intercept.
// The interceptor set is resolved once, when the Provider is created, and shared
// by every factory it builds.
type Provider struct {
	delegate validation.Provider
	chain    *Chain
}

// NewProvider wraps delegate. A nil discovery means the process-wide registry.
func NewProvider(delegate validation.Provider, discovery Discovery, opts ...ChainOption) *Provider {
	if discovery == nil {
		discovery = Registered()
	}
	return &Provider{
		delegate: delegate,
		chain:    NewChain(discovery.Interceptors(), opts...),
	}
}

// Chain returns the dispatcher shared by the factories this provider builds.
func (p *Provider) Chain() *Chain {
	return p.chain
}

// Name implements validation.Provider.
func (p *Provider) Name() string {
	return p.delegate.Name()
}

// CreateSpecializedConfiguration implements validation.Provider.
func (p *Provider) CreateSpecializedConfiguration(state validation.BootstrapState) validation.Configuration {
	return p.delegate.CreateSpecializedConfiguration(state)
}

// CreateGenericConfiguration implements validation.Provider.
func (p *Provider) CreateGenericConfiguration(state validation.BootstrapState) validation.Configuration {
	return p.delegate.CreateGenericConfiguration(state)
}

// BuildValidatorFactory builds the delegate's factory and wraps it.
func (p *Provider) BuildValidatorFactory(state validation.ConfigurationState) (validation.ValidatorFactory, error) {
	factory, err := p.delegate.BuildValidatorFactory(state)
	if err != nil {
		return nil, err
	}
	return NewValidatorFactory(factory, p.chain), nil
}

// Compile-time check that Provider implements validation.Provider.
var _ validation.Provider = (*Provider)(nil)
