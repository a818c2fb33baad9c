package intercept

import "github.com/Sentinel-Gate/beanguard/internal/domain/validation"

// ValidatorFactory wraps a delegate factory so that every validator it hands
// out is intercepting. Every other accessor is forwarded unchanged.
type ValidatorFactory struct {
	delegate validation.ValidatorFactory
	chain    *Chain
}

// NewValidatorFactory wraps delegate with chain.
func NewValidatorFactory(delegate validation.ValidatorFactory, chain *Chain) *ValidatorFactory {
	if chain == nil {
		chain = NewChain(nil)
	}
	return &ValidatorFactory{delegate: delegate, chain: chain}
}

// Validator returns a new intercepting validator over the delegate's validator.
func (f *ValidatorFactory) Validator() validation.Validator {
	return NewValidator(f.delegate.Validator(), f.chain)
}

// MessageInterpolator implements validation.ValidatorFactory.
func (f *ValidatorFactory) MessageInterpolator() validation.MessageInterpolator {
	return f.delegate.MessageInterpolator()
}

// TraversableResolver implements validation.ValidatorFactory.
func (f *ValidatorFactory) TraversableResolver() validation.TraversableResolver {
	return f.delegate.TraversableResolver()
}

// ConstraintValidatorFactory implements validation.ValidatorFactory.
func (f *ValidatorFactory) ConstraintValidatorFactory() validation.ConstraintValidatorFactory {
	return f.delegate.ConstraintValidatorFactory()
}

// ParameterNameProvider implements validation.ValidatorFactory.
func (f *ValidatorFactory) ParameterNameProvider() validation.ParameterNameProvider {
	return f.delegate.ParameterNameProvider()
}

// ClockProvider implements validation.ValidatorFactory.
func (f *ValidatorFactory) ClockProvider() validation.ClockProvider {
	return f.delegate.ClockProvider()
}

// Unwrap forwards to the delegate.
func (f *ValidatorFactory) Unwrap(target any) bool {
	return f.delegate.Unwrap(target)
}

// Close closes the delegate.
func (f *ValidatorFactory) Close() error {
	return f.delegate.Close()
}

// Compile-time check that ValidatorFactory implements validation.ValidatorFactory.
var _ validation.ValidatorFactory = (*ValidatorFactory)(nil)
