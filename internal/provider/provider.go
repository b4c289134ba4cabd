package provider

import (
	"context"
	"errors"

	"scout/pkg/model"
)

// Provider defines the interface for market-data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Quote fetches a fundamentals snapshot for a symbol. A nil quote with a
	// nil error never happens; missing data is an error, incomplete data is
	// a quote that fails Complete().
	Quote(ctx context.Context, symbol string) (*model.Quote, error)

	// History fetches an ascending OHLCV series for a symbol. Providers that
	// have no history endpoint return ErrUnsupported.
	History(ctx context.Context, symbol string) ([]model.Candle, error)

	// IsAvailable checks if the provider is usable (has any required API key)
	IsAvailable() bool
}

// ErrUnsupported marks an operation the provider has no endpoint for.
var ErrUnsupported = errors.New("operation not supported")

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider    string
	Err         error
	Retryable   bool
	RateLimited bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err carries a 429/backoff signal.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited
}

// IsRetryable reports whether the failure is transient.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}
