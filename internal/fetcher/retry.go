package fetcher

import (
	"context"
	"time"

	"scout/internal/provider"
)

// RetryPolicy retries transient upstream failures with exponential backoff.
// It is invoked by the Fetcher around each provider call; providers know
// nothing about retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the upstream session defaults: three attempts,
// 1s..8s exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. Backoff sleeps respect context cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		// Rate limits are handled by the tier cooldown, not by hammering
		// the same provider again.
		if provider.IsRateLimited(err) || !provider.IsRetryable(err) || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
