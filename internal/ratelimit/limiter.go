package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to pace outbound requests to one upstream
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of requests allowed per minute
func NewLimiter(name string, perMinute int) *Limiter {
	rps := float64(perMinute) / 60.0
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until a token is available or context is cancelled
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// Cooldown is the provider-tier rate-limit clock. A 429 trips it for one
// cooldown window; consecutive trips double the window up to maxMultiplier
// times the base. Any success resets the multiplier to 1. It is not
// per-symbol: one trip blocks the whole tier.
type Cooldown struct {
	name          string
	base          time.Duration
	maxMultiplier int

	mu           sync.Mutex
	multiplier   int
	blockedUntil time.Time
	now          func() time.Time
}

// NewCooldown creates a cooldown clock with the given base window.
func NewCooldown(name string, base time.Duration, maxMultiplier int) *Cooldown {
	if maxMultiplier < 1 {
		maxMultiplier = 1
	}
	return &Cooldown{
		name:          name,
		base:          base,
		maxMultiplier: maxMultiplier,
		multiplier:    1,
		now:           time.Now,
	}
}

// Trip records a rate-limit signal: blocks the tier for base*multiplier and
// doubles the multiplier for the next consecutive failure.
func (c *Cooldown) Trip() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.base * time.Duration(c.multiplier)
	c.blockedUntil = c.now().Add(window)

	c.multiplier *= 2
	if c.multiplier > c.maxMultiplier {
		c.multiplier = c.maxMultiplier
	}
	return window
}

// Reset clears the escalation after a successful request. An active block
// still runs out; only the doubling restarts from 1.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiplier = 1
}

// Blocked reports whether the tier is currently in cooldown.
func (c *Cooldown) Blocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.blockedUntil)
}

// BlockedUntil returns the end of the current cooldown window.
func (c *Cooldown) BlockedUntil() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockedUntil
}

// Name returns the cooldown name
func (c *Cooldown) Name() string {
	return c.name
}

// SetClock overrides the time source for tests.
func (c *Cooldown) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
