package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scout/internal/provider"
	"scout/internal/ratelimit"
	"scout/pkg/model"
)

// Tier is a priority group of interchangeable providers. The primary tier
// is tried first; a rate-limit signal from any provider in a tier puts the
// whole tier into cooldown.
type Tier struct {
	Name      string
	Providers []provider.Provider
}

// Config holds fetcher tuning knobs.
type Config struct {
	CacheTTL     time.Duration // fresh-hit window, default 300s
	CooldownBase time.Duration // rate-limit blocking window, default 300s
	CooldownMaxX int           // cap on the doubling multiplier, default 8
	Retry        RetryPolicy
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		CacheTTL:     300 * time.Second,
		CooldownBase: 300 * time.Second,
		CooldownMaxX: 8,
		Retry:        DefaultRetryPolicy(),
	}
}

type tierState struct {
	name      string
	providers []provider.Provider
	cooldown  *ratelimit.Cooldown
}

// Fetcher orchestrates ordered attempts across provider tiers. It owns the
// cooldown clocks, the short-TTL cache, and the retry policy. It never
// returns an error to callers: absence of data is a nil result, which the
// scanner treats as "skip symbol".
type Fetcher struct {
	tiers []*tierState
	cache *cache
	retry RetryPolicy
	log   zerolog.Logger

	warnMu sync.Mutex
	warned map[string]struct{}
}

// New creates a fetcher over the given tiers, in priority order.
// Unavailable providers (missing API keys) are filtered out up front.
func New(cfg Config, log zerolog.Logger, tiers ...Tier) *Fetcher {
	states := make([]*tierState, 0, len(tiers))
	for _, t := range tiers {
		available := make([]provider.Provider, 0, len(t.Providers))
		for _, p := range t.Providers {
			if p.IsAvailable() {
				available = append(available, p)
			}
		}
		if len(available) == 0 {
			continue
		}
		states = append(states, &tierState{
			name:      t.Name,
			providers: available,
			cooldown:  ratelimit.NewCooldown(t.Name, cfg.CooldownBase, cfg.CooldownMaxX),
		})
	}

	return &Fetcher{
		tiers:  states,
		cache:  newCache(cfg.CacheTTL),
		retry:  cfg.Retry,
		log:    log,
		warned: make(map[string]struct{}),
	}
}

// GetQuote returns the best available fundamentals snapshot for a symbol,
// or nil when every tier fails and nothing is cached. A fresh cache hit
// short-circuits the network entirely, independent of rate-limit state.
func (f *Fetcher) GetQuote(ctx context.Context, symbol string) *model.Quote {
	if q, ok := f.cache.freshQuote(symbol); ok {
		return q
	}

	for _, tier := range f.tiers {
		if tier.cooldown.Blocked() {
			f.log.Debug().Str("tier", tier.name).Time("until", tier.cooldown.BlockedUntil()).
				Msg("tier in cooldown, skipping")
			continue
		}

		for _, p := range tier.providers {
			var q *model.Quote
			err := f.retry.Do(ctx, func() error {
				var ferr error
				q, ferr = p.Quote(ctx, symbol)
				return ferr
			})
			if err != nil {
				if provider.IsRateLimited(err) {
					window := tier.cooldown.Trip()
					f.log.Warn().Str("tier", tier.name).Str("provider", p.Name()).
						Dur("cooldown", window).Msg("rate limited, tier cooling down")
					break // rest of the tier shares the cooldown
				}
				f.warnOnce(symbol, "quote_failure:"+err.Error(), p.Name())
				continue
			}
			if !q.Complete() {
				f.warnOnce(symbol, "incomplete_quote", p.Name())
				continue
			}

			tier.cooldown.Reset()
			f.cache.putQuote(q)
			return q
		}
	}

	// Last-resort degrade: serve a stale entry, flagged with its original
	// fetch time so callers can surface the staleness.
	if q, ok := f.cache.staleQuote(symbol); ok {
		f.log.Warn().Str("symbol", symbol).Time("fetched_at", q.FetchedAt).
			Msg("all providers exhausted, serving stale quote")
		return q
	}

	f.warnOnce(symbol, "missing_fundamentals", "all")
	return nil
}

// GetHistory returns an ascending close series for a symbol, or nil.
// Providers without a history endpoint are skipped silently.
func (f *Fetcher) GetHistory(ctx context.Context, symbol string) []model.Candle {
	if candles, ok := f.cache.freshHistory(symbol); ok {
		return candles
	}

	for _, tier := range f.tiers {
		if tier.cooldown.Blocked() {
			continue
		}

		for _, p := range tier.providers {
			var candles []model.Candle
			err := f.retry.Do(ctx, func() error {
				var ferr error
				candles, ferr = p.History(ctx, symbol)
				return ferr
			})
			if err != nil {
				if provider.IsRateLimited(err) {
					window := tier.cooldown.Trip()
					f.log.Warn().Str("tier", tier.name).Str("provider", p.Name()).
						Dur("cooldown", window).Msg("rate limited, tier cooling down")
					break
				}
				f.warnOnce(symbol, "history_failure:"+err.Error(), p.Name())
				continue
			}
			if len(candles) == 0 {
				f.warnOnce(symbol, "empty_history", p.Name())
				continue
			}

			tier.cooldown.Reset()
			f.cache.putHistory(symbol, candles)
			return candles
		}
	}

	if candles, ok := f.cache.staleHistory(symbol); ok {
		f.log.Warn().Str("symbol", symbol).Msg("all providers exhausted, serving stale history")
		return candles
	}
	return nil
}

// CooldownActive reports whether every tier is currently blocked. The
// scanner uses this to abort mid-scan with partial results instead of
// grinding through symbols that cannot be served.
func (f *Fetcher) CooldownActive() bool {
	if len(f.tiers) == 0 {
		return false
	}
	for _, tier := range f.tiers {
		if !tier.cooldown.Blocked() {
			return false
		}
	}
	return true
}

// warnOnce logs a data-shape or availability failure once per unique
// (symbol, cause, source) key for the life of the process.
func (f *Fetcher) warnOnce(symbol, reason, source string) {
	key := symbol + "|" + reason + "|" + source
	f.warnMu.Lock()
	_, seen := f.warned[key]
	if !seen {
		f.warned[key] = struct{}{}
	}
	f.warnMu.Unlock()

	if !seen {
		f.log.Warn().Str("symbol", symbol).Str("reason", reason).Str("source", source).
			Msg("fetch degraded")
	}
}
