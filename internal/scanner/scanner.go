package scanner

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"scout/internal/signal"
	"scout/pkg/model"
)

// ProgressCallback is called after each symbol with running totals.
type ProgressCallback func(scanned, total int)

// DataSource is the market-data surface the scanner consumes. Absent data
// comes back nil, never as an error.
type DataSource interface {
	GetQuote(ctx context.Context, symbol string) *model.Quote
	GetHistory(ctx context.Context, symbol string) []model.Candle
	CooldownActive() bool
}

// Trader attempts a risk-gated trade for a buy signal.
type Trader interface {
	AttemptTrade(ctx context.Context, symbol string, price float64) *model.Outcome
}

// SentimentFunc returns a headline sentiment label for a symbol.
type SentimentFunc func(ctx context.Context, symbol string) (string, error)

// Config holds the filter band and pacing for a scan.
type Config struct {
	MaxPrice     float64       // inclusive upper bound
	MaxMarketCap float64       // inclusive upper bound
	MinVolume    float64       // inclusive lower bound
	Delay        time.Duration // between symbols
}

// DefaultConfig returns the low-priced screening band.
func DefaultConfig() Config {
	return Config{
		MaxPrice:     10,
		MaxMarketCap: 500_000_000,
		MinVolume:    300_000,
		Delay:        500 * time.Millisecond,
	}
}

// Scanner walks a symbol list sequentially, scoring each one and
// attaching trade outcomes to buy signals. Symbols are paced by the
// configured delay to stay under upstream rate limits.
type Scanner struct {
	cfg       Config
	source    DataSource
	scorer    *signal.Scorer
	trader    Trader
	sentiment SentimentFunc
	log       zerolog.Logger

	progressFunc ProgressCallback
}

// New creates a scanner. trader and sentiment may be nil.
func New(cfg Config, source DataSource, scorer *signal.Scorer, trader Trader, sentiment SentimentFunc, log zerolog.Logger) *Scanner {
	return &Scanner{
		cfg:       cfg,
		source:    source,
		scorer:    scorer,
		trader:    trader,
		sentiment: sentiment,
		log:       log,
	}
}

// SetProgressCallback sets the per-symbol progress hook.
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Scan screens symbols and returns results ordered by descending score.
// The loop aborts with partial results once every provider tier is in
// rate-limit cooldown; a partial scan beats a failed one.
func (s *Scanner) Scan(ctx context.Context, symbols []string) []model.ScanResult {
	results := make([]model.ScanResult, 0, len(symbols))

	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		if s.source.CooldownActive() {
			s.log.Warn().Int("remaining", len(symbols)-i).
				Msg("all provider tiers cooling down, returning partial scan")
			break
		}
		if i > 0 && s.cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return sortByScore(results)
			case <-time.After(s.cfg.Delay):
			}
		}

		if result := s.scanOne(ctx, symbol); result != nil {
			results = append(results, *result)
		}
		if s.progressFunc != nil {
			s.progressFunc(i+1, len(symbols))
		}
	}

	return sortByScore(results)
}

func (s *Scanner) scanOne(ctx context.Context, symbol string) *model.ScanResult {
	quote := s.source.GetQuote(ctx, symbol)
	if !quote.Complete() {
		return nil
	}
	if quote.Price > s.cfg.MaxPrice || quote.MarketCap > s.cfg.MaxMarketCap || quote.Volume < s.cfg.MinVolume {
		return nil
	}

	candles := s.source.GetHistory(ctx, symbol)
	synthetic := false
	if len(candles) == 0 {
		// No usable history: a single point built from the fundamentals
		// price still lets the scorer produce a padded result.
		candles = []model.Candle{{
			Time:   quote.FetchedAt,
			Close:  quote.Price,
			Volume: int64(quote.Volume),
		}}
		synthetic = true
	}

	scored := s.scorer.Score(candles)

	sentiment := ""
	if s.sentiment != nil {
		label, err := s.sentiment(ctx, symbol)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("sentiment fetch failed")
		}
		sentiment = label
	}

	result := &model.ScanResult{
		Symbol:           symbol,
		Price:            quote.Price,
		MarketCap:        quote.MarketCap,
		Volume:           quote.Volume,
		Source:           quote.Source,
		Trend:            scored.Trend,
		RSI:              scored.RSI,
		Score:            s.scorer.Rank(scored, sentiment),
		VolumeSpike:      scored.VolumeSpike,
		Sentiment:        sentiment,
		Action:           scored.Action,
		SyntheticHistory: synthetic || scored.SyntheticHistory,
		StaleQuote:       quote.Stale,
	}

	if result.Action == "buy" && s.trader != nil {
		result.Trade = s.trader.AttemptTrade(ctx, symbol, quote.Price)
	}
	return result
}

func sortByScore(results []model.ScanResult) []model.ScanResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
