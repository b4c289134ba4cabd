package symbols

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"scout/internal/broker"
	"scout/internal/insider"
	"scout/internal/social"
	"scout/pkg/model"
)

// DefaultSymbols is the static watchlist used when no live candidate
// source is available.
var DefaultSymbols = []string{"CEI", "BBIG", "COSM", "GNS", "SOBR"}

// InsiderSource lists tickers with recent insider activity.
type InsiderSource interface {
	Fetch(ctx context.Context) []model.InsiderTrade
}

// TrendingSource lists socially trending tickers.
type TrendingSource interface {
	Trending(ctx context.Context, quote social.QuoteFunc) []model.TrendingSymbol
}

// Universe assembles the candidate symbol list from insider activity,
// social trending, and the static defaults.
type Universe struct {
	insider  InsiderSource
	trending TrendingSource
	broker   broker.Broker
	log      zerolog.Logger
}

// NewUniverse creates a candidate universe. Any source may be nil; the
// static defaults always apply.
func NewUniverse(ins InsiderSource, trend TrendingSource, b broker.Broker, log zerolog.Logger) *Universe {
	return &Universe{insider: ins, trending: trend, broker: b, log: log}
}

// Candidates returns the merged, deduplicated symbol list. When a broker
// is attached, symbols that are not tradable there are dropped.
func (u *Universe) Candidates(ctx context.Context) []string {
	seen := make(map[string]bool)
	var symbols []string

	add := func(symbol string) {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	if u.insider != nil {
		for _, ticker := range insider.Tickers(u.insider.Fetch(ctx)) {
			add(ticker)
		}
	}
	if u.trending != nil {
		for _, t := range u.trending.Trending(ctx, nil) {
			add(t.Symbol)
		}
	}
	for _, symbol := range DefaultSymbols {
		add(symbol)
	}

	sort.Strings(symbols)

	if u.broker == nil {
		return symbols
	}
	return u.filterTradable(ctx, symbols)
}

func (u *Universe) filterTradable(ctx context.Context, symbols []string) []string {
	tradable := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		asset, err := u.broker.GetAsset(ctx, symbol)
		if err != nil {
			u.log.Debug().Err(err).Str("symbol", symbol).Msg("asset lookup failed")
			continue
		}
		if asset.Tradable {
			tradable = append(tradable, symbol)
		}
	}
	if len(tradable) == 0 {
		u.log.Warn().Msg("no tradable symbols after brokerage screening")
	}
	return tradable
}
