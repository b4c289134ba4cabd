package scanner

import (
	"context"
	"sort"
	"strings"

	"scout/pkg/model"
)

// Combine intersects insider activity with socially trending symbols and
// ranks the overlap by sentiment-weighted conviction relative to size:
// sentimentIndex * bullish / marketCap. Symbols without a usable market
// cap are dropped. quotes resolves market caps; limit <= 0 means no cap.
func Combine(ctx context.Context, trades []model.InsiderTrade, trending []model.TrendingSymbol,
	quotes func(ctx context.Context, symbol string) *model.Quote, limit int) []model.CombinedSignal {

	insiderBySymbol := make(map[string]model.InsiderTrade)
	for _, trade := range trades {
		symbol := strings.ToUpper(trade.Ticker)
		if symbol == "" {
			continue
		}
		// First row per symbol wins: the table is newest-first.
		if _, ok := insiderBySymbol[symbol]; !ok {
			insiderBySymbol[symbol] = trade
		}
	}

	var signals []model.CombinedSignal
	for _, entry := range trending {
		symbol := strings.ToUpper(entry.Symbol)
		trade, ok := insiderBySymbol[symbol]
		if !ok {
			continue
		}

		quote := quotes(ctx, symbol)
		if quote == nil || quote.MarketCap <= 0 {
			continue
		}

		score := 0.0
		if entry.Bullish > 0 {
			score = entry.SentimentIndex * float64(entry.Bullish) / quote.MarketCap
		}

		signals = append(signals, model.CombinedSignal{
			Symbol:         symbol,
			Name:           entry.Name,
			Price:          entry.Price,
			Bullish:        entry.Bullish,
			Bearish:        entry.Bearish,
			SentimentIndex: entry.SentimentIndex,
			MarketCap:      quote.MarketCap,
			Score:          score,
			Insider:        trade,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Score > signals[j].Score
	})
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	return signals
}
