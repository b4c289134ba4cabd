package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scout/internal/signal"
	"scout/pkg/model"
)

// fakeSource serves scripted quotes and histories.
type fakeSource struct {
	quotes    map[string]*model.Quote
	histories map[string][]model.Candle
	cooldown  bool

	// cooldownAfter trips the cooldown once this many quote calls happened.
	cooldownAfter int
	quoteCalls    int
}

func (s *fakeSource) GetQuote(ctx context.Context, symbol string) *model.Quote {
	s.quoteCalls++
	if s.cooldownAfter > 0 && s.quoteCalls >= s.cooldownAfter {
		s.cooldown = true
	}
	return s.quotes[symbol]
}

func (s *fakeSource) GetHistory(ctx context.Context, symbol string) []model.Candle {
	return s.histories[symbol]
}

func (s *fakeSource) CooldownActive() bool {
	return s.cooldown
}

// fakeTrader records trade attempts.
type fakeTrader struct {
	attempts []string
}

func (t *fakeTrader) AttemptTrade(ctx context.Context, symbol string, price float64) *model.Outcome {
	t.attempts = append(t.attempts, symbol)
	return &model.Outcome{Status: "placed", Symbol: symbol, Price: price}
}

func quoteFor(symbol string, price, mcap, volume float64) *model.Quote {
	return &model.Quote{
		Symbol:    symbol,
		Price:     price,
		MarketCap: mcap,
		Volume:    volume,
		Source:    "test",
		FetchedAt: time.Now().UTC(),
	}
}

// risingCandles returns n rising closes with steady volume.
func risingCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{Close: 1.0 + float64(i)*0.1, Volume: 400_000}
	}
	return candles
}

// buySeries produces an RSI above the buy threshold: mostly gains with a
// few small losses over the trailing window.
func buySeries() []model.Candle {
	closes := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	price := 5.0
	for i := 0; i < 14; i++ {
		if i%4 == 3 {
			price -= 0.05
		} else {
			price += 0.30
		}
		closes = append(closes, price)
	}
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{Close: c, Volume: 400_000}
	}
	return candles
}

func testScanner(cfg Config, source DataSource, trader Trader) *Scanner {
	return New(cfg, source, signal.NewScorer(signal.DefaultThresholds()), trader, nil, zerolog.Nop())
}

func noDelay() Config {
	cfg := DefaultConfig()
	cfg.Delay = 0
	return cfg
}

func TestScanFiltersAndScores(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"ABCD": quoteFor("ABCD", 4.50, 50_000_000, 800_000),
			"EXPN": quoteFor("EXPN", 45.00, 50_000_000, 800_000),   // over the price cap
			"THIN": quoteFor("THIN", 2.00, 50_000_000, 100_000),    // under the volume floor
			"HUGE": quoteFor("HUGE", 5.00, 2_000_000_000, 800_000), // over the cap bound
			"MISS": {Symbol: "MISS", Price: 3.00},                  // incomplete
		},
		histories: map[string][]model.Candle{
			"ABCD": risingCandles(30),
		},
	}
	s := testScanner(noDelay(), source, nil)

	results := s.Scan(context.Background(), []string{"ABCD", "EXPN", "THIN", "HUGE", "MISS", "GONE"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	r := results[0]
	if r.Symbol != "ABCD" || r.Trend != "Bullish" {
		t.Errorf("result = %+v, want Bullish ABCD", r)
	}
	if r.SyntheticHistory {
		t.Error("real 30-point history must not be flagged synthetic")
	}
}

func TestScanSyntheticSeriesFallback(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"ABCD": quoteFor("ABCD", 4.50, 50_000_000, 800_000),
		},
		histories: map[string][]model.Candle{},
	}
	s := testScanner(noDelay(), source, nil)

	results := s.Scan(context.Background(), []string{"ABCD"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].SyntheticHistory {
		t.Error("single-point fallback series must be flagged synthetic")
	}
}

func TestScanBuyTriggersOneTradeAttempt(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"ABCD": quoteFor("ABCD", 4.50, 50_000_000, 800_000),
		},
		histories: map[string][]model.Candle{
			"ABCD": buySeries(),
		},
	}
	trader := &fakeTrader{}
	s := testScanner(noDelay(), source, trader)

	results := s.Scan(context.Background(), []string{"ABCD"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Action != "buy" {
		t.Fatalf("action = %s, want buy (rsi %.2f)", results[0].Action, results[0].RSI)
	}
	if len(trader.attempts) != 1 || trader.attempts[0] != "ABCD" {
		t.Errorf("expected exactly one trade attempt for ABCD, got %v", trader.attempts)
	}
	if results[0].Trade == nil || !results[0].Trade.Placed() {
		t.Errorf("trade outcome missing from result: %+v", results[0].Trade)
	}
}

func TestScanHoldDoesNotTrade(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"ABCD": quoteFor("ABCD", 4.50, 50_000_000, 800_000),
		},
		histories: map[string][]model.Candle{
			"ABCD": risingCandles(30), // lossless rise pins RSI at neutral
		},
	}
	trader := &fakeTrader{}
	s := testScanner(noDelay(), source, trader)

	s.Scan(context.Background(), []string{"ABCD"})
	if len(trader.attempts) != 0 {
		t.Errorf("hold action must not attempt trades, got %v", trader.attempts)
	}
}

func TestScanAbortsOnGlobalCooldown(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"AAAA": quoteFor("AAAA", 4.50, 50_000_000, 800_000),
			"BBBB": quoteFor("BBBB", 4.50, 50_000_000, 800_000),
			"CCCC": quoteFor("CCCC", 4.50, 50_000_000, 800_000),
		},
		histories:     map[string][]model.Candle{},
		cooldownAfter: 1, // cooldown trips after the first fetch
	}
	s := testScanner(noDelay(), source, nil)

	results := s.Scan(context.Background(), []string{"AAAA", "BBBB", "CCCC"})
	if len(results) != 1 {
		t.Fatalf("expected partial results (1), got %d", len(results))
	}
	if source.quoteCalls != 1 {
		t.Errorf("scan should stop fetching after cooldown, got %d calls", source.quoteCalls)
	}
}

func TestScanOrdersByScoreDescending(t *testing.T) {
	source := &fakeSource{
		quotes: map[string]*model.Quote{
			"BULL": quoteFor("BULL", 4.50, 50_000_000, 800_000),
			"BEAR": quoteFor("BEAR", 4.50, 50_000_000, 800_000),
		},
		histories: map[string][]model.Candle{
			"BULL": risingCandles(30),
		},
	}
	// BEAR gets the one-point synthetic fallback; its flat padding scores
	// below the rising series.
	s := testScanner(noDelay(), source, nil)

	results := s.Scan(context.Background(), []string{"BEAR", "BULL"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by descending score: %v then %v",
			results[0].Score, results[1].Score)
	}
}

func TestCombineIntersectsAndRanks(t *testing.T) {
	trades := []model.InsiderTrade{
		{Ticker: "AAAA", Insider: "Doe Jane", Transaction: "Buy"},
		{Ticker: "AAAA", Insider: "Older Row"},
		{Ticker: "BBBB", Insider: "Smith Alex"},
		{Ticker: "CCCC", Insider: "No Social"},
	}
	trending := []model.TrendingSymbol{
		{Symbol: "AAAA", Bullish: 10, Bearish: 2, SentimentIndex: 0.83},
		{Symbol: "BBBB", Bullish: 40, Bearish: 1, SentimentIndex: 0.98},
		{Symbol: "DDDD", Bullish: 5, SentimentIndex: 1.0}, // no insider row
	}
	quotes := func(ctx context.Context, symbol string) *model.Quote {
		caps := map[string]float64{"AAAA": 80_000_000, "BBBB": 40_000_000}
		if mcap, ok := caps[symbol]; ok {
			return &model.Quote{Symbol: symbol, Price: 3, MarketCap: mcap}
		}
		return nil
	}

	signals := Combine(context.Background(), trades, trending, quotes, 0)

	if len(signals) != 2 {
		t.Fatalf("expected 2 combined signals, got %d", len(signals))
	}
	// BBBB: 0.98*40/40M beats AAAA: 0.83*10/80M.
	if signals[0].Symbol != "BBBB" || signals[1].Symbol != "AAAA" {
		t.Errorf("order = %s, %s; want BBBB, AAAA", signals[0].Symbol, signals[1].Symbol)
	}
	if signals[1].Insider.Insider != "Doe Jane" {
		t.Errorf("first insider row per symbol should win, got %s", signals[1].Insider.Insider)
	}
}

func TestCombineLimit(t *testing.T) {
	trades := []model.InsiderTrade{{Ticker: "AAAA"}, {Ticker: "BBBB"}}
	trending := []model.TrendingSymbol{
		{Symbol: "AAAA", Bullish: 1, SentimentIndex: 0.5},
		{Symbol: "BBBB", Bullish: 2, SentimentIndex: 0.5},
	}
	quotes := func(ctx context.Context, symbol string) *model.Quote {
		return &model.Quote{Symbol: symbol, MarketCap: 1_000_000}
	}

	signals := Combine(context.Background(), trades, trending, quotes, 1)
	if len(signals) != 1 {
		t.Fatalf("expected limit of 1, got %d", len(signals))
	}
}
