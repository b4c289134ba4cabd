package fetcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scout/internal/provider"
	"scout/pkg/model"
)

// fakeProvider returns scripted responses and records call counts.
type fakeProvider struct {
	name      string
	available bool
	quote     *model.Quote
	quoteErr  error
	history   []model.Candle
	histErr   error

	quoteCalls   int
	historyCalls int
}

func (p *fakeProvider) Name() string      { return p.name }
func (p *fakeProvider) IsAvailable() bool { return p.available }

func (p *fakeProvider) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	p.quoteCalls++
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	q := *p.quote
	q.Symbol = symbol
	return &q, nil
}

func (p *fakeProvider) History(ctx context.Context, symbol string) ([]model.Candle, error) {
	p.historyCalls++
	if p.histErr != nil {
		return nil, p.histErr
	}
	return p.history, nil
}

func goodQuote(source string, price float64) *model.Quote {
	return &model.Quote{
		Price:     price,
		MarketCap: 50_000_000,
		Volume:    800_000,
		Source:    source,
		FetchedAt: time.Now().UTC(),
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{MaxAttempts: 1}
	return cfg
}

func rateLimitedErr(name string) error {
	return &provider.ProviderError{Provider: name, Err: fmt.Errorf("rate limited"), Retryable: true, RateLimited: true}
}

func failedErr(name string) error {
	return &provider.ProviderError{Provider: name, Err: fmt.Errorf("status 500"), Retryable: true}
}

func TestGetQuoteCacheIdempotence(t *testing.T) {
	p := &fakeProvider{name: "a", available: true, quote: goodQuote("a", 4.5)}
	f := New(testConfig(), zerolog.Nop(), Tier{Name: "primary", Providers: []provider.Provider{p}})

	first := f.GetQuote(context.Background(), "ABCD")
	second := f.GetQuote(context.Background(), "ABCD")

	if first == nil || second == nil {
		t.Fatal("expected quotes from both calls")
	}
	if *first != *second {
		t.Errorf("cached quote differs: %+v vs %+v", first, second)
	}
	if p.quoteCalls != 1 {
		t.Errorf("expected 1 upstream call, got %d", p.quoteCalls)
	}
}

func TestGetQuoteFallbackOrder(t *testing.T) {
	primary := &fakeProvider{name: "a", available: true, quoteErr: failedErr("a")}
	fallback := &fakeProvider{name: "b", available: true, quote: goodQuote("b", 2.1)}
	f := New(testConfig(), zerolog.Nop(),
		Tier{Name: "primary", Providers: []provider.Provider{primary}},
		Tier{Name: "fallback", Providers: []provider.Provider{fallback}},
	)

	q := f.GetQuote(context.Background(), "XYZ")
	if q == nil || q.Source != "b" {
		t.Fatalf("expected fallback quote, got %+v", q)
	}
	if primary.quoteCalls != 1 || fallback.quoteCalls != 1 {
		t.Errorf("call counts: primary=%d fallback=%d", primary.quoteCalls, fallback.quoteCalls)
	}
}

func TestGetQuoteRateLimitTripsTier(t *testing.T) {
	primary := &fakeProvider{name: "a", available: true, quoteErr: rateLimitedErr("a")}
	sibling := &fakeProvider{name: "a2", available: true, quote: goodQuote("a2", 3.0)}
	fallback := &fakeProvider{name: "b", available: true, quote: goodQuote("b", 3.0)}
	f := New(testConfig(), zerolog.Nop(),
		Tier{Name: "primary", Providers: []provider.Provider{primary, sibling}},
		Tier{Name: "fallback", Providers: []provider.Provider{fallback}},
	)

	q := f.GetQuote(context.Background(), "XYZ")
	if q == nil || q.Source != "b" {
		t.Fatalf("expected fallback tier to serve, got %+v", q)
	}
	// The 429 blocks the whole primary tier, including the sibling.
	if sibling.quoteCalls != 0 {
		t.Errorf("sibling provider should be skipped after tier trip, got %d calls", sibling.quoteCalls)
	}

	// Second symbol: primary tier still cooling down, no new primary calls.
	f.GetQuote(context.Background(), "WXYZ")
	if primary.quoteCalls != 1 {
		t.Errorf("primary should stay blocked during cooldown, got %d calls", primary.quoteCalls)
	}
}

func TestGetQuoteIncompleteSkipped(t *testing.T) {
	incomplete := &fakeProvider{name: "a", available: true,
		quote: &model.Quote{Price: 4.5, Source: "a"}} // no market cap
	complete := &fakeProvider{name: "b", available: true, quote: goodQuote("b", 4.5)}
	f := New(testConfig(), zerolog.Nop(),
		Tier{Name: "primary", Providers: []provider.Provider{incomplete, complete}},
	)

	q := f.GetQuote(context.Background(), "XYZ")
	if q == nil || q.Source != "b" {
		t.Fatalf("incomplete quote must not be served, got %+v", q)
	}
}

func TestGetQuoteStaleFallback(t *testing.T) {
	p := &fakeProvider{name: "a", available: true, quote: goodQuote("a", 4.5)}
	cfg := testConfig()
	cfg.CacheTTL = 0 // every entry is immediately stale
	f := New(cfg, zerolog.Nop(), Tier{Name: "primary", Providers: []provider.Provider{p}})

	if q := f.GetQuote(context.Background(), "XYZ"); q == nil {
		t.Fatal("expected initial quote")
	}

	p.quote = nil
	p.quoteErr = failedErr("a")

	q := f.GetQuote(context.Background(), "XYZ")
	if q == nil {
		t.Fatal("expected stale quote as last resort")
	}
	if !q.Stale {
		t.Error("stale quote should be flagged")
	}
}

func TestGetQuoteAllExhausted(t *testing.T) {
	p := &fakeProvider{name: "a", available: true, quoteErr: failedErr("a")}
	f := New(testConfig(), zerolog.Nop(), Tier{Name: "primary", Providers: []provider.Provider{p}})

	if q := f.GetQuote(context.Background(), "XYZ"); q != nil {
		t.Errorf("expected nil quote, got %+v", q)
	}
}

func TestGetHistorySkipsUnsupported(t *testing.T) {
	scraper := &fakeProvider{name: "a", available: true,
		histErr: &provider.ProviderError{Provider: "a", Err: provider.ErrUnsupported}}
	chart := &fakeProvider{name: "b", available: true,
		history: []model.Candle{{Close: 1.0}, {Close: 1.1}}}
	f := New(testConfig(), zerolog.Nop(),
		Tier{Name: "primary", Providers: []provider.Provider{scraper, chart}},
	)

	candles := f.GetHistory(context.Background(), "XYZ")
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
}

func TestCooldownActive(t *testing.T) {
	primary := &fakeProvider{name: "a", available: true, quoteErr: rateLimitedErr("a")}
	fallback := &fakeProvider{name: "b", available: true, quoteErr: rateLimitedErr("b")}
	f := New(testConfig(), zerolog.Nop(),
		Tier{Name: "primary", Providers: []provider.Provider{primary}},
		Tier{Name: "fallback", Providers: []provider.Provider{fallback}},
	)

	if f.CooldownActive() {
		t.Error("cooldown should not be active before any trips")
	}

	f.GetQuote(context.Background(), "XYZ")
	if !f.CooldownActive() {
		t.Error("cooldown should be active after every tier tripped")
	}
}

func TestUnavailableProvidersFiltered(t *testing.T) {
	keyed := &fakeProvider{name: "a", available: false, quote: goodQuote("a", 4.5)}
	f := New(testConfig(), zerolog.Nop(), Tier{Name: "primary", Providers: []provider.Provider{keyed}})

	if q := f.GetQuote(context.Background(), "XYZ"); q != nil {
		t.Errorf("unavailable provider must not serve, got %+v", q)
	}
	if keyed.quoteCalls != 0 {
		t.Errorf("unavailable provider should never be called, got %d", keyed.quoteCalls)
	}
}
