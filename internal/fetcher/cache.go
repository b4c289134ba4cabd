package fetcher

import (
	"sync"
	"time"

	"scout/pkg/model"
)

// cache holds fetched payloads keyed by symbol and query kind. Entries are
// overwritten on the next successful fetch and never actively evicted; the
// symbol universe is small and short-lived per process, so the map stays
// bounded in practice.
type cache struct {
	mu        sync.Mutex
	ttl       time.Duration
	quotes    map[string]quoteEntry
	histories map[string]historyEntry
	now       func() time.Time
}

type quoteEntry struct {
	quote    model.Quote
	storedAt time.Time
}

type historyEntry struct {
	candles  []model.Candle
	storedAt time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		ttl:       ttl,
		quotes:    make(map[string]quoteEntry),
		histories: make(map[string]historyEntry),
		now:       time.Now,
	}
}

// freshQuote returns a copy of the cached quote if it is within TTL.
func (c *cache) freshQuote(symbol string) (*model.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.quotes[symbol]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	q := e.quote
	return &q, true
}

// staleQuote returns the cached quote regardless of age, flagged stale so
// callers can surface the degrade. Last-resort path only.
func (c *cache) staleQuote(symbol string) (*model.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.quotes[symbol]
	if !ok {
		return nil, false
	}
	q := e.quote
	q.Stale = true
	return &q, true
}

func (c *cache) putQuote(q *model.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.Symbol] = quoteEntry{quote: *q, storedAt: c.now()}
}

func (c *cache) freshHistory(symbol string) ([]model.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.histories[symbol]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	out := make([]model.Candle, len(e.candles))
	copy(out, e.candles)
	return out, true
}

func (c *cache) staleHistory(symbol string) ([]model.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.histories[symbol]
	if !ok {
		return nil, false
	}
	out := make([]model.Candle, len(e.candles))
	copy(out, e.candles)
	return out, true
}

func (c *cache) putHistory(symbol string, candles []model.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]model.Candle, len(candles))
	copy(stored, candles)
	c.histories[symbol] = historyEntry{candles: stored, storedAt: c.now()}
}
