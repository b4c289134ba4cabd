package model

import "time"

// Candle represents a single candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Quote is a point-in-time price/fundamentals snapshot for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	MarketCap float64   `json:"market_cap"`
	PERatio   float64   `json:"pe_ratio,omitempty"` // 0 when the upstream did not report one
	Volume    float64   `json:"volume"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale,omitempty"` // served past its cache TTL
}

// Complete reports whether the quote carries the fields required for
// screening. A quote missing price or market cap must not be used to
// filter symbols.
func (q *Quote) Complete() bool {
	return q != nil && q.Price > 0 && q.MarketCap > 0
}

// TradeStats is the per-day trading state, reset whenever the stored date
// differs from the current date.
type TradeStats struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	UsedCapital float64 `json:"used_capital"`
	Trades      int     `json:"trades"`
	PnL         float64 `json:"pnl"`
	Halted      bool    `json:"halted"`
}

// InsiderTrade is one row from the insider-activity table.
type InsiderTrade struct {
	Ticker       string  `json:"ticker"`
	Insider      string  `json:"insider"`
	Relationship string  `json:"relationship"`
	Date         string  `json:"date"` // ISO date when parseable, raw text otherwise
	Transaction  string  `json:"transaction"`
	Price        float64 `json:"price,omitempty"`
	Shares       int64   `json:"shares,omitempty"`
	Value        float64 `json:"value,omitempty"`
	SharesTotal  int64   `json:"shares_total,omitempty"`
	SECForm      string  `json:"sec_form,omitempty"`
}

// SocialSentiment aggregates message sentiment for a symbol.
type SocialSentiment struct {
	Symbol  string  `json:"symbol"`
	Label   string  `json:"sentiment"`       // bullish, bearish, neutral
	Score   int     `json:"sentiment_score"` // -100..100
	Index   float64 `json:"sentiment_index"` // bullish / (bullish + bearish)
	Bullish int     `json:"bullish"`
	Bearish int     `json:"bearish"`
	Source  string  `json:"source"`
}

// TrendingSymbol is a trending entry filtered to the low-priced band.
type TrendingSymbol struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Bullish        int     `json:"bullish"`
	Bearish        int     `json:"bearish"`
	SentimentIndex float64 `json:"sentiment_index"`
}

// ScanResult is one ranked row of a scan. Rebuilt on every scan, never
// persisted.
type ScanResult struct {
	Symbol           string   `json:"symbol"`
	Price            float64  `json:"price"`
	MarketCap        float64  `json:"market_cap"`
	Volume           float64  `json:"volume"`
	Source           string   `json:"source"`
	Trend            string   `json:"trend"`
	RSI              float64  `json:"rsi"`
	Score            float64  `json:"score"`
	VolumeSpike      bool     `json:"volume_spike"`
	Sentiment        string   `json:"sentiment,omitempty"`
	Action           string   `json:"action"`
	SyntheticHistory bool     `json:"synthetic_history,omitempty"`
	StaleQuote       bool     `json:"stale_quote,omitempty"`
	Trade            *Outcome `json:"trade,omitempty"`
}

// Outcome reports the result of a trade attempt. Rejections carry a Reason
// plus the stats snapshot; they are values, not errors.
type Outcome struct {
	Status     string     `json:"status"` // placed, rejected, failed, simulated
	Reason     string     `json:"reason,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Qty        int        `json:"qty,omitempty"`
	Price      float64    `json:"price,omitempty"`
	TakeProfit float64    `json:"take_profit,omitempty"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
	Stats      TradeStats `json:"stats"`
}

// Placed reports whether the attempt resulted in a submitted order.
func (o *Outcome) Placed() bool {
	return o != nil && o.Status == "placed"
}

// CombinedSignal merges insider activity with social sentiment for one
// symbol.
type CombinedSignal struct {
	Symbol         string       `json:"symbol"`
	Name           string       `json:"name"`
	Price          float64      `json:"price"`
	Bullish        int          `json:"bullish"`
	Bearish        int          `json:"bearish"`
	SentimentIndex float64      `json:"sentiment_index"`
	MarketCap      float64      `json:"market_cap"`
	Score          float64      `json:"score"`
	Insider        InsiderTrade `json:"insider"`
}
