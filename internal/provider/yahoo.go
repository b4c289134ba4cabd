package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"scout/internal/ratelimit"
	"scout/pkg/model"
)

const (
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooQuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"

	// Yahoo blocks default Go user agents
	yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// YahooProvider implements the Provider interface for Yahoo Finance
// (unofficial API). It is the primary tier: richest data, tightest limits.
type YahooProvider struct {
	client   *http.Client
	limiter  *ratelimit.Limiter
	interval string
	rng      string
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(timeout time.Duration) *YahooProvider {
	return &YahooProvider{
		client:   &http.Client{Timeout: timeout},
		limiter:  ratelimit.NewLimiter("yahoo", 30), // Conservative rate limit
		interval: "1h",
		rng:      "5d",
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// yahooQuoteResponse represents the Yahoo v7 quote API response
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol              string  `json:"symbol"`
			RegularMarketPrice  float64 `json:"regularMarketPrice"`
			MarketCap           float64 `json:"marketCap"`
			TrailingPE          float64 `json:"trailingPE"`
			RegularMarketVolume float64 `json:"regularMarketVolume"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// yahooChartResponse represents the Yahoo v8 chart API response
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches a fundamentals snapshot via the v7 quote endpoint
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s?symbols=%s", yahooQuoteURL, url.QueryEscape(symbol))
	var data yahooQuoteResponse
	if err := p.getJSON(ctx, u, &data); err != nil {
		return nil, err
	}

	if data.QuoteResponse.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.QuoteResponse.Error.Description), Retryable: false}
	}
	if len(data.QuoteResponse.Result) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote for %s", symbol), Retryable: false}
	}

	r := data.QuoteResponse.Result[0]
	if r.RegularMarketPrice <= 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("non-positive price for %s", symbol), Retryable: false}
	}

	return &model.Quote{
		Symbol:    symbol,
		Price:     r.RegularMarketPrice,
		MarketCap: r.MarketCap,
		PERatio:   r.TrailingPE,
		Volume:    r.RegularMarketVolume,
		Source:    p.Name(),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// History fetches the hourly OHLCV series via the v8 chart endpoint.
// Bars with a missing close are dropped, not interpolated.
func (p *YahooProvider) History(ctx context.Context, symbol string) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?interval=%s&range=%s&includePrePost=false",
		yahooChartURL, url.PathEscape(symbol), p.interval, p.rng)

	var data yahooChartResponse
	if err := p.getJSON(ctx, u, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote indicators"), Retryable: false}
	}
	quotes := result.Indicators.Quote[0]

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i := range result.Timestamp {
		if i >= len(quotes.Close) || quotes.Close[i] == nil {
			continue
		}
		c := model.Candle{
			Time:  time.Unix(result.Timestamp[i], 0).UTC(),
			Close: *quotes.Close[i],
		}
		if i < len(quotes.Open) && quotes.Open[i] != nil {
			c.Open = *quotes.Open[i]
		}
		if i < len(quotes.High) && quotes.High[i] != nil {
			c.High = *quotes.High[i]
		}
		if i < len(quotes.Low) && quotes.Low[i] != nil {
			c.Low = *quotes.Low[i]
		}
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			c.Volume = *quotes.Volume[i]
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

func (p *YahooProvider) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true, RateLimited: true}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
