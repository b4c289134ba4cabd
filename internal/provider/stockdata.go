package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"scout/internal/ratelimit"
	"scout/pkg/model"
)

const stockdataBaseURL = "https://api.stockdata.org/v1/data/quote"

// StockDataProvider implements the Provider interface for the StockData
// quote API. Keyed, last in the fallback tier.
type StockDataProvider struct {
	apiKey  string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewStockDataProvider creates a new StockData provider
func NewStockDataProvider(apiKey string, timeout time.Duration) *StockDataProvider {
	return &StockDataProvider{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: ratelimit.NewLimiter("stockdata", 10),
	}
}

// Name returns the provider name
func (p *StockDataProvider) Name() string {
	return "stockdata"
}

// IsAvailable checks if the provider has an API key
func (p *StockDataProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// stockdataQuote represents one entry of the StockData quote response.
// The API has shipped both snake_case and camelCase field names.
type stockdataQuote struct {
	Symbol     string   `json:"symbol"`
	Price      *float64 `json:"price"`
	MarketCap  *float64 `json:"market_cap"`
	MarketCap2 *float64 `json:"marketCap"`
	PERatio    *float64 `json:"pe_ratio"`
	PE         *float64 `json:"pe"`
	Volume     *float64 `json:"volume"`
}

type stockdataResponse struct {
	Data []stockdataQuote `json:"data"`
}

// Quote fetches a structured quote by symbol
func (p *StockDataProvider) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("api_token", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", stockdataBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true, RateLimited: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}

	var data stockdataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(data.Data) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote for %s", symbol), Retryable: false}
	}

	entry := data.Data[0]
	mcap := firstValue(entry.MarketCap, entry.MarketCap2)
	if entry.Price == nil || mcap == nil || *entry.Price <= 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("incomplete quote for %s", symbol), Retryable: false}
	}

	q := &model.Quote{
		Symbol:    symbol,
		Price:     *entry.Price,
		MarketCap: *mcap,
		Source:    p.Name(),
		FetchedAt: time.Now().UTC(),
	}
	if pe := firstValue(entry.PERatio, entry.PE); pe != nil {
		q.PERatio = *pe
	}
	if entry.Volume != nil {
		q.Volume = *entry.Volume
	}
	return q, nil
}

// History is not offered on the quote endpoint
func (p *StockDataProvider) History(ctx context.Context, symbol string) ([]model.Candle, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrUnsupported, Retryable: false}
}

func firstValue(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
