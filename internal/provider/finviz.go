package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"scout/internal/ratelimit"
	"scout/pkg/model"
	"scout/pkg/parse"
)

const (
	finvizQuoteURL = "https://finviz.com/quote.ashx"

	// Finviz serves HTML only to browser-looking agents
	finvizUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
)

// FinvizProvider scrapes the Finviz snapshot page for fundamentals. It has
// no history endpoint; it is a fallback-tier source.
type FinvizProvider struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewFinvizProvider creates a new Finviz scraper
func NewFinvizProvider(timeout time.Duration) *FinvizProvider {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", finvizUserAgent)

	return &FinvizProvider{
		client:  client,
		limiter: ratelimit.NewLimiter("finviz", 20),
	}
}

// Name returns the provider name
func (p *FinvizProvider) Name() string {
	return "finviz"
}

// IsAvailable always returns true (no API key needed)
func (p *FinvizProvider) IsAvailable() bool {
	return true
}

// Quote scrapes the snapshot table. Cells come in label/value pairs;
// unparsable values are left zero rather than failing the whole quote.
func (p *FinvizProvider) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	doc, err := p.fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	cells := doc.Find("table.snapshot-table2 td")
	if cells.Length() == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no snapshot table for %s", symbol), Retryable: false}
	}

	fields := make(map[string]string)
	texts := cells.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	for i := 0; i+1 < len(texts); i += 2 {
		fields[texts[i]] = texts[i+1]
	}

	priceText, mcapText := fields["Price"], fields["Market Cap"]
	if priceText == "" || mcapText == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("missing price or market cap for %s", symbol), Retryable: false}
	}

	price, okPrice := parse.AbbrevFloat(priceText)
	mcap, okMcap := parse.AbbrevFloat(mcapText)
	if !okPrice || !okMcap || price <= 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("unparsable fundamentals for %s", symbol), Retryable: false}
	}

	q := &model.Quote{
		Symbol:    symbol,
		Price:     price,
		MarketCap: mcap,
		Source:    p.Name(),
		FetchedAt: time.Now().UTC(),
	}
	if pe, ok := parse.AbbrevFloat(fields["P/E"]); ok {
		q.PERatio = pe
	}
	if vol, ok := parse.AbbrevFloat(fields["Volume"]); ok {
		q.Volume = vol
	}
	return q, nil
}

// History is not available from the snapshot page
func (p *FinvizProvider) History(ctx context.Context, symbol string) ([]model.Candle, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrUnsupported, Retryable: false}
}

// Headlines returns the sentiment label derived from the first few news
// headlines on the quote page: Positive, Negative, or Neutral.
func (p *FinvizProvider) Headlines(ctx context.Context, symbol string) (string, error) {
	doc, err := p.fetch(ctx, symbol)
	if err != nil {
		return "Neutral", err
	}

	headlines := doc.Find(".news-link-left").Map(func(_ int, s *goquery.Selection) string {
		return strings.ToLower(strings.TrimSpace(s.Text()))
	})
	if len(headlines) > 5 {
		headlines = headlines[:5]
	}

	for _, h := range headlines {
		for _, word := range []string{"up", "gain", "surge", "upgrade"} {
			if strings.Contains(h, word) {
				return "Positive", nil
			}
		}
	}
	for _, h := range headlines {
		for _, word := range []string{"down", "drop", "loss", "downgrade"} {
			if strings.Contains(h, word) {
				return "Negative", nil
			}
		}
	}
	return "Neutral", nil
}

func (p *FinvizProvider) fetch(ctx context.Context, symbol string) (*goquery.Document, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("t", symbol).
		Get(finvizQuoteURL)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}

	switch {
	case resp.StatusCode() == 429:
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true, RateLimited: true}
	case resp.StatusCode() != 200:
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode()), Retryable: resp.StatusCode() >= 500}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return doc, nil
}
