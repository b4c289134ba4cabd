package social

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"scout/internal/ratelimit"
	"scout/pkg/model"
)

const (
	trendingURL = "https://api.stocktwits.com/api/2/trending/symbols.json"
	streamURL   = "https://api.stocktwits.com/api/2/streams/symbol/%s.json"

	// maxMessages bounds the per-symbol stream fetch; the score uses the
	// 20 most recent of them.
	maxMessages = 30
	scoreWindow = 20
)

// QuoteFunc resolves a current price for the trending filter. A nil quote
// drops the symbol.
type QuoteFunc func(ctx context.Context, symbol string) *model.Quote

// Client talks to the public StockTwits API. All failures degrade to
// empty results; social data only enriches scans.
type Client struct {
	client   *resty.Client
	limiter  *ratelimit.Limiter
	log      zerolog.Logger
	maxPrice float64
}

// NewClient creates a StockTwits client. maxPrice bounds the trending
// filter band.
func NewClient(timeout time.Duration, maxPrice float64, log zerolog.Logger) *Client {
	client := resty.New()
	client.SetTimeout(timeout)

	return &Client{
		client:   client,
		limiter:  ratelimit.NewLimiter("stocktwits", 30),
		log:      log,
		maxPrice: maxPrice,
	}
}

type trendingResponse struct {
	Symbols []struct {
		Symbol string `json:"symbol"`
		Title  string `json:"title"`
	} `json:"symbols"`
}

type streamResponse struct {
	Messages []struct {
		Entities struct {
			Sentiment *struct {
				Basic string `json:"basic"`
			} `json:"sentiment"`
		} `json:"entities"`
	} `json:"messages"`
}

// Trending returns trending symbols filtered to the low-priced band, each
// with its bullish/bearish message counts. quote may be nil, in which
// case no price filter is applied.
func (c *Client) Trending(ctx context.Context, quote QuoteFunc) []model.TrendingSymbol {
	var resp trendingResponse
	if err := c.getJSON(ctx, trendingURL, &resp); err != nil {
		c.log.Warn().Err(err).Msg("trending fetch failed")
		return nil
	}

	var trending []model.TrendingSymbol
	for _, sym := range resp.Symbols {
		sentiment := c.Sentiment(ctx, sym.Symbol)

		entry := model.TrendingSymbol{
			Symbol: sym.Symbol,
			Name:   sym.Title,
		}
		if sentiment != nil {
			entry.Bullish = sentiment.Bullish
			entry.Bearish = sentiment.Bearish
			entry.SentimentIndex = sentiment.Index
		}

		if quote != nil {
			q := quote(ctx, sym.Symbol)
			if q == nil || q.Price <= 0 || q.Price > c.maxPrice {
				continue
			}
			entry.Price = q.Price
		}

		trending = append(trending, entry)
	}
	return trending
}

// Sentiment aggregates per-message sentiment tags for one symbol. The
// score averages the most recent messages (untagged count as zero) scaled
// to -100..100; the label goes bullish/bearish past the +-20 marks.
func (c *Client) Sentiment(ctx context.Context, symbol string) *model.SocialSentiment {
	var resp streamResponse
	url := fmt.Sprintf(streamURL, symbol)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment fetch failed")
		return nil
	}

	messages := resp.Messages
	if len(messages) > maxMessages {
		messages = messages[:maxMessages]
	}

	var bullish, bearish int
	scores := make([]int, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Entities.Sentiment != nil && m.Entities.Sentiment.Basic == "Bullish":
			bullish++
			scores = append(scores, 1)
		case m.Entities.Sentiment != nil && m.Entities.Sentiment.Basic == "Bearish":
			bearish++
			scores = append(scores, -1)
		default:
			scores = append(scores, 0)
		}
	}

	if len(scores) > scoreWindow {
		scores = scores[:scoreWindow]
	}
	var sum int
	for _, s := range scores {
		sum += s
	}
	score := 0
	if len(scores) > 0 {
		score = int(math.Round(float64(sum) / float64(len(scores)) * 100))
	}

	index := 0.0
	if tagged := bullish + bearish; tagged > 0 {
		index = math.Round(float64(bullish)/float64(tagged)*100) / 100
	}

	label := "neutral"
	switch {
	case score > 20:
		label = "bullish"
	case score < -20:
		label = "bearish"
	}

	return &model.SocialSentiment{
		Symbol:  symbol,
		Label:   label,
		Score:   score,
		Index:   index,
		Bullish: bullish,
		Bearish: bearish,
		Source:  "stocktwits",
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("per_page", fmt.Sprintf("%d", maxMessages)).
		Get(url)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return json.Unmarshal(resp.Body(), out)
}
