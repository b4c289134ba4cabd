package insider

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"scout/internal/ratelimit"
	"scout/pkg/model"
	"scout/pkg/parse"
)

const (
	insiderURL = "https://elite.finviz.com/insidertrading.ashx"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

	// DefaultLimit caps rows returned per fetch.
	DefaultLimit = 100
)

// Scraper fetches the Finviz insider-trading table. The page is behind a
// paywall for some regions; 403/404 answers degrade to an empty list
// rather than an error.
type Scraper struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	log     zerolog.Logger
	limit   int
}

// NewScraper creates an insider scraper.
func NewScraper(timeout time.Duration, log zerolog.Logger) *Scraper {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)

	return &Scraper{
		client:  client,
		limiter: ratelimit.NewLimiter("finviz-insider", 10),
		log:     log,
		limit:   DefaultLimit,
	}
}

// Fetch returns recent insider trades, newest first as rendered. Any
// upstream failure yields an empty list; insider data is enrichment, not
// a hard dependency.
func (s *Scraper) Fetch(ctx context.Context) []model.InsiderTrade {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}

	resp, err := s.client.R().SetContext(ctx).Get(insiderURL)
	if err != nil {
		s.log.Warn().Err(err).Msg("unable to fetch insider trades")
		return nil
	}

	switch resp.StatusCode() {
	case 200:
	case 403, 404:
		s.log.Warn().Int("status", resp.StatusCode()).
			Msg("insider page not accessible, returning empty list")
		return nil
	default:
		s.log.Warn().Int("status", resp.StatusCode()).Msg("insider request failed")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		s.log.Warn().Err(err).Msg("unparsable insider page")
		return nil
	}

	trades := parseTable(doc, s.limit)
	if trades == nil {
		s.log.Warn().Msg("unable to locate insider trading table")
	}
	return trades
}

// Tickers returns the distinct tickers appearing in trades, order
// preserved.
func Tickers(trades []model.InsiderTrade) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, t := range trades {
		if t.Ticker == "" || seen[t.Ticker] {
			continue
		}
		seen[t.Ticker] = true
		symbols = append(symbols, t.Ticker)
	}
	return symbols
}

// parseTable extracts structured rows from the insider table. The first
// row is a header whose leading cell reads "Ticker"; data rows carry at
// least eight cells.
func parseTable(doc *goquery.Document, limit int) []model.InsiderTrade {
	table := doc.Find("table.body-table").First()
	if table.Length() == 0 {
		table = doc.Find("table[class*=insider]").First()
	}
	if table.Length() == 0 {
		return nil
	}

	trades := make([]model.InsiderTrade, 0, limit)
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		values := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		if len(values) < 8 || strings.EqualFold(values[0], "ticker") {
			return true
		}

		trade := model.InsiderTrade{
			Ticker:       strings.ToUpper(values[0]),
			Insider:      values[1],
			Relationship: values[2],
			Date:         normalizeDate(values[3]),
			Transaction:  values[4],
		}
		if v, ok := parse.AbbrevFloat(values[5]); ok {
			trade.Price = v
		}
		if v, ok := parse.AbbrevInt(values[6]); ok {
			trade.Shares = v
		}
		if v, ok := parse.AbbrevFloat(values[7]); ok {
			trade.Value = v
		}
		if len(values) > 8 {
			if v, ok := parse.AbbrevInt(values[8]); ok {
				trade.SharesTotal = v
			}
		}
		if len(values) > 9 {
			trade.SECForm = values[9]
		}

		trades = append(trades, trade)
		return limit <= 0 || len(trades) < limit
	})

	return trades
}

// normalizeDate converts the table's date formats to ISO; unknown formats
// pass through as-is.
func normalizeDate(value string) string {
	for _, layout := range []string{"01/02/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}
