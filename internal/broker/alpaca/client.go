package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"scout/internal/broker"
	"scout/internal/ratelimit"
)

// Client is an Alpaca REST trading client. The base URL is picked by the
// credentials' Live flag; everything else is identical between paper and
// live trading.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewClient creates an Alpaca client. Alpaca allows 200 requests per
// minute per key.
func NewClient(creds Credentials) *Client {
	baseURL := PaperBaseURL
	if creds.Live {
		baseURL = LiveBaseURL
	}
	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.NewLimiter("alpaca", 200),
	}
}

func (c *Client) Name() string {
	return "alpaca"
}

// IsReady reports whether credentials are set and the account endpoint
// answers.
func (c *Client) IsReady() bool {
	if c.creds.KeyID == "" || c.creds.SecretKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.GetAccount(ctx)
	return err == nil
}

// HasCredentials reports whether API keys were configured at all. The
// engine runs in simulated mode without them.
func (c *Client) HasCredentials() bool {
	return c.creds.KeyID != "" && c.creds.SecretKey != ""
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.creds.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.creds.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// GetAccount returns current and prior-day equity.
func (c *Client) GetAccount(ctx context.Context) (*broker.Account, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return nil, err
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}

	return &broker.Account{
		Equity:     parseFloat(resp.Equity),
		LastEquity: parseFloat(resp.LastEquity),
		Cash:       parseFloat(resp.Cash),
		Currency:   resp.Currency,
	}, nil
}

// GetPositions returns all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, err
	}

	var resp []positionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}

	positions := make([]broker.Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, broker.Position{
			Symbol:        p.Symbol,
			Quantity:      int(parseFloat(p.Qty)),
			AvgCost:       parseFloat(p.AvgEntryPrice),
			CurrentPrice:  parseFloat(p.CurrentPrice),
			MarketValue:   parseFloat(p.MarketValue),
			UnrealizedPnL: parseFloat(p.UnrealizedPL),
		})
	}
	return positions, nil
}

// GetAsset looks up one symbol's tradability.
func (c *Client) GetAsset(ctx context.Context, symbol string) (*broker.Asset, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v2/assets/"+symbol, nil)
	if err != nil {
		return nil, err
	}

	var resp assetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse asset: %w", err)
	}

	return &broker.Asset{
		Symbol:   resp.Symbol,
		Name:     resp.Name,
		Exchange: resp.Exchange,
		Tradable: resp.Tradable && resp.Status == "active",
	}, nil
}

// SubmitBracketOrder places a GTC limit buy with take-profit and
// stop-loss legs attached.
func (c *Client) SubmitBracketOrder(ctx context.Context, order broker.BracketOrder) (*broker.OrderResult, error) {
	req := orderRequest{
		Symbol:        order.Symbol,
		Qty:           strconv.Itoa(order.Quantity),
		Side:          "buy",
		Type:          "limit",
		LimitPrice:    formatPrice(order.LimitPrice),
		TimeInForce:   "gtc",
		OrderClass:    "bracket",
		ClientOrderID: order.ClientOrderID,
		TakeProfit:    &takeProfit{LimitPrice: formatPrice(order.TakeProfit)},
		StopLoss:      &stopLoss{StopPrice: formatPrice(order.StopLoss)},
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v2/orders", req)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order: %w", err)
	}

	submittedAt, _ := time.Parse(time.RFC3339, resp.SubmittedAt)
	return &broker.OrderResult{
		OrderID:     resp.ID,
		Symbol:      resp.Symbol,
		Quantity:    int(parseFloat(resp.Qty)),
		Status:      resp.Status,
		SubmittedAt: submittedAt,
	}, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
