package alpaca

// API endpoints per trading mode.
const (
	PaperBaseURL = "https://paper-api.alpaca.markets"
	LiveBaseURL  = "https://api.alpaca.markets"
)

// Credentials are the static API keys issued by Alpaca.
type Credentials struct {
	KeyID     string
	SecretKey string
	Live      bool
}

// accountResponse mirrors GET /v2/account. Alpaca returns monetary fields
// as strings.
type accountResponse struct {
	Equity     string `json:"equity"`
	LastEquity string `json:"last_equity"`
	Cash       string `json:"cash"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

// positionResponse mirrors one element of GET /v2/positions.
type positionResponse struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	CurrentPrice   string `json:"current_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
}

// assetResponse mirrors GET /v2/assets/{symbol}.
type assetResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Status   string `json:"status"`
	Tradable bool   `json:"tradable"`
}

// orderRequest is the POST /v2/orders payload for a bracket buy.
type orderRequest struct {
	Symbol        string      `json:"symbol"`
	Qty           string      `json:"qty"`
	Side          string      `json:"side"`
	Type          string      `json:"type"`
	LimitPrice    string      `json:"limit_price,omitempty"`
	TimeInForce   string      `json:"time_in_force"`
	OrderClass    string      `json:"order_class"`
	ClientOrderID string      `json:"client_order_id,omitempty"`
	TakeProfit    *takeProfit `json:"take_profit,omitempty"`
	StopLoss      *stopLoss   `json:"stop_loss,omitempty"`
}

type takeProfit struct {
	LimitPrice string `json:"limit_price"`
}

type stopLoss struct {
	StopPrice string `json:"stop_price"`
}

// orderResponse mirrors the order object Alpaca returns on submission.
type orderResponse struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// apiError mirrors Alpaca's error body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
