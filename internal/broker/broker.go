package broker

import (
	"context"
	"time"
)

// Account is the brokerage account snapshot used for PnL tracking.
// LastEquity is the closing equity of the previous trading day.
type Account struct {
	Equity     float64
	LastEquity float64
	Cash       float64
	Currency   string
}

// Position is an open holding.
type Position struct {
	Symbol        string
	Quantity      int
	AvgCost       float64
	CurrentPrice  float64
	MarketValue   float64
	UnrealizedPnL float64
}

// Asset describes whether a symbol can be traded at the brokerage.
type Asset struct {
	Symbol   string
	Name     string
	Exchange string
	Tradable bool
}

// BracketOrder is a buy order with attached take-profit and stop-loss legs.
type BracketOrder struct {
	Symbol        string
	Quantity      int
	LimitPrice    float64
	TakeProfit    float64
	StopLoss      float64
	ClientOrderID string
}

// OrderResult is the brokerage's acknowledgement of a submitted order.
type OrderResult struct {
	OrderID     string
	Symbol      string
	Quantity    int
	Status      string
	SubmittedAt time.Time
}

// Broker is the brokerage interface the trade engine runs against.
type Broker interface {
	Name() string

	// IsReady reports whether credentials are present and the API reachable.
	IsReady() bool

	GetAccount(ctx context.Context) (*Account, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetAsset(ctx context.Context, symbol string) (*Asset, error)
	SubmitBracketOrder(ctx context.Context, order BracketOrder) (*OrderResult, error)
}
