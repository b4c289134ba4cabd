package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scout/internal/broker"
	"scout/pkg/model"
)

// Config holds the risk limits the engine enforces.
type Config struct {
	DailyBudget      float64
	PerTradeBudget   float64
	MaxTrades        int
	MaxPositions     int
	TakeProfitPct    float64
	StopLossPct      float64
	DrawdownLimitPct float64
}

// DefaultConfig returns conservative paper-trading limits.
func DefaultConfig() Config {
	return Config{
		DailyBudget:      1000,
		PerTradeBudget:   100,
		MaxTrades:        5,
		MaxPositions:     5,
		TakeProfitPct:    0.05,
		StopLossPct:      0.03,
		DrawdownLimitPct: 0.5,
	}
}

// Engine converts buy signals into bracket orders behind daily budget,
// trade-count, position-count and drawdown gates. It is Active until the
// realized drawdown exceeds DailyBudget*DrawdownLimitPct, after which it
// stays Halted until the next day rollover. A nil broker puts the engine
// in simulated mode: attempts are acknowledged but never submitted.
type Engine struct {
	cfg     Config
	broker  broker.Broker
	journal *Journal
	log     zerolog.Logger

	mu    sync.Mutex
	stats model.TradeStats

	today func() string // override in tests
}

// New creates an engine. broker and journal may be nil.
func New(cfg Config, b broker.Broker, journal *Journal, log zerolog.Logger) *Engine {
	e := &Engine{
		cfg:     cfg,
		broker:  b,
		journal: journal,
		log:     log,
		today:   func() string { return time.Now().Format("2006-01-02") },
	}
	e.stats = model.TradeStats{Date: e.today()}
	return e
}

// Stats returns a snapshot of today's state, rolling the day first.
func (e *Engine) Stats() model.TradeStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()
	return e.stats
}

// rollover resets the daily counters when the stored date is no longer
// today. Callers must hold e.mu.
func (e *Engine) rollover() {
	today := e.today()
	if e.stats.Date != today {
		e.log.Info().Str("date", today).Msg("resetting daily trade statistics")
		e.stats = model.TradeStats{Date: today}
	}
}

// AttemptTrade tries to place a bracket buy for qty computed from the
// per-trade budget. Rejections are outcomes, not errors; sizing is checked
// before the brokerage is contacted at all.
func (e *Engine) AttemptTrade(ctx context.Context, symbol string, price float64) *model.Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollover()

	if price <= 0 {
		return e.reject(symbol, "invalid price")
	}

	qty := int(math.Floor(e.cfg.PerTradeBudget / price))
	if qty < 1 {
		qty = 1
	}
	notional := float64(qty) * price
	if notional > e.cfg.PerTradeBudget {
		return e.reject(symbol, "trade value exceeds per-trade budget")
	}

	if e.stats.Halted {
		return e.reject(symbol, "daily drawdown limit reached")
	}
	if e.stats.Trades >= e.cfg.MaxTrades {
		return e.reject(symbol, "daily trade count exceeded")
	}
	if e.stats.UsedCapital+notional > e.cfg.DailyBudget {
		return e.reject(symbol, "daily budget exhausted")
	}

	if e.broker == nil {
		return &model.Outcome{
			Status: "simulated",
			Reason: "no brokerage credentials",
			Symbol: symbol,
			Qty:    qty,
			Price:  price,
			Stats:  e.stats,
		}
	}

	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("could not fetch positions")
	} else if len(positions) >= e.cfg.MaxPositions {
		return e.reject(symbol, "max concurrent positions reached")
	}

	tp := round2(price * (1 + e.cfg.TakeProfitPct))
	sl := round2(price * (1 - e.cfg.StopLossPct))

	result, err := e.broker.SubmitBracketOrder(ctx, broker.BracketOrder{
		Symbol:        symbol,
		Quantity:      qty,
		LimitPrice:    price,
		TakeProfit:    tp,
		StopLoss:      sl,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		// Submission failure mutates nothing.
		e.log.Error().Err(err).Str("symbol", symbol).Msg("order submission failed")
		return &model.Outcome{
			Status: "failed",
			Reason: fmt.Sprintf("order submission: %v", err),
			Symbol: symbol,
			Qty:    qty,
			Price:  price,
			Stats:  e.stats,
		}
	}

	e.stats.UsedCapital += notional
	e.stats.Trades++
	e.updatePnL(ctx)

	outcome := &model.Outcome{
		Status:     "placed",
		Symbol:     symbol,
		Qty:        qty,
		Price:      price,
		TakeProfit: tp,
		StopLoss:   sl,
		OrderID:    result.OrderID,
		Stats:      e.stats,
	}

	if e.journal != nil {
		rec := Record{
			ID:         uuid.NewString(),
			Timestamp:  time.Now().UTC(),
			Symbol:     symbol,
			Qty:        qty,
			Price:      price,
			TakeProfit: tp,
			StopLoss:   sl,
			OrderID:    result.OrderID,
			Stats:      e.stats,
		}
		if err := e.journal.Append(rec); err != nil {
			e.log.Warn().Err(err).Msg("journal write failed")
		}
	}

	e.log.Info().Str("symbol", symbol).Int("qty", qty).Float64("price", price).
		Msg("submitted trade")
	return outcome
}

// updatePnL refreshes realized PnL from account equity and trips the halt
// when the drawdown limit is breached. Callers must hold e.mu.
func (e *Engine) updatePnL(ctx context.Context) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("could not fetch account equity")
		return
	}

	e.stats.PnL = account.Equity - account.LastEquity
	if e.stats.PnL < -e.cfg.DailyBudget*e.cfg.DrawdownLimitPct {
		e.stats.Halted = true
		e.log.Warn().Float64("pnl", e.stats.PnL).
			Msg("trading halted, drawdown exceeded limit")
	}
}

// Status returns the stats plus live account equity when a brokerage is
// attached.
func (e *Engine) Status(ctx context.Context) (model.TradeStats, float64) {
	stats := e.Stats()

	var equity float64
	if e.broker != nil {
		if account, err := e.broker.GetAccount(ctx); err == nil {
			equity = account.Equity
		} else {
			e.log.Warn().Err(err).Msg("could not fetch account equity")
		}
	}
	return stats, equity
}

func (e *Engine) reject(symbol, reason string) *model.Outcome {
	return &model.Outcome{
		Status: "rejected",
		Reason: reason,
		Symbol: symbol,
		Stats:  e.stats,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
