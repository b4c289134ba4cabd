package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"scout/internal/broker"
)

// fakeBroker scripts account/position/order responses and counts calls.
type fakeBroker struct {
	equity     float64
	lastEquity float64
	positions  []broker.Position
	submitErr  error

	accountCalls  int
	positionCalls int
	submitCalls   int
	lastOrder     broker.BracketOrder
}

func (b *fakeBroker) Name() string  { return "fake" }
func (b *fakeBroker) IsReady() bool { return true }

func (b *fakeBroker) GetAccount(ctx context.Context) (*broker.Account, error) {
	b.accountCalls++
	return &broker.Account{Equity: b.equity, LastEquity: b.lastEquity}, nil
}

func (b *fakeBroker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	b.positionCalls++
	return b.positions, nil
}

func (b *fakeBroker) GetAsset(ctx context.Context, symbol string) (*broker.Asset, error) {
	return &broker.Asset{Symbol: symbol, Tradable: true}, nil
}

func (b *fakeBroker) SubmitBracketOrder(ctx context.Context, order broker.BracketOrder) (*broker.OrderResult, error) {
	b.submitCalls++
	b.lastOrder = order
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &broker.OrderResult{OrderID: "ord-1", Symbol: order.Symbol, Quantity: order.Quantity, Status: "accepted"}, nil
}

func steadyBroker() *fakeBroker {
	return &fakeBroker{equity: 10_000, lastEquity: 10_000}
}

func newTestEngine(cfg Config, b broker.Broker) *Engine {
	return New(cfg, b, nil, zerolog.Nop())
}

func TestAttemptTradePlacesBracketOrder(t *testing.T) {
	fb := steadyBroker()
	e := newTestEngine(DefaultConfig(), fb)

	out := e.AttemptTrade(context.Background(), "ABCD", 4.00)
	if !out.Placed() {
		t.Fatalf("expected placed, got %s (%s)", out.Status, out.Reason)
	}
	if out.Qty != 25 { // floor(100 / 4.00)
		t.Errorf("qty = %d, want 25", out.Qty)
	}
	if fb.lastOrder.TakeProfit != 4.20 { // 4.00 * 1.05
		t.Errorf("take profit = %v, want 4.20", fb.lastOrder.TakeProfit)
	}
	if fb.lastOrder.StopLoss != 3.88 { // 4.00 * 0.97
		t.Errorf("stop loss = %v, want 3.88", fb.lastOrder.StopLoss)
	}
	if fb.lastOrder.ClientOrderID == "" {
		t.Error("expected a client order id")
	}

	stats := e.Stats()
	if stats.Trades != 1 {
		t.Errorf("trades = %d, want 1", stats.Trades)
	}
	if stats.UsedCapital != 100 { // 25 * 4.00
		t.Errorf("used capital = %v, want 100", stats.UsedCapital)
	}
}

func TestAttemptTradeUnaffordableSizingSkipsBrokerage(t *testing.T) {
	fb := steadyBroker()
	cfg := DefaultConfig()
	cfg.PerTradeBudget = 500
	e := newTestEngine(cfg, fb)

	out := e.AttemptTrade(context.Background(), "XYZ", 1000)
	if out.Status != "rejected" {
		t.Fatalf("expected rejected, got %s", out.Status)
	}
	if fb.accountCalls+fb.positionCalls+fb.submitCalls != 0 {
		t.Errorf("sizing rejection must not touch the brokerage: account=%d positions=%d submit=%d",
			fb.accountCalls, fb.positionCalls, fb.submitCalls)
	}
}

func TestAttemptTradeDailyTradeCap(t *testing.T) {
	fb := steadyBroker()
	cfg := DefaultConfig()
	cfg.MaxTrades = 2
	e := newTestEngine(cfg, fb)

	for i := 0; i < 2; i++ {
		if out := e.AttemptTrade(context.Background(), "ABCD", 4.50); !out.Placed() {
			t.Fatalf("trade %d: expected placed, got %s (%s)", i, out.Status, out.Reason)
		}
	}

	out := e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if out.Status != "rejected" || out.Reason != "daily trade count exceeded" {
		t.Errorf("expected count rejection, got %s (%s)", out.Status, out.Reason)
	}
	if fb.submitCalls != 2 {
		t.Errorf("submit calls = %d, want 2", fb.submitCalls)
	}
}

func TestAttemptTradeDailyBudgetCap(t *testing.T) {
	fb := steadyBroker()
	cfg := DefaultConfig()
	cfg.DailyBudget = 150 // fits one ~99 notional trade, not two
	e := newTestEngine(cfg, fb)

	if out := e.AttemptTrade(context.Background(), "ABCD", 4.50); !out.Placed() {
		t.Fatalf("first trade should place, got %s (%s)", out.Status, out.Reason)
	}
	out := e.AttemptTrade(context.Background(), "WXYZ", 4.50)
	if out.Status != "rejected" || out.Reason != "daily budget exhausted" {
		t.Errorf("expected budget rejection, got %s (%s)", out.Status, out.Reason)
	}
}

func TestAttemptTradeMaxPositions(t *testing.T) {
	fb := steadyBroker()
	fb.positions = []broker.Position{{Symbol: "AAA"}, {Symbol: "BBB"}}
	cfg := DefaultConfig()
	cfg.MaxPositions = 2
	e := newTestEngine(cfg, fb)

	out := e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if out.Status != "rejected" || out.Reason != "max concurrent positions reached" {
		t.Errorf("expected positions rejection, got %s (%s)", out.Status, out.Reason)
	}
	if fb.submitCalls != 0 {
		t.Errorf("no order should be submitted, got %d", fb.submitCalls)
	}
}

func TestDrawdownHaltsUntilRollover(t *testing.T) {
	fb := steadyBroker()
	fb.equity = 9_000 // 1000 under last_equity; limit is 1000*0.5 = 500
	e := newTestEngine(DefaultConfig(), fb)

	day := "2026-08-28"
	e.today = func() string { return day }
	e.stats.Date = day

	out := e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if !out.Placed() {
		t.Fatalf("first trade should place, got %s (%s)", out.Status, out.Reason)
	}
	if !out.Stats.Halted {
		t.Fatal("drawdown past the limit must halt the engine")
	}

	out = e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if out.Status != "rejected" || out.Reason != "daily drawdown limit reached" {
		t.Fatalf("halted engine must reject, got %s (%s)", out.Status, out.Reason)
	}

	// Next day: the halt clears and counters reset.
	day = "2026-08-29"
	fb.equity = 10_000
	out = e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if !out.Placed() {
		t.Fatalf("rollover should clear the halt, got %s (%s)", out.Status, out.Reason)
	}
	if out.Stats.Trades != 1 {
		t.Errorf("trades after rollover = %d, want 1", out.Stats.Trades)
	}
}

func TestSubmissionFailureMutatesNothing(t *testing.T) {
	fb := steadyBroker()
	fb.submitErr = fmt.Errorf("insufficient buying power")
	e := newTestEngine(DefaultConfig(), fb)

	out := e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if out.Status != "failed" {
		t.Fatalf("expected failed, got %s", out.Status)
	}

	stats := e.Stats()
	if stats.Trades != 0 || stats.UsedCapital != 0 {
		t.Errorf("failed submission must not mutate stats: %+v", stats)
	}
}

func TestNilBrokerSimulates(t *testing.T) {
	e := newTestEngine(DefaultConfig(), nil)

	out := e.AttemptTrade(context.Background(), "ABCD", 4.50)
	if out.Status != "simulated" {
		t.Fatalf("expected simulated, got %s", out.Status)
	}
	if out.Qty != 22 {
		t.Errorf("simulated outcome still reports sizing, qty = %d", out.Qty)
	}
	if stats := e.Stats(); stats.Trades != 0 {
		t.Errorf("simulated attempts must not count as trades: %+v", stats)
	}
}

func TestJournalAppendsOneLinePerTrade(t *testing.T) {
	dir := t.TempDir()
	journal, err := NewJournal(filepath.Join(dir, "logs", "pnl.ndjson"))
	if err != nil {
		t.Fatal(err)
	}

	fb := steadyBroker()
	e := New(DefaultConfig(), fb, journal, zerolog.Nop())

	e.AttemptTrade(context.Background(), "ABCD", 4.50)
	e.AttemptTrade(context.Background(), "WXYZ", 2.00)

	f, err := os.Open(journal.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad journal line: %v", err)
		}
		records = append(records, rec)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 journal records, got %d", len(records))
	}
	if records[0].Symbol != "ABCD" || records[1].Symbol != "WXYZ" {
		t.Errorf("unexpected record order: %+v", records)
	}
	if records[1].Stats.Trades != 2 {
		t.Errorf("second record should snapshot 2 trades, got %d", records[1].Stats.Trades)
	}
	if records[0].ID == "" || records[0].ID == records[1].ID {
		t.Error("records need distinct ids")
	}
}
