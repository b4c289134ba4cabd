package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"scout/internal/broker"
	"scout/internal/broker/alpaca"
	"scout/internal/config"
	"scout/internal/engine"
	"scout/internal/fetcher"
	"scout/internal/insider"
	"scout/internal/provider"
	"scout/internal/scanner"
	"scout/internal/signal"
	"scout/internal/social"
	"scout/internal/symbols"
	"scout/internal/web"
	"scout/pkg/logger"
	"scout/pkg/model"
)

var (
	cfgFile    string
	symbolList string
	format     string
	verbose    bool
	limit      int
	addr       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scout",
		Short: "Low-priced stock scout with risk-gated trading",
		Long: `Scout screens low-priced US stocks across Yahoo, Finviz, and StockData,
scores them with EMA/RSI/volume signals, and can route buy signals
through a budget- and drawdown-gated Alpaca bracket-order engine.

Examples:
  scout scan --symbols CEI,BBIG,COSM
  scout trade ABCD 4.50
  scout insiders --limit 20
  scout serve --addr :8080`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Screen symbols and rank them by signal score",
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols (default: candidate universe)")

	tradeCmd := &cobra.Command{
		Use:   "trade <symbol> <price>",
		Short: "Attempt one risk-gated trade",
		Args:  cobra.ExactArgs(2),
		RunE:  runTrade,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's trade stats and account equity",
		RunE:  runStatus,
	}

	insidersCmd := &cobra.Command{
		Use:   "insiders",
		Short: "Show recent insider trades",
		RunE:  runInsiders,
	}
	insidersCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows")

	quoteCmd := &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Fetch one quote through the provider chain",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuote,
	}

	combinedCmd := &cobra.Command{
		Use:   "combined",
		Short: "Rank symbols where insiders and social sentiment overlap",
		RunE:  runCombined,
	}
	combinedCmd.Flags().IntVar(&limit, "limit", 10, "maximum rows")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	rootCmd.AddCommand(scanCmd, tradeCmd, statusCmd, insidersCmd, quoteCmd, combinedCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	fetcher  *fetcher.Fetcher
	finviz   *provider.FinvizProvider
	scorer   *signal.Scorer
	broker   broker.Broker
	engine   *engine.Engine
	insider  *insider.Scraper
	social   *social.Client
	universe *symbols.Universe
}

func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if verbose {
		logCfg.Level = "debug"
	}
	log := logger.New(logCfg)

	timeout := cfg.Fetcher.Timeout
	finviz := provider.NewFinvizProvider(timeout)

	fetchCfg := fetcher.Config{
		CacheTTL:     cfg.Fetcher.CacheTTL,
		CooldownBase: cfg.Fetcher.CooldownBase,
		CooldownMaxX: cfg.Fetcher.CooldownMaxX,
		Retry:        fetcher.DefaultRetryPolicy(),
	}
	f := fetcher.New(fetchCfg, log,
		fetcher.Tier{Name: "primary", Providers: []provider.Provider{
			provider.NewYahooProvider(timeout),
		}},
		fetcher.Tier{Name: "fallback", Providers: []provider.Provider{
			finviz,
			provider.NewStockDataProvider(cfg.API.StockDataKey, timeout),
		}},
	)

	var b broker.Broker
	if cfg.HasAlpaca() {
		b = alpaca.NewClient(alpaca.Credentials{
			KeyID:     cfg.API.AlpacaKeyID,
			SecretKey: cfg.API.AlpacaSecretKey,
			Live:      cfg.API.LiveMode,
		})
	} else {
		log.Warn().Msg("alpaca credentials missing, trading runs simulated")
	}

	journal, err := engine.NewJournal(cfg.Trading.JournalFile)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	eng := engine.New(engine.Config{
		DailyBudget:      cfg.Trading.DailyBudget,
		PerTradeBudget:   cfg.Trading.PerTradeBudget,
		MaxTrades:        cfg.Trading.MaxTrades,
		MaxPositions:     cfg.Trading.MaxPositions,
		TakeProfitPct:    cfg.Trading.TakeProfitPct,
		StopLossPct:      cfg.Trading.StopLossPct,
		DrawdownLimitPct: cfg.Trading.DrawdownLimitPct,
	}, b, journal, log)

	ins := insider.NewScraper(timeout, log)
	soc := social.NewClient(timeout, cfg.Scanner.MaxPrice, log)

	return &app{
		cfg:      cfg,
		log:      log,
		fetcher:  f,
		finviz:   finviz,
		scorer:   signal.NewScorer(signal.DefaultThresholds()),
		broker:   b,
		engine:   eng,
		insider:  ins,
		social:   soc,
		universe: symbols.NewUniverse(ins, soc, b, log),
	}, nil
}

func (a *app) newScanner() *scanner.Scanner {
	scanCfg := scanner.Config{
		MaxPrice:     a.cfg.Scanner.MaxPrice,
		MaxMarketCap: a.cfg.Scanner.MaxMarketCap,
		MinVolume:    a.cfg.Scanner.MinVolume,
		Delay:        a.cfg.Scanner.Delay,
	}
	return scanner.New(scanCfg, a.fetcher, a.scorer, a.engine, a.finviz.Headlines, a.log)
}

func (a *app) combined(ctx context.Context, limit int) []model.CombinedSignal {
	trades := a.insider.Fetch(ctx)
	trending := a.social.Trending(ctx, a.fetcher.GetQuote)
	return scanner.Combine(ctx, trades, trending, a.fetcher.GetQuote, limit)
}

func notifyContext() (context.Context, context.CancelFunc) {
	return ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	var syms []string
	if symbolList != "" {
		syms = splitSymbols(symbolList)
	} else {
		fmt.Println("Assembling candidate universe from insider and social activity...")
		syms = a.universe.Candidates(ctx)
	}
	if len(syms) == 0 {
		return fmt.Errorf("no symbols to scan")
	}

	fmt.Printf("Scanning %d symbols...\n\n", len(syms))
	s := a.newScanner()

	bar := newProgressBar(len(syms))
	s.SetProgressCallback(func(scanned, total int) {
		bar.Set(scanned)
	})

	results := s.Scan(ctx, syms)
	bar.Finish()
	fmt.Println()

	if format == "json" {
		return outputJSON(results)
	}
	return outputScanTable(results, len(syms))
}

func runTrade(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil || price <= 0 {
		return fmt.Errorf("invalid price %q", args[1])
	}
	symbol := strings.ToUpper(args[0])

	ctx, cancel := notifyContext()
	defer cancel()

	outcome := a.engine.AttemptTrade(ctx, symbol, price)
	if format == "json" {
		return outputJSON(outcome)
	}

	switch outcome.Status {
	case "placed":
		fmt.Printf("Order placed: %s x%d @ $%.2f (TP $%.2f / SL $%.2f)\n",
			outcome.Symbol, outcome.Qty, outcome.Price, outcome.TakeProfit, outcome.StopLoss)
	case "simulated":
		fmt.Printf("Simulated: %s x%d @ $%.2f (%s)\n",
			outcome.Symbol, outcome.Qty, outcome.Price, outcome.Reason)
	default:
		fmt.Printf("%s: %s\n", outcome.Status, outcome.Reason)
	}
	fmt.Printf("Today: %d trades, $%.2f used, PnL $%.2f\n",
		outcome.Stats.Trades, outcome.Stats.UsedCapital, outcome.Stats.PnL)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	stats, equity := a.engine.Status(ctx)
	if format == "json" {
		return outputJSON(map[string]interface{}{"stats": stats, "equity": equity})
	}

	fmt.Printf("Date:          %s\n", stats.Date)
	fmt.Printf("Trades:        %d\n", stats.Trades)
	fmt.Printf("Used capital:  $%.2f\n", stats.UsedCapital)
	fmt.Printf("Realized PnL:  $%.2f\n", stats.PnL)
	fmt.Printf("Halted:        %v\n", stats.Halted)
	if equity > 0 {
		fmt.Printf("Equity:        $%.2f\n", equity)
	}
	return nil
}

func runInsiders(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	trades := a.insider.Fetch(ctx)
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	if format == "json" {
		return outputJSON(trades)
	}

	if len(trades) == 0 {
		fmt.Println("No insider trades available.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Insider", "Relationship", "Date", "Transaction", "Price", "Shares", "Value"}),
	)
	for _, t := range trades {
		table.Append([]string{
			t.Ticker,
			truncate(t.Insider, 22),
			truncate(t.Relationship, 18),
			t.Date,
			t.Transaction,
			fmt.Sprintf("%.2f", t.Price),
			fmt.Sprintf("%d", t.Shares),
			fmt.Sprintf("%.0f", t.Value),
		})
	}
	table.Render()
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	symbol := strings.ToUpper(args[0])
	quote := a.fetcher.GetQuote(ctx, symbol)
	if quote == nil {
		return fmt.Errorf("no quote available for %s", symbol)
	}
	if format == "json" {
		return outputJSON(quote)
	}

	fmt.Printf("%s  $%.2f\n", quote.Symbol, quote.Price)
	fmt.Printf("  Market cap: $%.0f\n", quote.MarketCap)
	fmt.Printf("  Volume:     %.0f\n", quote.Volume)
	if quote.PERatio > 0 {
		fmt.Printf("  P/E:        %.2f\n", quote.PERatio)
	}
	fmt.Printf("  Source:     %s", quote.Source)
	if quote.Stale {
		fmt.Printf(" (stale, fetched %s)", quote.FetchedAt.Format("15:04:05"))
	}
	fmt.Println()
	return nil
}

func runCombined(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	ctx, cancel := notifyContext()
	defer cancel()

	signals := a.combined(ctx, limit)
	if format == "json" {
		return outputJSON(signals)
	}

	if len(signals) == 0 {
		fmt.Println("No overlap between insider activity and social trending.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Price", "Bullish", "Bearish", "Sent Idx", "Mkt Cap", "Insider", "Transaction"}),
	)
	for _, s := range signals {
		table.Append([]string{
			s.Symbol,
			fmt.Sprintf("%.2f", s.Price),
			fmt.Sprintf("%d", s.Bullish),
			fmt.Sprintf("%d", s.Bearish),
			fmt.Sprintf("%.2f", s.SentimentIndex),
			fmt.Sprintf("%.0fM", s.MarketCap/1_000_000),
			truncate(s.Insider.Insider, 22),
			s.Insider.Transaction,
		})
	}
	table.Render()
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	listen := a.cfg.Web.Addr
	if addr != "" {
		listen = addr
	}

	srv := web.NewServer(a.newScanner(), a.engine, a.combined, a.universe.Candidates, a.log)

	ctx, cancel := notifyContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		return srv.Shutdown(context.Background())
	}
}

func outputScanTable(results []model.ScanResult, totalScanned int) error {
	if len(results) == 0 {
		fmt.Printf("No symbols passed the filter band (%d scanned).\n", totalScanned)
		return nil
	}

	fmt.Printf("%d of %d symbols passed the filters:\n\n", len(results), totalScanned)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Price", "Mkt Cap", "Volume", "Trend", "RSI", "Score", "Action", "Trade"}),
	)
	for _, r := range results {
		tradeCol := ""
		if r.Trade != nil {
			tradeCol = r.Trade.Status
			if r.Trade.Reason != "" && !r.Trade.Placed() {
				tradeCol += ": " + truncate(r.Trade.Reason, 30)
			}
		}

		symbol := r.Symbol
		if r.SyntheticHistory {
			symbol += "*"
		}
		if r.StaleQuote {
			symbol += "†"
		}

		table.Append([]string{
			symbol,
			fmt.Sprintf("%.2f", r.Price),
			fmt.Sprintf("%.0fM", r.MarketCap/1_000_000),
			fmt.Sprintf("%.0fK", r.Volume/1_000),
			r.Trend,
			fmt.Sprintf("%.1f", r.RSI),
			fmt.Sprintf("%.2f", r.Score),
			r.Action,
			tradeCol,
		})
	}
	table.Render()

	fmt.Println("\n* synthetic or padded history   † stale quote")
	return nil
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func splitSymbols(raw string) []string {
	var out []string
	for _, sym := range strings.Split(raw, ",") {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
