package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Scanner ScannerConfig `yaml:"scanner"`
	Fetcher FetcherConfig `yaml:"fetcher"`
	Trading TradingConfig `yaml:"trading"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
}

// APIConfig holds upstream credentials and trading mode
type APIConfig struct {
	AlpacaKeyID     string `yaml:"alpaca_key_id"`
	AlpacaSecretKey string `yaml:"alpaca_secret_key"`
	StockDataKey    string `yaml:"stockdata_key"`
	LiveMode        bool   `yaml:"live_mode"`
}

// ScannerConfig holds the filter band and pacing
type ScannerConfig struct {
	MaxPrice     float64       `yaml:"max_price"`
	MaxMarketCap float64       `yaml:"max_market_cap"`
	MinVolume    float64       `yaml:"min_volume"`
	Delay        time.Duration `yaml:"delay"` // between symbols
}

// FetcherConfig holds cache and cooldown settings
type FetcherConfig struct {
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CooldownBase time.Duration `yaml:"cooldown_base"`
	CooldownMaxX int           `yaml:"cooldown_max_multiplier"`
	Timeout      time.Duration `yaml:"timeout"` // per upstream request
}

// TradingConfig holds the risk limits enforced by the engine
type TradingConfig struct {
	DailyBudget      float64 `yaml:"daily_budget"`
	PerTradeBudget   float64 `yaml:"per_trade_budget"`
	MaxTrades        int     `yaml:"max_trades"`
	MaxPositions     int     `yaml:"max_positions"`
	TakeProfitPct    float64 `yaml:"take_profit_percent"`
	StopLossPct      float64 `yaml:"stop_loss_percent"`
	DrawdownLimitPct float64 `yaml:"drawdown_limit_percent"`
	JournalFile      string  `yaml:"journal_file"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// WebConfig holds the HTTP server settings
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			AlpacaKeyID:     os.Getenv("APCA_API_KEY_ID"),
			AlpacaSecretKey: os.Getenv("APCA_API_SECRET_KEY"),
			StockDataKey:    os.Getenv("STOCKDATA_API_KEY"),
			LiveMode:        boolEnv("LIVE_MODE"),
		},
		Scanner: ScannerConfig{
			MaxPrice:     10,
			MaxMarketCap: 500_000_000,
			MinVolume:    300_000,
			Delay:        500 * time.Millisecond,
		},
		Fetcher: FetcherConfig{
			CacheTTL:     5 * time.Minute,
			CooldownBase: 5 * time.Minute,
			CooldownMaxX: 8,
			Timeout:      10 * time.Second,
		},
		Trading: TradingConfig{
			DailyBudget:      1000,
			PerTradeBudget:   100,
			MaxTrades:        5,
			MaxPositions:     5,
			TakeProfitPct:    0.05,
			StopLossPct:      0.03,
			DrawdownLimitPct: 0.5,
			JournalFile:      "data/pnl.ndjson",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Web: WebConfig{
			Addr: ":8080",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if key := os.Getenv("APCA_API_KEY_ID"); key != "" {
		cfg.API.AlpacaKeyID = key
	}
	if key := os.Getenv("APCA_API_SECRET_KEY"); key != "" {
		cfg.API.AlpacaSecretKey = key
	}
	if key := os.Getenv("STOCKDATA_API_KEY"); key != "" {
		cfg.API.StockDataKey = key
	}
	if v := os.Getenv("LIVE_MODE"); v != "" {
		cfg.API.LiveMode = parseBool(v)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scanner.MaxPrice <= 0 {
		return fmt.Errorf("max_price must be positive")
	}
	if c.Trading.PerTradeBudget <= 0 || c.Trading.DailyBudget <= 0 {
		return fmt.Errorf("trading budgets must be positive")
	}
	if c.Trading.PerTradeBudget > c.Trading.DailyBudget {
		return fmt.Errorf("per_trade_budget cannot exceed daily_budget")
	}
	if c.Trading.MaxTrades < 1 || c.Trading.MaxPositions < 1 {
		return fmt.Errorf("max_trades and max_positions must be at least 1")
	}
	if c.Trading.TakeProfitPct <= 0 || c.Trading.StopLossPct <= 0 {
		return fmt.Errorf("take_profit_percent and stop_loss_percent must be positive")
	}
	if c.API.LiveMode && (c.API.AlpacaKeyID == "" || c.API.AlpacaSecretKey == "") {
		return fmt.Errorf("live_mode requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
	}
	return nil
}

// HasAlpaca reports whether brokerage credentials are configured.
func (c *Config) HasAlpaca() bool {
	return c.API.AlpacaKeyID != "" && c.API.AlpacaSecretKey != ""
}

func boolEnv(name string) bool {
	return parseBool(os.Getenv(name))
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
