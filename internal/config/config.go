package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// DefaultPath is where the bot and the provisioner look for the configuration.
const DefaultPath = "momentum_config.json"

// WebhookPlaceholder is the value shipped in config templates before a real
// webhook is injected; the notifier treats it the same as an empty URL.
const WebhookPlaceholder = "YOUR_SLACK_WEBHOOK_URL"

// Config holds all bot configuration, read from momentum_config.json.
// Unknown keys in the file are ignored here and preserved by the patcher.
type Config struct {
	Exchange        string  `json:"exchange"`
	APIKey          string  `json:"api_key"`
	APISecret       string  `json:"api_secret"`
	Symbol          string  `json:"symbol"`
	Lookback        int     `json:"lookback"`
	Threshold       float64 `json:"threshold"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	SlackWebhookURL string  `json:"slack_webhook_url"`

	CheckInterval            string  `json:"check_interval"`
	VolatilityAlertThreshold float64 `json:"volatility_alert_threshold"`
	VolatilityStopThreshold  float64 `json:"volatility_stop_threshold"`
	DailyLossLimit           float64 `json:"daily_loss_limit"`
	HeartbeatEvery           int     `json:"heartbeat_every"`

	DatabaseURL string `json:"database_url"`
	StateFile   string `json:"state_file"`
	HistoryFile string `json:"history_file"`
	LogFile     string `json:"log_file"`
	LogLevel    string `json:"log_level"`
}

// Load reads the configuration file, applies defaults and environment
// overrides. A .env file next to the binary is honored when present.
func Load(path string) (*Config, error) {
	// Not an error when missing: production deployments rely on real
	// environment variables.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "binance"
	}
	if c.Symbol == "" {
		c.Symbol = "BTC/USDT"
	}
	if c.Lookback == 0 {
		c.Lookback = 20
	}
	if c.Threshold == 0 {
		c.Threshold = 0.02
	}
	if c.StopLossPct == 0 {
		c.StopLossPct = 5.0
	}
	if c.CheckInterval == "" {
		c.CheckInterval = "1h"
	}
	if c.VolatilityAlertThreshold == 0 {
		c.VolatilityAlertThreshold = 0.05
	}
	if c.VolatilityStopThreshold == 0 {
		c.VolatilityStopThreshold = 0.10
	}
	if c.DailyLossLimit == 0 {
		c.DailyLossLimit = 0.05
	}
	if c.HeartbeatEvery == 0 {
		c.HeartbeatEvery = 6
	}
	if c.StateFile == "" {
		c.StateFile = "bot_state.json"
	}
	if c.HistoryFile == "" {
		c.HistoryFile = "trades_history.json"
	}
	if c.LogFile == "" {
		c.LogFile = "momentum_bot.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	c.APIKey = getEnvWithDefault("BINANCE_API_KEY", c.APIKey)
	c.APISecret = getEnvWithDefault("BINANCE_API_SECRET", c.APISecret)
	c.SlackWebhookURL = getEnvWithDefault("SLACK_WEBHOOK_URL", c.SlackWebhookURL)
	c.DatabaseURL = getEnvWithDefault("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)
}

// Validate checks the parameters the trading loop depends on.
func (c *Config) Validate() error {
	if c.Exchange != "binance" {
		return fmt.Errorf("unsupported exchange %q", c.Exchange)
	}
	if c.Lookback < 1 {
		return errors.New("lookback must be at least 1")
	}
	if c.Threshold <= 0 {
		return errors.New("threshold must be positive")
	}
	if c.StopLossPct <= 0 {
		return errors.New("stop_loss_pct must be positive")
	}
	if _, _, err := c.BaseQuote(); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return fmt.Errorf("invalid check_interval %q: %w", c.CheckInterval, err)
	}
	return nil
}

// Interval parses check_interval; "1h", "90m" and "1d12h" style values are accepted.
func (c *Config) Interval() (time.Duration, error) {
	return str2duration.ParseDuration(c.CheckInterval)
}

// WebhookEnabled reports whether a usable Slack webhook is configured.
func (c *Config) WebhookEnabled() bool {
	return c.SlackWebhookURL != "" && c.SlackWebhookURL != WebhookPlaceholder
}

// knownQuotes lists quote assets recognized when the symbol has no slash.
var knownQuotes = []string{"USDT", "BUSD", "USDC", "JPY", "USD", "EUR", "BTC", "ETH", "BNB"}

// BaseQuote splits the configured symbol into base and quote assets.
// Both "BTC/USDT" and "BTCUSDT" forms are accepted.
func (c *Config) BaseQuote() (string, string, error) {
	s := strings.ToUpper(strings.TrimSpace(c.Symbol))
	if base, quote, ok := strings.Cut(s, "/"); ok && base != "" && quote != "" {
		return base, quote, nil
	}
	for _, quote := range knownQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote), quote, nil
		}
	}
	return "", "", fmt.Errorf("cannot split symbol %q into base and quote", c.Symbol)
}

// PairSymbol returns the exchange form of the symbol, e.g. "BTCUSDT".
func (c *Config) PairSymbol() string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c.Symbol), "/", ""))
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
