package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "momentum_config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"api_key":"k","api_secret":"s"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Exchange)
	assert.Equal(t, "BTC/USDT", cfg.Symbol)
	assert.Equal(t, 20, cfg.Lookback)
	assert.InDelta(t, 0.02, cfg.Threshold, 1e-9)
	assert.InDelta(t, 5.0, cfg.StopLossPct, 1e-9)
	assert.Equal(t, 6, cfg.HeartbeatEvery)
	assert.Equal(t, "trades_history.json", cfg.HistoryFile)

	interval, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, interval)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"symbol": "BTC/USDT"`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative lookback",
			mutate:  func(c *Config) { c.Lookback = -1 },
			wantErr: "lookback",
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.Threshold = -0.01 },
			wantErr: "threshold",
		},
		{
			name:    "bad interval",
			mutate:  func(c *Config) { c.CheckInterval = "soon" },
			wantErr: "check_interval",
		},
		{
			name:    "unsupported exchange",
			mutate:  func(c *Config) { c.Exchange = "mtgox" },
			wantErr: "unsupported exchange",
		},
		{
			name:    "unsplittable symbol",
			mutate:  func(c *Config) { c.Symbol = "DOGE" },
			wantErr: "base and quote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBaseQuote(t *testing.T) {
	tests := []struct {
		symbol string
		base   string
		quote  string
	}{
		{"BTC/USDT", "BTC", "USDT"},
		{"BTCUSDT", "BTC", "USDT"},
		{"btc/jpy", "BTC", "JPY"},
		{"ETHBTC", "ETH", "BTC"},
	}

	for _, tt := range tests {
		cfg := &Config{Symbol: tt.symbol}
		base, quote, err := cfg.BaseQuote()
		require.NoError(t, err, tt.symbol)
		assert.Equal(t, tt.base, base)
		assert.Equal(t, tt.quote, quote)
	}
}

func TestPairSymbol(t *testing.T) {
	cfg := &Config{Symbol: "btc/usdt"}
	assert.Equal(t, "BTCUSDT", cfg.PairSymbol())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example/env")

	path := writeConfig(t, `{"api_key":"file-key","slack_webhook_url":"https://hooks.example/file"}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "https://hooks.example/env", cfg.SlackWebhookURL)
}

func TestWebhookEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.WebhookEnabled())

	cfg.SlackWebhookURL = WebhookPlaceholder
	assert.False(t, cfg.WebhookEnabled())

	cfg.SlackWebhookURL = "https://hooks.example/x"
	assert.True(t, cfg.WebhookEnabled())
}
