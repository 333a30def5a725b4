package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotSignalBot/internal/domain"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BINANCE_TESTNET_API_KEY", "test-key")
	t.Setenv("BINANCE_TESTNET_API_SECRET", "test-secret")
	t.Setenv("WEBHOOK_SECRET", "hook-secret")
	t.Setenv("PANIC_PIN", "4242")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.Equal(t, 15*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 10*time.Second, cfg.ExchangeCallTimeout)
	assert.Equal(t, "./data/bots.db", cfg.DBPath)
	assert.False(t, cfg.HasLiveCredentials())

	assert.Equal(t, domain.OrderTypeMarket, cfg.Bot1.OrderType)
	assert.Equal(t, 10.0, cfg.Bot1.StopLossPercent)
	assert.Equal(t, domain.DuplicateReject, cfg.Bot1.DuplicateBuyPolicy)

	assert.Equal(t, 20.0, cfg.Bot2.StopLossPercent)
	assert.Equal(t, 5, cfg.Bot2.MaxDcaOrders)
	assert.Equal(t, domain.TradeAmount{Value: 10}, cfg.Bot2.AmountPerTrade)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "no testnet key", unset: "BINANCE_TESTNET_API_KEY"},
		{name: "no testnet secret", unset: "BINANCE_TESTNET_API_SECRET"},
		{name: "no webhook secret", unset: "WEBHOOK_SECRET"},
		{name: "no panic pin", unset: "PANIC_PIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("MONITOR_INTERVAL_SECONDS", "5")
	t.Setenv("EXCHANGE_CALL_TIMEOUT_SECONDS", "3")
	t.Setenv("BOT1_STOP_LOSS_PERCENT", "7.5")
	t.Setenv("BOT1_DUPLICATE_BUY_POLICY", "reconcile")
	t.Setenv("BOT2_AMOUNT_PER_TRADE", "2.5%")
	t.Setenv("BOT2_MAX_DCA_ORDERS", "3")
	t.Setenv("BINANCE_LIVE_API_KEY", "live-key")
	t.Setenv("BINANCE_LIVE_API_SECRET", "live-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 3*time.Second, cfg.ExchangeCallTimeout)
	assert.Equal(t, 7.5, cfg.Bot1.StopLossPercent)
	assert.Equal(t, domain.DuplicateReconcile, cfg.Bot1.DuplicateBuyPolicy)
	assert.Equal(t, domain.TradeAmount{Value: 2.5, Percent: true}, cfg.Bot2.AmountPerTrade)
	assert.Equal(t, 3, cfg.Bot2.MaxDcaOrders)
	assert.True(t, cfg.HasLiveCredentials())
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad bot2 amount", key: "BOT2_AMOUNT_PER_TRADE", value: "lots"},
		{name: "negative interval", key: "MONITOR_INTERVAL_SECONDS", value: "-5"},
		{name: "bad duplicate policy", key: "BOT1_DUPLICATE_BUY_POLICY", value: "ignore"},
		{name: "bad order type", key: "BOT2_ORDER_TYPE", value: "stop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
