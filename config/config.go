package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"spotSignalBot/internal/adapters/logger"
	"spotSignalBot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Exchange API
	TestnetAPIKey    string
	TestnetSecretKey string
	LiveAPIKey       string
	LiveSecretKey    string
	QuoteAsset       string

	// Transport
	ListenAddr    string
	WebhookSecret string
	PanicPIN      string

	// Monitoring
	MonitorInterval     time.Duration
	ExchangeCallTimeout time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Per-bot defaults, adjustable at runtime through the overview endpoint.
	Bot1 domain.BotConfig
	Bot2 domain.BotConfig
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	// Exchange API. Testnet credentials are mandatory; live is optional and
	// live mode stays unavailable without it.
	cfg.TestnetAPIKey = getEnv("BINANCE_TESTNET_API_KEY", "")
	cfg.TestnetSecretKey = getEnv("BINANCE_TESTNET_API_SECRET", "")
	cfg.LiveAPIKey = getEnv("BINANCE_LIVE_API_KEY", "")
	cfg.LiveSecretKey = getEnv("BINANCE_LIVE_API_SECRET", "")
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")

	if cfg.TestnetAPIKey == "" {
		errs = append(errs, "BINANCE_TESTNET_API_KEY must be set")
	}
	if cfg.TestnetSecretKey == "" {
		errs = append(errs, "BINANCE_TESTNET_API_SECRET must be set")
	}

	// Transport
	cfg.ListenAddr = getEnv("LISTEN_ADDR", ":5000")
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", "")
	if cfg.WebhookSecret == "" {
		errs = append(errs, "WEBHOOK_SECRET must be set")
	}
	cfg.PanicPIN = getEnv("PANIC_PIN", "")
	if cfg.PanicPIN == "" {
		errs = append(errs, "PANIC_PIN must be set")
	}

	// Monitoring
	monitorSeconds := getEnvAsInt("MONITOR_INTERVAL_SECONDS", 15)
	if monitorSeconds <= 0 {
		errs = append(errs, "MONITOR_INTERVAL_SECONDS must be positive")
	}
	cfg.MonitorInterval = time.Duration(monitorSeconds) * time.Second

	timeoutSeconds := getEnvAsInt("EXCHANGE_CALL_TIMEOUT_SECONDS", 10)
	if timeoutSeconds <= 0 {
		errs = append(errs, "EXCHANGE_CALL_TIMEOUT_SECONDS must be positive")
	}
	cfg.ExchangeCallTimeout = time.Duration(timeoutSeconds) * time.Second

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/bots.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Bot1 (single-shot) defaults
	bot1 := domain.DefaultSingleShotConfig()
	bot1.OrderType = domain.OrderType(getEnv("BOT1_ORDER_TYPE", string(bot1.OrderType)))
	bot1.StopLossPercent = getEnvAsFloat("BOT1_STOP_LOSS_PERCENT", bot1.StopLossPercent)
	bot1.TakeProfitTargets = []domain.TPTarget{{
		Percent:     getEnvAsFloat("BOT1_TP_PERCENT", bot1.TakeProfitTargets[0].Percent),
		SellPercent: getEnvAsFloat("BOT1_TP_SELL_PERCENT", bot1.TakeProfitTargets[0].SellPercent),
	}}
	bot1.DuplicateBuyPolicy = domain.DuplicateBuyPolicy(getEnv("BOT1_DUPLICATE_BUY_POLICY", string(bot1.DuplicateBuyPolicy)))
	if err := bot1.Validate(domain.SingleShot); err != nil {
		errs = append(errs, fmt.Sprintf("invalid Bot1 configuration: %v", err))
	}
	cfg.Bot1 = bot1

	// Bot2 (martingale) defaults
	bot2 := domain.DefaultMartingaleConfig()
	bot2.OrderType = domain.OrderType(getEnv("BOT2_ORDER_TYPE", string(bot2.OrderType)))
	bot2.StopLossPercent = getEnvAsFloat("BOT2_STOP_LOSS_PERCENT", bot2.StopLossPercent)
	bot2.TakeProfitTargets = []domain.TPTarget{{
		Percent:     getEnvAsFloat("BOT2_TP_PERCENT", bot2.TakeProfitTargets[0].Percent),
		SellPercent: getEnvAsFloat("BOT2_TP_SELL_PERCENT", bot2.TakeProfitTargets[0].SellPercent),
	}}
	if raw := getEnv("BOT2_AMOUNT_PER_TRADE", ""); raw != "" {
		amount, err := domain.ParseTradeAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid BOT2_AMOUNT_PER_TRADE: %v", err))
		} else {
			bot2.AmountPerTrade = amount
		}
	}
	bot2.MaxDcaOrders = getEnvAsInt("BOT2_MAX_DCA_ORDERS", bot2.MaxDcaOrders)
	bot2.PriceDeviation = getEnvAsFloat("BOT2_PRICE_DEVIATION", bot2.PriceDeviation)
	bot2.OrderSizeMultiplier = getEnvAsFloat("BOT2_ORDER_SIZE_MULTIPLIER", bot2.OrderSizeMultiplier)
	bot2.PriceDeviationMultiplier = getEnvAsFloat("BOT2_PRICE_DEVIATION_MULTIPLIER", bot2.PriceDeviationMultiplier)
	if err := bot2.Validate(domain.Martingale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid Bot2 configuration: %v", err))
	}
	cfg.Bot2 = bot2

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// HasLiveCredentials reports whether a live client can be constructed.
func (c *Config) HasLiveCredentials() bool {
	return c.LiveAPIKey != "" && c.LiveSecretKey != ""
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
