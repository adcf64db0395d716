package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool

	// Hyperliquid API
	Hyperliquid HyperliquidConfig

	// Position scanning
	Tracker TrackerConfig

	// Live fill alerts
	FillMonitor FillMonitorConfig

	// Discord
	Discord DiscordConfig

	// Telegram
	Telegram TelegramConfig

	// Health server
	HealthServer HealthServerConfig
}

// HyperliquidConfig holds Hyperliquid API configuration.
type HyperliquidConfig struct {
	APIURL         string
	WSURL          string
	RequestTimeout time.Duration
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration // minimum spacing between outbound requests
}

// TrackerConfig holds position scan configuration.
type TrackerConfig struct {
	MinPositionValue  float64       // USD threshold for a position to count
	LookbackWindow    time.Duration // fill window ending at scan time
	ScanInterval      time.Duration // time between scan cycles
	MaxWorkers        int           // concurrent wallet scans
	BatchSize         int           // completions between batch pauses
	BatchPause        time.Duration // pause after each batch
	ExcludedOrderType string        // order type ignored entirely (e.g. TWAP)
	RetentionWindow   time.Duration // history entries older than this are pruned
	WalletsFile       string
	HistoryFile       string
}

// FillMonitorConfig holds live fill monitoring configuration.
type FillMonitorConfig struct {
	Enabled          bool
	MinAlertNotional float64 // USD threshold for a fill to alert
	MaxSeenFills     int     // bound on the duplicate-suppression set
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string
	ProdChannelID string
	BetaChannelID string
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string
	ProdChatID string
	BetaChatID string
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool
	Port    int
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		Hyperliquid: HyperliquidConfig{
			APIURL:         "https://api.hyperliquid.xyz",
			WSURL:          "wss://api.hyperliquid.xyz/ws",
			RequestTimeout: 30 * time.Second,
			MaxRetries:     5,
			BaseDelay:      2 * time.Second,
			MaxDelay:       30 * time.Second,
			RateLimitDelay: 500 * time.Millisecond,
		},
		Tracker: TrackerConfig{
			MinPositionValue:  100000.0,
			LookbackWindow:    2 * time.Hour,
			ScanInterval:      15 * time.Minute,
			MaxWorkers:        5,
			BatchSize:         5,
			BatchPause:        1 * time.Second,
			ExcludedOrderType: "TWAP",
			RetentionWindow:   72 * time.Hour,
			WalletsFile:       "resources/activeWhales.json",
			HistoryFile:       "resources/score_history.json",
		},
		FillMonitor: FillMonitorConfig{
			Enabled:          false,
			MinAlertNotional: 250000.0,
			MaxSeenFills:     10000,
		},
		Discord:  DiscordConfig{},
		Telegram: TelegramConfig{},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Hyperliquid: HyperliquidConfig{
			APIURL:         envString("HYPERLIQUID_API_URL", "https://api.hyperliquid.xyz"),
			WSURL:          envString("HYPERLIQUID_WS_URL", "wss://api.hyperliquid.xyz/ws"),
			RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries:     envInt("MAX_RETRIES", 5),
			BaseDelay:      envDuration("BASE_DELAY", 2*time.Second),
			MaxDelay:       envDuration("MAX_DELAY", 30*time.Second),
			RateLimitDelay: envDuration("RATE_LIMIT_DELAY", 500*time.Millisecond),
		},

		Tracker: TrackerConfig{
			MinPositionValue:  envFloat("MIN_POSITION_VALUE", 100000.0),
			LookbackWindow:    envDuration("LOOKBACK_WINDOW", 2*time.Hour),
			ScanInterval:      envDuration("SCAN_INTERVAL", 15*time.Minute),
			MaxWorkers:        envInt("MAX_WORKERS", 5),
			BatchSize:         envInt("BATCH_SIZE", 5),
			BatchPause:        envDuration("BATCH_PAUSE", 1*time.Second),
			ExcludedOrderType: envString("EXCLUDED_ORDER_TYPE", "TWAP"),
			RetentionWindow:   envDuration("RETENTION_WINDOW", 72*time.Hour),
			WalletsFile:       envString("WALLETS_FILE", "resources/activeWhales.json"),
			HistoryFile:       envString("HISTORY_FILE", "resources/score_history.json"),
		},

		FillMonitor: FillMonitorConfig{
			Enabled:          envBoolDefault("FILL_MONITOR_ENABLED", false),
			MinAlertNotional: envFloat("FILL_MIN_ALERT_NOTIONAL", 250000.0),
			MaxSeenFills:     envInt("FILL_MAX_SEEN", 10000),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", true),
			Port:    envInt("HEALTH_SERVER_PORT", 8080),
		},
	}
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Hyperliquid.APIURL == "" {
		return fmt.Errorf("hyperliquid API URL is required")
	}
	if c.Hyperliquid.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.Hyperliquid.MaxRetries)
	}
	if c.Tracker.MinPositionValue < 0 {
		return fmt.Errorf("MIN_POSITION_VALUE must not be negative, got %v", c.Tracker.MinPositionValue)
	}
	if c.Tracker.LookbackWindow <= 0 {
		return fmt.Errorf("LOOKBACK_WINDOW must be positive, got %v", c.Tracker.LookbackWindow)
	}
	if c.Tracker.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.Tracker.ScanInterval)
	}
	if c.Tracker.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be at least 1, got %d", c.Tracker.MaxWorkers)
	}
	if c.Tracker.RetentionWindow <= 0 {
		return fmt.Errorf("RETENTION_WINDOW must be positive, got %v", c.Tracker.RetentionWindow)
	}
	if c.Tracker.WalletsFile == "" {
		return fmt.Errorf("WALLETS_FILE is required")
	}
	if c.Tracker.HistoryFile == "" {
		return fmt.Errorf("HISTORY_FILE is required")
	}
	return nil
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
