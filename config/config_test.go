package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any env vars that might affect the test
	envVars := []string{
		"STAGE", "DISCORD_BOT_TOKEN", "DISCORD_PROD_CHANNEL_ID", "DISCORD_BETA_CHANNEL_ID",
		"TELEGRAM_BOT_KEY", "TELEGRAM_PROD_CHAT_ID", "TELEGRAM_BETA_CHAT_ID",
		"HYPERLIQUID_API_URL", "HYPERLIQUID_WS_URL", "REQUEST_TIMEOUT",
		"MAX_RETRIES", "BASE_DELAY", "MAX_DELAY", "RATE_LIMIT_DELAY",
		"MIN_POSITION_VALUE", "LOOKBACK_WINDOW", "SCAN_INTERVAL", "MAX_WORKERS",
		"BATCH_SIZE", "BATCH_PAUSE", "EXCLUDED_ORDER_TYPE", "RETENTION_WINDOW",
		"WALLETS_FILE", "HISTORY_FILE",
		"FILL_MONITOR_ENABLED", "FILL_MIN_ALERT_NOTIONAL", "FILL_MAX_SEEN",
		"HEALTH_SERVER_ENABLED", "HEALTH_SERVER_PORT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.IsProd {
		t.Error("expected IsProd to be false by default")
	}
	if cfg.Hyperliquid.APIURL != "https://api.hyperliquid.xyz" {
		t.Errorf("unexpected API URL: %s", cfg.Hyperliquid.APIURL)
	}
	if cfg.Hyperliquid.MaxRetries != 5 {
		t.Errorf("unexpected max retries: %d", cfg.Hyperliquid.MaxRetries)
	}
	if cfg.Hyperliquid.BaseDelay != 2*time.Second {
		t.Errorf("unexpected base delay: %v", cfg.Hyperliquid.BaseDelay)
	}
	if cfg.Hyperliquid.RateLimitDelay != 500*time.Millisecond {
		t.Errorf("unexpected rate limit delay: %v", cfg.Hyperliquid.RateLimitDelay)
	}
	if cfg.Tracker.MinPositionValue != 100000.0 {
		t.Errorf("unexpected min position value: %f", cfg.Tracker.MinPositionValue)
	}
	if cfg.Tracker.LookbackWindow != 2*time.Hour {
		t.Errorf("unexpected lookback window: %v", cfg.Tracker.LookbackWindow)
	}
	if cfg.Tracker.ScanInterval != 15*time.Minute {
		t.Errorf("unexpected scan interval: %v", cfg.Tracker.ScanInterval)
	}
	if cfg.Tracker.MaxWorkers != 5 {
		t.Errorf("unexpected max workers: %d", cfg.Tracker.MaxWorkers)
	}
	if cfg.Tracker.ExcludedOrderType != "TWAP" {
		t.Errorf("unexpected excluded order type: %s", cfg.Tracker.ExcludedOrderType)
	}
	if cfg.Tracker.RetentionWindow != 72*time.Hour {
		t.Errorf("unexpected retention window: %v", cfg.Tracker.RetentionWindow)
	}
	if cfg.FillMonitor.Enabled {
		t.Error("expected fill monitor disabled by default")
	}
	if !cfg.HealthServer.Enabled {
		t.Error("expected health server enabled by default")
	}
	if cfg.HealthServer.Port != 8080 {
		t.Errorf("unexpected health server port: %d", cfg.HealthServer.Port)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STAGE", "PROD")
	t.Setenv("HYPERLIQUID_API_URL", "http://localhost:9999")
	t.Setenv("MIN_POSITION_VALUE", "50000")
	t.Setenv("SCAN_INTERVAL", "5m")
	t.Setenv("MAX_WORKERS", "10")
	t.Setenv("EXCLUDED_ORDER_TYPE", "Twap")
	t.Setenv("FILL_MONITOR_ENABLED", "true")

	cfg := Load()

	if !cfg.IsProd {
		t.Error("expected IsProd true when STAGE=PROD")
	}
	if cfg.Hyperliquid.APIURL != "http://localhost:9999" {
		t.Errorf("unexpected API URL: %s", cfg.Hyperliquid.APIURL)
	}
	if cfg.Tracker.MinPositionValue != 50000 {
		t.Errorf("unexpected min position value: %f", cfg.Tracker.MinPositionValue)
	}
	if cfg.Tracker.ScanInterval != 5*time.Minute {
		t.Errorf("unexpected scan interval: %v", cfg.Tracker.ScanInterval)
	}
	if cfg.Tracker.MaxWorkers != 10 {
		t.Errorf("unexpected max workers: %d", cfg.Tracker.MaxWorkers)
	}
	if cfg.Tracker.ExcludedOrderType != "Twap" {
		t.Errorf("unexpected excluded order type: %s", cfg.Tracker.ExcludedOrderType)
	}
	if !cfg.FillMonitor.Enabled {
		t.Error("expected fill monitor enabled")
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("SCAN_INTERVAL", "garbage")

	cfg := Load()

	if cfg.Hyperliquid.MaxRetries != 5 {
		t.Errorf("expected fallback max retries 5, got %d", cfg.Hyperliquid.MaxRetries)
	}
	if cfg.Tracker.ScanInterval != 15*time.Minute {
		t.Errorf("expected fallback scan interval, got %v", cfg.Tracker.ScanInterval)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	bad := Defaults()
	bad.Tracker.ScanInterval = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero scan interval")
	}

	bad = Defaults()
	bad.Hyperliquid.MaxRetries = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero max retries")
	}

	bad = Defaults()
	bad.Tracker.WalletsFile = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty wallets file")
	}

	bad = Defaults()
	bad.Tracker.MinPositionValue = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative min position value")
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "  hello  ")
	if got := envString("TEST_ENV_STRING", "default"); got != "hello" {
		t.Errorf("expected trimmed value, got %q", got)
	}
	os.Unsetenv("TEST_ENV_STRING")
	if got := envString("TEST_ENV_STRING", "default"); got != "default" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_ENV_DURATION", "90s")
	if got := envDuration("TEST_ENV_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("expected 90s, got %v", got)
	}
	t.Setenv("TEST_ENV_DURATION", "bogus")
	if got := envDuration("TEST_ENV_DURATION", time.Minute); got != time.Minute {
		t.Errorf("expected default, got %v", got)
	}
}

func TestEnvBoolDefault(t *testing.T) {
	os.Unsetenv("TEST_ENV_BOOL")
	if !envBoolDefault("TEST_ENV_BOOL", true) {
		t.Error("expected default true")
	}
	t.Setenv("TEST_ENV_BOOL", "yes")
	if !envBoolDefault("TEST_ENV_BOOL", false) {
		t.Error("expected yes to parse as true")
	}
	t.Setenv("TEST_ENV_BOOL", "nope")
	if envBoolDefault("TEST_ENV_BOOL", true) {
		t.Error("expected non-true value to parse as false")
	}
}
