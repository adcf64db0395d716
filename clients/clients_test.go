package clients

import (
	"testing"

	"go.uber.org/zap"

	"hyperwhales/config"
)

func TestNewClients(t *testing.T) {
	cfg := config.Defaults()
	cfg.FillMonitor.Enabled = true

	logger := zap.NewNop()
	clients := NewClients(logger, cfg)

	if clients.Logger != logger {
		t.Error("unexpected logger")
	}
	if clients.Discord == nil {
		t.Error("expected Discord client to be set")
	}
	if clients.Telegram == nil {
		t.Error("expected Telegram client to be set")
	}
	if clients.Notifier == nil {
		t.Error("expected combined notifier to be set")
	}
	if clients.Hyperliquid == nil {
		t.Error("expected Hyperliquid client to be set")
	}
	if clients.HyperliquidEvents == nil {
		t.Error("expected Hyperliquid events client when fill monitor enabled")
	}
}

func TestNewClients_FillMonitorDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.FillMonitor.Enabled = false

	clients := NewClients(zap.NewNop(), cfg)

	if clients.HyperliquidEvents != nil {
		t.Error("expected no events client when fill monitor disabled")
	}
}
