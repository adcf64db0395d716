package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"hyperwhales/clients/notifier"
	"hyperwhales/config"
)

func TestNewTelegramClient_NoToken(t *testing.T) {
	cfg := &config.Config{
		IsProd: false,
		Telegram: config.TelegramConfig{
			ProdChatID: "prod-chat",
			BetaChatID: "beta-chat",
		},
	}

	client := NewTelegramClient(zap.NewNop(), cfg)

	if client.botToken != "" {
		t.Error("expected empty token")
	}
	if client.chatID != "beta-chat" {
		t.Errorf("expected beta chat, got: %s", client.chatID)
	}
}

func TestNewTelegramClient_ProdChat(t *testing.T) {
	cfg := &config.Config{
		IsProd: true,
		Telegram: config.TelegramConfig{
			BotToken:   "token",
			ProdChatID: "prod-chat",
			BetaChatID: "beta-chat",
		},
	}

	client := NewTelegramClient(nil, cfg)

	if client.chatID != "prod-chat" {
		t.Errorf("expected prod chat, got: %s", client.chatID)
	}
}

func TestSendPositionAlert_NotConfigured(t *testing.T) {
	client := NewTelegramClient(zap.NewNop(), &config.Config{})

	// Should not panic with no token
	client.SendPositionAlert(notifier.PositionAlert{Asset: "BTC"})
}

func TestSendPositionAlert_Success(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &TelegramClient{
		logger:   zap.NewNop(),
		botToken: "test-token",
		chatID:   "test-chat",
		client:   server.Client(),
		apiURL:   server.URL + "/bot%s/%s",
	}

	client.SendPositionAlert(notifier.PositionAlert{
		WalletAddress: "0x1234567890abcdef1234567890abcdef12345678",
		Asset:         "BTC",
		Side:          "LONG",
		Size:          2.5,
		Price:         60000,
		Notional:      150000,
		Reasons:       []notifier.AlertReason{notifier.AlertReasonNewPosition},
	})

	if !strings.Contains(gotBody, "test-chat") {
		t.Errorf("chat_id missing from request: %s", gotBody)
	}
	if !strings.Contains(gotBody, "BTC") {
		t.Errorf("asset missing from request: %s", gotBody)
	}
}

func TestSendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := &TelegramClient{
		logger:   zap.NewNop(),
		botToken: "test-token",
		chatID:   "test-chat",
		client:   server.Client(),
		apiURL:   server.URL + "/bot%s/%s",
	}

	if err := client.sendMessage("hello"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestBuildAlertMessage(t *testing.T) {
	client := &TelegramClient{logger: zap.NewNop()}

	msg := client.buildAlertMessage(notifier.PositionAlert{
		WalletAddress: "0x1234567890abcdef1234567890abcdef12345678",
		WalletURL:     "https://example.com/wallet",
		Asset:         "ETH",
		Side:          "SHORT",
		Size:          40,
		Price:         3000,
		Notional:      120000,
		Leverage:      10,
		Reasons:       []notifier.AlertReason{notifier.AlertReasonLargeFill},
	})

	for _, want := range []string{"Large Whale Fill", "ETH", "🔴", "0x1234…345678", "10x", "$120000.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildAlertMessage_NoLeverage(t *testing.T) {
	client := &TelegramClient{logger: zap.NewNop()}
	msg := client.buildAlertMessage(notifier.PositionAlert{Asset: "BTC", Side: "LONG"})
	if strings.Contains(msg, "Leverage") {
		t.Error("leverage line should be omitted when zero")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	in := "a_b*c[d]e`f"
	want := "a\\_b\\*c\\[d\\]e\\`f"
	if got := escapeMarkdown(in); got != want {
		t.Errorf("escapeMarkdown(%q) = %q, want %q", in, got, want)
	}
}
