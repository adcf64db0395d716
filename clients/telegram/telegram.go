package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"hyperwhales/clients/notifier"
	"hyperwhales/config"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/%s"

// TelegramClient sends alerts to Telegram.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	isProd   bool
	client   *http.Client
	apiURL   string
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger: logger,
			chatID: chatID,
			isProd: cfg.IsProd,
			apiURL: telegramAPIURL,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		client:   &http.Client{Timeout: 10 * time.Second},
		apiURL:   telegramAPIURL,
	}
}

// SendPositionAlert sends a position alert notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendPositionAlert(alert notifier.PositionAlert) {
	if tc.botToken == "" || tc.chatID == "" {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := tc.buildAlertMessage(alert)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram position alert",
		zap.String("wallet", shortAddress(alert.WalletAddress)),
		zap.String("asset", alert.Asset),
	)
}

func (tc *TelegramClient) buildAlertMessage(alert notifier.PositionAlert) string {
	var sb strings.Builder

	title := buildAlertTitle(alert.Reasons)
	sb.WriteString(fmt.Sprintf("*%s*\n\n", escapeMarkdown(title)))

	walletDisplay := shortAddress(alert.WalletAddress)
	if alert.WalletURL != "" {
		sb.WriteString(fmt.Sprintf("*Wallet:* [%s](%s)\n", escapeMarkdown(walletDisplay), alert.WalletURL))
	} else {
		sb.WriteString(fmt.Sprintf("*Wallet:* %s\n", escapeMarkdown(walletDisplay)))
	}

	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SHORT" {
		sideEmoji = "🔴"
	}
	sb.WriteString(fmt.Sprintf("*Side:* %s %s\n", sideEmoji, alert.Side))
	sb.WriteString(fmt.Sprintf("*Position:* %.4f %s @ $%.2f\n", alert.Size, escapeMarkdown(alert.Asset), alert.Price))
	sb.WriteString(fmt.Sprintf("*Notional:* $%.2f\n", alert.Notional))
	if alert.Leverage > 0 {
		sb.WriteString(fmt.Sprintf("*Leverage:* %.0fx\n", alert.Leverage))
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n_hyperwhales • %s_", ts.UTC().Format("1/2/2006, 3:04:05PM (MST)")))

	return sb.String()
}

func buildAlertTitle(reasons []notifier.AlertReason) string {
	hasNewPosition := false
	hasLargeFill := false

	for _, r := range reasons {
		switch r {
		case notifier.AlertReasonNewPosition:
			hasNewPosition = true
		case notifier.AlertReasonLargeFill:
			hasLargeFill = true
		}
	}

	if hasNewPosition && hasLargeFill {
		return "🐋 New Whale Position (live fill)"
	}
	if hasNewPosition {
		return "🐋 New Whale Position"
	}
	if hasLargeFill {
		return "⚡ Large Whale Fill"
	}
	return "🚨 Whale Alert"
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf(tc.apiURL, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
