package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hyperwhales/clients/notifier"
	"hyperwhales/config"
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// SendMessage sends a plain text message.
func (dc *DiscordClient) SendMessage(message string) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping message")
		return
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, message)
	if err != nil {
		dc.logger.Error("failed to send discord message", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord message")
}

// SendPositionAlert sends a rich embedded position alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendPositionAlert(alert notifier.PositionAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := dc.buildPositionEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord position alert",
		zap.String("wallet", shortAddress(alert.WalletAddress)),
		zap.String("asset", alert.Asset),
	)
}

func (dc *DiscordClient) buildPositionEmbed(alert notifier.PositionAlert) *discordgo.MessageEmbed {
	// Choose color based on side
	color := 0x2ECC71 // Green for LONG
	sideEmoji := "🟢"
	if strings.ToUpper(alert.Side) == "SHORT" {
		color = 0xE74C3C // Red for SHORT
		sideEmoji = "🔴"
	}

	title := buildAlertTitle(alert.Reasons)

	walletDisplay := shortAddress(alert.WalletAddress)
	if alert.WalletURL != "" {
		walletDisplay = fmt.Sprintf("[%s](%s)", walletDisplay, alert.WalletURL)
	}

	positionInfo := fmt.Sprintf("%.4f %s @ $%.2f", alert.Size, alert.Asset, alert.Price)

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Wallet",
			Value:  walletDisplay,
			Inline: true,
		},
		{
			Name:   "Side",
			Value:  fmt.Sprintf("%s %s", sideEmoji, alert.Side),
			Inline: true,
		},
		{
			Name:   "Position",
			Value:  positionInfo,
			Inline: true,
		},
		{
			Name:   "Notional",
			Value:  fmt.Sprintf("$%s", formatUSD(alert.Notional)),
			Inline: true,
		},
	}
	if alert.Leverage > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Leverage",
			Value:  fmt.Sprintf("%.0fx", alert.Leverage),
			Inline: true,
		})
	}

	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	footerText := fmt.Sprintf("hyperwhales * %s", ts.UTC().Format("1/2/2006, 3:04:05PM (MST)"))

	return &discordgo.MessageEmbed{
		Title:       title,
		URL:         alert.WalletURL, // Makes title clickable
		Description: fmt.Sprintf("**%s %s**", alert.Asset, alert.Side),
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: footerText,
		},
		Timestamp: ts.Format(time.RFC3339),
	}
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

func formatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
