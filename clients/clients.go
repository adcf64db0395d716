package clients

import (
	"go.uber.org/zap"

	"hyperwhales/clients/discord"
	"hyperwhales/clients/hyperliquid"
	"hyperwhales/clients/hyperliquidevents"
	"hyperwhales/clients/notifier"
	"hyperwhales/clients/telegram"
	"hyperwhales/config"
)

type Clients struct {
	Logger *zap.Logger

	Discord           *discord.DiscordClient
	Telegram          *telegram.TelegramClient
	Notifier          notifier.Notifier // Combined notifier for all channels
	Hyperliquid       *hyperliquid.HyperliquidClient
	HyperliquidEvents *hyperliquidevents.HyperliquidEventsClient
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	// Create combined notifier for all channels
	multiNotifier := notifier.NewMultiNotifier(discordClient, telegramClient)

	c := &Clients{
		Logger:      logger,
		Discord:     discordClient,
		Telegram:    telegramClient,
		Notifier:    multiNotifier,
		Hyperliquid: hyperliquid.NewHyperliquidClient(logger, cfg),
	}

	// Only create the websocket client when live fill monitoring is on
	if cfg.FillMonitor.Enabled {
		c.HyperliquidEvents = hyperliquidevents.NewHyperliquidEventsClient(logger, cfg.Hyperliquid.WSURL)
	}

	return c
}
