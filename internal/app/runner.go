package app

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	clts "hyperwhales/clients"
	"hyperwhales/clients/notifier"
	"hyperwhales/config"
)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// Runner wires the polling scanner, the sentiment ledger, and the optional
// live fill monitor together and drives the cycle loop.
type Runner struct {
	clients *clts.Clients
	cfg     *config.Config

	snapshots   *SnapshotStore
	scanner     *Scanner
	aggregator  *SentimentAggregator
	ledger      *HistoryLedger
	fillMonitor *FillMonitor

	healthServer *http.Server
	startTime    time.Time

	// Cycle stats for the stats endpoint
	statsMu           sync.Mutex
	cycleCount        int
	cycleErrors       int
	lastCycleAt       time.Time
	lastCycleDuration time.Duration
	lastWalletCount   int
	lastFailedWallets int
	alertsSent        int
}

// ServiceStats holds comprehensive service statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Scan cycle stats
	Cycles struct {
		Count             int    `json:"count"`
		Errors            int    `json:"errors"`
		IntervalSec       int64  `json:"interval_seconds"`
		LastAt            string `json:"last_at,omitempty"`
		LastDurationMs    int64  `json:"last_duration_ms"`
		LastWalletCount   int    `json:"last_wallet_count"`
		LastFailedWallets int    `json:"last_failed_wallets"`
	} `json:"cycles"`

	// Latest sentiment reading
	Sentiment struct {
		Score           int    `json:"score"`
		NewLongs        int    `json:"new_longs"`
		NewShorts       int    `json:"new_shorts"`
		LongingWallets  int    `json:"longing_wallets"`
		ShortingWallets int    `json:"shorting_wallets"`
		At              string `json:"at,omitempty"`
		HistoryLen      int    `json:"history_len"`
	} `json:"sentiment"`

	// Snapshot store
	Wallets struct {
		Snapshotted int `json:"snapshotted"`
	} `json:"wallets"`

	// WebSocket fill monitor stats
	WebSocket struct {
		Enabled        bool   `json:"enabled"`
		Connected      bool   `json:"connected"`
		MessageCount   uint64 `json:"message_count"`
		LastMessageAt  string `json:"last_message_at,omitempty"`
		LastMessageAgo string `json:"last_message_ago,omitempty"`
		SeenFills      int    `json:"seen_fills"`
	} `json:"websocket"`

	FillMonitor *FillMonitorStats `json:"fill_monitor,omitempty"`

	// Alert stats
	AlertsSent int `json:"alerts_sent"`

	// Notification status
	Notifications struct {
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, cfg *config.Config) *Runner {
	snapshots := NewSnapshotStore(clients.Logger)
	dedup := NewFillDeduplicator(cfg.Tracker.MinPositionValue, cfg.Tracker.ExcludedOrderType)
	classifier := NewPositionClassifier(clients.Logger, cfg.Tracker.MinPositionValue)

	return &Runner{
		clients:   clients,
		cfg:       cfg,
		snapshots: snapshots,
		scanner: NewScanner(
			clients.Logger,
			clients.Hyperliquid,
			dedup,
			classifier,
			snapshots,
			cfg.Tracker.LookbackWindow,
			cfg.Tracker.MaxWorkers,
			cfg.Tracker.BatchSize,
			cfg.Tracker.BatchPause,
		),
		aggregator: NewSentimentAggregator(clients.Logger),
		ledger:     NewHistoryLedger(clients.Logger, cfg.Tracker.HistoryFile, cfg.Tracker.RetentionWindow),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger

	logger.Info("starting whale position tracker",
		zap.Duration("scanInterval", r.cfg.Tracker.ScanInterval),
		zap.Duration("lookbackWindow", r.cfg.Tracker.LookbackWindow),
		zap.Float64("minPositionValue", r.cfg.Tracker.MinPositionValue),
		zap.String("walletsFile", r.cfg.Tracker.WalletsFile),
	)

	// Restore persisted score history
	if err := r.ledger.Load(); err != nil {
		logger.Warn("failed to load score history", zap.Error(err))
	}
	logger.Info("score history loaded", zap.Int("entries", r.ledger.Len()))

	// The wallet universe must be loadable at startup; single cycles may
	// later fail without taking the service down.
	wallets, err := LoadWallets(r.cfg.Tracker.WalletsFile)
	if err != nil {
		return fmt.Errorf("initial wallet load failed: %w", err)
	}
	logger.Info("tracked wallets loaded", zap.Int("count", len(wallets)))

	// Wire up live fill monitoring if enabled
	if r.clients.HyperliquidEvents != nil {
		fmCfg := DefaultFillMonitorConfig()
		fmCfg.MinAlertNotional = r.cfg.FillMonitor.MinAlertNotional
		fmCfg.MaxSeenFills = r.cfg.FillMonitor.MaxSeenFills
		fmCfg.ExcludedOrderType = r.cfg.Tracker.ExcludedOrderType
		r.fillMonitor = NewFillMonitor(logger, r.clients.HyperliquidEvents, r.clients.Notifier, fmCfg)

		if err := r.connectWebSocket(ctx, wallets); err != nil {
			logger.Warn("failed to connect WebSocket, continuing with polling only", zap.Error(err))
		}

		go r.fillMonitor.Run(ctx)
		go r.runWSReconnector(ctx, wallets)
	}

	// Start health check server if enabled
	if r.cfg.HealthServer.Enabled {
		r.startHealthServer(r.cfg.HealthServer.Port)
		logger.Info("health server started", zap.Int("port", r.cfg.HealthServer.Port))
	}

	// First cycle immediately, then on the interval
	r.runCycle(ctx)

	ticker := time.NewTicker(r.cfg.Tracker.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("runner shutting down")

			if r.clients.HyperliquidEvents != nil {
				_ = r.clients.HyperliquidEvents.Close()
			}

			if err := r.ledger.Close(); err != nil {
				logger.Warn("final history save failed", zap.Error(err))
			}

			if r.clients.Notifier != nil {
				_ = r.clients.Notifier.Close()
			}

			if r.healthServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = r.healthServer.Shutdown(shutdownCtx)
				shutdownCancel()
			}

			return nil

		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

// runCycle executes one full scan: reload wallets, scan them all, aggregate
// the score, persist it, and alert on every new position. A failed cycle is
// logged and counted, never fatal.
func (r *Runner) runCycle(ctx context.Context) {
	logger := r.clients.Logger
	started := time.Now()

	// Reload each cycle so wallet list edits are picked up without a restart
	wallets, err := LoadWallets(r.cfg.Tracker.WalletsFile)
	if err != nil {
		logger.Error("scan cycle skipped: wallet load failed", zap.Error(err))
		r.statsMu.Lock()
		r.cycleErrors++
		r.statsMu.Unlock()
		return
	}

	prev, hadPrev := r.ledger.Latest()

	results := r.scanner.Scan(ctx, wallets)
	if ctx.Err() != nil {
		return
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	snap := r.aggregator.Aggregate(results)
	if err := r.ledger.Append(snap); err != nil {
		logger.Warn("failed to persist score history", zap.Error(err))
	}

	alerted := r.sendNewPositionAlerts(results)

	r.statsMu.Lock()
	r.cycleCount++
	if failed == len(wallets) {
		r.cycleErrors++
	}
	r.lastCycleAt = started
	r.lastCycleDuration = time.Since(started)
	r.lastWalletCount = len(wallets)
	r.lastFailedWallets = failed
	r.alertsSent += alerted
	r.statsMu.Unlock()

	fields := []zap.Field{
		zap.Int("score", snap.Score),
		zap.Int("newLongs", snap.NewLongs),
		zap.Int("newShorts", snap.NewShorts),
		zap.Int("longingWallets", snap.LongingWallets),
		zap.Int("shortingWallets", snap.ShortingWallets),
		zap.Int("wallets", len(wallets)),
		zap.Int("failedWallets", failed),
		zap.Int("alerts", alerted),
		zap.Int("historyLen", r.ledger.Len()),
		zap.Duration("took", time.Since(started).Round(time.Millisecond)),
	}
	if hadPrev {
		fields = append(fields, zap.Int("scoreDelta", snap.Score-prev.Score))
	}
	logger.Info("scan cycle complete", fields...)
}

// sendNewPositionAlerts notifies every configured channel about each new
// position found this cycle. Returns the number of alerts sent.
func (r *Runner) sendNewPositionAlerts(results []WalletResult) int {
	if r.clients.Notifier == nil {
		return 0
	}

	sent := 0
	for _, res := range results {
		for _, ev := range res.NewPositions {
			r.clients.Notifier.SendPositionAlert(notifier.PositionAlert{
				WalletAddress: ev.Wallet,
				WalletURL:     walletURL(ev.Wallet),
				Asset:         ev.Asset,
				Side:          ev.Side(),
				Size:          ev.Size,
				Price:         ev.Price,
				Notional:      ev.Value,
				Leverage:      ev.Leverage,
				Reasons:       []notifier.AlertReason{notifier.AlertReasonNewPosition},
				Timestamp:     ev.Time,
			})
			sent++
		}
	}
	return sent
}

// connectWebSocket connects the fill stream and subscribes to all wallets.
func (r *Runner) connectWebSocket(ctx context.Context, wallets []string) error {
	// Pass the parent context, not a timeout context. Connect uses ctx for
	// both dialing AND for a goroutine that closes the connection when ctx
	// is canceled, so a timeout context would kill the connection as soon
	// as this function returns.
	if err := r.clients.HyperliquidEvents.Connect(ctx, wallets); err != nil {
		return fmt.Errorf("connect fill stream: %w", err)
	}

	r.fillMonitor.SetWSConnected(true)
	r.clients.Logger.Info("WebSocket connected",
		zap.Int("subscribedWallets", len(wallets)),
	)

	return nil
}

// runWSReconnector monitors WebSocket health and reconnects if needed.
func (r *Runner) runWSReconnector(ctx context.Context, wallets []string) {
	logger := r.clients.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.clients.HyperliquidEvents.Stats()

			// Check if we haven't received messages in a while (might be disconnected)
			if stats.MessageCount > 0 && time.Since(stats.LastMessageAt) > 2*time.Minute {
				logger.Warn("WebSocket appears stale, attempting reconnect",
					zap.Duration("timeSinceLastMessage", time.Since(stats.LastMessageAt)),
				)
				r.attemptReconnect(ctx, wallets)
			}
		}
	}
}

// attemptReconnect attempts to reconnect the WebSocket.
func (r *Runner) attemptReconnect(ctx context.Context, wallets []string) {
	logger := r.clients.Logger

	// Close existing connection
	_ = r.clients.HyperliquidEvents.Close()
	r.fillMonitor.SetWSConnected(false)

	// Wait a moment before reconnecting
	select {
	case <-time.After(r.fillMonitor.config.ReconnectDelay):
	case <-ctx.Done():
		return
	}

	if err := r.connectWebSocket(ctx, wallets); err != nil {
		logger.Error("failed to reconnect WebSocket", zap.Error(err))
	}
}

// GetStats returns comprehensive service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	// Cycle stats
	r.statsMu.Lock()
	stats.Cycles.Count = r.cycleCount
	stats.Cycles.Errors = r.cycleErrors
	stats.Cycles.IntervalSec = int64(r.cfg.Tracker.ScanInterval.Seconds())
	if !r.lastCycleAt.IsZero() {
		stats.Cycles.LastAt = r.lastCycleAt.UTC().Format(time.RFC3339)
	}
	stats.Cycles.LastDurationMs = r.lastCycleDuration.Milliseconds()
	stats.Cycles.LastWalletCount = r.lastWalletCount
	stats.Cycles.LastFailedWallets = r.lastFailedWallets
	stats.AlertsSent = r.alertsSent
	r.statsMu.Unlock()

	// Sentiment
	if latest, ok := r.ledger.Latest(); ok {
		stats.Sentiment.Score = latest.Score
		stats.Sentiment.NewLongs = latest.NewLongs
		stats.Sentiment.NewShorts = latest.NewShorts
		stats.Sentiment.LongingWallets = latest.LongingWallets
		stats.Sentiment.ShortingWallets = latest.ShortingWallets
		stats.Sentiment.At = latest.Timestamp.UTC().Format(time.RFC3339)
	}
	stats.Sentiment.HistoryLen = r.ledger.Len()

	// Snapshot store
	stats.Wallets.Snapshotted = r.snapshots.WalletCount()

	// WebSocket stats
	stats.WebSocket.Enabled = r.clients.HyperliquidEvents != nil
	if r.clients.HyperliquidEvents != nil {
		wsStats := r.clients.HyperliquidEvents.Stats()
		stats.WebSocket.MessageCount = wsStats.MessageCount
		if !wsStats.LastMessageAt.IsZero() {
			stats.WebSocket.LastMessageAt = wsStats.LastMessageAt.UTC().Format(time.RFC3339)
			stats.WebSocket.LastMessageAgo = time.Since(wsStats.LastMessageAt).Round(time.Second).String()
		}
	}
	if r.fillMonitor != nil {
		stats.WebSocket.Connected = r.fillMonitor.IsWSConnected()
		stats.WebSocket.SeenFills = r.fillMonitor.SeenFillsCount()
		fmStats := r.fillMonitor.Stats()
		stats.FillMonitor = &fmStats
	}

	// Notification status
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil
	if r.clients.Discord != nil {
		if r.cfg.IsProd {
			stats.Notifications.DiscordChannelID = r.cfg.Discord.ProdChannelID
		} else {
			stats.Notifications.DiscordChannelID = r.cfg.Discord.BetaChannelID
		}
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil
	if r.clients.Telegram != nil {
		if r.cfg.IsProd {
			stats.Notifications.TelegramChatID = r.cfg.Telegram.ProdChatID
		} else {
			stats.Notifications.TelegramChatID = r.cfg.Telegram.BetaChatID
		}
	}

	// Runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
