package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hyperwhales/clients/hyperliquidevents"
	"hyperwhales/clients/notifier"
)

// FillMonitorConfig holds configuration for the live fill monitor.
type FillMonitorConfig struct {
	MinAlertNotional  float64       // Minimum fill size in USD to alert on
	MaxSeenFills      int           // Bound on the dedup cache before it resets
	ExcludedOrderType string        // Order type to ignore (e.g., TWAP)
	ReconnectDelay    time.Duration // Wait before redialing after a dropped connection
}

// DefaultFillMonitorConfig returns sensible defaults.
func DefaultFillMonitorConfig() FillMonitorConfig {
	return FillMonitorConfig{
		MinAlertNotional:  250000,
		MaxSeenFills:      10000,
		ExcludedOrderType: "TWAP",
		ReconnectDelay:    5 * time.Second,
	}
}

// FillMonitor watches the userFills websocket stream and alerts on large
// position openings the moment they fill, without waiting for the next
// polling cycle.
type FillMonitor struct {
	logger       *zap.Logger
	eventsClient *hyperliquidevents.HyperliquidEventsClient
	notifier     notifier.Notifier
	config       FillMonitorConfig

	// Track seen fills to avoid duplicates across snapshot replays
	seenMu    sync.Mutex
	seenFills map[string]struct{}

	// WebSocket connection state
	wsConnectedMu sync.RWMutex
	wsConnected   bool

	// Filter stats for debugging
	statsMu            sync.Mutex
	framesProcessed    int
	snapshotsSkipped   int
	skippedDuplicate   int
	skippedNotOpen     int
	skippedOrderType   int
	skippedLowNotional int
	alertsSent         int
	lastAlertTime      time.Time
}

// NewFillMonitor creates a new fill monitor.
func NewFillMonitor(
	logger *zap.Logger,
	eventsClient *hyperliquidevents.HyperliquidEventsClient,
	notif notifier.Notifier,
	config FillMonitorConfig,
) *FillMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FillMonitor{
		logger:       logger,
		eventsClient: eventsClient,
		notifier:     notif,
		config:       config,
		seenFills:    make(map[string]struct{}),
	}
}

// Run processes events from the WebSocket connection until ctx is done.
func (fm *FillMonitor) Run(ctx context.Context) {
	fm.logger.Info("fill monitor started",
		zap.Float64("minAlertNotional", fm.config.MinAlertNotional),
	)

	msgCh := fm.eventsClient.Messages()
	errCh := fm.eventsClient.Errors()

	for {
		select {
		case <-ctx.Done():
			fm.logger.Info("fill monitor shutting down")
			return

		case msg := <-msgCh:
			// Mark as connected when we receive messages
			fm.wsConnectedMu.Lock()
			wasConnected := fm.wsConnected
			fm.wsConnected = true
			fm.wsConnectedMu.Unlock()
			if !wasConnected {
				fm.logger.Info("WebSocket connection confirmed (receiving messages)")
			}
			fm.processMessage(msg)

		case err := <-errCh:
			fm.logger.Warn("WebSocket error", zap.Error(err))
			fm.wsConnectedMu.Lock()
			fm.wsConnected = false
			fm.wsConnectedMu.Unlock()
			// The runner handles reconnection
		}
	}
}

// processMessage handles a single WebSocket frame.
func (fm *FillMonitor) processMessage(msg []byte) {
	frame := hyperliquidevents.ParseUserFills(msg)
	if frame == nil {
		return // Not a userFills frame (pong, subscription ack)
	}

	fm.statsMu.Lock()
	fm.framesProcessed++
	fm.statsMu.Unlock()

	// The first frame after subscribing replays recent history. Those fills
	// were already handled by the polling scan, so only mark them as seen.
	if frame.IsSnapshot {
		fm.seenMu.Lock()
		for _, fill := range frame.Fills {
			fm.seenFills[fm.fillKey(&fill)] = struct{}{}
		}
		fm.seenMu.Unlock()

		fm.statsMu.Lock()
		fm.snapshotsSkipped++
		fm.statsMu.Unlock()
		return
	}

	for i := range frame.Fills {
		fm.processFill(&frame.Fills[i])
	}
}

// processFill evaluates a single live fill against the alert criteria.
func (fm *FillMonitor) processFill(fill *hyperliquidevents.FillEvent) {
	// Skip if already seen
	key := fm.fillKey(fill)
	fm.seenMu.Lock()
	if _, seen := fm.seenFills[key]; seen {
		fm.seenMu.Unlock()
		fm.statsMu.Lock()
		fm.skippedDuplicate++
		fm.statsMu.Unlock()
		return
	}
	if len(fm.seenFills) >= fm.config.MaxSeenFills {
		fm.seenFills = make(map[string]struct{})
		fm.logger.Info("pruned seen fills cache")
	}
	fm.seenFills[key] = struct{}{}
	fm.seenMu.Unlock()

	// Only opens can be new exposure; closes and reductions are not alerted
	if !strings.HasPrefix(fill.Dir, "Open") {
		fm.statsMu.Lock()
		fm.skippedNotOpen++
		fm.statsMu.Unlock()
		return
	}

	// Skip algorithmic slicing (TWAP child fills arrive as a stream of
	// small executions and would spam the channel)
	if fm.config.ExcludedOrderType != "" && strings.EqualFold(fill.OrderType, fm.config.ExcludedOrderType) {
		fm.statsMu.Lock()
		fm.skippedOrderType++
		fm.statsMu.Unlock()
		return
	}

	notional := fill.Notional()
	if notional < fm.config.MinAlertNotional {
		fm.statsMu.Lock()
		fm.skippedLowNotional++
		fm.statsMu.Unlock()
		return
	}

	side := "SHORT"
	if fill.IsLong() {
		side = "LONG"
	}

	alert := notifier.PositionAlert{
		WalletAddress: fill.User,
		WalletURL:     walletURL(fill.User),
		Asset:         fill.Coin,
		Side:          side,
		Size:          fill.GetSizeFloat(),
		Price:         fill.GetPriceFloat(),
		Notional:      notional,
		Reasons:       []notifier.AlertReason{notifier.AlertReasonLargeFill},
		Timestamp:     time.UnixMilli(fill.Time),
	}

	fm.sendAlert(alert)
}

// fillKey builds the dedup key for a fill. Hash alone is not unique: one
// transaction can carry fills for both legs of a flip.
func (fm *FillMonitor) fillKey(fill *hyperliquidevents.FillEvent) string {
	return fmt.Sprintf("%s:%s:%s", fill.Hash, fill.Coin, fill.Dir)
}

func (fm *FillMonitor) sendAlert(alert notifier.PositionAlert) {
	fm.statsMu.Lock()
	fm.alertsSent++
	fm.lastAlertTime = time.Now()
	fm.statsMu.Unlock()

	fm.logger.Info("FILL ALERT",
		zap.String("wallet", shortID(alert.WalletAddress)),
		zap.String("asset", alert.Asset),
		zap.String("side", alert.Side),
		zap.Float64("size", alert.Size),
		zap.Float64("price", alert.Price),
		zap.Float64("notional", alert.Notional),
	)

	if fm.notifier != nil {
		fm.notifier.SendPositionAlert(alert)
	}
}

// SetWSConnected sets the WebSocket connection state.
func (fm *FillMonitor) SetWSConnected(connected bool) {
	fm.wsConnectedMu.Lock()
	fm.wsConnected = connected
	fm.wsConnectedMu.Unlock()
}

// IsWSConnected returns the WebSocket connection state.
func (fm *FillMonitor) IsWSConnected() bool {
	fm.wsConnectedMu.RLock()
	defer fm.wsConnectedMu.RUnlock()
	return fm.wsConnected
}

// SeenFillsCount returns the number of fills in the dedup cache.
func (fm *FillMonitor) SeenFillsCount() int {
	fm.seenMu.Lock()
	defer fm.seenMu.Unlock()
	return len(fm.seenFills)
}

// FillMonitorStats holds counters for the stats endpoint.
type FillMonitorStats struct {
	FramesProcessed    int       `json:"frames_processed"`
	SnapshotsSkipped   int       `json:"snapshots_skipped"`
	SkippedDuplicate   int       `json:"skipped_duplicate"`
	SkippedNotOpen     int       `json:"skipped_not_open"`
	SkippedOrderType   int       `json:"skipped_order_type"`
	SkippedLowNotional int       `json:"skipped_low_notional"`
	AlertsSent         int       `json:"alerts_sent"`
	LastAlertTime      time.Time `json:"last_alert_time"`
}

// Stats returns a snapshot of the filter counters.
func (fm *FillMonitor) Stats() FillMonitorStats {
	fm.statsMu.Lock()
	defer fm.statsMu.Unlock()
	return FillMonitorStats{
		FramesProcessed:    fm.framesProcessed,
		SnapshotsSkipped:   fm.snapshotsSkipped,
		SkippedDuplicate:   fm.skippedDuplicate,
		SkippedNotOpen:     fm.skippedNotOpen,
		SkippedOrderType:   fm.skippedOrderType,
		SkippedLowNotional: fm.skippedLowNotional,
		AlertsSent:         fm.alertsSent,
		LastAlertTime:      fm.lastAlertTime,
	}
}
