package notifier

import (
	"time"
)

// AlertReason indicates why an alert was triggered.
type AlertReason string

const (
	AlertReasonNewPosition AlertReason = "new_position" // qualifying position absent from the previous scan
	AlertReasonLargeFill   AlertReason = "large_fill"   // live fill above the alert threshold
)

// PositionAlert contains all the data needed for a position alert
// notification.
type PositionAlert struct {
	// Wallet info
	WalletAddress string
	WalletURL     string

	// Position info
	Asset    string
	Side     string // LONG or SHORT
	Size     float64
	Price    float64
	Notional float64
	Leverage float64

	// Alert metadata
	Reasons   []AlertReason
	Timestamp time.Time
}

// Notifier is the interface for sending position alerts to various channels.
type Notifier interface {
	// SendPositionAlert sends a position alert notification.
	SendPositionAlert(alert PositionAlert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendPositionAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendPositionAlert(alert PositionAlert) {
	for _, n := range m.notifiers {
		n.SendPositionAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
