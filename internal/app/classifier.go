package app

import (
	"time"

	"go.uber.org/zap"

	"hyperwhales/clients/hyperliquid"
)

// NewPositionEvent is one genuinely new position opening detected for a
// wallet this cycle.
type NewPositionEvent struct {
	Wallet   string
	Asset    string
	Long     bool
	Value    float64
	Size     float64
	Price    float64
	Leverage float64
	Time     time.Time
}

// Side returns "LONG" or "SHORT" for display.
func (e NewPositionEvent) Side() string {
	if e.Long {
		return "LONG"
	}
	return "SHORT"
}

// WalletResult is the outcome of scanning one wallet. A failed scan still
// produces a result, just an empty one, so downstream counts stay honest.
type WalletResult struct {
	Wallet        string
	CurrentAssets map[string]struct{}
	NewPositions  []NewPositionEvent
	Err           error
}

// PositionClassifier decides which of a wallet's positions are new this
// cycle. The live clearinghouse state is the source of truth; fills only
// fill the gap for positions opened and closed inside the same window.
type PositionClassifier struct {
	logger           *zap.Logger
	minPositionValue float64
	now              func() time.Time
}

func NewPositionClassifier(logger *zap.Logger, minPositionValue float64) *PositionClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionClassifier{
		logger:           logger,
		minPositionValue: minPositionValue,
		now:              time.Now,
	}
}

// Classify compares the wallet's current qualifying positions against the
// previous snapshot. A nil state (failed fetch) degrades to an empty current
// set rather than an error: the wallet simply contributes nothing.
//
// Fill-derived events cover only assets absent from both the current and
// previous sets, so an asset never produces two events and a still-open
// position always reports its live value rather than a fill's.
func (c *PositionClassifier) Classify(
	wallet string,
	state *hyperliquid.UserState,
	fills []hyperliquid.Fill,
	previous map[string]struct{},
) WalletResult {
	result := WalletResult{
		Wallet:        wallet,
		CurrentAssets: make(map[string]struct{}),
	}

	now := c.now()

	if state != nil {
		stateTime := state.Time
		if stateTime.After(now) || stateTime.IsZero() {
			stateTime = now
		}

		for _, p := range state.Positions {
			if abs(p.PositionValue) < c.minPositionValue {
				continue
			}
			result.CurrentAssets[p.Coin] = struct{}{}

			if _, held := previous[p.Coin]; held {
				continue
			}
			result.NewPositions = append(result.NewPositions, NewPositionEvent{
				Wallet:   wallet,
				Asset:    p.Coin,
				Long:     p.IsLong(),
				Value:    abs(p.PositionValue),
				Size:     abs(p.Size),
				Price:    p.EntryPrice,
				Leverage: p.Leverage,
				Time:     stateTime,
			})
		}
	}

	// Positions opened and fully closed inside the window leave no trace in
	// the state; their opening fills are the only evidence. One event per
	// asset even when several opening fills survive dedup.
	covered := make(map[string]struct{}, len(result.CurrentAssets))
	for a := range result.CurrentAssets {
		covered[a] = struct{}{}
	}
	for _, f := range fills {
		if !f.IsOpen() || f.Notional() < c.minPositionValue {
			continue
		}
		if _, ok := covered[f.Coin]; ok {
			continue
		}
		if _, held := previous[f.Coin]; held {
			continue
		}
		eventTime := f.Time
		if eventTime.After(now) {
			c.logger.Warn("fill timestamp in the future, clamping",
				zap.String("wallet", shortID(wallet)),
				zap.String("asset", f.Coin),
				zap.Time("fillTime", f.Time))
			eventTime = now
		}
		result.NewPositions = append(result.NewPositions, NewPositionEvent{
			Wallet: wallet,
			Asset:  f.Coin,
			Long:   f.IsLong(),
			Value:  f.Notional(),
			Size:   abs(f.Size),
			Price:  f.Price,
			Time:   eventTime,
		})
		covered[f.Coin] = struct{}{}
	}

	return result
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
