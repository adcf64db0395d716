package app

import (
	"time"

	"go.uber.org/zap"
)

// ScoreSnapshot is one cycle's sentiment reading. Score is new longs minus
// new shorts; wallet counts are distinct wallets, so a wallet opening three
// longs counts once.
type ScoreSnapshot struct {
	Timestamp       time.Time
	Score           int
	NewLongs        int
	NewShorts       int
	LongingWallets  int
	ShortingWallets int
}

// SentimentAggregator reduces one cycle's wallet results to a single score.
type SentimentAggregator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSentimentAggregator(logger *zap.Logger) *SentimentAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentimentAggregator{logger: logger, now: time.Now}
}

// Aggregate folds every wallet's new-position events into a snapshot, stamped
// with the aggregation time.
func (a *SentimentAggregator) Aggregate(results []WalletResult) ScoreSnapshot {
	var newLongs, newShorts int
	longWallets := make(map[string]struct{})
	shortWallets := make(map[string]struct{})

	for _, r := range results {
		for _, e := range r.NewPositions {
			if e.Long {
				newLongs++
				longWallets[r.Wallet] = struct{}{}
			} else {
				newShorts++
				shortWallets[r.Wallet] = struct{}{}
			}
		}
	}

	return ScoreSnapshot{
		Timestamp:       a.now(),
		Score:           newLongs - newShorts,
		NewLongs:        newLongs,
		NewShorts:       newShorts,
		LongingWallets:  len(longWallets),
		ShortingWallets: len(shortWallets),
	}
}
