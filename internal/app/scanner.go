package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hyperwhales/clients/hyperliquid"
)

// positionAPI is the slice of the exchange client the scanner needs.
type positionAPI interface {
	UserState(ctx context.Context, wallet string) (*hyperliquid.UserState, error)
	FillsByTime(ctx context.Context, wallet string, start, end time.Time) ([]hyperliquid.Fill, error)
}

// Scanner walks the wallet universe with a bounded worker pool. One wallet's
// failure never takes down the cycle: the wallet still yields a result, just
// an empty one.
type Scanner struct {
	logger     *zap.Logger
	api        positionAPI
	dedup      *FillDeduplicator
	classifier *PositionClassifier
	store      *SnapshotStore

	lookback   time.Duration
	maxWorkers int
	batchSize  int
	batchPause time.Duration

	now func() time.Time
}

func NewScanner(
	logger *zap.Logger,
	api positionAPI,
	dedup *FillDeduplicator,
	classifier *PositionClassifier,
	store *SnapshotStore,
	lookback time.Duration,
	maxWorkers, batchSize int,
	batchPause time.Duration,
) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Scanner{
		logger:     logger,
		api:        api,
		dedup:      dedup,
		classifier: classifier,
		store:      store,
		lookback:   lookback,
		maxWorkers: maxWorkers,
		batchSize:  batchSize,
		batchPause: batchPause,
		now:        time.Now,
	}
}

// Scan fetches, dedupes, and classifies every wallet. Results arrive in
// completion order, one per wallet. Snapshot recording happens here, in the
// collector, after a wallet scan succeeds; a failed wallet keeps its old
// snapshot so the next cycle does not misread everything as new.
func (s *Scanner) Scan(ctx context.Context, wallets []string) []WalletResult {
	end := s.now()
	start := end.Add(-s.lookback)

	jobs := make(chan string)
	resultCh := make(chan WalletResult)

	var wg sync.WaitGroup
	for i := 0; i < s.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wallet := range jobs {
				resultCh <- s.scanWallet(ctx, wallet, start, end)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, w := range wallets {
			select {
			case jobs <- w:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]WalletResult, 0, len(wallets))
	completed := 0
	for r := range resultCh {
		if r.Err == nil {
			s.store.RecordCurrent(r.Wallet, r.CurrentAssets)
		}
		results = append(results, r)

		completed++
		if s.batchSize > 0 && s.batchPause > 0 && completed%s.batchSize == 0 && completed < len(wallets) {
			s.pause(ctx)
		}
	}

	return results
}

func (s *Scanner) scanWallet(ctx context.Context, wallet string, start, end time.Time) WalletResult {
	state, err := s.api.UserState(ctx, wallet)
	if err != nil {
		s.logger.Warn("wallet state fetch failed, skipping wallet this cycle",
			zap.String("wallet", shortID(wallet)),
			zap.Error(err))
		return WalletResult{
			Wallet:        wallet,
			CurrentAssets: make(map[string]struct{}),
			Err:           err,
		}
	}

	fills, err := s.api.FillsByTime(ctx, wallet, start, end)
	if err != nil {
		// Live state alone still classifies correctly; only the
		// opened-and-closed-same-window case goes unseen.
		s.logger.Warn("wallet fills fetch failed, classifying from state only",
			zap.String("wallet", shortID(wallet)),
			zap.Error(err))
		fills = nil
	}

	deduped := s.dedup.Dedupe(wallet, fills, start, end)
	previous := s.store.PreviousAssets(wallet)

	result := s.classifier.Classify(wallet, state, deduped, previous)

	if len(result.NewPositions) > 0 {
		s.logger.Info("new positions detected",
			zap.String("wallet", shortID(wallet)),
			zap.Int("count", len(result.NewPositions)))
	}

	return result
}

func (s *Scanner) pause(ctx context.Context) {
	t := time.NewTimer(s.batchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
