package app

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SnapshotStore remembers, per wallet, the set of assets that held a
// qualifying position on the previous scan. It only exists to tell a
// genuinely new position apart from one that was already open last cycle,
// so it lives in memory and starts empty on every run.
type SnapshotStore struct {
	logger *zap.Logger

	mu     sync.Mutex
	assets map[string]map[string]struct{}
}

func NewSnapshotStore(logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		logger: logger,
		assets: make(map[string]map[string]struct{}),
	}
}

// PreviousAssets returns a copy of the wallet's asset set from the last
// recorded scan. A wallet never seen before yields an empty set.
func (s *SnapshotStore) PreviousAssets(wallet string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.assets[strings.ToLower(wallet)]
	out := make(map[string]struct{}, len(prev))
	for a := range prev {
		out[a] = struct{}{}
	}
	return out
}

// RecordCurrent replaces the wallet's stored set wholesale. Assets that
// disappeared are forgotten; there is no merging.
func (s *SnapshotStore) RecordCurrent(wallet string, current map[string]struct{}) {
	cp := make(map[string]struct{}, len(current))
	for a := range current {
		cp[a] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[strings.ToLower(wallet)] = cp
}

// WalletCount returns the number of wallets with a recorded snapshot.
func (s *SnapshotStore) WalletCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}
