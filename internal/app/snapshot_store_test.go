package app

import (
	"testing"

	"go.uber.org/zap"
)

func TestSnapshotStore_UnknownWalletEmpty(t *testing.T) {
	s := NewSnapshotStore(zap.NewNop())
	prev := s.PreviousAssets("0xabc")
	if len(prev) != 0 {
		t.Errorf("expected empty set for unknown wallet, got %v", prev)
	}
}

func TestSnapshotStore_RecordAndRetrieve(t *testing.T) {
	s := NewSnapshotStore(zap.NewNop())
	s.RecordCurrent("0xabc", map[string]struct{}{"BTC": {}, "ETH": {}})

	prev := s.PreviousAssets("0xabc")
	if len(prev) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(prev))
	}
	if _, ok := prev["BTC"]; !ok {
		t.Error("BTC missing from snapshot")
	}
}

func TestSnapshotStore_CaseInsensitiveWallet(t *testing.T) {
	s := NewSnapshotStore(zap.NewNop())
	s.RecordCurrent("0xABC", map[string]struct{}{"BTC": {}})

	prev := s.PreviousAssets("0xabc")
	if len(prev) != 1 {
		t.Errorf("wallet identity should be case-insensitive, got %v", prev)
	}
}

func TestSnapshotStore_WholesaleReplace(t *testing.T) {
	s := NewSnapshotStore(zap.NewNop())
	s.RecordCurrent("0xabc", map[string]struct{}{"BTC": {}, "ETH": {}})
	s.RecordCurrent("0xabc", map[string]struct{}{"SOL": {}})

	prev := s.PreviousAssets("0xabc")
	if len(prev) != 1 {
		t.Fatalf("expected wholesale replace, got %v", prev)
	}
	if _, ok := prev["SOL"]; !ok {
		t.Error("SOL missing after replace")
	}
}

func TestSnapshotStore_ReturnsCopy(t *testing.T) {
	s := NewSnapshotStore(zap.NewNop())
	s.RecordCurrent("0xabc", map[string]struct{}{"BTC": {}})

	prev := s.PreviousAssets("0xabc")
	prev["ETH"] = struct{}{}

	again := s.PreviousAssets("0xabc")
	if len(again) != 1 {
		t.Error("mutating the returned set must not affect the store")
	}

	// The caller's map must not alias the stored one either.
	current := map[string]struct{}{"SOL": {}}
	s.RecordCurrent("0xdef", current)
	current["XRP"] = struct{}{}
	if len(s.PreviousAssets("0xdef")) != 1 {
		t.Error("mutating the input map must not affect the store")
	}
}
