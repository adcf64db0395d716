package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HistoryLedger is the bounded, persisted score history. The file is
// rewritten whole on every save via a temp file and rename, so readers never
// observe a partial write. A failed save keeps the in-memory history intact
// and gets retried on the next cycle.
type HistoryLedger struct {
	logger    *zap.Logger
	path      string
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries []ScoreSnapshot
}

type historyFile struct {
	History []historyEntry `json:"history"`
}

type historyEntry struct {
	Datetime        string `json:"datetime"`
	Score           int    `json:"score"`
	LongingWallets  int    `json:"longing_wallets"`
	ShortingWallets int    `json:"shorting_wallets"`
}

func NewHistoryLedger(logger *zap.Logger, path string, retention time.Duration) *HistoryLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLedger{
		logger:    logger,
		path:      path,
		retention: retention,
		now:       time.Now,
	}
}

// Load reads the history file from disk. A missing or corrupt file starts an
// empty history with a warning; it never fails startup. Entries with
// unparseable timestamps are skipped individually.
func (l *HistoryLedger) Load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("no history file, starting empty", zap.String("path", l.path))
			return nil
		}
		l.logger.Warn("failed to read history file, starting empty",
			zap.String("path", l.path), zap.Error(err))
		return nil
	}

	var hf historyFile
	if err := json.Unmarshal(data, &hf); err != nil {
		l.logger.Warn("corrupt history file, starting empty",
			zap.String("path", l.path), zap.Error(err))
		return nil
	}

	entries := make([]ScoreSnapshot, 0, len(hf.History))
	for _, e := range hf.History {
		ts, err := time.Parse(time.RFC3339, e.Datetime)
		if err != nil {
			l.logger.Warn("skipping history entry with bad timestamp",
				zap.String("datetime", e.Datetime))
			continue
		}
		entries = append(entries, ScoreSnapshot{
			Timestamp:       ts,
			Score:           e.Score,
			LongingWallets:  e.LongingWallets,
			ShortingWallets: e.ShortingWallets,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Info("history loaded",
		zap.String("path", l.path),
		zap.Int("entries", len(entries)))
	return nil
}

// Append adds a snapshot, prunes entries past retention, and persists. The
// slice stays sorted ascending by timestamp even if a snapshot arrives out
// of order.
func (l *HistoryLedger) Append(snap ScoreSnapshot) error {
	l.mu.Lock()
	l.entries = append(l.entries, snap)
	sort.Slice(l.entries, func(i, j int) bool {
		return l.entries[i].Timestamp.Before(l.entries[j].Timestamp)
	})
	l.pruneLocked()
	l.mu.Unlock()

	return l.Save()
}

// pruneLocked drops entries at or past the retention boundary, keeping only
// entries strictly newer than now minus retention. Caller holds mu.
func (l *HistoryLedger) pruneLocked() {
	cutoff := l.now().Add(-l.retention)
	idx := 0
	for idx < len(l.entries) && !l.entries[idx].Timestamp.After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.logger.Info("pruned history entries",
			zap.Int("pruned", idx),
			zap.Int("remaining", len(l.entries)-idx))
		l.entries = append([]ScoreSnapshot(nil), l.entries[idx:]...)
	}
}

// Save writes the whole history to disk atomically.
func (l *HistoryLedger) Save() error {
	l.mu.Lock()
	hf := historyFile{History: make([]historyEntry, 0, len(l.entries))}
	for _, e := range l.entries {
		hf.History = append(hf.History, historyEntry{
			Datetime:        e.Timestamp.UTC().Format(time.RFC3339),
			Score:           e.Score,
			LongingWallets:  e.LongingWallets,
			ShortingWallets: e.ShortingWallets,
		})
	}
	l.mu.Unlock()

	data, err := json.MarshalIndent(hf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace history file: %w", err)
	}

	return nil
}

// Entries returns a copy of the current history, ascending by timestamp.
func (l *HistoryLedger) Entries() []ScoreSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ScoreSnapshot, len(l.entries))
	copy(out, l.entries)
	return out
}

// Latest returns the most recent snapshot, or false when history is empty.
func (l *HistoryLedger) Latest() (ScoreSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ScoreSnapshot{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len returns the number of retained entries.
func (l *HistoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close performs a final save.
func (l *HistoryLedger) Close() error {
	return l.Save()
}
