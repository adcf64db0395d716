package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// startHealthServer starts an HTTP server for health checks and stats.
func (r *Runner) startHealthServer(port int) {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := r.GetStats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(stats)
	})

	// Score history endpoint, same shape as the history file
	mux.HandleFunc("/history", func(w http.ResponseWriter, _ *http.Request) {
		type entry struct {
			Datetime        string `json:"datetime"`
			Score           int    `json:"score"`
			LongingWallets  int    `json:"longing_wallets"`
			ShortingWallets int    `json:"shorting_wallets"`
		}

		snaps := r.ledger.Entries()
		out := struct {
			History []entry `json:"history"`
		}{History: make([]entry, 0, len(snaps))}
		for _, s := range snaps {
			out.History = append(out.History, entry{
				Datetime:        s.Timestamp.UTC().Format(time.RFC3339),
				Score:           s.Score,
				LongingWallets:  s.LongingWallets,
				ShortingWallets: s.ShortingWallets,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(out)
	})

	r.healthServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := r.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("health server error", zap.Error(err))
		}
	}()
}
