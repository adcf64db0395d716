package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type walletsFile struct {
	Wallets []struct {
		FullAddress string `json:"fullAddress"`
		Label       string `json:"label,omitempty"`
	} `json:"wallets"`
}

// LoadWallets reads the tracked wallet universe from the wallets file.
// Addresses are lowercased and deduplicated. A missing, unreadable, or empty
// file is an error: a run with zero wallets would report a meaningless zero
// score, which is not the same thing as "no whale opened anything".
func LoadWallets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallets file %s: %w", path, err)
	}

	var wf walletsFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallets file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(wf.Wallets))
	wallets := make([]string, 0, len(wf.Wallets))
	for _, w := range wf.Wallets {
		addr := strings.ToLower(strings.TrimSpace(w.FullAddress))
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		wallets = append(wallets, addr)
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("wallets file %s contains no usable addresses", path)
	}

	return wallets, nil
}
