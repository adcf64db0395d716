package app

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWalletsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activeWhales.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWallets(t *testing.T) {
	path := writeWalletsFile(t, `{"wallets":[
		{"fullAddress":"0xAAA111","label":"whale one"},
		{"fullAddress":"0xBBB222"},
		{"fullAddress":"0xaaa111"},
		{"fullAddress":"  "}
	]}`)

	wallets, err := LoadWallets(path)
	if err != nil {
		t.Fatalf("LoadWallets: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("expected 2 wallets after lowercase dedup, got %d: %v", len(wallets), wallets)
	}
	if wallets[0] != "0xaaa111" || wallets[1] != "0xbbb222" {
		t.Errorf("unexpected wallets: %v", wallets)
	}
}

func TestLoadWallets_MissingFile(t *testing.T) {
	_, err := LoadWallets(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWallets_EmptyList(t *testing.T) {
	path := writeWalletsFile(t, `{"wallets":[]}`)
	_, err := LoadWallets(path)
	if err == nil {
		t.Fatal("expected error for empty wallet list")
	}
}

func TestLoadWallets_Malformed(t *testing.T) {
	path := writeWalletsFile(t, `{"wallets": "oops"}`)
	_, err := LoadWallets(path)
	if err == nil {
		t.Fatal("expected error for malformed wallets file")
	}
}
