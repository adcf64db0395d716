package app

// shortID truncates long IDs (wallet addresses mostly) for readable logging.
func shortID(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-6:]
}

// walletURL builds the explorer link for a wallet address.
func walletURL(address string) string {
	return "https://hypurrscan.io/address/" + address
}
