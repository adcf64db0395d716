package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hyperwhales/clients/hyperliquid"
)

// FillDeduplicator filters a wallet's raw fill list down to the unique,
// material fills inside the scan window. The exchange returns overlapping
// data across polls and occasionally repeats fills, so dedup keys on the
// full identity of a fill rather than its hash alone.
type FillDeduplicator struct {
	minPositionValue  float64
	excludedOrderType string
}

func NewFillDeduplicator(minPositionValue float64, excludedOrderType string) *FillDeduplicator {
	return &FillDeduplicator{
		minPositionValue:  minPositionValue,
		excludedOrderType: excludedOrderType,
	}
}

// Dedupe drops excluded order types, fills outside [start, end], and fills
// below the notional threshold, then keeps the first occurrence of each
// duplicate and returns survivors sorted ascending by time. Running it twice
// yields the same result.
func (d *FillDeduplicator) Dedupe(wallet string, fills []hyperliquid.Fill, start, end time.Time) []hyperliquid.Fill {
	seen := make(map[string]struct{}, len(fills))
	out := make([]hyperliquid.Fill, 0, len(fills))

	for _, f := range fills {
		if d.excludedOrderType != "" && strings.EqualFold(f.OrderType, d.excludedOrderType) {
			continue
		}
		if f.Time.Before(start) || f.Time.After(end) {
			continue
		}
		if f.Notional() < d.minPositionValue {
			continue
		}

		key := fillKey(wallet, f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	return out
}

// fillKey identifies a fill by everything that makes it distinct. Two fills
// matching on all of these are the same event reported twice.
func fillKey(wallet string, f hyperliquid.Fill) string {
	return fmt.Sprintf("%s_%s_%s_%t_%v_%v_%d",
		strings.ToLower(wallet), f.Coin, f.Side(), f.IsOpen(), f.Size, f.Price, f.Time.UnixMilli())
}
