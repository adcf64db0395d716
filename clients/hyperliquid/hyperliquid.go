package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hyperwhales/config"
)

// HyperliquidClient talks to the Hyperliquid info endpoint. All requests go
// through a shared rate limiter, so a single instance should be shared by
// every worker.
type HyperliquidClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewHyperliquidClient(logger *zap.Logger, cfg *config.Config) *HyperliquidClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HyperliquidClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Hyperliquid.RequestTimeout,
		},
		baseURL:    cfg.Hyperliquid.APIURL,
		limiter:    rate.NewLimiter(rate.Every(cfg.Hyperliquid.RateLimitDelay), 1),
		maxRetries: cfg.Hyperliquid.MaxRetries,
		baseDelay:  cfg.Hyperliquid.BaseDelay,
		maxDelay:   cfg.Hyperliquid.MaxDelay,
	}
}

// ---- Record types ----

// Fill is a single executed trade for a wallet. Size is signed: positive for
// long exposure, negative for short.
type Fill struct {
	Coin      string
	Dir       string
	Size      float64
	Price     float64
	Time      time.Time
	OrderType string
	Hash      string
}

// IsOpen reports whether the fill opened (or added to) a position rather than
// closing one.
func (f Fill) IsOpen() bool {
	return strings.HasPrefix(f.Dir, "Open")
}

// IsLong reports whether the fill represents long exposure. Closing a short
// counts as long-side flow.
func (f Fill) IsLong() bool {
	return f.Dir == "Open Long" || f.Dir == "Close Short"
}

// Side returns "LONG" or "SHORT" for display.
func (f Fill) Side() string {
	if f.IsLong() {
		return "LONG"
	}
	return "SHORT"
}

// Notional returns the unsigned USD value of the fill.
func (f Fill) Notional() float64 {
	return math.Abs(f.Size) * f.Price
}

// AssetPosition is one open perpetual position from a wallet's clearinghouse
// state. Size is signed: positive long, negative short.
type AssetPosition struct {
	Coin          string
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	PositionValue float64
	UnrealizedPnl float64
	Leverage      float64
}

// IsLong reports whether the position is long.
func (p AssetPosition) IsLong() bool {
	return p.Size > 0
}

// UserState is a wallet's account snapshot at a point in time.
type UserState struct {
	Time         time.Time
	AccountValue float64
	Positions    []AssetPosition
}

// ---- Wire types. The exchange encodes numbers as strings; these stay
// private so callers only ever see parsed records. ----

type rawFill struct {
	Coin      string `json:"coin"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Dir       string `json:"dir"`
	Time      int64  `json:"time"`
	Hash      string `json:"hash"`
	OrderType string `json:"orderType"`
}

type rawUserState struct {
	Time           int64 `json:"time"`
	MarginSummary  struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
	AssetPositions []struct {
		Position struct {
			Coin           string `json:"coin"`
			Szi            string `json:"szi"`
			EntryPx        string `json:"entryPx"`
			MarkPx         string `json:"markPx"`
			PositionValue  string `json:"positionValue"`
			UnrealizedPnl  string `json:"unrealizedPnl"`
			Leverage       struct {
				Value float64 `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
}

// UserState fetches a wallet's current clearinghouse state. Positions with
// unparseable required fields are dropped with a warning rather than failing
// the whole snapshot.
func (c *HyperliquidClient) UserState(ctx context.Context, wallet string) (*UserState, error) {
	payload := map[string]any{
		"type": "clearinghouseState",
		"user": wallet,
	}

	var raw rawUserState
	if err := c.doPost(ctx, payload, &raw); err != nil {
		return nil, fmt.Errorf("user state %s: %w", wallet, err)
	}

	state := &UserState{
		Time:         time.UnixMilli(raw.Time),
		AccountValue: parseFloat(raw.MarginSummary.AccountValue),
		Positions:    make([]AssetPosition, 0, len(raw.AssetPositions)),
	}

	for _, ap := range raw.AssetPositions {
		p := ap.Position
		if p.Coin == "" {
			continue
		}
		size, err := strconv.ParseFloat(p.Szi, 64)
		if err != nil {
			c.logger.Warn("dropping position with bad size",
				zap.String("wallet", wallet),
				zap.String("coin", p.Coin),
				zap.String("szi", p.Szi))
			continue
		}
		value, err := strconv.ParseFloat(p.PositionValue, 64)
		if err != nil {
			c.logger.Warn("dropping position with bad value",
				zap.String("wallet", wallet),
				zap.String("coin", p.Coin),
				zap.String("positionValue", p.PositionValue))
			continue
		}
		state.Positions = append(state.Positions, AssetPosition{
			Coin:          p.Coin,
			Size:          size,
			EntryPrice:    parseFloat(p.EntryPx),
			MarkPrice:     parseFloat(p.MarkPx),
			PositionValue: value,
			UnrealizedPnl: parseFloat(p.UnrealizedPnl),
			Leverage:      p.Leverage.Value,
		})
	}

	return state, nil
}

// FillsByTime fetches a wallet's fills in [start, end]. Fills with
// unparseable numbers are dropped with a warning.
func (c *HyperliquidClient) FillsByTime(ctx context.Context, wallet string, start, end time.Time) ([]Fill, error) {
	payload := map[string]any{
		"type":            "userFillsByTime",
		"user":            wallet,
		"startTime":       start.UnixMilli(),
		"endTime":         end.UnixMilli(),
		"aggregateByTime": false,
	}

	var raws []rawFill
	if err := c.doPost(ctx, payload, &raws); err != nil {
		return nil, fmt.Errorf("fills %s: %w", wallet, err)
	}

	fills := make([]Fill, 0, len(raws))
	for _, r := range raws {
		f, err := parseFill(r)
		if err != nil {
			c.logger.Warn("dropping malformed fill",
				zap.String("wallet", wallet),
				zap.String("coin", r.Coin),
				zap.Error(err))
			continue
		}
		fills = append(fills, f)
	}

	return fills, nil
}

func parseFill(r rawFill) (Fill, error) {
	if r.Coin == "" || r.Dir == "" {
		return Fill{}, fmt.Errorf("missing coin or dir")
	}
	price, err := strconv.ParseFloat(r.Px, 64)
	if err != nil {
		return Fill{}, fmt.Errorf("parse px %q: %w", r.Px, err)
	}
	size, err := strconv.ParseFloat(r.Sz, 64)
	if err != nil {
		return Fill{}, fmt.Errorf("parse sz %q: %w", r.Sz, err)
	}

	f := Fill{
		Coin:      r.Coin,
		Dir:       r.Dir,
		Price:     price,
		Time:      time.UnixMilli(r.Time),
		OrderType: r.OrderType,
		Hash:      r.Hash,
	}
	f.Size = size
	if !f.IsLong() {
		f.Size = -size
	}
	return f, nil
}

// parseFloat is for optional fields where a bad value degrades to zero
// instead of dropping the record.
func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// doPost sends one info request with retries. 429 and transport errors back
// off exponentially with jitter, capped at maxDelay; other non-2xx responses
// retry after the base delay while attempts remain.
func (c *HyperliquidClient) doPost(ctx context.Context, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		respBody, status, err := c.postOnce(ctx, body)
		if err != nil {
			lastErr = err
			c.logger.Warn("request failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return err
			}
			continue
		}

		switch {
		case status/100 == 2:
			if err := json.Unmarshal(respBody, dest); err != nil {
				// A garbled body on a success status can be transient
				// (truncated proxy response); it gets the remaining
				// attempts like any other malformed response.
				lastErr = fmt.Errorf("decode json: %w", err)
				c.logger.Warn("malformed response body",
					zap.Int("attempt", attempt+1),
					zap.Error(lastErr))
				if err := c.sleep(ctx, c.baseDelay); err != nil {
					return err
				}
				continue
			}
			return nil
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("status=429")
			delay := c.backoff(attempt)
			c.logger.Warn("rate limited by exchange",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		default:
			lastErr = fmt.Errorf("status=%d body=%s", status, truncate(string(respBody), 200))
			if err := c.sleep(ctx, c.baseDelay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *HyperliquidClient) postOnce(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// backoff returns baseDelay·2^attempt plus up to one second of jitter, capped
// at maxDelay.
func (c *HyperliquidClient) backoff(attempt int) time.Duration {
	d := c.baseDelay * time.Duration(1<<uint(attempt))
	d += time.Duration(rand.Float64() * float64(time.Second))
	if d > c.maxDelay {
		d = c.maxDelay
	}
	return d
}

func (c *HyperliquidClient) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
