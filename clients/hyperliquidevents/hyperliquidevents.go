package hyperliquidevents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HyperliquidEventsClient streams live user fills over the exchange
// websocket. One connection carries subscriptions for every tracked wallet.
type HyperliquidEventsClient struct {
	logger *zap.Logger

	wsURL        string
	dialer       *websocket.Dialer
	pingInterval time.Duration

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn

	msgCh   chan json.RawMessage
	errCh   chan error
	closeCh chan struct{}

	msgCount        uint64
	lastMsgUnixNano int64
}

func NewHyperliquidEventsClient(logger *zap.Logger, wsURL string) *HyperliquidEventsClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HyperliquidEventsClient{
		logger:       logger,
		wsURL:        wsURL,
		dialer:       websocket.DefaultDialer,
		pingInterval: 30 * time.Second,

		msgCh:   make(chan json.RawMessage, 1024),
		errCh:   make(chan error, 64),
		closeCh: make(chan struct{}),
	}
}

// Connect dials the websocket and subscribes to userFills for every wallet.
func (c *HyperliquidEventsClient) Connect(ctx context.Context, wallets []string) error {
	c.connMu.Lock()
	alreadyConnected := c.conn != nil
	c.connMu.Unlock()
	if alreadyConnected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}

	c.logger.Info("hyperliquid ws dialed",
		zap.String("url", c.wsURL),
		zap.Int("wallets", len(wallets)))

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn("hyperliquid ws close frame received",
			zap.Int("code", code),
			zap.String("reason", text))
		return nil
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	for _, wallet := range wallets {
		if err := c.sendOp("subscribe", wallet); err != nil {
			_ = conn.Close()
			c.connMu.Lock()
			c.conn = nil
			c.connMu.Unlock()
			return fmt.Errorf("subscribe %s: %w", wallet, err)
		}
	}

	c.logger.Info("hyperliquid ws subscriptions sent", zap.Int("count", len(wallets)))

	go c.readLoop()
	go c.pingLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.closeCh:
		}
	}()

	return nil
}

// SubscribeWallet adds a userFills subscription on the live connection.
func (c *HyperliquidEventsClient) SubscribeWallet(wallet string) error {
	return c.sendOp("subscribe", wallet)
}

// UnsubscribeWallet removes a wallet's userFills subscription.
func (c *HyperliquidEventsClient) UnsubscribeWallet(wallet string) error {
	return c.sendOp("unsubscribe", wallet)
}

func (c *HyperliquidEventsClient) Messages() <-chan json.RawMessage {
	return c.msgCh
}

func (c *HyperliquidEventsClient) Errors() <-chan error {
	return c.errCh
}

type WSStats struct {
	MessageCount  uint64
	LastMessageAt time.Time
}

func (c *HyperliquidEventsClient) Stats() WSStats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}

	return WSStats{
		MessageCount:  n,
		LastMessageAt: t,
	}
}

// FillEvent is one fill from a userFills frame.
type FillEvent struct {
	User      string
	Coin      string `json:"coin"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Dir       string `json:"dir"`
	Time      int64  `json:"time"`
	Hash      string `json:"hash"`
	OrderType string `json:"orderType"`
}

// UserFillsFrame is the payload of a userFills channel message. The first
// frame after subscribing is a snapshot of recent fills, flagged so callers
// can skip history.
type UserFillsFrame struct {
	User       string      `json:"user"`
	Fills      []FillEvent `json:"fills"`
	IsSnapshot bool        `json:"isSnapshot"`
}

// ParseUserFills attempts to parse a frame as a userFills message. Returns
// nil for other channels (pong, subscription acks).
func ParseUserFills(data json.RawMessage) *UserFillsFrame {
	var envelope struct {
		Channel string          `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil
	}
	if envelope.Channel != "userFills" {
		return nil
	}

	var frame UserFillsFrame
	if err := json.Unmarshal(envelope.Data, &frame); err != nil {
		return nil
	}
	for i := range frame.Fills {
		frame.Fills[i].User = frame.User
	}
	return &frame
}

// GetPriceFloat returns the price as a float64.
func (e *FillEvent) GetPriceFloat() float64 {
	f, _ := strconv.ParseFloat(e.Px, 64)
	return f
}

// GetSizeFloat returns the size as a float64.
func (e *FillEvent) GetSizeFloat() float64 {
	f, _ := strconv.ParseFloat(e.Sz, 64)
	return f
}

// Notional returns the unsigned USD value of the fill.
func (e *FillEvent) Notional() float64 {
	return e.GetPriceFloat() * e.GetSizeFloat()
}

// IsLong reports whether the fill is long-side flow.
func (e *FillEvent) IsLong() bool {
	return e.Dir == "Open Long" || e.Dir == "Close Short"
}

func (c *HyperliquidEventsClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.closeCh:
		// already closed
	default:
		close(c.closeCh)
	}

	// Fresh channel for potential reconnection
	c.closeCh = make(chan struct{})

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	return err
}

func (c *HyperliquidEventsClient) sendOp(method, wallet string) error {
	msg := map[string]any{
		"method": method,
		"subscription": map[string]any{
			"type": "userFills",
			"user": wallet,
		},
	}

	c.logger.Debug("hyperliquid ws op",
		zap.String("method", method),
		zap.String("wallet", wallet))
	return c.writeJSON(msg)
}

func (c *HyperliquidEventsClient) writeJSON(v any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteJSON(v)
}

func (c *HyperliquidEventsClient) pingLoop() {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			// The exchange expects an application-level ping message.
			if err := c.writeJSON(map[string]string{"method": "ping"}); err != nil {
				c.logger.Warn("hyperliquid ws ping failed", zap.Error(err))
			}

		case <-c.closeCh:
			return
		}
	}
}

func (c *HyperliquidEventsClient) readLoop() {
	c.logger.Info("hyperliquid ws read loop started")

	for {
		select {
		case <-c.closeCh:
			c.logger.Info("hyperliquid ws read loop exiting: closed")
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.logger.Info("hyperliquid ws read loop exiting: conn is nil")
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("hyperliquid ws read loop exiting: read error", zap.Error(err))
			select {
			case c.errCh <- err:
			default:
			}
			_ = c.Close()
			return
		}

		if isPong(b) {
			continue
		}

		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		c.forward(json.RawMessage(append([]byte(nil), b...)))
	}
}

func isPong(b []byte) bool {
	var m struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return false
	}
	return m.Channel == "pong"
}

func (c *HyperliquidEventsClient) forward(msg json.RawMessage) {
	select {
	case c.msgCh <- msg:
	default:
		c.logger.Warn("dropping ws message: msgCh full")
	}
}
