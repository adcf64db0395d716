package app

import (
	"context"
	"sync"
	"time"

	"hyperwhales/clients/hyperliquid"
	"hyperwhales/clients/notifier"
)

// MockPositionAPI is a mock implementation of positionAPI for testing.
type MockPositionAPI struct {
	mu        sync.Mutex
	states    map[string]*hyperliquid.UserState
	fills     map[string][]hyperliquid.Fill
	stateErrs map[string]error
	fillErrs  map[string]error
	calls     int
}

func NewMockPositionAPI() *MockPositionAPI {
	return &MockPositionAPI{
		states:    make(map[string]*hyperliquid.UserState),
		fills:     make(map[string][]hyperliquid.Fill),
		stateErrs: make(map[string]error),
		fillErrs:  make(map[string]error),
	}
}

func (m *MockPositionAPI) SetState(wallet string, state *hyperliquid.UserState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[wallet] = state
}

func (m *MockPositionAPI) SetFills(wallet string, fills []hyperliquid.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills[wallet] = fills
}

func (m *MockPositionAPI) SetStateErr(wallet string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateErrs[wallet] = err
}

func (m *MockPositionAPI) SetFillErr(wallet string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fillErrs[wallet] = err
}

func (m *MockPositionAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockPositionAPI) UserState(ctx context.Context, wallet string) (*hyperliquid.UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.stateErrs[wallet]; err != nil {
		return nil, err
	}
	if s, ok := m.states[wallet]; ok {
		return s, nil
	}
	return &hyperliquid.UserState{Time: time.Now()}, nil
}

func (m *MockPositionAPI) FillsByTime(ctx context.Context, wallet string, start, end time.Time) ([]hyperliquid.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.fillErrs[wallet]; err != nil {
		return nil, err
	}
	return m.fills[wallet], nil
}

// MockNotifier records alerts instead of sending them.
type MockNotifier struct {
	mu     sync.Mutex
	alerts []notifier.PositionAlert
}

func (m *MockNotifier) SendPositionAlert(alert notifier.PositionAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
}

func (m *MockNotifier) Close() error { return nil }

func (m *MockNotifier) Alerts() []notifier.PositionAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notifier.PositionAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
