package notifier

import (
	"errors"
	"testing"
	"time"
)

// mockNotifier is a test helper that implements Notifier interface
type mockNotifier struct {
	alerts      []PositionAlert
	closeErr    error
	closeCalled bool
}

func (m *mockNotifier) SendPositionAlert(alert PositionAlert) {
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) Close() error {
	m.closeCalled = true
	return m.closeErr
}

func TestNewMultiNotifier_FiltersNil(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, nil, mock2, nil)

	if mn.Count() != 2 {
		t.Errorf("expected 2 notifiers, got %d", mn.Count())
	}
}

func TestNewMultiNotifier_AllNil(t *testing.T) {
	mn := NewMultiNotifier(nil, nil, nil)

	if mn.Count() != 0 {
		t.Errorf("expected 0 notifiers, got %d", mn.Count())
	}
}

func TestMultiNotifier_SendPositionAlert(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{}

	mn := NewMultiNotifier(mock1, mock2)

	alert := PositionAlert{
		WalletAddress: "0xabc",
		Asset:         "BTC",
		Side:          "LONG",
		Size:          2.5,
		Price:         60000,
		Notional:      150000,
		Reasons:       []AlertReason{AlertReasonNewPosition},
		Timestamp:     time.Now(),
	}

	mn.SendPositionAlert(alert)

	if len(mock1.alerts) != 1 {
		t.Errorf("expected 1 alert for mock1, got %d", len(mock1.alerts))
	}
	if len(mock2.alerts) != 1 {
		t.Errorf("expected 1 alert for mock2, got %d", len(mock2.alerts))
	}
	if mock1.alerts[0].Asset != "BTC" {
		t.Errorf("expected asset BTC, got %s", mock1.alerts[0].Asset)
	}
}

func TestMultiNotifier_SendPositionAlert_NoNotifiers(t *testing.T) {
	mn := NewMultiNotifier()

	// Should not panic
	mn.SendPositionAlert(PositionAlert{Asset: "BTC"})
}

func TestMultiNotifier_Close(t *testing.T) {
	mock1 := &mockNotifier{}
	mock2 := &mockNotifier{closeErr: errors.New("close failed")}

	mn := NewMultiNotifier(mock1, mock2)

	err := mn.Close()
	if err == nil {
		t.Error("expected last close error to propagate")
	}
	if !mock1.closeCalled || !mock2.closeCalled {
		t.Error("expected Close called on every notifier")
	}
}
