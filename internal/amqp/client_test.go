package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "ledger", queueName: "ledger.changed"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should start closed")
		}
	})

	t.Run("failures open the circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit should open after max failures")
		}
	})

	t.Run("success resets", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the open timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failure while half-open should reopen the circuit")
		}
	})
}

func TestClient_PublishLedgerChange(t *testing.T) {
	msg := NewLedgerChangeMessage(PaymentAdded, "debt-1", "pay-1", 3)

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		client := &Client{exchangeName: "ledger", queueName: "ledger.changed"}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishLedgerChange(context.Background(), msg)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
		if !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("error should mention the circuit breaker: %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client := &Client{exchangeName: "ledger", queueName: "ledger.changed"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishLedgerChange(ctx, msg); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLedgerChangeMessage_JSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerChangeMessage{
		Kind:       DebtTotalEdited,
		DebtID:     "debt-1",
		Generation: 7,
		Timestamp:  ts,
	}
	raw, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if strings.Contains(string(raw), "paymentId") {
		t.Errorf("empty payment id should be omitted: %s", raw)
	}

	parsed, err := LedgerChangeMessageFromJSON(raw)
	if err != nil {
		t.Fatalf("LedgerChangeMessageFromJSON() error = %v", err)
	}
	if parsed.Kind != msg.Kind || parsed.DebtID != msg.DebtID || parsed.Generation != 7 || !parsed.Timestamp.Equal(ts) {
		t.Errorf("unexpected message %+v", parsed)
	}
}

func TestLedgerChangeMessageFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{
		`{"kind": 1}`,
		`{"kind":"payment.added"}`,
		`{"debtId":"debt-1"}`,
		`not json`,
	} {
		if _, err := LedgerChangeMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}

func TestAffectsReport(t *testing.T) {
	if NewLedgerChangeMessage(DebtDeleted, "d", "", 1).AffectsReport() {
		t.Error("a deleted debt has no report to refresh")
	}
	if !NewLedgerChangeMessage(PaymentDeleted, "d", "p", 1).AffectsReport() {
		t.Error("payment deletion changes the report")
	}
}
