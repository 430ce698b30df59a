package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind names the ledger mutation that produced a message.
type ChangeKind string

const (
	DebtCreated     ChangeKind = "debt.created"
	DebtDeleted     ChangeKind = "debt.deleted"
	DebtTotalEdited ChangeKind = "debt.total_edited"
	PaymentAdded    ChangeKind = "payment.added"
	PaymentDeleted  ChangeKind = "payment.deleted"
	ReportRequested ChangeKind = "report.requested"
)

// LedgerChangeMessage announces a committed ledger mutation. It is
// deliberately thin: consumers reload the ledger and derive what they need.
type LedgerChangeMessage struct {
	Kind       ChangeKind `json:"kind"`
	DebtID     string     `json:"debtId"`
	PaymentID  string     `json:"paymentId,omitempty"`
	Generation uint64     `json:"generation"`
	Timestamp  time.Time  `json:"timestamp"`
}

func NewLedgerChangeMessage(kind ChangeKind, debtID, paymentID string, generation uint64) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Kind:       kind,
		DebtID:     debtID,
		PaymentID:  paymentID,
		Generation: generation,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes a delivery body. Messages without a
// kind or debt id are rejected so they can be dead-lettered.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.DebtID == "" {
		return nil, fmt.Errorf("incomplete ledger change message: kind=%q debtId=%q", msg.Kind, msg.DebtID)
	}
	return &msg, nil
}

// AffectsReport reports whether the debt still exists after the change and
// its report may have moved.
func (m *LedgerChangeMessage) AffectsReport() bool {
	return m.Kind != DebtDeleted
}
