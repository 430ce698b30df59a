package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TonePositive  Tone = "positive"
	ToneNeutral   Tone = "neutral"
	ToneConcerned Tone = "concerned"
)

// MaxCreditorNameLength bounds creditor display names.
const MaxCreditorNameLength = 120

type (
	Tone string

	// Date is a point in time. Calendar dates are kept at UTC midnight and
	// serialized as YYYY-MM-DD; anything with a clock component is RFC 3339.
	Date struct {
		time.Time
	}

	Debt struct {
		ID           string `json:"id"`
		CreditorName string `json:"creditorName"`
		TotalAmount  Money  `json:"totalAmount"`
		StartDate    Date   `json:"startDate"`
	}

	Payment struct {
		ID     string `json:"id"`
		DebtID string `json:"debtId"`
		Date   Date   `json:"date"`
		Amount Money  `json:"amount"`
		Note   string `json:"note"`
	}

	// AnalysisResult is the advisory assessment for one debt. Never persisted.
	AnalysisResult struct {
		Message             string `json:"message"`
		EstimatedCompletion string `json:"estimatedCompletion,omitempty"`
		Tone                Tone   `json:"tone"`
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrEmptyCreditor    = errors.New("creditor name cannot be empty")
	ErrCreditorTooLong  = fmt.Errorf("creditor name too long (max %d characters)", MaxCreditorNameLength)
	ErrMissingDate      = errors.New("date cannot be zero")
	ErrMissingReference = errors.New("debt reference cannot be empty")
)

const (
	dateLayout = "2006-01-02"
)

// NewDebt builds a debt with a fresh id and the given start time.
func NewDebt(creditorName string, total Money, start time.Time) Debt {
	return Debt{
		ID:           uuid.NewString(),
		CreditorName: strings.TrimSpace(creditorName),
		TotalAmount:  total,
		StartDate:    Date{Time: start.UTC()},
	}
}

// NewPayment builds a payment with a fresh id against debtID.
func NewPayment(debtID string, amount Money, date Date, note string) Payment {
	return Payment{
		ID:     uuid.NewString(),
		DebtID: debtID,
		Date:   date,
		Amount: amount,
		Note:   strings.TrimSpace(note),
	}
}

// NewDate creates a calendar date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (d Date) isCalendarDate() bool {
	h, m, s := d.Clock()
	return h == 0 && m == 0 && s == 0 && d.Nanosecond() == 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	if d.isCalendarDate() {
		return d.UTC().Format(dateLayout)
	}
	return d.UTC().Format(time.RFC3339Nano)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Debt) Validate() error {
	name := strings.TrimSpace(d.CreditorName)
	if name == "" {
		return &ValidationError{Field: "creditorName", Err: ErrEmptyCreditor}
	}
	if len(name) > MaxCreditorNameLength {
		return &ValidationError{Field: "creditorName", Err: ErrCreditorTooLong}
	}
	if err := d.TotalAmount.Validate(); err != nil {
		return &ValidationError{Field: "totalAmount", Err: err}
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.DebtID) == "" {
		return &ValidationError{Field: "debtId", Err: ErrMissingReference}
	}
	if err := p.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if err := p.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	return nil
}

// IsValid reports whether t is one of the known tones.
func (t Tone) IsValid() bool {
	switch t {
	case TonePositive, ToneNeutral, ToneConcerned:
		return true
	default:
		return false
	}
}

// UnavailableAnalysis is the neutral result used whenever the advisory
// collaborator cannot answer.
func UnavailableAnalysis() AnalysisResult {
	return AnalysisResult{Message: "<unavailable>", Tone: ToneNeutral}
}
