package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-01")
	if err != nil || !d.Equal(NewDate(2024, 2, 1).Time) {
		t.Fatalf("unexpected date %v (err=%v)", d, err)
	}
	d, err = ParseDate("2024-01-01T10:30:00.000Z")
	if err != nil || d.Hour() != 10 || d.Minute() != 30 {
		t.Fatalf("unexpected timestamp %v (err=%v)", d, err)
	}
	if _, err := ParseDate("01/02/2024"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
	if _, err := ParseDate(" "); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
}

func TestDateJSON(t *testing.T) {
	b, _ := json.Marshal(NewDate(2024, 2, 1))
	if string(b) != `"2024-02-01"` {
		t.Fatalf("calendar date should serialize as day, got %s", b)
	}
	ts := Date{Time: time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)}
	b, _ = json.Marshal(ts)
	if string(b) != `"2024-01-01T09:15:00Z"` {
		t.Fatalf("timestamp should serialize as RFC 3339, got %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil || !back.Equal(ts.Time) {
		t.Fatalf("unexpected round trip %v (err=%v)", back, err)
	}
}

func TestDebtValidate(t *testing.T) {
	good := NewDebt("  Ana ", Cents(50000), time.Now())
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.CreditorName != "Ana" {
		t.Fatalf("expected trimmed name, got %q", good.CreditorName)
	}
	if good.ID == "" {
		t.Fatalf("expected generated id")
	}

	bads := []Debt{
		{CreditorName: "", TotalAmount: Cents(1)},
		{CreditorName: "   ", TotalAmount: Cents(1)},
		{CreditorName: strings.Repeat("x", MaxCreditorNameLength+1), TotalAmount: Cents(1)},
		{CreditorName: "Ana", TotalAmount: Cents(0)},
		{CreditorName: "Ana", TotalAmount: Cents(-5)},
	}
	for i, d := range bads {
		err := d.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected ErrValidation, got %v", i, err)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	good := NewPayment("d1", Cents(100), NewDate(2024, 2, 1), " rata ")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Note != "rata" {
		t.Fatalf("expected trimmed note, got %q", good.Note)
	}

	bads := []Payment{
		{DebtID: "", Date: NewDate(2024, 1, 1), Amount: Cents(1)},
		{DebtID: "d1", Amount: Cents(1)},
		{DebtID: "d1", Date: NewDate(2024, 1, 1), Amount: Cents(0)},
	}
	for i, p := range bads {
		var verr *ValidationError
		if err := p.Validate(); !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	if err := DebtNotFound("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
	perr := &MigrationParseError{Key: "debt_settings", Err: errors.New("boom")}
	if !errors.Is(perr, ErrMigrationParse) {
		t.Fatalf("expected ErrMigrationParse")
	}
	aerr := &AdvisoryUnavailableError{Reason: "timeout"}
	if !errors.Is(aerr, ErrAdvisoryUnavailable) || errors.Is(aerr, ErrNotFound) {
		t.Fatalf("unexpected advisory error matching")
	}
}

func TestToneIsValid(t *testing.T) {
	for _, tone := range []Tone{TonePositive, ToneNeutral, ToneConcerned} {
		if !tone.IsValid() {
			t.Fatalf("%s should be valid", tone)
		}
	}
	if Tone("angry").IsValid() {
		t.Fatalf("unknown tone should be invalid")
	}
	if r := UnavailableAnalysis(); r.Tone != ToneNeutral || r.Message != "<unavailable>" {
		t.Fatalf("unexpected fallback %+v", r)
	}
}
