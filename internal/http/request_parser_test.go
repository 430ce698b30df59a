package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payoff/internal/core"
)

func TestAmountInput(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCents int64
		wantErr   bool
	}{
		{name: "json number", body: `{"amount": 12.5}`, wantCents: 1250},
		{name: "integer", body: `{"amount": 500}`, wantCents: 50000},
		{name: "dot string", body: `{"amount": "12.34"}`, wantCents: 1234},
		{name: "comma string rounds half up", body: `{"amount": "12,345"}`, wantCents: 1235},
		{name: "zero", body: `{"amount": 0}`, wantErr: true},
		{name: "negative", body: `{"amount": -3}`, wantErr: true},
		{name: "not numeric", body: `{"amount": "abc"}`, wantErr: true},
		{name: "missing", body: `{}`, wantErr: true},
		{name: "null", body: `{"amount": null}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req addPaymentRequest
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if err := decodeJSON(httptest.NewRecorder(), r, &req); err != nil {
				t.Fatalf("decodeJSON: %v", err)
			}
			m, err := req.Amount.Money("amount")
			if tt.wantErr {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != "amount" {
					t.Fatalf("expected validation error on amount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Money: %v", err)
			}
			if m.Cents != tt.wantCents {
				t.Errorf("cents = %d, want %d", m.Cents, tt.wantCents)
			}
		})
	}
}

func TestDecodeJSON_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{name: "empty body", body: ""},
		{name: "unknown field", body: `{"creditorName":"Ana","totalAmount":1,"extra":true}`},
		{name: "trailing object", body: `{"creditorName":"Ana"}{"creditorName":"Bob"}`},
		{name: "malformed", body: `{"creditorName":`},
		{name: "boolean amount", body: `{"totalAmount":true}`},
		{name: "form content type", body: `{}`, contentType: "application/x-www-form-urlencoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/debts", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req createDebtRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"creditorName":"` + strings.Repeat("a", maxBodyBytes) + `","totalAmount":1}`
	r := httptest.NewRequest(http.MethodPost, "/debts", strings.NewReader(body))
	var req createDebtRequest
	if err := decodeJSON(httptest.NewRecorder(), r, &req); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for oversized body, got %v", err)
	}
}

func TestParsePaymentDate(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "blank defaults to today", in: "  ", want: "2024-06-15"},
		{name: "calendar date", in: "2024-02-01", want: "2024-02-01"},
		{name: "timestamp", in: "2024-02-01T10:00:00Z", want: "2024-02-01T10:00:00Z"},
		{name: "garbage", in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePaymentDate(tt.in, today)
			if tt.wantErr {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != "date" {
					t.Fatalf("expected validation error on date, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePaymentDate: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("date = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseBoolQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"confirm=true", true},
		{"confirm=1", true},
		{"confirm=yes", false},
		{"confirm=false", false},
		{"other=true", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodDelete, "/debts/x?"+tt.query, nil)
		if got := parseBoolQuery(r, "confirm"); got != tt.want {
			t.Errorf("parseBoolQuery(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Ana  ", "Ana"},
		{"line\x00break\x07", "linebreak"},
		{"tab\tok", "tab\tok"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := truncateRunes("àèìòù", 3); got != "àèì" {
		t.Errorf("truncateRunes = %q", got)
	}
}
