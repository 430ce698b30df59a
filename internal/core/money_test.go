package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"500", 50000, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false}, // rounds to zero
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1e20", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	if m, err := MoneyFromFloat(12.5); err != nil || m.Cents != 1250 {
		t.Fatalf("expected 1250 cents, got %d (err=%v)", m.Cents, err)
	}
	for _, f := range []float64{0, -3, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := MoneyFromFloat(f); err == nil {
			t.Fatalf("%v expected error", f)
		}
	}
}

func TestMoneySubFloorsAtZero(t *testing.T) {
	if got := Cents(1000).Sub(Cents(1100)); got.Cents != 0 {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
	if got := Cents(1000).Sub(Cents(250)); got.Cents != 750 {
		t.Fatalf("expected 750, got %d", got.Cents)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Cents(50000), Cents(1234)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":500,"b":12.34}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":100,"b":"7.255"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.A.Cents != 10000 || in.B.Cents != 726 {
		t.Fatalf("unexpected values %d %d", in.A.Cents, in.B.Cents)
	}
	if err := json.Unmarshal([]byte(`{"a":"lots"}`), &in); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMoneyJSONRejectsOutOfRange(t *testing.T) {
	tests := []string{`1e18`, `"-1e18"`, `9223372036854775807`}
	for _, in := range tests {
		var m Money
		err := json.Unmarshal([]byte(in), &m)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Unmarshal(%s) error = %v, want ErrInvalidAmount", in, err)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`-5`), &m); err != nil || m.Cents != -500 {
		t.Errorf("in-range negative should decode for later validation, got %d err=%v", m.Cents, err)
	}
}

func TestMoneyString(t *testing.T) {
	if s := Cents(1230).String(); s != "12.30" {
		t.Fatalf("expected 12.30, got %s", s)
	}
}
