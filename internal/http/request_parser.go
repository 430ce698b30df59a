// Package http provides the JSON API server and its handlers.
//
// This file implements decoding and validation of request bodies and query
// parameters into domain values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"payoff/internal/core"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 64 << 10

// AmountInput accepts an amount written as a JSON number (12.5) or string
// ("12,50"). The raw text is kept so parsing goes through core.ParseAmount.
type AmountInput struct {
	raw string
	set bool
}

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = AmountInput{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput{raw: s, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or numeric string")
	}
	*a = AmountInput{raw: n.String(), set: true}
	return nil
}

// Money parses the amount, reporting problems against field.
func (a AmountInput) Money(field string) (core.Money, error) {
	if !a.set {
		return core.Money{}, &core.ValidationError{Field: field, Err: core.ErrInvalidAmount}
	}
	m, err := core.ParseAmount(a.raw)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Err: err}
	}
	return m, nil
}

type createDebtRequest struct {
	CreditorName string      `json:"creditorName"`
	TotalAmount  AmountInput `json:"totalAmount"`
}

type editTotalRequest struct {
	TotalAmount AmountInput `json:"totalAmount"`
}

type addPaymentRequest struct {
	Amount AmountInput `json:"amount"`
	Date   string      `json:"date"`
	Note   string      `json:"note"`
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &core.ValidationError{Field: "body", Err: fmt.Errorf("content type %q is not application/json", ct)}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		return &core.ValidationError{Field: "body", Err: err}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Err: errors.New("request body must contain a single JSON object")}
	}
	return nil
}

// parsePaymentDate parses a payment date, defaulting to today when blank.
func parsePaymentDate(s string, today core.Date) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Err: err}
	}
	return d, nil
}

// parseBoolQuery reads a boolean query flag such as ?confirm=true. Missing
// or malformed values are false.
func parseBoolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return err == nil && v
}
