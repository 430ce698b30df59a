package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrMigrationParse       = errors.New("legacy data malformed")
	ErrAdvisoryUnavailable  = errors.New("advisory unavailable")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ValidationError rejects user input before any mutation happens.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NotFoundError signals an operation on an id that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MigrationParseError wraps a decode failure on a legacy blob.
type MigrationParseError struct {
	Key string
	Err error
}

func (e *MigrationParseError) Error() string {
	return fmt.Sprintf("parse legacy %s: %v", e.Key, e.Err)
}

func (e *MigrationParseError) Unwrap() []error {
	return []error{ErrMigrationParse, e.Err}
}

// AdvisoryUnavailableError describes why no assessment could be produced.
type AdvisoryUnavailableError struct {
	Reason string
	Err    error
}

func (e *AdvisoryUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisory unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("advisory unavailable (%s)", e.Reason)
}

func (e *AdvisoryUnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAdvisoryUnavailable, e.Err}
	}
	return []error{ErrAdvisoryUnavailable}
}

// DebtNotFound and PaymentNotFound are shorthands for the common lookups.
func DebtNotFound(id string) error    { return &NotFoundError{Kind: "debt", ID: id} }
func PaymentNotFound(id string) error { return &NotFoundError{Kind: "payment", ID: id} }
