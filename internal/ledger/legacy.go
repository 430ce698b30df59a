package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"payoff/internal/core"
	"payoff/internal/storage"
)

// legacySettings is the single-debt configuration record of the old layout.
type legacySettings struct {
	IsSet        bool       `json:"isSet"`
	CreditorName string     `json:"creditorName"`
	TotalAmount  core.Money `json:"totalAmount"`
	StartDate    core.Date  `json:"startDate"`
}

// legacyPayment predates multi-debt support and carries no debt reference.
type legacyPayment struct {
	ID     legacyID   `json:"id"`
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
	Note   string     `json:"note"`
}

// legacyID accepts both string ids and the numeric timestamp ids older
// clients wrote. Numbers keep their literal digits.
type legacyID string

func (id *legacyID) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*id = ""
	case string:
		*id = legacyID(strings.TrimSpace(t))
	case json.Number:
		*id = legacyID(t.String())
	default:
		return fmt.Errorf("legacy payment id must be a string or number, got %s", data)
	}
	return nil
}

// migrateLegacy synthesizes current-layout collections from the legacy keys.
// It never fails: unreadable or malformed legacy data counts as absent.
// Legacy keys are left untouched.
func migrateLegacy(ctx context.Context, blobs storage.BlobStore) ([]core.Debt, []core.Payment) {
	debts, payments := []core.Debt{}, []core.Payment{}

	settings, err := readLegacySettings(ctx, blobs)
	if err != nil {
		logMigrationFailure(ctx, err)
		return debts, payments
	}
	legacy, err := readLegacyPayments(ctx, blobs)
	if err != nil {
		logMigrationFailure(ctx, err)
		return debts, payments
	}

	if settings == nil || !settings.IsSet {
		if len(legacy) > 0 {
			slog.WarnContext(ctx, "Discarding legacy payments without a configured legacy debt", "count", len(legacy))
		}
		return debts, payments
	}

	debt := core.Debt{
		ID:           uuid.NewString(),
		CreditorName: strings.TrimSpace(settings.CreditorName),
		TotalAmount:  settings.TotalAmount,
		StartDate:    settings.StartDate,
	}
	if err := debt.Validate(); err != nil {
		logMigrationFailure(ctx, &core.MigrationParseError{Key: LegacySettingsKey, Err: err})
		return debts, payments
	}
	debts = append(debts, debt)

	seen := make(map[string]struct{}, len(legacy))
	for _, lp := range legacy {
		p := core.Payment{
			ID:     string(lp.ID),
			DebtID: debt.ID,
			Date:   lp.Date,
			Amount: lp.Amount,
			Note:   lp.Note,
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, dup := seen[p.ID]; dup {
			p.ID = uuid.NewString()
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping invalid legacy payment", "id", lp.ID, "error", err)
			continue
		}
		seen[p.ID] = struct{}{}
		payments = append(payments, p)
	}

	slog.InfoContext(ctx, "Migrated legacy single-debt data",
		"debt_id", debt.ID,
		"creditor", debt.CreditorName,
		"payments", len(payments))
	return debts, payments
}

func readLegacySettings(ctx context.Context, blobs storage.BlobStore) (*legacySettings, error) {
	raw, found, err := blobs.Get(ctx, LegacySettingsKey)
	if err != nil {
		return nil, &core.MigrationParseError{Key: LegacySettingsKey, Err: err}
	}
	if !found || len(raw) == 0 {
		return nil, nil
	}
	var s legacySettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &core.MigrationParseError{Key: LegacySettingsKey, Err: err}
	}
	return &s, nil
}

func readLegacyPayments(ctx context.Context, blobs storage.BlobStore) ([]legacyPayment, error) {
	raw, found, err := blobs.Get(ctx, LegacyPaymentsKey)
	if err != nil {
		return nil, &core.MigrationParseError{Key: LegacyPaymentsKey, Err: err}
	}
	if !found || len(raw) == 0 {
		return nil, nil
	}
	var ps []legacyPayment
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, &core.MigrationParseError{Key: LegacyPaymentsKey, Err: err}
	}
	return ps, nil
}

func logMigrationFailure(ctx context.Context, err error) {
	var perr *core.MigrationParseError
	key := ""
	if errors.As(err, &perr) {
		key = perr.Key
	}
	slog.ErrorContext(ctx, "Legacy migration skipped, starting empty", "key", key, "error", err)
}
