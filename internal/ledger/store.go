// Package ledger owns the authoritative debts and payments collections and
// their persistence in a blob store.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"payoff/internal/core"
	"payoff/internal/storage"
)

// Blob store keys.
const (
	DebtsKey          = "debts_v2"
	PaymentsKey       = "payments_v2"
	LegacySettingsKey = "debt_settings"
	LegacyPaymentsKey = "debt_payments"
)

// Store is the single in-process owner of ledger state. All mutations go
// through Mutate, which serializes writers.
type Store struct {
	mu         sync.RWMutex
	blobs      storage.BlobStore
	debts      []core.Debt
	payments   []core.Payment
	debtIdx    map[string]int
	paymentIdx map[string]int
	generation uint64
}

func NewStore(blobs storage.BlobStore) *Store {
	return &Store{
		blobs:      blobs,
		debtIdx:    map[string]int{},
		paymentIdx: map[string]int{},
	}
}

// Load replaces in-memory state with what the blob store holds, migrating
// from the legacy single-debt layout when no current data exists.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debts, payments, err := s.readCurrent(ctx)
	if err != nil {
		return err
	}
	if debts == nil {
		debts, payments = migrateLegacy(ctx, s.blobs)
		if len(debts) > 0 {
			if err := s.persist(ctx, debts, payments); err != nil {
				// Keep serving the migrated data; the next load simply migrates again.
				slog.ErrorContext(ctx, "Failed to persist migrated ledger", "error", err)
			}
		}
	}

	s.replace(debts, payments)
	s.generation++
	slog.InfoContext(ctx, "Ledger loaded", "debts", len(s.debts), "payments", len(s.payments))
	return nil
}

// Refresh replaces in-memory state with the current-version collections
// without migrating or writing anything. Readers that share the blob store
// with the owning process use it; until that process has written the
// current layout they see an empty ledger.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debts, payments, err := s.readCurrent(ctx)
	if err != nil {
		return err
	}
	if debts == nil {
		debts, payments = []core.Debt{}, []core.Payment{}
	}
	s.replace(debts, payments)
	s.generation++
	return nil
}

// readCurrent returns nil debts when the current-version key was never written.
func (s *Store) readCurrent(ctx context.Context) ([]core.Debt, []core.Payment, error) {
	raw, found, err := s.blobs.Get(ctx, DebtsKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", DebtsKey, err)
	}
	if !found {
		return nil, nil, nil
	}
	debts := []core.Debt{}
	if err := decodeList(raw, &debts); err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", DebtsKey, err)
	}

	payments := []core.Payment{}
	raw, found, err = s.blobs.Get(ctx, PaymentsKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", PaymentsKey, err)
	}
	if found {
		if err := decodeList(raw, &payments); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", PaymentsKey, err)
		}
	}
	return debts, payments, nil
}

func decodeList[T any](raw []byte, out *[]T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}

// Save writes both collections, empty ones included.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persist(ctx, s.debts, s.payments)
}

// persist writes both collections in one batch so a failure never leaves a
// half-applied mutation on disk.
func (s *Store) persist(ctx context.Context, debts []core.Debt, payments []core.Payment) error {
	if debts == nil {
		debts = []core.Debt{}
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	pb, err := json.Marshal(payments)
	if err != nil {
		return fmt.Errorf("encode payments: %w", err)
	}
	db, err := json.Marshal(debts)
	if err != nil {
		return fmt.Errorf("encode debts: %w", err)
	}
	if err := s.blobs.SetMany(ctx, map[string][]byte{PaymentsKey: pb, DebtsKey: db}); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func (s *Store) replace(debts []core.Debt, payments []core.Payment) {
	s.debts = debts
	s.payments = payments
	s.debtIdx = make(map[string]int, len(debts))
	for i, d := range debts {
		if _, dup := s.debtIdx[d.ID]; !dup {
			s.debtIdx[d.ID] = i
		}
	}
	s.paymentIdx = make(map[string]int, len(payments))
	for i, p := range payments {
		if _, dup := s.paymentIdx[p.ID]; !dup {
			s.paymentIdx[p.ID] = i
		}
	}
}

// Mutate runs fn against a working copy. The copy becomes current only if fn
// succeeds and the result is persisted; otherwise the store is untouched.
func (s *Store) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		debts:    append([]core.Debt{}, s.debts...),
		payments: append([]core.Payment{}, s.payments...),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.changed {
		return nil
	}
	if err := s.persist(ctx, tx.debts, tx.payments); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	s.replace(tx.debts, tx.payments)
	s.generation++
	return nil
}

// Generation increases on every Load and every committed mutation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns a copy of the current state for the derivation engine.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Snapshot{
		Debts:      append([]core.Debt{}, s.debts...),
		Payments:   append([]core.Payment{}, s.payments...),
		Generation: s.generation,
	}
}

func (s *Store) Debt(id string) (core.Debt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.debtIdx[id]
	if !ok {
		return core.Debt{}, false
	}
	return s.debts[i], true
}

func (s *Store) Payment(id string) (core.Payment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.paymentIdx[id]
	if !ok {
		return core.Payment{}, false
	}
	return s.payments[i], true
}

// Debts returns the debts in insertion order.
func (s *Store) Debts() []core.Debt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Debt{}, s.debts...)
}

// Payments returns the payments in insertion order.
func (s *Store) Payments() []core.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Payment{}, s.payments...)
}
