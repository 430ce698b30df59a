package ledger

import (
	"fmt"

	"payoff/internal/core"
)

// Tx is the working copy handed to Mutate. Lookups are linear; ledgers hold
// tens to hundreds of records.
type Tx struct {
	debts    []core.Debt
	payments []core.Payment
	changed  bool
}

func (tx *Tx) debtIndex(id string) int {
	for i, d := range tx.debts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (tx *Tx) paymentIndex(id string) int {
	for i, p := range tx.payments {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (tx *Tx) Debt(id string) (core.Debt, bool) {
	if i := tx.debtIndex(id); i >= 0 {
		return tx.debts[i], true
	}
	return core.Debt{}, false
}

func (tx *Tx) Payment(id string) (core.Payment, bool) {
	if i := tx.paymentIndex(id); i >= 0 {
		return tx.payments[i], true
	}
	return core.Payment{}, false
}

func (tx *Tx) AddDebt(d core.Debt) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if tx.debtIndex(d.ID) >= 0 {
		return fmt.Errorf("debt %q already exists", d.ID)
	}
	tx.debts = append(tx.debts, d)
	tx.changed = true
	return nil
}

// RemoveDebt deletes the debt and every payment referencing it, returning how
// many payments went with it.
func (tx *Tx) RemoveDebt(id string) (int, error) {
	i := tx.debtIndex(id)
	if i < 0 {
		return 0, core.DebtNotFound(id)
	}
	tx.debts = append(tx.debts[:i], tx.debts[i+1:]...)

	kept := tx.payments[:0]
	removed := 0
	for _, p := range tx.payments {
		if p.DebtID == id {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	tx.payments = kept
	tx.changed = true
	return removed, nil
}

func (tx *Tx) AddPayment(p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if tx.debtIndex(p.DebtID) < 0 {
		return &core.ValidationError{Field: "debtId", Err: core.DebtNotFound(p.DebtID)}
	}
	if tx.paymentIndex(p.ID) >= 0 {
		return fmt.Errorf("payment %q already exists", p.ID)
	}
	tx.payments = append(tx.payments, p)
	tx.changed = true
	return nil
}

func (tx *Tx) RemovePayment(id string) (core.Payment, error) {
	i := tx.paymentIndex(id)
	if i < 0 {
		return core.Payment{}, core.PaymentNotFound(id)
	}
	p := tx.payments[i]
	tx.payments = append(tx.payments[:i], tx.payments[i+1:]...)
	tx.changed = true
	return p, nil
}

// SetDebtTotal changes the total in place. Payments are left alone even when
// the new total is below what has already been paid.
func (tx *Tx) SetDebtTotal(id string, total core.Money) (core.Debt, error) {
	if err := total.Validate(); err != nil {
		return core.Debt{}, &core.ValidationError{Field: "totalAmount", Err: err}
	}
	i := tx.debtIndex(id)
	if i < 0 {
		return core.Debt{}, core.DebtNotFound(id)
	}
	tx.debts[i].TotalAmount = total
	tx.changed = true
	return tx.debts[i], nil
}
