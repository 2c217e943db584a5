package service

import (
	"slices"
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
)

// ChangeOperation is one item of the replay stream: either a charge or a
// transaction. The interface is sealed to those two variants.
type ChangeOperation interface {
	EffectiveDate() time.Time
	SubmittedOn() time.Time
	CreatedAt() time.Time
	isAccrualActivity() bool
	sealed()
}

type chargeChange struct{ charge *model.Charge }

func (c chargeChange) EffectiveDate() time.Time { return c.charge.EffectiveDate() }
func (c chargeChange) SubmittedOn() time.Time   { return c.charge.SubmittedOn() }
func (c chargeChange) CreatedAt() time.Time     { return c.charge.CreatedAt() }
func (chargeChange) isAccrualActivity() bool    { return false }
func (chargeChange) sealed()                    {}

type transactionChange struct{ txn *model.Transaction }

func (t transactionChange) EffectiveDate() time.Time { return t.txn.Date() }
func (t transactionChange) SubmittedOn() time.Time   { return t.txn.SubmittedOn() }
func (t transactionChange) CreatedAt() time.Time     { return t.txn.CreatedAt() }
func (t transactionChange) isAccrualActivity() bool {
	return t.txn.Type().IsAccrual()
}
func (transactionChange) sealed() {}

// CompareChangeOperations orders two items by effective date, then puts
// accrual activity after everything else on the same date, then compares
// submission date and finally creation time.
func CompareChangeOperations(a, b ChangeOperation) int {
	if c := a.EffectiveDate().Compare(b.EffectiveDate()); c != 0 {
		return c
	}
	if aa, ba := a.isAccrualActivity(), b.isAccrualActivity(); aa != ba {
		if aa {
			return 1
		}
		return -1
	}
	if c := a.SubmittedOn().Compare(b.SubmittedOn()); c != 0 {
		return c
	}
	return a.CreatedAt().Compare(b.CreatedAt())
}

// SortedChangeOperations merges charges and transactions into replay order.
// Items that compare equal keep their input order.
func SortedChangeOperations(transactions []*model.Transaction, charges []*model.Charge) []ChangeOperation {
	ops := make([]ChangeOperation, 0, len(transactions)+len(charges))
	for _, c := range charges {
		if c.IsActive() {
			ops = append(ops, chargeChange{charge: c})
		}
	}
	for _, t := range transactions {
		if !t.IsReversed() {
			ops = append(ops, transactionChange{txn: t})
		}
	}
	slices.SortStableFunc(ops, CompareChangeOperations)
	return ops
}

// sortTransactions puts transactions into replay order in place.
func sortTransactions(txns []*model.Transaction) {
	slices.SortStableFunc(txns, func(a, b *model.Transaction) int {
		return CompareChangeOperations(transactionChange{txn: a}, transactionChange{txn: b})
	})
}
