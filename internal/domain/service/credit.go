package service

import (
	"fmt"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Credit transactions
// ---------------------------------------------------------------------------

// processCreditTransaction handles chargebacks and credit balance refunds.
// Without a credit allocation rule for the type the generic credit handler
// takes over; with one, a chargeback claws back the original transaction's
// allocation bucket by bucket.
func (p *Processor) processCreditTransaction(txn *model.Transaction, ctx *TransactionCtx) error {
	rule, ok := ctx.Terms.CreditRuleFor(txn.Type())
	if !ok {
		if p.credit == nil {
			return transactionError(ErrMissingCreditAllocationRule, txn.Type(), txn.ID())
		}
		switch txn.Type() {
		case valueobject.TransactionTypeChargeback, valueobject.TransactionTypeCreditBalanceRefund:
			txn.ResetDerivedComponents()
			return p.credit.ProcessCredit(txn, ctx.Schedule, ctx.Overpayment)
		}
		return transactionError(ErrUnsupportedTransactionType, txn.Type(), txn.ID())
	}
	if txn.Type() != valueobject.TransactionTypeChargeback {
		return transactionError(ErrUnsupportedTransactionType, txn.Type(), txn.ID())
	}

	txn.ResetDerivedComponents()
	amount := txn.Amount()
	if holder := ctx.Overpayment.Get(); holder.IsPositive() {
		overpaid := money.Min(holder, amount)
		txn.SetOverpayment(overpaid)
		amount = amount.Minus(overpaid)
		ctx.Overpayment.Set(holder.Minus(overpaid))
	}

	original, err := findOriginalTransaction(txn, ctx)
	if err != nil {
		return err
	}
	capacity := remainingCapacity(original, txn, ctx, rule.AllocationOrder())
	allocated := fillBuckets(capacity, amount, rule.AllocationOrder())

	recognizeChargeback(txn, ctx.Schedule, allocated)
	txn.AddComponents(allocated)
	return p.allocateOverpayment(txn, ctx)
}

// recognizeChargeback books the clawed back portions on the installment the
// credit lands on.
func recognizeChargeback(txn *model.Transaction, schedule *model.Schedule, allocated model.Portions) {
	inst, _ := schedule.CreditTarget(txn.Date())
	if allocated.Principal.IsPositive() {
		inst.AddCreditedPrincipal(allocated.Principal)
		inst.AddToPrincipal(txn.Date(), allocated.Principal)
	}
	if allocated.Interest.IsPositive() {
		inst.AddCreditedInterest(allocated.Interest)
		inst.AddToInterest(txn.Date(), allocated.Interest)
	}
	if allocated.Fee.IsPositive() {
		inst.AddCreditedFee(allocated.Fee)
		inst.AddToCharges(txn.Date(), allocated.Fee, false)
	}
	if allocated.Penalty.IsPositive() {
		inst.AddCreditedPenalty(allocated.Penalty)
		inst.AddToCharges(txn.Date(), allocated.Penalty, true)
	}
	if allocated.Total().IsPositive() {
		txn.AddMapping(inst, allocated)
	}
}

// fillBuckets spreads amount over the buckets in order. A bucket takes the
// whole residual when it has room for it and its remaining capacity
// otherwise. Whatever no bucket has room for is left unallocated.
func fillBuckets(capacity model.Portions, amount money.Money, order []valueobject.AllocationType) model.Portions {
	out := model.ZeroPortions(amount.Currency())
	residual := amount
	for _, t := range order {
		if !residual.IsPositive() {
			break
		}
		room := capacity.Get(t)
		if !room.IsPositive() {
			continue
		}
		take := money.Min(room, residual)
		out = out.With(t, out.Get(t).Plus(take))
		residual = residual.Minus(take)
	}
	return out
}

// remainingCapacity returns what is left of the original allocation after
// the chargebacks against it that were replayed before current.
func remainingCapacity(original, current *model.Transaction, ctx *TransactionCtx, order []valueobject.AllocationType) model.Portions {
	capacity := original.Portions()
	for _, former := range formerChargebacks(original, current, ctx) {
		taken := fillBuckets(capacity, former.Amount(), order)
		for _, t := range valueobject.AllocationTypes {
			capacity = capacity.With(t, capacity.Get(t).MinusOrZero(taken.Get(t)))
		}
	}
	return capacity
}

// formerChargebacks lists the live chargebacks of original that sort before
// current, in replay order.
func formerChargebacks(original, current *model.Transaction, ctx *TransactionCtx) []*model.Transaction {
	currentID := current.ID()
	if currentID == "" {
		currentID, _ = ctx.Ledger.OldIDOf(current)
	}

	var out []*model.Transaction
	seen := make(map[*model.Transaction]bool)
	for _, r := range original.Relations() {
		if r.Type != valueobject.RelationTypeChargeback {
			continue
		}
		cb := r.To
		if cb == nil {
			cb = findByID(ctx.Transactions, r.TargetID())
		}
		if cb == nil || cb == current || cb.IsReversed() || seen[cb] {
			continue
		}
		if currentID != "" && cb.ID() == currentID {
			continue
		}
		if CompareChangeOperations(transactionChange{txn: cb}, transactionChange{txn: current}) >= 0 {
			continue
		}
		seen[cb] = true
		out = append(out, cb)
	}
	sortTransactions(out)
	return out
}

// findOriginalTransaction resolves the transaction a chargeback claws back
// from: the one carrying a chargeback relation to it. Mid-replay copies are
// matched through the identity of the transaction they replace, and replayed
// originals take precedence over persisted ones.
func findOriginalTransaction(cb *model.Transaction, ctx *TransactionCtx) (*model.Transaction, error) {
	id := cb.ID()
	if id == "" {
		id, _ = ctx.Ledger.OldIDOf(cb)
		for _, t := range ctx.Ledger.NewTransactions() {
			if !t.IsReversed() && t.HasRelationTo(valueobject.RelationTypeChargeback, cb, id) {
				return t, nil
			}
		}
	}
	for _, t := range ctx.Transactions {
		if t.IsReversed() {
			continue
		}
		if replacement, ok := ctx.Ledger.ReplacementFor(t.ID()); ok && t.ID() != "" {
			if replacement.HasRelationTo(valueobject.RelationTypeChargeback, cb, id) {
				return replacement, nil
			}
		}
		if t.HasRelationTo(valueobject.RelationTypeChargeback, cb, id) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: chargeback %s on %s", ErrOriginalTransactionNotFound, cb.ID(), cb.Date().Format("2006-01-02"))
}

func findByID(transactions []*model.Transaction, id string) *model.Transaction {
	if id == "" {
		return nil
	}
	for _, t := range transactions {
		if t.ID() == id {
			return t
		}
	}
	return nil
}
