package service

import (
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/pkg/money"
)

// allocateOverpayment routes the running credit balance into installments
// the current transaction just made due. The transaction is credited with at
// most its own amount and the balance keeps whatever the schedule could not
// absorb.
func (p *Processor) allocateOverpayment(txn *model.Transaction, ctx *TransactionCtx) error {
	overpayment := ctx.Overpayment.Get()
	if !overpayment.IsPositive() {
		return nil
	}
	rule, ok := ctx.Terms.DefaultPaymentRule()
	if !ok {
		return transactionError(ErrMissingAllocationRule, txn.Type(), txn.ID())
	}

	txn.SetOverpayment(money.Min(txn.Amount(), overpayment))
	alloc := p.newAllocation(ctx, txn, actionPay, rule.FutureInstallmentRule(), false)
	ctx.Overpayment.Set(alloc.run(overpayment, rule.AllocationOrder()))
	return nil
}

// processOverpaidTransactions spends the credit balance of earlier overpaid
// transactions on a charge that has just become due. A persisted transaction
// whose allocation changes this way is replaced by a registered copy.
func (p *Processor) processOverpaidTransactions(ctx *TransactionCtx) error {
	remaining := make([]*model.Transaction, 0, len(ctx.overpaid))
	for _, txn := range ctx.overpaid {
		holder := ctx.Overpayment.Get()
		amount := money.Min(holder, txn.OverpaymentPortion())
		if !amount.IsPositive() {
			if txn.IsOverPaid() {
				remaining = append(remaining, txn)
			}
			continue
		}

		rule, ok := ctx.Terms.PaymentRuleFor(txn.Type())
		if !ok {
			return transactionError(ErrMissingAllocationRule, txn.Type(), txn.ID())
		}

		target := txn
		if txn.ID() != "" {
			target = txn.CopyWithAllocation()
			ctx.Ledger.Register(target, txn.ID())
		}

		target.SetOverpayment(target.OverpaymentPortion().Minus(amount))
		ctx.Overpayment.Set(holder.Minus(amount))

		alloc := p.newAllocation(ctx, target, actionPay, rule.FutureInstallmentRule(), true)
		unprocessed := alloc.run(amount, rule.AllocationOrder())
		target.AddComponents(alloc.balances)
		target.SetOverpayment(target.OverpaymentPortion().Plus(unprocessed))
		ctx.Overpayment.Set(ctx.Overpayment.Get().Plus(unprocessed))

		if target.IsOverPaid() {
			remaining = append(remaining, target)
		}
	}
	ctx.overpaid = remaining
	return nil
}
