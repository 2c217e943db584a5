package service

import (
	"fmt"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/pkg/money"
)

// handleDisbursement spreads a disbursed amount over the schedule. Interest
// bearing loans take the split from the interest schedule model; the others
// divide the amount evenly over the installments due after the disbursement.
func (p *Processor) handleDisbursement(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()

	var err error
	if ctx.Terms.IsInterestBearing() {
		err = p.disburseThroughModel(txn, ctx)
	} else {
		err = p.disburseEvenly(txn, ctx)
	}
	if err != nil {
		return err
	}
	return p.allocateOverpayment(txn, ctx)
}

// applyDownPayment books the configured percentage of the disbursement on
// the down payment installment and returns the amount booked.
func (p *Processor) applyDownPayment(txn *model.Transaction, ctx *TransactionCtx) (money.Money, error) {
	zero := ctx.zero()
	if !ctx.Terms.EnableDownPayment {
		return zero, nil
	}
	amount := txn.Amount().PercentageOf(ctx.Terms.DownPaymentPercentage, p.rounding)
	amount = ctx.Terms.RoundToMultiples(amount, p.rounding)
	if !amount.IsPositive() {
		return zero, nil
	}

	inst := ctx.Schedule.MinNumber(func(i *model.Installment) bool {
		return i.IsDownPayment() && i.Principal().IsZero() && !i.DueDate().Before(txn.Date())
	})
	if inst == nil {
		inst = ctx.Schedule.MinNumber(func(i *model.Installment) bool {
			return i.IsDownPayment() && i.Principal().IsZero()
		})
	}
	if inst == nil {
		return zero, fmt.Errorf("%w: disbursement on %s", ErrDownPaymentInstallmentMissing, txn.Date().Format("2006-01-02"))
	}
	inst.AddToPrincipal(txn.Date(), amount)
	return amount, nil
}

func (p *Processor) disburseThroughModel(txn *model.Transaction, ctx *TransactionCtx) error {
	if ctx.Model == nil {
		m, err := p.emi.GenerateModel(ctx.Terms, ctx.Schedule, p.rounding)
		if err != nil {
			return fmt.Errorf("generate interest schedule model: %w", err)
		}
		ctx.Model = m
	}

	downPayment, err := p.applyDownPayment(txn, ctx)
	if err != nil {
		return err
	}
	amortizable := txn.Amount().Minus(downPayment)
	if amortizable.IsPositive() {
		if err := p.emi.AddDisbursement(ctx.Model, txn.Date(), amortizable); err != nil {
			return fmt.Errorf("add disbursement to interest schedule model: %w", err)
		}
	}

	for _, period := range ctx.Model.Repayments() {
		for _, inst := range ctx.Schedule.Installments() {
			if inst.IsDownPayment() || inst.IsAdditional() || !inst.DueDate().Equal(period.DueDate) {
				continue
			}
			inst.UpdatePrincipal(txn.Date(), period.Principal)
			inst.UpdateInterest(txn.Date(), period.Interest)
		}
	}
	return nil
}

// disburseEvenly adds an equal share to every regular installment due after
// the disbursement. A running holder tracks what is still to be placed so the
// last installment absorbs the rounding difference.
func (p *Processor) disburseEvenly(txn *model.Transaction, ctx *TransactionCtx) error {
	downPayment, err := p.applyDownPayment(txn, ctx)
	if err != nil {
		return err
	}
	amortizable := txn.Amount().Minus(downPayment)
	if !amortizable.IsPositive() {
		return nil
	}

	candidates := ctx.Schedule.Filter(func(i *model.Installment) bool {
		return i.DueDate().After(txn.Date()) && !i.IsDownPayment() && !i.IsAdditional()
	})
	if len(candidates) == 0 {
		return fmt.Errorf("%w: disbursement on %s", ErrNoFutureInstallments, txn.Date().Format("2006-01-02"))
	}

	share := amortizable.DividedBy(int64(len(candidates)), p.rounding)
	holder := amortizable
	for _, inst := range candidates {
		previous := inst.Principal()
		next := ctx.Terms.RoundToMultiples(previous.Plus(share), p.rounding)
		inst.UpdatePrincipal(txn.Date(), next)
		holder = holder.Minus(next).Plus(previous)
	}
	if !holder.IsZero() {
		last := candidates[len(candidates)-1]
		last.UpdatePrincipal(txn.Date(), last.Principal().Plus(holder))
	}
	return nil
}
