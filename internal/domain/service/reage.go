package service

import (
	"fmt"
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Re-age
// ---------------------------------------------------------------------------

// handleReAge moves the outstanding principal of the whole schedule onto a
// fresh run of trailing installments described by the re-age parameter.
func (p *Processor) handleReAge(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()
	param := txn.ReAgeParameter()
	if param == nil || param.NumberOfInstallments <= 0 || param.FrequencyNumber <= 0 || param.StartDate.IsZero() {
		return transactionError(ErrInvalidReAgeParameter, txn.Type(), txn.ID())
	}

	total := ctx.zero()
	var lastNormal *model.Installment
	for _, inst := range ctx.Schedule.Installments() {
		if !inst.IsDownPayment() && (lastNormal == nil || inst.DueDate().After(lastNormal.DueDate())) {
			lastNormal = inst
		}
		outstanding := inst.PrincipalOutstanding()
		if !outstanding.IsPositive() {
			continue
		}
		total = total.Plus(outstanding)
		inst.UpdatePrincipal(txn.Date(), inst.PrincipalCompleted().Plus(inst.PrincipalWrittenOff()))
	}
	txn.UpdateComponentsAndTotal(model.ZeroPortions(ctx.Currency).With(valueobject.AllocationTypePrincipal, total))

	n := int64(param.NumberOfInstallments)
	share := ctx.Terms.RoundToMultiples(total.DividedBy(n, p.rounding), p.rounding)
	adjustment := total.Minus(share.MultipliedBy(n))

	from := txn.Date()
	if lastNormal != nil {
		from = lastNormal.DueDate()
	}
	due := param.StartDate
	for k := 0; k < param.NumberOfInstallments; k++ {
		if k > 0 {
			next, err := stepDate(due, param.FrequencyType, param.FrequencyNumber)
			if err != nil {
				return err
			}
			due = next
		}
		principal := share
		if k == param.NumberOfInstallments-1 {
			principal = principal.Plus(adjustment)
		}
		ctx.Schedule.Append(model.NewReAgedInstallment(ctx.Schedule.Len()+1, from, due, principal))
		from = due
	}

	ctx.Schedule.Renumber()
	return nil
}

// stepDate advances d by every periods of the given frequency. Month and
// year steps clamp to the last day of the target month.
func stepDate(d time.Time, freq valueobject.FrequencyType, every int) (time.Time, error) {
	switch freq {
	case valueobject.FrequencyDays:
		return d.AddDate(0, 0, every), nil
	case valueobject.FrequencyWeeks:
		return d.AddDate(0, 0, 7*every), nil
	case valueobject.FrequencyMonths:
		return addMonthsClamped(d, every), nil
	case valueobject.FrequencyYears:
		return addMonthsClamped(d, 12*every), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrUnsupportedFrequency, freq)
}

func addMonthsClamped(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	h, mi, s := d.Clock()
	return time.Date(first.Year(), first.Month(), day, h, mi, s, d.Nanosecond(), d.Location())
}

// ---------------------------------------------------------------------------
// Re-amortization
// ---------------------------------------------------------------------------

// handleReAmortization spreads the principal shortfall of everything due on
// or before the transaction date over the regular installments still ahead.
func (p *Processor) handleReAmortization(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()

	future := ctx.Schedule.Filter(func(i *model.Installment) bool {
		return i.DueDate().After(txn.Date()) && !i.IsAdditional() && !i.IsDownPayment() && !i.IsReAged()
	})
	if len(future) == 0 {
		return fmt.Errorf("%w: re-amortization on %s", ErrNoFutureInstallments, txn.Date().Format("2006-01-02"))
	}

	shortfall := ctx.zero()
	for _, inst := range ctx.Schedule.Installments() {
		if inst.DueDate().After(txn.Date()) {
			continue
		}
		outstanding := inst.PrincipalOutstanding()
		if !outstanding.IsPositive() {
			continue
		}
		shortfall = shortfall.Plus(outstanding)
		inst.UpdatePrincipal(txn.Date(), inst.PrincipalCompleted().Plus(inst.PrincipalWrittenOff()))
	}
	txn.UpdateComponentsAndTotal(model.ZeroPortions(ctx.Currency).With(valueobject.AllocationTypePrincipal, shortfall))
	if !shortfall.IsPositive() {
		return nil
	}

	latest := future[0]
	for _, inst := range future[1:] {
		if inst.DueDate().After(latest.DueDate()) {
			latest = inst
		}
	}

	share := ctx.Terms.RoundToMultiples(shortfall.DividedBy(int64(len(future)), p.rounding), p.rounding)
	remaining := shortfall
	for _, inst := range future {
		if inst == latest {
			continue
		}
		inst.AddToPrincipal(txn.Date(), share)
		remaining = remaining.Minus(share)
	}
	latest.AddToPrincipal(txn.Date(), remaining)
	return nil
}
