package service

import (
	"slices"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// paymentAction is the direction money moves between a transaction and the
// schedule.
type paymentAction int

const (
	actionPay paymentAction = iota
	actionUnpay
)

// allocation is one run of the allocation engine for a single transaction.
// Portions accumulate into balances and mappings are merged into the
// transaction as installments are touched.
type allocation struct {
	p            *Processor
	ctx          *TransactionCtx
	txn          *model.Transaction
	action       paymentAction
	future       valueobject.FutureInstallmentAllocationRule
	trackCharges bool
	balances     model.Portions
}

func (p *Processor) newAllocation(
	ctx *TransactionCtx,
	txn *model.Transaction,
	action paymentAction,
	future valueobject.FutureInstallmentAllocationRule,
	trackCharges bool,
) *allocation {
	return &allocation{
		p:            p,
		ctx:          ctx,
		txn:          txn,
		action:       action,
		future:       future,
		trackCharges: trackCharges,
		balances:     model.ZeroPortions(ctx.Currency),
	}
}

// run distributes amount over the schedule in the configured processing
// mode and returns what could not be placed.
func (a *allocation) run(amount money.Money, order []valueobject.PaymentAllocationType) money.Money {
	if a.ctx.Terms.ProcessingType.IsVertical() {
		for _, pt := range order {
			amount = a.vertically(amount, pt)
			if !amount.IsPositive() {
				break
			}
		}
		return amount
	}
	for _, group := range groupByDueType(order) {
		amount = a.horizontally(amount, group)
		if !amount.IsPositive() {
			break
		}
	}
	return amount
}

// groupByDueType splits the order into due-type groups, keeping the first
// occurrence order of each due type and the rule order inside each group.
func groupByDueType(order []valueobject.PaymentAllocationType) [][]valueobject.PaymentAllocationType {
	var (
		groups [][]valueobject.PaymentAllocationType
		index  = map[valueobject.DueType]int{}
	)
	for _, pt := range order {
		idx, ok := index[pt.DueType()]
		if !ok {
			idx = len(groups)
			index[pt.DueType()] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], pt)
	}
	return groups
}

// ---------------------------------------------------------------------------
// Horizontal mode
// ---------------------------------------------------------------------------

func (a *allocation) horizontally(amount money.Money, group []valueobject.PaymentAllocationType) money.Money {
	if !amount.IsPositive() {
		return amount
	}
	schedule := a.ctx.Schedule
	for {
		before := amount
		exit := false

		candidate := a.candidate
		pastDue := a.pick(func(i *model.Installment) bool { return candidate(i) && a.txn.IsAfter(i.DueDate()) })
		due := a.pick(func(i *model.Installment) bool { return candidate(i) && a.txn.IsOn(i.DueDate()) })
		inAdvance := a.selectFuture(func(i *model.Installment) bool { return candidate(i) && a.txn.IsBefore(i.DueDate()) })

		for _, pt := range group {
			switch pt.DueType() {
			case valueobject.DueTypePastDue:
				if pastDue == nil {
					exit = true
					continue
				}
				amount = amount.Minus(a.allocate(pt, pastDue, amount))
			case valueobject.DueTypeDue:
				if due == nil {
					exit = true
					continue
				}
				amount = amount.Minus(a.allocate(pt, due, amount))
			case valueobject.DueTypeInAdvance:
				if len(inAdvance) == 0 {
					exit = true
					continue
				}
				amount = a.allocateEvenly(pt, inAdvance, amount)
			}
		}

		if exit || !amount.IsPositive() || !schedule.AnyMatch(candidate) || amount.Equal(before) {
			return amount
		}
	}
}

// ---------------------------------------------------------------------------
// Vertical mode
// ---------------------------------------------------------------------------

func (a *allocation) vertically(amount money.Money, pt valueobject.PaymentAllocationType) money.Money {
	schedule := a.ctx.Schedule
	pred := func(i *model.Installment) bool {
		return a.bucketAvailable(pt.AllocationType(), i) && a.dueRelation(pt.DueType(), i)
	}
	for amount.IsPositive() && schedule.AnyMatch(pred) {
		before := amount
		switch pt.DueType() {
		case valueobject.DueTypeInAdvance:
			if insts := a.selectFuture(pred); len(insts) > 0 {
				amount = a.allocateEvenly(pt, insts, amount)
			}
		default:
			if inst := a.pick(pred); inst != nil {
				amount = amount.Minus(a.allocate(pt, inst, amount))
			}
		}
		if amount.Equal(before) {
			break
		}
	}
	return amount
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// candidate reports whether an installment can still take part: unpaid
// installments when paying, installments holding payments when unpaying.
func (a *allocation) candidate(i *model.Installment) bool {
	if a.action == actionUnpay {
		return i.TotalPaid().IsPositive()
	}
	return i.IsNotFullyPaidOff()
}

// pick returns the oldest matching installment when paying and the most
// recent one when unpaying.
func (a *allocation) pick(pred func(*model.Installment) bool) *model.Installment {
	if a.action == actionUnpay {
		return a.ctx.Schedule.MaxNumber(pred)
	}
	return a.ctx.Schedule.MinNumber(pred)
}

// selectFuture applies the future installment policy to the matching
// installments.
func (a *allocation) selectFuture(pred func(*model.Installment) bool) []*model.Installment {
	schedule := a.ctx.Schedule
	switch a.future {
	case valueobject.FutureInstallmentNextInstallment:
		if inst := schedule.MinNumber(pred); inst != nil {
			return []*model.Installment{inst}
		}
		return nil
	case valueobject.FutureInstallmentLastInstallment:
		if inst := schedule.MaxNumber(pred); inst != nil {
			return []*model.Installment{inst}
		}
		return nil
	default:
		return schedule.Filter(pred)
	}
}

func (a *allocation) dueRelation(dt valueobject.DueType, i *model.Installment) bool {
	switch dt {
	case valueobject.DueTypePastDue:
		return a.txn.IsAfter(i.DueDate())
	case valueobject.DueTypeDue:
		return a.txn.IsOn(i.DueDate())
	default:
		return a.txn.IsBefore(i.DueDate())
	}
}

// bucketAvailable reports whether the bucket can move money in the current
// direction: outstanding when paying, paid when unpaying.
func (a *allocation) bucketAvailable(t valueobject.AllocationType, i *model.Installment) bool {
	if a.action == actionUnpay {
		switch t {
		case valueobject.AllocationTypePenalty:
			return i.PenaltyPaid().IsPositive()
		case valueobject.AllocationTypeFee:
			return i.FeePaid().IsPositive()
		case valueobject.AllocationTypeInterest:
			return i.InterestPaid().IsPositive()
		default:
			return i.PrincipalCompleted().IsPositive()
		}
	}
	switch t {
	case valueobject.AllocationTypePenalty:
		return i.PenaltyOutstanding().IsPositive()
	case valueobject.AllocationTypeFee:
		return i.FeeOutstanding().IsPositive()
	case valueobject.AllocationTypeInterest:
		return i.InterestOutstanding().IsPositive()
	default:
		return i.PrincipalOutstanding().IsPositive()
	}
}

// ---------------------------------------------------------------------------
// Moving money
// ---------------------------------------------------------------------------

// allocateEvenly splits amount across insts. The integer-division remainder
// goes to the last installment so the shares always add up to amount.
func (a *allocation) allocateEvenly(pt valueobject.PaymentAllocationType, insts []*model.Installment, amount money.Money) money.Money {
	n := int64(len(insts))
	share := amount.DividedBy(n, a.p.rounding)
	adjustment := amount.Minus(share.MultipliedBy(n))
	for idx, inst := range insts {
		portion := share
		if idx == len(insts)-1 {
			portion = portion.Plus(adjustment)
		}
		amount = amount.Minus(a.allocate(pt, inst, portion))
	}
	return amount
}

// allocate moves up to amount between the transaction and one bucket of inst
// and records the result in the balances and the mapping.
func (a *allocation) allocate(pt valueobject.PaymentAllocationType, inst *model.Installment, amount money.Money) money.Money {
	date := a.txn.Date()
	zero := a.ctx.zero()
	if !amount.IsPositive() {
		return zero
	}

	var portion money.Money
	switch pt.AllocationType() {
	case valueobject.AllocationTypePenalty:
		if a.action == actionUnpay {
			portion = inst.UnpayPenalty(date, amount)
		} else {
			portion = inst.PayPenalty(date, amount)
		}
		a.settleCharges(inst, portion, true)
	case valueobject.AllocationTypeFee:
		if a.action == actionUnpay {
			portion = inst.UnpayFee(date, amount)
		} else {
			portion = inst.PayFee(date, amount)
		}
		a.settleCharges(inst, portion, false)
	case valueobject.AllocationTypeInterest:
		if a.action == actionUnpay {
			portion = inst.UnpayInterest(date, amount)
		} else {
			portion = inst.PayInterest(date, amount)
		}
	default:
		if a.action == actionUnpay {
			portion = inst.UnpayPrincipal(date, amount)
		} else {
			portion = inst.PayPrincipal(date, amount)
		}
	}

	contribution := model.ZeroPortions(a.ctx.Currency).With(pt.AllocationType(), portion)
	a.balances = a.balances.Plus(contribution)
	if portion.IsPositive() {
		a.txn.AddMapping(inst, contribution)
	}
	return portion
}

// settleCharges spreads a fee or penalty portion over the charges falling in
// the installment's window, oldest due first when paying and newest first
// when unpaying.
func (a *allocation) settleCharges(inst *model.Installment, portion money.Money, penalty bool) {
	if !a.trackCharges || !portion.IsPositive() {
		return
	}
	charges := chargesOfInstallment(a.ctx, inst, penalty)
	if a.action == actionUnpay {
		slices.Reverse(charges)
	}
	remaining := portion
	for _, c := range charges {
		if !remaining.IsPositive() {
			break
		}
		var moved money.Money
		if a.action == actionUnpay {
			moved = c.Unpay(remaining)
		} else {
			moved = c.Pay(remaining)
			if moved.IsPositive() {
				a.txn.AddChargePaidBy(model.ChargePaidBy{Charge: c, Amount: moved, InstallmentNumber: inst.Number()})
			}
		}
		remaining = remaining.Minus(moved)
	}
}

// chargesOfInstallment returns the active schedule charges of one kind whose
// due date falls in the installment's window, ordered by due date.
func chargesOfInstallment(ctx *TransactionCtx, inst *model.Installment, penalty bool) []*model.Charge {
	first := inst.Number() == ctx.Schedule.FirstNormalNumber()
	var out []*model.Charge
	for _, c := range ctx.Charges {
		if !c.IsActive() || c.IsDueAtDisbursement() || c.IsPenalty() != penalty || !c.HasDueDate() {
			continue
		}
		if inst.ContainsDate(c.DueDate(), first) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(x, y *model.Charge) int { return x.DueDate().Compare(y.DueDate()) })
	return out
}
