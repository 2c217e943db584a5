package service

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Processor – replays a loan's history against its schedule
// ---------------------------------------------------------------------------

// Processor allocates loan transactions to installments. One Processor may
// serve many loans, but a single replay is strictly sequential and callers
// must serialise replays of the same loan.
type Processor struct {
	emi      port.EMICalculator
	charges  port.ChargeReprocessor
	credit   port.CreditTransactionHandler
	rounding money.RoundingMode
	logger   *slog.Logger
}

// NewProcessor creates a processor. Every division of every replay it runs
// uses the given rounding mode.
func NewProcessor(
	emi port.EMICalculator,
	charges port.ChargeReprocessor,
	credit port.CreditTransactionHandler,
	rounding money.RoundingMode,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		emi:      emi,
		charges:  charges,
		credit:   credit,
		rounding: rounding,
		logger:   logger,
	}
}

// RoundingMode returns the mode divisions are rounded with.
func (p *Processor) RoundingMode() money.RoundingMode { return p.rounding }

// Outcome is the result of a full replay.
type Outcome struct {
	Ledger *model.ChangeLedger
	// Overpayment is the credit balance left after the last item.
	Overpayment money.Money
}

// Reprocess replays every active transaction and charge against schedule and
// returns the transactions whose allocation changed.
func (p *Processor) Reprocess(
	terms model.LoanTerms,
	disbursementDate time.Time,
	transactions []*model.Transaction,
	currency money.Currency,
	schedule *model.Schedule,
	charges []*model.Charge,
) (*model.ChangeLedger, error) {
	out, err := p.Replay(terms, disbursementDate, transactions, currency, schedule, charges)
	if err != nil {
		return nil, err
	}
	return out.Ledger, nil
}

// Replay is Reprocess returning the closing credit balance as well.
func (p *Processor) Replay(
	terms model.LoanTerms,
	disbursementDate time.Time,
	transactions []*model.Transaction,
	currency money.Currency,
	schedule *model.Schedule,
	charges []*model.Charge,
) (Outcome, error) {
	ctx := NewTransactionCtx(currency, terms, disbursementDate, schedule, charges, transactions)
	if len(transactions) == 0 {
		return Outcome{Ledger: ctx.Ledger, Overpayment: ctx.zero()}, nil
	}

	for _, c := range charges {
		if !c.IsDueAtDisbursement() {
			c.ResetPaidAmount()
		}
	}
	schedule.RemoveIf(func(i *model.Installment) bool { return i.IsReAged() || i.IsAdditional() })
	addChargeOnlyInstallment(schedule, charges)
	for _, inst := range schedule.Installments() {
		inst.ResetBalances(disbursementDate)
	}

	if terms.IsInterestBearing() {
		m, err := p.emi.GenerateModel(terms, schedule, p.rounding)
		if err != nil {
			return Outcome{}, fmt.Errorf("generate interest schedule model: %w", err)
		}
		ctx.Model = m
	}

	for _, op := range SortedChangeOperations(transactions, charges) {
		switch op := op.(type) {
		case transactionChange:
			processed, err := p.processSingleTransaction(op.txn, ctx)
			if err != nil {
				return Outcome{}, err
			}
			if processed.IsOverPaid() && processed.Type().IsRepaymentLike() {
				ctx.overpaid = append(ctx.overpaid, processed)
			}
		case chargeChange:
			p.charges.Reprocess(op.charge, schedule, disbursementDate)
			if !op.charge.IsFullyPaid() && len(ctx.overpaid) > 0 {
				if err := p.processOverpaidTransactions(ctx); err != nil {
					return Outcome{}, err
				}
			}
		}
	}

	relinkRelations(ctx)
	schedule.Renumber()
	return Outcome{Ledger: ctx.Ledger, Overpayment: ctx.Overpayment.Get()}, nil
}

// processSingleTransaction replays txn. Persisted transactions are replayed
// on a copy that is registered in the ledger; the copy is dropped again when
// it reproduces the persisted allocation and no other transaction on the same
// date was superseded. It returns the transaction that now carries the
// allocation.
func (p *Processor) processSingleTransaction(txn *model.Transaction, ctx *TransactionCtx) (*model.Transaction, error) {
	if txn.ID() == "" {
		return txn, p.ProcessLatestTransaction(txn, ctx)
	}

	replay := txn.CopyForReplay()
	ctx.Ledger.Register(replay, txn.ID())
	if err := p.ProcessLatestTransaction(replay, ctx); err != nil {
		return nil, err
	}

	if !ctx.Ledger.OtherOnDate(replay, txn.Date()) && txn.AmountsMatch(replay) {
		txn.AdoptAllocation(replay)
		ctx.Ledger.Remove(replay)
		return txn, nil
	}
	return replay, nil
}

// ProcessLatestTransaction dispatches one transaction to its handler. It is
// used by the full replay and by callers appending a single transaction to
// an already replayed schedule.
func (p *Processor) ProcessLatestTransaction(txn *model.Transaction, ctx *TransactionCtx) error {
	t := txn.Type()
	switch {
	case t == valueobject.TransactionTypeDisbursement:
		return p.handleDisbursement(txn, ctx)
	case t == valueobject.TransactionTypeWriteOff:
		p.handleWriteOff(txn, ctx)
	case t == valueobject.TransactionTypeRefundForActiveLoan:
		return p.handleRefund(txn, ctx)
	case t == valueobject.TransactionTypeChargeback:
		return p.processCreditTransaction(txn, ctx)
	case t == valueobject.TransactionTypeCreditBalanceRefund:
		return p.processCreditTransaction(txn, ctx)
	case t.IsRepaymentLike(), t == valueobject.TransactionTypeWaiveInterest, t == valueobject.TransactionTypeRecoveryRepayment:
		return p.handleRepayment(txn, ctx)
	case t == valueobject.TransactionTypeChargeOff:
		p.handleChargeOff(txn, ctx)
	case t == valueobject.TransactionTypeChargePayment:
		return p.handleChargePayment(txn, ctx)
	case t == valueobject.TransactionTypeWaiveCharges:
		p.logger.Debug("skipping transaction, waived charges are not replayed",
			"transaction_type", t.String(),
			"transaction_id", txn.ID(),
		)
	case t == valueobject.TransactionTypeReAmortize:
		return p.handleReAmortization(txn, ctx)
	case t == valueobject.TransactionTypeReAge:
		return p.handleReAge(txn, ctx)
	default:
		p.logger.Warn("unhandled transaction type, skipping",
			"transaction_type", t.String(),
			"transaction_id", txn.ID(),
		)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Repayment
// ---------------------------------------------------------------------------

func (p *Processor) handleRepayment(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()
	return p.processTransaction(txn, ctx, txn.Amount())
}

// processTransaction allocates amount with the rule configured for the
// transaction type and parks the remainder as overpayment.
func (p *Processor) processTransaction(txn *model.Transaction, ctx *TransactionCtx, amount money.Money) error {
	rule, ok := ctx.Terms.PaymentRuleFor(txn.Type())
	if !ok {
		return transactionError(ErrMissingAllocationRule, txn.Type(), txn.ID())
	}
	alloc := p.newAllocation(ctx, txn, actionPay, rule.FutureInstallmentRule(), true)
	if amount.IsPositive() {
		amount = alloc.run(amount, rule.AllocationOrder())
	}
	txn.AddComponents(alloc.balances)
	handleOverpayment(amount, txn, ctx)
	return nil
}

// handleOverpayment adds whatever a transaction could not place to the
// running credit balance.
func handleOverpayment(unprocessed money.Money, txn *model.Transaction, ctx *TransactionCtx) {
	if !unprocessed.IsPositive() {
		return
	}
	ctx.Overpayment.Set(ctx.Overpayment.Get().Plus(unprocessed))
	txn.SetOverpayment(unprocessed)
}

// ---------------------------------------------------------------------------
// Refund
// ---------------------------------------------------------------------------

// handleRefund takes money back out of paid installments, newest first. A
// loan without a rule for the refund type reverses the DEFAULT order and
// unpays the last installment first.
func (p *Processor) handleRefund(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()
	rule, ok := ctx.Terms.PaymentRuleFor(txn.Type())
	if !ok {
		return transactionError(ErrMissingAllocationRule, txn.Type(), txn.ID())
	}

	order := rule.AllocationOrder()
	future := rule.FutureInstallmentRule()
	if rule.IsDefault() {
		slices.Reverse(order)
		future = valueobject.FutureInstallmentLastInstallment
	}

	alloc := p.newAllocation(ctx, txn, actionUnpay, future, true)
	alloc.run(txn.Amount(), order)
	txn.AddComponents(alloc.balances)
	return nil
}

// ---------------------------------------------------------------------------
// Write-off and charge-off
// ---------------------------------------------------------------------------

// handleWriteOff writes off everything outstanding. The transaction amount
// becomes the total written off.
func (p *Processor) handleWriteOff(txn *model.Transaction, ctx *TransactionCtx) {
	txn.ResetDerivedComponents()
	total := model.ZeroPortions(ctx.Currency)
	for _, inst := range ctx.Schedule.Installments() {
		if !inst.IsNotFullyPaidOff() {
			continue
		}
		written := inst.WriteOffOutstanding(txn.Date())
		if written.Total().IsPositive() {
			txn.AddMapping(inst, written)
		}
		total = total.Plus(written)
	}
	txn.UpdateComponentsAndTotal(total)
}

// handleChargeOff records the outstanding breakdown without touching the
// schedule.
func (p *Processor) handleChargeOff(txn *model.Transaction, ctx *TransactionCtx) {
	txn.ResetDerivedComponents()
	total := model.ZeroPortions(ctx.Currency)
	for _, inst := range ctx.Schedule.Installments() {
		if !inst.IsNotFullyPaidOff() {
			continue
		}
		total = total.Plus(model.Portions{
			Principal: inst.PrincipalOutstanding(),
			Interest:  inst.InterestOutstanding(),
			Fee:       inst.FeeOutstanding(),
			Penalty:   inst.PenaltyOutstanding(),
		})
	}
	txn.UpdateComponentsAndTotal(total)
}

// ---------------------------------------------------------------------------
// Charges
// ---------------------------------------------------------------------------

// addChargeOnlyInstallment appends an additional installment covering
// charges that fall due after the last installment.
func addChargeOnlyInstallment(schedule *model.Schedule, charges []*model.Charge) {
	last := schedule.Last()
	if last == nil {
		return
	}
	var maxDue time.Time
	for _, c := range charges {
		if !c.IsActive() || c.IsDueAtDisbursement() || !c.HasDueDate() {
			continue
		}
		if c.DueDate().After(last.DueDate()) && c.DueDate().After(maxDue) {
			maxDue = c.DueDate()
		}
	}
	if maxDue.IsZero() {
		return
	}
	schedule.Append(model.NewAdditionalInstallment(schedule.Len()+1, last.DueDate(), maxDue, schedule.Currency()))
}

// handleChargePayment pays the charge the transaction targets on the
// installment the charge falls in. Anything left is processed as a
// repayment.
func (p *Processor) handleChargePayment(txn *model.Transaction, ctx *TransactionCtx) error {
	txn.ResetDerivedComponents()
	var charge *model.Charge
	for _, c := range ctx.Charges {
		if c.ID() == txn.ChargeID() {
			charge = c
			break
		}
	}
	if charge == nil {
		return fmt.Errorf("%w: %s for transaction %s", ErrChargeNotFound, txn.ChargeID(), txn.ID())
	}

	unprocessed := txn.Amount()
	inst := ctx.Schedule.ChargeInstallment(charge.BookingDate(ctx.DisbursementDate))
	if inst != nil {
		toPay := money.Min(txn.Amount(), charge.Outstanding())
		zero := ctx.zero()
		var contribution model.Portions
		var paid money.Money
		if charge.IsPenalty() {
			paid = inst.PayPenalty(txn.Date(), toPay)
			contribution = model.Portions{Principal: zero, Interest: zero, Fee: zero, Penalty: paid}
		} else {
			paid = inst.PayFee(txn.Date(), toPay)
			contribution = model.Portions{Principal: zero, Interest: zero, Fee: paid, Penalty: zero}
		}
		if paid.IsPositive() {
			charge.Pay(paid)
			txn.AddChargePaidBy(model.ChargePaidBy{Charge: charge, Amount: paid, InstallmentNumber: inst.Number()})
			txn.AddMapping(inst, contribution)
			txn.AddComponents(contribution)
		}
		unprocessed = unprocessed.Minus(paid)
	}

	if unprocessed.IsPositive() {
		return p.processTransaction(txn, ctx, unprocessed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Relations
// ---------------------------------------------------------------------------

// relinkRelations points chargeback relations that target a superseded
// transaction at its replacement as well.
func relinkRelations(ctx *TransactionCtx) {
	holders := append(slices.Clone(ctx.Transactions), ctx.Ledger.NewTransactions()...)
	for _, change := range ctx.Ledger.Changes() {
		for _, t := range holders {
			if t == change.New {
				continue
			}
			if t.HasRelationTo(valueobject.RelationTypeChargeback, nil, change.OldID) &&
				!t.HasRelationTo(valueobject.RelationTypeChargeback, change.New, "") {
				t.AddRelation(valueobject.RelationTypeChargeback, change.New)
			}
		}
	}
}
