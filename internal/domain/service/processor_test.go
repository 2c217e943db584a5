package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

func TestReplay_EmptyHistoryReturnsEmptyLedger(t *testing.T) {
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)

	ledger, err := newTestProcessor().Reprocess(defaultTerms(t), day(0), nil, money.USD, schedule, nil)

	require.NoError(t, err)
	assert.True(t, ledger.IsEmpty())
	assertMoney(t, "50", schedule.ByNumber(1).Principal(), "schedule must not be reset")
}

func TestReplay_UnchangedHistoryIsIdempotent(t *testing.T) {
	var f txnFactory
	p := newTestProcessor()
	terms := defaultTerms(t)
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)

	disbursement := f.new("d1", valueobject.TransactionTypeDisbursement, "100", day(0))
	repayment := f.new("r1", valueobject.TransactionTypeRepayment, "50", day(30))

	ledger, err := p.Reprocess(terms, day(0), []*model.Transaction{disbursement, repayment}, money.USD, schedule, nil)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.Len(), "the stored repayment carried no allocation yet")
	replacement, ok := ledger.ReplacementFor("r1")
	require.True(t, ok)
	assertMoney(t, "50", replacement.PrincipalPortion())

	// Persist the replacement and replay again.
	snap := replacement.Snapshot()
	snap.ID = "r2"
	stored := model.ReconstructTransaction(snap)
	before := make([]model.InstallmentSnapshot, 0, schedule.Len())
	for _, inst := range schedule.Installments() {
		before = append(before, inst.Snapshot())
	}

	ledger, err = p.Reprocess(terms, day(0), []*model.Transaction{disbursement, stored}, money.USD, schedule, nil)
	require.NoError(t, err)

	assert.True(t, ledger.IsEmpty())
	after := make([]model.InstallmentSnapshot, 0, schedule.Len())
	for _, inst := range schedule.Installments() {
		after = append(after, inst.Snapshot())
	}
	assert.Equal(t, before, after)
	require.Len(t, stored.Mappings(), 1)
	assert.Same(t, schedule.ByNumber(1), stored.Mappings()[0].Installment())
}

func TestReplay_SameDateReplacementSupersedesMatchingTransaction(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)
	disbursement := f.new("d1", valueobject.TransactionTypeDisbursement, "100", day(0))
	changed := f.new("r1", valueobject.TransactionTypeRepayment, "50", day(30))
	snap := f.new("r2", valueobject.TransactionTypeRepayment, "10", day(30)).Snapshot()
	snap.Portions = model.ZeroPortions(money.USD).With(valueobject.AllocationTypePrincipal, usd("10"))
	unchanged := model.ReconstructTransaction(snap)

	ledger, err := newTestProcessor().Reprocess(defaultTerms(t), day(0),
		[]*model.Transaction{disbursement, changed, unchanged}, money.USD, schedule, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.Len())
	_, ok := ledger.ReplacementFor("r2")
	assert.True(t, ok, "a transaction on the date of a superseded one is superseded too")
	_, ok = ledger.ReplacementFor("d1")
	assert.False(t, ok)
}

func TestReplay_RemovesGeneratedInstallmentsAndRenumbers(t *testing.T) {
	var f txnFactory
	insts := installments(2, "0", "0")
	insts = append(insts, model.NewReAgedInstallment(3, day(60), day(90), usd("10")))
	insts = append(insts, model.NewAdditionalInstallment(4, day(90), day(100), money.USD))
	schedule := model.NewSchedule(money.USD, insts...)

	txns := []*model.Transaction{f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))}
	_, err := newTestProcessor().Reprocess(defaultTerms(t), day(0), txns, money.USD, schedule, nil)
	require.NoError(t, err)

	require.Equal(t, 2, schedule.Len())
	assert.False(t, schedule.AnyMatch(func(i *model.Installment) bool { return i.IsReAged() || i.IsAdditional() }))
	assertMoney(t, "50", schedule.ByNumber(2).Principal())
}

func TestReplay_ChargeAfterLastInstallmentGetsOwnInstallment(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "0", "0")...)
	charge := model.NewCharge("c1", false, usd("5"), day(45), day(45), day(45))
	txns := []*model.Transaction{f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))}

	_, err := newTestProcessor().Reprocess(defaultTerms(t), day(0), txns, money.USD, schedule, []*model.Charge{charge})
	require.NoError(t, err)

	require.Equal(t, 2, schedule.Len())
	last := schedule.Last()
	assert.True(t, last.IsAdditional())
	assert.Equal(t, day(45), last.DueDate())
	assertMoney(t, "5", last.FeeCharged())
}

func TestReplay_OverpaymentSettlesLaterCharge(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)
	charge := model.NewCharge("c1", false, usd("5"), day(20), day(20), day(20))
	txns := []*model.Transaction{
		f.new("d1", valueobject.TransactionTypeDisbursement, "100", day(0)),
		f.new("r1", valueobject.TransactionTypeRepayment, "110", day(10)),
	}

	out, err := newTestProcessor().Replay(defaultTerms(t), day(0), txns, money.USD, schedule, []*model.Charge{charge})
	require.NoError(t, err)

	assert.True(t, charge.IsFullyPaid())
	assertMoney(t, "5", out.Overpayment)
	replacement, ok := out.Ledger.ReplacementFor("r1")
	require.True(t, ok)
	assertMoney(t, "100", replacement.PrincipalPortion())
	assertMoney(t, "5", replacement.FeePortion())
	assertMoney(t, "5", replacement.OverpaymentPortion())
	assert.True(t, replacement.Portions().Total().Plus(replacement.OverpaymentPortion()).Equal(replacement.Amount()))
	require.Len(t, replacement.ChargesPaid(), 1)
	assert.Same(t, charge, replacement.ChargesPaid()[0].Charge)
}

func TestReplay_ChargebackResolvesReplayedOriginal(t *testing.T) {
	var f txnFactory
	terms := creditTerms(t)
	schedule := model.NewSchedule(money.USD, installments(1, "0", "0")...)
	disbursement := f.new("d1", valueobject.TransactionTypeDisbursement, "100", day(0))
	repayment := f.new("r1", valueobject.TransactionTypeRepayment, "100", day(30))
	chargeback := f.new("cb1", valueobject.TransactionTypeChargeback, "40", day(40))
	repayment.AddRelation(valueobject.RelationTypeChargeback, chargeback)

	ledger, err := newTestProcessor().Reprocess(terms, day(0),
		[]*model.Transaction{disbursement, repayment, chargeback}, money.USD, schedule, nil)
	require.NoError(t, err)

	newRepayment, ok := ledger.ReplacementFor("r1")
	require.True(t, ok)
	newChargeback, ok := ledger.ReplacementFor("cb1")
	require.True(t, ok)
	assertMoney(t, "40", newChargeback.PrincipalPortion())
	assert.True(t, newRepayment.HasRelationTo(valueobject.RelationTypeChargeback, newChargeback, ""))
	assert.True(t, repayment.HasRelationTo(valueobject.RelationTypeChargeback, newChargeback, ""))

	last := schedule.Last()
	assert.True(t, last.IsAdditional())
	assertMoney(t, "40", last.CreditedPrincipal())
	assertMoney(t, "40", last.PrincipalOutstanding())
}

func TestReplay_ChargebackHistoryReplaysAgainAfterApply(t *testing.T) {
	var f txnFactory
	p := newTestProcessor()
	schedule := model.NewSchedule(money.USD, installments(1, "0", "0")...)
	disbursement := f.new("d1", valueobject.TransactionTypeDisbursement, "100", day(0))
	repayment := f.new("r1", valueobject.TransactionTypeRepayment, "100", day(30))
	chargeback := f.new("cb1", valueobject.TransactionTypeChargeback, "40", day(40))
	repayment.AddRelation(valueobject.RelationTypeChargeback, chargeback)

	loan := model.ReconstructLoan("loan-1", "tenant-1", "borrower-1", money.USD, creditTerms(t), day(0),
		schedule, []*model.Transaction{disbursement, repayment, chargeback}, nil,
		valueobject.LoanStatusActive, money.Zero(money.USD), 1, day(0), day(0))

	replay := func() *model.ChangeLedger {
		t.Helper()
		out, err := p.Replay(loan.Terms(), loan.DisbursementDate(), loan.ActiveTransactions(),
			loan.Currency(), loan.Schedule(), loan.Charges())
		require.NoError(t, err)
		loan.ApplyReplay(out.Ledger, out.Overpayment, day(60))
		return out.Ledger
	}

	require.False(t, replay().IsEmpty(), "the stored history carried no allocation yet")
	assert.True(t, replay().IsEmpty(), "an applied replay must reproduce itself")
	assert.True(t, replay().IsEmpty())

	var chargebacks []*model.Transaction
	for _, txn := range loan.ActiveTransactions() {
		if txn.Type() == valueobject.TransactionTypeChargeback {
			chargebacks = append(chargebacks, txn)
		}
	}
	require.Len(t, chargebacks, 1)
	assertMoney(t, "40", chargebacks[0].PrincipalPortion())
	assertMoney(t, "40", loan.Schedule().Last().CreditedPrincipal())
}

func TestRelation_TargetIDFollowsLinkedTransaction(t *testing.T) {
	var f txnFactory
	repayment := f.new("r1", valueobject.TransactionTypeRepayment, "100", day(30))
	copied := f.new("cb1", valueobject.TransactionTypeChargeback, "40", day(40)).CopyForReplay()
	repayment.AddRelation(valueobject.RelationTypeChargeback, copied)

	copied.AssignID("cb2")

	rel := repayment.Relations()[0]
	assert.Equal(t, "cb2", rel.TargetID())
	assert.True(t, repayment.HasRelationTo(valueobject.RelationTypeChargeback, nil, "cb2"))
}

func TestProcessLatestTransaction_SkipsUnhandledTypes(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "50", "0")...)
	txn := f.new("a1", valueobject.TransactionTypeAccrual, "3", day(10))

	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, newCtx(defaultTerms(t), schedule, nil)))

	assertMoney(t, "0", txn.Portions().Total())
	assertMoney(t, "50", schedule.Totals().Total())
}

func TestProcessLatestTransaction_MissingDefaultRule(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "50", "0")...)
	txn := f.new("r1", valueobject.TransactionTypeRepayment, "10", day(10))

	err := newTestProcessor().ProcessLatestTransaction(txn, newCtx(model.LoanTerms{}, schedule, nil))

	require.ErrorIs(t, err, ErrMissingAllocationRule)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Contains(t, err.Error(), "r1")
}

func TestProcessor_RoundingModeIsExplicit(t *testing.T) {
	p := NewProcessor(&mockEMICalculator{}, bookOnInstallment, nil, money.Down, nil)
	assert.Equal(t, money.Down, p.RoundingMode())

	var f txnFactory
	terms := termsWithOrder(t, parseOrder(t, "IN_ADVANCE_PRINCIPAL"), valueobject.FutureInstallmentReamortization)
	schedule := model.NewSchedule(money.USD, installments(3, "100", "0")...)
	txn := f.new("", valueobject.TransactionTypeRepayment, "0.05", day(0))

	require.NoError(t, p.ProcessLatestTransaction(txn, newCtx(terms, schedule, nil)))

	assertMoney(t, "0.01", schedule.ByNumber(1).PrincipalCompleted())
	assertMoney(t, "0.01", schedule.ByNumber(2).PrincipalCompleted())
	assertMoney(t, "0.03", schedule.ByNumber(3).PrincipalCompleted())
}
