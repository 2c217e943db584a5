package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

func TestRepayment_OnTimeCoversFirstInstallment(t *testing.T) {
	var f txnFactory
	terms := termsWithOrder(t, parseOrder(t, "DUE_PENALTY", "DUE_FEE", "DUE_INTEREST", "DUE_PRINCIPAL"),
		valueobject.FutureInstallmentReamortization)
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
	ctx := newCtx(terms, schedule, nil)

	txn := f.new("", valueobject.TransactionTypeRepayment, "60", day(30))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "10", txn.InterestPortion())
	assertMoney(t, "50", txn.PrincipalPortion())
	assertMoney(t, "0", txn.OverpaymentPortion())

	first, second := schedule.ByNumber(1), schedule.ByNumber(2)
	assert.True(t, first.ObligationsMet())
	assert.Equal(t, day(30), first.ObligationsMetOn())
	assertMoney(t, "0", second.TotalPaid())
	assertMoney(t, "60", second.TotalOutstanding())

	require.Len(t, txn.Mappings(), 1)
	assert.Same(t, first, txn.Mappings()[0].Installment())
}

func TestRepayment_InAdvanceSplitsEvenlyWithRemainderOnLast(t *testing.T) {
	var f txnFactory
	terms := termsWithOrder(t, parseOrder(t, "IN_ADVANCE_PRINCIPAL"), valueobject.FutureInstallmentReamortization)
	schedule := model.NewSchedule(money.USD, installments(3, "100", "0")...)
	ctx := newCtx(terms, schedule, nil)

	txn := f.new("", valueobject.TransactionTypeRepayment, "100", day(0))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "33.33", schedule.ByNumber(1).PrincipalCompleted())
	assertMoney(t, "33.33", schedule.ByNumber(2).PrincipalCompleted())
	assertMoney(t, "33.34", schedule.ByNumber(3).PrincipalCompleted())
	assertMoney(t, "100", txn.PrincipalPortion())
	assert.Len(t, txn.Mappings(), 3)
}

func TestRepayment_FutureInstallmentPolicies(t *testing.T) {
	tests := []struct {
		name   string
		future valueobject.FutureInstallmentAllocationRule
		want   [3]string
	}{
		{"next installment", valueobject.FutureInstallmentNextInstallment, [3]string{"100", "20", "0"}},
		{"last installment", valueobject.FutureInstallmentLastInstallment, [3]string{"0", "20", "100"}},
		{"reamortization", valueobject.FutureInstallmentReamortization, [3]string{"40", "40", "40"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var f txnFactory
			terms := termsWithOrder(t, parseOrder(t, "IN_ADVANCE_PRINCIPAL"), tc.future)
			schedule := model.NewSchedule(money.USD, installments(3, "100", "0")...)
			ctx := newCtx(terms, schedule, nil)

			txn := f.new("", valueobject.TransactionTypeRepayment, "120", day(0))
			require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

			for k, want := range tc.want {
				assertMoney(t, want, schedule.ByNumber(k+1).PrincipalCompleted(), "installment %d", k+1)
			}
			assertMoney(t, "120", txn.PrincipalPortion())
		})
	}
}

func TestRepayment_HorizontalAndVerticalDiverge(t *testing.T) {
	order := []string{"PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"}

	run := func(t *testing.T, processing valueobject.ScheduleProcessingType) (*model.Transaction, *model.Schedule) {
		var f txnFactory
		terms := termsWithOrder(t, parseOrder(t, order...), valueobject.FutureInstallmentReamortization)
		terms.ProcessingType = processing
		schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
		txn := f.new("", valueobject.TransactionTypeRepayment, "70", day(90))
		require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, newCtx(terms, schedule, nil)))
		return txn, schedule
	}

	t.Run("horizontal settles installment by installment", func(t *testing.T) {
		txn, schedule := run(t, valueobject.ScheduleProcessingHorizontal)
		assertMoney(t, "60", txn.PrincipalPortion())
		assertMoney(t, "10", txn.InterestPortion())
		assert.True(t, schedule.ByNumber(1).ObligationsMet())
		assertMoney(t, "10", schedule.ByNumber(2).PrincipalCompleted())
		assertMoney(t, "0", schedule.ByNumber(2).InterestPaid())
	})

	t.Run("vertical exhausts principal first", func(t *testing.T) {
		txn, schedule := run(t, valueobject.ScheduleProcessingVertical)
		assertMoney(t, "70", txn.PrincipalPortion())
		assertMoney(t, "0", txn.InterestPortion())
		assertMoney(t, "50", schedule.ByNumber(1).PrincipalCompleted())
		assertMoney(t, "20", schedule.ByNumber(2).PrincipalCompleted())
		assertMoney(t, "0", schedule.ByNumber(1).InterestPaid())
	})
}

func TestRepayment_ConservesAmount(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)

	txn := f.new("", valueobject.TransactionTypeRepayment, "150", day(45))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "100", txn.PrincipalPortion())
	assertMoney(t, "20", txn.InterestPortion())
	assertMoney(t, "30", txn.OverpaymentPortion())
	assert.True(t, txn.Portions().Total().Plus(txn.OverpaymentPortion()).Equal(txn.Amount()))
	assertMoney(t, "30", ctx.Overpayment.Get())
	assertMoney(t, "0", schedule.Totals().Total())
}

func TestRepayment_PaysChargesOldestFirst(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "100", "0")...)
	older := model.NewCharge("c1", false, usd("5"), day(10), day(10), day(10))
	newer := model.NewCharge("c2", false, usd("5"), day(20), day(20), day(20))
	inst := schedule.ByNumber(1)
	inst.AddToCharges(day(10), usd("5"), false)
	inst.AddToCharges(day(20), usd("5"), false)
	ctx := newCtx(defaultTerms(t), schedule, []*model.Charge{newer, older})

	txn := f.new("", valueobject.TransactionTypeRepayment, "7", day(30))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "7", txn.FeePortion())
	assert.True(t, older.IsFullyPaid())
	assertMoney(t, "2", newer.Paid())
	require.Len(t, txn.ChargesPaid(), 2)
	assert.Same(t, older, txn.ChargesPaid()[0].Charge)
}

func TestRefund_UnpaysMostRecentInstallmentFirst(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)
	p := newTestProcessor()

	repayment := f.new("", valueobject.TransactionTypeRepayment, "60", day(30))
	require.NoError(t, p.ProcessLatestTransaction(repayment, ctx))

	refund := f.new("", valueobject.TransactionTypeRefundForActiveLoan, "30", day(45))
	require.NoError(t, p.ProcessLatestTransaction(refund, ctx))

	assertMoney(t, "10", refund.InterestPortion())
	assertMoney(t, "20", refund.PrincipalPortion())
	first := schedule.ByNumber(1)
	assertMoney(t, "0", first.InterestPaid())
	assertMoney(t, "30", first.PrincipalCompleted())
	assert.False(t, first.ObligationsMet())
}

func TestRefund_ExplicitRuleKeepsOrderAndFuturePolicy(t *testing.T) {
	refundTerms := func(t *testing.T, processing valueobject.ScheduleProcessingType, payOrder []string, refundOrder []string) model.LoanTerms {
		t.Helper()
		terms := termsWithOrder(t, parseOrder(t, payOrder...), valueobject.FutureInstallmentReamortization)
		terms.ProcessingType = processing
		rule, err := model.NewPaymentAllocationRule(valueobject.TransactionTypeRefundForActiveLoan,
			parseOrder(t, refundOrder...), valueobject.FutureInstallmentNextInstallment)
		require.NoError(t, err)
		terms.PaymentAllocationRules = append(terms.PaymentAllocationRules, rule)
		return terms
	}

	tests := []struct {
		name        string
		processing  valueobject.ScheduleProcessingType
		payOrder    []string
		refundOrder []string
		repayment   string
		repaidOn    int
		refund      string
		refundedOn  int
		principal   string
		interest    string
		// principal and interest still paid per installment after the refund
		paidPrincipal []string
		paidInterest  []string
	}{
		{
			name:          "horizontal past due unpays newest installment in rule order",
			processing:    valueobject.ScheduleProcessingHorizontal,
			payOrder:      []string{"PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"},
			refundOrder:   []string{"PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"},
			repayment:     "120",
			repaidOn:      90,
			refund:        "70",
			refundedOn:    95,
			principal:     "60",
			interest:      "10",
			paidPrincipal: []string{"40", "0"},
			paidInterest:  []string{"10", "0"},
		},
		{
			name:          "vertical past due exhausts principal across installments",
			processing:    valueobject.ScheduleProcessingVertical,
			payOrder:      []string{"PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"},
			refundOrder:   []string{"PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"},
			repayment:     "120",
			repaidOn:      90,
			refund:        "70",
			refundedOn:    95,
			principal:     "70",
			interest:      "0",
			paidPrincipal: []string{"30", "0"},
			paidInterest:  []string{"10", "10"},
		},
		{
			name:          "horizontal in advance follows the rule's next installment policy",
			processing:    valueobject.ScheduleProcessingHorizontal,
			payOrder:      []string{"IN_ADVANCE_PRINCIPAL", "IN_ADVANCE_INTEREST"},
			refundOrder:   []string{"IN_ADVANCE_PRINCIPAL"},
			repayment:     "100",
			repaidOn:      10,
			refund:        "30",
			refundedOn:    15,
			principal:     "30",
			interest:      "0",
			paidPrincipal: []string{"20", "50"},
			paidInterest:  []string{"0", "0"},
		},
		{
			name:          "vertical in advance follows the rule's next installment policy",
			processing:    valueobject.ScheduleProcessingVertical,
			payOrder:      []string{"IN_ADVANCE_PRINCIPAL", "IN_ADVANCE_INTEREST"},
			refundOrder:   []string{"IN_ADVANCE_PRINCIPAL"},
			repayment:     "100",
			repaidOn:      10,
			refund:        "30",
			refundedOn:    15,
			principal:     "30",
			interest:      "0",
			paidPrincipal: []string{"20", "50"},
			paidInterest:  []string{"0", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f txnFactory
			schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
			ctx := newCtx(refundTerms(t, tt.processing, tt.payOrder, tt.refundOrder), schedule, nil)
			p := newTestProcessor()

			repayment := f.new("", valueobject.TransactionTypeRepayment, tt.repayment, day(tt.repaidOn))
			require.NoError(t, p.ProcessLatestTransaction(repayment, ctx))
			refund := f.new("", valueobject.TransactionTypeRefundForActiveLoan, tt.refund, day(tt.refundedOn))
			require.NoError(t, p.ProcessLatestTransaction(refund, ctx))

			assertMoney(t, tt.principal, refund.PrincipalPortion())
			assertMoney(t, tt.interest, refund.InterestPortion())
			assert.True(t, refund.Portions().Total().Equal(refund.Amount()))
			for k := range tt.paidPrincipal {
				inst := schedule.ByNumber(k + 1)
				assertMoney(t, tt.paidPrincipal[k], inst.PrincipalCompleted(), "installment %d principal", k+1)
				assertMoney(t, tt.paidInterest[k], inst.InterestPaid(), "installment %d interest", k+1)
			}
		})
	}
}

func TestWriteOff_WritesOffEverythingOutstanding(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)

	txn := f.new("", valueobject.TransactionTypeWriteOff, "0", day(10))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "120", txn.Amount())
	assertMoney(t, "100", txn.PrincipalPortion())
	assertMoney(t, "20", txn.InterestPortion())
	assert.Len(t, txn.Mappings(), 2)
	for _, inst := range schedule.Installments() {
		assert.True(t, inst.ObligationsMet())
	}
}

func TestChargeOff_RecordsOutstandingWithoutChangingSchedule(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "10")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)

	txn := f.new("", valueobject.TransactionTypeChargeOff, "0", day(10))
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "120", txn.Amount())
	assertMoney(t, "120", schedule.Totals().Total())
	assert.Empty(t, txn.Mappings())
}

func TestChargePayment_TargetsChargeThenRepays(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "0")...)
	charge := model.NewCharge("c1", true, usd("5"), day(40), day(40), day(40))
	schedule.ByNumber(2).AddToCharges(day(40), usd("5"), true)
	ctx := newCtx(defaultTerms(t), schedule, []*model.Charge{charge})

	txn := f.new("", valueobject.TransactionTypeChargePayment, "15", day(10))
	txn.SetChargeID("c1")
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "5", txn.PenaltyPortion())
	assertMoney(t, "10", txn.PrincipalPortion())
	assert.True(t, charge.IsFullyPaid())
	assertMoney(t, "5", schedule.ByNumber(2).PenaltyPaid())
}

func TestChargePayment_ChargeDueBeforeScheduleIsPaidOnFirstInstallment(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "50", "0")...)
	charge := model.NewCharge("c1", false, usd("5"), day(-3), day(-3), day(-3))
	bookOnInstallment.Reprocess(charge, schedule, day(0))
	require.True(t, schedule.ByNumber(1).FeeCharged().IsPositive())
	ctx := newCtx(defaultTerms(t), schedule, []*model.Charge{charge})

	txn := f.new("", valueobject.TransactionTypeChargePayment, "15", day(10))
	txn.SetChargeID("c1")
	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "5", txn.FeePortion())
	assertMoney(t, "5", schedule.ByNumber(1).FeePaid())
	assert.True(t, charge.IsFullyPaid())
	require.Len(t, txn.ChargesPaid(), 1)
	assert.Equal(t, 1, txn.ChargesPaid()[0].InstallmentNumber)
}

func TestChargePayment_UnknownCharge(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "50", "0")...)
	txn := f.new("t1", valueobject.TransactionTypeChargePayment, "15", day(10))
	txn.SetChargeID("missing")

	err := newTestProcessor().ProcessLatestTransaction(txn, newCtx(defaultTerms(t), schedule, nil))
	require.ErrorIs(t, err, ErrChargeNotFound)
	assert.Equal(t, KindReferential, KindOf(err))
}

func TestGroupByDueType_KeepsFirstOccurrenceOrder(t *testing.T) {
	order := parseOrder(t, "DUE_INTEREST", "PAST_DUE_PRINCIPAL", "DUE_PRINCIPAL", "IN_ADVANCE_FEE", "PAST_DUE_INTEREST")

	groups := groupByDueType(order)

	require.Len(t, groups, 3)
	assert.Equal(t, parseOrder(t, "DUE_INTEREST", "DUE_PRINCIPAL"), groups[0])
	assert.Equal(t, parseOrder(t, "PAST_DUE_PRINCIPAL", "PAST_DUE_INTEREST"), groups[1])
	assert.Equal(t, parseOrder(t, "IN_ADVANCE_FEE"), groups[2])
}
