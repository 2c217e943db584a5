package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

func TestDisbursement_SplitsEvenlyWithoutLosingCents(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(3, "0", "0")...)
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, newCtx(defaultTerms(t), schedule, nil)))

	assertMoney(t, "33.33", schedule.ByNumber(1).Principal())
	assertMoney(t, "33.33", schedule.ByNumber(2).Principal())
	assertMoney(t, "33.34", schedule.ByNumber(3).Principal())
	assertMoney(t, "100", schedule.Totals().Principal)
}

func TestDisbursement_RoundsToInstallmentMultiples(t *testing.T) {
	var f txnFactory
	terms := defaultTerms(t)
	terms.InstallmentAmountInMultiplesOf = 1
	schedule := model.NewSchedule(money.USD, installments(3, "0", "0")...)
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, newCtx(terms, schedule, nil)))

	assertMoney(t, "33", schedule.ByNumber(1).Principal())
	assertMoney(t, "33", schedule.ByNumber(2).Principal())
	assertMoney(t, "34", schedule.ByNumber(3).Principal())
}

func TestDisbursement_SecondTrancheOnlyReachesLaterInstallments(t *testing.T) {
	var f txnFactory
	p := newTestProcessor()
	schedule := model.NewSchedule(money.USD, installments(3, "0", "0")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)

	require.NoError(t, p.ProcessLatestTransaction(f.new("", valueobject.TransactionTypeDisbursement, "90", day(0)), ctx))
	require.NoError(t, p.ProcessLatestTransaction(f.new("", valueobject.TransactionTypeDisbursement, "20", day(40)), ctx))

	assertMoney(t, "30", schedule.ByNumber(1).Principal())
	assertMoney(t, "40", schedule.ByNumber(2).Principal())
	assertMoney(t, "40", schedule.ByNumber(3).Principal())
}

func TestDisbursement_DownPayment(t *testing.T) {
	var f txnFactory
	terms := defaultTerms(t)
	terms.EnableDownPayment = true
	terms.DownPaymentPercentage = decimal.NewFromInt(25)
	insts := append([]*model.Installment{model.NewDownPaymentInstallment(0, day(0), money.USD)}, installments(3, "0", "0")...)
	schedule := model.NewSchedule(money.USD, insts...)
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, newCtx(terms, schedule, nil)))

	downPayment := schedule.ByNumber(1)
	require.True(t, downPayment.IsDownPayment())
	assertMoney(t, "25", downPayment.Principal())
	for n := 2; n <= 4; n++ {
		assertMoney(t, "25", schedule.ByNumber(n).Principal())
	}
}

func TestDisbursement_DownPaymentInstallmentMissing(t *testing.T) {
	var f txnFactory
	terms := defaultTerms(t)
	terms.EnableDownPayment = true
	terms.DownPaymentPercentage = decimal.NewFromInt(25)
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	err := newTestProcessor().ProcessLatestTransaction(txn, newCtx(terms, schedule, nil))

	require.ErrorIs(t, err, ErrDownPaymentInstallmentMissing)
	assert.Equal(t, KindInvalidData, KindOf(err))
}

func TestDisbursement_NoFutureInstallments(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(1, "0", "0")...)
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(45))

	err := newTestProcessor().ProcessLatestTransaction(txn, newCtx(defaultTerms(t), schedule, nil))

	require.ErrorIs(t, err, ErrNoFutureInstallments)
}

func TestDisbursement_AppliesCreditBalance(t *testing.T) {
	var f txnFactory
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)
	ctx := newCtx(defaultTerms(t), schedule, nil)
	ctx.Overpayment.Set(usd("20"))
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	require.NoError(t, newTestProcessor().ProcessLatestTransaction(txn, ctx))

	assertMoney(t, "20", txn.OverpaymentPortion())
	assertMoney(t, "0", ctx.Overpayment.Get())
	assertMoney(t, "10", schedule.ByNumber(1).PrincipalCompleted())
	assertMoney(t, "10", schedule.ByNumber(2).PrincipalCompleted())
	assertMoney(t, "0", txn.Portions().Total(), "credit balance allocation does not add to the disbursement")
}

func TestDisbursement_InterestBearingUsesScheduleModel(t *testing.T) {
	var f txnFactory
	terms := defaultTerms(t)
	terms.AnnualInterestRate = decimal.NewFromInt(12)
	schedule := model.NewSchedule(money.USD, installments(2, "0", "0")...)

	var generated int
	var disbursed money.Money
	sm := &fakeScheduleModel{}
	emi := &mockEMICalculator{
		GenerateModelFunc: func(_ model.LoanTerms, s *model.Schedule, mode money.RoundingMode) (port.InterestScheduleModel, error) {
			generated++
			assert.Equal(t, money.HalfEven, mode)
			return sm, nil
		},
		AddDisbursementFunc: func(m port.InterestScheduleModel, _ time.Time, amount money.Money) error {
			disbursed = amount
			m.(*fakeScheduleModel).periods = []port.RepaymentPeriod{
				{FromDate: day(0), DueDate: day(30), Principal: usd("49.50"), Interest: usd("1.00")},
				{FromDate: day(30), DueDate: day(60), Principal: usd("50.50"), Interest: usd("0.50")},
			}
			return nil
		},
	}
	p := NewProcessor(emi, bookOnInstallment, &mockCreditHandler{}, money.HalfEven, testLogger())
	txn := f.new("", valueobject.TransactionTypeDisbursement, "100", day(0))

	require.NoError(t, p.ProcessLatestTransaction(txn, newCtx(terms, schedule, nil)))

	assert.Equal(t, 1, generated)
	assertMoney(t, "100", disbursed)
	assertMoney(t, "49.50", schedule.ByNumber(1).Principal())
	assertMoney(t, "1.00", schedule.ByNumber(1).Interest())
	assertMoney(t, "50.50", schedule.ByNumber(2).Principal())
	assertMoney(t, "0.50", schedule.ByNumber(2).Interest())
}
