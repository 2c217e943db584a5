package adapter_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/internal/infrastructure/adapter"
	"github.com/bibbank/loanservicing/pkg/money"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return start.AddDate(0, 0, n) }

func usd(s string) money.Money { return money.New(decimal.RequireFromString(s), money.USD) }

func fixed(m money.Money) string { return m.Amount().StringFixed(2) }

func emptySchedule(n int) *model.Schedule {
	zero := money.Zero(money.USD)
	insts := make([]*model.Installment, 0, n)
	for k := 0; k < n; k++ {
		insts = append(insts, model.NewInstallment(k+1, day(30*k), day(30*(k+1)), zero, zero, zero, zero))
	}
	return model.NewSchedule(money.USD, insts...)
}

func monthlyTerms(rate int64) model.LoanTerms {
	return model.LoanTerms{
		AnnualInterestRate: decimal.NewFromInt(rate),
		RepaymentEvery:     1,
		RepaymentFrequency: valueobject.FrequencyMonths,
	}
}

func TestEMICalculator_AnnuityOverTwoPeriods(t *testing.T) {
	calc := adapter.NewDecliningBalanceEMICalculator()
	m, err := calc.GenerateModel(monthlyTerms(12), emptySchedule(2), money.HalfEven)
	require.NoError(t, err)

	require.NoError(t, calc.AddDisbursement(m, day(0), usd("100")))

	periods := m.Repayments()
	require.Len(t, periods, 2)
	assert.Equal(t, "1.00", fixed(periods[0].Interest))
	assert.Equal(t, "49.75", fixed(periods[0].Principal))
	assert.Equal(t, "0.50", fixed(periods[1].Interest))
	assert.Equal(t, "50.25", fixed(periods[1].Principal))
	assert.Equal(t, day(60), periods[1].DueDate)
}

func TestEMICalculator_ZeroRateSplitsEvenly(t *testing.T) {
	calc := adapter.NewDecliningBalanceEMICalculator()
	m, err := calc.GenerateModel(monthlyTerms(0), emptySchedule(3), money.HalfEven)
	require.NoError(t, err)

	require.NoError(t, calc.AddDisbursement(m, day(0), usd("100")))

	var got []string
	for _, p := range m.Repayments() {
		got = append(got, fixed(p.Principal))
		assert.True(t, p.Interest.IsZero())
	}
	assert.Equal(t, []string{"33.33", "33.33", "33.34"}, got)
}

func TestEMICalculator_LaterDisbursementRecomputesRemainingPeriods(t *testing.T) {
	calc := adapter.NewDecliningBalanceEMICalculator()
	m, err := calc.GenerateModel(monthlyTerms(0), emptySchedule(2), money.HalfEven)
	require.NoError(t, err)

	require.NoError(t, calc.AddDisbursement(m, day(0), usd("100")))
	require.NoError(t, calc.AddDisbursement(m, day(40), usd("50")))

	periods := m.Repayments()
	assert.Equal(t, "50.00", fixed(periods[0].Principal))
	assert.Equal(t, "100.00", fixed(periods[1].Principal))
}

func TestEMICalculator_SkipsDownPaymentInstallments(t *testing.T) {
	zero := money.Zero(money.USD)
	schedule := model.NewSchedule(money.USD,
		model.NewDownPaymentInstallment(1, day(0), money.USD),
		model.NewInstallment(2, day(0), day(30), zero, zero, zero, zero),
	)
	calc := adapter.NewDecliningBalanceEMICalculator()

	m, err := calc.GenerateModel(monthlyTerms(12), schedule, money.HalfEven)
	require.NoError(t, err)

	require.Len(t, m.Repayments(), 1)
	assert.Equal(t, day(30), m.Repayments()[0].DueDate)
}

func TestEMICalculator_Errors(t *testing.T) {
	calc := adapter.NewDecliningBalanceEMICalculator()

	t.Run("foreign model", func(t *testing.T) {
		err := calc.AddDisbursement(foreignModel{}, day(0), usd("1"))
		assert.ErrorIs(t, err, adapter.ErrUnknownScheduleModel)
	})

	t.Run("frequency without a period length", func(t *testing.T) {
		terms := monthlyTerms(12)
		terms.RepaymentFrequency = valueobject.FrequencyWholeTerm
		_, err := calc.GenerateModel(terms, emptySchedule(1), money.HalfEven)
		assert.Error(t, err)
	})
}

type foreignModel struct{}

func (foreignModel) Repayments() []port.RepaymentPeriod { return nil }
