package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

var (
	usd   = money.MustCurrency("USD")
	start = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func day(n int) time.Time { return start.AddDate(0, 0, n) }

func m(s string) money.Money { return money.New(decimal.RequireFromString(s), usd) }

func zero() money.Money { return money.Zero(usd) }

// threeMonthSchedule has three 100 principal installments due monthly.
func threeMonthSchedule() *model.Schedule {
	return model.NewSchedule(usd,
		model.NewInstallment(1, start, start.AddDate(0, 1, 0), m("100"), zero(), zero(), zero()),
		model.NewInstallment(2, start.AddDate(0, 1, 0), start.AddDate(0, 2, 0), m("100"), zero(), zero(), zero()),
		model.NewInstallment(3, start.AddDate(0, 2, 0), start.AddDate(0, 3, 0), m("100"), zero(), zero(), zero()),
	)
}

func defaultTerms(t *testing.T) model.LoanTerms {
	t.Helper()
	rule, err := model.NewDefaultPaymentAllocationRule(
		valueobject.DefaultPaymentAllocationOrder(), valueobject.FutureInstallmentNextInstallment)
	require.NoError(t, err)
	return model.LoanTerms{
		RepaymentEvery:         1,
		RepaymentFrequency:     valueobject.FrequencyMonths,
		ProcessingType:         valueobject.ScheduleProcessingHorizontal,
		PaymentAllocationRules: []model.PaymentAllocationRule{rule},
	}
}

func assertMoney(t *testing.T, want string, got money.Money, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got.Amount()),
		"want %s, got %s %v", want, got.Amount(), msgAndArgs)
}
