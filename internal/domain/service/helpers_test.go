package service

import (
	"log/slog"
	"os"
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

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return baseDate.AddDate(0, 0, n) }

func usd(s string) money.Money { return money.New(decimal.RequireFromString(s), money.USD) }

func assertMoney(t *testing.T, want string, got money.Money, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, decimal.RequireFromString(want).StringFixed(2), got.Amount().StringFixed(2), msgAndArgs...)
}

func parseOrder(t *testing.T, names ...string) []valueobject.PaymentAllocationType {
	t.Helper()
	out := make([]valueobject.PaymentAllocationType, 0, len(names))
	for _, n := range names {
		pt, err := valueobject.ParsePaymentAllocationType(n)
		require.NoError(t, err)
		out = append(out, pt)
	}
	return out
}

func termsWithOrder(t *testing.T, order []valueobject.PaymentAllocationType, future valueobject.FutureInstallmentAllocationRule) model.LoanTerms {
	t.Helper()
	rule, err := model.NewDefaultPaymentAllocationRule(order, future)
	require.NoError(t, err)
	return model.LoanTerms{
		RepaymentEvery:         1,
		RepaymentFrequency:     valueobject.FrequencyMonths,
		ProcessingType:         valueobject.ScheduleProcessingHorizontal,
		PaymentAllocationRules: []model.PaymentAllocationRule{rule},
	}
}

func defaultTerms(t *testing.T) model.LoanTerms {
	return termsWithOrder(t, valueobject.DefaultPaymentAllocationOrder(), valueobject.FutureInstallmentReamortization)
}

// txnFactory hands out transactions with strictly increasing creation times.
type txnFactory struct{ seq int }

func (f *txnFactory) new(id string, tt valueobject.TransactionType, amount string, date time.Time) *model.Transaction {
	f.seq++
	created := baseDate.Add(time.Duration(f.seq) * time.Minute)
	return model.NewTransaction(id, tt, usd(amount), date, date, created)
}

// installments builds consecutive 30 day periods with the given principal
// and interest.
func installments(n int, principal, interest string) []*model.Installment {
	zero := money.Zero(money.USD)
	out := make([]*model.Installment, 0, n)
	for k := 0; k < n; k++ {
		out = append(out, model.NewInstallment(k+1, day(30*k), day(30*(k+1)), usd(principal), usd(interest), zero, zero))
	}
	return out
}

// ---------------------------------------------------------------------------
// Collaborator fakes
// ---------------------------------------------------------------------------

type chargeReprocessorFunc func(*model.Charge, *model.Schedule, time.Time)

func (f chargeReprocessorFunc) Reprocess(c *model.Charge, s *model.Schedule, d time.Time) { f(c, s, d) }

// bookOnInstallment places a charge on the installment that carries it.
var bookOnInstallment = chargeReprocessorFunc(func(c *model.Charge, s *model.Schedule, _ time.Time) {
	s.ChargeInstallment(c.DueDate()).AddToCharges(c.DueDate(), c.Amount(), c.IsPenalty())
})

type mockCreditHandler struct {
	ProcessCreditFunc func(*model.Transaction, *model.Schedule, *model.MoneyHolder) error
}

func (m *mockCreditHandler) ProcessCredit(txn *model.Transaction, s *model.Schedule, h *model.MoneyHolder) error {
	if m.ProcessCreditFunc != nil {
		return m.ProcessCreditFunc(txn, s, h)
	}
	return nil
}

type fakeScheduleModel struct{ periods []port.RepaymentPeriod }

func (m *fakeScheduleModel) Repayments() []port.RepaymentPeriod { return m.periods }

type mockEMICalculator struct {
	GenerateModelFunc   func(model.LoanTerms, *model.Schedule, money.RoundingMode) (port.InterestScheduleModel, error)
	AddDisbursementFunc func(port.InterestScheduleModel, time.Time, money.Money) error
}

func (m *mockEMICalculator) GenerateModel(terms model.LoanTerms, s *model.Schedule, mode money.RoundingMode) (port.InterestScheduleModel, error) {
	if m.GenerateModelFunc != nil {
		return m.GenerateModelFunc(terms, s, mode)
	}
	return &fakeScheduleModel{}, nil
}

func (m *mockEMICalculator) AddDisbursement(sm port.InterestScheduleModel, d time.Time, amount money.Money) error {
	if m.AddDisbursementFunc != nil {
		return m.AddDisbursementFunc(sm, d, amount)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProcessor() *Processor {
	return NewProcessor(&mockEMICalculator{}, bookOnInstallment, &mockCreditHandler{}, money.HalfEven, testLogger())
}

func newCtx(terms model.LoanTerms, schedule *model.Schedule, charges []*model.Charge, txns ...*model.Transaction) *TransactionCtx {
	return NewTransactionCtx(money.USD, terms, day(0), schedule, charges, txns)
}
