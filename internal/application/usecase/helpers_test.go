package usecase_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/application/usecase"
	"github.com/bibbank/loanservicing/internal/domain/event"
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/service"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/internal/infrastructure/adapter"
	"github.com/bibbank/loanservicing/pkg/money"
)

// --- Mock implementations ---

type mockLoanRepository struct {
	saveFunc     func(ctx context.Context, loan *model.Loan) error
	findByIDFunc func(ctx context.Context, tenantID, id string) (*model.Loan, error)
	loans        map[string]*model.Loan
	savedLoans   []*model.Loan
}

func newMockLoanRepository(loans ...*model.Loan) *mockLoanRepository {
	m := &mockLoanRepository{loans: map[string]*model.Loan{}}
	for _, l := range loans {
		m.loans[l.ID()] = l
	}
	return m
}

func (m *mockLoanRepository) Save(ctx context.Context, loan *model.Loan) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, loan)
	}
	m.loans[loan.ID()] = loan
	m.savedLoans = append(m.savedLoans, loan)
	return nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Loan, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, tenantID, id)
	}
	if l, ok := m.loans[id]; ok && l.TenantID() == tenantID {
		return l, nil
	}
	return nil, port.ErrLoanNotFound
}

type mockEventPublisher struct {
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func (m *mockEventPublisher) eventTypes() []string {
	out := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		out = append(out, e.EventType())
	}
	return out
}

// --- Fixtures ---

const testTenant = "tenant-001"

var disbursementDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return disbursementDate.AddDate(0, 0, n) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newProcessor() *service.Processor {
	return service.NewProcessor(
		adapter.NewDecliningBalanceEMICalculator(),
		adapter.NewInstallmentChargeReprocessor(),
		adapter.NewPrincipalCreditHandler(),
		money.HalfEven,
		testLogger(),
	)
}

func defaultTermsDTO() dto.TermsDTO {
	var order []string
	for _, pt := range valueobject.DefaultPaymentAllocationOrder() {
		order = append(order, pt.String())
	}
	return dto.TermsDTO{
		RepaymentEvery:         1,
		RepaymentFrequency:     "MONTHS",
		ScheduleProcessingType: "HORIZONTAL",
		PaymentAllocationRules: []dto.PaymentAllocationRuleDTO{{
			TransactionType:                 "DEFAULT",
			AllocationOrder:                 order,
			FutureInstallmentAllocationRule: "REAMORTIZATION",
		}},
		CreditAllocationRules: []dto.CreditAllocationRuleDTO{{
			TransactionType: "CHARGEBACK",
			AllocationOrder: []string{"PENALTY", "FEE", "INTEREST", "PRINCIPAL"},
		}},
	}
}

func boardRequest() dto.BoardLoanRequest {
	return dto.BoardLoanRequest{
		TenantID:             testTenant,
		BorrowerID:           "borrower-001",
		Currency:             "USD",
		DisbursementDate:     disbursementDate,
		NumberOfInstallments: 3,
		Terms:                defaultTermsDTO(),
	}
}

// servicedLoan boards a three-installment loan and disburses 300 on the
// disbursement date.
func servicedLoan(t *testing.T, repo *mockLoanRepository) string {
	t.Helper()
	publisher := &mockEventPublisher{}
	loan, err := usecase.NewBoardLoanUseCase(repo, publisher, testLogger()).
		Execute(context.Background(), boardRequest())
	require.NoError(t, err)

	_, err = usecase.NewApplyTransactionUseCase(repo, publisher, newProcessor(), testLogger()).
		Execute(context.Background(), dto.ApplyTransactionRequest{
			TenantID:        testTenant,
			LoanID:          loan.ID,
			Type:            "DISBURSEMENT",
			Amount:          decimal.NewFromInt(300),
			TransactionDate: disbursementDate,
		})
	require.NoError(t, err)
	return loan.ID
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
