package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/application/usecase"
	"github.com/bibbank/loanservicing/internal/domain/port"
)

func TestAddCharge_Execute(t *testing.T) {
	t.Run("fee lands on the installment it falls due in", func(t *testing.T) {
		repo := newMockLoanRepository()
		loanID := servicedLoan(t, repo)
		publisher := &mockEventPublisher{}
		uc := usecase.NewAddChargeUseCase(repo, publisher, newProcessor(), testLogger())

		resp, err := uc.Execute(context.Background(), dto.AddChargeRequest{
			TenantID: testTenant,
			LoanID:   loanID,
			Amount:   dec("10"),
			DueDate:  day(19),
		})

		require.NoError(t, err)
		assert.NotEmpty(t, resp.ChargeID)
		assert.True(t, dec("10").Equal(resp.Summary.FeeOutstanding))
		assert.True(t, dec("310").Equal(resp.Summary.TotalOutstanding))
		assert.Contains(t, publisher.eventTypes(), "loanservicing.schedule.reprocessed")

		loan := repo.loans[loanID]
		_, ok := loan.FindCharge(resp.ChargeID)
		assert.True(t, ok)
		assert.True(t, dec("10").Equal(loan.Schedule().ByNumber(1).FeeCharged().Amount()))
	})

	t.Run("repayment pays the fee before principal", func(t *testing.T) {
		repo := newMockLoanRepository()
		loanID := servicedLoan(t, repo)
		_, err := usecase.NewAddChargeUseCase(repo, &mockEventPublisher{}, newProcessor(), testLogger()).
			Execute(context.Background(), dto.AddChargeRequest{
				TenantID: testTenant, LoanID: loanID, Penalty: true, Amount: dec("5"), DueDate: day(19),
			})
		require.NoError(t, err)

		resp, err := usecase.NewApplyTransactionUseCase(repo, &mockEventPublisher{}, newProcessor(), testLogger()).
			Execute(context.Background(), repayment(loanID, 50, 31))

		require.NoError(t, err)
		assert.True(t, dec("5").Equal(resp.Penalty))
		assert.True(t, dec("45").Equal(resp.Principal))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		repo := newMockLoanRepository()
		loanID := servicedLoan(t, repo)

		_, err := usecase.NewAddChargeUseCase(repo, &mockEventPublisher{}, newProcessor(), testLogger()).
			Execute(context.Background(), dto.AddChargeRequest{TenantID: testTenant, LoanID: loanID, Amount: dec("0")})

		assert.ErrorIs(t, err, usecase.ErrInvalidRequest)
	})

	t.Run("rejects amounts finer than the currency", func(t *testing.T) {
		repo := newMockLoanRepository()
		loanID := servicedLoan(t, repo)

		_, err := usecase.NewAddChargeUseCase(repo, &mockEventPublisher{}, newProcessor(), testLogger()).
			Execute(context.Background(), dto.AddChargeRequest{
				TenantID: testTenant, LoanID: loanID, Amount: dec("2.999"), DueDate: day(19),
			})

		assert.ErrorIs(t, err, usecase.ErrInvalidRequest)
		assert.Empty(t, repo.loans[loanID].Charges())
	})

	t.Run("loan not found", func(t *testing.T) {
		_, err := usecase.NewAddChargeUseCase(newMockLoanRepository(), &mockEventPublisher{}, newProcessor(), testLogger()).
			Execute(context.Background(), dto.AddChargeRequest{TenantID: testTenant, LoanID: "nope", Amount: dec("1")})

		assert.ErrorIs(t, err, port.ErrLoanNotFound)
	})
}
