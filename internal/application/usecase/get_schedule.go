package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/domain/port"
)

// GetScheduleUseCase returns the current schedule of a loan.
type GetScheduleUseCase struct {
	loanRepo port.LoanRepository
}

// NewGetScheduleUseCase wires dependencies.
func NewGetScheduleUseCase(loanRepo port.LoanRepository) *GetScheduleUseCase {
	return &GetScheduleUseCase{loanRepo: loanRepo}
}

// Execute returns the installments and the outstanding position.
func (uc *GetScheduleUseCase) Execute(ctx context.Context, req dto.GetScheduleRequest) (dto.ScheduleResponse, error) {
	loan, err := uc.loanRepo.FindByID(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return dto.ScheduleResponse{
		LoanID:       loan.ID(),
		Currency:     loan.Currency().Code(),
		Version:      loan.Version(),
		Installments: toInstallmentDTOs(loan.Schedule()),
		Summary:      toSummaryDTO(loan),
	}, nil
}
