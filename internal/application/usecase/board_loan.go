package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/service"
	"github.com/bibbank/loanservicing/pkg/money"
)

// BoardLoanUseCase puts a new loan under servicing with an empty schedule.
// Principal reaches the schedule through DISBURSEMENT transactions.
type BoardLoanUseCase struct {
	loanRepo  port.LoanRepository
	publisher port.EventPublisher
	logger    *slog.Logger
}

// NewBoardLoanUseCase wires dependencies.
func NewBoardLoanUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *BoardLoanUseCase {
	return &BoardLoanUseCase{
		loanRepo:  loanRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute validates the terms, lays out the schedule and persists the loan.
func (uc *BoardLoanUseCase) Execute(ctx context.Context, req dto.BoardLoanRequest) (_ dto.LoanResponse, err error) {
	ctx, span := startSpan(ctx, "BoardLoan", req.TenantID, "")
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()

	// 1. Validate the request.
	currency, err := money.NewCurrency(req.Currency)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.DisbursementDate.IsZero() {
		return dto.LoanResponse{}, invalid("disbursement date is required")
	}
	terms, err := termsFromDTO(req.Terms)
	if err != nil {
		return dto.LoanResponse{}, err
	}

	// 2. Lay out the schedule.
	schedule, err := service.BuildSchedule(terms, req.DisbursementDate, req.NumberOfInstallments, currency)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("build schedule: %w", err)
	}

	// 3. Create the aggregate.
	loan, err := model.NewLoan(req.TenantID, req.BorrowerID, currency, terms, req.DisbursementDate, schedule, now)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// 4. Persist and publish.
	if err := saveAndPublish(ctx, uc.loanRepo, uc.publisher, loan); err != nil {
		return dto.LoanResponse{}, err
	}

	uc.logger.InfoContext(ctx, "loan boarded",
		"loan_id", loan.ID(),
		"tenant_id", loan.TenantID(),
		"installments", schedule.Len(),
	)
	return toLoanResponse(loan), nil
}
