package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/service"
)

// AddChargeUseCase levies a fee or penalty on a loan. Charges take part in
// the chronological merge, so the history is replayed with the new charge.
type AddChargeUseCase struct {
	loanRepo  port.LoanRepository
	publisher port.EventPublisher
	processor *service.Processor
	logger    *slog.Logger
	metrics   replayMetrics
}

// NewAddChargeUseCase wires dependencies.
func NewAddChargeUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	processor *service.Processor,
	logger *slog.Logger,
) *AddChargeUseCase {
	return &AddChargeUseCase{
		loanRepo:  loanRepo,
		publisher: publisher,
		processor: processor,
		logger:    logger,
		metrics:   newReplayMetrics(),
	}
}

// Execute adds the charge and replays the loan.
func (uc *AddChargeUseCase) Execute(ctx context.Context, req dto.AddChargeRequest) (_ dto.ChargeResponse, err error) {
	ctx, span := startSpan(ctx, "AddCharge", req.TenantID, req.LoanID)
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()
	if !req.Amount.IsPositive() {
		return dto.ChargeResponse{}, invalid("charge amount must be positive")
	}

	loan, err := uc.loanRepo.FindByID(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return dto.ChargeResponse{}, fmt.Errorf("find loan: %w", err)
	}

	submitted := req.SubmittedOn
	if submitted.IsZero() {
		submitted = now
	}
	amount, err := amountIn(req.Amount, loan.Currency())
	if err != nil {
		return dto.ChargeResponse{}, err
	}
	charge := model.NewCharge(uuid.New().String(), req.Penalty, amount, req.DueDate, submitted, now)
	if err := loan.AddCharge(charge); err != nil {
		return dto.ChargeResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := replayLoan(ctx, uc.processor, uc.metrics, loan, now); err != nil {
		return dto.ChargeResponse{}, err
	}
	if err := saveAndPublish(ctx, uc.loanRepo, uc.publisher, loan); err != nil {
		return dto.ChargeResponse{}, err
	}

	uc.logger.InfoContext(ctx, "charge added",
		"loan_id", loan.ID(),
		"tenant_id", loan.TenantID(),
		"charge_id", charge.ID(),
		"penalty", charge.IsPenalty(),
	)
	return dto.ChargeResponse{
		LoanID:   loan.ID(),
		ChargeID: charge.ID(),
		Summary:  toSummaryDTO(loan),
	}, nil
}
