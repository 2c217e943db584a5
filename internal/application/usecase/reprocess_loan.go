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
)

// ReprocessLoanUseCase replays a loan's whole history against its schedule
// and persists every transaction whose allocation changed.
type ReprocessLoanUseCase struct {
	loanRepo  port.LoanRepository
	publisher port.EventPublisher
	processor *service.Processor
	logger    *slog.Logger
	metrics   replayMetrics
}

// NewReprocessLoanUseCase wires dependencies.
func NewReprocessLoanUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	processor *service.Processor,
	logger *slog.Logger,
) *ReprocessLoanUseCase {
	return &ReprocessLoanUseCase{
		loanRepo:  loanRepo,
		publisher: publisher,
		processor: processor,
		logger:    logger,
		metrics:   newReplayMetrics(),
	}
}

// Execute reprocesses the loan.
func (uc *ReprocessLoanUseCase) Execute(ctx context.Context, req dto.ReprocessLoanRequest) (_ dto.ReprocessLoanResponse, err error) {
	ctx, span := startSpan(ctx, "ReprocessLoan", req.TenantID, req.LoanID)
	defer func() { endSpan(span, err) }()

	// 1. Retrieve the loan.
	loan, err := uc.loanRepo.FindByID(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return dto.ReprocessLoanResponse{}, fmt.Errorf("find loan: %w", err)
	}

	// 2. Replay the history.
	ledger, err := replayLoan(ctx, uc.processor, uc.metrics, loan, time.Now().UTC())
	if err != nil {
		uc.logger.ErrorContext(ctx, "reprocess failed",
			"loan_id", loan.ID(),
			"tenant_id", loan.TenantID(),
			"error_kind", service.KindOf(err).String(),
			"error", err,
		)
		return dto.ReprocessLoanResponse{}, err
	}

	// 3. Persist and publish.
	if err := saveAndPublish(ctx, uc.loanRepo, uc.publisher, loan); err != nil {
		return dto.ReprocessLoanResponse{}, err
	}

	uc.logger.InfoContext(ctx, "loan reprocessed",
		"loan_id", loan.ID(),
		"tenant_id", loan.TenantID(),
		"superseded", ledger.Len(),
	)

	resp := dto.ReprocessLoanResponse{
		LoanID:     loan.ID(),
		Superseded: make([]dto.SupersededDTO, 0, ledger.Len()),
		Summary:    toSummaryDTO(loan),
	}
	for _, change := range ledger.Changes() {
		resp.Superseded = append(resp.Superseded, dto.SupersededDTO{
			OldTransactionID: change.OldID,
			NewTransactionID: change.New.ID(),
			Type:             change.New.Type().String(),
		})
	}
	return resp, nil
}

// replayLoan runs a full replay of the loan's active transactions and
// applies the result to the aggregate.
func replayLoan(ctx context.Context, p *service.Processor, m replayMetrics, loan *model.Loan, now time.Time) (*model.ChangeLedger, error) {
	started := time.Now()
	outcome, err := p.Replay(
		loan.Terms(),
		loan.DisbursementDate(),
		loan.ActiveTransactions(),
		loan.Currency(),
		loan.Schedule(),
		loan.Charges(),
	)
	if err != nil {
		m.record(ctx, "full", started, 0, err)
		return nil, fmt.Errorf("reprocess: %w", err)
	}
	m.record(ctx, "full", started, outcome.Ledger.Len(), nil)
	loan.ApplyReplay(outcome.Ledger, outcome.Overpayment, now)
	return outcome.Ledger, nil
}
