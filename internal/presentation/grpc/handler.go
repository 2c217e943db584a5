package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/application/usecase"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/service"
)

// ---------------------------------------------------------------------------
// Use case contracts
// ---------------------------------------------------------------------------

// LoanBoarder puts a loan under servicing.
type LoanBoarder interface {
	Execute(ctx context.Context, req dto.BoardLoanRequest) (dto.LoanResponse, error)
}

// TransactionApplier applies a new transaction to a loan.
type TransactionApplier interface {
	Execute(ctx context.Context, req dto.ApplyTransactionRequest) (dto.TransactionResponse, error)
}

// ChargeAdder levies a fee or penalty.
type ChargeAdder interface {
	Execute(ctx context.Context, req dto.AddChargeRequest) (dto.ChargeResponse, error)
}

// LoanReprocessor replays a loan's full history.
type LoanReprocessor interface {
	Execute(ctx context.Context, req dto.ReprocessLoanRequest) (dto.ReprocessLoanResponse, error)
}

// ScheduleReader returns a loan's schedule.
type ScheduleReader interface {
	Execute(ctx context.Context, req dto.GetScheduleRequest) (dto.ScheduleResponse, error)
}

// ---------------------------------------------------------------------------
// LoanServicingHandler
// ---------------------------------------------------------------------------

// LoanServicingHandler is the gRPC handler for loan servicing operations.
type LoanServicingHandler struct {
	UnimplementedLoanServicingServer

	board     LoanBoarder
	apply     TransactionApplier
	charge    ChargeAdder
	reprocess LoanReprocessor
	schedule  ScheduleReader
	logger    *slog.Logger
}

// NewLoanServicingHandler creates a new handler with all use-case dependencies.
func NewLoanServicingHandler(
	board LoanBoarder,
	apply TransactionApplier,
	charge ChargeAdder,
	reprocess LoanReprocessor,
	schedule ScheduleReader,
	logger *slog.Logger,
) *LoanServicingHandler {
	return &LoanServicingHandler{
		board:     board,
		apply:     apply,
		charge:    charge,
		reprocess: reprocess,
		schedule:  schedule,
		logger:    logger,
	}
}

// BoardLoan boards a disbursed loan and returns its generated schedule.
func (h *LoanServicingHandler) BoardLoan(ctx context.Context, req *dto.BoardLoanRequest) (*dto.LoanResponse, error) {
	if req.TenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}
	resp, err := h.board.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "BoardLoan", err)
	}
	return &resp, nil
}

// ApplyTransaction applies a repayment, credit or other loan transaction.
func (h *LoanServicingHandler) ApplyTransaction(ctx context.Context, req *dto.ApplyTransactionRequest) (*dto.TransactionResponse, error) {
	if err := requireLoan(req.TenantID, req.LoanID); err != nil {
		return nil, err
	}
	resp, err := h.apply.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "ApplyTransaction", err)
	}
	return &resp, nil
}

// AddCharge levies a fee or penalty and replays the loan.
func (h *LoanServicingHandler) AddCharge(ctx context.Context, req *dto.AddChargeRequest) (*dto.ChargeResponse, error) {
	if err := requireLoan(req.TenantID, req.LoanID); err != nil {
		return nil, err
	}
	resp, err := h.charge.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "AddCharge", err)
	}
	return &resp, nil
}

// ReprocessLoan replays the loan's whole transaction history.
func (h *LoanServicingHandler) ReprocessLoan(ctx context.Context, req *dto.ReprocessLoanRequest) (*dto.ReprocessLoanResponse, error) {
	if err := requireLoan(req.TenantID, req.LoanID); err != nil {
		return nil, err
	}
	resp, err := h.reprocess.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "ReprocessLoan", err)
	}
	return &resp, nil
}

// GetSchedule returns the current repayment schedule.
func (h *LoanServicingHandler) GetSchedule(ctx context.Context, req *dto.GetScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := requireLoan(req.TenantID, req.LoanID); err != nil {
		return nil, err
	}
	resp, err := h.schedule.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "GetSchedule", err)
	}
	return &resp, nil
}

func requireLoan(tenantID, loanID string) error {
	if tenantID == "" {
		return status.Error(codes.InvalidArgument, "tenant_id is required")
	}
	if loanID == "" {
		return status.Error(codes.InvalidArgument, "loan_id is required")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

// toStatus converts a use case error into a gRPC status. Unclassified errors
// are logged and reported without detail.
func (h *LoanServicingHandler) toStatus(ctx context.Context, method string, err error) error {
	code := statusCode(err)
	if code == codes.Internal {
		h.logger.ErrorContext(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, usecase.ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, port.ErrLoanNotFound):
		return codes.NotFound
	case errors.Is(err, port.ErrConcurrentModification):
		return codes.Aborted
	}

	switch service.KindOf(err) {
	case service.KindReferential:
		return codes.NotFound
	case service.KindInvalidData, service.KindConfiguration:
		return codes.FailedPrecondition
	case service.KindUnsupported:
		return codes.Unimplemented
	default:
		return codes.Internal
	}
}
