package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/application/usecase"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/service"
	pkgkafka "github.com/bibbank/loanservicing/pkg/kafka"
)

// CommandHeader names the message header carrying the command type.
const CommandHeader = "command"

// Command types accepted on the command topic.
const (
	CommandApplyTransaction = "apply_transaction"
	CommandAddCharge        = "add_charge"
	CommandReprocessLoan    = "reprocess_loan"
)

// TransactionApplier applies a loan transaction.
type TransactionApplier interface {
	Execute(ctx context.Context, req dto.ApplyTransactionRequest) (dto.TransactionResponse, error)
}

// ChargeAdder levies a charge on a loan.
type ChargeAdder interface {
	Execute(ctx context.Context, req dto.AddChargeRequest) (dto.ChargeResponse, error)
}

// LoanReprocessor replays a loan's history.
type LoanReprocessor interface {
	Execute(ctx context.Context, req dto.ReprocessLoanRequest) (dto.ReprocessLoanResponse, error)
}

// CommandHandler turns command messages into use case calls. Messages that
// can never succeed are logged and acknowledged; everything else is returned
// so the offset stays uncommitted.
type CommandHandler struct {
	apply     TransactionApplier
	charge    ChargeAdder
	reprocess LoanReprocessor
	logger    *slog.Logger
}

// NewCommandHandler wires the use cases commands are dispatched to.
func NewCommandHandler(apply TransactionApplier, charge ChargeAdder, reprocess LoanReprocessor, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{
		apply:     apply,
		charge:    charge,
		reprocess: reprocess,
		logger:    logger,
	}
}

// Handle implements pkg/kafka.Handler.
func (h *CommandHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	command := msg.Headers[CommandHeader]
	err := h.dispatch(ctx, command, msg.Value)
	if err == nil {
		return nil
	}
	if isPermanent(err) {
		h.logger.ErrorContext(ctx, "dropping command",
			"command", command,
			"key", string(msg.Key),
			"error_kind", service.KindOf(err).String(),
			"error", err,
		)
		return nil
	}
	return fmt.Errorf("%s: %w", command, err)
}

func (h *CommandHandler) dispatch(ctx context.Context, command string, payload []byte) error {
	switch command {
	case CommandApplyTransaction:
		var req dto.ApplyTransactionRequest
		if err := decode(payload, &req); err != nil {
			return err
		}
		_, err := h.apply.Execute(ctx, req)
		return err
	case CommandAddCharge:
		var req dto.AddChargeRequest
		if err := decode(payload, &req); err != nil {
			return err
		}
		_, err := h.charge.Execute(ctx, req)
		return err
	case CommandReprocessLoan:
		var req dto.ReprocessLoanRequest
		if err := decode(payload, &req); err != nil {
			return err
		}
		_, err := h.reprocess.Execute(ctx, req)
		return err
	}
	return fmt.Errorf("%w: unknown command %q", usecase.ErrInvalidRequest, command)
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode payload: %w", usecase.ErrInvalidRequest, err)
	}
	return nil
}

// isPermanent reports whether retrying the command cannot change the result.
func isPermanent(err error) bool {
	return errors.Is(err, usecase.ErrInvalidRequest) ||
		errors.Is(err, port.ErrLoanNotFound) ||
		service.KindOf(err) != service.KindUnknown
}
