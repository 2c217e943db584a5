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
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
)

// ApplyTransactionUseCase appends a transaction to a loan. A transaction
// dated on or after the newest active one is allocated on its own against
// the current schedule; a backdated one triggers a full replay.
type ApplyTransactionUseCase struct {
	loanRepo  port.LoanRepository
	publisher port.EventPublisher
	processor *service.Processor
	logger    *slog.Logger
	metrics   replayMetrics
}

// NewApplyTransactionUseCase wires dependencies.
func NewApplyTransactionUseCase(
	loanRepo port.LoanRepository,
	publisher port.EventPublisher,
	processor *service.Processor,
	logger *slog.Logger,
) *ApplyTransactionUseCase {
	return &ApplyTransactionUseCase{
		loanRepo:  loanRepo,
		publisher: publisher,
		processor: processor,
		logger:    logger,
		metrics:   newReplayMetrics(),
	}
}

// Execute applies the transaction and returns its allocation.
func (uc *ApplyTransactionUseCase) Execute(ctx context.Context, req dto.ApplyTransactionRequest) (_ dto.TransactionResponse, err error) {
	ctx, span := startSpan(ctx, "ApplyTransaction", req.TenantID, req.LoanID)
	defer func() { endSpan(span, err) }()

	now := time.Now().UTC()

	// 1. Retrieve the loan.
	loan, err := uc.loanRepo.FindByID(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return dto.TransactionResponse{}, fmt.Errorf("find loan: %w", err)
	}

	// 2. Build the transaction and link it to what it refers to.
	txn, err := newTransaction(loan, req, now)
	if err != nil {
		return dto.TransactionResponse{}, err
	}
	latest, hasHistory := loan.LatestTransactionDate()
	if err := loan.AddTransaction(txn); err != nil {
		return dto.TransactionResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// 3. Allocate.
	fullReplay := hasHistory && txn.Date().Before(latest)
	superseded := 0
	if fullReplay {
		ledger, err := replayLoan(ctx, uc.processor, uc.metrics, loan, now)
		if err != nil {
			return dto.TransactionResponse{}, err
		}
		superseded = ledger.Len()
	} else if err := uc.processLatest(ctx, loan, txn, now); err != nil {
		return dto.TransactionResponse{}, err
	}

	// 4. Persist and publish.
	if err := saveAndPublish(ctx, uc.loanRepo, uc.publisher, loan); err != nil {
		return dto.TransactionResponse{}, err
	}

	uc.logger.InfoContext(ctx, "transaction applied",
		"loan_id", loan.ID(),
		"tenant_id", loan.TenantID(),
		"transaction_id", txn.ID(),
		"transaction_type", txn.Type().String(),
		"full_replay", fullReplay,
	)

	return dto.TransactionResponse{
		LoanID:          loan.ID(),
		TransactionID:   txn.ID(),
		Type:            txn.Type().String(),
		Amount:          txn.Amount().Amount(),
		Principal:       txn.PrincipalPortion().Amount(),
		Interest:        txn.InterestPortion().Amount(),
		Fee:             txn.FeePortion().Amount(),
		Penalty:         txn.PenaltyPortion().Amount(),
		Overpayment:     txn.OverpaymentPortion().Amount(),
		FullReplay:      fullReplay,
		SupersededCount: superseded,
		Summary:         toSummaryDTO(loan),
	}, nil
}

// processLatest allocates txn against the schedule as it stands, starting
// from the loan's credit balance.
func (uc *ApplyTransactionUseCase) processLatest(ctx context.Context, loan *model.Loan, txn *model.Transaction, now time.Time) error {
	started := time.Now()
	tctx := service.NewTransactionCtx(
		loan.Currency(),
		loan.Terms(),
		loan.DisbursementDate(),
		loan.Schedule(),
		loan.Charges(),
		loan.ActiveTransactions(),
	)
	tctx.Overpayment.Set(loan.CreditBalance())

	if err := uc.processor.ProcessLatestTransaction(txn, tctx); err != nil {
		uc.metrics.record(ctx, "single", started, 0, err)
		uc.logger.ErrorContext(ctx, "transaction processing failed",
			"loan_id", loan.ID(),
			"transaction_type", txn.Type().String(),
			"error_kind", service.KindOf(err).String(),
			"error", err,
		)
		return fmt.Errorf("process transaction: %w", err)
	}
	uc.metrics.record(ctx, "single", started, 0, nil)
	loan.RecordProcessed(txn, tctx.Overpayment.Get(), now)
	return nil
}

// newTransaction validates the request and builds an unpersisted
// transaction. Chargebacks are linked from their original transaction.
func newTransaction(loan *model.Loan, req dto.ApplyTransactionRequest, now time.Time) (*model.Transaction, error) {
	txType, err := valueobject.NewTransactionType(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.TransactionDate.IsZero() {
		return nil, invalid("transaction date is required")
	}
	if req.Amount.IsNegative() {
		return nil, invalid("amount must not be negative")
	}
	submitted := req.SubmittedOn
	if submitted.IsZero() {
		submitted = req.TransactionDate
	}

	amount, err := amountIn(req.Amount, loan.Currency())
	if err != nil {
		return nil, err
	}
	txn := model.NewTransaction("", txType, amount, req.TransactionDate, submitted, now)

	switch txType {
	case valueobject.TransactionTypeChargeback:
		if req.OriginalTransactionID == "" {
			return nil, invalid("chargeback requires an original transaction")
		}
		original, ok := loan.FindTransaction(req.OriginalTransactionID)
		if !ok || original.IsReversed() {
			return nil, fmt.Errorf("%w: %s", service.ErrOriginalTransactionNotFound, req.OriginalTransactionID)
		}
		original.AddRelation(valueobject.RelationTypeChargeback, txn)
	case valueobject.TransactionTypeChargePayment:
		if req.ChargeID == "" {
			return nil, invalid("charge payment requires a charge")
		}
		if _, ok := loan.FindCharge(req.ChargeID); !ok {
			return nil, fmt.Errorf("%w: %s", service.ErrChargeNotFound, req.ChargeID)
		}
		txn.SetChargeID(req.ChargeID)
	case valueobject.TransactionTypeReAge:
		if req.ReAge == nil {
			return nil, invalid("re-age requires re-age parameters")
		}
		freq, err := valueobject.NewFrequencyType(req.ReAge.FrequencyType)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		txn.SetReAgeParameter(model.ReAgeParameter{
			FrequencyType:        freq,
			FrequencyNumber:      req.ReAge.FrequencyNumber,
			StartDate:            req.ReAge.StartDate,
			NumberOfInstallments: req.ReAge.NumberOfInstallments,
		})
	}
	return txn, nil
}
