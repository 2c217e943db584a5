package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/internal/application/dto"
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ErrInvalidRequest marks requests rejected before any loan state changes.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Request mapping
// ---------------------------------------------------------------------------

// amountIn converts a requested amount into currency. Amounts finer than the
// currency's minor unit are rejected rather than rounded.
func amountIn(amount decimal.Decimal, currency money.Currency) (money.Money, error) {
	if !amount.Round(currency.Digits()).Equal(amount) {
		return money.Money{}, invalid("amount %s has more than %d decimal places for %s",
			amount.String(), currency.Digits(), currency.Code())
	}
	return money.New(amount, currency), nil
}

func termsFromDTO(d dto.TermsDTO) (model.LoanTerms, error) {
	terms := model.LoanTerms{
		AnnualInterestRate:             d.AnnualInterestRate,
		RepaymentEvery:                 d.RepaymentEvery,
		EnableDownPayment:              d.EnableDownPayment,
		DownPaymentPercentage:          d.DownPaymentPercentage,
		InstallmentAmountInMultiplesOf: d.InstallmentAmountInMultiplesOf,
	}
	if terms.AnnualInterestRate.IsNegative() {
		return model.LoanTerms{}, invalid("annual interest rate must not be negative")
	}

	var err error
	if terms.RepaymentFrequency, err = valueobject.NewFrequencyType(d.RepaymentFrequency); err != nil {
		return model.LoanTerms{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	processing := d.ScheduleProcessingType
	if processing == "" {
		processing = valueobject.ScheduleProcessingHorizontal.String()
	}
	if terms.ProcessingType, err = valueobject.NewScheduleProcessingType(processing); err != nil {
		return model.LoanTerms{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	for _, r := range d.PaymentAllocationRules {
		rule, err := paymentRuleFromDTO(r)
		if err != nil {
			return model.LoanTerms{}, fmt.Errorf("%w: payment allocation rule %q: %w", ErrInvalidRequest, r.TransactionType, err)
		}
		terms.PaymentAllocationRules = append(terms.PaymentAllocationRules, rule)
	}
	for _, r := range d.CreditAllocationRules {
		rule, err := creditRuleFromDTO(r)
		if err != nil {
			return model.LoanTerms{}, fmt.Errorf("%w: credit allocation rule %q: %w", ErrInvalidRequest, r.TransactionType, err)
		}
		terms.CreditAllocationRules = append(terms.CreditAllocationRules, rule)
	}
	return terms, nil
}

func paymentRuleFromDTO(r dto.PaymentAllocationRuleDTO) (model.PaymentAllocationRule, error) {
	order := make([]valueobject.PaymentAllocationType, 0, len(r.AllocationOrder))
	for _, s := range r.AllocationOrder {
		pt, err := valueobject.ParsePaymentAllocationType(s)
		if err != nil {
			return model.PaymentAllocationRule{}, err
		}
		order = append(order, pt)
	}
	future, err := valueobject.NewFutureInstallmentAllocationRule(r.FutureInstallmentAllocationRule)
	if err != nil {
		return model.PaymentAllocationRule{}, err
	}
	if r.TransactionType == "" || strings.EqualFold(r.TransactionType, "DEFAULT") {
		return model.NewDefaultPaymentAllocationRule(order, future)
	}
	txType, err := valueobject.NewTransactionType(r.TransactionType)
	if err != nil {
		return model.PaymentAllocationRule{}, err
	}
	return model.NewPaymentAllocationRule(txType, order, future)
}

func creditRuleFromDTO(r dto.CreditAllocationRuleDTO) (model.CreditAllocationRule, error) {
	txType, err := valueobject.NewTransactionType(r.TransactionType)
	if err != nil {
		return model.CreditAllocationRule{}, err
	}
	order := make([]valueobject.AllocationType, 0, len(r.AllocationOrder))
	for _, s := range r.AllocationOrder {
		at, err := valueobject.NewAllocationType(s)
		if err != nil {
			return model.CreditAllocationRule{}, err
		}
		order = append(order, at)
	}
	return model.NewCreditAllocationRule(txType, order)
}

// ---------------------------------------------------------------------------
// Response mapping
// ---------------------------------------------------------------------------

func toInstallmentDTOs(schedule *model.Schedule) []dto.InstallmentDTO {
	out := make([]dto.InstallmentDTO, 0, schedule.Len())
	for _, inst := range schedule.Installments() {
		d := dto.InstallmentDTO{
			Number:           inst.Number(),
			FromDate:         inst.FromDate(),
			DueDate:          inst.DueDate(),
			Principal:        inst.Principal().Amount(),
			PrincipalPaid:    inst.PrincipalCompleted().Amount(),
			Interest:         inst.Interest().Amount(),
			InterestPaid:     inst.InterestPaid().Amount(),
			Fee:              inst.FeeCharged().Amount(),
			FeePaid:          inst.FeePaid().Amount(),
			Penalty:          inst.PenaltyCharged().Amount(),
			PenaltyPaid:      inst.PenaltyPaid().Amount(),
			TotalOutstanding: inst.TotalOutstanding().Amount(),
			DownPayment:      inst.IsDownPayment(),
			Additional:       inst.IsAdditional(),
			ReAged:           inst.IsReAged(),
			ObligationsMet:   inst.ObligationsMet(),
		}
		if inst.ObligationsMet() && !inst.ObligationsMetOn().IsZero() {
			on := inst.ObligationsMetOn()
			d.ObligationsMetOn = &on
		}
		out = append(out, d)
	}
	return out
}

func toSummaryDTO(loan *model.Loan) dto.SummaryDTO {
	s := loan.Summary()
	return dto.SummaryDTO{
		PrincipalOutstanding: s.Outstanding.Principal.Amount(),
		InterestOutstanding:  s.Outstanding.Interest.Amount(),
		FeeOutstanding:       s.Outstanding.Fee.Amount(),
		PenaltyOutstanding:   s.Outstanding.Penalty.Amount(),
		TotalOutstanding:     s.TotalOutstanding.Amount(),
		CreditBalance:        s.CreditBalance.Amount(),
		Status:               s.Status.String(),
	}
}

func toLoanResponse(loan *model.Loan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:               loan.ID(),
		TenantID:         loan.TenantID(),
		BorrowerID:       loan.BorrowerID(),
		Currency:         loan.Currency().Code(),
		DisbursementDate: loan.DisbursementDate(),
		Version:          loan.Version(),
		Installments:     toInstallmentDTOs(loan.Schedule()),
		Summary:          toSummaryDTO(loan),
		CreatedAt:        loan.CreatedAt(),
		UpdatedAt:        loan.UpdatedAt(),
	}
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// saveAndPublish persists the loan and publishes the events it recorded.
// Events are only cleared once they were handed to the publisher.
func saveAndPublish(ctx context.Context, repo port.LoanRepository, publisher port.EventPublisher, loan *model.Loan) error {
	if err := repo.Save(ctx, loan); err != nil {
		return fmt.Errorf("save loan: %w", err)
	}
	if err := publisher.Publish(ctx, loan.DomainEvents()...); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	loan.ClearEvents()
	return nil
}
