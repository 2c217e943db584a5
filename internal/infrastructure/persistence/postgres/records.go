package postgres

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// JSONB records
// ---------------------------------------------------------------------------

type paymentRuleRecord struct {
	TransactionType string   `json:"transaction_type,omitempty"`
	Order           []string `json:"order"`
	FutureRule      string   `json:"future_installment_rule"`
}

type creditRuleRecord struct {
	TransactionType string   `json:"transaction_type"`
	Order           []string `json:"order"`
}

type termsRecord struct {
	AnnualInterestRate    decimal.Decimal     `json:"annual_interest_rate"`
	RepaymentEvery        int                 `json:"repayment_every"`
	RepaymentFrequency    string              `json:"repayment_frequency"`
	EnableDownPayment     bool                `json:"enable_down_payment"`
	DownPaymentPercentage decimal.Decimal     `json:"down_payment_percentage"`
	MultiplesOf           int64               `json:"installment_amount_in_multiples_of"`
	ProcessingType        string              `json:"processing_type"`
	PaymentRules          []paymentRuleRecord `json:"payment_allocation_rules"`
	CreditRules           []creditRuleRecord  `json:"credit_allocation_rules,omitempty"`
}

type reAgeRecord struct {
	FrequencyType        string    `json:"frequency_type"`
	FrequencyNumber      int       `json:"frequency_number"`
	StartDate            time.Time `json:"start_date"`
	NumberOfInstallments int       `json:"number_of_installments"`
}

func newTermsRecord(t model.LoanTerms) termsRecord {
	rec := termsRecord{
		AnnualInterestRate:    t.AnnualInterestRate,
		RepaymentEvery:        t.RepaymentEvery,
		RepaymentFrequency:    t.RepaymentFrequency.String(),
		EnableDownPayment:     t.EnableDownPayment,
		DownPaymentPercentage: t.DownPaymentPercentage,
		MultiplesOf:           t.InstallmentAmountInMultiplesOf,
		ProcessingType:        t.ProcessingType.String(),
	}
	for _, r := range t.PaymentAllocationRules {
		pr := paymentRuleRecord{
			TransactionType: r.TransactionType().String(),
			FutureRule:      r.FutureInstallmentRule().String(),
		}
		for _, pt := range r.AllocationOrder() {
			pr.Order = append(pr.Order, pt.String())
		}
		rec.PaymentRules = append(rec.PaymentRules, pr)
	}
	for _, r := range t.CreditAllocationRules {
		cr := creditRuleRecord{TransactionType: r.TransactionType().String()}
		for _, at := range r.AllocationOrder() {
			cr.Order = append(cr.Order, at.String())
		}
		rec.CreditRules = append(rec.CreditRules, cr)
	}
	return rec
}

func (r termsRecord) toModel() (model.LoanTerms, error) {
	terms := model.LoanTerms{
		AnnualInterestRate:             r.AnnualInterestRate,
		RepaymentEvery:                 r.RepaymentEvery,
		EnableDownPayment:              r.EnableDownPayment,
		DownPaymentPercentage:          r.DownPaymentPercentage,
		InstallmentAmountInMultiplesOf: r.MultiplesOf,
	}
	var err error
	if r.RepaymentFrequency != "" {
		if terms.RepaymentFrequency, err = valueobject.NewFrequencyType(r.RepaymentFrequency); err != nil {
			return model.LoanTerms{}, err
		}
	}
	if terms.ProcessingType, err = valueobject.NewScheduleProcessingType(r.ProcessingType); err != nil {
		return model.LoanTerms{}, err
	}

	for _, pr := range r.PaymentRules {
		rule, err := pr.toModel()
		if err != nil {
			return model.LoanTerms{}, err
		}
		terms.PaymentAllocationRules = append(terms.PaymentAllocationRules, rule)
	}
	for _, cr := range r.CreditRules {
		rule, err := cr.toModel()
		if err != nil {
			return model.LoanTerms{}, err
		}
		terms.CreditAllocationRules = append(terms.CreditAllocationRules, rule)
	}
	return terms, nil
}

func (r paymentRuleRecord) toModel() (model.PaymentAllocationRule, error) {
	order := make([]valueobject.PaymentAllocationType, 0, len(r.Order))
	for _, s := range r.Order {
		pt, err := valueobject.ParsePaymentAllocationType(s)
		if err != nil {
			return model.PaymentAllocationRule{}, err
		}
		order = append(order, pt)
	}
	future, err := valueobject.NewFutureInstallmentAllocationRule(r.FutureRule)
	if err != nil {
		return model.PaymentAllocationRule{}, err
	}
	if r.TransactionType == "" {
		return model.NewDefaultPaymentAllocationRule(order, future)
	}
	txType, err := valueobject.NewTransactionType(r.TransactionType)
	if err != nil {
		return model.PaymentAllocationRule{}, err
	}
	return model.NewPaymentAllocationRule(txType, order, future)
}

func (r creditRuleRecord) toModel() (model.CreditAllocationRule, error) {
	txType, err := valueobject.NewTransactionType(r.TransactionType)
	if err != nil {
		return model.CreditAllocationRule{}, err
	}
	order := make([]valueobject.AllocationType, 0, len(r.Order))
	for _, s := range r.Order {
		at, err := valueobject.NewAllocationType(s)
		if err != nil {
			return model.CreditAllocationRule{}, err
		}
		order = append(order, at)
	}
	return model.NewCreditAllocationRule(txType, order)
}

func newReAgeRecord(p *model.ReAgeParameter) *reAgeRecord {
	if p == nil {
		return nil
	}
	return &reAgeRecord{
		FrequencyType:        p.FrequencyType.String(),
		FrequencyNumber:      p.FrequencyNumber,
		StartDate:            p.StartDate,
		NumberOfInstallments: p.NumberOfInstallments,
	}
}

func (r *reAgeRecord) toModel() (*model.ReAgeParameter, error) {
	if r == nil {
		return nil, nil
	}
	freq, err := valueobject.NewFrequencyType(r.FrequencyType)
	if err != nil {
		return nil, fmt.Errorf("re-age parameter: %w", err)
	}
	return &model.ReAgeParameter{
		FrequencyType:        freq,
		FrequencyNumber:      r.FrequencyNumber,
		StartDate:            r.StartDate,
		NumberOfInstallments: r.NumberOfInstallments,
	}, nil
}

// ---------------------------------------------------------------------------
// Nullable columns
// ---------------------------------------------------------------------------

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
