package model

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Allocation rules
// ---------------------------------------------------------------------------

// PaymentAllocationRule is the ordered list of (due type, bucket) entries a
// transaction type pays in, plus the policy choosing future installments.
// A rule with a zero transaction type is the DEFAULT rule.
type PaymentAllocationRule struct {
	transactionType valueobject.TransactionType
	order           []valueobject.PaymentAllocationType
	future          valueobject.FutureInstallmentAllocationRule
}

// NewPaymentAllocationRule creates a rule for one transaction type.
func NewPaymentAllocationRule(
	txType valueobject.TransactionType,
	order []valueobject.PaymentAllocationType,
	future valueobject.FutureInstallmentAllocationRule,
) (PaymentAllocationRule, error) {
	if len(order) == 0 {
		return PaymentAllocationRule{}, errors.New("allocation order must not be empty")
	}
	return PaymentAllocationRule{transactionType: txType, order: slices.Clone(order), future: future}, nil
}

// NewDefaultPaymentAllocationRule creates the DEFAULT rule.
func NewDefaultPaymentAllocationRule(
	order []valueobject.PaymentAllocationType,
	future valueobject.FutureInstallmentAllocationRule,
) (PaymentAllocationRule, error) {
	return NewPaymentAllocationRule(valueobject.TransactionType{}, order, future)
}

// TransactionType returns the type the rule applies to; zero for DEFAULT.
func (r PaymentAllocationRule) TransactionType() valueobject.TransactionType {
	return r.transactionType
}

// IsDefault reports whether this is the DEFAULT rule.
func (r PaymentAllocationRule) IsDefault() bool { return r.transactionType.IsZero() }

// AllocationOrder returns a copy of the configured order.
func (r PaymentAllocationRule) AllocationOrder() []valueobject.PaymentAllocationType {
	return slices.Clone(r.order)
}

// FutureInstallmentRule returns the future installment policy.
func (r PaymentAllocationRule) FutureInstallmentRule() valueobject.FutureInstallmentAllocationRule {
	return r.future
}

// CreditAllocationRule is the bucket order a credit transaction type claws
// back amounts in.
type CreditAllocationRule struct {
	transactionType valueobject.TransactionType
	order           []valueobject.AllocationType
}

// NewCreditAllocationRule creates a credit rule.
func NewCreditAllocationRule(txType valueobject.TransactionType, order []valueobject.AllocationType) (CreditAllocationRule, error) {
	if txType.IsZero() {
		return CreditAllocationRule{}, errors.New("credit allocation rule requires a transaction type")
	}
	if len(order) == 0 {
		return CreditAllocationRule{}, errors.New("credit allocation order must not be empty")
	}
	return CreditAllocationRule{transactionType: txType, order: slices.Clone(order)}, nil
}

func (r CreditAllocationRule) TransactionType() valueobject.TransactionType { return r.transactionType }

// AllocationOrder returns a copy of the configured order.
func (r CreditAllocationRule) AllocationOrder() []valueobject.AllocationType {
	return slices.Clone(r.order)
}

// ---------------------------------------------------------------------------
// LoanTerms
// ---------------------------------------------------------------------------

// LoanTerms is the product configuration the processor replays against.
type LoanTerms struct {
	// AnnualInterestRate is a percentage, 12 means 12% a year.
	AnnualInterestRate decimal.Decimal
	RepaymentEvery     int
	RepaymentFrequency valueobject.FrequencyType

	EnableDownPayment     bool
	DownPaymentPercentage decimal.Decimal

	// InstallmentAmountInMultiplesOf rounds installment amounts; zero disables it.
	InstallmentAmountInMultiplesOf int64

	ProcessingType         valueobject.ScheduleProcessingType
	PaymentAllocationRules []PaymentAllocationRule
	CreditAllocationRules  []CreditAllocationRule
}

// IsInterestBearing reports whether disbursements go through the interest
// schedule model.
func (t LoanTerms) IsInterestBearing() bool {
	return t.AnnualInterestRate.IsPositive()
}

// DefaultPaymentRule returns the DEFAULT rule.
func (t LoanTerms) DefaultPaymentRule() (PaymentAllocationRule, bool) {
	for _, r := range t.PaymentAllocationRules {
		if r.IsDefault() {
			return r, true
		}
	}
	return PaymentAllocationRule{}, false
}

// PaymentRuleFor returns the rule configured for txType, falling back to the
// DEFAULT rule.
func (t LoanTerms) PaymentRuleFor(txType valueobject.TransactionType) (PaymentAllocationRule, bool) {
	for _, r := range t.PaymentAllocationRules {
		if !r.IsDefault() && r.transactionType == txType {
			return r, true
		}
	}
	return t.DefaultPaymentRule()
}

// CreditRuleFor returns the credit rule configured for txType.
func (t LoanTerms) CreditRuleFor(txType valueobject.TransactionType) (CreditAllocationRule, bool) {
	for _, r := range t.CreditAllocationRules {
		if r.transactionType == txType {
			return r, true
		}
	}
	return CreditAllocationRule{}, false
}

// RoundToMultiples applies the installment multiple to m when configured.
func (t LoanTerms) RoundToMultiples(m money.Money, mode money.RoundingMode) money.Money {
	if t.InstallmentAmountInMultiplesOf <= 0 {
		return m
	}
	return m.RoundToMultiplesOf(t.InstallmentAmountInMultiplesOf, mode)
}

// ---------------------------------------------------------------------------
// MoneyHolder
// ---------------------------------------------------------------------------

// MoneyHolder is a mutable cell for the running overpayment balance shared by
// the handlers of one replay.
type MoneyHolder struct {
	value money.Money
}

// NewMoneyHolder creates a holder with an initial value.
func NewMoneyHolder(m money.Money) *MoneyHolder { return &MoneyHolder{value: m} }

// Get returns the current value.
func (h *MoneyHolder) Get() money.Money { return h.value }

// Set replaces the current value.
func (h *MoneyHolder) Set(m money.Money) { h.value = m }
