package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// TransactionType – immutable value object
// ---------------------------------------------------------------------------

// TransactionType tags a loan transaction with the business event it records.
type TransactionType struct {
	value string
}

var (
	TransactionTypeDisbursement          = TransactionType{value: "DISBURSEMENT"}
	TransactionTypeRepayment             = TransactionType{value: "REPAYMENT"}
	TransactionTypeDownPayment           = TransactionType{value: "DOWN_PAYMENT"}
	TransactionTypeMerchantIssuedRefund  = TransactionType{value: "MERCHANT_ISSUED_REFUND"}
	TransactionTypePayoutRefund          = TransactionType{value: "PAYOUT_REFUND"}
	TransactionTypeGoodwillCredit        = TransactionType{value: "GOODWILL_CREDIT"}
	TransactionTypeChargeRefund          = TransactionType{value: "CHARGE_REFUND"}
	TransactionTypeChargeAdjustment      = TransactionType{value: "CHARGE_ADJUSTMENT"}
	TransactionTypeWaiveInterest         = TransactionType{value: "WAIVE_INTEREST"}
	TransactionTypeInterestPaymentWaiver = TransactionType{value: "INTEREST_PAYMENT_WAIVER"}
	TransactionTypeRecoveryRepayment     = TransactionType{value: "RECOVERY_REPAYMENT"}
	TransactionTypeWaiveCharges          = TransactionType{value: "WAIVE_CHARGES"}
	TransactionTypeChargePayment         = TransactionType{value: "CHARGE_PAYMENT"}
	TransactionTypeChargeback            = TransactionType{value: "CHARGEBACK"}
	TransactionTypeCreditBalanceRefund   = TransactionType{value: "CREDIT_BALANCE_REFUND"}
	TransactionTypeRefundForActiveLoan   = TransactionType{value: "REFUND_FOR_ACTIVE_LOAN"}
	TransactionTypeWriteOff              = TransactionType{value: "WRITEOFF"}
	TransactionTypeChargeOff             = TransactionType{value: "CHARGE_OFF"}
	TransactionTypeReAge                 = TransactionType{value: "REAGE"}
	TransactionTypeReAmortize            = TransactionType{value: "REAMORTIZE"}
	TransactionTypeAccrual               = TransactionType{value: "ACCRUAL"}
	TransactionTypeAccrualActivity       = TransactionType{value: "ACCRUAL_ACTIVITY"}
	TransactionTypeInterestRefund        = TransactionType{value: "INTEREST_REFUND"}
)

var validTransactionTypes = map[string]TransactionType{}

func init() {
	for _, t := range []TransactionType{
		TransactionTypeDisbursement, TransactionTypeRepayment, TransactionTypeDownPayment,
		TransactionTypeMerchantIssuedRefund, TransactionTypePayoutRefund, TransactionTypeGoodwillCredit,
		TransactionTypeChargeRefund, TransactionTypeChargeAdjustment, TransactionTypeWaiveInterest,
		TransactionTypeInterestPaymentWaiver, TransactionTypeRecoveryRepayment, TransactionTypeWaiveCharges,
		TransactionTypeChargePayment, TransactionTypeChargeback, TransactionTypeCreditBalanceRefund,
		TransactionTypeRefundForActiveLoan, TransactionTypeWriteOff, TransactionTypeChargeOff,
		TransactionTypeReAge, TransactionTypeReAmortize, TransactionTypeAccrual,
		TransactionTypeAccrualActivity, TransactionTypeInterestRefund,
	} {
		validTransactionTypes[t.value] = t
	}
}

// NewTransactionType creates a TransactionType from a raw string.
func NewTransactionType(s string) (TransactionType, error) {
	v, ok := validTransactionTypes[s]
	if !ok {
		return TransactionType{}, fmt.Errorf("invalid transaction type: %q", s)
	}
	return v, nil
}

// String returns the string representation of the type.
func (t TransactionType) String() string { return t.value }

// IsZero returns true if the type has not been initialised.
func (t TransactionType) IsZero() bool { return t.value == "" }

// IsRepaymentLike reports whether the type pays the schedule the way a
// repayment does.
func (t TransactionType) IsRepaymentLike() bool {
	switch t {
	case TransactionTypeRepayment, TransactionTypeMerchantIssuedRefund, TransactionTypePayoutRefund,
		TransactionTypeGoodwillCredit, TransactionTypeChargeRefund, TransactionTypeChargeAdjustment,
		TransactionTypeDownPayment, TransactionTypeInterestPaymentWaiver, TransactionTypeInterestRefund:
		return true
	}
	return false
}

// IsAccrual reports whether the type only records accrued income.
func (t TransactionType) IsAccrual() bool {
	return t == TransactionTypeAccrual || t == TransactionTypeAccrualActivity
}

// ---------------------------------------------------------------------------
// RelationType – typed link between two transactions
// ---------------------------------------------------------------------------

// RelationType describes why one transaction references another.
type RelationType struct {
	value string
}

var (
	RelationTypeChargeback       = RelationType{value: "CHARGEBACK"}
	RelationTypeReplayed         = RelationType{value: "REPLAYED"}
	RelationTypeChargeAdjustment = RelationType{value: "CHARGE_ADJUSTMENT"}
)

// NewRelationType parses a relation type name.
func NewRelationType(s string) (RelationType, error) {
	for _, r := range []RelationType{RelationTypeChargeback, RelationTypeReplayed, RelationTypeChargeAdjustment} {
		if r.value == s {
			return r, nil
		}
	}
	return RelationType{}, fmt.Errorf("invalid relation type: %q", s)
}

func (r RelationType) String() string { return r.value }

// ---------------------------------------------------------------------------
// FrequencyType – period stepping for re-aged installments
// ---------------------------------------------------------------------------

// FrequencyType is the unit a schedule is stepped in.
type FrequencyType struct {
	value string
}

var (
	FrequencyDays      = FrequencyType{value: "DAYS"}
	FrequencyWeeks     = FrequencyType{value: "WEEKS"}
	FrequencyMonths    = FrequencyType{value: "MONTHS"}
	FrequencyYears     = FrequencyType{value: "YEARS"}
	FrequencyWholeTerm = FrequencyType{value: "WHOLE_TERM"}
)

// NewFrequencyType parses a frequency name.
func NewFrequencyType(s string) (FrequencyType, error) {
	for _, f := range []FrequencyType{FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears, FrequencyWholeTerm} {
		if f.value == s {
			return f, nil
		}
	}
	return FrequencyType{}, fmt.Errorf("invalid frequency type: %q", s)
}

func (f FrequencyType) String() string { return f.value }

// PeriodsPerYear returns how many periods of every units fit in a year, or
// zero when the frequency does not describe a fixed period length.
func (f FrequencyType) PeriodsPerYear(every int) int {
	if every <= 0 {
		return 0
	}
	switch f {
	case FrequencyDays:
		return 365 / every
	case FrequencyWeeks:
		return 52 / every
	case FrequencyMonths:
		return 12 / every
	case FrequencyYears:
		return 1
	}
	return 0
}
