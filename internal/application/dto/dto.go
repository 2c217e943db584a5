package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Loan product terms
// ---------------------------------------------------------------------------

// PaymentAllocationRuleDTO is one payment allocation rule. An empty or
// "DEFAULT" transaction type marks the DEFAULT rule.
type PaymentAllocationRuleDTO struct {
	TransactionType                 string   `json:"transaction_type"`
	AllocationOrder                 []string `json:"allocation_order"`
	FutureInstallmentAllocationRule string   `json:"future_installment_allocation_rule"`
}

// CreditAllocationRuleDTO is the bucket order a credit transaction type
// claws back in.
type CreditAllocationRuleDTO struct {
	TransactionType string   `json:"transaction_type"`
	AllocationOrder []string `json:"allocation_order"`
}

// TermsDTO carries the loan product configuration.
type TermsDTO struct {
	AnnualInterestRate             decimal.Decimal            `json:"annual_interest_rate"`
	RepaymentEvery                 int                        `json:"repayment_every"`
	RepaymentFrequency             string                     `json:"repayment_frequency"`
	EnableDownPayment              bool                       `json:"enable_down_payment"`
	DownPaymentPercentage          decimal.Decimal            `json:"down_payment_percentage"`
	InstallmentAmountInMultiplesOf int64                      `json:"installment_amount_in_multiples_of,omitempty"`
	ScheduleProcessingType         string                     `json:"schedule_processing_type"`
	PaymentAllocationRules         []PaymentAllocationRuleDTO `json:"payment_allocation_rules"`
	CreditAllocationRules          []CreditAllocationRuleDTO  `json:"credit_allocation_rules,omitempty"`
}

// ReAgeDTO carries the parameters of a RE_AGE transaction.
type ReAgeDTO struct {
	FrequencyType        string    `json:"frequency_type"`
	FrequencyNumber      int       `json:"frequency_number"`
	StartDate            time.Time `json:"start_date"`
	NumberOfInstallments int       `json:"number_of_installments"`
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// BoardLoanRequest carries the data needed to put a loan under servicing.
type BoardLoanRequest struct {
	TenantID             string    `json:"tenant_id"`
	BorrowerID           string    `json:"borrower_id"`
	Currency             string    `json:"currency"`
	DisbursementDate     time.Time `json:"disbursement_date"`
	NumberOfInstallments int       `json:"number_of_installments"`
	Terms                TermsDTO  `json:"terms"`
}

// ApplyTransactionRequest carries a new loan transaction.
type ApplyTransactionRequest struct {
	TenantID        string          `json:"tenant_id"`
	LoanID          string          `json:"loan_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	// SubmittedOn defaults to TransactionDate.
	SubmittedOn time.Time `json:"submitted_on,omitempty"`
	// OriginalTransactionID links a CHARGEBACK to the transaction it claws
	// back from.
	OriginalTransactionID string `json:"original_transaction_id,omitempty"`
	// ChargeID names the charge a CHARGE_PAYMENT settles.
	ChargeID string    `json:"charge_id,omitempty"`
	ReAge    *ReAgeDTO `json:"re_age,omitempty"`
}

// AddChargeRequest carries a fee or penalty levied on a loan.
type AddChargeRequest struct {
	TenantID string          `json:"tenant_id"`
	LoanID   string          `json:"loan_id"`
	Penalty  bool            `json:"penalty"`
	Amount   decimal.Decimal `json:"amount"`
	// A zero DueDate means the charge has no specific due date.
	DueDate     time.Time `json:"due_date,omitempty"`
	SubmittedOn time.Time `json:"submitted_on,omitempty"`
}

// ReprocessLoanRequest identifies a loan whose history is replayed.
type ReprocessLoanRequest struct {
	TenantID string `json:"tenant_id"`
	LoanID   string `json:"loan_id"`
}

// GetScheduleRequest identifies a loan whose schedule is returned.
type GetScheduleRequest struct {
	TenantID string `json:"tenant_id"`
	LoanID   string `json:"loan_id"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// InstallmentDTO is the external representation of one installment.
type InstallmentDTO struct {
	Number           int             `json:"number"`
	FromDate         time.Time       `json:"from_date"`
	DueDate          time.Time       `json:"due_date"`
	Principal        decimal.Decimal `json:"principal"`
	PrincipalPaid    decimal.Decimal `json:"principal_paid"`
	Interest         decimal.Decimal `json:"interest"`
	InterestPaid     decimal.Decimal `json:"interest_paid"`
	Fee              decimal.Decimal `json:"fee"`
	FeePaid          decimal.Decimal `json:"fee_paid"`
	Penalty          decimal.Decimal `json:"penalty"`
	PenaltyPaid      decimal.Decimal `json:"penalty_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	DownPayment      bool            `json:"down_payment,omitempty"`
	Additional       bool            `json:"additional,omitempty"`
	ReAged           bool            `json:"re_aged,omitempty"`
	ObligationsMet   bool            `json:"obligations_met"`
	ObligationsMetOn *time.Time      `json:"obligations_met_on,omitempty"`
}

// SummaryDTO is the outstanding position of a loan.
type SummaryDTO struct {
	PrincipalOutstanding decimal.Decimal `json:"principal_outstanding"`
	InterestOutstanding  decimal.Decimal `json:"interest_outstanding"`
	FeeOutstanding       decimal.Decimal `json:"fee_outstanding"`
	PenaltyOutstanding   decimal.Decimal `json:"penalty_outstanding"`
	TotalOutstanding     decimal.Decimal `json:"total_outstanding"`
	CreditBalance        decimal.Decimal `json:"credit_balance"`
	Status               string          `json:"status"`
}

// LoanResponse is the external representation of a boarded loan.
type LoanResponse struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	BorrowerID       string           `json:"borrower_id"`
	Currency         string           `json:"currency"`
	DisbursementDate time.Time        `json:"disbursement_date"`
	Version          int              `json:"version"`
	Installments     []InstallmentDTO `json:"installments"`
	Summary          SummaryDTO       `json:"summary"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ScheduleResponse is the current schedule of a loan.
type ScheduleResponse struct {
	LoanID       string           `json:"loan_id"`
	Currency     string           `json:"currency"`
	Version      int              `json:"version"`
	Installments []InstallmentDTO `json:"installments"`
	Summary      SummaryDTO       `json:"summary"`
}

// TransactionResponse is the allocation of an applied transaction.
type TransactionResponse struct {
	LoanID        string          `json:"loan_id"`
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Principal     decimal.Decimal `json:"principal_portion"`
	Interest      decimal.Decimal `json:"interest_portion"`
	Fee           decimal.Decimal `json:"fee_portion"`
	Penalty       decimal.Decimal `json:"penalty_portion"`
	Overpayment   decimal.Decimal `json:"overpayment_portion"`
	// FullReplay is set when the transaction was backdated and the whole
	// history was replayed.
	FullReplay      bool       `json:"full_replay"`
	SupersededCount int        `json:"superseded_count"`
	Summary         SummaryDTO `json:"summary"`
}

// SupersededDTO pairs a replaced transaction with its replacement.
type SupersededDTO struct {
	OldTransactionID string `json:"old_transaction_id"`
	NewTransactionID string `json:"new_transaction_id"`
	Type             string `json:"type"`
}

// ReprocessLoanResponse is the result of a full replay.
type ReprocessLoanResponse struct {
	LoanID     string          `json:"loan_id"`
	Superseded []SupersededDTO `json:"superseded"`
	Summary    SummaryDTO      `json:"summary"`
}

// ChargeResponse is the result of adding a charge.
type ChargeResponse struct {
	LoanID   string     `json:"loan_id"`
	ChargeID string     `json:"charge_id"`
	Summary  SummaryDTO `json:"summary"`
}
