package event

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const aggregateTypeLoan = "Loan"

// ---------------------------------------------------------------------------
// Loan servicing events
// ---------------------------------------------------------------------------

// LoanCreated is raised when a loan is boarded with its initial schedule.
type LoanCreated struct {
	events.BaseEvent
	BorrowerID       string          `json:"borrower_id"`
	Currency         string          `json:"currency"`
	InstallmentCount int             `json:"installment_count"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
}

func NewLoanCreated(loanID, tenantID, borrowerID, currency string, installments int, rate decimal.Decimal) LoanCreated {
	return LoanCreated{
		BaseEvent:        events.NewBaseEvent("loanservicing.loan.created", loanID, aggregateTypeLoan, tenantID),
		BorrowerID:       borrowerID,
		Currency:         currency,
		InstallmentCount: installments,
		InterestRate:     rate,
	}
}

// LoanTransactionProcessed is raised when a single transaction has been
// allocated against the schedule.
type LoanTransactionProcessed struct {
	events.BaseEvent
	TransactionID   string          `json:"transaction_id"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Principal       decimal.Decimal `json:"principal_portion"`
	Interest        decimal.Decimal `json:"interest_portion"`
	Fee             decimal.Decimal `json:"fee_portion"`
	Penalty         decimal.Decimal `json:"penalty_portion"`
	Overpayment     decimal.Decimal `json:"overpayment_portion"`
	Currency        string          `json:"currency"`
}

func NewLoanTransactionProcessed(
	loanID, tenantID, transactionID, transactionType string,
	amount, principal, interest, fee, penalty, overpayment decimal.Decimal,
	currency string,
) LoanTransactionProcessed {
	return LoanTransactionProcessed{
		BaseEvent:       events.NewBaseEvent("loanservicing.transaction.processed", loanID, aggregateTypeLoan, tenantID),
		TransactionID:   transactionID,
		TransactionType: transactionType,
		Amount:          amount,
		Principal:       principal,
		Interest:        interest,
		Fee:             fee,
		Penalty:         penalty,
		Overpayment:     overpayment,
		Currency:        currency,
	}
}

// TransactionSuperseded is raised when a replay produced a different
// allocation and the persisted transaction was replaced.
type TransactionSuperseded struct {
	events.BaseEvent
	OldTransactionID string `json:"old_transaction_id"`
	NewTransactionID string `json:"new_transaction_id"`
	TransactionType  string `json:"transaction_type"`
}

func NewTransactionSuperseded(loanID, tenantID, oldID, newID, transactionType string) TransactionSuperseded {
	return TransactionSuperseded{
		BaseEvent:        events.NewBaseEvent("loanservicing.transaction.superseded", loanID, aggregateTypeLoan, tenantID),
		OldTransactionID: oldID,
		NewTransactionID: newID,
		TransactionType:  transactionType,
	}
}

// LoanScheduleReprocessed is raised after a full replay of the history.
type LoanScheduleReprocessed struct {
	events.BaseEvent
	SupersededCount  int             `json:"superseded_count"`
	InstallmentCount int             `json:"installment_count"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	CreditBalance    decimal.Decimal `json:"credit_balance"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
}

func NewLoanScheduleReprocessed(
	loanID, tenantID string,
	superseded, installments int,
	outstanding, creditBalance decimal.Decimal,
	status, currency string,
) LoanScheduleReprocessed {
	return LoanScheduleReprocessed{
		BaseEvent:        events.NewBaseEvent("loanservicing.schedule.reprocessed", loanID, aggregateTypeLoan, tenantID),
		SupersededCount:  superseded,
		InstallmentCount: installments,
		TotalOutstanding: outstanding,
		CreditBalance:    creditBalance,
		Status:           status,
		Currency:         currency,
	}
}

// LoanStatusChanged is raised when the derived loan status moves.
type LoanStatusChanged struct {
	events.BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

func NewLoanStatusChanged(loanID, tenantID, from, to string) LoanStatusChanged {
	return LoanStatusChanged{
		BaseEvent: events.NewBaseEvent("loanservicing.loan.status_changed", loanID, aggregateTypeLoan, tenantID),
		From:      from,
		To:        to,
	}
}
