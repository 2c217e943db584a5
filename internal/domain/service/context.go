package service

import (
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/pkg/money"
)

// TransactionCtx carries the mutable state one replay threads through its
// handlers. Every effect a handler has is visible through this value.
type TransactionCtx struct {
	Currency         money.Currency
	Terms            model.LoanTerms
	DisbursementDate time.Time
	Schedule         *model.Schedule
	Charges          []*model.Charge
	Overpayment      *model.MoneyHolder
	Ledger           *model.ChangeLedger
	Model            port.InterestScheduleModel

	// Transactions is the persisted history, used to resolve relations.
	Transactions []*model.Transaction

	overpaid []*model.Transaction
}

// NewTransactionCtx creates a context with an empty ledger and no
// overpayment.
func NewTransactionCtx(
	currency money.Currency,
	terms model.LoanTerms,
	disbursementDate time.Time,
	schedule *model.Schedule,
	charges []*model.Charge,
	transactions []*model.Transaction,
) *TransactionCtx {
	return &TransactionCtx{
		Currency:         currency,
		Terms:            terms,
		DisbursementDate: disbursementDate,
		Schedule:         schedule,
		Charges:          charges,
		Overpayment:      model.NewMoneyHolder(money.Zero(currency)),
		Ledger:           model.NewChangeLedger(),
		Transactions:     transactions,
	}
}

func (c *TransactionCtx) zero() money.Money { return money.Zero(c.Currency) }
