package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/loanservicing/internal/domain/event"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/events"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan owns the schedule, the transaction history and the charges of one
// loan. The schedule is replayed in place, so the aggregate is handled by
// pointer and callers serialise access per loan.
type Loan struct {
	id               string
	tenantID         string
	borrowerID       string
	currency         money.Currency
	terms            LoanTerms
	disbursementDate time.Time
	schedule         *Schedule
	transactions     []*Transaction
	charges          []*Charge
	status           valueobject.LoanStatus
	creditBalance    money.Money
	version          int
	createdAt        time.Time
	updatedAt        time.Time

	events.EventCollector
}

// LoanSummary is the outstanding position derived from the schedule.
type LoanSummary struct {
	Outstanding      Portions
	TotalOutstanding money.Money
	CreditBalance    money.Money
	Status           valueobject.LoanStatus
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoan boards a loan with its initial schedule.
func NewLoan(
	tenantID, borrowerID string,
	currency money.Currency,
	terms LoanTerms,
	disbursementDate time.Time,
	schedule *Schedule,
	now time.Time,
) (*Loan, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	if borrowerID == "" {
		return nil, errors.New("borrower ID is required")
	}
	if schedule == nil || schedule.IsEmpty() {
		return nil, errors.New("schedule must have at least one installment")
	}
	if schedule.Currency() != currency {
		return nil, fmt.Errorf("schedule currency %s does not match loan currency %s: %w",
			schedule.Currency(), currency, valueobject.ErrCurrencyMismatch)
	}
	if _, ok := terms.DefaultPaymentRule(); !ok {
		return nil, errors.New("a DEFAULT payment allocation rule is required")
	}

	l := &Loan{
		id:               uuid.New().String(),
		tenantID:         tenantID,
		borrowerID:       borrowerID,
		currency:         currency,
		terms:            terms,
		disbursementDate: disbursementDate,
		schedule:         schedule,
		status:           valueobject.LoanStatusActive,
		creditBalance:    money.Zero(currency),
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}
	l.Record(event.NewLoanCreated(
		l.id, tenantID, borrowerID, currency.Code(), schedule.Len(), terms.AnnualInterestRate,
	))
	return l, nil
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(
	id, tenantID, borrowerID string,
	currency money.Currency,
	terms LoanTerms,
	disbursementDate time.Time,
	schedule *Schedule,
	transactions []*Transaction,
	charges []*Charge,
	status valueobject.LoanStatus,
	creditBalance money.Money,
	version int,
	createdAt, updatedAt time.Time,
) *Loan {
	return &Loan{
		id:               id,
		tenantID:         tenantID,
		borrowerID:       borrowerID,
		currency:         currency,
		terms:            terms,
		disbursementDate: disbursementDate,
		schedule:         schedule,
		transactions:     transactions,
		charges:          charges,
		status:           status,
		creditBalance:    creditBalance,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// AddTransaction appends an unpersisted transaction to the history. It gets
// its identity once the replay that allocates it has been applied.
func (l *Loan) AddTransaction(txn *Transaction) error {
	if txn.Currency() != l.currency {
		return fmt.Errorf("transaction currency %s: %w", txn.Currency(), valueobject.ErrCurrencyMismatch)
	}
	if txn.Amount().IsNegative() {
		return valueobject.ErrNegativeAmount
	}
	if txn.ID() != "" {
		return errors.New("new transactions must not carry an identity")
	}
	l.transactions = append(l.transactions, txn)
	return nil
}

// AddCharge attaches a charge to the loan.
func (l *Loan) AddCharge(c *Charge) error {
	if c.Amount().Currency() != l.currency {
		return fmt.Errorf("charge currency %s: %w", c.Amount().Currency(), valueobject.ErrCurrencyMismatch)
	}
	if c.Amount().IsNegative() {
		return valueobject.ErrNegativeAmount
	}
	if c.ID() == "" {
		return errors.New("charge ID is required")
	}
	l.charges = append(l.charges, c)
	return nil
}

// FindTransaction returns the transaction with the given identity.
func (l *Loan) FindTransaction(id string) (*Transaction, bool) {
	for _, t := range l.transactions {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// FindCharge returns the charge with the given identity.
func (l *Loan) FindCharge(id string) (*Charge, bool) {
	for _, c := range l.charges {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// ActiveTransactions returns the transactions that take part in a replay.
func (l *Loan) ActiveTransactions() []*Transaction {
	out := make([]*Transaction, 0, len(l.transactions))
	for _, t := range l.transactions {
		if !t.IsReversed() {
			out = append(out, t)
		}
	}
	return out
}

// LatestTransactionDate returns the date of the newest active transaction.
func (l *Loan) LatestTransactionDate() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, t := range l.ActiveTransactions() {
		if !found || t.Date().After(latest) {
			latest = t.Date()
			found = true
		}
	}
	return latest, found
}

// ---------------------------------------------------------------------------
// Replay results
// ---------------------------------------------------------------------------

// ApplyReplay records the outcome of a full replay: superseded transactions
// are reversed, their replacements join the history and every transaction
// without an identity receives one.
func (l *Loan) ApplyReplay(ledger *ChangeLedger, creditBalance money.Money, now time.Time) {
	for _, change := range ledger.Changes() {
		change.New.AssignID(uuid.New().String())
		if old, ok := l.FindTransaction(change.OldID); ok {
			old.MarkSupersededBy(change.New.ID())
		}
		l.transactions = append(l.transactions, change.New)
		l.Record(event.NewTransactionSuperseded(
			l.id, l.tenantID, change.OldID, change.New.ID(), change.New.Type().String(),
		))
	}
	l.assignMissingIDs()
	l.creditBalance = creditBalance
	l.refreshStatus()
	l.touch(now)

	summary := l.Summary()
	l.Record(event.NewLoanScheduleReprocessed(
		l.id, l.tenantID, ledger.Len(), l.schedule.Len(),
		summary.TotalOutstanding.Amount(), creditBalance.Amount(),
		l.status.String(), l.currency.Code(),
	))
}

// RecordProcessed records a transaction replayed on its own against the
// current schedule.
func (l *Loan) RecordProcessed(txn *Transaction, creditBalance money.Money, now time.Time) {
	l.assignMissingIDs()
	l.creditBalance = creditBalance
	l.refreshStatus()
	l.touch(now)
	l.Record(event.NewLoanTransactionProcessed(
		l.id, l.tenantID, txn.ID(), txn.Type().String(),
		txn.Amount().Amount(),
		txn.PrincipalPortion().Amount(), txn.InterestPortion().Amount(),
		txn.FeePortion().Amount(), txn.PenaltyPortion().Amount(),
		txn.OverpaymentPortion().Amount(),
		l.currency.Code(),
	))
}

func (l *Loan) assignMissingIDs() {
	for _, t := range l.transactions {
		if t.ID() == "" {
			t.AssignID(uuid.New().String())
		}
	}
}

func (l *Loan) refreshStatus() {
	next := valueobject.LoanStatusActive
	if l.schedule.Totals().Total().IsZero() {
		next = valueobject.LoanStatusClosedObligationsMet
		if l.creditBalance.IsPositive() {
			next = valueobject.LoanStatusOverpaid
		}
	}
	if !next.Equal(l.status) {
		l.Record(event.NewLoanStatusChanged(l.id, l.tenantID, l.status.String(), next.String()))
		l.status = next
	}
}

func (l *Loan) touch(now time.Time) {
	l.version++
	l.updatedAt = now
}

// Summary derives the outstanding position from the schedule.
func (l *Loan) Summary() LoanSummary {
	totals := l.schedule.Totals()
	return LoanSummary{
		Outstanding:      totals,
		TotalOutstanding: totals.Total(),
		CreditBalance:    l.creditBalance,
		Status:           l.status,
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l *Loan) ID() string                        { return l.id }
func (l *Loan) TenantID() string                  { return l.tenantID }
func (l *Loan) BorrowerID() string                { return l.borrowerID }
func (l *Loan) Currency() money.Currency          { return l.currency }
func (l *Loan) Terms() LoanTerms                  { return l.terms }
func (l *Loan) DisbursementDate() time.Time       { return l.disbursementDate }
func (l *Loan) Schedule() *Schedule               { return l.schedule }
func (l *Loan) Transactions() []*Transaction      { return l.transactions }
func (l *Loan) Charges() []*Charge                { return l.charges }
func (l *Loan) Status() valueobject.LoanStatus    { return l.status }
func (l *Loan) CreditBalance() money.Money        { return l.creditBalance }
func (l *Loan) Version() int                      { return l.version }
func (l *Loan) CreatedAt() time.Time              { return l.createdAt }
func (l *Loan) UpdatedAt() time.Time              { return l.updatedAt }
func (l *Loan) DomainEvents() []event.DomainEvent { return l.Events() }
