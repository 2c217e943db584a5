package port

import (
	"context"
	"errors"
	"time"

	"github.com/bibbank/loanservicing/internal/domain/event"
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// Repository errors.
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrConcurrentModification = errors.New("loan was modified concurrently")
)

// LoanRepository persists and retrieves loans together with their schedule,
// transactions and charges.
type LoanRepository interface {
	Save(ctx context.Context, loan *model.Loan) error
	FindByID(ctx context.Context, tenantID, id string) (*model.Loan, error)
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher publishes domain events to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// Schedule collaborators
// ---------------------------------------------------------------------------

// RepaymentPeriod is one period of an interest schedule model.
type RepaymentPeriod struct {
	FromDate  time.Time
	DueDate   time.Time
	Principal money.Money
	Interest  money.Money
}

// InterestScheduleModel is the interest-bearing view of the schedule a
// disbursement is amortised through.
type InterestScheduleModel interface {
	Repayments() []RepaymentPeriod
}

// EMICalculator builds interest schedule models and feeds disbursements
// into them.
type EMICalculator interface {
	GenerateModel(terms model.LoanTerms, schedule *model.Schedule, mode money.RoundingMode) (InterestScheduleModel, error)
	AddDisbursement(m InterestScheduleModel, date time.Time, amount money.Money) error
}

// ChargeReprocessor re-derives a single charge against the schedule.
type ChargeReprocessor interface {
	Reprocess(charge *model.Charge, schedule *model.Schedule, disbursementDate time.Time)
}

// CreditTransactionHandler processes credit transactions for loans without a
// custom credit allocation rule.
type CreditTransactionHandler interface {
	ProcessCredit(txn *model.Transaction, schedule *model.Schedule, overpayment *model.MoneyHolder) error
}
