package model

import (
	"time"

	"github.com/bibbank/loanservicing/pkg/money"
)

// Charge is a fee or penalty obligation attached to the loan.
type Charge struct {
	id                string
	penalty           bool
	dueDate           time.Time
	submittedOn       time.Time
	createdAt         time.Time
	amount            money.Money
	paid              money.Money
	waived            money.Money
	dueAtDisbursement bool
	active            bool
}

// NewCharge creates an active charge due on dueDate. A zero dueDate means the
// charge has no specific due date and is effective from submission.
func NewCharge(id string, penalty bool, amount money.Money, dueDate, submittedOn, createdAt time.Time) *Charge {
	zero := money.Zero(amount.Currency())
	return &Charge{
		id:          id,
		penalty:     penalty,
		dueDate:     dueDate,
		submittedOn: submittedOn,
		createdAt:   createdAt,
		amount:      amount,
		paid:        zero,
		waived:      zero,
		active:      true,
	}
}

// ChargeSnapshot carries every persisted field of a charge.
type ChargeSnapshot struct {
	ID                string
	Penalty           bool
	DueDate           time.Time
	SubmittedOn       time.Time
	CreatedAt         time.Time
	Amount            money.Money
	Paid              money.Money
	Waived            money.Money
	DueAtDisbursement bool
	Active            bool
}

// ReconstructCharge rebuilds a charge from persistence.
func ReconstructCharge(s ChargeSnapshot) *Charge {
	return &Charge{
		id:                s.ID,
		penalty:           s.Penalty,
		dueDate:           s.DueDate,
		submittedOn:       s.SubmittedOn,
		createdAt:         s.CreatedAt,
		amount:            s.Amount,
		paid:              s.Paid,
		waived:            s.Waived,
		dueAtDisbursement: s.DueAtDisbursement,
		active:            s.Active,
	}
}

// Snapshot exports the persisted fields.
func (c *Charge) Snapshot() ChargeSnapshot {
	return ChargeSnapshot{
		ID:                c.id,
		Penalty:           c.penalty,
		DueDate:           c.dueDate,
		SubmittedOn:       c.submittedOn,
		CreatedAt:         c.createdAt,
		Amount:            c.amount,
		Paid:              c.paid,
		Waived:            c.waived,
		DueAtDisbursement: c.dueAtDisbursement,
		Active:            c.active,
	}
}

func (c *Charge) ID() string                { return c.id }
func (c *Charge) IsPenalty() bool           { return c.penalty }
func (c *Charge) DueDate() time.Time        { return c.dueDate }
func (c *Charge) HasDueDate() bool          { return !c.dueDate.IsZero() }
func (c *Charge) SubmittedOn() time.Time    { return c.submittedOn }
func (c *Charge) CreatedAt() time.Time      { return c.createdAt }
func (c *Charge) Amount() money.Money       { return c.amount }
func (c *Charge) Paid() money.Money         { return c.paid }
func (c *Charge) Waived() money.Money       { return c.waived }
func (c *Charge) IsDueAtDisbursement() bool { return c.dueAtDisbursement }
func (c *Charge) IsActive() bool            { return c.active }

// MarkDueAtDisbursement flags a charge settled at disbursement, outside the
// installment schedule.
func (c *Charge) MarkDueAtDisbursement() { c.dueAtDisbursement = true }

// Deactivate removes the charge from future replays.
func (c *Charge) Deactivate() { c.active = false }

// EffectiveDate is the date the charge is replayed on: its due date when
// back-dated before submission, otherwise its submission date.
func (c *Charge) EffectiveDate() time.Time {
	if c.HasDueDate() && c.dueDate.Before(c.submittedOn) {
		return c.dueDate
	}
	return c.submittedOn
}

// BookingDate is the date that decides which installment carries the
// charge: the due date, else the effective date, else disbursement.
func (c *Charge) BookingDate(disbursementDate time.Time) time.Time {
	due := c.dueDate
	if due.IsZero() {
		due = c.EffectiveDate()
	}
	if due.IsZero() {
		due = disbursementDate
	}
	return due
}

// Outstanding is the amount minus paid and waived.
func (c *Charge) Outstanding() money.Money {
	return c.amount.Minus(c.paid).Minus(c.waived).ZeroIfNegative()
}

// IsFullyPaid reports whether nothing is outstanding.
func (c *Charge) IsFullyPaid() bool { return c.Outstanding().IsZero() }

// ResetPaidAmount clears the paid amount ahead of a replay.
func (c *Charge) ResetPaidAmount() { c.paid = money.Zero(c.amount.Currency()) }

// Pay settles up to amount of the outstanding balance and returns the
// portion applied.
func (c *Charge) Pay(amount money.Money) money.Money {
	portion := money.Min(amount, c.Outstanding()).ZeroIfNegative()
	c.paid = c.paid.Plus(portion)
	return portion
}

// Unpay reverts up to amount of the paid balance.
func (c *Charge) Unpay(amount money.Money) money.Money {
	portion := money.Min(amount, c.paid).ZeroIfNegative()
	c.paid = c.paid.Minus(portion)
	return portion
}
