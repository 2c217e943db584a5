package model

import (
	"time"

	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Installment – one repayment period of the schedule
// ---------------------------------------------------------------------------

// Installment tracks what is due, paid, waived and written off for each of
// the four buckets of a single repayment period. Outstanding amounts are
// always derived from these balances.
type Installment struct {
	number   int
	fromDate time.Time
	dueDate  time.Time

	principal           money.Money
	principalCompleted  money.Money
	principalWrittenOff money.Money

	interest           money.Money
	interestPaid       money.Money
	interestWaived     money.Money
	interestWrittenOff money.Money

	feeCharged    money.Money
	feePaid       money.Money
	feeWaived     money.Money
	feeWrittenOff money.Money

	penaltyCharged    money.Money
	penaltyPaid       money.Money
	penaltyWaived     money.Money
	penaltyWrittenOff money.Money

	creditedPrincipal money.Money
	creditedInterest  money.Money
	creditedFee       money.Money
	creditedPenalty   money.Money

	downPayment bool
	additional  bool
	reAged      bool

	obligationsMet   bool
	obligationsMetOn time.Time
}

// NewInstallment creates an installment with nothing paid yet.
func NewInstallment(number int, fromDate, dueDate time.Time, principal, interest, fee, penalty money.Money) *Installment {
	zero := money.Zero(principal.Currency())
	return &Installment{
		number:              number,
		fromDate:            fromDate,
		dueDate:             dueDate,
		principal:           principal,
		principalCompleted:  zero,
		principalWrittenOff: zero,
		interest:            interest,
		interestPaid:        zero,
		interestWaived:      zero,
		interestWrittenOff:  zero,
		feeCharged:          fee,
		feePaid:             zero,
		feeWaived:           zero,
		feeWrittenOff:       zero,
		penaltyCharged:      penalty,
		penaltyPaid:         zero,
		penaltyWaived:       zero,
		penaltyWrittenOff:   zero,
		creditedPrincipal:   zero,
		creditedInterest:    zero,
		creditedFee:         zero,
		creditedPenalty:     zero,
	}
}

// NewDownPaymentInstallment creates the installment that collects the down
// payment on the disbursement date.
func NewDownPaymentInstallment(number int, date time.Time, currency money.Currency) *Installment {
	zero := money.Zero(currency)
	i := NewInstallment(number, date, date, zero, zero, zero, zero)
	i.downPayment = true
	return i
}

// NewAdditionalInstallment creates an N+1 installment appended after the
// original schedule, for example by a chargeback or a charge due after maturity.
func NewAdditionalInstallment(number int, fromDate, dueDate time.Time, currency money.Currency) *Installment {
	zero := money.Zero(currency)
	i := NewInstallment(number, fromDate, dueDate, zero, zero, zero, zero)
	i.additional = true
	return i
}

// NewReAgedInstallment creates a principal-only installment manufactured by a
// re-age transaction.
func NewReAgedInstallment(number int, fromDate, dueDate time.Time, principal money.Money) *Installment {
	zero := money.Zero(principal.Currency())
	i := NewInstallment(number, fromDate, dueDate, principal, zero, zero, zero)
	i.reAged = true
	return i
}

// InstallmentSnapshot carries every persisted balance of an installment.
type InstallmentSnapshot struct {
	Number              int
	FromDate            time.Time
	DueDate             time.Time
	Principal           money.Money
	PrincipalCompleted  money.Money
	PrincipalWrittenOff money.Money
	Interest            money.Money
	InterestPaid        money.Money
	InterestWaived      money.Money
	InterestWrittenOff  money.Money
	FeeCharged          money.Money
	FeePaid             money.Money
	FeeWaived           money.Money
	FeeWrittenOff       money.Money
	PenaltyCharged      money.Money
	PenaltyPaid         money.Money
	PenaltyWaived       money.Money
	PenaltyWrittenOff   money.Money
	CreditedPrincipal   money.Money
	CreditedInterest    money.Money
	CreditedFee         money.Money
	CreditedPenalty     money.Money
	DownPayment         bool
	Additional          bool
	ReAged              bool
	ObligationsMet      bool
	ObligationsMetOn    time.Time
}

// ReconstructInstallment rebuilds an installment from persistence.
func ReconstructInstallment(s InstallmentSnapshot) *Installment {
	return &Installment{
		number:              s.Number,
		fromDate:            s.FromDate,
		dueDate:             s.DueDate,
		principal:           s.Principal,
		principalCompleted:  s.PrincipalCompleted,
		principalWrittenOff: s.PrincipalWrittenOff,
		interest:            s.Interest,
		interestPaid:        s.InterestPaid,
		interestWaived:      s.InterestWaived,
		interestWrittenOff:  s.InterestWrittenOff,
		feeCharged:          s.FeeCharged,
		feePaid:             s.FeePaid,
		feeWaived:           s.FeeWaived,
		feeWrittenOff:       s.FeeWrittenOff,
		penaltyCharged:      s.PenaltyCharged,
		penaltyPaid:         s.PenaltyPaid,
		penaltyWaived:       s.PenaltyWaived,
		penaltyWrittenOff:   s.PenaltyWrittenOff,
		creditedPrincipal:   s.CreditedPrincipal,
		creditedInterest:    s.CreditedInterest,
		creditedFee:         s.CreditedFee,
		creditedPenalty:     s.CreditedPenalty,
		downPayment:         s.DownPayment,
		additional:          s.Additional,
		reAged:              s.ReAged,
		obligationsMet:      s.ObligationsMet,
		obligationsMetOn:    s.ObligationsMetOn,
	}
}

// Snapshot exports every balance for persistence.
func (i *Installment) Snapshot() InstallmentSnapshot {
	return InstallmentSnapshot{
		Number:              i.number,
		FromDate:            i.fromDate,
		DueDate:             i.dueDate,
		Principal:           i.principal,
		PrincipalCompleted:  i.principalCompleted,
		PrincipalWrittenOff: i.principalWrittenOff,
		Interest:            i.interest,
		InterestPaid:        i.interestPaid,
		InterestWaived:      i.interestWaived,
		InterestWrittenOff:  i.interestWrittenOff,
		FeeCharged:          i.feeCharged,
		FeePaid:             i.feePaid,
		FeeWaived:           i.feeWaived,
		FeeWrittenOff:       i.feeWrittenOff,
		PenaltyCharged:      i.penaltyCharged,
		PenaltyPaid:         i.penaltyPaid,
		PenaltyWaived:       i.penaltyWaived,
		PenaltyWrittenOff:   i.penaltyWrittenOff,
		CreditedPrincipal:   i.creditedPrincipal,
		CreditedInterest:    i.creditedInterest,
		CreditedFee:         i.creditedFee,
		CreditedPenalty:     i.creditedPenalty,
		DownPayment:         i.downPayment,
		Additional:          i.additional,
		ReAged:              i.reAged,
		ObligationsMet:      i.obligationsMet,
		ObligationsMetOn:    i.obligationsMetOn,
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (i *Installment) Number() int                     { return i.number }
func (i *Installment) FromDate() time.Time             { return i.fromDate }
func (i *Installment) DueDate() time.Time              { return i.dueDate }
func (i *Installment) Currency() money.Currency        { return i.principal.Currency() }
func (i *Installment) Principal() money.Money          { return i.principal }
func (i *Installment) PrincipalCompleted() money.Money { return i.principalCompleted }
func (i *Installment) PrincipalWrittenOff() money.Money {
	return i.principalWrittenOff
}
func (i *Installment) Interest() money.Money           { return i.interest }
func (i *Installment) InterestPaid() money.Money       { return i.interestPaid }
func (i *Installment) InterestWaived() money.Money     { return i.interestWaived }
func (i *Installment) InterestWrittenOff() money.Money { return i.interestWrittenOff }
func (i *Installment) FeeCharged() money.Money         { return i.feeCharged }
func (i *Installment) FeePaid() money.Money            { return i.feePaid }
func (i *Installment) FeeWaived() money.Money          { return i.feeWaived }
func (i *Installment) PenaltyCharged() money.Money     { return i.penaltyCharged }
func (i *Installment) PenaltyPaid() money.Money        { return i.penaltyPaid }
func (i *Installment) PenaltyWaived() money.Money      { return i.penaltyWaived }
func (i *Installment) CreditedPrincipal() money.Money  { return i.creditedPrincipal }
func (i *Installment) CreditedInterest() money.Money   { return i.creditedInterest }
func (i *Installment) CreditedFee() money.Money        { return i.creditedFee }
func (i *Installment) CreditedPenalty() money.Money    { return i.creditedPenalty }
func (i *Installment) IsDownPayment() bool             { return i.downPayment }
func (i *Installment) IsAdditional() bool              { return i.additional }
func (i *Installment) IsReAged() bool                  { return i.reAged }
func (i *Installment) ObligationsMet() bool            { return i.obligationsMet }
func (i *Installment) ObligationsMetOn() time.Time     { return i.obligationsMetOn }

// PrincipalOutstanding is principal due minus paid and written off.
func (i *Installment) PrincipalOutstanding() money.Money {
	return i.principal.Minus(i.principalCompleted).Minus(i.principalWrittenOff)
}

// InterestOutstanding is interest due minus paid, waived and written off.
func (i *Installment) InterestOutstanding() money.Money {
	return i.interest.Minus(i.interestPaid).Minus(i.interestWaived).Minus(i.interestWrittenOff)
}

// FeeOutstanding is fee due minus paid, waived and written off.
func (i *Installment) FeeOutstanding() money.Money {
	return i.feeCharged.Minus(i.feePaid).Minus(i.feeWaived).Minus(i.feeWrittenOff)
}

// PenaltyOutstanding is penalty due minus paid, waived and written off.
func (i *Installment) PenaltyOutstanding() money.Money {
	return i.penaltyCharged.Minus(i.penaltyPaid).Minus(i.penaltyWaived).Minus(i.penaltyWrittenOff)
}

// TotalOutstanding sums the outstanding amount of all four buckets.
func (i *Installment) TotalOutstanding() money.Money {
	return i.PrincipalOutstanding().Plus(i.InterestOutstanding()).Plus(i.FeeOutstanding()).Plus(i.PenaltyOutstanding())
}

// TotalPaid sums what has been paid into all four buckets.
func (i *Installment) TotalPaid() money.Money {
	return i.principalCompleted.Plus(i.interestPaid).Plus(i.feePaid).Plus(i.penaltyPaid)
}

// TotalDue sums what is due across all four buckets.
func (i *Installment) TotalDue() money.Money {
	return i.principal.Plus(i.interest).Plus(i.feeCharged).Plus(i.penaltyCharged)
}

// IsNotFullyPaidOff reports whether any bucket is still outstanding.
func (i *Installment) IsNotFullyPaidOff() bool {
	return !i.obligationsMet
}

// ContainsDate reports whether d falls in the installment's window. The first
// installment also owns its from date.
func (i *Installment) ContainsDate(d time.Time, first bool) bool {
	if first && d.Equal(i.fromDate) {
		return !d.After(i.dueDate)
	}
	return d.After(i.fromDate) && !d.After(i.dueDate)
}

// ---------------------------------------------------------------------------
// Pay / unpay
// ---------------------------------------------------------------------------

// PayPenalty pays up to amount of the outstanding penalty and returns the
// portion applied.
func (i *Installment) PayPenalty(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.PenaltyOutstanding()).ZeroIfNegative()
	i.penaltyPaid = i.penaltyPaid.Plus(portion)
	i.checkObligations(date)
	return portion
}

// PayFee pays up to amount of the outstanding fee.
func (i *Installment) PayFee(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.FeeOutstanding()).ZeroIfNegative()
	i.feePaid = i.feePaid.Plus(portion)
	i.checkObligations(date)
	return portion
}

// PayInterest pays up to amount of the outstanding interest.
func (i *Installment) PayInterest(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.InterestOutstanding()).ZeroIfNegative()
	i.interestPaid = i.interestPaid.Plus(portion)
	i.checkObligations(date)
	return portion
}

// PayPrincipal pays up to amount of the outstanding principal.
func (i *Installment) PayPrincipal(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.PrincipalOutstanding()).ZeroIfNegative()
	i.principalCompleted = i.principalCompleted.Plus(portion)
	i.checkObligations(date)
	return portion
}

// UnpayPenalty returns up to amount of the paid penalty and reports the
// portion reverted.
func (i *Installment) UnpayPenalty(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.penaltyPaid).ZeroIfNegative()
	i.penaltyPaid = i.penaltyPaid.Minus(portion)
	i.checkObligations(date)
	return portion
}

// UnpayFee returns up to amount of the paid fee.
func (i *Installment) UnpayFee(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.feePaid).ZeroIfNegative()
	i.feePaid = i.feePaid.Minus(portion)
	i.checkObligations(date)
	return portion
}

// UnpayInterest returns up to amount of the paid interest.
func (i *Installment) UnpayInterest(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.interestPaid).ZeroIfNegative()
	i.interestPaid = i.interestPaid.Minus(portion)
	i.checkObligations(date)
	return portion
}

// UnpayPrincipal returns up to amount of the paid principal.
func (i *Installment) UnpayPrincipal(date time.Time, amount money.Money) money.Money {
	portion := money.Min(amount, i.principalCompleted).ZeroIfNegative()
	i.principalCompleted = i.principalCompleted.Minus(portion)
	i.checkObligations(date)
	return portion
}

// WriteOffOutstanding writes off every outstanding bucket and returns the
// amounts written off.
func (i *Installment) WriteOffOutstanding(date time.Time) Portions {
	p := Portions{
		Principal: i.PrincipalOutstanding(),
		Interest:  i.InterestOutstanding(),
		Fee:       i.FeeOutstanding(),
		Penalty:   i.PenaltyOutstanding(),
	}
	i.principalWrittenOff = i.principalWrittenOff.Plus(p.Principal)
	i.interestWrittenOff = i.interestWrittenOff.Plus(p.Interest)
	i.feeWrittenOff = i.feeWrittenOff.Plus(p.Fee)
	i.penaltyWrittenOff = i.penaltyWrittenOff.Plus(p.Penalty)
	i.checkObligations(date)
	return p
}

// ---------------------------------------------------------------------------
// Schedule mutations
// ---------------------------------------------------------------------------

// AddToPrincipal increases the principal due.
func (i *Installment) AddToPrincipal(date time.Time, amount money.Money) {
	i.principal = i.principal.Plus(amount)
	i.checkObligations(date)
}

// AddToInterest increases the interest due.
func (i *Installment) AddToInterest(date time.Time, amount money.Money) {
	i.interest = i.interest.Plus(amount)
	i.checkObligations(date)
}

// AddToCharges increases the fee or penalty due.
func (i *Installment) AddToCharges(date time.Time, amount money.Money, penalty bool) {
	if penalty {
		i.penaltyCharged = i.penaltyCharged.Plus(amount)
	} else {
		i.feeCharged = i.feeCharged.Plus(amount)
	}
	i.checkObligations(date)
}

// UpdatePrincipal replaces the principal due.
func (i *Installment) UpdatePrincipal(date time.Time, principal money.Money) {
	i.principal = principal
	i.checkObligations(date)
}

// UpdateInterest replaces the interest due.
func (i *Installment) UpdateInterest(date time.Time, interest money.Money) {
	i.interest = interest
	i.checkObligations(date)
}

// UpdateDueDate moves the due date.
func (i *Installment) UpdateDueDate(d time.Time) { i.dueDate = d }

// Renumber assigns a new installment number.
func (i *Installment) Renumber(n int) { i.number = n }

// AddCreditedPrincipal records principal returned by a credit transaction.
func (i *Installment) AddCreditedPrincipal(amount money.Money) {
	i.creditedPrincipal = i.creditedPrincipal.Plus(amount)
}

// AddCreditedInterest records interest returned by a credit transaction.
func (i *Installment) AddCreditedInterest(amount money.Money) {
	i.creditedInterest = i.creditedInterest.Plus(amount)
}

// AddCreditedFee records a fee returned by a credit transaction.
func (i *Installment) AddCreditedFee(amount money.Money) {
	i.creditedFee = i.creditedFee.Plus(amount)
}

// AddCreditedPenalty records a penalty returned by a credit transaction.
func (i *Installment) AddCreditedPenalty(amount money.Money) {
	i.creditedPenalty = i.creditedPenalty.Plus(amount)
}

// ResetBalances clears every derived balance ahead of a full replay. Interest
// due is kept; principal and charges are re-derived by the replay.
func (i *Installment) ResetBalances(disbursementDate time.Time) {
	zero := money.Zero(i.Currency())
	i.principal = zero
	i.principalCompleted = zero
	i.principalWrittenOff = zero
	i.interestPaid = zero
	i.interestWaived = zero
	i.interestWrittenOff = zero
	i.feeCharged = zero
	i.feePaid = zero
	i.feeWaived = zero
	i.feeWrittenOff = zero
	i.penaltyCharged = zero
	i.penaltyPaid = zero
	i.penaltyWaived = zero
	i.penaltyWrittenOff = zero
	i.creditedPrincipal = zero
	i.creditedInterest = zero
	i.creditedFee = zero
	i.creditedPenalty = zero
	i.obligationsMet = false
	i.obligationsMetOn = time.Time{}
	i.checkObligations(disbursementDate)
}

// checkObligations recomputes the obligations-met flag after a mutation.
func (i *Installment) checkObligations(date time.Time) {
	met := i.TotalOutstanding().IsZero()
	switch {
	case met && !i.obligationsMet:
		i.obligationsMet = true
		i.obligationsMetOn = date
	case !met:
		i.obligationsMet = false
		i.obligationsMetOn = time.Time{}
	}
}
