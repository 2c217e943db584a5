package model

import (
	"slices"
	"time"

	"github.com/bibbank/loanservicing/pkg/money"
)

// Schedule owns the installment sequence of a loan. Handlers receive the
// schedule and mutate installments through it; nothing else keeps a copy of
// the underlying slice.
type Schedule struct {
	currency     money.Currency
	installments []*Installment
}

// NewSchedule creates a schedule from installments in any order. They are
// sorted by due date and renumbered.
func NewSchedule(currency money.Currency, installments ...*Installment) *Schedule {
	s := &Schedule{currency: currency, installments: slices.Clone(installments)}
	s.Renumber()
	return s
}

// Currency returns the currency every installment is kept in.
func (s *Schedule) Currency() money.Currency { return s.currency }

// Installments returns the live installment sequence in schedule order.
func (s *Schedule) Installments() []*Installment { return s.installments }

// Len returns the number of installments.
func (s *Schedule) Len() int { return len(s.installments) }

// IsEmpty reports whether the schedule has no installments.
func (s *Schedule) IsEmpty() bool { return len(s.installments) == 0 }

// Last returns the installment with the highest position, or nil.
func (s *Schedule) Last() *Installment {
	if len(s.installments) == 0 {
		return nil
	}
	return s.installments[len(s.installments)-1]
}

// ByNumber returns the installment with the given number, or nil.
func (s *Schedule) ByNumber(n int) *Installment {
	for _, inst := range s.installments {
		if inst.number == n {
			return inst
		}
	}
	return nil
}

// Append adds an installment at the end of the sequence.
func (s *Schedule) Append(inst *Installment) {
	s.installments = append(s.installments, inst)
}

// RemoveIf drops every installment matching pred.
func (s *Schedule) RemoveIf(pred func(*Installment) bool) {
	s.installments = slices.DeleteFunc(s.installments, pred)
}

// AnyMatch reports whether any installment satisfies pred.
func (s *Schedule) AnyMatch(pred func(*Installment) bool) bool {
	return slices.ContainsFunc(s.installments, pred)
}

// Filter returns the installments matching pred in schedule order.
func (s *Schedule) Filter(pred func(*Installment) bool) []*Installment {
	var out []*Installment
	for _, inst := range s.installments {
		if pred(inst) {
			out = append(out, inst)
		}
	}
	return out
}

// MinNumber returns the matching installment with the lowest number.
func (s *Schedule) MinNumber(pred func(*Installment) bool) *Installment {
	var found *Installment
	for _, inst := range s.installments {
		if pred(inst) && (found == nil || inst.number < found.number) {
			found = inst
		}
	}
	return found
}

// MaxNumber returns the matching installment with the highest number.
func (s *Schedule) MaxNumber(pred func(*Installment) bool) *Installment {
	var found *Installment
	for _, inst := range s.installments {
		if pred(inst) && (found == nil || inst.number > found.number) {
			found = inst
		}
	}
	return found
}

// FirstNormalNumber returns the number of the first installment that is not
// a down payment, or zero when there is none.
func (s *Schedule) FirstNormalNumber() int {
	if inst := s.MinNumber(func(i *Installment) bool { return !i.downPayment }); inst != nil {
		return inst.number
	}
	return 0
}

// InstallmentFor returns the installment whose window contains d.
func (s *Schedule) InstallmentFor(d time.Time) *Installment {
	first := s.FirstNormalNumber()
	for _, inst := range s.installments {
		if inst.downPayment {
			continue
		}
		if inst.ContainsDate(d, inst.number == first) {
			return inst
		}
	}
	return nil
}

// ChargeInstallment returns the installment a charge booked on d belongs
// to. Dates before the first regular installment fall on it and dates past
// the schedule fall on the last installment.
func (s *Schedule) ChargeInstallment(d time.Time) *Installment {
	if inst := s.InstallmentFor(d); inst != nil {
		return inst
	}
	first := s.MinNumber(func(i *Installment) bool { return !i.downPayment })
	if first != nil && !d.After(first.FromDate()) {
		return first
	}
	return s.Last()
}

// Renumber sorts the installments by due date and numbers them from one.
// Installments sharing a due date keep their relative order.
func (s *Schedule) Renumber() {
	slices.SortStableFunc(s.installments, func(a, b *Installment) int {
		return a.dueDate.Compare(b.dueDate)
	})
	for idx, inst := range s.installments {
		inst.number = idx + 1
	}
}

// CreditTarget returns the installment a credit recognised on date lands on:
// the first regular installment due after date, else an existing additional
// installment whose due date is moved up to date when needed, else the last
// installment when it falls due on date. When none qualifies a new additional
// installment is appended and created is true.
func (s *Schedule) CreditTarget(date time.Time) (target *Installment, created bool) {
	for _, inst := range s.installments {
		if !inst.additional && inst.dueDate.After(date) {
			return inst, false
		}
	}
	for _, inst := range s.installments {
		if inst.additional {
			if date.After(inst.dueDate) {
				inst.dueDate = date
			}
			return inst, false
		}
	}
	last := s.Last()
	if last != nil && last.dueDate.Equal(date) {
		return last, false
	}
	from := date
	if last != nil {
		from = last.dueDate
	}
	inst := NewAdditionalInstallment(s.Len()+1, from, date, s.currency)
	s.Append(inst)
	return inst, true
}

// Totals sums the outstanding amount of each bucket across the schedule.
func (s *Schedule) Totals() Portions {
	zero := money.Zero(s.currency)
	t := Portions{Principal: zero, Interest: zero, Fee: zero, Penalty: zero}
	for _, inst := range s.installments {
		t.Principal = t.Principal.Plus(inst.PrincipalOutstanding())
		t.Interest = t.Interest.Plus(inst.InterestOutstanding())
		t.Fee = t.Fee.Plus(inst.FeeOutstanding())
		t.Penalty = t.Penalty.Plus(inst.PenaltyOutstanding())
	}
	return t
}
