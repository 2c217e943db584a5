package model

import (
	"time"

	"github.com/bibbank/loanservicing/internal/domain/valueobject"
	"github.com/bibbank/loanservicing/pkg/money"
)

// Portions is a principal/interest/fee/penalty breakdown of an amount.
type Portions struct {
	Principal money.Money
	Interest  money.Money
	Fee       money.Money
	Penalty   money.Money
}

// ZeroPortions returns a breakdown with every bucket at zero.
func ZeroPortions(currency money.Currency) Portions {
	zero := money.Zero(currency)
	return Portions{Principal: zero, Interest: zero, Fee: zero, Penalty: zero}
}

// Total sums the four buckets.
func (p Portions) Total() money.Money {
	return p.Principal.Plus(p.Interest).Plus(p.Fee).Plus(p.Penalty)
}

// Plus adds two breakdowns bucket by bucket.
func (p Portions) Plus(o Portions) Portions {
	return Portions{
		Principal: p.Principal.Plus(o.Principal),
		Interest:  p.Interest.Plus(o.Interest),
		Fee:       p.Fee.Plus(o.Fee),
		Penalty:   p.Penalty.Plus(o.Penalty),
	}
}

// Get returns the bucket for an allocation type.
func (p Portions) Get(t valueobject.AllocationType) money.Money {
	switch t {
	case valueobject.AllocationTypePenalty:
		return p.Penalty
	case valueobject.AllocationTypeFee:
		return p.Fee
	case valueobject.AllocationTypeInterest:
		return p.Interest
	default:
		return p.Principal
	}
}

// With returns a copy with the bucket for t replaced by m.
func (p Portions) With(t valueobject.AllocationType, m money.Money) Portions {
	switch t {
	case valueobject.AllocationTypePenalty:
		p.Penalty = m
	case valueobject.AllocationTypeFee:
		p.Fee = m
	case valueobject.AllocationTypeInterest:
		p.Interest = m
	default:
		p.Principal = m
	}
	return p
}

// ---------------------------------------------------------------------------
// Relations, mappings and re-age parameters
// ---------------------------------------------------------------------------

// Relation links a transaction to another one. To is set while both sides
// live in memory; ToID carries the persisted identity of a target that was
// not loaded.
type Relation struct {
	Type valueobject.RelationType
	ToID string
	To   *Transaction
}

// TargetID returns the identity of the target. A linked target is asked for
// its current identity, so relations made to replay copies pick up the
// identity the copy receives later.
func (r Relation) TargetID() string {
	if r.To != nil && r.To.id != "" {
		return r.To.id
	}
	return r.ToID
}

// Points reports whether the relation targets txn, either by pointer or by
// the identity id.
func (r Relation) Points(txn *Transaction, id string) bool {
	if r.To != nil && r.To == txn {
		return true
	}
	return id != "" && r.TargetID() == id
}

// TransactionMapping records the portions a transaction contributed to one
// installment. There is at most one mapping per installment.
type TransactionMapping struct {
	installment *Installment
	portions    Portions
}

// NewTransactionMapping creates a mapping with the given portions.
func NewTransactionMapping(inst *Installment, p Portions) *TransactionMapping {
	return &TransactionMapping{installment: inst, portions: p}
}

// Installment returns the installment the mapping points at.
func (m *TransactionMapping) Installment() *Installment { return m.installment }

// Portions returns the aggregated contribution.
func (m *TransactionMapping) Portions() Portions { return m.portions }

// ChargePaidBy records how much of a charge a transaction settled.
type ChargePaidBy struct {
	Charge            *Charge
	Amount            money.Money
	InstallmentNumber int
}

// ReAgeParameter configures the installments a re-age transaction creates.
type ReAgeParameter struct {
	FrequencyType        valueobject.FrequencyType
	FrequencyNumber      int
	StartDate            time.Time
	NumberOfInstallments int
}

// ---------------------------------------------------------------------------
// Transaction
// ---------------------------------------------------------------------------

// Transaction is a monetary event replayed against the schedule. An empty id
// marks a transaction that has not been persisted yet.
type Transaction struct {
	id          string
	txType      valueobject.TransactionType
	date        time.Time
	submittedOn time.Time
	createdAt   time.Time
	amount      money.Money

	portions    Portions
	overpayment money.Money

	reversed     bool
	supersededBy string
	relations    []Relation
	mappings     []*TransactionMapping
	chargesPaid  []ChargePaidBy

	chargeID string
	reAge    *ReAgeParameter
}

// NewTransaction creates a transaction with no allocation yet.
func NewTransaction(id string, txType valueobject.TransactionType, amount money.Money, date, submittedOn, createdAt time.Time) *Transaction {
	return &Transaction{
		id:          id,
		txType:      txType,
		date:        date,
		submittedOn: submittedOn,
		createdAt:   createdAt,
		amount:      amount,
		portions:    ZeroPortions(amount.Currency()),
		overpayment: money.Zero(amount.Currency()),
	}
}

// CopyForReplay returns a fresh, unpersisted transaction carrying the
// inputs of t but none of its derived allocation.
func (t *Transaction) CopyForReplay() *Transaction {
	c := NewTransaction("", t.txType, t.amount, t.date, t.submittedOn, t.createdAt)
	c.relations = append([]Relation(nil), t.relations...)
	c.chargeID = t.chargeID
	if t.reAge != nil {
		p := *t.reAge
		c.reAge = &p
	}
	return c
}

// CopyWithAllocation is CopyForReplay plus the derived allocation.
func (t *Transaction) CopyWithAllocation() *Transaction {
	c := t.CopyForReplay()
	c.amount = t.amount
	c.portions = t.portions
	c.overpayment = t.overpayment
	for _, m := range t.mappings {
		c.mappings = append(c.mappings, NewTransactionMapping(m.installment, m.portions))
	}
	c.chargesPaid = append([]ChargePaidBy(nil), t.chargesPaid...)
	return c
}

func (t *Transaction) ID() string                             { return t.id }
func (t *Transaction) Type() valueobject.TransactionType      { return t.txType }
func (t *Transaction) Date() time.Time                        { return t.date }
func (t *Transaction) SubmittedOn() time.Time                 { return t.submittedOn }
func (t *Transaction) CreatedAt() time.Time                   { return t.createdAt }
func (t *Transaction) Amount() money.Money                    { return t.amount }
func (t *Transaction) Currency() money.Currency               { return t.amount.Currency() }
func (t *Transaction) Portions() Portions                     { return t.portions }
func (t *Transaction) PrincipalPortion() money.Money          { return t.portions.Principal }
func (t *Transaction) InterestPortion() money.Money           { return t.portions.Interest }
func (t *Transaction) FeePortion() money.Money                { return t.portions.Fee }
func (t *Transaction) PenaltyPortion() money.Money            { return t.portions.Penalty }
func (t *Transaction) OverpaymentPortion() money.Money        { return t.overpayment }
func (t *Transaction) IsReversed() bool                       { return t.reversed }
func (t *Transaction) Relations() []Relation                  { return t.relations }
func (t *Transaction) Mappings() []*TransactionMapping        { return t.mappings }
func (t *Transaction) ChargesPaid() []ChargePaidBy            { return t.chargesPaid }
func (t *Transaction) ChargeID() string                       { return t.chargeID }
func (t *Transaction) ReAgeParameter() *ReAgeParameter        { return t.reAge }
func (t *Transaction) Is(vt valueobject.TransactionType) bool { return t.txType == vt }

// IsOverPaid reports whether part of the amount ended up as overpayment.
func (t *Transaction) IsOverPaid() bool { return t.overpayment.IsPositive() }

// IsAfter reports whether the transaction date is after d.
func (t *Transaction) IsAfter(d time.Time) bool { return t.date.After(d) }

// IsOn reports whether the transaction date equals d.
func (t *Transaction) IsOn(d time.Time) bool { return t.date.Equal(d) }

// IsBefore reports whether the transaction date is before d.
func (t *Transaction) IsBefore(d time.Time) bool { return t.date.Before(d) }

// AssignID sets the persisted identity once the transaction is stored.
func (t *Transaction) AssignID(id string) { t.id = id }

// MarkReversed flags the transaction as superseded or undone.
func (t *Transaction) MarkReversed() { t.reversed = true }

// MarkSupersededBy reverses t in favour of the replayed transaction id.
func (t *Transaction) MarkSupersededBy(id string) {
	t.reversed = true
	t.supersededBy = id
}

// SupersededBy returns the identity of the replacing transaction, if any.
func (t *Transaction) SupersededBy() string { return t.supersededBy }

// SetChargeID links a charge payment to the charge it settles.
func (t *Transaction) SetChargeID(id string) { t.chargeID = id }

// SetReAgeParameter attaches re-age configuration.
func (t *Transaction) SetReAgeParameter(p ReAgeParameter) { t.reAge = &p }

// AddRelation links t to another transaction.
func (t *Transaction) AddRelation(rt valueobject.RelationType, to *Transaction) {
	t.relations = append(t.relations, Relation{Type: rt, ToID: to.id, To: to})
}

// AddRelationByID links t to a transaction known only by its identity.
func (t *Transaction) AddRelationByID(rt valueobject.RelationType, toID string) {
	t.relations = append(t.relations, Relation{Type: rt, ToID: toID})
}

// HasRelationTo reports whether t carries a relation of type rt to target.
func (t *Transaction) HasRelationTo(rt valueobject.RelationType, target *Transaction, targetID string) bool {
	for _, r := range t.relations {
		if r.Type == rt && r.Points(target, targetID) {
			return true
		}
	}
	return false
}

// ResetDerivedComponents clears the allocation ahead of a replay.
func (t *Transaction) ResetDerivedComponents() {
	t.portions = ZeroPortions(t.Currency())
	t.overpayment = money.Zero(t.Currency())
	t.mappings = nil
	t.chargesPaid = nil
}

// AddComponents accumulates portions onto the breakdown.
func (t *Transaction) AddComponents(p Portions) {
	t.portions = t.portions.Plus(p)
}

// UpdateComponentsAndTotal replaces the breakdown and sets the amount to its
// total.
func (t *Transaction) UpdateComponentsAndTotal(p Portions) {
	t.portions = p
	t.amount = p.Total()
}

// SetOverpayment records the part of the amount that exceeded the schedule.
func (t *Transaction) SetOverpayment(m money.Money) { t.overpayment = m }

// AddMapping merges a contribution into the mapping of inst, creating it when
// the transaction has not touched inst yet.
func (t *Transaction) AddMapping(inst *Installment, p Portions) {
	for _, m := range t.mappings {
		if m.installment == inst {
			m.portions = m.portions.Plus(p)
			return
		}
	}
	t.mappings = append(t.mappings, NewTransactionMapping(inst, p))
}

// AdoptAllocation takes over the mappings and charge settlements a replay
// computed for an identical allocation.
func (t *Transaction) AdoptAllocation(replay *Transaction) {
	t.mappings = replay.mappings
	t.chargesPaid = replay.chargesPaid
}

// AddChargePaidBy records a charge settlement.
func (t *Transaction) AddChargePaidBy(c ChargePaidBy) {
	t.chargesPaid = append(t.chargesPaid, c)
}

// AmountsMatch reports whether t and other carry the same amount and the
// same allocation breakdown.
func (t *Transaction) AmountsMatch(other *Transaction) bool {
	return t.amount.Equal(other.amount) &&
		t.portions.Principal.Equal(other.portions.Principal) &&
		t.portions.Interest.Equal(other.portions.Interest) &&
		t.portions.Fee.Equal(other.portions.Fee) &&
		t.portions.Penalty.Equal(other.portions.Penalty) &&
		t.overpayment.Equal(other.overpayment)
}

// TransactionSnapshot carries every persisted field of a transaction.
type TransactionSnapshot struct {
	ID           string
	Type         valueobject.TransactionType
	Date         time.Time
	SubmittedOn  time.Time
	CreatedAt    time.Time
	Amount       money.Money
	Portions     Portions
	Overpayment  money.Money
	Reversed     bool
	SupersededBy string
	ChargeID     string
	ReAge        *ReAgeParameter
}

// ReconstructTransaction rebuilds a transaction from persistence. Relations
// and mappings are attached by the caller once every row is loaded.
func ReconstructTransaction(s TransactionSnapshot) *Transaction {
	t := NewTransaction(s.ID, s.Type, s.Amount, s.Date, s.SubmittedOn, s.CreatedAt)
	t.portions = s.Portions
	t.overpayment = s.Overpayment
	t.reversed = s.Reversed
	t.supersededBy = s.SupersededBy
	t.chargeID = s.ChargeID
	t.reAge = s.ReAge
	return t
}

// Snapshot exports the persisted fields.
func (t *Transaction) Snapshot() TransactionSnapshot {
	return TransactionSnapshot{
		ID:           t.id,
		Type:         t.txType,
		Date:         t.date,
		SubmittedOn:  t.submittedOn,
		CreatedAt:    t.createdAt,
		Amount:       t.amount,
		Portions:     t.portions,
		Overpayment:  t.overpayment,
		Reversed:     t.reversed,
		SupersededBy: t.supersededBy,
		ChargeID:     t.chargeID,
		ReAge:        t.reAge,
	}
}
