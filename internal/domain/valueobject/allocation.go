package valueobject

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// AllocationType – the bucket money is assigned to
// ---------------------------------------------------------------------------

// AllocationType is one of PENALTY, FEE, INTEREST or PRINCIPAL.
type AllocationType struct {
	value string
}

var (
	AllocationTypePenalty   = AllocationType{value: "PENALTY"}
	AllocationTypeFee       = AllocationType{value: "FEE"}
	AllocationTypeInterest  = AllocationType{value: "INTEREST"}
	AllocationTypePrincipal = AllocationType{value: "PRINCIPAL"}
)

// AllocationTypes lists every allocation type in its canonical order.
var AllocationTypes = []AllocationType{
	AllocationTypePenalty, AllocationTypeFee, AllocationTypeInterest, AllocationTypePrincipal,
}

// NewAllocationType parses an allocation type name.
func NewAllocationType(s string) (AllocationType, error) {
	for _, t := range AllocationTypes {
		if t.value == s {
			return t, nil
		}
	}
	return AllocationType{}, fmt.Errorf("invalid allocation type: %q", s)
}

func (a AllocationType) String() string { return a.value }

// IsZero returns true if the value has not been initialised.
func (a AllocationType) IsZero() bool { return a.value == "" }

// ---------------------------------------------------------------------------
// DueType – temporal relation between an installment and a transaction
// ---------------------------------------------------------------------------

// DueType is PAST_DUE, DUE or IN_ADVANCE.
type DueType struct {
	value string
}

var (
	DueTypePastDue   = DueType{value: "PAST_DUE"}
	DueTypeDue       = DueType{value: "DUE"}
	DueTypeInAdvance = DueType{value: "IN_ADVANCE"}
)

var dueTypes = []DueType{DueTypePastDue, DueTypeDue, DueTypeInAdvance}

// NewDueType parses a due type name.
func NewDueType(s string) (DueType, error) {
	for _, t := range dueTypes {
		if t.value == s {
			return t, nil
		}
	}
	return DueType{}, fmt.Errorf("invalid due type: %q", s)
}

func (d DueType) String() string { return d.value }

// ---------------------------------------------------------------------------
// PaymentAllocationType – (due type, allocation type) pair
// ---------------------------------------------------------------------------

// PaymentAllocationType names one entry of a payment allocation rule, for
// example PAST_DUE_PENALTY.
type PaymentAllocationType struct {
	dueType        DueType
	allocationType AllocationType
}

// NewPaymentAllocationType combines a due type and an allocation type.
func NewPaymentAllocationType(due DueType, alloc AllocationType) PaymentAllocationType {
	return PaymentAllocationType{dueType: due, allocationType: alloc}
}

// ParsePaymentAllocationType parses names such as "IN_ADVANCE_INTEREST".
func ParsePaymentAllocationType(s string) (PaymentAllocationType, error) {
	for _, due := range dueTypes {
		prefix := due.value + "_"
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		alloc, err := NewAllocationType(strings.TrimPrefix(s, prefix))
		if err != nil {
			return PaymentAllocationType{}, fmt.Errorf("invalid payment allocation type %q: %w", s, err)
		}
		return PaymentAllocationType{dueType: due, allocationType: alloc}, nil
	}
	return PaymentAllocationType{}, fmt.Errorf("invalid payment allocation type: %q", s)
}

// DueType returns the due-type half of the pair.
func (p PaymentAllocationType) DueType() DueType { return p.dueType }

// AllocationType returns the bucket half of the pair.
func (p PaymentAllocationType) AllocationType() AllocationType { return p.allocationType }

func (p PaymentAllocationType) String() string {
	return p.dueType.value + "_" + p.allocationType.value
}

// DefaultPaymentAllocationOrder is the allocation order a DEFAULT rule is
// created with when none is configured explicitly.
func DefaultPaymentAllocationOrder() []PaymentAllocationType {
	order := make([]PaymentAllocationType, 0, 12)
	for _, due := range dueTypes {
		order = append(order,
			NewPaymentAllocationType(due, AllocationTypePenalty),
			NewPaymentAllocationType(due, AllocationTypeFee),
			NewPaymentAllocationType(due, AllocationTypePrincipal),
			NewPaymentAllocationType(due, AllocationTypeInterest),
		)
	}
	return order
}

// ---------------------------------------------------------------------------
// FutureInstallmentAllocationRule
// ---------------------------------------------------------------------------

// FutureInstallmentAllocationRule picks which future installments receive
// IN_ADVANCE money.
type FutureInstallmentAllocationRule struct {
	value string
}

var (
	FutureInstallmentReamortization  = FutureInstallmentAllocationRule{value: "REAMORTIZATION"}
	FutureInstallmentNextInstallment = FutureInstallmentAllocationRule{value: "NEXT_INSTALLMENT"}
	FutureInstallmentLastInstallment = FutureInstallmentAllocationRule{value: "LAST_INSTALLMENT"}
)

// NewFutureInstallmentAllocationRule parses a future installment rule name.
func NewFutureInstallmentAllocationRule(s string) (FutureInstallmentAllocationRule, error) {
	for _, r := range []FutureInstallmentAllocationRule{
		FutureInstallmentReamortization, FutureInstallmentNextInstallment, FutureInstallmentLastInstallment,
	} {
		if r.value == s {
			return r, nil
		}
	}
	return FutureInstallmentAllocationRule{}, fmt.Errorf("invalid future installment allocation rule: %q", s)
}

func (f FutureInstallmentAllocationRule) String() string { return f.value }

// ---------------------------------------------------------------------------
// ScheduleProcessingType
// ---------------------------------------------------------------------------

// ScheduleProcessingType selects the allocation engine mode.
type ScheduleProcessingType struct {
	value string
}

var (
	ScheduleProcessingHorizontal = ScheduleProcessingType{value: "HORIZONTAL"}
	ScheduleProcessingVertical   = ScheduleProcessingType{value: "VERTICAL"}
)

// NewScheduleProcessingType parses HORIZONTAL or VERTICAL.
func NewScheduleProcessingType(s string) (ScheduleProcessingType, error) {
	switch s {
	case ScheduleProcessingHorizontal.value:
		return ScheduleProcessingHorizontal, nil
	case ScheduleProcessingVertical.value:
		return ScheduleProcessingVertical, nil
	}
	return ScheduleProcessingType{}, fmt.Errorf("invalid schedule processing type: %q", s)
}

func (s ScheduleProcessingType) String() string { return s.value }

// IsVertical reports whether the vertical engine is selected.
func (s ScheduleProcessingType) IsVertical() bool { return s == ScheduleProcessingVertical }
