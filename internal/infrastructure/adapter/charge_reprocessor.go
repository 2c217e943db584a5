package adapter

import (
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
)

// InstallmentChargeReprocessor books a charge on the installment whose
// window contains the charge's due date. Charges due before the schedule
// starts land on the first installment and charges due after it ends on
// the last.
//
// It implements port.ChargeReprocessor.
type InstallmentChargeReprocessor struct{}

// NewInstallmentChargeReprocessor creates a charge reprocessor.
func NewInstallmentChargeReprocessor() *InstallmentChargeReprocessor {
	return &InstallmentChargeReprocessor{}
}

// Reprocess adds the charge amount to the fee or penalty due of its
// installment. Charges collected at disbursement never reach the schedule.
func (r *InstallmentChargeReprocessor) Reprocess(charge *model.Charge, schedule *model.Schedule, disbursementDate time.Time) {
	if !charge.IsActive() || charge.IsDueAtDisbursement() || schedule.IsEmpty() {
		return
	}
	due := charge.BookingDate(disbursementDate)
	inst := schedule.ChargeInstallment(due)
	inst.AddToCharges(due, charge.Amount(), charge.IsPenalty())
}
