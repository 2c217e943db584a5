package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/infrastructure/adapter"
	"github.com/bibbank/loanservicing/pkg/money"
)

func TestChargeReprocessor_BooksOnContainingInstallment(t *testing.T) {
	tests := []struct {
		name    string
		due     int
		penalty bool
		want    int
	}{
		{"on the disbursement date", 0, false, 1},
		{"inside first window", 10, false, 1},
		{"on a due date", 60, false, 2},
		{"penalty in last window", 75, true, 3},
		{"after the schedule", 120, false, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schedule := emptySchedule(3)
			charge := model.NewCharge("c1", tc.penalty, usd("5"), day(tc.due), day(tc.due), day(tc.due))

			adapter.NewInstallmentChargeReprocessor().Reprocess(charge, schedule, day(0))

			inst := schedule.ByNumber(tc.want)
			if tc.penalty {
				assert.Equal(t, "5.00", fixed(inst.PenaltyCharged()))
			} else {
				assert.Equal(t, "5.00", fixed(inst.FeeCharged()))
			}
			assert.Equal(t, "5.00", fixed(schedule.Totals().Total()))
		})
	}
}

func TestChargeReprocessor_IgnoresDisbursementAndInactiveCharges(t *testing.T) {
	schedule := emptySchedule(2)
	atDisbursement := model.NewCharge("c1", false, usd("5"), day(0), day(0), day(0))
	atDisbursement.MarkDueAtDisbursement()
	inactive := model.NewCharge("c2", false, usd("5"), day(10), day(10), day(10))
	inactive.Deactivate()

	r := adapter.NewInstallmentChargeReprocessor()
	r.Reprocess(atDisbursement, schedule, day(0))
	r.Reprocess(inactive, schedule, day(0))

	assert.True(t, schedule.Totals().Total().IsZero())
}

func TestChargeReprocessor_EmptySchedule(t *testing.T) {
	schedule := model.NewSchedule(money.USD)
	charge := model.NewCharge("c1", false, usd("5"), day(10), day(10), day(10))

	assert.NotPanics(t, func() {
		adapter.NewInstallmentChargeReprocessor().Reprocess(charge, schedule, day(0))
	})
}
