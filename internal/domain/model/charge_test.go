package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/loanservicing/internal/domain/model"
)

func TestCharge_EffectiveDate(t *testing.T) {
	backdated := model.NewCharge("c-1", false, m("10"), day(5), day(20), day(20))
	assert.Equal(t, day(5), backdated.EffectiveDate())

	future := model.NewCharge("c-2", false, m("10"), day(40), day(20), day(20))
	assert.Equal(t, day(20), future.EffectiveDate())

	undated := model.NewCharge("c-3", true, m("10"), time.Time{}, day(20), day(20))
	assert.False(t, undated.HasDueDate())
	assert.Equal(t, day(20), undated.EffectiveDate())
}

func TestCharge_PayAndUnpay(t *testing.T) {
	c := model.NewCharge("c-1", true, m("10"), day(5), day(5), day(5))

	assertMoney(t, "6", c.Pay(m("6")))
	assertMoney(t, "4", c.Pay(m("9")))
	assert.True(t, c.IsFullyPaid())
	assertMoney(t, "0", c.Pay(m("1")))

	assertMoney(t, "3", c.Unpay(m("3")))
	assertMoney(t, "3", c.Outstanding())

	c.ResetPaidAmount()
	assertMoney(t, "10", c.Outstanding())
}

func TestCharge_Flags(t *testing.T) {
	c := model.NewCharge("c-1", false, m("10"), day(0), day(0), day(0))
	assert.True(t, c.IsActive())
	assert.False(t, c.IsPenalty())

	c.MarkDueAtDisbursement()
	c.Deactivate()

	assert.True(t, c.IsDueAtDisbursement())
	assert.False(t, c.IsActive())
}

func TestCharge_BookingDate(t *testing.T) {
	withDue := model.NewCharge("c1", false, m("5"), day(20), day(25), day(25))
	assert.Equal(t, day(20), withDue.BookingDate(start))

	undated := model.NewCharge("c2", false, m("5"), time.Time{}, day(25), day(25))
	assert.Equal(t, day(25), undated.BookingDate(start))

	bare := model.NewCharge("c3", false, m("5"), time.Time{}, time.Time{}, day(25))
	assert.Equal(t, start, bare.BookingDate(start))
}
