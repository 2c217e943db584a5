package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/valueobject"
)

func TestTransaction_CopyForReplayDropsAllocation(t *testing.T) {
	original := repayment("100", 31)
	original.AssignID("txn-1")
	original.SetChargeID("charge-1")
	original.AddComponents(model.Portions{Principal: m("90"), Interest: zero(), Fee: m("10"), Penalty: zero()})
	inst := model.NewInstallment(1, day(0), day(31), m("100"), zero(), m("10"), zero())
	original.AddMapping(inst, model.Portions{Principal: m("90"), Interest: zero(), Fee: m("10"), Penalty: zero()})

	c := original.CopyForReplay()

	assert.Empty(t, c.ID())
	assert.Equal(t, "charge-1", c.ChargeID())
	assert.True(t, c.Portions().Total().IsZero())
	assert.Empty(t, c.Mappings())
	assert.True(t, c.Amount().Equal(original.Amount()))

	withAlloc := original.CopyWithAllocation()
	assertMoney(t, "90", withAlloc.PrincipalPortion())
	assert.Len(t, withAlloc.Mappings(), 1)
}

func TestTransaction_AmountsMatch(t *testing.T) {
	a := repayment("100", 31)
	a.AddComponents(model.Portions{Principal: m("100"), Interest: zero(), Fee: zero(), Penalty: zero()})
	b := repayment("100", 31)
	b.AddComponents(model.Portions{Principal: m("100"), Interest: zero(), Fee: zero(), Penalty: zero()})
	assert.True(t, a.AmountsMatch(b))

	c := repayment("100", 31)
	c.AddComponents(model.Portions{Principal: m("95"), Interest: zero(), Fee: m("5"), Penalty: zero()})
	assert.False(t, a.AmountsMatch(c))

	d := repayment("100", 31)
	d.AddComponents(model.Portions{Principal: m("100"), Interest: zero(), Fee: zero(), Penalty: zero()})
	d.SetOverpayment(m("1"))
	assert.False(t, a.AmountsMatch(d))
}

func TestTransaction_Relations(t *testing.T) {
	original := repayment("100", 31)
	original.AssignID("txn-1")
	chargeback := model.NewTransaction("", valueobject.TransactionTypeChargeback, m("40"), day(40), day(40), day(40))

	original.AddRelation(valueobject.RelationTypeChargeback, chargeback)

	assert.True(t, original.HasRelationTo(valueobject.RelationTypeChargeback, chargeback, ""))
	assert.False(t, original.HasRelationTo(valueobject.RelationTypeReplayed, chargeback, ""))

	chargeback.AssignID("cb-1")
	persisted := repayment("100", 31)
	persisted.AddRelationByID(valueobject.RelationTypeChargeback, "cb-1")
	assert.True(t, persisted.HasRelationTo(valueobject.RelationTypeChargeback, nil, "cb-1"))
}

func TestTransaction_MarkSupersededBy(t *testing.T) {
	txn := repayment("100", 31)

	txn.MarkSupersededBy("txn-2")

	assert.True(t, txn.IsReversed())
	assert.Equal(t, "txn-2", txn.SupersededBy())
}
