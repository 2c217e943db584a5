package adapter

import (
	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/pkg/money"
)

// PrincipalCreditHandler processes credit transactions of loans without a
// credit allocation rule. The whole credit is recognised as principal on the
// installment it lands on, after the running credit balance has absorbed
// what it can.
//
// It implements port.CreditTransactionHandler.
type PrincipalCreditHandler struct{}

// NewPrincipalCreditHandler creates a credit handler.
func NewPrincipalCreditHandler() *PrincipalCreditHandler {
	return &PrincipalCreditHandler{}
}

// ProcessCredit books txn onto schedule.
func (h *PrincipalCreditHandler) ProcessCredit(txn *model.Transaction, schedule *model.Schedule, overpayment *model.MoneyHolder) error {
	amount := txn.Amount()
	if holder := overpayment.Get(); holder.IsPositive() {
		absorbed := money.Min(holder, amount)
		txn.SetOverpayment(absorbed)
		overpayment.Set(holder.Minus(absorbed))
		amount = amount.Minus(absorbed)
	}
	if !amount.IsPositive() {
		return nil
	}

	portions := model.ZeroPortions(amount.Currency())
	portions.Principal = amount
	txn.AddComponents(portions)

	inst, _ := schedule.CreditTarget(txn.Date())
	inst.AddCreditedPrincipal(amount)
	inst.AddToPrincipal(txn.Date(), amount)
	txn.AddMapping(inst, portions)
	return nil
}
