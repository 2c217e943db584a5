package service

import (
	"fmt"
	"time"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/pkg/money"
)

// BuildSchedule lays out an empty repayment schedule of n periods starting
// at the disbursement date. Principal and interest are filled in later by
// the disbursement transactions. When down payments are enabled a
// down-payment installment due on the disbursement date comes first.
func BuildSchedule(terms model.LoanTerms, disbursementDate time.Time, n int, currency money.Currency) (*model.Schedule, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: number of installments must be positive, got %d", ErrInvalidScheduleParameter, n)
	}
	if terms.RepaymentEvery <= 0 {
		return nil, fmt.Errorf("%w: repayment every must be positive, got %d", ErrInvalidScheduleParameter, terms.RepaymentEvery)
	}

	zero := money.Zero(currency)
	var installments []*model.Installment
	number := 1
	if terms.EnableDownPayment {
		installments = append(installments, model.NewDownPaymentInstallment(number, disbursementDate, currency))
		number++
	}

	// Every due date is stepped from the disbursement date so month-end
	// dates do not drift after a short month.
	from := disbursementDate
	for i := 0; i < n; i++ {
		due, err := stepDate(disbursementDate, terms.RepaymentFrequency, (i+1)*terms.RepaymentEvery)
		if err != nil {
			return nil, err
		}
		installments = append(installments, model.NewInstallment(number, from, due, zero, zero, zero, zero))
		number++
		from = due
	}
	return model.NewSchedule(currency, installments...), nil
}
