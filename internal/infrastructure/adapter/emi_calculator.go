package adapter

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/loanservicing/internal/domain/model"
	"github.com/bibbank/loanservicing/internal/domain/port"
	"github.com/bibbank/loanservicing/pkg/money"
)

// ---------------------------------------------------------------------------
// Declining balance EMI calculator
// ---------------------------------------------------------------------------

// ErrUnknownScheduleModel is returned when a model produced by another
// calculator is handed back to this one.
var ErrUnknownScheduleModel = errors.New("interest schedule model was not produced by this calculator")

// rateScale is the number of fractional digits kept for periodic rates and
// the annuity factor before amounts are rounded to the currency.
const rateScale int32 = 16

// DecliningBalanceEMICalculator amortises disbursements with equal monthly
// instalments over the regular installments of the schedule. Interest of a
// period is the opening balance times the periodic rate and the last period
// absorbs whatever principal is left.
//
// It implements port.EMICalculator.
type DecliningBalanceEMICalculator struct{}

// NewDecliningBalanceEMICalculator creates a calculator.
func NewDecliningBalanceEMICalculator() *DecliningBalanceEMICalculator {
	return &DecliningBalanceEMICalculator{}
}

type modelPeriod struct {
	from time.Time
	due  time.Time
}

type modelDisbursement struct {
	date   time.Time
	amount money.Money
}

// decliningBalanceModel is the interest schedule model the calculator hands
// out. Repayments are recomputed after every disbursement.
type decliningBalanceModel struct {
	currency      money.Currency
	mode          money.RoundingMode
	rate          decimal.Decimal
	periods       []modelPeriod
	disbursements []modelDisbursement
	repayments    []port.RepaymentPeriod
}

func (m *decliningBalanceModel) Repayments() []port.RepaymentPeriod {
	return slices.Clone(m.repayments)
}

// GenerateModel builds a model over the regular installments of schedule.
// Principal already on the schedule is treated as disbursed at the start of
// the first period.
func (c *DecliningBalanceEMICalculator) GenerateModel(
	terms model.LoanTerms,
	schedule *model.Schedule,
	mode money.RoundingMode,
) (port.InterestScheduleModel, error) {
	rate, err := periodicRate(terms)
	if err != nil {
		return nil, err
	}

	m := &decliningBalanceModel{
		currency: schedule.Currency(),
		mode:     mode,
		rate:     rate,
	}
	existing := money.Zero(schedule.Currency())
	for _, inst := range schedule.Installments() {
		if inst.IsDownPayment() || inst.IsAdditional() {
			continue
		}
		m.periods = append(m.periods, modelPeriod{from: inst.FromDate(), due: inst.DueDate()})
		existing = existing.Plus(inst.Principal())
	}
	slices.SortFunc(m.periods, func(a, b modelPeriod) int { return a.due.Compare(b.due) })

	if existing.IsPositive() && len(m.periods) > 0 {
		m.disbursements = append(m.disbursements, modelDisbursement{date: m.periods[0].from, amount: existing})
	}
	m.recompute()
	return m, nil
}

// AddDisbursement adds amount to the model on date and recomputes every
// period from the one the disbursement falls in.
func (c *DecliningBalanceEMICalculator) AddDisbursement(sm port.InterestScheduleModel, date time.Time, amount money.Money) error {
	m, ok := sm.(*decliningBalanceModel)
	if !ok {
		return ErrUnknownScheduleModel
	}
	if amount.Currency() != m.currency {
		return fmt.Errorf("disbursement in %s on a %s schedule model", amount.Currency(), m.currency)
	}
	m.disbursements = append(m.disbursements, modelDisbursement{date: date, amount: amount})
	slices.SortStableFunc(m.disbursements, func(a, b modelDisbursement) int { return a.date.Compare(b.date) })
	m.recompute()
	return nil
}

func (m *decliningBalanceModel) recompute() {
	zero := money.Zero(m.currency)
	m.repayments = make([]port.RepaymentPeriod, 0, len(m.periods))

	balance := zero
	next := 0
	emi := zero
	for idx, p := range m.periods {
		last := idx == len(m.periods)-1
		added := false
		for next < len(m.disbursements) && (last || m.disbursements[next].date.Before(p.due)) {
			balance = balance.Plus(m.disbursements[next].amount)
			next++
			added = true
		}
		if added {
			emi = m.installmentAmount(balance, len(m.periods)-idx)
		}

		interest := m.interestOn(balance)
		principal := emi.Minus(interest).ZeroIfNegative()
		if last || principal.IsGreaterThan(balance) {
			principal = balance
		}
		balance = balance.Minus(principal)

		m.repayments = append(m.repayments, port.RepaymentPeriod{
			FromDate:  p.from,
			DueDate:   p.due,
			Principal: principal,
			Interest:  interest,
		})
	}
}

func (m *decliningBalanceModel) interestOn(balance money.Money) money.Money {
	return money.Of(balance.Amount().Mul(m.rate), m.currency, m.mode)
}

// installmentAmount is the annuity payment for balance over n periods:
//
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate splits the balance evenly.
func (m *decliningBalanceModel) installmentAmount(balance money.Money, n int) money.Money {
	if n <= 0 {
		return balance
	}
	if m.rate.IsZero() {
		return balance.DividedBy(int64(n), m.mode)
	}
	factor := decimal.NewFromInt(1).Add(m.rate).Pow(decimal.NewFromInt(int64(n)))
	numerator := balance.Amount().Mul(m.rate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return money.Of(numerator.DivRound(denominator, rateScale), m.currency, m.mode)
}

// periodicRate converts the annual percentage rate of terms into the rate of
// one repayment period.
func periodicRate(terms model.LoanTerms) (decimal.Decimal, error) {
	if !terms.AnnualInterestRate.IsPositive() {
		return decimal.Zero, nil
	}
	every := terms.RepaymentEvery
	if every <= 0 {
		every = 1
	}
	perYear := terms.RepaymentFrequency.PeriodsPerYear(every)
	if perYear <= 0 {
		return decimal.Zero, fmt.Errorf("cannot derive a periodic rate for repayment frequency %q every %d", terms.RepaymentFrequency, every)
	}
	return terms.AnnualInterestRate.DivRound(decimal.NewFromInt(int64(100*perYear)), rateScale), nil
}
