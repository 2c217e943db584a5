package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// defaultDigits is the number of fractional digits used when a currency is
// created without an explicit precision.
const defaultDigits int32 = 2

// knownDigits lists ISO 4217 currencies whose minor unit differs from two.
var knownDigits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// Currency is an ISO 4217 currency code together with the number of
// fractional digits amounts in that currency are kept at.
type Currency struct {
	code   string
	digits int32
}

// NewCurrency creates a Currency after validating the code is exactly 3 uppercase letters.
// The fractional precision is taken from the ISO 4217 minor unit.
func NewCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	digits, ok := knownDigits[code]
	if !ok {
		digits = defaultDigits
	}
	return Currency{code: code, digits: digits}, nil
}

// NewCurrencyWithDigits creates a Currency with an explicit fractional precision.
func NewCurrencyWithDigits(code string, digits int32) (Currency, error) {
	c, err := NewCurrency(code)
	if err != nil {
		return Currency{}, err
	}
	if digits < 0 {
		return Currency{}, fmt.Errorf("invalid digits %d for currency %s: must not be negative", digits, code)
	}
	c.digits = digits
	return c, nil
}

// MustCurrency creates a Currency and panics on error. Intended for package-level variable
// initialization only.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string {
	return c.code
}

// Digits returns the number of fractional digits of the currency.
func (c Currency) Digits() int32 {
	return c.digits
}

// String returns the currency code.
func (c Currency) String() string {
	return c.code
}

// Common currencies.
var (
	USD = MustCurrency("USD")
	EUR = MustCurrency("EUR")
	GBP = MustCurrency("GBP")
)

// CurrencyMismatchError is raised by the panicking arithmetic helpers when two
// amounts of different currencies are combined.
type CurrencyMismatchError struct {
	Op    string
	Left  Currency
	Right Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: cannot %s %s and %s", e.Op, e.Left, e.Right)
}

// Money represents an immutable monetary amount with currency.
// Fields are unexported to enforce immutability.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money value from a decimal amount and currency.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// Of creates a Money value rounded to the currency precision with the given mode.
func Of(amount decimal.Decimal, currency Currency, mode RoundingMode) Money {
	return Money{amount: mode.Round(amount, currency.digits), currency: currency}
}

// NewFromString parses an amount string and currency code into a Money value.
func NewFromString(amount string, currency string) (Money, error) {
	cur, err := NewCurrency(currency)
	if err != nil {
		return Money{}, fmt.Errorf("invalid currency: %w", err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	return Money{amount: d, currency: cur}, nil
}

// Zero returns a Money value of zero in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency.
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is strictly less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of m and other. Returns an error if the currencies do not match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: cannot add %s to %s", other.currency, m.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference of m minus other. Returns an error if the currencies do not match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: cannot subtract %s from %s", other.currency, m.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Plus is Add for callers that have already established both amounts share a
// currency. It panics with *CurrencyMismatchError otherwise.
func (m Money) Plus(other Money) Money {
	m.mustMatch("add", other)
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}
}

// Minus is Subtract for callers that have already established both amounts
// share a currency. It panics with *CurrencyMismatchError otherwise.
func (m Money) Minus(other Money) Money {
	m.mustMatch("subtract", other)
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}
}

// MinusOrZero subtracts other and floors the result at zero.
func (m Money) MinusOrZero(other Money) Money {
	return m.Minus(other).ZeroIfNegative()
}

// Multiply returns m multiplied by the given factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// MultipliedBy returns m multiplied by an integer count.
func (m Money) MultipliedBy(n int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(n)), currency: m.currency}
}

// DividedBy divides m into n parts and rounds the quotient to the currency
// precision using mode. Dividing by one returns m unchanged.
func (m Money) DividedBy(n int64, mode RoundingMode) Money {
	if n == 1 {
		return m
	}
	if n == 0 {
		panic("money: division by zero")
	}
	return Money{amount: mode.Div(m.amount, decimal.NewFromInt(n), m.currency.digits), currency: m.currency}
}

// PercentageOf returns pct percent of m rounded to the currency precision.
func (m Money) PercentageOf(pct decimal.Decimal, mode RoundingMode) Money {
	raw := m.amount.Mul(pct)
	return Money{amount: mode.Div(raw, decimal.NewFromInt(100), m.currency.digits), currency: m.currency}
}

// RoundToMultiplesOf rounds m to the nearest multiple of unit using mode.
// A non-positive unit leaves m unchanged.
func (m Money) RoundToMultiplesOf(unit int64, mode RoundingMode) Money {
	if unit <= 0 {
		return m
	}
	u := decimal.NewFromInt(unit)
	q := mode.Div(m.amount, u, 0)
	return Money{amount: q.Mul(u), currency: m.currency}
}

// Round rounds m to the currency precision.
func (m Money) Round(mode RoundingMode) Money {
	return Money{amount: mode.Round(m.amount, m.currency.digits), currency: m.currency}
}

// Negate returns m with the sign of the amount flipped.
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns m with the absolute value of the amount.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// ZeroIfNegative returns zero when m is negative and m otherwise.
func (m Money) ZeroIfNegative() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// IsGreaterThan reports whether m > other.
func (m Money) IsGreaterThan(other Money) bool {
	m.mustMatch("compare", other)
	return m.amount.GreaterThan(other.amount)
}

// IsGreaterThanOrEqual reports whether m >= other.
func (m Money) IsGreaterThanOrEqual(other Money) bool {
	m.mustMatch("compare", other)
	return m.amount.GreaterThanOrEqual(other.amount)
}

// IsLessThan reports whether m < other.
func (m Money) IsLessThan(other Money) bool {
	m.mustMatch("compare", other)
	return m.amount.LessThan(other.amount)
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if b.IsLessThan(a) {
		return b
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if b.IsGreaterThan(a) {
		return b
	}
	return a
}

// Equal returns true if both the amount and currency of m and other are equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String formats the Money value at currency precision, for example "100.00 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.digits), m.currency.Code())
}

func (m Money) mustMatch(op string, other Money) {
	if m.currency != other.currency {
		panic(&CurrencyMismatchError{Op: op, Left: m.currency, Right: other.currency})
	}
}
