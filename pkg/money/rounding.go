package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how a discarded fraction is resolved when an amount is
// reduced to a fixed number of fractional digits.
type RoundingMode int

const (
	// HalfEven rounds to the nearest neighbour, ties to the even neighbour.
	HalfEven RoundingMode = iota
	// HalfUp rounds to the nearest neighbour, ties away from zero.
	HalfUp
	// HalfDown rounds to the nearest neighbour, ties towards zero.
	HalfDown
	// Up rounds away from zero.
	Up
	// Down truncates towards zero.
	Down
	// Ceiling rounds towards positive infinity.
	Ceiling
	// Floor rounds towards negative infinity.
	Floor
)

var roundingModeNames = map[RoundingMode]string{
	HalfEven: "HALF_EVEN",
	HalfUp:   "HALF_UP",
	HalfDown: "HALF_DOWN",
	Up:       "UP",
	Down:     "DOWN",
	Ceiling:  "CEILING",
	Floor:    "FLOOR",
}

// ParseRoundingMode converts a name such as "HALF_EVEN" into a RoundingMode.
func ParseRoundingMode(s string) (RoundingMode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for mode, n := range roundingModeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("invalid rounding mode %q", s)
}

// String returns the canonical name of the mode.
func (r RoundingMode) String() string {
	if n, ok := roundingModeNames[r]; ok {
		return n
	}
	return fmt.Sprintf("RoundingMode(%d)", int(r))
}

var two = decimal.NewFromInt(2)

// Round reduces d to places fractional digits.
func (r RoundingMode) Round(d decimal.Decimal, places int32) decimal.Decimal {
	return r.Div(d, decimal.NewFromInt(1), places)
}

// Div returns a/b rounded to places fractional digits. The rounding decision
// is taken on the exact remainder, so no intermediate precision is lost.
func (r RoundingMode) Div(a, b decimal.Decimal, places int32) decimal.Decimal {
	q, rem := a.QuoRem(b, places)
	if rem.IsZero() {
		return q
	}

	unit := decimal.New(1, -places)
	negative := a.Sign()*b.Sign() < 0
	step := unit
	if negative {
		step = unit.Neg()
	}
	// cmp compares the discarded fraction against one half of a unit.
	cmp := rem.Abs().Mul(two).Cmp(b.Abs().Mul(unit))

	awayFromZero := false
	switch r {
	case Up:
		awayFromZero = true
	case Down:
		awayFromZero = false
	case Ceiling:
		awayFromZero = !negative
	case Floor:
		awayFromZero = negative
	case HalfUp:
		awayFromZero = cmp >= 0
	case HalfDown:
		awayFromZero = cmp > 0
	default:
		awayFromZero = cmp > 0 || (cmp == 0 && isOdd(q, places))
	}

	if awayFromZero {
		return q.Add(step)
	}
	return q
}

func isOdd(q decimal.Decimal, places int32) bool {
	return !q.Shift(places).Abs().Mod(two).IsZero()
}
