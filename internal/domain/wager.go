package domain

import "github.com/shopspring/decimal"

// Multiplier scales the points of a wagered question.
type Multiplier float64

const (
	MultiplierHalf       Multiplier = 0.5
	MultiplierOneAndHalf Multiplier = 1.5
	MultiplierDouble     Multiplier = 2
)

// Multipliers is the set a wager draws from.
var Multipliers = []Multiplier{MultiplierHalf, MultiplierOneAndHalf, MultiplierDouble}

// penaltyFactors maps each multiplier to the share of the base points lost on
// a wrong wagered answer.
var penaltyFactors = map[Multiplier]decimal.Decimal{
	MultiplierHalf:       decimal.NewFromFloat(0.5),
	MultiplierOneAndHalf: decimal.NewFromFloat(1.0),
	MultiplierDouble:     decimal.NewFromFloat(1.5),
}

// Valid reports whether m is one of the wager multipliers.
func (m Multiplier) Valid() bool {
	_, ok := penaltyFactors[m]
	return ok
}

// PenaltyFactor returns the deduction factor for m.
func (m Multiplier) PenaltyFactor() (decimal.Decimal, bool) {
	f, ok := penaltyFactors[m]
	return f, ok
}

// AwardedPoints returns round(base * m), the points for a correct wagered answer.
func AwardedPoints(base int, m Multiplier) int {
	return roundProduct(base, decimal.NewFromFloat(float64(m)))
}

// PenaltyPoints returns the positive number of points deducted for a wrong
// wagered answer. ok is false when m has no entry in the table.
func PenaltyPoints(base int, m Multiplier) (int, bool) {
	f, ok := m.PenaltyFactor()
	if !ok {
		return 0, false
	}
	return roundProduct(base, f), true
}

func roundProduct(base int, factor decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(base)).Mul(factor).Round(0).IntPart())
}
