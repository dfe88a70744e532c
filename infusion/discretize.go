package infusion

import (
	"github.com/shopspring/decimal"
)

// StepFor returns the selector step for a range, tiered by its upper bound
func StepFor(maxDose float64) float64 {
	switch {
	case maxDose <= 1:
		return 0.1
	case maxDose <= 10:
		return 0.5
	default:
		return 1
	}
}

// Discretize turns a dose range into the ordered list of selectable rates:
// min, min+step, ... up to the largest value not above max, rounded to 2 decimals.
// The list is never empty and always starts at min. A value that rounding pushes
// above max is dropped unless it is the only option.
func Discretize(minDose, maxDose float64) []float64 {
	lo := decimal.NewFromFloat(minDose)
	hi := decimal.NewFromFloat(maxDose)
	step := decimal.NewFromFloat(StepFor(maxDose))

	if hi.LessThan(lo) {
		return []float64{lo.Round(2).InexactFloat64()}
	}

	// Decimal division keeps 0.7-0.1 at exactly 6 steps
	count := hi.Sub(lo).Div(step).Floor().IntPart() + 1

	options := make([]float64, 0, count)
	for i := int64(0); i < count; i++ {
		v := lo.Add(step.Mul(decimal.NewFromInt(i))).Round(2)
		if i > 0 && v.GreaterThan(hi) {
			break
		}
		options = append(options, v.InexactFloat64())
	}

	return options
}

// DefaultIndex is the initial selection: the middle of the option list
func DefaultIndex(options []float64) int {
	return len(options) / 2
}

// IndexOf finds a rate in the option list, tolerating float noise from clients
func IndexOf(options []float64, rate float64) int {
	want := decimal.NewFromFloat(rate).Round(2)
	for i, o := range options {
		if decimal.NewFromFloat(o).Equal(want) {
			return i
		}
	}
	return -1
}
