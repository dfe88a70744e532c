package dosage

import (
	"github.com/giygas/pedscalc-api/catalog"
	"github.com/shopspring/decimal"
)

// EvaluateDose renders the display dose of a non-infusion entry.
// Sources are tried in order: per_kg, by_age, by_weight, text.
func EvaluateDose(d catalog.DoseSource, weightKg, ageYears float64) string {
	switch {
	case d.PerKg != nil:
		return PerKg(*d.PerKg, weightKg)
	case len(d.ByAge) > 0:
		return ByAge(d.ByAge, ageYears)
	case len(d.ByWeight) > 0:
		return ByWeight(d.ByWeight, weightKg)
	default:
		return d.Text
	}
}

// PerKg scales a per-kg dose by weight and applies the absolute clamps.
// A range renders as "low-high unit"; it collapses to one value when both ends
// clamp to the same dose.
func PerKg(p catalog.PerKgDose, weightKg float64) string {
	places := p.Decimals()
	w := decimal.NewFromFloat(weightKg)

	low := clamp(decimal.NewFromFloat(p.Low).Mul(w), p.MinDose, p.MaxDose).Round(places)
	if p.High <= 0 {
		return low.String() + " " + p.Unit
	}

	high := clamp(decimal.NewFromFloat(p.High).Mul(w), p.MinDose, p.MaxDose).Round(places)
	if high.Equal(low) {
		return low.String() + " " + p.Unit
	}
	return low.String() + "-" + high.String() + " " + p.Unit
}

func clamp(v decimal.Decimal, minDose, maxDose float64) decimal.Decimal {
	if minDose > 0 {
		v = decimal.Max(v, decimal.NewFromFloat(minDose))
	}
	if maxDose > 0 {
		v = decimal.Min(v, decimal.NewFromFloat(maxDose))
	}
	return v
}

// ByAge picks the first bracket the patient is younger than, or the open last one
func ByAge(brackets []catalog.AgeBracket, ageYears float64) string {
	for _, b := range brackets {
		if b.BelowYears != nil && ageYears >= *b.BelowYears {
			continue
		}
		if b.Linear != nil {
			return Linear(*b.Linear, ageYears)
		}
		return b.Text
	}
	return ""
}

// Linear evaluates base + per_year * age, rounded to the nearest round_to and
// capped at max
func Linear(l catalog.LinearDose, ageYears float64) string {
	v := decimal.NewFromFloat(l.Base).Add(decimal.NewFromFloat(l.PerYear).Mul(decimal.NewFromFloat(ageYears)))

	if l.RoundTo > 0 {
		step := decimal.NewFromFloat(l.RoundTo)
		v = v.Div(step).Round(0).Mul(step)
	}
	if l.Max > 0 {
		v = decimal.Min(v, decimal.NewFromFloat(l.Max))
	}

	return v.Round(2).String() + " " + l.Unit
}

// ByWeight picks the first bracket the patient is lighter than, or the open last one
func ByWeight(brackets []catalog.WeightBracket, weightKg float64) string {
	for _, b := range brackets {
		if b.BelowKg != nil && weightKg >= *b.BelowKg {
			continue
		}
		return b.Text
	}
	return ""
}

// FormatNumber rounds to places and drops trailing zeros
func FormatNumber(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
