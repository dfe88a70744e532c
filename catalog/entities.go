// Package catalog holds the typed medication catalog: categories with their rendering
// capabilities, medications with their dose sources, and continuous-infusion ranges.
package catalog

import (
	"github.com/giygas/pedscalc-api/infusion"
)

// Category identifies one of the fixed medication groups
type Category string

const (
	AirwayDefib       Category = "airway_defib"
	Intubation        Category = "intubation"
	Emergencies       Category = "emergencies"
	Inotropes         Category = "inotropes"
	Sedation          Category = "sedation"
	Antihypertensives Category = "antihypertensives"
	Antiarrhythmics   Category = "antiarrhythmics"
	Others            Category = "others"
)

// Categories is the canonical display order
var Categories = []Category{
	AirwayDefib, Intubation, Emergencies, Inotropes,
	Sedation, Antihypertensives, Antiarrhythmics, Others,
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Layout is how a category is laid out by the presentation layer
type Layout string

const (
	LayoutCompact Layout = "compact" // name + "dosage - route" pairs
	LayoutTable   Layout = "table"   // name / dosage / route columns
)

// Catalog is the full medication catalog. It is immutable once loaded.
type Catalog struct {
	Version    string            `json:"version" yaml:"version"`
	Categories []CategoryEntries `json:"categories" yaml:"categories"`

	index map[Category]int
}

// CategoryEntries is a category with its declared capabilities and ordered medications
type CategoryEntries struct {
	ID                  Category     `json:"id" yaml:"id"`
	Layout              Layout       `json:"layout" yaml:"layout"`
	InteractiveInfusion bool         `json:"interactive_infusion" yaml:"interactive_infusion"`
	Medications         []Medication `json:"medications" yaml:"medications"`
}

// Medication is one catalog entry. Exactly one of the dose sources is used for
// non-infusion entries; infusion entries carry an Infusion range instead.
type Medication struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Dose     DoseSource     `json:"dose" yaml:"dose"`
	Route    string         `json:"route,omitempty" yaml:"route,omitempty"`
	Infusion *InfusionRange `json:"infusion,omitempty" yaml:"infusion,omitempty"`
}

// InfusionRange is a per-kg dose range with an optional prepared concentration
// (mg or units per mL). A nil Concentration is a data gap surfaced to clinicians.
type InfusionRange struct {
	Min           float64       `json:"min" yaml:"min"`
	Max           float64       `json:"max" yaml:"max"`
	Unit          infusion.Unit `json:"unit" yaml:"unit"`
	Concentration *float64      `json:"concentration,omitempty" yaml:"concentration,omitempty"`
}

// Range returns the engine view of the infusion range
func (r InfusionRange) Range() infusion.Range {
	return infusion.Range{Min: r.Min, Max: r.Max, Unit: r.Unit}
}

// DoseSource describes how the displayed dose is obtained
type DoseSource struct {
	Text     string          `json:"text,omitempty" yaml:"text,omitempty"`
	PerKg    *PerKgDose      `json:"per_kg,omitempty" yaml:"per_kg,omitempty"`
	ByAge    []AgeBracket    `json:"by_age,omitempty" yaml:"by_age,omitempty"`
	ByWeight []WeightBracket `json:"by_weight,omitempty" yaml:"by_weight,omitempty"`
}

// IsEmpty reports whether no dose source is declared
func (d DoseSource) IsEmpty() bool {
	return d.Text == "" && d.PerKg == nil && len(d.ByAge) == 0 && len(d.ByWeight) == 0
}

// PerKgDose is a weight-scaled dose, optionally a range (Low-High) with clamps
type PerKgDose struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Unit string  `json:"unit" yaml:"unit"`
	// MinDose / MaxDose clamp the absolute dose; zero means no clamp
	MinDose float64 `json:"min_dose,omitempty" yaml:"min_dose,omitempty"`
	MaxDose float64 `json:"max_dose,omitempty" yaml:"max_dose,omitempty"`
	// Precision is the number of decimals shown; nil means DefaultPrecision
	Precision *int32 `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// DefaultPrecision is used when a per-kg dose does not set its own
const DefaultPrecision int32 = 2

// Decimals returns the display precision of the dose
func (p PerKgDose) Decimals() int32 {
	if p.Precision == nil || *p.Precision < 0 {
		return DefaultPrecision
	}
	return *p.Precision
}

// AgeBracket selects a value for patients younger than BelowYears.
// The last bracket has no bound and catches everyone else.
type AgeBracket struct {
	BelowYears *float64    `json:"below_years,omitempty" yaml:"below_years,omitempty"`
	Text       string      `json:"text,omitempty" yaml:"text,omitempty"`
	Linear     *LinearDose `json:"linear,omitempty" yaml:"linear,omitempty"`
}

// LinearDose is Base + PerYear*age, rounded to RoundTo and capped at Max
type LinearDose struct {
	PerYear float64 `json:"per_year" yaml:"per_year"`
	Base    float64 `json:"base" yaml:"base"`
	RoundTo float64 `json:"round_to,omitempty" yaml:"round_to,omitempty"`
	Max     float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Unit    string  `json:"unit" yaml:"unit"`
}

// WeightBracket selects a value for patients lighter than BelowKg
type WeightBracket struct {
	BelowKg *float64 `json:"below_kg,omitempty" yaml:"below_kg,omitempty"`
	Text    string   `json:"text" yaml:"text"`
}
