// Package dosage evaluates the medication catalog for one patient. It is a pure
// function of weight, age and the loaded catalog.
package dosage

import (
	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/infusion"
)

// Placeholder is shown when an entry yields no dose text
const Placeholder = "-"

// MedicationEntry is the per-patient result for one catalog entry.
//
// For infusion entries Dosage carries the "<weight> kg" annotation and Route the
// "min-max unit" range; the typed Infusion range and WeightKg carry the same data
// for computation.
type MedicationEntry struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Dosage        string          `json:"dosage"`
	Route         string          `json:"route"`
	Concentration *float64        `json:"concentration,omitempty"`
	Infusion      *infusion.Range `json:"infusion,omitempty"`
	WeightKg      float64         `json:"weight_kg"`
}

// Results maps every category to its ordered entries
type Results map[catalog.Category][]MedicationEntry

// Calculator evaluates a catalog. It holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	catalog *catalog.Catalog
}

// NewCalculator binds a calculator to a loaded catalog
func NewCalculator(c *catalog.Catalog) *Calculator {
	return &Calculator{catalog: c}
}

// Compute returns all categories for a patient. Callers validate input first:
// weightKg > 0 and ageYears >= 0.
func (c *Calculator) Compute(weightKg, ageYears float64) Results {
	return Compute(c.catalog, weightKg, ageYears)
}

// Compute evaluates every catalog entry for a patient. Every category is present in
// the result, possibly with an empty list.
func Compute(c *catalog.Catalog, weightKg, ageYears float64) Results {
	results := make(Results, len(catalog.Categories))

	for _, id := range catalog.Categories {
		var cat catalog.CategoryEntries
		if c != nil {
			cat, _ = c.Category(id)
		}

		entries := make([]MedicationEntry, 0, len(cat.Medications))
		for _, m := range cat.Medications {
			entries = append(entries, evaluate(m, cat.InteractiveInfusion, weightKg, ageYears))
		}
		results[id] = entries
	}

	return results
}

func evaluate(m catalog.Medication, interactive bool, weightKg, ageYears float64) MedicationEntry {
	entry := MedicationEntry{
		ID:       m.ID,
		Name:     m.Name,
		Route:    m.Route,
		WeightKg: weightKg,
	}

	if interactive && m.Infusion != nil {
		r := m.Infusion.Range()
		entry.Infusion = &r
		entry.Concentration = m.Infusion.Concentration
		entry.Dosage = FormatNumber(weightKg, 2) + " kg"
		entry.Route = r.String()
		return entry
	}

	entry.Dosage = EvaluateDose(m.Dose, weightKg, ageYears)
	if entry.Dosage == "" {
		entry.Dosage = Placeholder
	}
	return entry
}
