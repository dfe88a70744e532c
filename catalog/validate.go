package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidCatalog wraps every catalog integrity failure
var ErrInvalidCatalog = errors.New("invalid catalog")

// Report lists integrity problems found in a catalog. Errors block startup,
// warnings are logged and the affected entries degrade at render time.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err returns nil when the catalog is usable
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(r.Errors, "; "))
}

// Validate checks a parsed catalog for structural and data-integrity problems
func Validate(c *Catalog) *Report {
	report := &Report{
		Errors:   []string{},
		Warnings: []string{},
	}

	if c == nil {
		report.errorf("catalog is nil")
		return report
	}

	seenCategories := make(map[Category]bool)
	seenIDs := make(map[string]Category)

	for _, cat := range c.Categories {
		if !cat.ID.Valid() {
			report.errorf("unknown category %q", cat.ID)
			continue
		}
		if seenCategories[cat.ID] {
			report.errorf("duplicate category %q", cat.ID)
			continue
		}
		seenCategories[cat.ID] = true

		if cat.Layout != LayoutCompact && cat.Layout != LayoutTable {
			report.errorf("category %s: unknown layout %q", cat.ID, cat.Layout)
		}

		for i, m := range cat.Medications {
			where := fmt.Sprintf("category %s entry %d", cat.ID, i)

			if strings.TrimSpace(m.ID) == "" {
				report.errorf("%s: missing id", where)
			} else if other, dup := seenIDs[m.ID]; dup {
				report.errorf("%s: duplicate id %q (also in %s)", where, m.ID, other)
			} else {
				seenIDs[m.ID] = cat.ID
			}

			if strings.TrimSpace(m.Name) == "" {
				report.errorf("%s: empty name", where)
			}

			validateMedication(report, where, cat, m)
		}
	}

	for _, id := range Categories {
		if !seenCategories[id] {
			report.errorf("missing category %q", id)
		}
	}

	return report
}

func validateMedication(report *Report, where string, cat CategoryEntries, m Medication) {
	if m.Infusion != nil {
		if !cat.InteractiveInfusion {
			report.errorf("%s (%s): infusion range in non-infusion category", where, m.ID)
		}
		validateInfusion(report, where, m)
		return
	}

	if m.Dose.IsEmpty() {
		report.errorf("%s (%s): no dose source", where, m.ID)
	}
	if cat.InteractiveInfusion && strings.TrimSpace(m.Route) == "" {
		report.errorf("%s (%s): plain entry in infusion category needs route text", where, m.ID)
	}
	if cat.InteractiveInfusion {
		report.warnf("%s (%s): route %q is not an interactive infusion", where, m.ID, m.Route)
	}

	if p := m.Dose.PerKg; p != nil {
		if p.Low <= 0 {
			report.errorf("%s (%s): per_kg low must be positive", where, m.ID)
		}
		if p.High != 0 && p.High < p.Low {
			report.errorf("%s (%s): per_kg high below low", where, m.ID)
		}
		if p.MaxDose != 0 && p.MinDose > p.MaxDose {
			report.errorf("%s (%s): min_dose above max_dose", where, m.ID)
		}
		if strings.TrimSpace(p.Unit) == "" {
			report.errorf("%s (%s): per_kg unit missing", where, m.ID)
		}
	}

	if len(m.Dose.ByAge) > 0 {
		last := m.Dose.ByAge[len(m.Dose.ByAge)-1]
		if last.BelowYears != nil {
			report.errorf("%s (%s): by_age needs an unbounded final bracket", where, m.ID)
		}
		prev := -1.0
		for _, b := range m.Dose.ByAge {
			if b.Text == "" && b.Linear == nil {
				report.errorf("%s (%s): by_age bracket without value", where, m.ID)
			}
			if b.BelowYears != nil {
				if *b.BelowYears <= prev {
					report.errorf("%s (%s): by_age brackets out of order", where, m.ID)
				}
				prev = *b.BelowYears
			}
		}
	}

	if len(m.Dose.ByWeight) > 0 {
		last := m.Dose.ByWeight[len(m.Dose.ByWeight)-1]
		if last.BelowKg != nil {
			report.errorf("%s (%s): by_weight needs an unbounded final bracket", where, m.ID)
		}
		prev := 0.0
		for _, b := range m.Dose.ByWeight {
			if b.Text == "" {
				report.errorf("%s (%s): by_weight bracket without text", where, m.ID)
			}
			if b.BelowKg != nil {
				if *b.BelowKg <= prev {
					report.errorf("%s (%s): by_weight brackets out of order", where, m.ID)
				}
				prev = *b.BelowKg
			}
		}
	}
}

func validateInfusion(report *Report, where string, m Medication) {
	r := m.Infusion
	if r.Min <= 0 {
		report.errorf("%s (%s): infusion min must be positive", where, m.ID)
	}
	if r.Max < r.Min {
		report.errorf("%s (%s): infusion max %v below min %v", where, m.ID, r.Max, r.Min)
	}
	if r.Concentration != nil && *r.Concentration <= 0 {
		report.errorf("%s (%s): concentration must be positive", where, m.ID)
	}
	for _, bound := range []float64{r.Min, r.Max} {
		if decimal.NewFromFloat(bound).Exponent() < -2 {
			report.warnf("%s (%s): infusion bound %v is rounded to 2 decimals", where, m.ID, bound)
		}
	}
	if !r.Unit.IsSupported() {
		report.warnf("%s (%s): unit %q has no rate conversion", where, m.ID, r.Unit)
	}
	if r.Concentration == nil {
		report.warnf("%s (%s): no concentration configured", where, m.ID)
	}
}
