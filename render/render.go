// Package render turns dosage results into localized, render-ready records.
// Locale and rate selections arrive with each request; nothing is kept between calls.
package render

import (
	"errors"
	"fmt"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/dosage"
	"github.com/giygas/pedscalc-api/i18n"
	"github.com/giygas/pedscalc-api/infusion"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRateNotOffered is returned for a selection that is not one of the
// discretized options, or that targets no interactive infusion
var ErrRateNotOffered = errors.New("rate not offered")

// Request is one calculation pass
type Request struct {
	Patient dosage.Patient
	// Age and AgeUnit as entered, for display
	Age     float64
	AgeUnit string
	Locale  string
	// Selections maps medication id to the chosen per-kg rate
	Selections map[string]float64
}

// Result is the full localized output of a calculation
type Result struct {
	CalculationID string           `json:"calculation_id"`
	Locale        string           `json:"locale"`
	Direction     string           `json:"direction"`
	Title         string           `json:"title"`
	Patient       PatientSummary   `json:"patient"`
	Categories    []CategoryResult `json:"categories"`
}

// PatientSummary echoes the normalized patient
type PatientSummary struct {
	WeightKg   float64 `json:"weight_kg"`
	AgeYears   float64 `json:"age_years"`
	AgeDisplay string  `json:"age_display"`
}

// CategoryResult is one category with its capabilities and records
type CategoryResult struct {
	ID                  catalog.Category `json:"id"`
	Title               string           `json:"title"`
	Layout              catalog.Layout   `json:"layout"`
	InteractiveInfusion bool             `json:"interactive_infusion"`
	Medications         []Record         `json:"medications"`
}

// Record is one medication row
type Record struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DosageText string          `json:"dosage_text"`
	RouteText  string          `json:"route_text"`
	Infusion   *InfusionResult `json:"infusion,omitempty"`
}

// InfusionResult is the rate selector state and the computed rate for one infusion.
// Rate fields are absent when the unit is unsupported.
type InfusionResult struct {
	Min                  float64       `json:"min"`
	Max                  float64       `json:"max"`
	Unit                 infusion.Unit `json:"unit"`
	Options              []float64     `json:"options"`
	SelectedRate         float64       `json:"selected_rate"`
	SelectedIndex        int           `json:"selected_index"`
	MLPerHour            *float64      `json:"infusion_rate_ml_per_hr,omitempty"`
	PreparationText      string        `json:"preparation_text,omitempty"`
	AmountToAdd          *float64      `json:"amount_to_add,omitempty"`
	AmountUnit           string        `json:"amount_unit,omitempty"`
	DiluentML            *float64      `json:"diluent_volume_ml,omitempty"`
	Concentration        *float64      `json:"concentration,omitempty"`
	ConcentrationDerived bool          `json:"concentration_derived"`
	Unsupported          bool          `json:"unsupported"`
	Warning              string        `json:"warning,omitempty"`
}

// Renderer builds results against one catalog
type Renderer struct {
	catalog    *catalog.Catalog
	calculator *dosage.Calculator
	newID      func() string
}

// NewRenderer creates a renderer for a loaded catalog
func NewRenderer(c *catalog.Catalog) *Renderer {
	return &Renderer{
		catalog:    c,
		calculator: dosage.NewCalculator(c),
		newID:      uuid.NewString,
	}
}

// Render computes and localizes every category for a validated patient
func (r *Renderer) Render(req Request) (*Result, error) {
	locale := req.Locale
	if !i18n.IsSupported(locale) {
		locale = i18n.DefaultLocale
	}

	if err := r.checkSelections(req.Selections); err != nil {
		return nil, err
	}

	results := r.calculator.ComputePatient(req.Patient)

	out := &Result{
		CalculationID: r.newID(),
		Locale:        locale,
		Direction:     i18n.Direction(locale),
		Title:         i18n.Lookup("title", locale),
		Patient: PatientSummary{
			WeightKg:   req.Patient.WeightKg,
			AgeYears:   req.Patient.AgeYears,
			AgeDisplay: AgeDisplay(req.Age, req.AgeUnit, locale),
		},
		Categories: make([]CategoryResult, 0, len(catalog.Categories)),
	}

	var unsupported, derived int
	for _, id := range catalog.Categories {
		cat, _ := r.catalog.Category(id)

		cr := CategoryResult{
			ID:                  id,
			Title:               i18n.Lookup(string(id), locale),
			Layout:              cat.Layout,
			InteractiveInfusion: cat.InteractiveInfusion,
			Medications:         make([]Record, 0, len(results[id])),
		}

		for _, entry := range results[id] {
			rec := Record{
				ID:         entry.ID,
				Name:       entry.Name,
				DosageText: entry.Dosage,
				RouteText:  entry.Route,
			}

			if cat.InteractiveInfusion && entry.Infusion != nil {
				inf, err := buildInfusion(entry, req.Selections, locale)
				if err != nil {
					return nil, err
				}
				if inf.Unsupported {
					unsupported++
				}
				if inf.ConcentrationDerived {
					derived++
				}
				rec.Infusion = inf
			}

			cr.Medications = append(cr.Medications, rec)
		}

		out.Categories = append(out.Categories, cr)
	}

	logging.Debug("Calculation rendered",
		"calculation_id", out.CalculationID,
		"weight_kg", req.Patient.WeightKg,
		"age_years", req.Patient.AgeYears,
		"locale", locale,
		"selections", len(req.Selections),
		"unsupported", unsupported,
		"derived_concentration", derived,
	)

	return out, nil
}

// checkSelections rejects selections for medications that have no rate selector
func (r *Renderer) checkSelections(selections map[string]float64) error {
	for id := range selections {
		m, catID, ok := r.catalog.Medication(id)
		if !ok || m.Infusion == nil {
			return fmt.Errorf("%w: %q is not an infusion", ErrRateNotOffered, id)
		}
		if cat, _ := r.catalog.Category(catID); !cat.InteractiveInfusion {
			return fmt.Errorf("%w: %q is not an infusion", ErrRateNotOffered, id)
		}
	}
	return nil
}

// Infusion computes a single infusion for the rate endpoint
func (r *Renderer) Infusion(medicationID string, weightKg, rate float64, locale string) (*InfusionResult, error) {
	if !i18n.IsSupported(locale) {
		locale = i18n.DefaultLocale
	}

	m, catID, ok := r.catalog.Medication(medicationID)
	cat, _ := r.catalog.Category(catID)
	if !ok || m.Infusion == nil || !cat.InteractiveInfusion {
		return nil, fmt.Errorf("%w: %q is not an infusion", ErrRateNotOffered, medicationID)
	}

	rng := m.Infusion.Range()
	entry := dosage.MedicationEntry{
		ID:            m.ID,
		Name:          m.Name,
		Concentration: m.Infusion.Concentration,
		Infusion:      &rng,
		WeightKg:      weightKg,
	}

	return buildInfusion(entry, map[string]float64{medicationID: rate}, locale)
}

func buildInfusion(entry dosage.MedicationEntry, selections map[string]float64, locale string) (*InfusionResult, error) {
	rng := *entry.Infusion
	options := infusion.Discretize(rng.Min, rng.Max)

	index := infusion.DefaultIndex(options)
	if rate, ok := selections[entry.ID]; ok {
		index = infusion.IndexOf(options, rate)
		if index < 0 {
			return nil, fmt.Errorf("%w: %v for %s (range %s)", ErrRateNotOffered, rate, entry.ID, rng)
		}
	}

	inf := &InfusionResult{
		Min:           rng.Min,
		Max:           rng.Max,
		Unit:          rng.Unit,
		Options:       options,
		SelectedRate:  options[index],
		SelectedIndex: index,
	}

	rate, err := infusion.ComputeInfusionRate(inf.SelectedRate, rng.Unit, entry.WeightKg, entry.Name, entry.Concentration)
	if errors.Is(err, infusion.ErrUnsupportedUnit) {
		inf.Unsupported = true
		inf.Warning = i18n.Lookup("unsupported_unit", locale)
		return inf, nil
	}
	if err != nil {
		return nil, err
	}

	inf.MLPerHour = ptr(round(rate.MLPerHour, 2))
	inf.AmountToAdd = ptr(round(rate.AmountToAdd, 2))
	inf.AmountUnit = rate.AmountUnit
	inf.DiluentML = ptr(rate.DiluentML)
	inf.Concentration = ptr(round(rate.Concentration, 4))
	inf.ConcentrationDerived = rate.ConcentrationDerived
	inf.PreparationText = i18n.Sprintf(locale, "preparation",
		dosage.FormatNumber(rate.AmountToAdd, 2),
		rate.AmountUnit,
		dosage.FormatNumber(rate.DiluentML, 0),
	)
	if rate.ConcentrationDerived {
		inf.Warning = i18n.Lookup("concentration_derived", locale)
	}

	return inf, nil
}

// AgeDisplay renders the age as entered, e.g. "18 months"
func AgeDisplay(age float64, unit, locale string) string {
	key := "years"
	if unit == "months" {
		key = "months"
	}
	return dosage.FormatNumber(age, 2) + " " + i18n.Lookup(key, locale)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func ptr[T any](v T) *T {
	return &v
}
