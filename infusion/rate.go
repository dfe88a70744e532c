package infusion

import (
	"errors"
	"fmt"
	"strings"
)

// Diluent volumes in mL
const (
	DefaultDiluentML    = 50
	AdrenalineDiluentML = 20
)

// ErrUnsupportedUnit is returned for units that cannot be normalized to mg/h
var ErrUnsupportedUnit = errors.New("unsupported infusion unit")

// Rate is the volumetric result for one selected per-kg rate
type Rate struct {
	// MgPerHour is the hourly drug amount (units/h for units/kg/h)
	MgPerHour float64 `json:"mg_per_hour"`
	// DiluentML is the prepared syringe volume
	DiluentML float64 `json:"diluent_volume_ml"`
	// Concentration is in mg (or units) per mL of prepared infusion
	Concentration float64 `json:"concentration"`
	// ConcentrationDerived is set when no concentration was configured and the
	// fallback (MgPerHour / DiluentML) was used; the rate then always equals DiluentML.
	ConcentrationDerived bool    `json:"concentration_derived"`
	MLPerHour            float64 `json:"infusion_rate_ml_per_hr"`
	// AmountToAdd is the drug amount to add to the diluent
	AmountToAdd float64 `json:"amount_to_add"`
	AmountUnit  string  `json:"amount_unit"`
}

// DiluentVolume picks the syringe volume for a drug; adrenaline is prepared in 20 mL
func DiluentVolume(drugName string) float64 {
	if strings.Contains(strings.ToLower(drugName), "adrenaline") {
		return AdrenalineDiluentML
	}
	return DefaultDiluentML
}

// HourlyAmount normalizes a total per-patient dose to mg/h (units/h for units/kg/h)
func HourlyAmount(totalDose float64, unit Unit) (float64, error) {
	switch unit {
	case McgPerKgPerMinute:
		return totalDose * 60 / 1000, nil
	case McgPerKgPerHour:
		return totalDose / 1000, nil
	case MgPerKgPerHour, UnitsPerKgPerHour:
		return totalDose, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}

// ComputeInfusionRate converts a selected per-kg rate into mL/h.
// A nil concentration falls back to MgPerHour / diluent volume.
func ComputeInfusionRate(ratePerKg float64, unit Unit, weightKg float64, drugName string, concentration *float64) (Rate, error) {
	mgPerHour, err := HourlyAmount(ratePerKg*weightKg, unit)
	if err != nil {
		return Rate{}, err
	}

	volume := DiluentVolume(drugName)

	r := Rate{
		MgPerHour:  mgPerHour,
		DiluentML:  volume,
		AmountUnit: unit.AmountUnit(),
	}

	if concentration != nil && *concentration > 0 {
		r.Concentration = *concentration
	} else {
		r.Concentration = mgPerHour / volume
		r.ConcentrationDerived = true
	}

	// A zero dose needs no volume, and a zero derived concentration would divide by zero
	if r.Concentration > 0 {
		r.MLPerHour = mgPerHour / r.Concentration
	}
	r.AmountToAdd = r.Concentration * volume

	return r, nil
}
