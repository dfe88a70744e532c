// Package validation checks patient input and normalizes it to kilograms and years
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/giygas/pedscalc-api/dosage"
	"github.com/giygas/pedscalc-api/interfaces"
)

// Input units
const (
	UnitKg     = "kg"
	UnitLbs    = "lbs"
	UnitYears  = "years"
	UnitMonths = "months"
)

// Conversion factors and accepted input ranges
const (
	LbsToKg = 0.453592

	MinWeight    = 0.1
	MaxWeight    = 300
	MaxAgeYears  = 120
	MaxAgeMonths = 1440
)

var (
	ErrInvalidWeight = errors.New("invalid weight")
	ErrInvalidAge    = errors.New("invalid age")
	ErrInvalidUnit   = errors.New("invalid unit")
)

// Medication ids are lowercase slugs; they also appear as rate.<id> query keys
var medicationIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// PatientValidatorImpl implements the interfaces.PatientValidator interface
type PatientValidatorImpl struct{}

// NewPatientValidator creates a new patient validator
func NewPatientValidator() interfaces.PatientValidator {
	return &PatientValidatorImpl{}
}

// ValidatePatient checks the raw form values and converts them to kg and years.
// Nothing is computed for input that fails here.
func (v *PatientValidatorImpl) ValidatePatient(in interfaces.PatientInput) (dosage.Patient, error) {
	weightKg, err := v.NormalizeWeight(in.Weight, in.WeightUnit)
	if err != nil {
		return dosage.Patient{}, err
	}

	ageYears, err := v.NormalizeAge(in.Age, in.AgeUnit)
	if err != nil {
		return dosage.Patient{}, err
	}

	return dosage.Patient{WeightKg: weightKg, AgeYears: ageYears}, nil
}

// NormalizeWeight validates a weight in kg or lbs and returns kilograms.
// An empty unit means kg.
func (v *PatientValidatorImpl) NormalizeWeight(weight float64, unit string) (float64, error) {
	if !isFinite(weight) || weight < MinWeight || weight > MaxWeight {
		return 0, fmt.Errorf("%w: %v must be between %v and %v", ErrInvalidWeight, weight, MinWeight, MaxWeight)
	}

	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", UnitKg:
		return weight, nil
	case UnitLbs:
		kg := weight * LbsToKg
		if kg <= 0 {
			return 0, fmt.Errorf("%w: %v lbs", ErrInvalidWeight, weight)
		}
		return kg, nil
	default:
		return 0, fmt.Errorf("%w: weight unit %q", ErrInvalidUnit, unit)
	}
}

// NormalizeAge validates an age in years or months and returns years.
// An empty unit means years.
func (v *PatientValidatorImpl) NormalizeAge(age float64, unit string) (float64, error) {
	if !isFinite(age) || age < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAge, age)
	}

	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", UnitYears:
		if age > MaxAgeYears {
			return 0, fmt.Errorf("%w: %v years exceeds %d", ErrInvalidAge, age, MaxAgeYears)
		}
		return age, nil
	case UnitMonths:
		if age > MaxAgeMonths {
			return 0, fmt.Errorf("%w: %v months exceeds %d", ErrInvalidAge, age, MaxAgeMonths)
		}
		return age / 12, nil
	default:
		return 0, fmt.Errorf("%w: age unit %q", ErrInvalidUnit, unit)
	}
}

// ParseNumber parses a numeric form value
// Surrounding whitespace is rejected rather than trimmed, like other query values
func (v *PatientValidatorImpl) ParseNumber(input string) (float64, error) {
	if input == "" {
		return 0, fmt.Errorf("input cannot be empty")
	}
	if strings.TrimSpace(input) != input {
		return 0, fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
	}

	f, err := strconv.ParseFloat(input, 64)
	if err != nil || !isFinite(f) {
		return 0, fmt.Errorf("input is not a valid number: %q", input)
	}
	return f, nil
}

// ValidateMedicationID checks a medication id from a request
func (v *PatientValidatorImpl) ValidateMedicationID(id string) error {
	if !medicationIDRegex.MatchString(id) {
		return fmt.Errorf("invalid medication id: %q", id)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
