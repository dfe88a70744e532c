package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/giygas/pedscalc-api/interfaces"
)

func TestNewPatientValidator(t *testing.T) {
	validator := NewPatientValidator()

	if validator == nil {
		t.Fatal("NewPatientValidator returned nil")
	}

	if _, ok := validator.(*PatientValidatorImpl); !ok {
		t.Error("NewPatientValidator should return *PatientValidatorImpl")
	}
}

func TestValidatePatient(t *testing.T) {
	validator := NewPatientValidator()

	tests := []struct {
		name     string
		input    interfaces.PatientInput
		weightKg float64
		ageYears float64
		wantErr  error
	}{
		{"kg and years", interfaces.PatientInput{Weight: 10, WeightUnit: "kg", Age: 2, AgeUnit: "years"}, 10, 2, nil},
		{"default units", interfaces.PatientInput{Weight: 12.5, Age: 3}, 12.5, 3, nil},
		{"lbs", interfaces.PatientInput{Weight: 22, WeightUnit: "lbs", Age: 1, AgeUnit: "years"}, 22 * LbsToKg, 1, nil},
		{"months", interfaces.PatientInput{Weight: 8, WeightUnit: "kg", Age: 18, AgeUnit: "months"}, 8, 1.5, nil},
		{"unit case insensitive", interfaces.PatientInput{Weight: 8, WeightUnit: "KG", Age: 6, AgeUnit: "Months"}, 8, 0.5, nil},
		{"newborn", interfaces.PatientInput{Weight: 3.2, Age: 0}, 3.2, 0, nil},
		{"zero weight", interfaces.PatientInput{Weight: 0, Age: 2}, 0, 0, ErrInvalidWeight},
		{"negative weight", interfaces.PatientInput{Weight: -1, Age: 2}, 0, 0, ErrInvalidWeight},
		{"weight too large", interfaces.PatientInput{Weight: 301, Age: 2}, 0, 0, ErrInvalidWeight},
		{"NaN weight", interfaces.PatientInput{Weight: math.NaN(), Age: 2}, 0, 0, ErrInvalidWeight},
		{"negative age", interfaces.PatientInput{Weight: 10, Age: -0.5}, 0, 0, ErrInvalidAge},
		{"age too large in years", interfaces.PatientInput{Weight: 10, Age: 121}, 0, 0, ErrInvalidAge},
		{"age too large in months", interfaces.PatientInput{Weight: 10, Age: 1441, AgeUnit: "months"}, 0, 0, ErrInvalidAge},
		{"infinite age", interfaces.PatientInput{Weight: 10, Age: math.Inf(1)}, 0, 0, ErrInvalidAge},
		{"unknown weight unit", interfaces.PatientInput{Weight: 10, WeightUnit: "stone", Age: 2}, 0, 0, ErrInvalidUnit},
		{"unknown age unit", interfaces.PatientInput{Weight: 10, Age: 2, AgeUnit: "weeks"}, 0, 0, ErrInvalidUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := validator.ValidatePatient(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(p.WeightKg-tt.weightKg) > 1e-9 {
				t.Errorf("WeightKg = %v, want %v", p.WeightKg, tt.weightKg)
			}
			if math.Abs(p.AgeYears-tt.ageYears) > 1e-9 {
				t.Errorf("AgeYears = %v, want %v", p.AgeYears, tt.ageYears)
			}
		})
	}
}

func TestValidatePatient_WeightCheckedFirst(t *testing.T) {
	validator := NewPatientValidator()

	_, err := validator.ValidatePatient(interfaces.PatientInput{Weight: 0, Age: -1})
	if !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("expected weight error first, got %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	validator := NewPatientValidator()

	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"10", 10, false},
		{"12.5", 12.5, false},
		{"0", 0, false},
		{"", 0, true},
		{" 10", 0, true},
		{"10 ", 0, true},
		{"ten", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"1e400", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := validator.ParseNumber(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseNumber(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNumber(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateMedicationID(t *testing.T) {
	validator := NewPatientValidator()

	valid := []string{"adrenaline-infusion", "ett-cuffed", "dextrose-10", "a"}
	for _, id := range valid {
		if err := validator.ValidateMedicationID(id); err != nil {
			t.Errorf("ValidateMedicationID(%q) failed: %v", id, err)
		}
	}

	invalid := []string{"", "-leading", "Upper", "with space", "../etc", "<script>", string(make([]byte, 80))}
	for _, id := range invalid {
		if err := validator.ValidateMedicationID(id); err == nil {
			t.Errorf("ValidateMedicationID(%q) should fail", id)
		}
	}
}
