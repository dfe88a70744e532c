// Package interfaces defines core abstractions for the calculator API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/dosage"
	"github.com/giygas/pedscalc-api/render"
)

// PatientInput is the raw patient form as submitted
type PatientInput struct {
	Weight     float64 `json:"weight"`
	WeightUnit string  `json:"weight_unit"`
	Age        float64 `json:"age"`
	AgeUnit    string  `json:"age_unit"`
}

// DataStore defines the contract for catalog storage.
// The catalog is loaded once and never swapped; the store also tracks the
// integrity state maintained by the scheduler.
type DataStore interface {
	// Catalog access
	GetCatalog() *catalog.Catalog
	GetCalculator() Calculator
	GetSource() string
	GetChecksum() string
	GetReport() *catalog.Report
	GetLoadedAt() time.Time
	GetServerStartTime() time.Time

	// Integrity state
	GetLastVerified() time.Time
	IsDrifted() bool
	GetDriftReason() string
	IsChecking() bool

	// Update methods
	SetCatalog(loaded *catalog.Loaded)
	MarkVerified(at time.Time)
	MarkDrift(reason string)
	BeginCheck() bool
	EndCheck()
}

// Calculator defines the contract for a calculation pass over the loaded catalog
type Calculator interface {
	// Render computes every category for a validated patient
	Render(req render.Request) (*render.Result, error)

	// Infusion computes one infusion at a selected rate
	Infusion(medicationID string, weightKg, rate float64, locale string) (*render.InfusionResult, error)
}

// Scheduler defines the contract for background jobs.
// It runs the periodic catalog integrity check.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// V1 handlers
	Calculate(w http.ResponseWriter, r *http.Request)
	CalculateFromBody(w http.ResponseWriter, r *http.Request)
	InfusionRate(w http.ResponseWriter, r *http.Request)
	ServeCatalog(w http.ResponseWriter, r *http.Request)
	ServeCategories(w http.ResponseWriter, r *http.Request)
	ServeTranslations(w http.ResponseWriter, r *http.Request)

	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns the status, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextCheck returns when the next integrity check is due
	CalculateNextCheck() time.Time
}

// PatientValidator defines the contract for patient input validation.
// Nothing is computed for input it rejects.
type PatientValidator interface {
	// ValidatePatient checks a form and converts it to kg and years
	ValidatePatient(in PatientInput) (dosage.Patient, error)

	NormalizeWeight(weight float64, unit string) (float64, error)
	NormalizeAge(age float64, unit string) (float64, error)

	// ParseNumber parses a numeric query value
	ParseNumber(input string) (float64, error)

	// ValidateMedicationID checks a medication id from a request
	ValidateMedicationID(id string) error
}
