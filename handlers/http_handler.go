// Package handlers provides the HTTP handlers of the calculator API.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/i18n"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/metrics"
	"github.com/giygas/pedscalc-api/render"
	"github.com/giygas/pedscalc-api/validation"
	"github.com/go-chi/chi/v5"
)

// SelectionPrefix marks rate selections in calculate query strings, e.g. rate.dopamine-infusion=10
const SelectionPrefix = "rate."

// maxSelections bounds the selections accepted in one request
const maxSelections = 64

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.PatientValidator
	healthChecker interfaces.HealthChecker
	defaultLocale string
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.PatientValidator, healthChecker interfaces.HealthChecker, defaultLocale string) interfaces.HTTPHandler {
	if !i18n.IsSupported(defaultLocale) {
		defaultLocale = i18n.DefaultLocale
	}
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		defaultLocale: defaultLocale,
	}
}

// CalculateRequest is the body of POST /v1/calculate
type CalculateRequest struct {
	Weight     *float64           `json:"weight"`
	WeightUnit string             `json:"weight_unit"`
	Age        *float64           `json:"age"`
	AgeUnit    string             `json:"age_unit"`
	Locale     string             `json:"locale"`
	Selections map[string]float64 `json:"selections"`
}

// InfusionRateRequest is the body of POST /v1/infusion/rate
type InfusionRateRequest struct {
	MedicationID string   `json:"medication_id"`
	WeightKg     *float64 `json:"weight_kg"`
	Rate         *float64 `json:"rate"`
	Locale       string   `json:"locale"`
}

// InfusionRateResponse is one recomputed infusion
type InfusionRateResponse struct {
	MedicationID string                 `json:"medication_id"`
	WeightKg     float64                `json:"weight_kg"`
	Locale       string                 `json:"locale"`
	Infusion     *render.InfusionResult `json:"infusion"`
}

// CatalogResponse is the typed catalog with its identity
type CatalogResponse struct {
	Version    string                    `json:"version"`
	Source     string                    `json:"source"`
	Checksum   string                    `json:"checksum"`
	Warnings   []string                  `json:"warnings"`
	Categories []catalog.CategoryEntries `json:"categories"`
}

// CategorySummary is one localized category without its medications
type CategorySummary struct {
	ID                  catalog.Category `json:"id"`
	Title               string           `json:"title"`
	Layout              catalog.Layout   `json:"layout"`
	InteractiveInfusion bool             `json:"interactive_infusion"`
	Medications         int              `json:"medications"`
}

// CategoriesResponse lists the categories in display order
type CategoriesResponse struct {
	Locale     string            `json:"locale"`
	Direction  string            `json:"direction"`
	Categories []CategorySummary `json:"categories"`
}

// TranslationsResponse is a full string table
type TranslationsResponse struct {
	Locale    string            `json:"locale"`
	Direction string            `json:"direction"`
	Fallback  string            `json:"fallback"`
	Languages map[string]string `json:"languages"`
	Strings   map[string]string `json:"strings"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime,omitempty"`
	Data   map[string]any `json:"data"`
}

// resolveLocale picks the response locale from an explicit value,
// then Accept-Language, then the configured default
func (h *HTTPHandlerImpl) resolveLocale(r *http.Request, explicit string) string {
	return i18n.ResolveLocale(explicit, r.Header.Get("Accept-Language"), h.defaultLocale)
}

// respondInvalid answers 400 with the localized message for a validation error
func (h *HTTPHandlerImpl) respondInvalid(w http.ResponseWriter, err error, locale string) {
	key := "weight_error"
	switch {
	case errors.Is(err, validation.ErrInvalidUnit):
		key = "unit_error"
	case errors.Is(err, validation.ErrInvalidAge):
		key = "age_error"
	case errors.Is(err, render.ErrRateNotOffered):
		key = "rate_error"
	}

	metrics.RecordValidationFailure(strings.TrimSuffix(key, "_error"))
	logging.Debug("Rejected calculator input", "reason", key, "error", err)
	RespondWithError(w, http.StatusBadRequest, i18n.Lookup(key, locale))
}

// decodeBody decodes a JSON body strictly, writing the error response itself
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// Calculate handles GET /v1/calculate with the patient in the query string
func (h *HTTPHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locale := h.resolveLocale(r, q.Get("lang"))

	weight, err := h.validator.ParseNumber(q.Get("weight"))
	if err != nil {
		h.respondInvalid(w, fmt.Errorf("%w: %v", validation.ErrInvalidWeight, err), locale)
		return
	}

	age, err := h.validator.ParseNumber(q.Get("age"))
	if err != nil {
		h.respondInvalid(w, fmt.Errorf("%w: %v", validation.ErrInvalidAge, err), locale)
		return
	}

	selections, err := h.parseSelections(q)
	if err != nil {
		h.respondInvalid(w, err, locale)
		return
	}

	h.calculate(w, interfaces.PatientInput{
		Weight:     weight,
		WeightUnit: q.Get("weight_unit"),
		Age:        age,
		AgeUnit:    q.Get("age_unit"),
	}, locale, selections)
}

// CalculateFromBody handles POST /v1/calculate with a JSON body
func (h *HTTPHandlerImpl) CalculateFromBody(w http.ResponseWriter, r *http.Request) {
	var body CalculateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	locale := h.resolveLocale(r, body.Locale)

	if body.Weight == nil {
		h.respondInvalid(w, fmt.Errorf("%w: missing", validation.ErrInvalidWeight), locale)
		return
	}
	if body.Age == nil {
		h.respondInvalid(w, fmt.Errorf("%w: missing", validation.ErrInvalidAge), locale)
		return
	}

	if len(body.Selections) > maxSelections {
		h.respondInvalid(w, fmt.Errorf("%w: too many selections", render.ErrRateNotOffered), locale)
		return
	}
	for id := range body.Selections {
		if err := h.validator.ValidateMedicationID(id); err != nil {
			h.respondInvalid(w, fmt.Errorf("%w: %v", render.ErrRateNotOffered, err), locale)
			return
		}
	}

	h.calculate(w, interfaces.PatientInput{
		Weight:     *body.Weight,
		WeightUnit: body.WeightUnit,
		Age:        *body.Age,
		AgeUnit:    body.AgeUnit,
	}, locale, body.Selections)
}

// parseSelections collects rate.<id>=<value> query parameters
func (h *HTTPHandlerImpl) parseSelections(q url.Values) (map[string]float64, error) {
	var selections map[string]float64

	for key, values := range q {
		id, ok := strings.CutPrefix(key, SelectionPrefix)
		if !ok {
			continue
		}

		if err := h.validator.ValidateMedicationID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", render.ErrRateNotOffered, err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: %d values for %s", render.ErrRateNotOffered, len(values), id)
		}

		rate, err := h.validator.ParseNumber(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", render.ErrRateNotOffered, err)
		}

		if selections == nil {
			selections = make(map[string]float64)
		}
		if len(selections) == maxSelections {
			return nil, fmt.Errorf("%w: too many selections", render.ErrRateNotOffered)
		}
		selections[id] = rate
	}

	return selections, nil
}

// calculate validates the patient and renders every category
func (h *HTTPHandlerImpl) calculate(w http.ResponseWriter, in interfaces.PatientInput, locale string, selections map[string]float64) {
	patient, err := h.validator.ValidatePatient(in)
	if err != nil {
		h.respondInvalid(w, err, locale)
		return
	}

	calculator := h.dataStore.GetCalculator()
	if calculator == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	result, err := calculator.Render(render.Request{
		Patient:    patient,
		Age:        in.Age,
		AgeUnit:    strings.ToLower(strings.TrimSpace(in.AgeUnit)),
		Locale:     locale,
		Selections: selections,
	})
	if errors.Is(err, render.ErrRateNotOffered) {
		h.respondInvalid(w, err, locale)
		return
	}
	if err != nil {
		logging.Error("Calculation failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Calculation failed")
		return
	}

	unsupported, derived := countAnnotations(result)
	metrics.RecordCalculation("calculate", result.Locale, unsupported, derived)

	w.Header().Set("Content-Language", result.Locale)
	RespondWithJSON(w, http.StatusOK, result)
}

func countAnnotations(result *render.Result) (unsupported, derived int) {
	for _, cat := range result.Categories {
		for _, rec := range cat.Medications {
			if rec.Infusion == nil {
				continue
			}
			if rec.Infusion.Unsupported {
				unsupported++
			}
			if rec.Infusion.ConcentrationDerived {
				derived++
			}
		}
	}
	return unsupported, derived
}

// InfusionRate handles POST /v1/infusion/rate, recomputing one infusion at a selected rate
func (h *HTTPHandlerImpl) InfusionRate(w http.ResponseWriter, r *http.Request) {
	var body InfusionRateRequest
	if !decodeBody(w, r, &body) {
		return
	}

	locale := h.resolveLocale(r, body.Locale)

	if err := h.validator.ValidateMedicationID(body.MedicationID); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid medication id")
		return
	}

	cat := h.dataStore.GetCatalog()
	calculator := h.dataStore.GetCalculator()
	if cat == nil || calculator == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	if _, _, ok := cat.Medication(body.MedicationID); !ok {
		RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}

	if body.WeightKg == nil {
		h.respondInvalid(w, fmt.Errorf("%w: missing", validation.ErrInvalidWeight), locale)
		return
	}
	weightKg, err := h.validator.NormalizeWeight(*body.WeightKg, validation.UnitKg)
	if err != nil {
		h.respondInvalid(w, err, locale)
		return
	}

	if body.Rate == nil {
		h.respondInvalid(w, fmt.Errorf("%w: missing rate", render.ErrRateNotOffered), locale)
		return
	}

	result, err := calculator.Infusion(body.MedicationID, weightKg, *body.Rate, locale)
	if errors.Is(err, render.ErrRateNotOffered) {
		h.respondInvalid(w, err, locale)
		return
	}
	if err != nil {
		logging.Error("Infusion calculation failed", "medication_id", body.MedicationID, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Calculation failed")
		return
	}

	unsupported, derived := 0, 0
	if result.Unsupported {
		unsupported = 1
	}
	if result.ConcentrationDerived {
		derived = 1
	}
	metrics.RecordCalculation("infusion", locale, unsupported, derived)

	w.Header().Set("Content-Language", locale)
	RespondWithJSON(w, http.StatusOK, InfusionRateResponse{
		MedicationID: body.MedicationID,
		WeightKg:     weightKg,
		Locale:       locale,
		Infusion:     result,
	})
}

// ServeCatalog returns the typed catalog as loaded
func (h *HTTPHandlerImpl) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.dataStore.GetCatalog()
	if cat == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	warnings := []string{}
	if report := h.dataStore.GetReport(); report != nil && len(report.Warnings) > 0 {
		warnings = report.Warnings
	}

	RespondWithJSONAndETag(w, r, CatalogResponse{
		Version:    cat.Version,
		Source:     h.dataStore.GetSource(),
		Checksum:   h.dataStore.GetChecksum(),
		Warnings:   warnings,
		Categories: cat.Categories,
	}, h.dataStore.GetLoadedAt())
}

// ServeCategories returns the localized category list in display order
func (h *HTTPHandlerImpl) ServeCategories(w http.ResponseWriter, r *http.Request) {
	cat := h.dataStore.GetCatalog()
	if cat == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog not loaded")
		return
	}

	locale := h.resolveLocale(r, r.URL.Query().Get("lang"))

	response := CategoriesResponse{
		Locale:     locale,
		Direction:  i18n.Direction(locale),
		Categories: make([]CategorySummary, 0, len(catalog.Categories)),
	}
	for _, id := range catalog.Categories {
		entries, _ := cat.Category(id)
		response.Categories = append(response.Categories, CategorySummary{
			ID:                  id,
			Title:               i18n.Lookup(string(id), locale),
			Layout:              entries.Layout,
			InteractiveInfusion: entries.InteractiveInfusion,
			Medications:         len(entries.Medications),
		})
	}

	w.Header().Set("Vary", "Accept-Language")
	w.Header().Set("Content-Language", locale)
	RespondWithJSONAndETag(w, r, response, h.dataStore.GetLoadedAt())
}

// ServeTranslations returns the full string table of a locale with fallbacks applied
func (h *HTTPHandlerImpl) ServeTranslations(w http.ResponseWriter, r *http.Request) {
	locale := strings.ToLower(chi.URLParam(r, "locale"))
	if !i18n.IsSupported(locale) {
		RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Unsupported locale, supported: %s", strings.Join(i18n.Supported(), ", ")))
		return
	}

	w.Header().Set("Content-Language", locale)
	RespondWithJSONAndETag(w, r, TranslationsResponse{
		Locale:    locale,
		Direction: i18n.Direction(locale),
		Fallback:  i18n.DefaultLocale,
		Languages: i18n.LanguageNames(),
		Strings:   i18n.Table(locale),
	}, time.Time{})
}

// HealthCheck returns the catalog integrity status
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: status,
		Data:   details,
	}
	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		response.Uptime = formatUptimeHuman(time.Since(start))
	}

	RespondWithJSON(w, httpStatus, response)
}
