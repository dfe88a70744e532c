package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/dosage"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/render"
	"github.com/giygas/pedscalc-api/validation"
	"github.com/go-chi/chi/v5"
)

// MockDataStore serves a fixed catalog
type MockDataStore struct {
	loaded       *catalog.Loaded
	calculator   interfaces.Calculator
	loadedAt     time.Time
	lastVerified time.Time
	driftReason  string
	startTime    time.Time
}

func (m *MockDataStore) GetCatalog() *catalog.Catalog {
	if m.loaded == nil {
		return nil
	}
	return m.loaded.Catalog
}

func (m *MockDataStore) GetCalculator() interfaces.Calculator { return m.calculator }

func (m *MockDataStore) GetSource() string {
	if m.loaded == nil {
		return ""
	}
	return m.loaded.Source
}

func (m *MockDataStore) GetChecksum() string {
	if m.loaded == nil {
		return ""
	}
	return m.loaded.Checksum
}

func (m *MockDataStore) GetReport() *catalog.Report {
	if m.loaded == nil {
		return nil
	}
	return m.loaded.Report
}

func (m *MockDataStore) GetLoadedAt() time.Time { return m.loadedAt }
func (m *MockDataStore) GetServerStartTime() time.Time { return m.startTime }
func (m *MockDataStore) GetLastVerified() time.Time { return m.lastVerified }
func (m *MockDataStore) IsDrifted() bool { return m.driftReason != "" }
func (m *MockDataStore) GetDriftReason() string { return m.driftReason }
func (m *MockDataStore) IsChecking() bool { return false }
func (m *MockDataStore) SetCatalog(loaded *catalog.Loaded) { m.loaded = loaded }
func (m *MockDataStore) MarkVerified(at time.Time) { m.lastVerified = at }
func (m *MockDataStore) MarkDrift(reason string) { m.driftReason = reason }
func (m *MockDataStore) BeginCheck() bool { return true }
func (m *MockDataStore) EndCheck() {}

// MockDataStoreBuilder builds data stores for handler tests
type MockDataStoreBuilder struct {
	t     *testing.T
	store *MockDataStore
	empty bool
}

func NewMockDataStoreBuilder(t *testing.T) *MockDataStoreBuilder {
	return &MockDataStoreBuilder{
		t: t,
		store: &MockDataStore{
			loadedAt:     time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
			lastVerified: time.Now(),
			startTime:    time.Now().Add(-90 * time.Minute),
		},
	}
}

// Empty builds a store with no catalog loaded
func (b *MockDataStoreBuilder) Empty() *MockDataStoreBuilder {
	b.empty = true
	return b
}

// WithCalculator overrides the renderer built from the default catalog
func (b *MockDataStoreBuilder) WithCalculator(calculator interfaces.Calculator) *MockDataStoreBuilder {
	b.store.calculator = calculator
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	b.t.Helper()
	if b.empty {
		return b.store
	}

	loaded, err := catalog.LoadDefault()
	if err != nil {
		b.t.Fatalf("LoadDefault failed: %v", err)
	}
	b.store.loaded = loaded
	if b.store.calculator == nil {
		b.store.calculator = render.NewRenderer(loaded.Catalog)
	}
	return b.store
}

// MockCalculator returns a fixed error
type MockCalculator struct {
	err error
}

func (m *MockCalculator) Render(req render.Request) (*render.Result, error) {
	return nil, m.err
}

func (m *MockCalculator) Infusion(medicationID string, weightKg, rate float64, locale string) (*render.InfusionResult, error) {
	return nil, m.err
}

// MockPatientValidator wraps the real validator with an optional forced error
type MockPatientValidator struct {
	interfaces.PatientValidator
	patientErr error
}

func NewMockPatientValidator() *MockPatientValidator {
	return &MockPatientValidator{PatientValidator: validation.NewPatientValidator()}
}

func (m *MockPatientValidator) WithPatientError(err error) *MockPatientValidator {
	m.patientErr = err
	return m
}

func (m *MockPatientValidator) ValidatePatient(in interfaces.PatientInput) (dosage.Patient, error) {
	if m.patientErr != nil {
		return dosage.Patient{}, m.patientErr
	}
	return m.PatientValidator.ValidatePatient(in)
}

// MockHealthChecker returns a fixed status
type MockHealthChecker struct {
	status string
	code   int
}

func NewMockHealthChecker(status string, code int) *MockHealthChecker {
	return &MockHealthChecker{status: status, code: code}
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"medications": 1}, m.code
}

func (m *MockHealthChecker) CalculateNextCheck() time.Time {
	return time.Now().Add(15 * time.Minute)
}

// newTestHandler wires a handler over the default catalog
func newTestHandler(t *testing.T) *HTTPHandlerImpl {
	t.Helper()
	return NewHTTPHandler(
		NewMockDataStoreBuilder(t).Build(),
		NewMockPatientValidator(),
		NewMockHealthChecker("healthy", http.StatusOK),
		"en",
	).(*HTTPHandlerImpl)
}

// newTestRouter mounts the handler like the server does
func newTestRouter(h interfaces.HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/calculate", h.Calculate)
	r.Post("/v1/calculate", h.CalculateFromBody)
	r.Post("/v1/infusion/rate", h.InfusionRate)
	r.Get("/v1/catalog", h.ServeCatalog)
	r.Get("/v1/categories", h.ServeCategories)
	r.Get("/v1/translations/{locale}", h.ServeTranslations)
	r.Get("/health", h.HealthCheck)
	return r
}

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// Get executes a GET request through a router
func (h *HTTPTestHelper) Get(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// PostJSON executes a POST request with a JSON body through a router
func (h *HTTPTestHelper) PostJSON(router http.Handler, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		if raw, err = json.Marshal(body); err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ExecuteRequest executes a handler directly with chi URL params
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, path string, urlParams map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)

	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range urlParams {
			rctx.URLParams.Add(key, value)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
		h.t.Errorf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts the error shape and returns its message
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) string {
	h.t.Helper()

	var errorResp map[string]any
	h.AssertJSONResponse(resp, expectedStatus, &errorResp)

	if errorResp["error"] != http.StatusText(expectedStatus) {
		h.t.Errorf("error = %v, want %s", errorResp["error"], http.StatusText(expectedStatus))
	}
	if errorResp["code"] != float64(expectedStatus) {
		h.t.Errorf("code = %v, want %d", errorResp["code"], expectedStatus)
	}

	message, _ := errorResp["message"].(string)
	if message == "" {
		h.t.Error("Error response should have a message")
	}
	return message
}

func hasQuotedETag(etag string) bool {
	return len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"'
}

func findRecord(t *testing.T, res *render.Result, category catalog.Category, id string) render.Record {
	t.Helper()
	for _, cat := range res.Categories {
		if cat.ID != category {
			continue
		}
		for _, rec := range cat.Medications {
			if rec.ID == id {
				return rec
			}
		}
	}
	t.Fatalf("record %s/%s not found", category, id)
	return render.Record{}
}
