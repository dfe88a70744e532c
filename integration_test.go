package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/data"
	"github.com/giygas/pedscalc-api/handlers"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/logging/loggingtest"
	"github.com/giygas/pedscalc-api/render"
	"github.com/giygas/pedscalc-api/scheduler"
	"github.com/giygas/pedscalc-api/server"
)

func integrationConfig(catalogPath string) *config.Config {
	return &config.Config{
		Port:                "0",
		Address:             "127.0.0.1",
		Env:                 config.EnvTest,
		LogLevel:            "error",
		MaxRequestBody:      65536,
		MaxHeaderSize:       1048576,
		CatalogPath:         catalogPath,
		CatalogCheckMinutes: 15,
		DefaultLocale:       "en",
		CORSAllowedOrigins:  []string{"*"},
		RateLimitRate:       1000,
		RateLimitCapacity:   100000,
	}
}

// setupIntegration wires the same components runServer does, against a
// catalog file copied into a temp directory
func setupIntegration(t *testing.T) (*data.DataContainer, http.Handler, string) {
	t.Helper()
	loggingtest.Reset(t, "", config.EnvTest, "error", 4, logging.DefaultMaxFileSize)

	raw, err := os.ReadFile(filepath.Join("catalog", "default_catalog.yaml"))
	if err != nil {
		t.Fatalf("read default catalog: %v", err)
	}
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	loaded, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	dc := data.NewDataContainer()
	dc.SetServerStartTime(time.Now())
	dc.SetCatalog(loaded)

	srv := server.NewServer(integrationConfig(path), dc)
	return dc, srv.Router(), path
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func healthStatus(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := get(t, h, "/health")
	var body handlers.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body: %v", err)
	}
	return body.Status
}

// waitForHealth polls /health until it reports the wanted status
func waitForHealth(t *testing.T, h http.Handler, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if healthStatus(t, h) == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("health never reached %q, last %q", want, healthStatus(t, h))
}

// TestIntegrationCalculatePipeline runs a calculation through the full middleware stack
func TestIntegrationCalculatePipeline(t *testing.T) {
	_, h, path := setupIntegration(t)

	rr := get(t, h, "/v1/calculate?weight=22.0462&weight_unit=lbs&age=24&age_unit=months&rate.dopamine-infusion=10")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result render.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Patient.WeightKg != 10 {
		t.Errorf("Expected 10 kg, got %v", result.Patient.WeightKg)
	}

	var dopamine *render.InfusionResult
	for _, cat := range result.Categories {
		for _, rec := range cat.Medications {
			if rec.ID == "dopamine-infusion" {
				dopamine = rec.Infusion
			}
		}
	}
	if dopamine == nil || dopamine.MLPerHour == nil {
		t.Fatal("Dopamine infusion missing from result")
	}
	if *dopamine.MLPerHour != 3.75 {
		t.Errorf("Expected 3.75 mL/h, got %v", *dopamine.MLPerHour)
	}

	rr = get(t, h, "/v1/catalog")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 for catalog, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), path) {
		t.Errorf("Catalog response should name its source %s", path)
	}
}

// TestIntegrationCatalogDrift edits the catalog file under a running
// scheduler and checks that health degrades without swapping the catalog
func TestIntegrationCatalogDrift(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dc, h, path := setupIntegration(t)
	checksum := dc.GetChecksum()

	checks := scheduler.NewScheduler(dc, 50*time.Millisecond)
	if err := checks.Start(); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	defer checks.Stop()

	waitForHealth(t, h, "healthy")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	if _, err := f.WriteString("\n# edited\n"); err != nil {
		t.Fatalf("edit catalog: %v", err)
	}
	f.Close()

	waitForHealth(t, h, "degraded")

	if dc.GetChecksum() != checksum {
		t.Error("Running catalog must not change on drift")
	}

	// Calculations keep working on the startup catalog
	if rr := get(t, h, "/v1/calculate?weight=10&age=2"); rr.Code != http.StatusOK {
		t.Errorf("Expected 200 while drifted, got %d", rr.Code)
	}
}

// TestIntegrationConcurrentRequests checks the shared calculator under parallel load
func TestIntegrationConcurrentRequests(t *testing.T) {
	_, h, _ := setupIntegration(t)

	const workers = 20
	errs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		go func() {
			rr := get(t, h, "/v1/calculate?weight=10&age=2&lang=ar")
			if rr.Code != http.StatusOK {
				errs <- rr.Body.String()
				return
			}
			errs <- ""
		}()
	}

	for i := 0; i < workers; i++ {
		if msg := <-errs; msg != "" {
			t.Errorf("Concurrent request failed: %s", msg)
		}
	}
}
