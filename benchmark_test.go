package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/data"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/logging/loggingtest"
	"github.com/giygas/pedscalc-api/server"
)

var (
	benchmarkRouter http.Handler
	benchmarkOnce   sync.Once
)

// Build the router once, the catalog is immutable after startup
func createBenchmarkRouter(b *testing.B) http.Handler {
	b.Helper()
	loggingtest.Reset(b, "", config.EnvTest, "error", 4, logging.DefaultMaxFileSize)

	benchmarkOnce.Do(func() {
		loaded, err := catalog.LoadDefault()
		if err != nil {
			b.Fatalf("Failed to load catalog for benchmarks: %v", err)
		}

		dc := data.NewDataContainer()
		dc.SetServerStartTime(time.Now())
		dc.SetCatalog(loaded)

		cfg := integrationConfig("")
		cfg.RateLimitRate = 1e9
		cfg.RateLimitCapacity = 1 << 40
		benchmarkRouter = server.NewServer(cfg, dc).Router()
	})

	return benchmarkRouter
}

func benchmarkRequest(b *testing.B, method, path string, body []byte) {
	router := createBenchmarkRouter(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req.RemoteAddr = "127.0.0.1:5000"
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("Unexpected status %d: %s", w.Code, w.Body.String())
		}
	}
}

// Benchmark a full calculation with default selections
func BenchmarkCalculate(b *testing.B) {
	benchmarkRequest(b, http.MethodGet, "/v1/calculate?weight=10&age=2", nil)
}

// Benchmark a calculation with an explicit rate and Arabic output
func BenchmarkCalculateSelectedArabic(b *testing.B) {
	benchmarkRequest(b, http.MethodGet, "/v1/calculate?weight=10&age=2&lang=ar&rate.dopamine-infusion=10", nil)
}

// Benchmark the POST body path
func BenchmarkCalculateFromBody(b *testing.B) {
	body := []byte(`{"weight":22,"weight_unit":"lbs","age":18,"age_unit":"months","selections":{"dopamine-infusion":10}}`)
	benchmarkRequest(b, http.MethodPost, "/v1/calculate", body)
}

// Benchmark a single infusion rate recompute
func BenchmarkInfusionRate(b *testing.B) {
	body := []byte(`{"medication_id":"dopamine-infusion","weight_kg":10,"rate":10}`)
	benchmarkRequest(b, http.MethodPost, "/v1/infusion/rate", body)
}

// Benchmark the catalog endpoint
func BenchmarkCatalog(b *testing.B) {
	benchmarkRequest(b, http.MethodGet, "/v1/catalog", nil)
}

// Benchmark health endpoint
func BenchmarkHealth(b *testing.B) {
	benchmarkRequest(b, http.MethodGet, "/health", nil)
}
