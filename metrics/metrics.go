// Package metrics provides Prometheus metrics for the HTTP server and the calculator.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Calculator metrics are prefixed with pedscalc_. All metrics are registered
// with the Prometheus default registry during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	CalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedscalc_calculations_total",
			Help: "Completed calculation passes",
		},
		[]string{"kind", "locale"},
	)

	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedscalc_validation_failures_total",
			Help: "Requests rejected before computing",
		},
		[]string{"reason"},
	)

	UnsupportedInfusionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pedscalc_infusion_unsupported_total",
			Help: "Infusion records rendered without a rate because the unit has no conversion",
		},
	)

	DerivedConcentrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pedscalc_concentration_derived_total",
			Help: "Infusion records without a configured concentration, derived as hourly dose over diluent volume",
		},
	)

	CatalogDrift = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pedscalc_catalog_drift",
			Help: "1 when the catalog source no longer matches the loaded catalog",
		},
	)

	CatalogMedications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pedscalc_catalog_medications",
			Help: "Medications in the loaded catalog",
		},
	)

	CatalogInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pedscalc_catalog_info",
			Help: "Loaded catalog, always 1",
		},
		[]string{"version", "source", "checksum"},
	)

	CatalogChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pedscalc_catalog_checks_total",
			Help: "Catalog integrity checks by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(CalculationsTotal)
	prometheus.MustRegister(ValidationFailuresTotal)
	prometheus.MustRegister(UnsupportedInfusionsTotal)
	prometheus.MustRegister(DerivedConcentrationsTotal)
	prometheus.MustRegister(CatalogDrift)
	prometheus.MustRegister(CatalogMedications)
	prometheus.MustRegister(CatalogInfo)
	prometheus.MustRegister(CatalogChecksTotal)
}

// RecordCalculation counts a calculation pass and its infusion annotations
func RecordCalculation(kind, locale string, unsupported, derived int) {
	CalculationsTotal.WithLabelValues(kind, locale).Inc()
	if unsupported > 0 {
		UnsupportedInfusionsTotal.Add(float64(unsupported))
	}
	if derived > 0 {
		DerivedConcentrationsTotal.Add(float64(derived))
	}
}

// RecordValidationFailure counts a rejected request
func RecordValidationFailure(reason string) {
	ValidationFailuresTotal.WithLabelValues(reason).Inc()
}

// SetCatalog publishes the loaded catalog identity
func SetCatalog(version, source, checksum string, medications int) {
	CatalogInfo.Reset()
	CatalogInfo.WithLabelValues(version, source, checksum).Set(1)
	CatalogMedications.Set(float64(medications))
}

// SetDrift sets the drift gauge
func SetDrift(drifted bool) {
	if drifted {
		CatalogDrift.Set(1)
		return
	}
	CatalogDrift.Set(0)
}

// RecordCatalogCheck counts an integrity check outcome
func RecordCatalogCheck(result string) {
	CatalogChecksTotal.WithLabelValues(result).Inc()
}
