// Package health derives the service health from the catalog integrity state.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/pedscalc-api/interfaces"
)

// staleFactor is how many missed check intervals make verification overdue
const staleFactor = 3

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore     interfaces.DataStore
	checkInterval time.Duration
	now           func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore, checkInterval time.Duration) interfaces.HealthChecker {
	if checkInterval <= 0 {
		checkInterval = 15 * time.Minute
	}
	return &HealthCheckerImpl{
		dataStore:     dataStore,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// HealthCheck returns the status for the /health endpoint.
// Without a catalog nothing can be computed and the service is unhealthy.
// A drifted or unverified catalog still serves results and is reported
// as degraded with a 200.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	cat := h.dataStore.GetCatalog()
	lastVerified := h.dataStore.GetLastVerified()
	driftReason := h.dataStore.GetDriftReason()

	switch {
	case cat == nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case driftReason != "":
		status = "degraded"
		httpStatus = http.StatusOK

	case lastVerified.IsZero() || now.Sub(lastVerified) > staleFactor*h.checkInterval:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"is_checking": h.dataStore.IsChecking(),
	}

	if startTime := h.dataStore.GetServerStartTime(); !startTime.IsZero() {
		data["uptime_seconds"] = math.Round(now.Sub(startTime).Seconds())
	}

	if cat == nil {
		return status, data, httpStatus
	}

	warnings := 0
	if report := h.dataStore.GetReport(); report != nil {
		warnings = len(report.Warnings)
	}

	data["catalog_version"] = cat.Version
	data["catalog_source"] = h.dataStore.GetSource()
	data["catalog_checksum"] = h.dataStore.GetChecksum()
	data["medications"] = cat.Count()
	data["warnings"] = warnings
	data["loaded_at"] = h.dataStore.GetLoadedAt().Format(time.RFC3339)
	data["next_check"] = h.CalculateNextCheck().Format(time.RFC3339)

	if !lastVerified.IsZero() {
		data["last_verified"] = lastVerified.Format(time.RFC3339)
		data["verified_age_minutes"] = math.Round(now.Sub(lastVerified).Minutes()*10) / 10
	}

	if driftReason != "" {
		data["drift_reason"] = driftReason
	}

	return status, data, httpStatus
}

// CalculateNextCheck returns when the next integrity check is due
func (h *HealthCheckerImpl) CalculateNextCheck() time.Time {
	now := h.now()
	last := h.dataStore.GetLastVerified()
	if last.IsZero() {
		return now.Add(h.checkInterval)
	}

	if now.Before(last) {
		return last.Add(h.checkInterval)
	}
	missed := now.Sub(last) / h.checkInterval
	return last.Add((missed + 1) * h.checkInterval)
}
