// Package data provides thread-safe storage for the loaded catalog.
// The catalog snapshot is stored once at startup and only read afterwards;
// the integrity fields are updated by the scheduler with atomic operations.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/render"
)

// Compile-time checks
var (
	_ interfaces.DataStore  = (*DataContainer)(nil)
	_ interfaces.Calculator = (*render.Renderer)(nil)
)

// snapshot is everything derived from one catalog load
type snapshot struct {
	loaded     *catalog.Loaded
	calculator interfaces.Calculator
	loadedAt   time.Time
}

// DataContainer holds the catalog snapshot with atomic pointers
type DataContainer struct {
	snapshot        atomic.Pointer[snapshot]
	lastVerified    atomic.Value // time.Time
	driftReason     atomic.Value // string
	checking        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with no catalog
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.lastVerified.Store(time.Time{})
	dc.driftReason.Store("")
	dc.serverStartTime.Store(time.Time{}) // Initialize with zero value
	return dc
}

// Thread-safe getters with type check

// GetCatalog returns the loaded catalog, nil before SetCatalog
func (dc *DataContainer) GetCatalog() *catalog.Catalog {
	if s := dc.snapshot.Load(); s != nil {
		return s.loaded.Catalog
	}

	logging.Warn("Catalog is not loaded")
	return nil
}

// GetCalculator returns the calculator bound to the loaded catalog
func (dc *DataContainer) GetCalculator() interfaces.Calculator {
	if s := dc.snapshot.Load(); s != nil {
		return s.calculator
	}

	logging.Warn("Calculator requested before the catalog was loaded")
	return nil
}

// GetSource returns where the catalog was loaded from
func (dc *DataContainer) GetSource() string {
	if s := dc.snapshot.Load(); s != nil {
		return s.loaded.Source
	}
	return ""
}

// GetChecksum returns the SHA-256 of the catalog as loaded
func (dc *DataContainer) GetChecksum() string {
	if s := dc.snapshot.Load(); s != nil {
		return s.loaded.Checksum
	}
	return ""
}

// GetReport returns the validation report of the loaded catalog
func (dc *DataContainer) GetReport() *catalog.Report {
	if s := dc.snapshot.Load(); s != nil {
		return s.loaded.Report
	}
	return nil
}

// GetLoadedAt returns when the catalog was stored
func (dc *DataContainer) GetLoadedAt() time.Time {
	if s := dc.snapshot.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// GetLastVerified returns the time of the last successful integrity check
func (dc *DataContainer) GetLastVerified() time.Time {
	if v := dc.lastVerified.Load(); v != nil {
		if lastVerified, ok := v.(time.Time); ok {
			return lastVerified
		}
	}

	logging.Warn("Could not get the last verified value")
	return time.Time{}
}

// IsDrifted reports whether the catalog source changed after loading
func (dc *DataContainer) IsDrifted() bool {
	return dc.GetDriftReason() != ""
}

// GetDriftReason returns why the catalog is considered drifted, empty when it is not
func (dc *DataContainer) GetDriftReason() string {
	if v := dc.driftReason.Load(); v != nil {
		if reason, ok := v.(string); ok {
			return reason
		}
	}
	return ""
}

// IsChecking returns true while an integrity check is running
func (dc *DataContainer) IsChecking() bool {
	return dc.checking.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// SetCatalog stores a validated catalog and the calculator built on it.
// It is called once at startup; later calls are ignored so the running
// catalog is never swapped.
func (dc *DataContainer) SetCatalog(loaded *catalog.Loaded) {
	if loaded == nil || loaded.Catalog == nil {
		logging.Error("Refusing to store an empty catalog")
		return
	}

	s := &snapshot{
		loaded:     loaded,
		calculator: render.NewRenderer(loaded.Catalog),
		loadedAt:   time.Now(),
	}
	if !dc.snapshot.CompareAndSwap(nil, s) {
		logging.Warn("Catalog already loaded, restart to apply a new catalog",
			"source", loaded.Source,
		)
		return
	}

	dc.lastVerified.Store(s.loadedAt)
}

// MarkVerified records a passing integrity check and clears any drift
func (dc *DataContainer) MarkVerified(at time.Time) {
	dc.lastVerified.Store(at)
	dc.driftReason.Store("")
}

// MarkDrift records that the catalog source no longer matches what is served
func (dc *DataContainer) MarkDrift(reason string) {
	dc.driftReason.Store(reason)
}

// BeginCheck marks the start of an integrity check
// Returns true if the check can proceed, false if another check is in progress
func (dc *DataContainer) BeginCheck() bool {
	return dc.checking.CompareAndSwap(false, true)
}

// EndCheck marks the end of an integrity check
func (dc *DataContainer) EndCheck() {
	dc.checking.Store(false)
}
