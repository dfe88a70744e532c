// Package scheduler provides periodic catalog integrity verification for the
// calculator API. It re-validates the catalog being served and, when it was
// loaded from a file, compares the file on disk with what is running.
// The running catalog is never replaced; drift is reported until restart.
package scheduler

import (
	"fmt"
	"os"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/interfaces"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Check outcomes, also used as metric labels
const (
	ResultVerified = "verified"
	ResultDrift    = "drift"
	ResultError    = "error"
	ResultSkipped  = "skipped"
)

// Scheduler runs the catalog integrity check on a fixed interval
type Scheduler struct {
	dataStore interfaces.DataStore
	interval  time.Duration
	scheduler *gocron.Scheduler
	readFile  func(string) ([]byte, error)
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		dataStore: dataStore,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
		readFile:  os.ReadFile,
		now:       time.Now,
	}
}

// Start schedules the integrity check. The catalog was verified when it was
// loaded, so the first check runs one interval from now.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		s.verifyCatalog()
	})
	if err != nil {
		logging.Error("Failed to schedule catalog checks", "error", err)
		return fmt.Errorf("failed to schedule catalog checks: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Catalog integrity checks scheduled", "interval", s.interval.String())

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// verifyCatalog runs one integrity check and returns its outcome
func (s *Scheduler) verifyCatalog() string {
	// Prevent concurrent checks
	if !s.dataStore.BeginCheck() {
		logging.Info("Catalog check already in progress, skipping...")
		return ResultSkipped
	}
	defer s.dataStore.EndCheck()

	result := s.check()
	metrics.RecordCatalogCheck(result)
	metrics.SetDrift(s.dataStore.IsDrifted())
	return result
}

func (s *Scheduler) check() string {
	cat := s.dataStore.GetCatalog()
	if cat == nil {
		logging.Error("Catalog check failed: no catalog loaded")
		return ResultError
	}

	start := s.now()

	report := catalog.Validate(cat)
	if err := report.Err(); err != nil {
		s.drift(fmt.Sprintf("running catalog failed validation: %v", err))
		return ResultDrift
	}

	source := s.dataStore.GetSource()
	if source != "" && source != catalog.DefaultSource {
		raw, err := s.readFile(source)
		if err != nil {
			s.drift(fmt.Sprintf("catalog file unreadable: %v", err))
			return ResultError
		}

		if onDisk := catalog.Checksum(raw); onDisk != s.dataStore.GetChecksum() {
			logging.Warn("Catalog file changed on disk",
				"source", source,
				"running_checksum", s.dataStore.GetChecksum(),
				"disk_checksum", onDisk,
			)
			s.drift("catalog file changed on disk, restart to apply it")
			return ResultDrift
		}
	}

	s.dataStore.MarkVerified(s.now())
	logging.Debug("Catalog verified",
		"source", source,
		"medications", cat.Count(),
		"warnings", len(report.Warnings),
		"duration", s.now().Sub(start).String(),
	)
	return ResultVerified
}

func (s *Scheduler) drift(reason string) {
	if !s.dataStore.IsDrifted() {
		logging.Warn("Catalog drift detected, serving the catalog loaded at startup", "reason", reason)
	}
	s.dataStore.MarkDrift(reason)
}
