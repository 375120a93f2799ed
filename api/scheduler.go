/*
scheduler.go - Automated daily scoring scheduler

PURPOSE:
  Periodically scores every active, role-eligible employee for "today"
  and then runs the PIP trigger sweep, so standings stay current without
  manual recalculation calls.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Per-employee timeout so one slow metric source cannot stall the run
  - Per-employee failures are logged and counted, never fatal
  - The PIP sweep runs after scoring so triggers see fresh summaries

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewScoringScheduler(store, engine, manager, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Recalculate / SweepPIPs (the manual equivalents)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/scoring"
	"github.com/warp/performance-engine/store/sqlite"
)

// employeeTimeout bounds one employee's scoring pass.
const employeeTimeout = 30 * time.Second

// ScoringScheduler runs the daily fleet recalculation and PIP sweep.
type ScoringScheduler struct {
	Store         *sqlite.Store
	Engine        *perf.Engine
	Manager       *pip.Manager
	CheckInterval time.Duration
	Enabled       bool
	Log           *logrus.Entry

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScoringScheduler creates a new scheduler.
func NewScoringScheduler(store *sqlite.Store, engine *perf.Engine, manager *pip.Manager, log *logrus.Entry) *ScoringScheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ScoringScheduler{
		Store:         store,
		Engine:        engine,
		Manager:       manager,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Log:           log.WithField("component", "api.scheduler"),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *ScoringScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Log.WithField("interval", s.CheckInterval.String()).Info("scheduler started")
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *ScoringScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info("scheduler stopped")
}

func (s *ScoringScheduler) run() {
	defer s.wg.Done()

	// First pass immediately so a fresh deployment has standings.
	s.RunOnce(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunOnce scores the fleet for today and then runs the trigger sweep.
func (s *ScoringScheduler) RunOnce(ctx context.Context) RecalcFleetResultDTO {
	today := time.Now().UTC()
	result := RecalcFleetResultDTO{Date: scoring.DateKey(today)}

	employees, err := s.Store.ActiveEligible(ctx)
	if err != nil {
		s.Log.WithError(err).Error("failed to list eligible employees")
		result.Failures++
		return result
	}

	for _, emp := range employees {
		empCtx, cancel := context.WithTimeout(ctx, employeeTimeout)
		res, err := s.Engine.CalculateEmployeePerformance(empCtx, emp.ID, today)
		cancel()

		switch {
		case err != nil:
			result.Failures++
			s.Log.WithError(err).WithField("employee", emp.ID).Error("daily scoring failed")
		case res.Skipped:
			result.Skipped++
		default:
			result.Calculated++
		}
	}

	if _, err := s.Manager.CheckAndTriggerPIPs(ctx); err != nil {
		s.Log.WithError(err).Error("pip sweep failed")
	}

	s.Log.WithFields(logrus.Fields{
		"date":       result.Date,
		"calculated": result.Calculated,
		"skipped":    result.Skipped,
		"failures":   result.Failures,
	}).Info("fleet scoring pass complete")
	return result
}
