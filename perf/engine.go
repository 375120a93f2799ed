package perf

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/performance-engine/events"
	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// ENGINE - Daily Aggregator + Summary Rebuilder entry points
// =============================================================================

// Engine wires the scoring pipeline for one employee/date:
// target resolution -> metric fetch -> score -> weighted aggregate ->
// record upsert -> summary rebuild. Steps are strictly sequential;
// different employees are independent and may run in parallel.
type Engine struct {
	catalog    kpi.Catalog
	resolver   *TargetResolver
	fetcher    *metrics.Registry
	attendance metrics.AttendanceProvider
	directory  Directory

	targets   TargetStore
	records   RecordStore
	summaries SummaryStore

	events events.Sink
	clock  func() time.Time
	log    *logrus.Entry
}

// EngineConfig collects the engine's dependencies. Catalog, Resolver,
// Fetcher, Directory and the three stores are required; the rest default
// (no attendance provider means nobody is ever reported absent).
type EngineConfig struct {
	Catalog    kpi.Catalog
	Resolver   *TargetResolver
	Fetcher    *metrics.Registry
	Attendance metrics.AttendanceProvider
	Directory  Directory
	Targets    TargetStore
	Records    RecordStore
	Summaries  SummaryStore
	Events     events.Sink
	Clock      func() time.Time
	Log        *logrus.Entry
}

func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		catalog:    cfg.Catalog,
		resolver:   cfg.Resolver,
		fetcher:    cfg.Fetcher,
		attendance: cfg.Attendance,
		directory:  cfg.Directory,
		targets:    cfg.Targets,
		records:    cfg.Records,
		summaries:  cfg.Summaries,
		events:     cfg.Events,
		clock:      cfg.Clock,
		log:        cfg.Log,
	}
	if e.events == nil {
		e.events = events.NopSink{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.log = e.log.WithField("component", "perf.engine")
	return e
}

// =============================================================================
// DAILY AGGREGATOR
// =============================================================================

// CalculateEmployeePerformance scores one employee for one date and
// upserts the daily record. Reruns for the same (employee, date) converge
// to the same record. Inactive or absent employees are skipped silently -
// daily scoring does not penalize an absentee.
func (e *Engine) CalculateEmployeePerformance(ctx context.Context, id scoring.EmployeeID, date time.Time) (*DailyResult, error) {
	day := scoring.Day(date)
	log := e.log.WithFields(logrus.Fields{"employee": id, "date": scoring.DateKey(day)})

	emp, err := e.directory.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup employee %s: %w", id, err)
	}
	if emp == nil {
		return nil, scoring.ErrEmployeeNotFound
	}
	if !emp.Active {
		return &DailyResult{Skipped: true, SkipReason: SkipInactive}, nil
	}

	if e.attendance != nil {
		status, err := e.attendance.Status(ctx, id, day)
		if err != nil {
			// Data error: assume present rather than silently dropping
			// the day's scoring.
			log.WithError(err).Warn("attendance lookup failed, assuming present")
		} else if status == metrics.AttendanceAbsent {
			return &DailyResult{Skipped: true, SkipReason: SkipAbsent}, nil
		}
	}

	defs, err := e.catalog.ActiveForRole(ctx, kpi.Role(emp.Role))
	if err != nil {
		return nil, fmt.Errorf("load kpis for role %s: %w", emp.Role, err)
	}
	if len(defs) == 0 {
		// Configuration gap, not an error: nothing to score.
		log.WithField("role", emp.Role).Info("no active KPIs for role, skipping")
		return &DailyResult{Skipped: true, SkipReason: SkipNoKPIs}, nil
	}

	scores := make([]KPIScore, 0, len(defs))
	var weightedSum, weightTotal float64
	for _, def := range defs {
		line, err := e.scoreKPI(ctx, id, def, day, log)
		if err != nil {
			// Malformed band: fail fast for this KPI, keep the day going.
			log.WithError(err).WithField("kpi", def.ID).Error("kpi skipped")
			continue
		}
		scores = append(scores, line)
		if line.Weight > 0 {
			weightedSum += line.Score * line.Weight
			weightTotal += line.Weight
		}
	}
	if len(scores) == 0 {
		return &DailyResult{Skipped: true, SkipReason: SkipNoKPIs}, nil
	}

	overall := 0.0
	if weightTotal > 0 {
		overall = weightedSum / weightTotal
	}
	tier, stars := scoring.TierFor(overall)

	now := e.clock().UTC()
	rec := DailyPerformanceRecord{
		EmployeeID:   id,
		Date:         day,
		DateKey:      scoring.DateKey(day),
		Scores:       scores,
		OverallScore: overall,
		Tier:         tier,
		Stars:        stars,
		IsAutomated:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Preserve identity across reruns so the upsert converges instead of
	// minting a fresh row.
	if existing, err := e.records.GetRecord(ctx, id, rec.DateKey); err != nil {
		return nil, fmt.Errorf("load existing record: %w", err)
	} else if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.ID = uuid.NewString()
	}

	if err := e.records.UpsertRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("upsert daily record: %w", err)
	}

	if _, err := e.UpdatePerformanceSummary(ctx, id); err != nil {
		return nil, fmt.Errorf("rebuild summary: %w", err)
	}

	e.events.Publish(ctx, events.Event{
		Type:       events.RecalculationComplete,
		EmployeeID: id,
		At:         now,
		Fields: map[string]any{
			"date":          rec.DateKey,
			"overall_score": rec.OverallScore,
			"tier":          string(rec.Tier),
		},
	})

	return &DailyResult{Record: &rec}, nil
}

// scoreKPI resolves, fetches and scores a single KPI, and refreshes the
// period snapshot on the EmployeeTarget row.
func (e *Engine) scoreKPI(ctx context.Context, id scoring.EmployeeID, def kpi.Definition, day time.Time, log *logrus.Entry) (KPIScore, error) {
	target, err := e.resolver.Resolve(ctx, id, def, day)
	if err != nil {
		return KPIScore{}, err
	}

	req := metrics.Request{
		Employee:  id,
		KPI:       def,
		Window:    target.Period,
		PeriodKey: target.PeriodKey,
	}
	actual, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		// Missing/broken metric source: score the KPI at zero and move
		// on rather than sinking the whole day.
		log.WithError(err).WithField("kpi", def.ID).Warn("metric fetch failed, treating actual as 0")
	}

	score := scoring.Score(actual, target.Paced)
	status := scoring.StatusFor(actual, target.Paced)

	line := KPIScore{
		KPIID:      def.ID,
		KPIName:    def.Name,
		Target:     target.Paced.Target,
		BaseTarget: target.Base.Target,
		Actual:     actual,
		Score:      score,
		Status:     status,
		Weight:     def.Weight,
	}

	// Refresh the observed snapshot without touching the override config.
	row := EmployeeTarget{
		EmployeeID: id,
		KPIID:      def.ID,
		Period:     target.Period,
		PeriodKey:  target.PeriodKey,
	}
	if existing, err := e.targets.GetTarget(ctx, id, def.ID, target.PeriodKey); err != nil {
		return KPIScore{}, err
	} else if existing != nil {
		row.Override = existing.Override
	}
	row.Snapshot = TargetSnapshot{
		Actual:     actual,
		Score:      score,
		Status:     status,
		ObservedAt: e.clock().UTC(),
	}
	if err := e.targets.UpsertTarget(ctx, row); err != nil {
		return KPIScore{}, fmt.Errorf("upsert target snapshot: %w", err)
	}

	return line, nil
}
