package pip

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/performance-engine/events"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/scoring"
)

// warningBand is the 30-day-average range that earns a performance
// warning instead of a plan: below "average" comfort but above the
// medium trigger's reach once other rules have passed.
const (
	warningFloor   = 60.0
	warningCeiling = 70.0
)

// =============================================================================
// MANAGER - Trigger evaluation and lifecycle transitions
// =============================================================================

// Manager converts summary signals into plans and owns plan transitions.
type Manager struct {
	plans     Store
	records   perf.RecordStore
	summaries perf.SummaryStore
	directory perf.Directory
	resolver  ManagerResolver
	rules     []TriggerRule

	events      events.Sink
	clock       func() time.Time
	log         *logrus.Entry
	concurrency int
}

// ManagerConfig collects dependencies. Rules defaults to DefaultRules;
// Concurrency bounds the sweep fan-out (default 4).
type ManagerConfig struct {
	Plans       Store
	Records     perf.RecordStore
	Summaries   perf.SummaryStore
	Directory   perf.Directory
	Resolver    ManagerResolver
	Rules       []TriggerRule
	Events      events.Sink
	Clock       func() time.Time
	Log         *logrus.Entry
	Concurrency int
}

func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		plans:       cfg.Plans,
		records:     cfg.Records,
		summaries:   cfg.Summaries,
		directory:   cfg.Directory,
		resolver:    cfg.Resolver,
		rules:       cfg.Rules,
		events:      cfg.Events,
		clock:       cfg.Clock,
		log:         cfg.Log,
		concurrency: cfg.Concurrency,
	}
	if m.rules == nil {
		m.rules = DefaultRules()
	}
	if m.events == nil {
		m.events = events.NopSink{}
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if m.concurrency <= 0 {
		m.concurrency = 4
	}
	m.log = m.log.WithField("component", "pip.manager")
	return m
}

// =============================================================================
// FLEET SWEEP
// =============================================================================

// CheckAndTriggerPIPs evaluates the trigger rules for every active,
// role-eligible employee. One employee's bad data never aborts the
// batch: failures are caught, counted and logged.
func (m *Manager) CheckAndTriggerPIPs(ctx context.Context) (SweepResult, error) {
	employees, err := m.directory.ActiveEligible(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list eligible employees: %w", err)
	}

	var (
		mu     sync.Mutex
		result = SweepResult{TotalChecked: len(employees)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, emp := range employees {
		emp := emp
		g.Go(func() error {
			plan, warned, err := m.EvaluateEmployee(gctx, emp.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failures++
				m.log.WithError(err).WithField("employee", emp.ID).Error("pip evaluation failed")
			case plan != nil:
				result.NewPIPs++
			case warned:
				result.WarningsSent++
			}
			// Always nil: a per-employee failure is recoverable.
			return nil
		})
	}
	_ = g.Wait()

	m.log.WithFields(logrus.Fields{
		"checked":  result.TotalChecked,
		"new_pips": result.NewPIPs,
		"warnings": result.WarningsSent,
		"failures": result.Failures,
	}).Info("pip sweep complete")
	return result, nil
}

// EvaluateEmployee runs the rule ladder for one employee. Returns the
// created plan when a rule fired, or warned=true when the employee
// landed in the warning band.
func (m *Manager) EvaluateEmployee(ctx context.Context, id scoring.EmployeeID) (*Plan, bool, error) {
	summary, err := m.summaries.GetSummary(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load summary: %w", err)
	}
	if summary != nil && summary.IsPIP {
		// Already flagged: new triggers are suppressed until the open
		// plan is closed.
		return nil, false, nil
	}

	today := scoring.Day(m.clock().UTC())
	recent, err := m.recentRecords(ctx, id, today)
	if err != nil {
		return nil, false, err
	}
	if len(recent) < minHistoryDays {
		return nil, false, nil
	}

	avg30 := 0.0
	if summary != nil {
		avg30 = summary.Averages.Last30Days
	}

	for _, rule := range m.rules {
		matched, reason := rule.Match(recent, avg30)
		if !matched {
			continue
		}
		plan, err := m.trigger(ctx, id, rule, reason, recent, summary)
		if err != nil {
			return nil, false, err
		}
		return plan, false, nil
	}

	if avg30 >= warningFloor && avg30 < warningCeiling {
		m.events.Publish(ctx, events.Event{
			Type:       events.PerformanceWarning,
			EmployeeID: id,
			At:         m.clock().UTC(),
			Fields:     map[string]any{"average_30d": avg30},
		})
		return nil, true, nil
	}
	return nil, false, nil
}

// recentRecords loads the trailing 30 days of daily records, newest first.
func (m *Manager) recentRecords(ctx context.Context, id scoring.EmployeeID, today time.Time) ([]perf.DailyPerformanceRecord, error) {
	records, err := m.records.ListRecords(ctx, id, today.AddDate(0, 0, -29), today)
	if err != nil {
		return nil, fmt.Errorf("load daily records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

// trigger creates the plan document and flips the summary flag.
func (m *Manager) trigger(ctx context.Context, id scoring.EmployeeID, rule TriggerRule, reason string, recent []perf.DailyPerformanceRecord, summary *perf.PerformanceSummary) (*Plan, error) {
	if open, err := m.plans.ActivePlan(ctx, id); err != nil {
		return nil, fmt.Errorf("check active plan: %w", err)
	} else if open != nil {
		return nil, scoring.ErrActivePlanExists
	}

	manager := ""
	if m.resolver != nil {
		resolved, err := m.resolver.ManagerFor(ctx, id)
		if err != nil {
			// Plan creation must not fail on an escalation hiccup.
			m.log.WithError(err).WithField("employee", id).Warn("manager resolution failed")
		} else {
			manager = resolved
		}
	}

	now := m.clock().UTC()
	plan := Plan{
		ID:              uuid.NewString(),
		EmployeeID:      id,
		Status:          StatusActive,
		Severity:        rule.Severity,
		TriggerReason:   reason,
		IsAutomatic:     true,
		StartDate:       now,
		EndDate:         now.AddDate(0, 0, rule.DurationDays),
		DurationDays:    rule.DurationDays,
		Goals:           seedGoals(recent),
		AssignedManager: manager,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	flagged := perf.PerformanceSummary{EmployeeID: id, UpdatedAt: now}
	if summary != nil {
		flagged = *summary
	}
	flagged.IsPIP = true
	flagged.PIPDetails = &perf.PIPDetails{
		StartDate: plan.StartDate,
		EndDate:   plan.EndDate,
		Reason:    reason,
	}
	if err := m.summaries.UpsertSummary(ctx, flagged); err != nil {
		return nil, fmt.Errorf("flag summary: %w", err)
	}

	m.events.Publish(ctx, events.Event{
		Type:       events.PIPTriggered,
		EmployeeID: id,
		At:         now,
		Fields: map[string]any{
			"plan_id":  plan.ID,
			"severity": string(plan.Severity),
			"reason":   reason,
			"end_date": plan.EndDate.Format("2006-01-02"),
		},
	})
	return &plan, nil
}

// seedGoals derives remediation goals from the KPIs failing in the most
// recent record.
func seedGoals(recent []perf.DailyPerformanceRecord) []Goal {
	if len(recent) == 0 {
		return nil
	}
	var goals []Goal
	for _, s := range recent[0].Scores {
		if s.Score >= 60 {
			continue
		}
		goals = append(goals, Goal{
			ID:          uuid.NewString(),
			KPIID:       s.KPIID,
			Description: fmt.Sprintf("Bring %s back to at least the minimum expected level", s.KPIName),
			TargetScore: 60,
		})
	}
	if len(goals) == 0 {
		goals = append(goals, Goal{
			ID:          uuid.NewString(),
			Description: "Raise overall daily performance to at least 60",
			TargetScore: 60,
		})
	}
	return goals
}

// =============================================================================
// REVIEWS AND TRANSITIONS
// =============================================================================

// AppendWeeklyReview records a manager checkpoint on an open plan.
func (m *Manager) AppendWeeklyReview(ctx context.Context, planID string, review WeeklyReview) (*Plan, error) {
	plan, err := m.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, scoring.ErrPlanNotFound
	}
	if !plan.Status.Open() {
		return nil, scoring.ErrPlanNotOpen
	}

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.Date.IsZero() {
		review.Date = m.clock().UTC()
	}
	plan.WeeklyReviews = append(plan.WeeklyReviews, review)
	plan.UpdatedAt = m.clock().UTC()

	if err := m.plans.SavePlan(ctx, *plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// Extend pushes an open plan's end date out and marks it extended.
// Expiry handling is deliberately manager-driven; nothing extends a plan
// automatically.
func (m *Manager) Extend(ctx context.Context, planID string, days int) (*Plan, error) {
	plan, err := m.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, scoring.ErrPlanNotFound
	}
	if !plan.Status.Open() {
		return nil, scoring.ErrPlanNotOpen
	}

	plan.Status = StatusExtended
	plan.EndDate = plan.EndDate.AddDate(0, 0, days)
	plan.DurationDays += days
	plan.UpdatedAt = m.clock().UTC()

	if err := m.plans.SavePlan(ctx, *plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// Close finishes a plan with the manager's verdict. Success and
// cancellation clear the summary flag; failure leaves the employee
// flagged so the next sweep cannot silently re-trigger.
func (m *Manager) Close(ctx context.Context, planID string, result CloseResult, closedBy, finalNotes string) (*Plan, error) {
	plan, err := m.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, scoring.ErrPlanNotFound
	}
	if !plan.Status.Open() {
		return nil, scoring.ErrPlanNotOpen
	}

	now := m.clock().UTC()
	switch result {
	case ResultSuccess:
		plan.Status = StatusCompletedSuccess
	case ResultFailure:
		plan.Status = StatusCompletedFailure
	case ResultCancelled:
		plan.Status = StatusCancelled
	default:
		return nil, fmt.Errorf("unknown close result %q", result)
	}

	finalScore := 0.0
	if summary, err := m.summaries.GetSummary(ctx, plan.EmployeeID); err == nil && summary != nil {
		finalScore = summary.CurrentRating
	}
	plan.Outcome = &Outcome{
		Result:     result,
		ClosedDate: now,
		ClosedBy:   closedBy,
		FinalNotes: finalNotes,
		FinalScore: finalScore,
	}
	plan.UpdatedAt = now

	if err := m.plans.SavePlan(ctx, *plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	if result == ResultSuccess || result == ResultCancelled {
		summary, err := m.summaries.GetSummary(ctx, plan.EmployeeID)
		if err != nil {
			return nil, fmt.Errorf("load summary: %w", err)
		}
		if summary != nil && summary.IsPIP {
			summary.IsPIP = false
			summary.PIPDetails = nil
			summary.UpdatedAt = now
			if err := m.summaries.UpsertSummary(ctx, *summary); err != nil {
				return nil, fmt.Errorf("unflag summary: %w", err)
			}
		}
	}
	return plan, nil
}
