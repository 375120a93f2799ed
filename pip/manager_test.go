package pip_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/events"
	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/scoring"
	"github.com/warp/performance-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var sweepDay = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(_ context.Context, e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(t events.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	store   *memory.Store
	manager *pip.Manager
	sink    *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	sink := &eventLog{}
	mgr := pip.NewManager(pip.ManagerConfig{
		Plans:     st,
		Records:   st,
		Summaries: st,
		Directory: st,
		Resolver:  pip.NewDefaultResolver(st),
		Events:    sink,
		Clock:     func() time.Time { return sweepDay },
	})
	return &fixture{store: st, manager: mgr, sink: sink}
}

// addEligible registers an active employee plus one active KPI for the
// role so the sweep picks them up.
func (f *fixture) addEligible(t *testing.T, id, managerID string) scoring.EmployeeID {
	t.Helper()
	emp := scoring.EmployeeID(id)
	f.store.AddEmployee(perf.Employee{
		ID:        emp,
		Name:      "Test Employee",
		Role:      string(kpi.RoleSalesExecutive),
		ManagerID: managerID,
		Active:    true,
	})
	require.NoError(t, f.store.Save(context.Background(), kpi.Definition{
		ID:         "kpi-calls",
		Name:       "Daily Calls",
		Role:       kpi.RoleSalesExecutive,
		Frequency:  scoring.FreqDaily,
		Metric:     scoring.MetricCount,
		DataSource: kpi.DataSource{Kind: kpi.SourceManual},
		Thresholds: scoring.NewThresholds(2, 5, 10),
		Weight:     50,
		IsActive:   true,
	}))
	return emp
}

// seedDaily writes n consecutive daily records ending today, all with the
// same overall score. The newest record carries the given KPI lines.
func (f *fixture) seedDaily(t *testing.T, emp scoring.EmployeeID, n int, overall float64, latestScores ...perf.KPIScore) {
	t.Helper()
	for i := 0; i < n; i++ {
		day := scoring.Day(sweepDay).AddDate(0, 0, -i)
		rec := perf.DailyPerformanceRecord{
			ID:           "rec-" + scoring.DateKey(day),
			EmployeeID:   emp,
			Date:         day,
			DateKey:      scoring.DateKey(day),
			OverallScore: overall,
			IsAutomated:  true,
		}
		if i == 0 {
			rec.Scores = latestScores
		}
		require.NoError(t, f.store.UpsertRecord(context.Background(), rec))
	}
}

func (f *fixture) seedSummary(t *testing.T, emp scoring.EmployeeID, avg30 float64, isPIP bool) {
	t.Helper()
	sum := perf.PerformanceSummary{
		EmployeeID:    emp,
		CurrentRating: avg30,
		Averages:      perf.Averages{Last30Days: avg30},
		IsPIP:         isPIP,
		UpdatedAt:     sweepDay,
	}
	if isPIP {
		sum.PIPDetails = &perf.PIPDetails{StartDate: sweepDay, EndDate: sweepDay.AddDate(0, 0, 30), Reason: "existing"}
	}
	require.NoError(t, f.store.UpsertSummary(context.Background(), sum))
}

// =============================================================================
// TRIGGER RULE TESTS
// =============================================================================

func TestTrigger_CriticalRule_SevenBadDays(t *testing.T) {
	// GIVEN: 7 consecutive days all below 40 and no existing PIP
	// WHEN: The sweep runs
	// THEN: Exactly one active 30-day critical plan, goals seeded from the
	//       failing KPIs, summary flagged, trigger event published

	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "mgr-9")
	f.seedDaily(t, emp, 7, 35,
		perf.KPIScore{KPIID: "kpi-demos", KPIName: "Demo Conversion", Score: 20},
		perf.KPIScore{KPIID: "kpi-calls", KPIName: "Daily Calls", Score: 70},
	)

	result, err := f.manager.CheckAndTriggerPIPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChecked)
	assert.Equal(t, 1, result.NewPIPs)
	assert.Zero(t, result.Failures)

	plan, err := f.store.ActivePlan(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, pip.StatusActive, plan.Status)
	assert.Equal(t, pip.SeverityCritical, plan.Severity)
	assert.Equal(t, 30, plan.DurationDays)
	assert.Equal(t, plan.StartDate.AddDate(0, 0, 30), plan.EndDate)
	assert.True(t, plan.IsAutomatic)
	assert.Equal(t, "mgr-9", plan.AssignedManager)

	// Only the KPI under 60 becomes a goal.
	require.Len(t, plan.Goals, 1)
	assert.Equal(t, scoring.KPIID("kpi-demos"), plan.Goals[0].KPIID)

	sum, err := f.store.GetSummary(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.True(t, sum.IsPIP)
	require.NotNil(t, sum.PIPDetails)
	assert.Equal(t, plan.EndDate, sum.PIPDetails.EndDate)

	assert.Equal(t, 1, f.sink.count(events.PIPTriggered))
}

func TestTrigger_SecondSweepDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "mgr-9")
	f.seedDaily(t, emp, 7, 35)

	_, err := f.manager.CheckAndTriggerPIPs(ctx)
	require.NoError(t, err)

	// Conditions still hold on the next sweep.
	result, err := f.manager.CheckAndTriggerPIPs(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.NewPIPs)

	plans, err := f.store.ListPlans(ctx, emp)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestTrigger_HighRule_FourteenDaysBelowFifty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	// 45 every day: misses the critical rule (needs <40), hits the high one.
	f.seedDaily(t, emp, 14, 45)

	plan, warned, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.False(t, warned)
	assert.Equal(t, pip.SeverityHigh, plan.Severity)
	assert.Equal(t, 45, plan.DurationDays)
}

func TestTrigger_MediumRule_LowThirtyDayAverage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	// 55 every day: clear of the daily rules, caught by the average rule.
	f.seedDaily(t, emp, 10, 55)
	f.seedSummary(t, emp, 55, false)

	plan, _, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, pip.SeverityMedium, plan.Severity)
	assert.Equal(t, 60, plan.DurationDays)
	assert.Contains(t, plan.TriggerReason, "below 60")
}

func TestTrigger_RequiresSevenDaysOfHistory(t *testing.T) {
	// A brand-new employee with terrible numbers is never auto-triggered.
	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	f.seedDaily(t, emp, 5, 10)

	plan, warned, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.False(t, warned)
}

func TestTrigger_SuppressedWhileFlagged(t *testing.T) {
	// GIVEN: isPIP already true and the medium condition still holding
	// THEN: No new plan

	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	f.seedDaily(t, emp, 10, 55)
	f.seedSummary(t, emp, 55, true)

	plan, warned, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.False(t, warned)

	plans, err := f.store.ListPlans(ctx, emp)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestTrigger_WarningBand(t *testing.T) {
	// An average in [60, 70) earns a warning event, not a plan.
	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	f.seedDaily(t, emp, 10, 65)
	f.seedSummary(t, emp, 65, false)

	result, err := f.manager.CheckAndTriggerPIPs(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.NewPIPs)
	assert.Equal(t, 1, result.WarningsSent)
	assert.Equal(t, 1, f.sink.count(events.PerformanceWarning))
}

func TestTrigger_ManagerFallbackRoles(t *testing.T) {
	// GIVEN: No direct manager, but an active HR user exists
	// THEN: The plan is assigned to them

	ctx := context.Background()
	f := newFixture(t)
	emp := f.addEligible(t, "emp-1", "")
	f.store.AddEmployee(perf.Employee{ID: "hr-1", Role: "hr", Active: true})
	f.seedDaily(t, emp, 7, 35)

	plan, _, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "hr-1", plan.AssignedManager)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func triggerPlan(t *testing.T, f *fixture) (scoring.EmployeeID, *pip.Plan) {
	t.Helper()
	emp := f.addEligible(t, "emp-1", "mgr-9")
	f.seedDaily(t, emp, 7, 35)
	plan, _, err := f.manager.EvaluateEmployee(context.Background(), emp)
	require.NoError(t, err)
	require.NotNil(t, plan)
	return emp, plan
}

func TestLifecycle_WeeklyReviewAppends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, plan := triggerPlan(t, f)

	updated, err := f.manager.AppendWeeklyReview(ctx, plan.ID, pip.WeeklyReview{
		ReviewerID: "mgr-9",
		Progress:   "improving",
		Score:      55,
		Notes:      "call volume back up",
	})
	require.NoError(t, err)
	require.Len(t, updated.WeeklyReviews, 1)
	assert.NotEmpty(t, updated.WeeklyReviews[0].ID)
	assert.Equal(t, pip.StatusActive, updated.Status)
}

func TestLifecycle_ExtendPushesDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, plan := triggerPlan(t, f)

	extended, err := f.manager.Extend(ctx, plan.ID, 14)
	require.NoError(t, err)
	assert.Equal(t, pip.StatusExtended, extended.Status)
	assert.Equal(t, plan.EndDate.AddDate(0, 0, 14), extended.EndDate)
	assert.Equal(t, 44, extended.DurationDays)

	// Extended plans still take reviews.
	_, err = f.manager.AppendWeeklyReview(ctx, plan.ID, pip.WeeklyReview{ReviewerID: "mgr-9", Progress: "flat"})
	require.NoError(t, err)
}

func TestLifecycle_CloseSuccessClearsFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, plan := triggerPlan(t, f)

	closed, err := f.manager.Close(ctx, plan.ID, pip.ResultSuccess, "mgr-9", "sustained recovery")
	require.NoError(t, err)
	assert.Equal(t, pip.StatusCompletedSuccess, closed.Status)
	require.NotNil(t, closed.Outcome)
	assert.Equal(t, pip.ResultSuccess, closed.Outcome.Result)
	assert.Equal(t, "mgr-9", closed.Outcome.ClosedBy)

	sum, err := f.store.GetSummary(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.False(t, sum.IsPIP)
	assert.Nil(t, sum.PIPDetails)

	active, err := f.store.ActivePlan(ctx, emp)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestLifecycle_CloseFailureKeepsFlag(t *testing.T) {
	// A failed plan leaves isPIP set so the sweep cannot quietly open a
	// fresh plan over an unresolved failure.
	ctx := context.Background()
	f := newFixture(t)
	emp, plan := triggerPlan(t, f)

	closed, err := f.manager.Close(ctx, plan.ID, pip.ResultFailure, "mgr-9", "no improvement")
	require.NoError(t, err)
	assert.Equal(t, pip.StatusCompletedFailure, closed.Status)

	sum, err := f.store.GetSummary(ctx, emp)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.True(t, sum.IsPIP)

	// And the next evaluation stays suppressed.
	next, warned, err := f.manager.EvaluateEmployee(ctx, emp)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.False(t, warned)
}

func TestLifecycle_CloseCancelledClearsFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	emp, plan := triggerPlan(t, f)

	closed, err := f.manager.Close(ctx, plan.ID, pip.ResultCancelled, "hr-1", "triggered on bad data")
	require.NoError(t, err)
	assert.Equal(t, pip.StatusCancelled, closed.Status)

	sum, err := f.store.GetSummary(ctx, emp)
	require.NoError(t, err)
	assert.False(t, sum.IsPIP)
}

func TestLifecycle_ClosedPlanRejectsTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, plan := triggerPlan(t, f)

	_, err := f.manager.Close(ctx, plan.ID, pip.ResultSuccess, "mgr-9", "")
	require.NoError(t, err)

	_, err = f.manager.Close(ctx, plan.ID, pip.ResultFailure, "mgr-9", "")
	require.ErrorIs(t, err, scoring.ErrPlanNotOpen)

	_, err = f.manager.Extend(ctx, plan.ID, 7)
	require.ErrorIs(t, err, scoring.ErrPlanNotOpen)

	_, err = f.manager.AppendWeeklyReview(ctx, plan.ID, pip.WeeklyReview{ReviewerID: "mgr-9"})
	require.ErrorIs(t, err, scoring.ErrPlanNotOpen)
}

func TestLifecycle_UnknownPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.manager.Close(ctx, "missing", pip.ResultSuccess, "mgr-9", "")
	require.ErrorIs(t, err, scoring.ErrPlanNotFound)
}
