package perf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/scoring"
)

// seedRecord inserts a bare daily record n days before today.
func seedRecord(t *testing.T, f *fixture, emp scoring.EmployeeID, today time.Time, daysAgo int, overall float64, scores ...perf.KPIScore) {
	t.Helper()
	day := scoring.Day(today).AddDate(0, 0, -daysAgo)
	require.NoError(t, f.store.UpsertRecord(context.Background(), perf.DailyPerformanceRecord{
		ID:           "rec-" + scoring.DateKey(day),
		EmployeeID:   emp,
		Date:         day,
		DateKey:      scoring.DateKey(day),
		Scores:       scores,
		OverallScore: overall,
		IsAutomated:  true,
		CreatedAt:    day,
		UpdatedAt:    day,
	}))
}

// =============================================================================
// SUMMARY REBUILDER TESTS
// =============================================================================

func TestSummary_RollingWindowAverages(t *testing.T) {
	// GIVEN: Records at today (40), yesterday (60) and ten days ago (80)
	// THEN: avg7 = 50, avg30 = avg90 = 60

	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 0, 40)
	seedRecord(t, f, emp, monday, 1, 60)
	seedRecord(t, f, emp, monday, 10, 80)

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, sum.Averages.Last7Days, 0.001)
	assert.InDelta(t, 60.0, sum.Averages.Last30Days, 0.001)
	assert.InDelta(t, 60.0, sum.Averages.Last90Days, 0.001)
	assert.InDelta(t, 60.0, sum.CurrentRating, 0.001)
	assert.Equal(t, scoring.TierAverage, sum.Tier)
	assert.Equal(t, 3, sum.Stars)
}

func TestSummary_NoHistory(t *testing.T) {
	// GIVEN: An employee with no daily records
	// THEN: Averages are 0 (never NaN), streak neutral, no PIP flag

	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	assert.Zero(t, sum.Averages.Last7Days)
	assert.Zero(t, sum.Averages.Last30Days)
	assert.Zero(t, sum.Averages.Last90Days)
	assert.Equal(t, perf.StreakNeutral, sum.Streak.Type)
	assert.False(t, sum.IsPIP)
}

func TestSummary_NegativeStreakStopsAtGoodDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 0, 40)
	seedRecord(t, f, emp, monday, 1, 60)
	seedRecord(t, f, emp, monday, 2, 80) // breaks the run

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	assert.Equal(t, perf.StreakNegative, sum.Streak.Type)
	assert.Equal(t, 2, sum.Streak.Days)
}

func TestSummary_PositiveStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 0, 80)
	seedRecord(t, f, emp, monday, 1, 90)
	seedRecord(t, f, emp, monday, 2, 76)
	seedRecord(t, f, emp, monday, 3, 40)

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	assert.Equal(t, perf.StreakPositive, sum.Streak.Type)
	assert.Equal(t, 3, sum.Streak.Days)
}

func TestSummary_FlagsPIPBelowFifty(t *testing.T) {
	// GIVEN: A 30-day average of 35 with one clearly failing KPI
	// THEN: The summary is flagged with a 30-day window and the reason
	//       names the weakest failing KPI from the latest record

	ctx := context.Background()
	now := monday.Add(9 * time.Hour)
	f := newFixture(t, now)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, now, 0, 30,
		perf.KPIScore{KPIID: "kpi-demos", KPIName: "Demo Conversion", Score: 20},
		perf.KPIScore{KPIID: "kpi-calls", KPIName: "Daily Calls", Score: 70},
	)
	seedRecord(t, f, emp, now, 1, 40)

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	require.True(t, sum.IsPIP)
	require.NotNil(t, sum.PIPDetails)
	assert.Equal(t, "Failing expected target for: Demo Conversion", sum.PIPDetails.Reason)
	assert.Equal(t, now.AddDate(0, 0, 30), sum.PIPDetails.EndDate)
}

func TestSummary_RebuildPreservesOpenPIPWindow(t *testing.T) {
	// GIVEN: A flagged summary
	// WHEN: Rebuilding again with even worse scores
	// THEN: The deadline does not slide forward

	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 0, 30)
	first, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)
	require.True(t, first.IsPIP)

	seedRecord(t, f, emp, monday, 1, 10)
	second, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	require.True(t, second.IsPIP)
	require.NotNil(t, second.PIPDetails)
	assert.Equal(t, first.PIPDetails.EndDate, second.PIPDetails.EndDate)
	assert.Equal(t, first.PIPDetails.Reason, second.PIPDetails.Reason)
}

func TestSummary_ZeroAverageDoesNotFlagPIP(t *testing.T) {
	// An all-zero window means no meaningful signal, not a crisis.
	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 0, 0)

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)
	assert.False(t, sum.IsPIP)
	assert.Nil(t, sum.PIPDetails)
}

func TestSummary_OldRecordsFallOutOfThirtyDayWindow(t *testing.T) {
	// GIVEN: Bad records 40+ days ago and good recent ones
	// THEN: CurrentRating reflects only the trailing 30 days

	ctx := context.Background()
	f := newFixture(t, monday)
	emp := f.addSalesExec(t, "emp-1")

	seedRecord(t, f, emp, monday, 45, 10)
	seedRecord(t, f, emp, monday, 40, 20)
	seedRecord(t, f, emp, monday, 0, 90)

	sum, err := f.engine.UpdatePerformanceSummary(ctx, emp)
	require.NoError(t, err)

	assert.InDelta(t, 90.0, sum.Averages.Last30Days, 0.001)
	assert.InDelta(t, 40.0, sum.Averages.Last90Days, 0.001)
	assert.False(t, sum.IsPIP)
}
