package scoring_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/scoring"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// WINDOWS
// =============================================================================

func TestWindowFor(t *testing.T) {
	// March 10, 2025 is a Monday.
	anchor := date(2025, time.March, 10)

	tests := []struct {
		freq       scoring.Frequency
		start, end time.Time
	}{
		{scoring.FreqDaily, anchor, anchor},
		{scoring.FreqWeekly, date(2025, time.March, 10), date(2025, time.March, 16)},
		{scoring.FreqMonthly, date(2025, time.March, 1), date(2025, time.March, 31)},
		{scoring.FreqQuarterly, date(2025, time.January, 1), date(2025, time.March, 31)},
		{scoring.FreqAnnually, date(2025, time.January, 1), date(2025, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			p := scoring.WindowFor(tt.freq, anchor)
			assert.Equal(t, tt.start, p.Start)
			assert.Equal(t, tt.end, p.End)
			assert.True(t, p.Contains(anchor))
		})
	}
}

func TestWindowFor_WeeklyMidWeek(t *testing.T) {
	// A Thursday must map back to the containing Monday.
	p := scoring.WindowFor(scoring.FreqWeekly, date(2025, time.March, 13))
	assert.Equal(t, date(2025, time.March, 10), p.Start)
	assert.Equal(t, date(2025, time.March, 16), p.End)

	// A Sunday belongs to the week that started the previous Monday.
	p = scoring.WindowFor(scoring.FreqWeekly, date(2025, time.March, 16))
	assert.Equal(t, date(2025, time.March, 10), p.Start)
}

// =============================================================================
// PERIOD KEYS
// =============================================================================

func TestPeriodKeyFor(t *testing.T) {
	anchor := date(2025, time.August, 5)

	assert.Equal(t, "2025-08-05", scoring.PeriodKeyFor(scoring.FreqDaily, anchor))
	assert.Equal(t, "2025-W32", scoring.PeriodKeyFor(scoring.FreqWeekly, anchor))
	assert.Equal(t, "2025-08", scoring.PeriodKeyFor(scoring.FreqMonthly, anchor))
	assert.Equal(t, "2025-Q3", scoring.PeriodKeyFor(scoring.FreqQuarterly, anchor))
	assert.Equal(t, "2025", scoring.PeriodKeyFor(scoring.FreqAnnually, anchor))
}

func TestPeriodKey_StableAcrossTheWindow(t *testing.T) {
	// Every day of a month must derive the same monthly key - this is the
	// property that makes the key usable for idempotent upserts.
	for d := 1; d <= 28; d++ {
		key := scoring.PeriodKeyFor(scoring.FreqMonthly, date(2025, time.February, d))
		require.Equal(t, "2025-02", key)
	}
}

func TestDateKey_PureFunctionOfDate(t *testing.T) {
	noon := time.Date(2025, time.June, 3, 12, 30, 15, 0, time.UTC)
	assert.Equal(t, "2025-06-03", scoring.DateKey(noon))
	assert.Equal(t, scoring.DateKey(noon), scoring.DateKey(scoring.Day(noon)))
}

// =============================================================================
// PACING
// =============================================================================

func TestPacingRatio_DailyIsAlwaysOne(t *testing.T) {
	cal := scoring.SixDayWeek()
	for _, d := range []time.Time{
		date(2025, time.January, 1),
		date(2025, time.June, 15), // a Sunday
		date(2025, time.December, 31),
	} {
		p := scoring.WindowFor(scoring.FreqDaily, d)
		ratio := scoring.PacingRatio(cal, scoring.FreqDaily, p, d)
		assert.True(t, ratio.Equal(decimal.NewFromInt(1)), "daily ratio must be 1 on %s", d)
	}
}

func TestPacingRatio_ExcludesSundaysOnly(t *testing.T) {
	// GIVEN: March 2025 (31 days, 5 Sundays -> 26 working days)
	// WHEN: pacing as of Saturday March 8 (7 working days elapsed: 1-8 minus March 2)
	// THEN: ratio = 7/26
	cal := scoring.SixDayWeek()
	p := scoring.WindowFor(scoring.FreqMonthly, date(2025, time.March, 8))

	require.Equal(t, 26, scoring.WorkingDays(cal, p.Start, p.End))

	ratio := scoring.PacingRatio(cal, scoring.FreqMonthly, p, date(2025, time.March, 8))
	want := decimal.NewFromInt(7).Div(decimal.NewFromInt(26))
	assert.True(t, ratio.Equal(want), "got %s want %s", ratio, want)
}

func TestPacingRatio_FullPeriodIsOne(t *testing.T) {
	cal := scoring.SixDayWeek()
	p := scoring.WindowFor(scoring.FreqMonthly, date(2025, time.March, 31))
	ratio := scoring.PacingRatio(cal, scoring.FreqMonthly, p, date(2025, time.March, 31))
	assert.True(t, ratio.Equal(decimal.NewFromInt(1)))
}

func TestPacingRatio_FloorClamp(t *testing.T) {
	// Day one of an annual period is well under 1% elapsed; the ratio
	// clamps to the floor instead of vanishing.
	cal := scoring.SixDayWeek()
	p := scoring.WindowFor(scoring.FreqAnnually, date(2025, time.January, 1))
	ratio := scoring.PacingRatio(cal, scoring.FreqAnnually, p, date(2025, time.January, 1))
	assert.True(t, ratio.Equal(decimal.NewFromFloat(0.01)), "got %s", ratio)
}

func TestPacingRatio_ScalesThresholds(t *testing.T) {
	b := scoring.NewThresholds(10, 20, 30)
	half := b.Scale(decimal.NewFromFloat(0.5))
	assert.True(t, half.Minimum.Equal(decimal.NewFromInt(5)))
	assert.True(t, half.Target.Equal(decimal.NewFromInt(10)))
	assert.True(t, half.Excellent.Equal(decimal.NewFromInt(15)))
	require.NoError(t, half.Validate(), "scaling preserves band order")
}

func TestFiveDayWeekCalendar(t *testing.T) {
	cal := scoring.FiveDayWeek()
	assert.False(t, cal.IsWorkingDay(date(2025, time.March, 8)), "Saturday off")
	assert.False(t, cal.IsWorkingDay(date(2025, time.March, 9)), "Sunday off")
	assert.True(t, cal.IsWorkingDay(date(2025, time.March, 10)))
}
