package perf

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/warp/performance-engine/scoring"
)

// goodPerformanceThreshold splits streaks into positive and negative and
// matches the "good" tier floor.
const goodPerformanceThreshold = 75.0

// pipEligibilityRating is the 30-day average below which the summary is
// flagged for improvement.
const pipEligibilityRating = 50.0

// failingKPIScore is the per-KPI score below which a KPI is named in a
// PIP reason.
const failingKPIScore = 60.0

// defaultPIPWindowDays is the improvement window opened by the
// eligibility flag.
const defaultPIPWindowDays = 30

// =============================================================================
// SUMMARY REBUILDER
// =============================================================================

// UpdatePerformanceSummary fully recomputes the employee's summary from
// daily records: rolling 7/30/90-day averages, the trend streak, and the
// PIP eligibility flag. It always re-derives from scratch - incremental
// patching would drift.
func (e *Engine) UpdatePerformanceSummary(ctx context.Context, id scoring.EmployeeID) (*PerformanceSummary, error) {
	now := e.clock().UTC()
	today := scoring.Day(now)

	last90, err := e.records.ListRecords(ctx, id, today.AddDate(0, 0, -89), today)
	if err != nil {
		return nil, fmt.Errorf("load daily records: %w", err)
	}

	avg7 := windowAverage(last90, today, 7)
	avg30 := windowAverage(last90, today, 30)
	avg90 := windowAverage(last90, today, 90)

	tier, stars := scoring.TierFor(avg30)

	summary := PerformanceSummary{
		EmployeeID:    id,
		CurrentRating: avg30,
		Tier:          tier,
		Stars:         stars,
		Streak:        deriveStreak(windowRecords(last90, today, 30)),
		Averages:      Averages{Last7Days: avg7, Last30Days: avg30, Last90Days: avg90},
		UpdatedAt:     now,
	}

	existing, err := e.summaries.GetSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}

	switch {
	case existing != nil && existing.IsPIP:
		// A PIP window is already open: keep the flag and its deadline.
		// Idempotent reruns must not keep pushing the end date forward;
		// only a plan closure clears the flag.
		summary.IsPIP = true
		summary.PIPDetails = existing.PIPDetails

	case avg30 > 0 && avg30 < pipEligibilityRating:
		summary.IsPIP = true
		summary.PIPDetails = &PIPDetails{
			StartDate: now,
			EndDate:   now.AddDate(0, 0, defaultPIPWindowDays),
			Reason:    pipReason(last90),
		}
	}

	if err := e.summaries.UpsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}
	return &summary, nil
}

// =============================================================================
// WINDOW MATH
// =============================================================================

// windowRecords filters records to the trailing n-day window ending today,
// inclusive.
func windowRecords(records []DailyPerformanceRecord, today time.Time, n int) []DailyPerformanceRecord {
	from := today.AddDate(0, 0, -(n - 1))
	var out []DailyPerformanceRecord
	for _, r := range records {
		d := scoring.Day(r.Date)
		if !d.Before(from) && !d.After(today) {
			out = append(out, r)
		}
	}
	return out
}

// windowAverage is the arithmetic mean of overall scores in the trailing
// window - 0 when the window is empty, never NaN.
func windowAverage(records []DailyPerformanceRecord, today time.Time, n int) float64 {
	recs := windowRecords(records, today, n)
	if len(recs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range recs {
		sum += r.OverallScore
	}
	return sum / float64(len(recs))
}

// deriveStreak walks the window newest-first, counting consecutive days
// on the same side of the good-performance threshold as the most recent
// record.
func deriveStreak(window []DailyPerformanceRecord) Streak {
	if len(window) == 0 {
		return Streak{Type: StreakNeutral, Days: 0, Description: "no recent performance data"}
	}

	sorted := make([]DailyPerformanceRecord, len(window))
	copy(sorted, window)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	positive := sorted[0].OverallScore >= goodPerformanceThreshold
	days := 0
	for _, r := range sorted {
		if (r.OverallScore >= goodPerformanceThreshold) != positive {
			break
		}
		days++
	}

	if positive {
		return Streak{
			Type:        StreakPositive,
			Days:        days,
			Description: fmt.Sprintf("%d consecutive day(s) scoring %.0f or above", days, goodPerformanceThreshold),
		}
	}
	return Streak{
		Type:        StreakNegative,
		Days:        days,
		Description: fmt.Sprintf("%d consecutive day(s) scoring below %.0f", days, goodPerformanceThreshold),
	}
}

// pipReason names the most recent record's weakest failing KPI, falling
// back to a generic reason when no single KPI stands out.
func pipReason(records []DailyPerformanceRecord) string {
	if len(records) == 0 {
		return "Overall low performance"
	}

	latest := records[0]
	for _, r := range records[1:] {
		if r.Date.After(latest.Date) {
			latest = r
		}
	}

	var worst *KPIScore
	for i := range latest.Scores {
		s := &latest.Scores[i]
		if s.Score >= failingKPIScore {
			continue
		}
		if worst == nil || s.Score < worst.Score {
			worst = s
		}
	}
	if worst != nil {
		return "Failing expected target for: " + worst.KPIName
	}
	return "Overall low performance"
}
