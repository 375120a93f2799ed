/*
Package perf orchestrates daily performance scoring and summaries.

PURPOSE:
  The Engine runs one employee through one calculation day: resolve the
  paced target for every active role KPI, fetch actuals, score, weight,
  persist one idempotent DailyPerformanceRecord, then rebuild the
  employee's PerformanceSummary (rolling averages, streak, PIP
  eligibility flag).

DERIVED-STATE RULES:
  - DailyPerformanceRecord is keyed by (employee, dateKey): rerunning a
    day upserts in place and converges to the same record.
  - PerformanceSummary is a pure projection over daily records. It is
    always rebuilt in full, never patched incrementally, so it can be
    recomputed from scratch at any time without drift.
  - The EmployeeTarget row carries two logically separate concerns:
    an optional administrator-set threshold override (desired state) and
    the last-computed actual/score snapshot (observed state, a cache the
    Daily Aggregator refreshes and nothing treats as authoritative).

SEE ALSO:
  - engine.go: Daily Aggregator + entry points
  - summary.go: Summary Rebuilder
  - resolver.go: Target resolution and pacing
*/
package perf

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// PER-KPI SCORE LINE
// =============================================================================

// KPIScore is one KPI's outcome inside a daily record. Target is the
// paced band's target; BaseTarget is the un-paced full-period target kept
// for display.
type KPIScore struct {
	KPIID      scoring.KPIID   `json:"kpiId"`
	KPIName    string          `json:"kpiName"`
	Target     decimal.Decimal `json:"target"`
	BaseTarget decimal.Decimal `json:"baseTarget"`
	Actual     decimal.Decimal `json:"actual"`
	Score      float64         `json:"score"`
	Status     scoring.Status  `json:"status"`
	Weight     float64         `json:"weight"`
}

// =============================================================================
// DAILY PERFORMANCE RECORD
// =============================================================================

// DailyPerformanceRecord is the one-per-employee-per-day scoring result.
// DateKey is a pure function of Date; the (EmployeeID, DateKey) pair is
// the upsert key.
type DailyPerformanceRecord struct {
	ID           string             `json:"id"`
	EmployeeID   scoring.EmployeeID `json:"employeeId"`
	Date         time.Time          `json:"date"`
	DateKey      string             `json:"dateKey"`
	Scores       []KPIScore         `json:"scores"`
	OverallScore float64            `json:"overallScore"`
	Tier         scoring.RatingTier `json:"ratingTier"`
	Stars        int                `json:"stars"`
	IsAutomated  bool               `json:"isAutomated"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// =============================================================================
// EMPLOYEE TARGET - Override config + observed snapshot, one period row
// =============================================================================

// TargetSnapshot is the last-computed standing for a period: queryable
// without re-deriving from daily records, but never a source of truth.
type TargetSnapshot struct {
	Actual     decimal.Decimal `json:"actual"`
	Score      float64         `json:"score"`
	Status     scoring.Status  `json:"status"`
	ObservedAt time.Time       `json:"observedAt"`
}

// EmployeeTarget is the unique (employee, kpi, periodKey) row.
type EmployeeTarget struct {
	EmployeeID scoring.EmployeeID  `json:"employeeId"`
	KPIID      scoring.KPIID       `json:"kpiId"`
	Period     scoring.Period      `json:"-"`
	PeriodKey  string              `json:"periodKey"`
	Override   *scoring.Thresholds `json:"override,omitempty"`
	Snapshot   TargetSnapshot      `json:"snapshot"`
}

// =============================================================================
// PERFORMANCE SUMMARY
// =============================================================================

type StreakType string

const (
	StreakPositive StreakType = "positive"
	StreakNegative StreakType = "negative"
	StreakNeutral  StreakType = "neutral"
)

// Streak counts the most recent consecutive days on one side of the
// good-performance threshold (75).
type Streak struct {
	Type        StreakType `json:"type"`
	Days        int        `json:"days"`
	Description string     `json:"description"`
}

// Averages are rolling arithmetic means of overall scores, zero when a
// window holds no records.
type Averages struct {
	Last7Days  float64 `json:"last7Days"`
	Last30Days float64 `json:"last30Days"`
	Last90Days float64 `json:"last90Days"`
}

// PIPDetails describes the open improvement window on a summary.
type PIPDetails struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason"`
}

// PerformanceSummary is the one-per-employee derived projection.
// CurrentRating is always the 30-day average - it must never be treated
// as an independent source of truth.
type PerformanceSummary struct {
	EmployeeID    scoring.EmployeeID `json:"employeeId"`
	CurrentRating float64            `json:"currentRating"`
	Tier          scoring.RatingTier `json:"ratingTier"`
	Stars         int                `json:"stars"`
	Streak        Streak             `json:"streak"`
	Averages      Averages           `json:"averages"`
	IsPIP         bool               `json:"isPIP"`
	PIPDetails    *PIPDetails        `json:"pipDetails,omitempty"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// =============================================================================
// CALCULATION RESULT
// =============================================================================

// DailyResult is what CalculateEmployeePerformance hands back: either a
// record, or a named reason the day was skipped (inactive employee,
// absence, no KPIs for the role).
type DailyResult struct {
	Skipped    bool                    `json:"skipped"`
	SkipReason string                  `json:"skipReason,omitempty"`
	Record     *DailyPerformanceRecord `json:"record,omitempty"`
}

// Skip reasons.
const (
	SkipInactive = "employee inactive"
	SkipAbsent   = "employee absent"
	SkipNoKPIs   = "no active KPIs for role"
)
