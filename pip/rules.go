package pip

import (
	"fmt"

	"github.com/warp/performance-engine/perf"
)

// =============================================================================
// TRIGGER RULES - Evaluated in priority order, first match wins
// =============================================================================

// minHistoryDays is the minimum daily-record history before any rule may
// fire; a brand-new employee is never auto-triggered.
const minHistoryDays = 7

// TriggerRule matches a trailing window of daily records. Recent holds
// records newest-first; avg30 is the 30-day rolling average.
type TriggerRule struct {
	Name         string
	Severity     Severity
	DurationDays int
	Match        func(recent []perf.DailyPerformanceRecord, avg30 float64) (bool, string)
}

// DefaultRules returns the standard escalation ladder:
//
//	critical  last 7 days all below 40             30-day plan
//	high      last 14 days all below 50            45-day plan
//	medium    30-day rolling average below 60      60-day plan
func DefaultRules() []TriggerRule {
	return []TriggerRule{
		{
			Name:         "critical-week",
			Severity:     SeverityCritical,
			DurationDays: 30,
			Match: func(recent []perf.DailyPerformanceRecord, _ float64) (bool, string) {
				if !allBelow(recent, 7, 40) {
					return false, ""
				}
				return true, "Scored below 40 every day for the last 7 days"
			},
		},
		{
			Name:         "high-fortnight",
			Severity:     SeverityHigh,
			DurationDays: 45,
			Match: func(recent []perf.DailyPerformanceRecord, _ float64) (bool, string) {
				if !allBelow(recent, 14, 50) {
					return false, ""
				}
				return true, "Scored below 50 every day for the last 14 days"
			},
		},
		{
			Name:         "medium-average",
			Severity:     SeverityMedium,
			DurationDays: 60,
			Match: func(_ []perf.DailyPerformanceRecord, avg30 float64) (bool, string) {
				if avg30 <= 0 || avg30 >= 60 {
					return false, ""
				}
				return true, fmt.Sprintf("30-day average score %.1f is below 60", avg30)
			},
		},
	}
}

// allBelow reports whether the n most recent records all score under
// limit. Requires at least n records - a shorter history never matches.
func allBelow(recent []perf.DailyPerformanceRecord, n int, limit float64) bool {
	if len(recent) < n {
		return false
	}
	for _, r := range recent[:n] {
		if r.OverallScore >= limit {
			return false
		}
	}
	return true
}
