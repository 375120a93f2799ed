package scoring

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - The scoring window a KPI target applies to
// =============================================================================

// Period is an inclusive [Start, End] day range. Both bounds are UTC
// midnights; use Day to normalize arbitrary timestamps.
type Period struct {
	Start time.Time
	End   time.Time
}

// Day truncates t to a UTC midnight. All period math operates on days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Contains returns true if d falls within [Start, End].
func (p Period) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns every day in the period, in order.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// =============================================================================
// WINDOW CALCULATION - Frequency-anchored periods
// =============================================================================

// WindowFor returns the scoring period of the given frequency containing
// date: daily = that day, weekly = Monday through Sunday, monthly = the
// calendar month, quarterly = the calendar quarter, annually = the
// calendar year.
func WindowFor(freq Frequency, date time.Time) Period {
	d := Day(date)
	switch freq {
	case FreqDaily:
		return Period{Start: d, End: d}
	case FreqWeekly:
		// ISO convention: weeks start on Monday
		offset := (int(d.Weekday()) + 6) % 7
		start := d.AddDate(0, 0, -offset)
		return Period{Start: start, End: start.AddDate(0, 0, 6)}
	case FreqMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(0, 1, -1)}
	case FreqQuarterly:
		q := (int(d.Month()) - 1) / 3
		start := time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(0, 3, -1)}
	case FreqAnnually:
		start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(1, 0, -1)}
	default:
		return Period{Start: d, End: d}
	}
}

// =============================================================================
// PERIOD KEYS - Canonical strings used for idempotent lookups
// =============================================================================

// PeriodKeyFor derives the canonical key for the period of freq containing
// date. Keys double as idempotency keys and human-readable period labels:
//
//	daily      2025-03-10
//	weekly     2025-W11
//	monthly    2025-03
//	quarterly  2025-Q1
//	annually   2025
func PeriodKeyFor(freq Frequency, date time.Time) string {
	d := Day(date)
	switch freq {
	case FreqDaily:
		return d.Format("2006-01-02")
	case FreqWeekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case FreqMonthly:
		return d.Format("2006-01")
	case FreqQuarterly:
		q := (int(d.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", d.Year(), q)
	case FreqAnnually:
		return d.Format("2006")
	default:
		return d.Format("2006-01-02")
	}
}

// DateKey is the canonical key of a single calendar day. It is a pure
// function of the date, which is what makes daily record upserts idempotent.
func DateKey(date time.Time) string {
	return Day(date).Format("2006-01-02")
}
