package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WORKING CALENDAR - Which days count toward pacing
// =============================================================================

// WorkingCalendar decides which days count as working days when prorating
// a period target. The calendar is injectable because the rest-day policy
// is a business decision, not an engine rule: the default is a six-day
// week (Sundays off), but a host can supply five-day weeks or a
// holiday-aware calendar.
type WorkingCalendar interface {
	IsWorkingDay(d time.Time) bool
}

// WeeklyCalendar treats a fixed set of weekdays as rest days.
type WeeklyCalendar struct {
	RestDays map[time.Weekday]bool
}

func (c WeeklyCalendar) IsWorkingDay(d time.Time) bool {
	return !c.RestDays[d.Weekday()]
}

// SixDayWeek returns the default calendar: every day except Sunday counts.
func SixDayWeek() WorkingCalendar {
	return WeeklyCalendar{RestDays: map[time.Weekday]bool{time.Sunday: true}}
}

// FiveDayWeek returns a Monday-Friday calendar.
func FiveDayWeek() WorkingCalendar {
	return WeeklyCalendar{RestDays: map[time.Weekday]bool{
		time.Saturday: true,
		time.Sunday:   true,
	}}
}

// WorkingDays counts working days in the inclusive range [from, to].
func WorkingDays(cal WorkingCalendar, from, to time.Time) int {
	count := 0
	for d := Day(from); !d.After(Day(to)); d = d.AddDate(0, 0, 1) {
		if cal.IsWorkingDay(d) {
			count++
		}
	}
	return count
}

// =============================================================================
// PACING - Time-proration of period targets
// =============================================================================

// Pacing ratio bounds. The floor keeps very long periods from producing a
// near-zero target on day one; the ceiling keeps the ratio from ever
// inflating the target.
var (
	pacingFloor   = decimal.NewFromFloat(0.01)
	pacingCeiling = decimal.NewFromInt(1)
)

// PacingRatio returns the fraction of period working days elapsed through
// asOf, inclusive. Without pacing an employee would show as failing on day
// two of a monthly target purely because the full-period target has not
// been reached yet; scaling the band by this ratio makes a KPI fair at any
// point in the period while still exposing true end-of-period shortfalls.
//
// Daily periods are never prorated: the ratio is exactly 1.
func PacingRatio(cal WorkingCalendar, freq Frequency, p Period, asOf time.Time) decimal.Decimal {
	if freq == FreqDaily {
		return pacingCeiling
	}

	at := Day(asOf)
	if at.Before(p.Start) {
		at = p.Start
	}
	if at.After(p.End) {
		at = p.End
	}

	total := WorkingDays(cal, p.Start, p.End)
	if total == 0 {
		return pacingCeiling
	}
	elapsed := WorkingDays(cal, p.Start, at)

	ratio := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(total)))
	if ratio.LessThan(pacingFloor) {
		return pacingFloor
	}
	if ratio.GreaterThan(pacingCeiling) {
		return pacingCeiling
	}
	return ratio
}
