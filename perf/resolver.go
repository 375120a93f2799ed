package perf

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// TARGET RESOLVER - Which band applies, and how much of it by now
// =============================================================================

// ResolvedTarget is the active band for one (employee, KPI, date):
// the period window and key, the un-paced base band (employee override
// when present, else the KPI default), and the paced band scaled by the
// working-day ratio.
type ResolvedTarget struct {
	Period     scoring.Period
	PeriodKey  string
	Base       scoring.Thresholds
	Paced      scoring.Thresholds
	Ratio      decimal.Decimal
	Overridden bool
}

// TargetResolver resolves active threshold bands.
type TargetResolver struct {
	Targets  TargetStore
	Calendar scoring.WorkingCalendar
}

func NewTargetResolver(targets TargetStore, cal scoring.WorkingCalendar) *TargetResolver {
	if cal == nil {
		cal = scoring.SixDayWeek()
	}
	return &TargetResolver{Targets: targets, Calendar: cal}
}

// Resolve computes the period for the KPI's frequency anchored at date,
// picks the employee override band over the KPI default when one exists
// for the period, and paces it. Malformed bands fail fast here so a bad
// override can never produce a nonsensical score.
func (r *TargetResolver) Resolve(ctx context.Context, employee scoring.EmployeeID, def kpi.Definition, date time.Time) (ResolvedTarget, error) {
	period := scoring.WindowFor(def.Frequency, date)
	periodKey := scoring.PeriodKeyFor(def.Frequency, date)

	base := def.Thresholds
	overridden := false
	row, err := r.Targets.GetTarget(ctx, employee, def.ID, periodKey)
	if err != nil {
		return ResolvedTarget{}, err
	}
	if row != nil && row.Override != nil {
		base = *row.Override
		overridden = true
	}

	if err := base.Validate(); err != nil {
		return ResolvedTarget{}, &scoring.InvalidThresholdsError{KPIID: def.ID, Thresholds: base}
	}

	ratio := scoring.PacingRatio(r.Calendar, def.Frequency, period, date)

	return ResolvedTarget{
		Period:     period,
		PeriodKey:  periodKey,
		Base:       base,
		Paced:      base.Scale(ratio),
		Ratio:      ratio,
		Overridden: overridden,
	}, nil
}
