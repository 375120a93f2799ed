package scoring

import "github.com/shopspring/decimal"

// =============================================================================
// SCORE CURVE - Pure mapping (actual, thresholds) -> [0, 100]
// =============================================================================

// Band floors. The curve is piecewise linear between fixed floors so that
// hitting a threshold always lands on a well-known value:
//
//	actual >= excellent             -> 100
//	target <= actual < excellent    -> 80 + 20*(a-t)/(e-t)
//	minimum <= actual < target      -> 60 + 20*(a-m)/(t-m)
//	0 < actual < minimum            -> 60 * a/m
//	actual <= 0                     -> 0
const (
	floorExcellent = 100.0
	floorOnTrack   = 80.0
	floorAtRisk    = 60.0
)

// Score maps an actual metric value against a threshold band. The result
// is clamped to [0, 100] and monotonic non-decreasing in actual.
//
// Degenerate bands (equal adjacent thresholds) collapse the sub-range:
// the value jumps directly to the next band's floor instead of dividing
// by zero. Callers that care about well-formed bands should have rejected
// them earlier via Thresholds.Validate.
func Score(actual decimal.Decimal, t Thresholds) float64 {
	switch {
	case actual.Sign() <= 0:
		return 0

	case actual.GreaterThanOrEqual(t.Excellent):
		// Clamped, never extrapolated past 100.
		return floorExcellent

	case actual.GreaterThanOrEqual(t.Target):
		span := t.Excellent.Sub(t.Target)
		if span.Sign() <= 0 {
			return floorExcellent
		}
		frac, _ := actual.Sub(t.Target).Div(span).Float64()
		return clampScore(floorOnTrack + 20*frac)

	case actual.GreaterThanOrEqual(t.Minimum):
		span := t.Target.Sub(t.Minimum)
		if span.Sign() <= 0 {
			return floorOnTrack
		}
		frac, _ := actual.Sub(t.Minimum).Div(span).Float64()
		return clampScore(floorAtRisk + 20*frac)

	default:
		if t.Minimum.Sign() <= 0 {
			return floorAtRisk
		}
		frac, _ := actual.Div(t.Minimum).Float64()
		return clampScore(floorAtRisk * frac)
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// =============================================================================
// STATUS - Standing against the PACED band
// =============================================================================

// StatusFor classifies an actual against paced thresholds. Status always
// compares to the paced band, so an employee mid-period is judged against
// what should have been achieved by now, not the full-period target.
func StatusFor(actual decimal.Decimal, paced Thresholds) Status {
	switch {
	case actual.GreaterThanOrEqual(paced.Excellent):
		return StatusExcellent
	case actual.GreaterThanOrEqual(paced.Target):
		return StatusOnTrack
	case actual.GreaterThanOrEqual(paced.Minimum):
		return StatusAtRisk
	default:
		return StatusFailing
	}
}
