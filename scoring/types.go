/*
Package scoring provides the core performance scoring engine.

PURPOSE:
  This package contains the domain-agnostic numeric and temporal building
  blocks for employee performance scoring: threshold bands, the score
  curve, rating tiers, period windows with canonical keys, and the
  working-day pacing calculation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Thresholds: A strictly increasing minimum/target/excellent band
  - Status: Where an actual lands relative to paced thresholds
  - RatingTier: Fixed breakpoints mapping an overall score to a tier + stars
  - Employee/KPI IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: Nothing in this package performs I/O
  2. Precision: decimal.Decimal for metric values and threshold math
  3. Type Safety: Strong typing for IDs prevents mixing employee/KPI IDs

USAGE:
  t := scoring.Thresholds{
      Minimum:   decimal.NewFromInt(10),
      Target:    decimal.NewFromInt(20),
      Excellent: decimal.NewFromInt(30),
  }
  score := scoring.Score(decimal.NewFromInt(15), t) // 70

SEE ALSO:
  - score.go: The score curve and status classification
  - period.go: Period windows and canonical period keys
  - calendar.go: Working-day calendar and pacing ratio
*/
package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type KPIID string

// =============================================================================
// METRIC TYPES AND FREQUENCIES
// =============================================================================

// MetricType describes what kind of value a KPI measures.
type MetricType string

const (
	MetricCount      MetricType = "count"
	MetricAmount     MetricType = "amount"
	MetricPercentage MetricType = "percentage"
	MetricRating     MetricType = "rating"
	MetricBoolean    MetricType = "boolean"
)

// Frequency defines the scoring period of a KPI.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnually  Frequency = "annually"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqQuarterly, FreqAnnually:
		return true
	}
	return false
}

// =============================================================================
// THRESHOLDS - The minimum/target/excellent band
// =============================================================================

// Thresholds is the three-point band a KPI is judged against.
// Invariant: Minimum < Target < Excellent, strictly.
type Thresholds struct {
	Minimum   decimal.Decimal `json:"minimum"`
	Target    decimal.Decimal `json:"target"`
	Excellent decimal.Decimal `json:"excellent"`
}

// Validate enforces the strictly increasing invariant. A malformed band
// fails fast rather than producing a nonsensical score downstream.
func (t Thresholds) Validate() error {
	if t.Minimum.GreaterThanOrEqual(t.Target) || t.Target.GreaterThanOrEqual(t.Excellent) {
		return &InvalidThresholdsError{Thresholds: t}
	}
	return nil
}

// Scale returns the thresholds multiplied by ratio (used for pacing).
func (t Thresholds) Scale(ratio decimal.Decimal) Thresholds {
	return Thresholds{
		Minimum:   t.Minimum.Mul(ratio),
		Target:    t.Target.Mul(ratio),
		Excellent: t.Excellent.Mul(ratio),
	}
}

func (t Thresholds) String() string {
	return fmt.Sprintf("{min: %s, target: %s, excellent: %s}", t.Minimum, t.Target, t.Excellent)
}

// NewThresholds is a convenience constructor from float64 values.
func NewThresholds(minimum, target, excellent float64) Thresholds {
	return Thresholds{
		Minimum:   decimal.NewFromFloat(minimum),
		Target:    decimal.NewFromFloat(target),
		Excellent: decimal.NewFromFloat(excellent),
	}
}

// =============================================================================
// STATUS - Standing of an actual relative to PACED thresholds
// =============================================================================

type Status string

const (
	StatusExcellent Status = "excellent"
	StatusOnTrack   Status = "on-track"
	StatusAtRisk    Status = "at-risk"
	StatusFailing   Status = "failing"
)

// =============================================================================
// RATING TIERS - Fixed breakpoints shared by daily records and summaries
// =============================================================================

type RatingTier string

const (
	TierExcellent    RatingTier = "excellent"
	TierGood         RatingTier = "good"
	TierAverage      RatingTier = "average"
	TierBelowAverage RatingTier = "below-average"
	TierPoor         RatingTier = "poor"
)

// TierFor maps an overall score in [0,100] to its rating tier and star count.
func TierFor(score float64) (RatingTier, int) {
	switch {
	case score >= 90:
		return TierExcellent, 5
	case score >= 75:
		return TierGood, 4
	case score >= 60:
		return TierAverage, 3
	case score >= 40:
		return TierBelowAverage, 2
	default:
		return TierPoor, 1
	}
}
