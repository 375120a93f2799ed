/*
errors.go - Centralized error types for the scoring engine

PURPOSE:
  All engine-wide error types in one place for consistency and
  discoverability. Domain packages wrap these with additional context.

ERROR CATEGORIES:
  1. Configuration errors - malformed KPI bands, unknown data sources
  2. Not-found errors - missing employees, definitions, plans
  3. Lifecycle errors - invalid PIP state transitions

USAGE:
  if errors.Is(err, scoring.ErrInvalidThresholds) {
      // reject the KPI definition at authoring time
  }
*/
package scoring

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidThresholds is returned when a band violates the strictly
	// increasing minimum < target < excellent invariant.
	ErrInvalidThresholds = errors.New("invalid thresholds: minimum < target < excellent required")

	// ErrUnknownSource is returned when a KPI references a data-source
	// kind no fetcher is registered for.
	ErrUnknownSource = errors.New("unknown metric data source")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrDefinitionNotFound is returned when a referenced KPI doesn't exist.
	ErrDefinitionNotFound = errors.New("kpi definition not found")

	// ErrPlanNotFound is returned when a referenced improvement plan doesn't exist.
	ErrPlanNotFound = errors.New("improvement plan not found")

	// ErrPlanNotOpen is returned when reviewing or closing a plan that is
	// no longer active or extended.
	ErrPlanNotOpen = errors.New("improvement plan is not open")

	// ErrActivePlanExists enforces the at-most-one-active-plan invariant.
	ErrActivePlanExists = errors.New("employee already has an active improvement plan")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidThresholdsError identifies which band (and optionally which KPI)
// violated the invariant.
type InvalidThresholdsError struct {
	KPIID      KPIID
	Thresholds Thresholds
}

func (e *InvalidThresholdsError) Error() string {
	if e.KPIID != "" {
		return fmt.Sprintf("kpi %s: invalid thresholds %s", e.KPIID, e.Thresholds)
	}
	return fmt.Sprintf("invalid thresholds %s", e.Thresholds)
}

func (e *InvalidThresholdsError) Unwrap() error { return ErrInvalidThresholds }

// UnknownSourceError identifies the unregistered data-source kind.
type UnknownSourceError struct {
	Kind string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("no metric source registered for kind %q", e.Kind)
}

func (e *UnknownSourceError) Unwrap() error { return ErrUnknownSource }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrDefinitionNotFound) ||
		errors.Is(err, ErrPlanNotFound)
}

// IsConfigError returns true if the error is a KPI configuration problem
// that should be rejected at authoring time rather than scoring time.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidThresholds) ||
		errors.Is(err, ErrUnknownSource)
}
