/*
Package pip manages Performance Improvement Plan lifecycles.

PURPOSE:
  Converts sustained-underperformance signals from daily records and
  summaries into formal, time-boxed improvement plans: rule-based
  triggering, weekly-review appends, and manager-driven close/extend
  transitions.

LIFECYCLE:
                 trigger rule fires
  (no plan) ------------------------> active
      active --Extend()------------> extended
      active/extended --Close(success)---> completed-success  (flag cleared)
      active/extended --Close(failure)---> completed-failure  (flag KEPT)
      active/extended --Close(cancelled)-> cancelled          (flag cleared)

  A failed outcome leaves the employee flagged so a new, stricter plan is
  not silently auto-triggered on the next sweep. Plan expiry is a
  manager decision (close or extend), never automatic.

INVARIANT:
  At most one open plan per employee. Triggering is suppressed while the
  summary carries isPIP = true.

SEE ALSO:
  - rules.go: The trigger rule table
  - manager.go: Trigger evaluation, sweep, reviews, transitions
*/
package pip

import (
	"context"
	"time"

	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// PLAN DOCUMENT
// =============================================================================

type PlanStatus string

const (
	StatusActive           PlanStatus = "active"
	StatusExtended         PlanStatus = "extended"
	StatusCompletedSuccess PlanStatus = "completed-success"
	StatusCompletedFailure PlanStatus = "completed-failure"
	StatusCancelled        PlanStatus = "cancelled"
)

// Open reports whether the plan still accepts reviews and transitions.
func (s PlanStatus) Open() bool {
	return s == StatusActive || s == StatusExtended
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// CloseResult is a manager's verdict when closing a plan.
type CloseResult string

const (
	ResultSuccess   CloseResult = "success"
	ResultFailure   CloseResult = "failure"
	ResultCancelled CloseResult = "cancelled"
)

// Goal is one remediation objective on a plan, seeded from the KPIs that
// were failing at trigger time.
type Goal struct {
	ID          string        `json:"id"`
	KPIID       scoring.KPIID `json:"kpiId,omitempty"`
	Description string        `json:"description"`
	TargetScore float64       `json:"targetScore"`
	Achieved    bool          `json:"achieved"`
}

// WeeklyReview is a manager checkpoint appended to an open plan.
// Reviews record progress; they never change plan status themselves.
type WeeklyReview struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	ReviewerID string    `json:"reviewerId"`
	Progress   string    `json:"progress"` // improving | flat | declining
	Score      float64   `json:"score"`
	Notes      string    `json:"notes"`
}

// Outcome records how a plan ended.
type Outcome struct {
	Result     CloseResult `json:"result"`
	ClosedDate time.Time   `json:"closedDate"`
	ClosedBy   string      `json:"closedBy"`
	FinalNotes string      `json:"finalNotes"`
	FinalScore float64     `json:"finalScore"`
}

// Plan is one Performance Improvement Plan document.
type Plan struct {
	ID              string             `json:"id"`
	EmployeeID      scoring.EmployeeID `json:"employeeId"`
	Status          PlanStatus         `json:"status"`
	Severity        Severity           `json:"severity"`
	TriggerReason   string             `json:"triggerReason"`
	IsAutomatic     bool               `json:"isAutomatic"`
	StartDate       time.Time          `json:"startDate"`
	EndDate         time.Time          `json:"endDate"`
	DurationDays    int                `json:"durationDays"`
	Goals           []Goal             `json:"goals"`
	WeeklyReviews   []WeeklyReview     `json:"weeklyReviews"`
	Outcome         *Outcome           `json:"outcome,omitempty"`
	AssignedManager string             `json:"assignedManager"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists plans. Save is an upsert by plan ID.
type Store interface {
	SavePlan(ctx context.Context, p Plan) error

	// GetPlan returns the plan, or nil when unknown.
	GetPlan(ctx context.Context, id string) (*Plan, error)

	// ActivePlan returns the employee's open plan, or nil.
	ActivePlan(ctx context.Context, employee scoring.EmployeeID) (*Plan, error)

	// ListPlans returns every plan for the employee, newest first.
	ListPlans(ctx context.Context, employee scoring.EmployeeID) ([]Plan, error)
}

// =============================================================================
// MANAGER RESOLUTION - Injectable escalation strategy
// =============================================================================

// ManagerResolver finds who a new plan should be assigned to. The
// fallback chain (direct manager, then any active Manager/HR/Admin) is a
// policy, so hosts can swap in their own escalation.
type ManagerResolver interface {
	// ManagerFor returns a user ID, or "" when nobody could be resolved.
	ManagerFor(ctx context.Context, employee scoring.EmployeeID) (string, error)
}

// StaffLookup is what the default resolver needs from the identity store.
type StaffLookup interface {
	// ManagerOf returns the employee's direct manager, or "".
	ManagerOf(ctx context.Context, employee scoring.EmployeeID) (string, error)

	// AnyActiveIn returns any active user holding one of the roles, or "".
	AnyActiveIn(ctx context.Context, roles []string) (string, error)
}

// DefaultResolver escalates direct manager -> Manager -> HR -> Admin.
type DefaultResolver struct {
	Staff         StaffLookup
	FallbackRoles []string
}

func NewDefaultResolver(staff StaffLookup) *DefaultResolver {
	return &DefaultResolver{
		Staff:         staff,
		FallbackRoles: []string{"manager", "hr", "admin"},
	}
}

func (r *DefaultResolver) ManagerFor(ctx context.Context, employee scoring.EmployeeID) (string, error) {
	manager, err := r.Staff.ManagerOf(ctx, employee)
	if err != nil {
		return "", err
	}
	if manager != "" {
		return manager, nil
	}
	return r.Staff.AnyActiveIn(ctx, r.FallbackRoles)
}

// =============================================================================
// SWEEP RESULT
// =============================================================================

// SweepResult aggregates one fleet-wide trigger pass.
type SweepResult struct {
	TotalChecked int `json:"totalChecked"`
	NewPIPs      int `json:"newPIPs"`
	WarningsSent int `json:"warningsSent"`
	Failures     int `json:"failures"`
}
