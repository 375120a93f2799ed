package perf

import (
	"context"
	"time"

	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// STORE INTERFACES - Persistence boundaries, all writes are keyed upserts
// =============================================================================
// Implementations: store/sqlite (production), store/memory (tests/dev).

// TargetStore persists EmployeeTarget rows keyed by
// (employee, kpi, periodKey).
type TargetStore interface {
	// GetTarget returns the row, or nil when none exists.
	GetTarget(ctx context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (*EmployeeTarget, error)

	// UpsertTarget writes the row in place.
	UpsertTarget(ctx context.Context, t EmployeeTarget) error
}

// RecordStore persists daily performance records keyed by
// (employee, dateKey). Upserts overwrite in place - recalculation must
// never create duplicates.
type RecordStore interface {
	UpsertRecord(ctx context.Context, rec DailyPerformanceRecord) error

	// GetRecord returns the record for a day, or nil when none exists.
	GetRecord(ctx context.Context, employee scoring.EmployeeID, dateKey string) (*DailyPerformanceRecord, error)

	// ListRecords returns records with Date in [from, to], ascending.
	ListRecords(ctx context.Context, employee scoring.EmployeeID, from, to time.Time) ([]DailyPerformanceRecord, error)
}

// SummaryStore persists the one-per-employee summary projection.
type SummaryStore interface {
	// GetSummary returns the summary, or nil when none exists yet.
	GetSummary(ctx context.Context, employee scoring.EmployeeID) (*PerformanceSummary, error)

	UpsertSummary(ctx context.Context, s PerformanceSummary) error

	// ListSummaries returns every summary (report export, admin views).
	ListSummaries(ctx context.Context) ([]PerformanceSummary, error)
}

// =============================================================================
// DIRECTORY - Identity/role collaborator
// =============================================================================

// Employee is the slice of the identity store the engine needs.
type Employee struct {
	ID        scoring.EmployeeID
	Name      string
	Role      string
	ManagerID string
	Active    bool
}

// Directory is the read interface over the external identity/role store.
type Directory interface {
	// GetEmployee returns the employee, or nil when unknown.
	GetEmployee(ctx context.Context, id scoring.EmployeeID) (*Employee, error)

	// ActiveEligible returns every active employee whose role has KPIs
	// to score - the fleet a batch sweep iterates.
	ActiveEligible(ctx context.Context) ([]Employee, error)
}
