/*
Package metrics pulls "actual" KPI values from external data sources.

PURPOSE:
  The scoring engine never talks to transactional systems directly. Each
  KPI names a data-source kind (lead_count, sale_count, sale_amount,
  attendance, manual); this package maps the kind to a Source strategy
  with a uniform FetchActual contract, backed by narrow collaborator
  interfaces the host wires to its own storage.

STRATEGY TABLE:
  Registry holds one Source per kpi.SourceKind. An unknown kind is a
  configuration error (scoring.ErrUnknownSource), caught at KPI
  authoring time by kpi.Definition.Validate - the registry check is the
  scoring-time backstop.

RETRIES:
  External lookups may be flaky. Fetch wraps each source call in a short
  exponential backoff; a lookup that still fails is reported to the
  caller, which treats the actual as 0, logs, and continues (a data
  error must not sink the whole daily calculation).

SEE ALSO:
  - kpi/types.go: DataSource descriptor
  - perf/engine.go: The caller, and its error policy
*/
package metrics

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// COLLABORATOR INTERFACES - Wired by the host
// =============================================================================

// AttendanceStatus is what the attendance system reports for one day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLeave   AttendanceStatus = "LEAVE"
	AttendanceUnknown AttendanceStatus = "UNKNOWN"
)

// LeadCounter reads lead records.
type LeadCounter interface {
	CountLeads(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error)
}

// SalesLedger reads sales records.
type SalesLedger interface {
	CountAndSumSales(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (count int64, revenue decimal.Decimal, err error)
}

// AttendanceProvider reads attendance records.
type AttendanceProvider interface {
	// Status reports a single day.
	Status(ctx context.Context, employee scoring.EmployeeID, date time.Time) (AttendanceStatus, error)

	// DaysPresent counts present days in the inclusive range.
	DaysPresent(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error)
}

// ManualReadings reads administrator-entered values for KPIs with no
// automated source. Keyed by (employee, kpi, periodKey); ok is false
// when nothing was entered for the period.
type ManualReadings interface {
	Reading(ctx context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (value decimal.Decimal, ok bool, err error)
}

// =============================================================================
// SOURCE - Uniform fetch strategy
// =============================================================================

// Request carries everything a source might need to resolve an actual.
type Request struct {
	Employee  scoring.EmployeeID
	KPI       kpi.Definition
	Window    scoring.Period
	PeriodKey string
}

// Source resolves the actual metric value for one request.
type Source interface {
	FetchActual(ctx context.Context, req Request) (decimal.Decimal, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req Request) (decimal.Decimal, error)

func (f SourceFunc) FetchActual(ctx context.Context, req Request) (decimal.Decimal, error) {
	return f(ctx, req)
}

// =============================================================================
// REGISTRY - Strategy table keyed by data-source kind
// =============================================================================

type Registry struct {
	sources map[kpi.SourceKind]Source
	retry   func() backoff.BackOff
}

// NewRegistry builds the standard strategy table from the collaborator
// interfaces. Nil collaborators simply leave their kinds unregistered.
func NewRegistry(leads LeadCounter, sales SalesLedger, attendance AttendanceProvider, manual ManualReadings) *Registry {
	r := &Registry{
		sources: make(map[kpi.SourceKind]Source),
		retry:   defaultRetry,
	}
	if leads != nil {
		r.Register(kpi.SourceLeadCount, SourceFunc(func(ctx context.Context, req Request) (decimal.Decimal, error) {
			n, err := leads.CountLeads(ctx, req.Employee, req.Window.Start, req.Window.End)
			return decimal.NewFromInt(n), err
		}))
	}
	if sales != nil {
		r.Register(kpi.SourceSaleCount, SourceFunc(func(ctx context.Context, req Request) (decimal.Decimal, error) {
			n, _, err := sales.CountAndSumSales(ctx, req.Employee, req.Window.Start, req.Window.End)
			return decimal.NewFromInt(n), err
		}))
		r.Register(kpi.SourceSaleAmount, SourceFunc(func(ctx context.Context, req Request) (decimal.Decimal, error) {
			_, revenue, err := sales.CountAndSumSales(ctx, req.Employee, req.Window.Start, req.Window.End)
			return revenue, err
		}))
	}
	if attendance != nil {
		r.Register(kpi.SourceAttendance, SourceFunc(func(ctx context.Context, req Request) (decimal.Decimal, error) {
			n, err := attendance.DaysPresent(ctx, req.Employee, req.Window.Start, req.Window.End)
			return decimal.NewFromInt(n), err
		}))
	}
	if manual != nil {
		r.Register(kpi.SourceManual, SourceFunc(func(ctx context.Context, req Request) (decimal.Decimal, error) {
			v, ok, err := manual.Reading(ctx, req.Employee, req.KPI.ID, req.PeriodKey)
			if err != nil {
				return decimal.Zero, err
			}
			if !ok {
				// Nothing entered yet for the period: actual is zero,
				// not an error.
				return decimal.Zero, nil
			}
			return v, nil
		}))
	}
	return r
}

// Register installs (or replaces) the source for a kind. Hosts use this
// to plug custom data sources into the table.
func (r *Registry) Register(kind kpi.SourceKind, s Source) {
	r.sources[kind] = s
}

// Fetch resolves the actual for the request's KPI, retrying transient
// collaborator failures.
func (r *Registry) Fetch(ctx context.Context, req Request) (decimal.Decimal, error) {
	src, ok := r.sources[req.KPI.DataSource.Kind]
	if !ok {
		return decimal.Zero, &scoring.UnknownSourceError{Kind: string(req.KPI.DataSource.Kind)}
	}

	var value decimal.Decimal
	op := func() error {
		var err error
		value, err = src.FetchActual(ctx, req)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(r.retry(), ctx)); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

func defaultRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// WithRetry overrides the retry policy (tests use backoff.Stop-style
// policies to avoid sleeping).
func (r *Registry) WithRetry(factory func() backoff.BackOff) *Registry {
	r.retry = factory
	return r
}
