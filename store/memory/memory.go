/*
Package memory provides in-memory store implementations (tests/dev).

PURPOSE:
  One Store implements every persistence interface the engine consumes
  (KPI catalog, targets, daily records, summaries, plans, directory) plus
  fixture-backed metric collaborators (leads, sales, attendance, manual
  readings), so engine and lifecycle tests run without a database.

CONCURRENCY:
  A single RWMutex guards all maps. Matches the persistence contract the
  engine relies on: upserts keyed by unique composite identifiers.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/scoring"
)

type targetKey struct {
	Employee  scoring.EmployeeID
	KPI       scoring.KPIID
	PeriodKey string
}

type recordKey struct {
	Employee scoring.EmployeeID
	DateKey  string
}

type manualKey struct {
	Employee  scoring.EmployeeID
	KPI       scoring.KPIID
	PeriodKey string
}

type saleEntry struct {
	At     time.Time
	Amount decimal.Decimal
}

// Store is the all-in-one in-memory backend.
type Store struct {
	mu sync.RWMutex

	kpis      map[scoring.KPIID]kpi.Definition
	targets   map[targetKey]perf.EmployeeTarget
	records   map[recordKey]perf.DailyPerformanceRecord
	summaries map[scoring.EmployeeID]perf.PerformanceSummary
	plans     map[string]pip.Plan
	employees map[scoring.EmployeeID]perf.Employee

	leads      map[scoring.EmployeeID][]time.Time
	sales      map[scoring.EmployeeID][]saleEntry
	attendance map[scoring.EmployeeID]map[string]metrics.AttendanceStatus
	manual     map[manualKey]decimal.Decimal
}

func New() *Store {
	return &Store{
		kpis:       make(map[scoring.KPIID]kpi.Definition),
		targets:    make(map[targetKey]perf.EmployeeTarget),
		records:    make(map[recordKey]perf.DailyPerformanceRecord),
		summaries:  make(map[scoring.EmployeeID]perf.PerformanceSummary),
		plans:      make(map[string]pip.Plan),
		employees:  make(map[scoring.EmployeeID]perf.Employee),
		leads:      make(map[scoring.EmployeeID][]time.Time),
		sales:      make(map[scoring.EmployeeID][]saleEntry),
		attendance: make(map[scoring.EmployeeID]map[string]metrics.AttendanceStatus),
		manual:     make(map[manualKey]decimal.Decimal),
	}
}

// =============================================================================
// KPI CATALOG
// =============================================================================

func (s *Store) ActiveForRole(_ context.Context, role kpi.Role) ([]kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []kpi.Definition
	for _, d := range s.kpis {
		if d.IsActive && d.Role == role {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Get(_ context.Context, id scoring.KPIID) (kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.kpis[id]
	if !ok {
		return kpi.Definition{}, scoring.ErrDefinitionNotFound
	}
	return d, nil
}

func (s *Store) List(_ context.Context) ([]kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]kpi.Definition, 0, len(s.kpis))
	for _, d := range s.kpis {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Save(_ context.Context, d kpi.Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis[d.ID] = d
	return nil
}

// =============================================================================
// TARGET STORE
// =============================================================================

func (s *Store) GetTarget(_ context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (*perf.EmployeeTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[targetKey{employee, id, periodKey}]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpsertTarget(_ context.Context, t perf.EmployeeTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[targetKey{t.EmployeeID, t.KPIID, t.PeriodKey}] = t
	return nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) UpsertRecord(_ context.Context, rec perf.DailyPerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{rec.EmployeeID, rec.DateKey}] = rec
	return nil
}

func (s *Store) GetRecord(_ context.Context, employee scoring.EmployeeID, dateKey string) (*perf.DailyPerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{employee, dateKey}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) ListRecords(_ context.Context, employee scoring.EmployeeID, from, to time.Time) ([]perf.DailyPerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to = scoring.Day(from), scoring.Day(to)
	var out []perf.DailyPerformanceRecord
	for key, r := range s.records {
		if key.Employee != employee {
			continue
		}
		d := scoring.Day(r.Date)
		if !d.Before(from) && !d.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// RecordCount reports how many daily records exist for an employee
// (idempotence assertions in tests).
func (s *Store) RecordCount(employee scoring.EmployeeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.records {
		if key.Employee == employee {
			n++
		}
	}
	return n
}

// =============================================================================
// SUMMARY STORE
// =============================================================================

func (s *Store) GetSummary(_ context.Context, employee scoring.EmployeeID) (*perf.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[employee]
	if !ok {
		return nil, nil
	}
	return &sum, nil
}

func (s *Store) UpsertSummary(_ context.Context, sum perf.PerformanceSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.EmployeeID] = sum
	return nil
}

func (s *Store) ListSummaries(_ context.Context) ([]perf.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]perf.PerformanceSummary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

func (s *Store) SavePlan(_ context.Context, p pip.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (*pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ActivePlan(_ context.Context, employee scoring.EmployeeID) (*pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.EmployeeID == employee && p.Status.Open() {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPlans(_ context.Context, employee scoring.EmployeeID) ([]pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []pip.Plan
	for _, p := range s.plans {
		if p.EmployeeID == employee {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// DIRECTORY + STAFF LOOKUP
// =============================================================================

func (s *Store) AddEmployee(e perf.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) GetEmployee(_ context.Context, id scoring.EmployeeID) (*perf.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ActiveEligible(_ context.Context) ([]perf.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make(map[string]bool)
	for _, d := range s.kpis {
		if d.IsActive {
			rolesKey := string(d.Role)
			roles[rolesKey] = true
		}
	}
	var out []perf.Employee
	for _, e := range s.employees {
		if e.Active && roles[e.Role] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ManagerOf(_ context.Context, id scoring.EmployeeID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.employees[id]; ok {
		return e.ManagerID, nil
	}
	return "", nil
}

func (s *Store) AnyActiveIn(_ context.Context, roles []string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}
	var ids []string
	for _, e := range s.employees {
		if e.Active && wanted[e.Role] {
			ids = append(ids, string(e.ID))
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[0], nil
}

// =============================================================================
// METRIC COLLABORATOR FIXTURES
// =============================================================================

func (s *Store) AddLead(employee scoring.EmployeeID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[employee] = append(s.leads[employee], scoring.Day(at))
}

func (s *Store) CountLeads(_ context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, at := range s.leads[employee] {
		if !at.Before(scoring.Day(start)) && !at.After(scoring.Day(end)) {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddSale(employee scoring.EmployeeID, at time.Time, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[employee] = append(s.sales[employee], saleEntry{At: scoring.Day(at), Amount: amount})
}

func (s *Store) CountAndSumSales(_ context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	sum := decimal.Zero
	for _, sale := range s.sales[employee] {
		if !sale.At.Before(scoring.Day(start)) && !sale.At.After(scoring.Day(end)) {
			n++
			sum = sum.Add(sale.Amount)
		}
	}
	return n, sum, nil
}

func (s *Store) SetAttendance(employee scoring.EmployeeID, date time.Time, status metrics.AttendanceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attendance[employee] == nil {
		s.attendance[employee] = make(map[string]metrics.AttendanceStatus)
	}
	s.attendance[employee][scoring.DateKey(date)] = status
}

func (s *Store) Status(_ context.Context, employee scoring.EmployeeID, date time.Time) (metrics.AttendanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.attendance[employee][scoring.DateKey(date)]; ok {
		return st, nil
	}
	return metrics.AttendanceUnknown, nil
}

func (s *Store) DaysPresent(_ context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key, st := range s.attendance[employee] {
		if st != metrics.AttendancePresent {
			continue
		}
		d, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		if !d.Before(scoring.Day(start)) && !d.After(scoring.Day(end)) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetManualReading(employee scoring.EmployeeID, id scoring.KPIID, periodKey string, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual[manualKey{employee, id, periodKey}] = value
}

func (s *Store) Reading(_ context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.manual[manualKey{employee, id, periodKey}]
	return v, ok, nil
}

// Compile-time interface checks.
var (
	_ kpi.Catalog                = (*Store)(nil)
	_ perf.TargetStore           = (*Store)(nil)
	_ perf.RecordStore           = (*Store)(nil)
	_ perf.SummaryStore          = (*Store)(nil)
	_ perf.Directory             = (*Store)(nil)
	_ pip.Store                  = (*Store)(nil)
	_ pip.StaffLookup            = (*Store)(nil)
	_ metrics.LeadCounter        = (*Store)(nil)
	_ metrics.SalesLedger        = (*Store)(nil)
	_ metrics.AttendanceProvider = (*Store)(nil)
	_ metrics.ManualReadings     = (*Store)(nil)
)
