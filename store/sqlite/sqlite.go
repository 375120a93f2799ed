/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface the engine consumes using
  SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  kpi.Catalog:        KPI definitions (config stored as JSON)
  perf.TargetStore:   Per-employee period target rows
  perf.RecordStore:   Daily performance records
  perf.SummaryStore:  One-per-employee summary projections
  perf.Directory:     Employee identity/role reads
  pip.Store:          Improvement plan documents
  pip.StaffLookup:    Manager/escalation resolution
  metrics.*:          Lead, sale, attendance and manual-reading sources

UPSERT KEYS:
  daily_records:     UNIQUE(employee_id, date_key)
  employee_targets:  UNIQUE(employee_id, kpi_id, period_key)
  summaries:         PRIMARY KEY(employee_id)
  Writes go through ON CONFLICT DO UPDATE so recalculation converges
  instead of growing duplicate rows.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/performance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - perf/stores.go: Interface definitions
  - store/memory:   In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/scoring"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (identity/role directory)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		manager_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_role
		ON employees(role) WHERE active;

	-- KPI definitions (thresholds/source config as JSON)
	CREATE TABLE IF NOT EXISTS kpi_definitions (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kpi_definitions_role
		ON kpi_definitions(role) WHERE is_active;

	-- Per-employee period targets: override config + observed snapshot
	CREATE TABLE IF NOT EXISTS employee_targets (
		employee_id TEXT NOT NULL,
		kpi_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		override_json TEXT,
		snapshot_json TEXT NOT NULL,
		PRIMARY KEY (employee_id, kpi_id, period_key)
	);

	-- Daily performance records, one per employee per day
	CREATE TABLE IF NOT EXISTS daily_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		date_key TEXT NOT NULL,
		scores_json TEXT NOT NULL,
		overall_score REAL NOT NULL,
		rating_tier TEXT NOT NULL,
		stars INTEGER NOT NULL,
		is_automated BOOLEAN NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (employee_id, date_key)
	);

	-- Trailing-window scans are the hot path (summaries, trigger rules)
	CREATE INDEX IF NOT EXISTS idx_daily_records_employee_date
		ON daily_records(employee_id, date DESC);

	-- Performance summaries, one per employee
	CREATE TABLE IF NOT EXISTS performance_summaries (
		employee_id TEXT PRIMARY KEY,
		current_rating REAL NOT NULL,
		rating_tier TEXT NOT NULL,
		stars INTEGER NOT NULL,
		streak_json TEXT NOT NULL,
		averages_json TEXT NOT NULL,
		is_pip BOOLEAN NOT NULL DEFAULT FALSE,
		pip_details_json TEXT,
		updated_at TEXT NOT NULL
	);

	-- Improvement plan documents
	CREATE TABLE IF NOT EXISTS pips (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		status TEXT NOT NULL,
		severity TEXT NOT NULL,
		trigger_reason TEXT NOT NULL,
		is_automatic BOOLEAN NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		duration_days INTEGER NOT NULL,
		goals_json TEXT NOT NULL,
		reviews_json TEXT NOT NULL,
		outcome_json TEXT,
		assigned_manager TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pips_employee
		ON pips(employee_id);
	CREATE INDEX IF NOT EXISTS idx_pips_open
		ON pips(employee_id, status) WHERE status IN ('active', 'extended');

	-- Metric sources: raw transactional rows the scoring reads
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		created_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leads_employee_date
		ON leads(employee_id, created_date);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		closed_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_employee_date
		ON sales(employee_id, closed_date);

	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL,
		date_key TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (employee_id, date_key)
	);

	CREATE TABLE IF NOT EXISTS manual_readings (
		employee_id TEXT NOT NULL,
		kpi_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		value TEXT NOT NULL,
		entered_by TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, kpi_id, period_key)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

const dayFormat = "2006-01-02"

// =============================================================================
// EMPLOYEE DIRECTORY (perf.Directory, pip.StaffLookup)
// =============================================================================

// SaveEmployee upserts a directory row.
func (s *Store) SaveEmployee(ctx context.Context, emp perf.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, role, manager_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			manager_id = excluded.manager_id,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Role, nullString(emp.ManagerID), emp.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id scoring.EmployeeID) (*perf.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		emp     perf.Employee
		manager sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, role, manager_id, active FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &emp.Role, &manager, &emp.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	emp.ManagerID = manager.String
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]perf.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEmployees(ctx,
		"SELECT id, name, role, manager_id, active FROM employees ORDER BY id")
}

// ActiveEligible returns active employees whose role has at least one
// active KPI - the fleet a batch sweep iterates.
func (s *Store) ActiveEligible(ctx context.Context) ([]perf.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT e.id, e.name, e.role, e.manager_id, e.active
		FROM employees e
		WHERE e.active
		  AND EXISTS (
			SELECT 1 FROM kpi_definitions k
			WHERE k.role = e.role AND k.is_active
		  )
		ORDER BY e.id
	`
	return s.queryEmployees(ctx, query)
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]perf.Employee, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []perf.Employee
	for rows.Next() {
		var (
			emp     perf.Employee
			manager sql.NullString
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &manager, &emp.Active); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		emp.ManagerID = manager.String
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) ManagerOf(ctx context.Context, employee scoring.EmployeeID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var manager sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT manager_id FROM employees WHERE id = ?", employee,
	).Scan(&manager)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get manager: %w", err)
	}
	return manager.String, nil
}

func (s *Store) AnyActiveIn(ctx context.Context, roles []string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(roles) == 0 {
		return "", nil
	}
	query := "SELECT id FROM employees WHERE active AND role IN (?" +
		repeatPlaceholder(len(roles)-1) + ") ORDER BY id LIMIT 1"
	args := make([]any, len(roles))
	for i, r := range roles {
		args[i] = r
	}

	var id string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find fallback manager: %w", err)
	}
	return id, nil
}

// =============================================================================
// KPI CATALOG (kpi.Catalog)
// =============================================================================

// kpiConfig is the JSON body stored per definition: everything except
// the indexed columns.
type kpiConfig struct {
	Metric     scoring.MetricType `json:"metricType"`
	Frequency  scoring.Frequency  `json:"frequency"`
	Thresholds scoring.Thresholds `json:"thresholds"`
	Weight     float64            `json:"weight"`
	DataSource kpi.DataSource     `json:"dataSource"`
}

func (s *Store) Save(ctx context.Context, d kpi.Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(kpiConfig{
		Metric:     d.Metric,
		Frequency:  d.Frequency,
		Thresholds: d.Thresholds,
		Weight:     d.Weight,
		DataSource: d.DataSource,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal kpi config: %w", err)
	}

	query := `
		INSERT INTO kpi_definitions (id, role, name, config_json, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			role = excluded.role,
			name = excluded.name,
			config_json = excluded.config_json,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.Role, d.Name, string(configJSON), d.IsActive,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save kpi definition: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id scoring.KPIID) (kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, role, name, config_json, is_active FROM kpi_definitions WHERE id = ?", id)
	def, err := scanKPI(row)
	if err == sql.ErrNoRows {
		return kpi.Definition{}, scoring.ErrDefinitionNotFound
	}
	return def, err
}

func (s *Store) ActiveForRole(ctx context.Context, role kpi.Role) ([]kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryKPIs(ctx,
		"SELECT id, role, name, config_json, is_active FROM kpi_definitions WHERE role = ? AND is_active ORDER BY id",
		role)
}

func (s *Store) List(ctx context.Context) ([]kpi.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryKPIs(ctx,
		"SELECT id, role, name, config_json, is_active FROM kpi_definitions ORDER BY id")
}

func (s *Store) queryKPIs(ctx context.Context, query string, args ...any) ([]kpi.Definition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query kpi definitions: %w", err)
	}
	defer rows.Close()

	var out []kpi.Definition
	for rows.Next() {
		def, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKPI(row rowScanner) (kpi.Definition, error) {
	var (
		def        kpi.Definition
		configJSON string
	)
	if err := row.Scan(&def.ID, &def.Role, &def.Name, &configJSON, &def.IsActive); err != nil {
		return def, err
	}

	var cfg kpiConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return def, fmt.Errorf("failed to unmarshal kpi config: %w", err)
	}
	def.Metric = cfg.Metric
	def.Frequency = cfg.Frequency
	def.Thresholds = cfg.Thresholds
	def.Weight = cfg.Weight
	def.DataSource = cfg.DataSource
	return def, nil
}

// =============================================================================
// TARGET STORE (perf.TargetStore)
// =============================================================================

func (s *Store) UpsertTarget(ctx context.Context, t perf.EmployeeTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshotJSON, err := json.Marshal(t.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal target snapshot: %w", err)
	}
	var overrideJSON sql.NullString
	if t.Override != nil {
		b, err := json.Marshal(t.Override)
		if err != nil {
			return fmt.Errorf("failed to marshal target override: %w", err)
		}
		overrideJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO employee_targets
			(employee_id, kpi_id, period_key, period_start, period_end, override_json, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, kpi_id, period_key) DO UPDATE SET
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			override_json = excluded.override_json,
			snapshot_json = excluded.snapshot_json
	`
	_, err = s.db.ExecContext(ctx, query,
		t.EmployeeID, t.KPIID, t.PeriodKey,
		t.Period.Start.Format(dayFormat), t.Period.End.Format(dayFormat),
		overrideJSON, string(snapshotJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert target: %w", err)
	}
	return nil
}

func (s *Store) GetTarget(ctx context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (*perf.EmployeeTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		t            perf.EmployeeTarget
		start, end   string
		overrideJSON sql.NullString
		snapshotJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT employee_id, kpi_id, period_key, period_start, period_end, override_json, snapshot_json
		FROM employee_targets
		WHERE employee_id = ? AND kpi_id = ? AND period_key = ?`,
		employee, id, periodKey,
	).Scan(&t.EmployeeID, &t.KPIID, &t.PeriodKey, &start, &end, &overrideJSON, &snapshotJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}

	t.Period.Start, _ = time.Parse(dayFormat, start)
	t.Period.End, _ = time.Parse(dayFormat, end)
	if overrideJSON.Valid {
		var o scoring.Thresholds
		if err := json.Unmarshal([]byte(overrideJSON.String), &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal target override: %w", err)
		}
		t.Override = &o
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &t.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target snapshot: %w", err)
	}
	return &t, nil
}

// =============================================================================
// RECORD STORE (perf.RecordStore)
// =============================================================================

func (s *Store) UpsertRecord(ctx context.Context, rec perf.DailyPerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scoresJSON, err := json.Marshal(rec.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	query := `
		INSERT INTO daily_records
			(id, employee_id, date, date_key, scores_json, overall_score,
			 rating_tier, stars, is_automated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, date_key) DO UPDATE SET
			scores_json = excluded.scores_json,
			overall_score = excluded.overall_score,
			rating_tier = excluded.rating_tier,
			stars = excluded.stars,
			is_automated = excluded.is_automated,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, rec.Date.Format(dayFormat), rec.DateKey,
		string(scoresJSON), rec.OverallScore, rec.Tier, rec.Stars, rec.IsAutomated,
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily record: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, employee scoring.EmployeeID, dateKey string) (*perf.DailyPerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.queryRecords(ctx, `
		SELECT id, employee_id, date, date_key, scores_json, overall_score,
		       rating_tier, stars, is_automated, created_at, updated_at
		FROM daily_records
		WHERE employee_id = ? AND date_key = ?`,
		employee, dateKey)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Store) ListRecords(ctx context.Context, employee scoring.EmployeeID, from, to time.Time) ([]perf.DailyPerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx, `
		SELECT id, employee_id, date, date_key, scores_json, overall_score,
		       rating_tier, stars, is_automated, created_at, updated_at
		FROM daily_records
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		employee, scoring.Day(from).Format(dayFormat), scoring.Day(to).Format(dayFormat))
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]perf.DailyPerformanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily records: %w", err)
	}
	defer rows.Close()

	var out []perf.DailyPerformanceRecord
	for rows.Next() {
		var (
			rec                  perf.DailyPerformanceRecord
			date                 string
			scoresJSON           string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &date, &rec.DateKey, &scoresJSON,
			&rec.OverallScore, &rec.Tier, &rec.Stars, &rec.IsAutomated,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		rec.Date, _ = time.Parse(dayFormat, date)
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		if err := json.Unmarshal([]byte(scoresJSON), &rec.Scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// SUMMARY STORE (perf.SummaryStore)
// =============================================================================

func (s *Store) UpsertSummary(ctx context.Context, sum perf.PerformanceSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	streakJSON, err := json.Marshal(sum.Streak)
	if err != nil {
		return fmt.Errorf("failed to marshal streak: %w", err)
	}
	averagesJSON, err := json.Marshal(sum.Averages)
	if err != nil {
		return fmt.Errorf("failed to marshal averages: %w", err)
	}
	var detailsJSON sql.NullString
	if sum.PIPDetails != nil {
		b, err := json.Marshal(sum.PIPDetails)
		if err != nil {
			return fmt.Errorf("failed to marshal pip details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO performance_summaries
			(employee_id, current_rating, rating_tier, stars, streak_json,
			 averages_json, is_pip, pip_details_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id) DO UPDATE SET
			current_rating = excluded.current_rating,
			rating_tier = excluded.rating_tier,
			stars = excluded.stars,
			streak_json = excluded.streak_json,
			averages_json = excluded.averages_json,
			is_pip = excluded.is_pip,
			pip_details_json = excluded.pip_details_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		sum.EmployeeID, sum.CurrentRating, sum.Tier, sum.Stars,
		string(streakJSON), string(averagesJSON), sum.IsPIP, detailsJSON,
		sum.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

func (s *Store) GetSummary(ctx context.Context, employee scoring.EmployeeID) (*perf.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, current_rating, rating_tier, stars, streak_json,
		       averages_json, is_pip, pip_details_json, updated_at
		FROM performance_summaries WHERE employee_id = ?`, employee)

	sum, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) ListSummaries(ctx context.Context) ([]perf.PerformanceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, current_rating, rating_tier, stars, streak_json,
		       averages_json, is_pip, pip_details_json, updated_at
		FROM performance_summaries ORDER BY employee_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []perf.PerformanceSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, rows.Err()
}

func scanSummary(row rowScanner) (*perf.PerformanceSummary, error) {
	var (
		sum          perf.PerformanceSummary
		streakJSON   string
		averagesJSON string
		detailsJSON  sql.NullString
		updatedAt    string
	)
	err := row.Scan(&sum.EmployeeID, &sum.CurrentRating, &sum.Tier, &sum.Stars,
		&streakJSON, &averagesJSON, &sum.IsPIP, &detailsJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}

	if err := json.Unmarshal([]byte(streakJSON), &sum.Streak); err != nil {
		return nil, fmt.Errorf("failed to unmarshal streak: %w", err)
	}
	if err := json.Unmarshal([]byte(averagesJSON), &sum.Averages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal averages: %w", err)
	}
	if detailsJSON.Valid {
		var d perf.PIPDetails
		if err := json.Unmarshal([]byte(detailsJSON.String), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pip details: %w", err)
		}
		sum.PIPDetails = &d
	}
	sum.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &sum, nil
}

// =============================================================================
// PLAN STORE (pip.Store)
// =============================================================================

func (s *Store) SavePlan(ctx context.Context, p pip.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	goalsJSON, err := json.Marshal(p.Goals)
	if err != nil {
		return fmt.Errorf("failed to marshal goals: %w", err)
	}
	reviewsJSON, err := json.Marshal(p.WeeklyReviews)
	if err != nil {
		return fmt.Errorf("failed to marshal reviews: %w", err)
	}
	var outcomeJSON sql.NullString
	if p.Outcome != nil {
		b, err := json.Marshal(p.Outcome)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome: %w", err)
		}
		outcomeJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO pips
			(id, employee_id, status, severity, trigger_reason, is_automatic,
			 start_date, end_date, duration_days, goals_json, reviews_json,
			 outcome_json, assigned_manager, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			severity = excluded.severity,
			trigger_reason = excluded.trigger_reason,
			is_automatic = excluded.is_automatic,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			duration_days = excluded.duration_days,
			goals_json = excluded.goals_json,
			reviews_json = excluded.reviews_json,
			outcome_json = excluded.outcome_json,
			assigned_manager = excluded.assigned_manager,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.EmployeeID, p.Status, p.Severity, p.TriggerReason, p.IsAutomatic,
		p.StartDate.Format(time.RFC3339), p.EndDate.Format(time.RFC3339), p.DurationDays,
		string(goalsJSON), string(reviewsJSON), outcomeJSON,
		nullString(p.AssignedManager),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans, err := s.queryPlans(ctx, planSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func (s *Store) ActivePlan(ctx context.Context, employee scoring.EmployeeID) (*pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans, err := s.queryPlans(ctx,
		planSelect+" WHERE employee_id = ? AND status IN ('active', 'extended') LIMIT 1",
		employee)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func (s *Store) ListPlans(ctx context.Context, employee scoring.EmployeeID) ([]pip.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPlans(ctx,
		planSelect+" WHERE employee_id = ? ORDER BY created_at DESC", employee)
}

const planSelect = `
	SELECT id, employee_id, status, severity, trigger_reason, is_automatic,
	       start_date, end_date, duration_days, goals_json, reviews_json,
	       outcome_json, assigned_manager, created_at, updated_at
	FROM pips`

func (s *Store) queryPlans(ctx context.Context, query string, args ...any) ([]pip.Plan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var out []pip.Plan
	for rows.Next() {
		var (
			p                    pip.Plan
			startDate, endDate   string
			goalsJSON            string
			reviewsJSON          string
			outcomeJSON          sql.NullString
			manager              sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.Status, &p.Severity, &p.TriggerReason,
			&p.IsAutomatic, &startDate, &endDate, &p.DurationDays,
			&goalsJSON, &reviewsJSON, &outcomeJSON, &manager,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.StartDate, _ = time.Parse(time.RFC3339, startDate)
		p.EndDate, _ = time.Parse(time.RFC3339, endDate)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		p.AssignedManager = manager.String
		if err := json.Unmarshal([]byte(goalsJSON), &p.Goals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goals: %w", err)
		}
		if err := json.Unmarshal([]byte(reviewsJSON), &p.WeeklyReviews); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reviews: %w", err)
		}
		if outcomeJSON.Valid {
			var o pip.Outcome
			if err := json.Unmarshal([]byte(outcomeJSON.String), &o); err != nil {
				return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
			}
			p.Outcome = &o
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// METRIC SOURCES (metrics.LeadCounter, SalesLedger, AttendanceProvider,
// ManualReadings) - plus write helpers for ingestion/seeding
// =============================================================================

func (s *Store) AddLead(ctx context.Context, id string, employee scoring.EmployeeID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO leads (id, employee_id, created_date) VALUES (?, ?, ?)",
		id, employee, scoring.Day(at).Format(dayFormat))
	if err != nil {
		return fmt.Errorf("failed to add lead: %w", err)
	}
	return nil
}

func (s *Store) CountLeads(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE employee_id = ? AND created_date >= ? AND created_date <= ?",
		employee, scoring.Day(start).Format(dayFormat), scoring.Day(end).Format(dayFormat),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

func (s *Store) AddSale(ctx context.Context, id string, employee scoring.EmployeeID, at time.Time, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sales (id, employee_id, amount, closed_date) VALUES (?, ?, ?, ?)",
		id, employee, amount.String(), scoring.Day(at).Format(dayFormat))
	if err != nil {
		return fmt.Errorf("failed to add sale: %w", err)
	}
	return nil
}

func (s *Store) CountAndSumSales(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Amounts are stored as decimal strings; summing happens in Go to
	// keep exact arithmetic.
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM sales WHERE employee_id = ? AND closed_date >= ? AND closed_date <= ?",
		employee, scoring.Day(start).Format(dayFormat), scoring.Day(end).Format(dayFormat))
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var count int64
	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return 0, decimal.Zero, fmt.Errorf("failed to scan sale: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("failed to parse sale amount %q: %w", amount, err)
		}
		count++
		sum = sum.Add(d)
	}
	return count, sum, rows.Err()
}

func (s *Store) SetAttendance(ctx context.Context, employee scoring.EmployeeID, date time.Time, status metrics.AttendanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (employee_id, date_key, status)
		VALUES (?, ?, ?)
		ON CONFLICT (employee_id, date_key) DO UPDATE SET status = excluded.status`,
		employee, scoring.DateKey(date), status)
	if err != nil {
		return fmt.Errorf("failed to set attendance: %w", err)
	}
	return nil
}

func (s *Store) Status(ctx context.Context, employee scoring.EmployeeID, date time.Time) (metrics.AttendanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status metrics.AttendanceStatus
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM attendance WHERE employee_id = ? AND date_key = ?",
		employee, scoring.DateKey(date),
	).Scan(&status)
	if err == sql.ErrNoRows {
		return metrics.AttendanceUnknown, nil
	}
	if err != nil {
		return metrics.AttendanceUnknown, fmt.Errorf("failed to get attendance: %w", err)
	}
	return status, nil
}

func (s *Store) DaysPresent(ctx context.Context, employee scoring.EmployeeID, start, end time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE employee_id = ? AND status = ? AND date_key >= ? AND date_key <= ?`,
		employee, metrics.AttendancePresent,
		scoring.DateKey(start), scoring.DateKey(end),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}

func (s *Store) SetManualReading(ctx context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string, value decimal.Decimal, enteredBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_readings (employee_id, kpi_id, period_key, value, entered_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, kpi_id, period_key) DO UPDATE SET
			value = excluded.value,
			entered_by = excluded.entered_by,
			updated_at = excluded.updated_at`,
		employee, id, periodKey, value.String(), nullString(enteredBy),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set manual reading: %w", err)
	}
	return nil
}

func (s *Store) Reading(ctx context.Context, employee scoring.EmployeeID, id scoring.KPIID, periodKey string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM manual_readings WHERE employee_id = ? AND kpi_id = ? AND period_key = ?",
		employee, id, periodKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get manual reading: %w", err)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse manual reading %q: %w", value, err)
	}
	return d, true, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Reset clears all data (testing only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"employees", "kpi_definitions", "employee_targets", "daily_records",
		"performance_summaries", "pips", "leads", "sales", "attendance",
		"manual_readings",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// repeatPlaceholder returns n copies of ", ?" for IN clauses.
func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
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
