/*
handlers_test.go - Router-level tests for the HTTP API

Tests drive the real router against an in-memory SQLite store:
- Employee directory round trip
- KPI authoring and validation errors
- Daily recalculation and summary reads
- PIP sweep and close flow
- Fleet report download
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/scoring"
	"github.com/warp/performance-engine/store/sqlite"
)

type testServer struct {
	store  *sqlite.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := perf.NewEngine(perf.EngineConfig{
		Catalog:    store,
		Resolver:   perf.NewTargetResolver(store, nil),
		Fetcher:    metrics.NewRegistry(store, store, store, store),
		Attendance: store,
		Directory:  store,
		Targets:    store,
		Records:    store,
		Summaries:  store,
	})
	manager := pip.NewManager(pip.ManagerConfig{
		Plans:     store,
		Records:   store,
		Summaries: store,
		Directory: store,
		Resolver:  pip.NewDefaultResolver(store),
	})

	h := NewHandler(store, engine, manager, nil)
	return &testServer{
		store:  store,
		router: NewRouter(h, []string{"http://localhost:8080"}),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const testKPIJSON = `{
	"id": "kpi-calls",
	"name": "Daily Calls",
	"role": "sales_executive",
	"frequency": "daily",
	"metric_type": "count",
	"thresholds": {"minimum": 2, "target": 5, "excellent": 10},
	"weight": 50,
	"data_source": {"kind": "manual"}
}`

func (ts *testServer) seedSalesExec(t *testing.T) {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID: "emp-1", Name: "Asha Rao", Role: "sales_executive", ManagerID: "mgr-9",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/kpis", bytes.NewBufferString(testKPIJSON))
	req.Header.Set("Content-Type", "application/json")
	kpiRec := httptest.NewRecorder()
	ts.router.ServeHTTP(kpiRec, req)
	require.Equal(t, http.StatusCreated, kpiRec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmployeeRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSalesExec(t)

	rec := ts.do(t, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "Asha Rao", emp.Name)
	assert.True(t, emp.Active)

	rec = ts.do(t, http.MethodGet, "/api/employees/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateKPI_RejectsMalformedThresholds(t *testing.T) {
	ts := newTestServer(t)

	bad := `{
		"id": "kpi-bad", "name": "Bad", "role": "sales_executive",
		"thresholds": {"minimum": 10, "target": 5, "excellent": 1},
		"weight": 50, "data_source": {"kind": "manual"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/kpis", bytes.NewBufferString(bad))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecalculateAndSummary(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSalesExec(t)
	ctx := context.Background()

	day := scoring.Day(time.Now().UTC())
	require.NoError(t, ts.store.SetManualReading(ctx, "emp-1", "kpi-calls",
		scoring.DateKey(day), decimal.NewFromInt(10), "admin"))

	rec := ts.do(t, http.MethodPost, "/api/employees/emp-1/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[perf.DailyResult](t, rec)
	require.False(t, result.Skipped)
	assert.InDelta(t, 100.0, result.Record.OverallScore, 0.001)

	rec = ts.do(t, http.MethodGet, "/api/employees/emp-1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[perf.PerformanceSummary](t, rec)
	assert.InDelta(t, 100.0, summary.CurrentRating, 0.001)

	rec = ts.do(t, http.MethodGet, "/api/employees/emp-1/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]perf.DailyPerformanceRecord](t, rec)
	assert.Len(t, records, 1)
}

func TestRecalculate_UnknownEmployee(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/employees/ghost/recalculate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPIPSweepAndClose(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSalesExec(t)
	ctx := context.Background()

	// Seven bad days on record.
	today := scoring.Day(time.Now().UTC())
	for i := 0; i < 7; i++ {
		day := today.AddDate(0, 0, -i)
		require.NoError(t, ts.store.UpsertRecord(ctx, perf.DailyPerformanceRecord{
			ID:         "rec-" + scoring.DateKey(day),
			EmployeeID: "emp-1",
			Date:       day,
			DateKey:    scoring.DateKey(day),
			Scores: []perf.KPIScore{
				{KPIID: "kpi-calls", KPIName: "Daily Calls", Score: 30},
			},
			OverallScore: 30,
			IsAutomated:  true,
			CreatedAt:    day,
			UpdatedAt:    day,
		}))
	}

	rec := ts.do(t, http.MethodPost, "/api/pips/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sweep := decode[SweepResultDTO](t, rec)
	assert.Equal(t, 1, sweep.NewPIPs)

	rec = ts.do(t, http.MethodGet, "/api/pips?employee=emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plans := decode[[]pip.Plan](t, rec)
	require.Len(t, plans, 1)
	assert.Equal(t, pip.SeverityCritical, plans[0].Severity)

	rec = ts.do(t, http.MethodPost, "/api/pips/"+plans[0].ID+"/close", CloseRequest{
		Result: "success", ClosedBy: "mgr-9",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	closed := decode[pip.Plan](t, rec)
	assert.Equal(t, pip.StatusCompletedSuccess, closed.Status)

	// Closing again conflicts.
	rec = ts.do(t, http.MethodPost, "/api/pips/"+plans[0].ID+"/close", CloseRequest{
		Result: "failure", ClosedBy: "mgr-9",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFleetReportDownload(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSalesExec(t)

	rec := ts.do(t, http.MethodGet, "/api/reports/fleet.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestOverrideTarget(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSalesExec(t)

	periodKey := scoring.DateKey(time.Now().UTC())
	rec := ts.do(t, http.MethodPut, "/api/employees/emp-1/targets", OverrideTargetRequest{
		KPIID: "kpi-calls", PeriodKey: periodKey,
		Minimum: 4, Target: 10, Excellent: 20,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	row, err := ts.store.GetTarget(context.Background(), "emp-1", "kpi-calls", periodKey)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NotNil(t, row.Override)
	assert.True(t, row.Override.Target.Equal(decimal.NewFromInt(10)))

	// Inverted band rejected.
	rec = ts.do(t, http.MethodPut, "/api/employees/emp-1/targets", OverrideTargetRequest{
		KPIID: "kpi-calls", PeriodKey: periodKey,
		Minimum: 20, Target: 10, Excellent: 4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
