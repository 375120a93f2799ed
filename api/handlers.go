/*
handlers.go - HTTP API handlers for the performance engine

PURPOSE:
  Exposes the scoring engine and PIP lifecycle via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List directory
    POST   /api/employees                       Create/update employee
    GET    /api/employees/{id}                  Get employee
    POST   /api/employees/{id}/recalculate      Score one day (?date=)
    POST   /api/employees/{id}/summary/rebuild  Recompute summary
    GET    /api/employees/{id}/summary          Get summary
    GET    /api/employees/{id}/records          Daily records (?from=&to=)
    PUT    /api/employees/{id}/targets          Set threshold override

  KPIs:
    GET    /api/kpis                            List (?role= filters)
    POST   /api/kpis                            Author from JSON

  Improvement plans:
    POST   /api/pips/sweep                      Fleet trigger pass
    GET    /api/pips                            Plans (?employee=)
    GET    /api/pips/{id}                       Get plan
    POST   /api/pips/{id}/reviews               Append weekly review
    POST   /api/pips/{id}/extend                Extend deadline
    POST   /api/pips/{id}/close                 Close with verdict

  Reports:
    GET    /api/reports/fleet.xlsx              Excel export

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (plan not open, plan already active)
  - 500: Internal errors

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/warp/performance-engine/factory"
	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/report"
	"github.com/warp/performance-engine/scoring"
	"github.com/warp/performance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *perf.Engine
	Manager *pip.Manager
	Report  *report.FleetReport
	Log     *logrus.Entry

	clock func() time.Time
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, engine *perf.Engine, manager *pip.Manager, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		Store:   store,
		Engine:  engine,
		Manager: manager,
		Report:  &report.FleetReport{Summaries: store, Directory: store},
		Log:     log.WithField("component", "api"),
		clock:   time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the directory.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

// CreateEmployee registers or updates a directory row.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.Role == "" {
		h.writeError(w, r, http.StatusBadRequest, "id, name and role are required", nil)
		return
	}

	emp := perf.Employee{
		ID:        scoring.EmployeeID(req.ID),
		Name:      req.Name,
		Role:      req.Role,
		ManagerID: req.ManagerID,
		Active:    req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toEmployeeDTO(emp))
}

// GetEmployee returns a single directory row.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		h.writeError(w, r, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, toEmployeeDTO(*emp))
}

// =============================================================================
// SCORING HANDLERS
// =============================================================================

// Recalculate scores one employee for one day (?date=YYYY-MM-DD,
// default today) and returns the daily result.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))

	date, err := parseDay(r.URL.Query().Get("date"), h.clock().UTC())
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Engine.CalculateEmployeePerformance(r.Context(), id, date)
	if err != nil {
		if errors.Is(err, scoring.ErrEmployeeNotFound) {
			h.writeError(w, r, http.StatusNotFound, "Employee not found", err)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// RebuildSummary recomputes the summary projection from daily records.
func (h *Handler) RebuildSummary(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))

	summary, err := h.Engine.UpdatePerformanceSummary(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Summary rebuild failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// GetSummary returns the stored summary projection.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))

	summary, err := h.Store.GetSummary(r.Context(), id)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to get summary", err)
		return
	}
	if summary == nil {
		h.writeError(w, r, http.StatusNotFound, "No summary for employee", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// GetRecords returns daily records in a date range (default: trailing
// 30 days).
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))
	now := h.clock().UTC()

	to, err := parseDay(r.URL.Query().Get("to"), now)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	from, err := parseDay(r.URL.Query().Get("from"), scoring.Day(to).AddDate(0, 0, -29))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}

	records, err := h.Store.ListRecords(r.Context(), id, from, to)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list records", err)
		return
	}
	if records == nil {
		records = []perf.DailyPerformanceRecord{}
	}
	writeJSON(w, r, http.StatusOK, records)
}

// OverrideTarget sets a per-employee threshold band for one KPI period.
func (h *Handler) OverrideTarget(w http.ResponseWriter, r *http.Request) {
	id := scoring.EmployeeID(chi.URLParam(r, "id"))

	var req OverrideTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.KPIID == "" || req.PeriodKey == "" {
		h.writeError(w, r, http.StatusBadRequest, "kpiId and periodKey are required", nil)
		return
	}

	override := scoring.NewThresholds(req.Minimum, req.Target, req.Excellent)
	if err := override.Validate(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid threshold band", err)
		return
	}

	ctx := r.Context()
	row := perf.EmployeeTarget{
		EmployeeID: id,
		KPIID:      scoring.KPIID(req.KPIID),
		PeriodKey:  req.PeriodKey,
	}
	// Keep the observed snapshot if the row already exists.
	if existing, err := h.Store.GetTarget(ctx, id, row.KPIID, req.PeriodKey); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load target", err)
		return
	} else if existing != nil {
		row = *existing
	}
	row.Override = &override

	if err := h.Store.UpsertTarget(ctx, row); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save target", err)
		return
	}
	writeJSON(w, r, http.StatusOK, row)
}

// =============================================================================
// KPI HANDLERS
// =============================================================================

// ListKPIs returns definitions, optionally filtered by ?role=.
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		defs []kpi.Definition
		err  error
	)
	if role := r.URL.Query().Get("role"); role != "" {
		defs, err = h.Store.ActiveForRole(ctx, kpi.Role(role))
	} else {
		defs, err = h.Store.List(ctx)
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list KPIs", err)
		return
	}

	out := make([]factory.KPIJSON, len(defs))
	for i, d := range defs {
		out[i] = factory.ToJSON(d)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// CreateKPI authors a definition from factory JSON.
func (h *Handler) CreateKPI(w http.ResponseWriter, r *http.Request) {
	var j factory.KPIJSON
	if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := factory.FromJSON(j)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid KPI definition", err)
		return
	}
	if err := h.Store.Save(r.Context(), def); err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save KPI", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, factory.ToJSON(def))
}

// =============================================================================
// PIP HANDLERS
// =============================================================================

// SweepPIPs runs the fleet-wide trigger pass.
func (h *Handler) SweepPIPs(w http.ResponseWriter, r *http.Request) {
	result, err := h.Manager.CheckAndTriggerPIPs(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSweepDTO(result))
}

// ListPIPs returns plans for ?employee=.
func (h *Handler) ListPIPs(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee")
	if employee == "" {
		h.writeError(w, r, http.StatusBadRequest, "employee query parameter is required", nil)
		return
	}

	plans, err := h.Store.ListPlans(r.Context(), scoring.EmployeeID(employee))
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}
	if plans == nil {
		plans = []pip.Plan{}
	}
	writeJSON(w, r, http.StatusOK, plans)
}

// GetPIP returns one plan document.
func (h *Handler) GetPIP(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if plan == nil {
		h.writeError(w, r, http.StatusNotFound, "Plan not found", nil)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// AddReview appends a weekly review to an open plan.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, err := h.Manager.AppendWeeklyReview(r.Context(), chi.URLParam(r, "id"), pip.WeeklyReview{
		ReviewerID: req.ReviewerID,
		Progress:   req.Progress,
		Score:      req.Score,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// ExtendPIP pushes an open plan's deadline out.
func (h *Handler) ExtendPIP(w http.ResponseWriter, r *http.Request) {
	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Days <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "days must be positive", nil)
		return
	}

	plan, err := h.Manager.Extend(r.Context(), chi.URLParam(r, "id"), req.Days)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// ClosePIP finishes a plan with the manager's verdict.
func (h *Handler) ClosePIP(w http.ResponseWriter, r *http.Request) {
	var req CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := pip.CloseResult(req.Result)
	switch result {
	case pip.ResultSuccess, pip.ResultFailure, pip.ResultCancelled:
	default:
		h.writeError(w, r, http.StatusBadRequest, "result must be success, failure or cancelled", nil)
		return
	}

	plan, err := h.Manager.Close(r.Context(), chi.URLParam(r, "id"), result, req.ClosedBy, req.FinalNotes)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// FleetReport streams the Excel export.
func (h *Handler) FleetReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.Report.Generate(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "Report generation failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.Report.Filename(h.clock())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
		if status >= http.StatusInternalServerError {
			h.Log.WithError(err).WithField("path", r.URL.Path).Error(msg)
		}
	}
	writeJSON(w, r, status, resp)
}

// writePlanError maps plan lifecycle errors onto HTTP statuses.
func (h *Handler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scoring.ErrPlanNotFound):
		h.writeError(w, r, http.StatusNotFound, "Plan not found", err)
	case errors.Is(err, scoring.ErrPlanNotOpen):
		h.writeError(w, r, http.StatusConflict, "Plan is not open", err)
	case errors.Is(err, scoring.ErrActivePlanExists):
		h.writeError(w, r, http.StatusConflict, "Employee already has an open plan", err)
	default:
		h.writeError(w, r, http.StatusInternalServerError, "Plan operation failed", err)
	}
}
