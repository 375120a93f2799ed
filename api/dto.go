/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/kpi.go: KPIJSON, the KPI authoring contract
*/
package api

import (
	"time"

	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents a directory row in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ManagerID string `json:"managerId,omitempty"`
	Active    bool   `json:"active"`
}

// CreateEmployeeRequest registers or updates a directory row.
type CreateEmployeeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ManagerID string `json:"managerId"`
	Active    *bool  `json:"active"` // nil = true
}

// OverrideTargetRequest sets a per-employee threshold band for one KPI
// period.
type OverrideTargetRequest struct {
	KPIID     string  `json:"kpiId"`
	PeriodKey string  `json:"periodKey"`
	Minimum   float64 `json:"minimum"`
	Target    float64 `json:"target"`
	Excellent float64 `json:"excellent"`
}

// ReviewRequest is a manager's weekly checkpoint on an open plan.
type ReviewRequest struct {
	ReviewerID string  `json:"reviewerId"`
	Progress   string  `json:"progress"`
	Score      float64 `json:"score"`
	Notes      string  `json:"notes"`
}

// CloseRequest finishes a plan with a verdict.
type CloseRequest struct {
	Result     string `json:"result"` // success | failure | cancelled
	ClosedBy   string `json:"closedBy"`
	FinalNotes string `json:"finalNotes"`
}

// ExtendRequest pushes an open plan's deadline out.
type ExtendRequest struct {
	Days int `json:"days"`
}

// SweepResultDTO reports one fleet-wide trigger pass.
type SweepResultDTO struct {
	TotalChecked int `json:"totalChecked"`
	NewPIPs      int `json:"newPIPs"`
	WarningsSent int `json:"warningsSent"`
	Failures     int `json:"failures"`
}

// RecalcFleetResultDTO reports one fleet-wide daily recalculation.
type RecalcFleetResultDTO struct {
	Date       string `json:"date"`
	Calculated int    `json:"calculated"`
	Skipped    int    `json:"skipped"`
	Failures   int    `json:"failures"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e perf.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Role:      e.Role,
		ManagerID: e.ManagerID,
		Active:    e.Active,
	}
}

func toSweepDTO(r pip.SweepResult) SweepResultDTO {
	return SweepResultDTO{
		TotalChecked: r.TotalChecked,
		NewPIPs:      r.NewPIPs,
		WarningsSent: r.WarningsSent,
		Failures:     r.Failures,
	}
}

// parseDay parses YYYY-MM-DD, defaulting to now when empty.
func parseDay(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	return time.Parse("2006-01-02", raw)
}
