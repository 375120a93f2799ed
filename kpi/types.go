/*
Package kpi defines the role-scoped KPI catalog.

PURPOSE:
  A KPIDefinition describes one thresholded, weighted metric tracked for
  a role: what it measures (metric type), how often it is scored
  (frequency), the minimum/target/excellent band, its weight in the
  overall daily score, and where its actual value comes from (data
  source). Definitions are authored by administrators and are read-only
  from the engine's perspective at calculation time.

KEY CONCEPTS:
  - Definition: The complete KPI ruleset
  - DataSource: Tagged descriptor dispatched to a metrics.Source
  - Catalog: Read/write store interface, filtered by role
  - Presets: Built-in starter catalogs per role (presets.go)

VALIDATION:
  Definitions are validated at authoring time (Validate), not scoring
  time. A fully corrupt entry is rejected outright; the engine never has
  to defend against minimum >= target mid-calculation.

SEE ALSO:
  - factory/: JSON <-> Definition conversion for admin-authored configs
  - metrics/: Source implementations keyed by DataSource.Kind
*/
package kpi

import (
	"context"
	"fmt"

	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// ROLES
// =============================================================================

// Role scopes a KPI to the employees it applies to.
type Role string

const (
	RoleSalesExecutive Role = "sales_executive"
	RoleTeamLead       Role = "team_lead"
	RoleSupportAgent   Role = "support_agent"
)

// =============================================================================
// DATA SOURCE - Where a KPI's actual value comes from
// =============================================================================

// SourceKind tags which fetch strategy supplies the actual value.
type SourceKind string

const (
	SourceLeadCount  SourceKind = "lead_count"
	SourceSaleCount  SourceKind = "sale_count"
	SourceSaleAmount SourceKind = "sale_amount"
	SourceAttendance SourceKind = "attendance"
	SourceManual     SourceKind = "manual"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceLeadCount, SourceSaleCount, SourceSaleAmount, SourceAttendance, SourceManual:
		return true
	}
	return false
}

// DataSource describes where and how to pull a KPI's actual value.
// Query is an optional source-specific filter (e.g. a lead pipeline name);
// its interpretation belongs to the Source implementation.
type DataSource struct {
	Kind  SourceKind `json:"kind"`
	Query string     `json:"query,omitempty"`
}

// =============================================================================
// DEFINITION
// =============================================================================

// Definition is one role-scoped KPI.
type Definition struct {
	ID         scoring.KPIID      `json:"id"`
	Role       Role               `json:"role"`
	Name       string             `json:"name"`
	Metric     scoring.MetricType `json:"metricType"`
	Frequency  scoring.Frequency  `json:"frequency"`
	Thresholds scoring.Thresholds `json:"thresholds"`
	Weight     float64            `json:"weight"`
	DataSource DataSource         `json:"dataSource"`
	IsActive   bool               `json:"isActive"`
}

// Validate rejects a malformed definition at authoring time.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("kpi definition: id is required")
	}
	if d.Name == "" {
		return fmt.Errorf("kpi %s: name is required", d.ID)
	}
	if d.Role == "" {
		return fmt.Errorf("kpi %s: role is required", d.ID)
	}
	if !d.Frequency.Valid() {
		return fmt.Errorf("kpi %s: unknown frequency %q", d.ID, d.Frequency)
	}
	if !d.DataSource.Kind.Valid() {
		return &scoring.UnknownSourceError{Kind: string(d.DataSource.Kind)}
	}
	if d.Weight < 0 || d.Weight > 100 {
		return fmt.Errorf("kpi %s: weight %v outside [0, 100]", d.ID, d.Weight)
	}
	if err := d.Thresholds.Validate(); err != nil {
		return &scoring.InvalidThresholdsError{KPIID: d.ID, Thresholds: d.Thresholds}
	}
	return nil
}

// =============================================================================
// CATALOG - Store interface
// =============================================================================

// Catalog persists KPI definitions. The engine only reads it; writes come
// from the admin surface.
type Catalog interface {
	// ActiveForRole returns active definitions scoped to the role.
	ActiveForRole(ctx context.Context, role Role) ([]Definition, error)

	// Get returns a definition by ID, or scoring.ErrDefinitionNotFound.
	Get(ctx context.Context, id scoring.KPIID) (Definition, error)

	// List returns every definition, active or not.
	List(ctx context.Context) ([]Definition, error)

	// Save validates and upserts a definition.
	Save(ctx context.Context, d Definition) error
}
