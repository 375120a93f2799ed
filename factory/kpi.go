/*
Package factory provides JSON to Go KPI definition conversion.

PURPOSE:
  Converts JSON KPI definitions into kpi.Definition values. This enables
  catalog configuration without code changes - HR can author KPIs in
  JSON, store them in the database, and the factory builds the proper
  Go structs with validation applied.

WHY JSON?
  - Non-developers can author and edit KPIs
  - Easy integration with an admin UI
  - Version control for catalog definitions
  - Database storage of raw configs alongside parsed columns

JSON SCHEMA:
  {
    "id": "sales-daily-leads",
    "role": "sales_executive",
    "name": "New Leads",
    "metric_type": "count",
    "frequency": "daily",
    "thresholds": {"minimum": 3, "target": 6, "excellent": 10},
    "weight": 30,
    "data_source": {"kind": "lead_count", "query": ""},
    "is_active": true
  }

DEFAULTS:
  - frequency: monthly
  - metric_type: count
  - is_active: true when omitted

USAGE:
  def, err := factory.ParseDefinition(jsonStr)
  raw, err := factory.DefinitionJSON(def)
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/scoring"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// KPIJSON is the JSON representation of a KPI definition.
type KPIJSON struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Name       string         `json:"name"`
	MetricType string         `json:"metric_type"`
	Frequency  string         `json:"frequency"`
	Thresholds ThresholdsJSON `json:"thresholds"`
	Weight     float64        `json:"weight"`
	DataSource DataSourceJSON `json:"data_source"`
	IsActive   *bool          `json:"is_active,omitempty"`
}

type ThresholdsJSON struct {
	Minimum   float64 `json:"minimum"`
	Target    float64 `json:"target"`
	Excellent float64 `json:"excellent"`
}

type DataSourceJSON struct {
	Kind  string `json:"kind"`
	Query string `json:"query,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseDefinition converts a JSON config into a validated kpi.Definition.
func ParseDefinition(raw string) (kpi.Definition, error) {
	var j KPIJSON
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return kpi.Definition{}, fmt.Errorf("parse kpi config: %w", err)
	}
	return FromJSON(j)
}

// FromJSON converts the schema struct, applying defaults and validating.
func FromJSON(j KPIJSON) (kpi.Definition, error) {
	if j.Frequency == "" {
		j.Frequency = string(scoring.FreqMonthly)
	}
	if j.MetricType == "" {
		j.MetricType = string(scoring.MetricCount)
	}
	active := true
	if j.IsActive != nil {
		active = *j.IsActive
	}

	d := kpi.Definition{
		ID:        scoring.KPIID(j.ID),
		Role:      kpi.Role(j.Role),
		Name:      j.Name,
		Metric:    scoring.MetricType(j.MetricType),
		Frequency: scoring.Frequency(j.Frequency),
		Thresholds: scoring.Thresholds{
			Minimum:   decimal.NewFromFloat(j.Thresholds.Minimum),
			Target:    decimal.NewFromFloat(j.Thresholds.Target),
			Excellent: decimal.NewFromFloat(j.Thresholds.Excellent),
		},
		Weight: j.Weight,
		DataSource: kpi.DataSource{
			Kind:  kpi.SourceKind(j.DataSource.Kind),
			Query: j.DataSource.Query,
		},
		IsActive: active,
	}
	if err := d.Validate(); err != nil {
		return kpi.Definition{}, err
	}
	return d, nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON converts a definition back to its schema struct.
func ToJSON(d kpi.Definition) KPIJSON {
	minimum, _ := d.Thresholds.Minimum.Float64()
	target, _ := d.Thresholds.Target.Float64()
	excellent, _ := d.Thresholds.Excellent.Float64()
	active := d.IsActive

	return KPIJSON{
		ID:         string(d.ID),
		Role:       string(d.Role),
		Name:       d.Name,
		MetricType: string(d.Metric),
		Frequency:  string(d.Frequency),
		Thresholds: ThresholdsJSON{Minimum: minimum, Target: target, Excellent: excellent},
		Weight:     d.Weight,
		DataSource: DataSourceJSON{Kind: string(d.DataSource.Kind), Query: d.DataSource.Query},
		IsActive:   &active,
	}
}

// DefinitionJSON marshals a definition to its raw JSON config.
func DefinitionJSON(d kpi.Definition) (string, error) {
	b, err := json.Marshal(ToJSON(d))
	if err != nil {
		return "", fmt.Errorf("marshal kpi config: %w", err)
	}
	return string(b), nil
}
