package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/factory"
	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/scoring"
)

const leadKPIJSON = `{
	"id": "sales-daily-leads",
	"role": "sales_executive",
	"name": "New Leads",
	"metric_type": "count",
	"frequency": "daily",
	"thresholds": {"minimum": 3, "target": 6, "excellent": 10},
	"weight": 30,
	"data_source": {"kind": "lead_count"}
}`

func TestParseDefinition(t *testing.T) {
	d, err := factory.ParseDefinition(leadKPIJSON)
	require.NoError(t, err)

	assert.Equal(t, scoring.KPIID("sales-daily-leads"), d.ID)
	assert.Equal(t, kpi.RoleSalesExecutive, d.Role)
	assert.Equal(t, scoring.FreqDaily, d.Frequency)
	assert.Equal(t, kpi.SourceLeadCount, d.DataSource.Kind)
	assert.Equal(t, 30.0, d.Weight)
	assert.True(t, d.IsActive, "omitted is_active defaults to true")
	assert.True(t, d.Thresholds.Target.IntPart() == 6)
}

func TestParseDefinition_Defaults(t *testing.T) {
	d, err := factory.ParseDefinition(`{
		"id": "x", "role": "team_lead", "name": "X",
		"thresholds": {"minimum": 1, "target": 2, "excellent": 3},
		"weight": 10,
		"data_source": {"kind": "manual", "query": "ops:x"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, scoring.FreqMonthly, d.Frequency)
	assert.Equal(t, scoring.MetricCount, d.Metric)
}

func TestParseDefinition_RejectsMalformed(t *testing.T) {
	_, err := factory.ParseDefinition(`{not json`)
	assert.Error(t, err)

	_, err = factory.ParseDefinition(`{
		"id": "bad", "role": "team_lead", "name": "Bad",
		"thresholds": {"minimum": 5, "target": 2, "excellent": 3},
		"weight": 10, "data_source": {"kind": "manual"}
	}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrInvalidThresholds, "authoring-time rejection")
}

func TestRoundTrip(t *testing.T) {
	orig, err := factory.ParseDefinition(leadKPIJSON)
	require.NoError(t, err)

	raw, err := factory.DefinitionJSON(orig)
	require.NoError(t, err)

	back, err := factory.ParseDefinition(raw)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, back.ID)
	assert.Equal(t, orig.Weight, back.Weight)
	assert.True(t, orig.Thresholds.Excellent.Equal(back.Thresholds.Excellent))
}
