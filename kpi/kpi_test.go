package kpi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/scoring"
)

func validDefinition() kpi.Definition {
	return kpi.Definition{
		ID:         "test-kpi",
		Role:       kpi.RoleSalesExecutive,
		Name:       "Test KPI",
		Metric:     scoring.MetricCount,
		Frequency:  scoring.FreqMonthly,
		Thresholds: scoring.NewThresholds(10, 20, 30),
		Weight:     50,
		DataSource: kpi.DataSource{Kind: kpi.SourceLeadCount},
		IsActive:   true,
	}
}

func TestDefinition_Validate(t *testing.T) {
	require.NoError(t, validDefinition().Validate())
}

func TestDefinition_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*kpi.Definition)
	}{
		{"missing id", func(d *kpi.Definition) { d.ID = "" }},
		{"missing name", func(d *kpi.Definition) { d.Name = "" }},
		{"missing role", func(d *kpi.Definition) { d.Role = "" }},
		{"unknown frequency", func(d *kpi.Definition) { d.Frequency = "fortnightly" }},
		{"unknown source kind", func(d *kpi.Definition) { d.DataSource.Kind = "telepathy" }},
		{"negative weight", func(d *kpi.Definition) { d.Weight = -1 }},
		{"weight above 100", func(d *kpi.Definition) { d.Weight = 101 }},
		{"inverted thresholds", func(d *kpi.Definition) { d.Thresholds = scoring.NewThresholds(30, 20, 10) }},
		{"flat thresholds", func(d *kpi.Definition) { d.Thresholds = scoring.NewThresholds(10, 10, 10) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefinition()
			tt.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestDefinition_Validate_ThresholdErrorCarriesKPI(t *testing.T) {
	d := validDefinition()
	d.Thresholds = scoring.NewThresholds(20, 10, 30)

	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrInvalidThresholds)

	var te *scoring.InvalidThresholdsError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, scoring.KPIID("test-kpi"), te.KPIID)
}

func TestPresets_AllValid(t *testing.T) {
	for _, d := range kpi.SalesExecutiveDefaults() {
		assert.NoError(t, d.Validate(), "preset %s", d.ID)
		assert.Equal(t, kpi.RoleSalesExecutive, d.Role)
	}
	for _, d := range kpi.SupportAgentDefaults() {
		assert.NoError(t, d.Validate(), "preset %s", d.ID)
	}
}
