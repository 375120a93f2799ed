package kpi

import "github.com/warp/performance-engine/scoring"

// =============================================================================
// PRESETS - Starter catalogs per role
// =============================================================================
// These mirror what an administrator would author on day one. Hosts can
// seed them verbatim or use them as templates.

// SalesExecutiveDefaults returns the standard sales rep catalog:
// daily lead generation, monthly closed deals and revenue, and attendance.
func SalesExecutiveDefaults() []Definition {
	return []Definition{
		{
			ID:         "sales-daily-leads",
			Role:       RoleSalesExecutive,
			Name:       "New Leads",
			Metric:     scoring.MetricCount,
			Frequency:  scoring.FreqDaily,
			Thresholds: scoring.NewThresholds(3, 6, 10),
			Weight:     30,
			DataSource: DataSource{Kind: SourceLeadCount},
			IsActive:   true,
		},
		{
			ID:         "sales-monthly-deals",
			Role:       RoleSalesExecutive,
			Name:       "Closed Deals",
			Metric:     scoring.MetricCount,
			Frequency:  scoring.FreqMonthly,
			Thresholds: scoring.NewThresholds(4, 8, 14),
			Weight:     30,
			DataSource: DataSource{Kind: SourceSaleCount},
			IsActive:   true,
		},
		{
			ID:         "sales-monthly-revenue",
			Role:       RoleSalesExecutive,
			Name:       "Sales Revenue",
			Metric:     scoring.MetricAmount,
			Frequency:  scoring.FreqMonthly,
			Thresholds: scoring.NewThresholds(50000, 100000, 180000),
			Weight:     30,
			DataSource: DataSource{Kind: SourceSaleAmount},
			IsActive:   true,
		},
		{
			ID:         "sales-monthly-attendance",
			Role:       RoleSalesExecutive,
			Name:       "Attendance",
			Metric:     scoring.MetricCount,
			Frequency:  scoring.FreqMonthly,
			Thresholds: scoring.NewThresholds(18, 24, 26),
			Weight:     10,
			DataSource: DataSource{Kind: SourceAttendance},
			IsActive:   true,
		},
	}
}

// SupportAgentDefaults returns a catalog driven by manually entered
// readings (ticket stats come from an external helpdesk).
func SupportAgentDefaults() []Definition {
	return []Definition{
		{
			ID:         "support-weekly-resolved",
			Role:       RoleSupportAgent,
			Name:       "Tickets Resolved",
			Metric:     scoring.MetricCount,
			Frequency:  scoring.FreqWeekly,
			Thresholds: scoring.NewThresholds(20, 35, 50),
			Weight:     50,
			DataSource: DataSource{Kind: SourceManual, Query: "helpdesk:resolved"},
			IsActive:   true,
		},
		{
			ID:         "support-monthly-csat",
			Role:       RoleSupportAgent,
			Name:       "Customer Satisfaction",
			Metric:     scoring.MetricPercentage,
			Frequency:  scoring.FreqMonthly,
			Thresholds: scoring.NewThresholds(70, 85, 95),
			Weight:     40,
			DataSource: DataSource{Kind: SourceManual, Query: "helpdesk:csat"},
			IsActive:   true,
		},
		{
			ID:         "support-monthly-attendance",
			Role:       RoleSupportAgent,
			Name:       "Attendance",
			Metric:     scoring.MetricCount,
			Frequency:  scoring.FreqMonthly,
			Thresholds: scoring.NewThresholds(18, 24, 26),
			Weight:     10,
			DataSource: DataSource{Kind: SourceAttendance},
			IsActive:   true,
		},
	}
}
