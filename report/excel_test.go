package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/report"
	"github.com/warp/performance-engine/store/memory"
)

func TestFleetReport_Generate(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.AddEmployee(perf.Employee{ID: "emp-1", Name: "Asha Rao", Role: "sales_executive", Active: true})
	require.NoError(t, st.UpsertSummary(ctx, perf.PerformanceSummary{
		EmployeeID:    "emp-1",
		CurrentRating: 82.4,
		Tier:          "good",
		Stars:         4,
		Streak:        perf.Streak{Type: perf.StreakPositive, Days: 5},
		Averages:      perf.Averages{Last7Days: 85, Last30Days: 82.4, Last90Days: 78.1},
		UpdatedAt:     time.Now().UTC(),
	}))

	r := &report.FleetReport{Summaries: st, Directory: st}
	data, err := r.Generate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Fleet Performance")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Employee ID", rows[0][0])
	assert.Equal(t, "emp-1", rows[1][0])
	assert.Equal(t, "Asha Rao", rows[1][1])
	assert.Equal(t, "good", rows[1][4])
	assert.Equal(t, "no", rows[1][9])
}

func TestFleetReport_Filename(t *testing.T) {
	r := &report.FleetReport{}
	at := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "fleet-performance-2025-03-10.xlsx", r.Filename(at))
}
