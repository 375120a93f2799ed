/*
Package report renders fleet-wide performance exports.

PURPOSE:
  Turns the summary projections into an .xlsx workbook managers actually
  open: one row per employee with rolling averages, tier, streak and PIP
  standing. The report reads only derived state - it never recomputes
  scores.

SEE ALSO:
  - perf/types.go: PerformanceSummary, the row source
  - api/handlers.go: The download endpoint
*/
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/scoring"
)

const fleetSheet = "Fleet Performance"

var fleetHeaders = []string{
	"Employee ID", "Name", "Role", "30-Day Rating", "Tier", "Stars",
	"7-Day Avg", "90-Day Avg", "Streak", "On PIP", "PIP Reason", "PIP Ends",
}

// FleetReport builds the workbook from stored summaries and directory rows.
type FleetReport struct {
	Summaries perf.SummaryStore
	Directory interface {
		GetEmployee(ctx context.Context, id scoring.EmployeeID) (*perf.Employee, error)
	}
}

// Generate renders the workbook and returns the serialized bytes.
func (r *FleetReport) Generate(ctx context.Context) ([]byte, error) {
	summaries, err := r.Summaries.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", fleetSheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
	})
	for i, name := range fleetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(fleetSheet, cell, name)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(fleetHeaders), 1)
	f.SetCellStyle(fleetSheet, "A1", lastCol, headerStyle)

	for rowIdx, sum := range summaries {
		rowNum := rowIdx + 2

		name, role := "", ""
		if r.Directory != nil {
			if emp, err := r.Directory.GetEmployee(ctx, sum.EmployeeID); err == nil && emp != nil {
				name, role = emp.Name, emp.Role
			}
		}

		streak := fmt.Sprintf("%s (%d days)", sum.Streak.Type, sum.Streak.Days)
		onPIP := "no"
		pipReason, pipEnds := "", ""
		if sum.IsPIP {
			onPIP = "yes"
			if sum.PIPDetails != nil {
				pipReason = sum.PIPDetails.Reason
				pipEnds = sum.PIPDetails.EndDate.Format("2006-01-02")
			}
		}

		cells := []any{
			string(sum.EmployeeID), name, role,
			round1(sum.CurrentRating), string(sum.Tier), sum.Stars,
			round1(sum.Averages.Last7Days), round1(sum.Averages.Last90Days),
			streak, onPIP, pipReason, pipEnds,
		}
		for col, value := range cells {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(fleetSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the suggested download name, stamped with the export day.
func (r *FleetReport) Filename(at time.Time) string {
	return "fleet-performance-" + at.UTC().Format("2006-01-02") + ".xlsx"
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
