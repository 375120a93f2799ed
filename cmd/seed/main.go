/*
main.go - Demo data seeder

PURPOSE:
  Populates a fresh database with a small sales team, the default KPI
  catalogs, and a month of activity so the API and report endpoints
  have something to show immediately.

USAGE:
  go run ./cmd/seed -db performance.db

WHAT IT CREATES:
  - 1 manager, 3 sales executives, 1 support agent
  - Default KPI catalogs for both roles
  - Leads, sales, attendance and manual helpdesk readings covering the
    trailing 30 days, tuned so the reps land in different tiers
  - A scoring pass per employee per day so summaries and streaks are real

SEE ALSO:
  - kpi/presets.go: The catalogs being installed
  - cmd/server/main.go: The server this feeds
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/performance-engine/events"
	"github.com/warp/performance-engine/kpi"
	"github.com/warp/performance-engine/logging"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/scoring"
	"github.com/warp/performance-engine/store/sqlite"
)

const seedDays = 30

// rep describes one seeded employee and how hard they work: leadsPerDay
// drives the daily KPI, saleEvery/saleAmount the monthly ones.
type rep struct {
	emp         perf.Employee
	leadsPerDay int
	saleEvery   int // a sale every N days, 0 = never
	saleAmount  float64
	absentEvery int // absent every N days, 0 = never
}

func main() {
	dbPath := flag.String("db", "performance.db", "SQLite database path")
	flag.Parse()

	log := logging.New()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()

	ctx := context.Background()

	reps := []rep{
		{
			emp:         perf.Employee{ID: "emp-anna", Name: "Anna Kovacs", Role: string(kpi.RoleSalesExecutive), ManagerID: "emp-marcus", Active: true},
			leadsPerDay: 8, saleEvery: 3, saleAmount: 22000,
		},
		{
			emp:         perf.Employee{ID: "emp-ben", Name: "Ben Okafor", Role: string(kpi.RoleSalesExecutive), ManagerID: "emp-marcus", Active: true},
			leadsPerDay: 5, saleEvery: 5, saleAmount: 14000, absentEvery: 10,
		},
		{
			emp:         perf.Employee{ID: "emp-carla", Name: "Carla Reyes", Role: string(kpi.RoleSalesExecutive), ManagerID: "emp-marcus", Active: true},
			leadsPerDay: 2, saleEvery: 0, absentEvery: 6,
		},
	}
	manager := perf.Employee{ID: "emp-marcus", Name: "Marcus Lind", Role: string(kpi.RoleTeamLead), Active: true}
	agent := perf.Employee{ID: "emp-devi", Name: "Devi Sharma", Role: string(kpi.RoleSupportAgent), ManagerID: "emp-marcus", Active: true}

	if err := store.SaveEmployee(ctx, manager); err != nil {
		log.WithError(err).Fatal("failed to save manager")
	}
	if err := store.SaveEmployee(ctx, agent); err != nil {
		log.WithError(err).Fatal("failed to save agent")
	}
	for _, r := range reps {
		if err := store.SaveEmployee(ctx, r.emp); err != nil {
			log.WithError(err).Fatal("failed to save employee")
		}
	}

	catalog := append(kpi.SalesExecutiveDefaults(), kpi.SupportAgentDefaults()...)
	for _, def := range catalog {
		if err := store.Save(ctx, def); err != nil {
			log.WithError(err).WithField("kpi", def.ID).Fatal("failed to save kpi")
		}
	}

	now := time.Now().UTC()
	start := scoring.Day(now.AddDate(0, 0, -(seedDays - 1)))

	cal := scoring.SixDayWeek()
	for day := 0; day < seedDays; day++ {
		date := start.AddDate(0, 0, day)
		if !cal.IsWorkingDay(date) {
			continue
		}
		for _, r := range reps {
			if err := seedRepDay(ctx, store, r, date, day); err != nil {
				log.WithError(err).Fatal("failed to seed activity")
			}
		}
		if err := store.SetAttendance(ctx, agent.ID, date, metrics.AttendancePresent); err != nil {
			log.WithError(err).Fatal("failed to seed attendance")
		}
	}

	// The helpdesk numbers land once per period, not per day.
	if err := store.SetManualReading(ctx, agent.ID, "support-weekly-resolved",
		scoring.PeriodKeyFor(scoring.FreqWeekly, now), decimal.NewFromInt(38), "seed"); err != nil {
		log.WithError(err).Fatal("failed to seed reading")
	}
	if err := store.SetManualReading(ctx, agent.ID, "support-monthly-csat",
		scoring.PeriodKeyFor(scoring.FreqMonthly, now), decimal.NewFromInt(88), "seed"); err != nil {
		log.WithError(err).Fatal("failed to seed reading")
	}

	engine := perf.NewEngine(perf.EngineConfig{
		Catalog:    store,
		Resolver:   perf.NewTargetResolver(store, cal),
		Fetcher:    metrics.NewRegistry(store, store, store, store),
		Attendance: store,
		Directory:  store,
		Targets:    store,
		Records:    store,
		Summaries:  store,
		Events:     events.NopSink{},
		Log:        log.Entry,
	})

	scored := 0
	for day := 0; day < seedDays; day++ {
		date := start.AddDate(0, 0, day)
		if !cal.IsWorkingDay(date) {
			continue
		}
		for _, emp := range append([]perf.Employee{agent}, employees(reps)...) {
			res, err := engine.CalculateEmployeePerformance(ctx, emp.ID, date)
			if err != nil {
				log.WithError(err).WithField("employee", emp.ID).Warn("scoring pass failed")
				continue
			}
			if !res.Skipped {
				scored++
			}
		}
	}

	log.WithField("db", *dbPath).WithField("records", scored).Info("seed complete")
	fmt.Printf("seeded %d employees, %d KPIs, %d daily records into %s\n",
		len(reps)+2, len(catalog), scored, *dbPath)
}

func employees(reps []rep) []perf.Employee {
	out := make([]perf.Employee, 0, len(reps))
	for _, r := range reps {
		out = append(out, r.emp)
	}
	return out
}

// seedRepDay writes one working day of raw activity for a sales rep.
func seedRepDay(ctx context.Context, store *sqlite.Store, r rep, date time.Time, day int) error {
	status := metrics.AttendancePresent
	if r.absentEvery > 0 && day%r.absentEvery == r.absentEvery-1 {
		status = metrics.AttendanceAbsent
	}
	if err := store.SetAttendance(ctx, r.emp.ID, date, status); err != nil {
		return err
	}
	if status == metrics.AttendanceAbsent {
		return nil
	}

	at := date.Add(10 * time.Hour)
	for i := 0; i < r.leadsPerDay; i++ {
		if err := store.AddLead(ctx, uuid.NewString(), r.emp.ID, at.Add(time.Duration(i)*time.Minute)); err != nil {
			return err
		}
	}
	if r.saleEvery > 0 && day%r.saleEvery == r.saleEvery-1 {
		amount := decimal.NewFromFloat(r.saleAmount)
		if err := store.AddSale(ctx, uuid.NewString(), r.emp.ID, at, amount); err != nil {
			return err
		}
	}
	return nil
}
