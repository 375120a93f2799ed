/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*   Directory, scoring, summaries, target overrides
  /api/kpis/*        KPI authoring
  /api/pips/*        Improvement plan lifecycle
  /api/reports/*     Excel exports
  /healthz           Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/recalculate", h.Recalculate)
			r.Post("/{id}/summary/rebuild", h.RebuildSummary)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/records", h.GetRecords)
			r.Put("/{id}/targets", h.OverrideTarget)
		})

		r.Route("/kpis", func(r chi.Router) {
			r.Get("/", h.ListKPIs)
			r.Post("/", h.CreateKPI)
		})

		r.Route("/pips", func(r chi.Router) {
			r.Post("/sweep", h.SweepPIPs)
			r.Get("/", h.ListPIPs)
			r.Get("/{id}", h.GetPIP)
			r.Post("/{id}/reviews", h.AddReview)
			r.Post("/{id}/extend", h.ExtendPIP)
			r.Post("/{id}/close", h.ClosePIP)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/fleet.xlsx", h.FleetReport)
		})
	})

	r.Get("/healthz", h.Healthz)

	return r
}
