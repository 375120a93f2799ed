/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the performance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env / YAML / environment configuration
  2. Initialize SQLite store
  3. Wire scoring engine and PIP manager
  4. Configure HTTP router and background scheduler
  5. Start server with graceful shutdown

CONFIGURATION:
  CONFIG_PATH          YAML config file (optional)
  DB_PATH              SQLite database path (":memory:" supported)
  HTTP_ADDRESS         Listen address (default :8080)
  SCHEDULER_ENABLED    Background scoring passes (default true)
  SCHEDULER_INTERVAL   Pass interval (default 1h)
  LOG_LEVEL            debug | info | warn | error
  ENVIRONMENT          local = pretty logs, anything else = JSON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background scoring passes
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/performance-engine/api"
	"github.com/warp/performance-engine/config"
	"github.com/warp/performance-engine/events"
	"github.com/warp/performance-engine/logging"
	"github.com/warp/performance-engine/metrics"
	"github.com/warp/performance-engine/perf"
	"github.com/warp/performance-engine/pip"
	"github.com/warp/performance-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	sink := events.NewLogSink(log.Entry)

	engine := perf.NewEngine(perf.EngineConfig{
		Catalog:    store,
		Resolver:   perf.NewTargetResolver(store, nil),
		Fetcher:    metrics.NewRegistry(store, store, store, store),
		Attendance: store,
		Directory:  store,
		Targets:    store,
		Records:    store,
		Summaries:  store,
		Events:     sink,
		Log:        log.Entry,
	})
	manager := pip.NewManager(pip.ManagerConfig{
		Plans:     store,
		Records:   store,
		Summaries: store,
		Directory: store,
		Resolver:  pip.NewDefaultResolver(store),
		Events:    sink,
		Log:       log.Entry,
	})

	handler := api.NewHandler(store, engine, manager, log.Entry)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler := api.NewScoringScheduler(store, engine, manager, log.Entry)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.CheckInterval
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.WithField("address", cfg.HTTPServer.Address).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server stopped")
}
