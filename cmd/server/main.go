/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent billing ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment config
  2. Initialize logging and metrics
  3. Open SQLite store
  4. Assemble domain services and API handler
  5. Optionally seed demo data
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides RENT_LEDGER_PORT)
  -db      SQLite database path (overrides RENT_LEDGER_DB)

ENVIRONMENT:
  RENT_LEDGER_PORT          HTTP port (default 8080)
  RENT_LEDGER_DB            SQLite path (default rent-ledger.db)
  RENT_LEDGER_LOCK_TIMEOUT  Settlement lock bound (default 5s)
  RENT_LEDGER_LOG_LEVEL     zap level (default info)
  RENT_LEDGER_CONFIG        Optional YAML overlay (payee details, CORS)
  RENT_LEDGER_SEED_DEMO     Seed demo data on first start (default false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/rent-ledger/api"
	"github.com/warp/rent-ledger/config"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/maintenance"
	"github.com/warp/rent-ledger/metrics"
	"github.com/warp/rent-ledger/payments"
	"github.com/warp/rent-ledger/rental"
	"github.com/warp/rent-ledger/store/sqlite"
	"github.com/warp/rent-ledger/water"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides RENT_LEDGER_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides RENT_LEDGER_DB)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics.Init()

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Assemble domain services.
	clock := ledger.SystemClock{}
	registry := rental.NewRegistry(store, clock, logger)
	waterSvc := water.NewService(store, clock, logger)
	sync := ledger.NewSynchronizer(store, water.NewSource(store), clock, logger)
	processor := ledger.NewProcessor(store, sync, clock, logger)
	processor.SetLockTimeout(cfg.LockTimeout)
	queries := ledger.NewQueries(store, sync, logger)
	paySvc := payments.NewService(store, registry, processor, clock, logger)
	maintSvc := maintenance.NewService(store, registry, clock, logger)

	handler := api.NewHandler(registry, waterSvc, paySvc, maintSvc, queries, processor, clock, cfg.Payee, logger)

	if cfg.SeedDemoData {
		if err := api.SeedDemo(context.Background(), handler); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DatabasePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
