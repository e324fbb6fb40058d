package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/medcalc-api/catalog"
	"github.com/giygas/medcalc-api/config"
	"github.com/giygas/medcalc-api/data"
	"github.com/giygas/medcalc-api/handlers"
	"github.com/giygas/medcalc-api/health"
	"github.com/giygas/medcalc-api/logging"
	"github.com/giygas/medcalc-api/scheduler"
	"github.com/giygas/medcalc-api/server"
	"github.com/giygas/medcalc-api/validation"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

// application holds the wired components of the service
type application struct {
	store     *data.DataContainer
	scheduler *scheduler.Scheduler
	server    *server.Server
}

// catalogLoader reads the catalog file at path, or the embedded dataset when path is empty
func catalogLoader(path string) scheduler.Loader {
	if path == "" {
		return catalog.Load
	}
	return func() (*catalog.Catalog, error) {
		return catalog.LoadFile(path)
	}
}

// newApplication wires the store, audits, health, handlers and server. Nothing runs until
// the scheduler and server are started.
func newApplication(cfg *config.Config) *application {
	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())

	validator := validation.NewDataValidator()

	sched := scheduler.NewScheduler(store, validator, scheduler.Options{
		Interval: cfg.AuditInterval,
		Loader:   catalogLoader(cfg.CatalogPath),
		Reload:   cfg.CatalogPath != "",
	})

	checker := health.NewHealthChecker(store, cfg.AuditInterval)
	handler := handlers.NewHTTPHandler(store, validator, checker)

	return &application{
		store:     store,
		scheduler: sched,
		server:    server.NewServer(cfg, handler),
	}
}

// loadEnv reads .env from the working directory, then from the executable directory
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	// A missing file is fine: the environment may already be set
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
	}); err != nil {
		logging.Warn("File logging disabled", "error", err)
	}
	defer func() { _ = logging.Close() }()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"address", cfg.ListenAddr(),
		"catalog_path", cfg.CatalogPath,
		"audit_interval", cfg.AuditInterval.String(),
	)

	app := newApplication(cfg)

	if err := app.scheduler.Start(); err != nil {
		logging.Error("Failed to load the medication catalog", "error", err)
		os.Exit(1)
	}
	defer app.scheduler.Stop()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := app.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		logging.Info("Signal received", "signal", sig.String())
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
		app.scheduler.Stop()
		_ = logging.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}
