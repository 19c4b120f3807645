// Package main implements the entry point for the navdeck server, which
// tracks free-text commands as asynchronous tasks executed by a remote
// agent service, reconciles their progress into a persisted history, and
// serves result exports.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelworks/navdeck/internal/api"
	"github.com/kestrelworks/navdeck/internal/config"
	"github.com/kestrelworks/navdeck/internal/events"
	"github.com/kestrelworks/navdeck/internal/platform/logger"
	"github.com/kestrelworks/navdeck/internal/remote"
	"github.com/kestrelworks/navdeck/internal/store"
	"github.com/kestrelworks/navdeck/internal/task"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// run loads configuration, wires the application components together, and
// serves HTTP until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"persistence", persistenceMode(cfg))

	stateStore, cleanup, err := newStateStore(cfg, appLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	settings := task.NewSettings(ctx, stateStore, cfg.Agent.DefaultEndpoint, appLogger)
	client := remote.NewClient(settings, time.Duration(cfg.Agent.RequestTimeoutMS)*time.Millisecond, appLogger)

	var executor task.Executor
	if !cfg.Agent.SimulationDisabled {
		executor = task.NewSimulatedExecutor(time.Duration(cfg.Agent.SimulationIntervalMS) * time.Millisecond)
	}

	emitter := events.NewInMemoryEmitter(appLogger)
	emitter.RegisterHandler(events.NewLogHandler(appLogger))

	managerCfg := task.ManagerConfig{
		PollInterval:    time.Duration(cfg.Agent.PollIntervalMS) * time.Millisecond,
		PollMaxAttempts: cfg.Agent.PollMaxAttempts,
	}
	manager := task.NewManager(managerCfg, stateStore, settings, client, executor, emitter, appLogger)
	defer manager.Stop()

	if err := manager.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover task history: %w", err)
	}

	return startHTTPServer(cfg, api.NewRouter(manager), appLogger)
}

// newStateStore selects the persistence adapter: postgres when a database
// URL is configured, JSON files otherwise. The returned cleanup closes any
// underlying resources.
func newStateStore(cfg *config.Config, appLogger *slog.Logger) (store.StateStore, func(), error) {
	if cfg.Persistence.DatabaseURL != "" {
		db, err := openDatabase(cfg, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return newPostgresStateStore(db, appLogger), func() {
			if err := db.Close(); err != nil {
				appLogger.Error("failed to close database", "error", err)
			}
		}, nil
	}

	fileStore, err := newFileStateStore(cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}
	return fileStore, func() {}, nil
}

func persistenceMode(cfg *config.Config) string {
	if cfg.Persistence.DatabaseURL != "" {
		return "postgres"
	}
	return "file"
}

// startHTTPServer starts the HTTP server with graceful shutdown support.
func startHTTPServer(cfg *config.Config, router http.Handler, appLogger *slog.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-shutdownCh:
		appLogger.Info("Shutting down server...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	appLogger.Info("Server shutdown completed")
	return nil
}
