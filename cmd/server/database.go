package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kestrelworks/navdeck/internal/config"
	"github.com/kestrelworks/navdeck/internal/platform/filestore"
	"github.com/kestrelworks/navdeck/internal/platform/postgres"
	"github.com/kestrelworks/navdeck/migrations"
)

// openDatabase connects to PostgreSQL and applies pending migrations from
// the embedded migration set.
func openDatabase(cfg *config.Config, appLogger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Persistence.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&slogGooseLogger{logger: appLogger})
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	appLogger.Info("Database ready")
	return db, nil
}

// newPostgresStateStore wraps the database handle in the persistence port.
func newPostgresStateStore(db *sql.DB, appLogger *slog.Logger) *postgres.StateStore {
	return postgres.NewStateStore(db, appLogger)
}

// newFileStateStore creates the file-backed persistence adapter.
func newFileStateStore(cfg *config.Config, appLogger *slog.Logger) (*filestore.FileStore, error) {
	fileStore, err := filestore.New(cfg.Persistence.DataDir, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	return fileStore, nil
}

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
