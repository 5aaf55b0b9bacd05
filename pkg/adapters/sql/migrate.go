package sql

import (
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending up migration for the driver's dialect.
// It opens a dedicated connection, so the caller's pool is left untouched.
func Migrate(driver, dsn string, logger *slog.Logger) error {
	dialect, err := dialectOf(driver)
	if err != nil {
		return err
	}

	db, err := stdsql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	var target database.Driver
	switch dialect {
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("init migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		_ = target.Close()
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, target)
	if err != nil {
		_ = source.Close()
		_ = target.Close()
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("migration cleanup failed", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Debug("migrations up to date", "dialect", dialect, "version", fromVer)
		return nil
	default:
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info("migrations applied",
		"dialect", dialect,
		"from_ver", fromVer,
		"to_ver", toVer,
		"duration", took.Round(time.Millisecond),
	)
	return nil
}
