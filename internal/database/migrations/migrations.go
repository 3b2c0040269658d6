package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

// Each supported driver has its own directory of numbered up/down files.
//
//go:embed sqlite3/*.sql postgres/*.sql
var migrationFS embed.FS

// Run applies all pending migrations for driverName and returns the
// resulting schema version. The migrate instance is left open since
// closing it closes db.
func Run(db *sql.DB, driverName string) (uint, bool, error) {
	var (
		driver migratedb.Driver
		err    error
	)
	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return 0, false, fmt.Errorf("no migrations for driver %q", driverName)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create %s migration driver: %w", driverName, err)
	}

	source, err := iofs.New(migrationFS, driverName)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug().Str("driver", driverName).Msg("Migrations already applied")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}
