package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/database/migrations"
)

// DB represents the database connection
type DB struct {
	*sqlx.DB
}

// NewDB opens the configured database, applies pool settings and, unless
// read-only, runs pending migrations.
func NewDB(cfg *Config) (*DB, error) {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	// The postgres migration driver holds one connection for the life of the pool.
	if cfg.Driver == DriverPostgres && !cfg.ReadOnly && cfg.MaxOpenConns < minPostgresOpenConns {
		return nil, fmt.Errorf("postgres needs at least %d max open connections, got %d", minPostgresOpenConns, cfg.MaxOpenConns)
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		db, err = openSQLite(cfg)
	case DriverPostgres:
		log.Info().Str("mode", modeStr(cfg.ReadOnly)).Msg("Opening postgres database")
		db, err = sqlx.Open(DriverPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if !cfg.ReadOnly {
		log.Info().Msg("Running database migrations...")
		version, dirty, err := migrations.Run(db.DB, cfg.Driver)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations completed successfully")
	} else {
		log.Info().Msg("Skipping migrations for read-only connection (from config).")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db (%s): %w", modeStr(cfg.ReadOnly), err)
	}

	log.Info().Str("driver", cfg.Driver).Str("mode", modeStr(cfg.ReadOnly)).Msg("Database connection successful")
	return &DB{db}, nil
}

func openSQLite(cfg *Config) (*sqlx.DB, error) {
	dir := filepath.Dir(cfg.DSN)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	// WAL allows concurrent reads while writing. Foreign keys must be enabled
	// per connection, so they go in the DSN rather than a one-off PRAGMA.
	// Immediate transactions take the write lock up front, so concurrent
	// upserts queue on busy_timeout instead of failing on lock upgrade.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d&_foreign_keys=on",
		cfg.DSN, cfg.BusyTimeoutMS)

	if cfg.ReadOnly {
		dsn += "&mode=ro"
		log.Info().Str("path", cfg.DSN).Msg("Opening database in Read-Only mode (from config)")
	} else {
		dsn += "&_txlock=immediate"
		log.Info().Str("path", cfg.DSN).Msg("Opening database in Read-Write mode (from config)")
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Str("mode", modeStr(cfg.ReadOnly)).Msg("Failed to set PRAGMA")
		}
	}

	return db, nil
}

// Helper for logging
func modeStr(readOnly bool) string {
	if readOnly {
		return "read-only"
	}
	return "read-write"
}

// DeleteDB removes an sqlite database file and its WAL sidecar files if they
// exist.
func DeleteDB(dbPath string) error {
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	log.Info().Str("path", dbPath).Msg("Deleted sqlite database")
	return nil
}
