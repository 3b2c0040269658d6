package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Command string

	// Database settings
	DBDriver string
	DB       string

	// Import settings
	FeedsPath string
	Reset     bool

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Processing settings
	WorkerCount    int
	Interval       time.Duration
	RetentionDays  int
	UserAgent      string
	RequestTimeout time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

type databaseOptions struct {
	Driver string `long:"db-driver" env:"MONITORRO_DB_DRIVER" default:"sqlite3" choice:"sqlite3" choice:"postgres" description:"Database driver"`
	DB     string `long:"db" env:"MONITORRO_DB" default:"./feeds.db" description:"SQLite file path or postgres connection string"`
}

type logOptions struct {
	Level string `long:"log-level" env:"MONITORRO_LOG_LEVEL" default:"info" description:"Log level: debug, info, warn, error"`
}

type importCommand struct {
	Database databaseOptions `group:"Database Options"`
	Log      logOptions      `group:"Log Options"`
	Feeds    string          `long:"feeds" env:"MONITORRO_FEEDS" default:"./feeds.csv" description:"CSV or YAML feed catalog, local path or http(s) URL"`
	Reset    bool            `long:"reset" env:"MONITORRO_RESET" description:"Delete the sqlite database before importing"`
}

type syncCommand struct {
	Database       databaseOptions `group:"Database Options"`
	Log            logOptions      `group:"Log Options"`
	Interval       time.Duration   `long:"interval" env:"MONITORRO_INTERVAL" default:"0s" description:"Time between processing runs, 0 for one-shot mode"`
	Workers        int             `long:"workers" env:"MONITORRO_WORKERS" default:"0" description:"Number of feed workers, 0 for CPU count"`
	Retention      int             `long:"retention" env:"MONITORRO_RETENTION_DAYS" default:"0" description:"Days to keep feed items, 0 to keep forever"`
	UserAgent      string          `long:"user-agent" env:"MONITORRO_USER_AGENT" description:"User agent for feed requests, empty for the fetcher default"`
	RequestTimeout time.Duration   `long:"request-timeout" env:"MONITORRO_REQUEST_TIMEOUT" description:"Timeout for a single feed request, 0 for the fetcher default"`
}

type serverCommand struct {
	Database databaseOptions `group:"Database Options"`
	Log      logOptions      `group:"Log Options"`
	Host     string          `long:"host" env:"MONITORRO_HOST" description:"Host to bind the server to"`
	Port     int             `long:"port" env:"MONITORRO_PORT" default:"8080" description:"Port to listen on"`
	APIKey   string          `long:"api-key" env:"MONITORRO_API_KEY" description:"Require this key in the X-API-Key header"`
}

type options struct {
	Import importCommand `command:"import" description:"Import a feed catalog into the database"`
	Sync   syncCommand   `command:"sync" description:"Fetch feeds and upsert their entries"`
	Server serverCommand `command:"server" description:"Serve stored feed items over HTTP"`
}

// Parse builds a Config from command line args and MONITORRO_* environment
// variables. It returns nil, nil when help was requested and printed.
func Parse(args []string) (*Config, error) {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// Unset fetch settings stay zero and take the fetcher defaults.
	cfg := &Config{Command: parser.Active.Name}

	var (
		db  databaseOptions
		lvl logOptions
	)
	switch cfg.Command {
	case CommandImport:
		db, lvl = opts.Import.Database, opts.Import.Log
		cfg.FeedsPath = opts.Import.Feeds
		cfg.Reset = opts.Import.Reset
	case CommandSync:
		db, lvl = opts.Sync.Database, opts.Sync.Log
		cfg.Interval = opts.Sync.Interval
		cfg.WorkerCount = opts.Sync.Workers
		cfg.RetentionDays = opts.Sync.Retention
		cfg.UserAgent = opts.Sync.UserAgent
		cfg.RequestTimeout = opts.Sync.RequestTimeout
	case CommandServer:
		db, lvl = opts.Server.Database, opts.Server.Log
		cfg.ServerHost = opts.Server.Host
		cfg.ServerPort = opts.Server.Port
		cfg.APIKey = opts.Server.APIKey
	}
	cfg.DBDriver = db.Driver
	cfg.DB = db.DB

	level, err := zerolog.ParseLevel(lvl.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lvl.Level, err)
	}
	cfg.LogLevel = level

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative")
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("retention must not be negative")
	}
	if cfg.Reset && cfg.DBDriver != "sqlite3" {
		return nil, fmt.Errorf("reset is only supported for the sqlite3 driver")
	}
	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("request timeout must not be negative")
	}

	return cfg, nil
}
