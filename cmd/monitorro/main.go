package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/config"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	importfeeds "github.com/someoneonearthwholovestg/el-monitorro/internal/import"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/process"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/reader"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server"
)

const (
	cycleTimeout = 30 * time.Minute
	purgeTimeout = 5 * time.Minute
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		// go-flags already printed its own parse errors
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Command {
	case config.CommandImport:
		err = runImport(ctx, cfg)
	case config.CommandSync:
		err = runSync(ctx, cfg)
	case config.CommandServer:
		err = runServer(ctx, cfg)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cfg.Command).Msg("Command failed")
		os.Exit(1)
	}
}

func openDB(cfg *config.Config, readOnly bool) (*database.DB, error) {
	dbCfg := database.NewConfig(cfg.DBDriver, cfg.DB)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// runImport loads the feed catalog into the database.
func runImport(ctx context.Context, cfg *config.Config) error {
	if cfg.Reset {
		if err := database.DeleteDB(cfg.DB); err != nil {
			return err
		}
	}

	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := importfeeds.NewImporter(db, clock.Real{}).ImportFeeds(ctx, cfg.FeedsPath)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d feeds\n", summary.Imported, summary.Total)
	if len(summary.Problems) > 0 {
		fmt.Printf("Skipped %d records:\n", len(summary.Problems))
		for _, problem := range summary.Problems {
			fmt.Printf("  - %s\n", problem)
		}
	}
	return nil
}

// runSync executes the feed processor either once or periodically based on configuration.
func runSync(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	fetcher := reader.NewFetcher(reader.FetcherConfig{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
	})

	if cfg.Interval == 0 {
		log.Info().Msg("Running in one-shot mode")
		return ignoreCanceled(runProcessingCycle(ctx, db, fetcher, cfg))
	}

	log.Info().Dur("interval", cfg.Interval).Msg("Running in periodic mode")

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		if err := runProcessingCycle(ctx, db, fetcher, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Processing cycle canceled by shutdown signal")
				return nil
			}
			log.Error().Err(err).Msg("Processing cycle failed")
		}

		log.Info().Time("next_run", time.Now().Add(cfg.Interval)).Msg("Waiting for next processing cycle")

		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic processing")
			return nil
		}
	}
}

// runProcessingCycle executes a single feed processing cycle.
func runProcessingCycle(ctx context.Context, db *database.DB, fetcher *reader.Fetcher, cfg *config.Config) error {
	processor, err := process.NewFeedProcessor(db, fetcher, clock.Real{}, cfg.WorkerCount)
	if err != nil {
		return fmt.Errorf("failed to initialize feeds processor: %w", err)
	}

	processCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	log.Info().Int("worker_count", processor.WorkerCount).Msg("Starting processing cycle")

	startTime := time.Now()
	err = processor.ProcessFeeds(processCtx)

	processed, created := processor.Stats()
	log.Info().
		Dur("duration", time.Since(startTime)).
		Int64("processed", processed).
		Int64("created", created).
		Int64("failed_feeds", processor.FailedFeeds()).
		Msg("Processing cycle finished")

	if err != nil {
		return fmt.Errorf("processing error: %w", err)
	}

	if cfg.RetentionDays > 0 {
		purgeCtx, purgeCancel := context.WithTimeout(ctx, purgeTimeout)
		defer purgeCancel()

		if _, err := processor.PurgeOldItems(purgeCtx, cfg.RetentionDays); err != nil {
			log.Error().Err(err).Msg("Failed to purge old items")
		}
	}

	return nil
}

// runServer starts the HTTP API on a read-only connection.
func runServer(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	return server.RunServer(ctx, db, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("Processing canceled by shutdown signal")
		return nil
	}
	return err
}
