package process

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/reader"
)

const (
	feedTimeout     = 2 * time.Minute
	updateTimeout   = 15 * time.Second
	progressEvery   = 5 * time.Minute
	maxFeedFailures = 10
)

// Fetcher retrieves a raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*reader.RawFeedDocument, error)
}

// FeedProcessor fetches feeds in parallel and upserts their entries.
// A FeedProcessor runs a single cycle; create a new one for each run.
type FeedProcessor struct {
	db          *database.DB
	fetcher     Fetcher
	normalizer  *reader.Normalizer
	items       *database.FeedItemStore
	clock       clock.Clock
	WorkerCount int

	feedQueue  chan models.Feed
	errorQueue chan error
	workerWg   sync.WaitGroup

	processed     atomic.Int64
	created       atomic.Int64
	failed        atomic.Int64
	activeWorkers atomic.Int32
}

// NewFeedProcessor creates a new feed processor using an existing database connection
func NewFeedProcessor(db *database.DB, fetcher Fetcher, clk clock.Clock, workerCount int) (*FeedProcessor, error) {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database connection is not valid: %w", err)
	}

	return &FeedProcessor{
		db:          db,
		fetcher:     fetcher,
		normalizer:  reader.NewNormalizer(clk),
		items:       database.NewFeedItemStore(db, clk),
		clock:       clk,
		WorkerCount: workerCount,
		feedQueue:   make(chan models.Feed, workerCount*2),
		errorQueue:  make(chan error, workerCount*4),
	}, nil
}

// ProcessFeeds loads active feeds and processes them with WorkerCount
// workers. Fetch failures are recorded on the feed and logged. The first
// storage failure, if any, is returned after all feeds are done.
func (p *FeedProcessor) ProcessFeeds(ctx context.Context) error {
	progressTicker := time.NewTicker(progressEvery)
	defer progressTicker.Stop()

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()

	go func() {
		for {
			select {
			case <-progressTicker.C:
				processed, created := p.Stats()
				log.Info().
					Int64("processed", processed).
					Int64("created", created).
					Int64("failed_feeds", p.failed.Load()).
					Int32("active_workers", p.activeWorkers.Load()).
					Int("feed_queue_size", len(p.feedQueue)).
					Msg("Processing progress")
			case <-progressCtx.Done():
				return
			}
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		var firstErr error
		for err := range p.errorQueue {
			log.Error().Err(err).Msg("Error occurred")

			var storageErr *database.StorageError
			if firstErr == nil && errors.As(err, &storageErr) {
				firstErr = err
			}
		}
		errChan <- firstErr
		close(errChan)
	}()

	for i := 0; i < p.WorkerCount; i++ {
		p.workerWg.Add(1)
		go p.feedWorker(ctx)
	}

	feeds, err := p.db.ActiveFeeds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Critical error loading feeds from database")
		close(p.feedQueue)
		p.workerWg.Wait()
		close(p.errorQueue)
		<-errChan
		return fmt.Errorf("failed to load feeds: %w", err)
	}
	log.Info().Int("loaded_feeds", len(feeds)).Msg("Loaded active feeds to process")

feedLoop:
	for _, feed := range feeds {
		select {
		case p.feedQueue <- feed:
		case <-ctx.Done():
			log.Info().Err(ctx.Err()).Msg("Context cancelled during feed queuing")
			break feedLoop
		}
	}
	close(p.feedQueue)

	p.workerWg.Wait()
	log.Info().Msg("All feed workers finished")

	close(p.errorQueue)
	if err := <-errChan; err != nil {
		return err
	}
	return ctx.Err()
}

func (p *FeedProcessor) feedWorker(ctx context.Context) {
	defer p.workerWg.Done()
	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)

	for {
		select {
		case feed, ok := <-p.feedQueue:
			if !ok {
				return
			}
			p.processFeed(ctx, feed)
		case <-ctx.Done():
			log.Debug().Err(ctx.Err()).Msg("Feed worker cancelling")
			return
		}
	}
}

// processFeed runs one feed through fetch, normalize and upsert, then records
// the outcome on the feed row.
func (p *FeedProcessor) processFeed(ctx context.Context, feed models.Feed) {
	log.Debug().Int64("feed_id", feed.ID).Str("url", feed.URL).Msg("Processing feed")

	feedCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	doc, fetchErr := p.fetcher.Fetch(feedCtx, feed.URL)
	if fetchErr != nil {
		p.failed.Add(1)
		p.recordFailure(ctx, &feed, fetchErr)
		return
	}

	normalized := p.normalizer.Normalize(doc)

	items, err := p.items.Upsert(feedCtx, feed.ID, normalized.Entries)
	if err != nil {
		p.sendError(fmt.Errorf("failed to store items of feed %d (%s): %w", feed.ID, feed.URL, err))
		return
	}

	var created int64
	for _, item := range items {
		if item.CreatedAt.Equal(item.UpdatedAt) {
			created++
		}
	}
	p.processed.Add(int64(len(items)))
	p.created.Add(created)

	updateCtx, cancelUpdate := context.WithTimeout(ctx, updateTimeout)
	defer cancelUpdate()

	if err := p.db.RecordFetchSuccess(updateCtx, feed.ID, normalized, p.clock.Now()); err != nil {
		p.sendError(fmt.Errorf("failed to update feed status for feed %d (%s): %w", feed.ID, feed.URL, err))
		return
	}

	log.Info().
		Int64("feed_id", feed.ID).
		Str("url", feed.URL).
		Int("entries", len(normalized.Entries)).
		Int64("created", created).
		Msg("Feed processed successfully")
}

func (p *FeedProcessor) recordFailure(ctx context.Context, feed *models.Feed, fetchErr error) {
	var readErr *reader.FeedReadError
	if errors.As(fetchErr, &readErr) && readErr.StatusCode == http.StatusTooManyRequests {
		log.Warn().
			Int64("feed_id", feed.ID).
			Str("url", feed.URL).
			Msg("Rate limited by feed, marking for later retry")
		feed.Status = models.FeedStatusRateLimited
		feed.LastError = sql.NullString{String: "Rate limited by feed", Valid: true}
	} else {
		log.Warn().
			Err(fetchErr).
			Int64("feed_id", feed.ID).
			Str("url", feed.URL).
			Int("failures", feed.FailuresCount+1).
			Msg("Failed to fetch feed")
		feed.FailuresCount++
		feed.LastError = sql.NullString{String: fetchErr.Error(), Valid: true}
		if feed.FailuresCount > maxFeedFailures {
			feed.Status = models.FeedStatusFailed
		}
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	if err := p.db.RecordFetchFailure(updateCtx, feed, p.clock.Now()); err != nil {
		p.sendError(fmt.Errorf("failed to update feed status for feed %d (%s): %w", feed.ID, feed.URL, err))
	}
}

// sendError sends an error to the error queue without blocking.
func (p *FeedProcessor) sendError(err error) {
	if err == nil {
		return
	}
	select {
	case p.errorQueue <- err:
	default:
		log.Error().Err(err).Msg("Error queue full, logging error instead of queuing")
	}
}

// Stats returns the number of rows touched and the number of rows first
// inserted so far.
func (p *FeedProcessor) Stats() (processed, created int64) {
	return p.processed.Load(), p.created.Load()
}

// FailedFeeds returns the number of feeds whose fetch failed.
func (p *FeedProcessor) FailedFeeds() int64 {
	return p.failed.Load()
}

// PurgeOldItems removes items first stored more than retentionDays ago.
func (p *FeedProcessor) PurgeOldItems(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retentionDays must be positive")
	}

	cutoff := p.clock.Now().UTC().AddDate(0, 0, -retentionDays)

	log.Info().
		Time("cutoff", cutoff).
		Int("retention_days", retentionDays).
		Msg("Purging old items from feed_items")

	rowsAffected, err := p.db.PurgeFeedItemsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge feed items: %w", err)
	}

	log.Info().Int64("rows_affected", rowsAffected).Msg("Purged old items from feed_items")
	return rowsAffected, nil
}
