package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
)

// InsertFeed inserts a new feed through ext, which may be the DB or an open
// transaction, and returns its id.
func InsertFeed(ctx context.Context, ext sqlx.ExtContext, feed *models.Feed) (int64, error) {
	var id int64
	err := ext.QueryRowxContext(ctx, ext.Rebind(`
		INSERT INTO feeds (url, comments, language, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		feed.URL,
		feed.Comments,
		feed.Language,
		feed.Status,
		feed.CreatedAt.UTC(),
		feed.UpdatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, newStorageError("insert feed", err)
	}

	feed.ID = id
	return id, nil
}

// GetFeed returns the feed with the given id or nil when it does not exist.
func (db *DB) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	var feed models.Feed
	err := db.GetContext(ctx, &feed, db.Rebind("SELECT * FROM feeds WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, newStorageError("get feed", err)
	}
	return &feed, nil
}

// ActiveFeeds lists feeds due for processing, least recently retrieved first.
func (db *DB) ActiveFeeds(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	err := db.SelectContext(ctx, &feeds, db.Rebind(`
		SELECT * FROM feeds
		WHERE status IN (?, ?) AND deleted_at IS NULL
		ORDER BY last_retrieved_at ASC NULLS FIRST, created_at ASC
	`), models.FeedStatusActive, models.FeedStatusRateLimited)
	if err != nil {
		return nil, newStorageError("list active feeds", err)
	}
	return feeds, nil
}

// RecordFetchSuccess stores the feed-level fields of a normalized document and
// resets the failure state.
func (db *DB) RecordFetchSuccess(ctx context.Context, feedID int64, feed models.NormalizedFeed, now time.Time) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE feeds
		SET title = ?, link = ?, description = ?,
		    status = ?, failures_count = 0, last_error = NULL,
		    last_retrieved_at = ?, updated_at = ?
		WHERE id = ?`),
		feed.Title, feed.Link, feed.Description,
		models.FeedStatusActive, now.UTC(), now.UTC(), feedID)
	if err != nil {
		return newStorageError("record feed fetch success", err)
	}
	return nil
}

// RecordFetchFailure stores the status, failure count and last error carried
// by feed.
func (db *DB) RecordFetchFailure(ctx context.Context, feed *models.Feed, now time.Time) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE feeds
		SET status = ?, failures_count = ?, last_error = ?, last_retrieved_at = ?, updated_at = ?
		WHERE id = ?`),
		feed.Status, feed.FailuresCount, feed.LastError, now.UTC(), now.UTC(), feed.ID)
	if err != nil {
		return newStorageError("record feed fetch failure", err)
	}
	return nil
}

// InsertFeedIfAbsent inserts feed unless its URL is already stored. It
// reports whether a row was created.
func InsertFeedIfAbsent(ctx context.Context, ext sqlx.ExtContext, feed *models.Feed) (bool, error) {
	var id int64
	err := ext.QueryRowxContext(ctx, ext.Rebind(`
		INSERT INTO feeds (url, comments, language, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`),
		feed.URL,
		feed.Comments,
		feed.Language,
		feed.Status,
		feed.CreatedAt.UTC(),
		feed.UpdatedAt.UTC(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, newStorageError("insert feed", err)
	}

	feed.ID = id
	return true, nil
}
