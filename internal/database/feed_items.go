package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
)

// created_at is only written by the INSERT branch, so a conflicting row
// keeps its original value and id.
const upsertFeedItemQuery = `
	INSERT INTO feed_items (
		feed_id, title, description, link, author, guid,
		categories, publication_date, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (feed_id, guid) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		link = excluded.link,
		author = excluded.author,
		categories = excluded.categories,
		publication_date = excluded.publication_date,
		updated_at = excluded.updated_at
	RETURNING id`

const selectFeedItemsByIDQuery = `
	SELECT id, feed_id, title, description, link, author, guid,
	       categories, publication_date, created_at, updated_at
	FROM feed_items
	WHERE id IN (?)
	ORDER BY id ASC`

// FeedItemStore persists normalized entries.
type FeedItemStore struct {
	db    *DB
	clock clock.Clock
}

// NewFeedItemStore creates a store stamping rows with times from clk.
func NewFeedItemStore(db *DB, clk clock.Clock) *FeedItemStore {
	return &FeedItemStore{db: db, clock: clk}
}

// Upsert writes entries for feedID in a single transaction keyed by
// (feed_id, guid): unknown keys are inserted, known keys have their content
// and updated_at overwritten. Either every entry is applied or none is.
//
// The returned rows are those touched by the batch, one per id, in id order.
// Failures are returned as *StorageError and never retried.
func (s *FeedItemStore) Upsert(ctx context.Context, feedID int64, entries []models.NormalizedEntry) ([]models.FeedItem, error) {
	if len(entries) == 0 {
		return []models.FeedItem{}, nil
	}

	now := s.clock.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, newStorageError("begin upsert transaction", err)
	}
	defer tx.Rollback()

	ids, err := upsertEntries(ctx, tx, feedID, entries, now)
	if err != nil {
		return nil, err
	}

	query, args, err := sqlx.In(selectFeedItemsByIDQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expand feed item ids: %w", err)
	}

	items := make([]models.FeedItem, 0, len(ids))
	if err := tx.SelectContext(ctx, &items, tx.Rebind(query), args...); err != nil {
		return nil, newStorageError("select upserted feed items", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, newStorageError("commit upsert transaction", err)
	}

	log.Debug().
		Int64("feed_id", feedID).
		Int("entries", len(entries)).
		Int("rows", len(items)).
		Msg("Feed items upserted")

	return items, nil
}

func upsertEntries(ctx context.Context, tx *sqlx.Tx, feedID int64, entries []models.NormalizedEntry, now time.Time) ([]int64, error) {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertFeedItemQuery))
	if err != nil {
		return nil, newStorageError("prepare feed item upsert", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))

	for _, entry := range entries {
		var id int64
		err := stmt.QueryRowxContext(ctx,
			feedID, entry.Title, entry.Description, entry.Link, entry.Author, entry.GUID,
			models.Categories(entry.Categories), entry.PublicationDate.UTC(), now, now,
		).Scan(&id)
		if err != nil {
			return nil, newStorageError(fmt.Sprintf("upsert feed item %q", entry.GUID), err)
		}

		// Entries sharing a guid resolve to the same row.
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

// PurgeFeedItemsBefore deletes items first stored before cutoff.
func (db *DB) PurgeFeedItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, db.Rebind("DELETE FROM feed_items WHERE created_at < ?"), cutoff.UTC())
	if err != nil {
		return 0, newStorageError("purge feed items", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected after purge: %w", err)
	}
	return rowsAffected, nil
}
