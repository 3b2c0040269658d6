package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/pagination"
)

// ItemQuery selects a page of feed items ordered by (updated_at, id).
// Exactly one of Since and After must be set.
type ItemQuery struct {
	Limit  int
	Since  *time.Time
	After  *pagination.Cursor
	FeedID *int64
}

// FeedItemRepository defines operations for accessing feed items.
type FeedItemRepository interface {
	FetchFeedItems(ctx context.Context, q ItemQuery) ([]models.FeedItem, error)
}

// sqlxRepository implements FeedItemRepository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) FeedItemRepository {
	return &sqlxRepository{db: db}
}

// FetchFeedItems returns items updated strictly after the requested position.
func (r *sqlxRepository) FetchFeedItems(ctx context.Context, q ItemQuery) ([]models.FeedItem, error) {
	var (
		where []string
		args  []any
	)

	switch {
	case q.After != nil:
		where = append(where, "(updated_at > ? OR (updated_at = ? AND id > ?))")
		ts := q.After.UpdatedAt.UTC()
		args = append(args, ts, ts, q.After.ID)
	case q.Since != nil:
		where = append(where, "updated_at > ?")
		args = append(args, q.Since.UTC())
	default:
		return nil, fmt.Errorf("either since or cursor must be provided")
	}

	if q.FeedID != nil {
		where = append(where, "feed_id = ?")
		args = append(args, *q.FeedID)
	}
	args = append(args, q.Limit)

	query := `SELECT * FROM feed_items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at ASC, id ASC LIMIT ?`

	items := []models.FeedItem{}
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return items, nil
}
