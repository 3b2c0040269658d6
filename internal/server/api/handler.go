package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/pagination"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/storage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Response structure for the feed items endpoint
type Response struct {
	Items      []models.FeedItem `json:"items"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// FeedItemsHandler serves pages of feed items.
type FeedItemsHandler struct {
	repo storage.FeedItemRepository
}

// NewFeedItemsHandler creates a new handler instance.
func NewFeedItemsHandler(repo storage.FeedItemRepository) *FeedItemsHandler {
	return &FeedItemsHandler{repo: repo}
}

// GetFeedItems handles GET /v1/feed-items.
func (h *FeedItemsHandler) GetFeedItems(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	q, err := parseItemQuery(r)
	if err != nil {
		log.Warn().Err(err).Str("query", r.URL.RawQuery).Msg("Invalid feed items request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// One extra row tells whether another page exists.
	limit := q.Limit
	q.Limit++

	items, err := h.repo.FetchFeedItems(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Str("query", r.URL.RawQuery).Msg("Error fetching feed items from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := Response{Items: items}
	if len(items) > limit {
		response.Items = items[:limit]
		last := response.Items[len(response.Items)-1]
		next := pagination.Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID}.Encode()
		response.NextCursor = &next
	}

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
	}
}

func parseItemQuery(r *http.Request) (storage.ItemQuery, error) {
	query := r.URL.Query()
	q := storage.ItemQuery{Limit: defaultLimit}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > maxLimit {
			return q, fmt.Errorf("invalid 'limit' parameter: must be between 1 and %d", maxLimit)
		}
		q.Limit = limit
	}

	if feedIDStr := query.Get("feed_id"); feedIDStr != "" {
		feedID, err := strconv.ParseInt(feedIDStr, 10, 64)
		if err != nil || feedID <= 0 {
			return q, fmt.Errorf("invalid 'feed_id' parameter")
		}
		q.FeedID = &feedID
	}

	// The cursor wins over since when both are present.
	if cursorStr := query.Get("cursor"); cursorStr != "" {
		cursor, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			return q, fmt.Errorf("invalid 'cursor' parameter")
		}
		q.After = &cursor
		return q, nil
	}

	sinceStr := query.Get("since")
	if sinceStr == "" {
		return q, fmt.Errorf("missing required parameter: 'since' or 'cursor'")
	}
	since, err := time.Parse(time.RFC3339, sinceStr)
	if err != nil {
		return q, fmt.Errorf("invalid 'since' parameter: use RFC3339 format (e.g., 2025-03-28T15:00:00Z)")
	}
	since = since.UTC()
	q.Since = &since
	return q, nil
}
