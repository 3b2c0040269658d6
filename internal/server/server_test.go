package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/api"
)

var start = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db      *database.DB
	store   *database.FeedItemStore
	feedA   int64
	feedB   int64
	handler http.Handler
}

func newFixture(t *testing.T, apiKey string) *fixture {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(database.DriverSQLite, filepath.Join(t.TempDir(), "feeds.db")))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		store:   database.NewFeedItemStore(db, clock.NewStepper(start, time.Minute)),
		handler: NewHandler(db, zerolog.Nop(), apiKey),
	}

	for i, u := range []string{"https://a.example.com/rss", "https://b.example.com/rss"} {
		feed := models.NewFeed(start)
		feed.URL = u
		id, err := database.InsertFeed(context.Background(), db, feed)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			f.feedA = id
		} else {
			f.feedB = id
		}
	}
	return f
}

func (f *fixture) upsert(t *testing.T, feedID int64, guid, title string) models.FeedItem {
	t.Helper()

	items, err := f.store.Upsert(context.Background(), feedID, []models.NormalizedEntry{{
		Title:           title,
		Link:            "https://example.com/" + guid,
		GUID:            guid,
		PublicationDate: start,
	}})
	if err != nil {
		t.Fatal(err)
	}
	return items[0]
}

func (f *fixture) get(t *testing.T, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) items(t *testing.T, target string) api.Response {
	t.Helper()

	rec := f.get(t, target, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for %s, got %d: %s", target, rec.Code, rec.Body.String())
	}

	var resp api.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func since(ts time.Time) string {
	return "/v1/feed-items?since=" + url.QueryEscape(ts.Format(time.RFC3339))
}

func TestGetFeedItemsPaginates(t *testing.T) {
	f := newFixture(t, "")
	f.upsert(t, f.feedA, "g1", "One")
	f.upsert(t, f.feedA, "g2", "Two")
	f.upsert(t, f.feedB, "g3", "Three")

	first := f.items(t, since(start.Add(-time.Hour))+"&limit=2")
	if len(first.Items) != 2 || first.NextCursor == nil {
		t.Fatalf("Expected full first page with cursor, got %d items and cursor %v", len(first.Items), first.NextCursor)
	}
	if first.Items[0].GUID != "g1" || first.Items[1].GUID != "g2" {
		t.Errorf("Expected g1, g2 in update order, got %s, %s", first.Items[0].GUID, first.Items[1].GUID)
	}

	second := f.items(t, "/v1/feed-items?limit=2&cursor="+url.QueryEscape(*first.NextCursor))
	if len(second.Items) != 1 || second.Items[0].GUID != "g3" {
		t.Fatalf("Expected only g3 on second page, got %+v", second.Items)
	}
	if second.NextCursor != nil {
		t.Errorf("Expected no cursor on last page, got %q", *second.NextCursor)
	}
}

func TestGetFeedItemsSinceIncludesUpdatedRows(t *testing.T) {
	f := newFixture(t, "")
	first := f.upsert(t, f.feedA, "g1", "One")
	f.upsert(t, f.feedA, "g2", "Two")

	updated := f.upsert(t, f.feedA, "g1", "One again")
	if updated.ID != first.ID {
		t.Fatalf("Expected the same row, got ids %d and %d", first.ID, updated.ID)
	}

	resp := f.items(t, since(updated.UpdatedAt.Add(-time.Second)))
	if len(resp.Items) != 1 || resp.Items[0].Title != "One again" {
		t.Errorf("Expected only the updated row, got %+v", resp.Items)
	}
}

func TestGetFeedItemsFiltersByFeed(t *testing.T) {
	f := newFixture(t, "")
	f.upsert(t, f.feedA, "g1", "One")
	f.upsert(t, f.feedB, "g2", "Two")

	resp := f.items(t, since(start.Add(-time.Hour))+"&feed_id="+strconv.FormatInt(f.feedB, 10))
	if len(resp.Items) != 1 || resp.Items[0].FeedID != f.feedB {
		t.Errorf("Expected only feed %d items, got %+v", f.feedB, resp.Items)
	}
}

func TestGetFeedItemsEmpty(t *testing.T) {
	f := newFixture(t, "")

	rec := f.get(t, since(start), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != `{"items":[]}` {
		t.Errorf("Expected empty items array, got %s", body)
	}
}

func TestGetFeedItemsBadRequests(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name   string
		target string
	}{
		{"missing since and cursor", "/v1/feed-items"},
		{"bad since", "/v1/feed-items?since=yesterday"},
		{"bad cursor", "/v1/feed-items?cursor=bm9wZQ"},
		{"zero limit", since(start) + "&limit=0"},
		{"huge limit", since(start) + "&limit=100000"},
		{"bad feed id", since(start) + "&feed_id=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.get(t, tt.target, nil); rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	f := newFixture(t, "secret")

	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", http.Header{"X-Api-Key": {"guess"}}, http.StatusUnauthorized},
		{"valid", http.Header{"X-Api-Key": {"secret"}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.get(t, "/health", tt.header); rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")

	if rec := f.get(t, "/health", nil); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}

	f.db.Close()
	if rec := f.get(t, "/health", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after close, got %d", rec.Code)
	}
}

func TestExportFeeds(t *testing.T) {
	f := newFixture(t, "")

	rec := f.get(t, "/v1/feeds", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d records", len(records))
	}
	if records[0][1] != "url" || records[1][1] != "https://a.example.com/rss" || records[2][5] != models.FeedStatusActive {
		t.Errorf("Unexpected CSV content %v", records)
	}
}
