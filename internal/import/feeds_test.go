package importfeeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
)

const csvCatalog = `URL,comments,language,status
https://example.com/a.xml,Main wire,en,active
https://example.com/b.xml,,fr,
,missing url,en,active
https://example.com/a.xml,duplicate,en,active
https://example.com/c.xml,,de,paused
`

const yamlCatalogFixture = `feeds:
  - url: https://example.com/a.xml
    comments: Main wire
    language: en
  - url: https://example.com/b.xml
    status: rate_limited
  - url: "  "
`

var now = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newImporter(t *testing.T) (*Importer, *database.DB) {
	t.Helper()

	db, err := database.NewDB(database.NewConfig(database.DriverSQLite, filepath.Join(t.TempDir(), "feeds.db")))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewImporter(db, clock.Fixed(now)), db
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadFeeds(t *testing.T, db *database.DB) []models.Feed {
	t.Helper()

	var feeds []models.Feed
	if err := db.Select(&feeds, "SELECT * FROM feeds ORDER BY id"); err != nil {
		t.Fatal(err)
	}
	return feeds
}

func TestImportCSV(t *testing.T) {
	importer, db := newImporter(t)

	summary, err := importer.ImportFeeds(context.Background(), writeFile(t, "feeds.csv", csvCatalog))
	if err != nil {
		t.Fatal(err)
	}

	if summary.Total != 5 || summary.Imported != 2 || len(summary.Problems) != 3 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	feeds := loadFeeds(t, db)
	if len(feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(feeds))
	}
	if feeds[0].URL != "https://example.com/a.xml" || feeds[0].Comments.String != "Main wire" || feeds[0].Language.String != "en" {
		t.Errorf("Unexpected first feed %+v", feeds[0])
	}
	if feeds[1].Comments.Valid || feeds[1].Status != models.FeedStatusActive {
		t.Errorf("Expected empty comments to be NULL and status to default, got %+v", feeds[1])
	}
	if !feeds[0].CreatedAt.Equal(now) {
		t.Errorf("Expected created_at %v, got %v", now, feeds[0].CreatedAt)
	}
}

func TestImportYAML(t *testing.T) {
	importer, db := newImporter(t)

	summary, err := importer.ImportFeeds(context.Background(), writeFile(t, "feeds.yaml", yamlCatalogFixture))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 3 || summary.Imported != 2 || len(summary.Problems) != 1 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	feeds := loadFeeds(t, db)
	if len(feeds) != 2 || feeds[1].Status != models.FeedStatusRateLimited {
		t.Errorf("Unexpected feeds %+v", feeds)
	}
}

func TestImportIsRepeatable(t *testing.T) {
	importer, db := newImporter(t)
	path := writeFile(t, "feeds.yml", yamlCatalogFixture)

	if _, err := importer.ImportFeeds(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	summary, err := importer.ImportFeeds(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if summary.Imported != 0 {
		t.Errorf("Expected nothing new on second import, got %d", summary.Imported)
	}
	if len(loadFeeds(t, db)) != 2 {
		t.Errorf("Expected feeds to stay at 2")
	}
}

func TestImportFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(csvCatalog))
	}))
	defer srv.Close()

	importer, _ := newImporter(t)

	summary, err := importer.ImportFeeds(context.Background(), srv.URL+"/feeds.csv")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Imported != 2 {
		t.Errorf("Expected 2 imported feeds, got %d", summary.Imported)
	}

	if _, err := importer.ImportFeeds(context.Background(), srv.URL+"/missing.csv"); err == nil {
		t.Error("Expected error for missing remote catalog")
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("url,comments,language\nhttps://example.com,,en\n"))
	if err == nil || !strings.Contains(err.Error(), "status") {
		t.Errorf("Expected missing status column error, got %v", err)
	}
}

func TestParseYAMLEmpty(t *testing.T) {
	records, err := ParseYAML(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestImportMissingFile(t *testing.T) {
	importer, _ := newImporter(t)

	if _, err := importer.ImportFeeds(context.Background(), filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("Expected error for missing file")
	}
}
