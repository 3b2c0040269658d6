// Package importfeeds loads a feed catalog from CSV or YAML into the feeds
// table.
package importfeeds

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
)

var validStatuses = map[string]bool{
	models.FeedStatusActive:      true,
	models.FeedStatusFailed:      true,
	models.FeedStatusRateLimited: true,
}

// Record is one catalog entry.
type Record struct {
	URL      string `yaml:"url"`
	Comments string `yaml:"comments"`
	Language string `yaml:"language"`
	Status   string `yaml:"status"`

	line int
}

type yamlCatalog struct {
	Feeds []Record `yaml:"feeds"`
}

// Summary describes the outcome of an import. Problems holds one message per
// skipped record.
type Summary struct {
	Total    int
	Imported int
	Problems []string
}

// Importer handles the feed import process
type Importer struct {
	db     *database.DB
	clock  clock.Clock
	client *http.Client
}

// NewImporter creates a new feed importer
func NewImporter(db *database.DB, clk clock.Clock) *Importer {
	return &Importer{db: db, clock: clk, client: http.DefaultClient}
}

// ImportFeeds reads the catalog at source, a local path or an http(s) URL,
// and inserts its feeds in one transaction. Files ending in .yaml or .yml are
// decoded as YAML, everything else as CSV. Records with an empty URL, an
// unknown status or an already stored URL are skipped and reported.
func (i *Importer) ImportFeeds(ctx context.Context, source string) (*Summary, error) {
	log.Info().Str("source", source).Msg("Starting feed import")

	data, err := i.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer data.Close()

	var records []Record
	if ext := strings.ToLower(filepath.Ext(source)); ext == ".yaml" || ext == ".yml" {
		records, err = ParseYAML(data)
	} else {
		records, err = ParseCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed catalog: %w", err)
	}

	summary, err := i.insert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to import feeds: %w", err)
	}

	log.Info().
		Int("total", summary.Total).
		Int("imported", summary.Imported).
		Int("skipped", len(summary.Problems)).
		Msg("Import summary")
	return summary, nil
}

func (i *Importer) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open feed catalog: %w", err)
		}
		return f, nil
	}

	log.Debug().Str("url", source).Msg("Downloading feed catalog")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download feed catalog: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download feed catalog: HTTP status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// ParseCSV reads records from a CSV file whose header names the columns
// url, comments, language and status in any order.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, 4)
	for _, name := range []string{"url", "comments", "language", "status"} {
		idx := findColumnIndex(header, name)
		if idx < 0 {
			return nil, fmt.Errorf("required column '%s' not found in CSV header", name)
		}
		columns[name] = idx
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		records = append(records, Record{
			URL:      field(row, columns["url"]),
			Comments: field(row, columns["comments"]),
			Language: field(row, columns["language"]),
			Status:   field(row, columns["status"]),
			line:     line,
		})
	}
	return records, nil
}

// ParseYAML reads records from a document of the form
// feeds: [{url, comments, language, status}].
func ParseYAML(r io.Reader) ([]Record, error) {
	var catalog yamlCatalog
	if err := yaml.NewDecoder(r).Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	for idx := range catalog.Feeds {
		catalog.Feeds[idx].URL = strings.TrimSpace(catalog.Feeds[idx].URL)
		catalog.Feeds[idx].line = idx + 1
	}
	return catalog.Feeds, nil
}

func (i *Importer) insert(ctx context.Context, records []Record) (*Summary, error) {
	summary := &Summary{Total: len(records)}

	tx, err := i.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := i.clock.Now()
	for _, rec := range records {
		logger := log.With().Int("record", rec.line).Str("url", rec.URL).Logger()

		if rec.URL == "" {
			logger.Warn().Msg("Skipping record with empty URL")
			summary.Problems = append(summary.Problems, fmt.Sprintf("record %d: empty URL", rec.line))
			continue
		}

		feed := models.NewFeed(now)
		feed.URL = rec.URL
		feed.Comments = nullString(rec.Comments)
		feed.Language = nullString(rec.Language)
		if rec.Status != "" {
			if !validStatuses[rec.Status] {
				logger.Warn().Str("status", rec.Status).Msg("Skipping record with unknown status")
				summary.Problems = append(summary.Problems, fmt.Sprintf("record %d: unknown status %q", rec.line, rec.Status))
				continue
			}
			feed.Status = rec.Status
		}

		created, err := database.InsertFeedIfAbsent(ctx, tx, feed)
		if err != nil {
			return nil, err
		}
		if !created {
			logger.Warn().Msg("Duplicate URL")
			summary.Problems = append(summary.Problems, fmt.Sprintf("record %d: duplicate URL: %s", rec.line, rec.URL))
			continue
		}

		summary.Imported++
		logger.Debug().Int64("feed_id", feed.ID).Msg("Feed inserted")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return summary, nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

func field(row []string, index int) string {
	if index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
