package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Defaults for unset FetcherConfig fields.
const (
	DefaultUserAgent      = "el-monitorro/1.0"
	DefaultRequestTimeout = 15 * time.Second
)

// FetcherConfig configures HTTP retrieval of feeds.
type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// Fetcher downloads and parses feed documents.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a Fetcher, filling unset config values with defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	parser.Client = &http.Client{Timeout: cfg.RequestTimeout}

	return &Fetcher{parser: parser}
}

// Fetch retrieves url and returns the raw document. Every failure, transport
// or format, is reported as *FeedReadError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*RawFeedDocument, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &FeedReadError{
				Message:    fmt.Sprintf("unexpected status fetching %s: %s", url, httpErr.Status),
				StatusCode: httpErr.StatusCode,
			}
		}
		return nil, &FeedReadError{Message: fmt.Sprintf("failed to fetch %s: %v", url, err)}
	}
	return FromGofeed(feed), nil
}
