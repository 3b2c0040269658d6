// Package reader turns syndication documents into normalized feed entries.
//
// Fetching and byte-level parsing (Fetcher, Parse) report failures as
// *FeedReadError. Normalization itself never fails: missing or malformed
// fields degrade to empty values and the current time.
package reader

import "time"

// RawFeedDocument is a parsed but not yet normalized feed document.
// Optional entry fields are nil when the document does not carry them.
type RawFeedDocument struct {
	Title       string
	Link        string
	Description string
	Entries     []RawEntry
}

// RawEntry is a single entry as found in the source document. PubDateParsed
// holds the instant the feed parser read from PubDate, if any.
type RawEntry struct {
	Title         *string
	Description   *string
	Link          *string
	Author        *string
	GUID          *string
	PubDate       *string
	PubDateParsed *time.Time
	Categories    []string
}

// valueOr resolves an optional value to itself or the zero value of T.
func valueOr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
