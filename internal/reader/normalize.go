package reader

import (
	"github.com/someoneonearthwholovestg/el-monitorro/internal/clock"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/models"
)

// Normalizer maps raw documents to models.NormalizedFeed.
type Normalizer struct {
	times *TimeParser
}

// NewNormalizer creates a normalizer whose date fallback reads clk.
func NewNormalizer(clk clock.Clock) *Normalizer {
	return &Normalizer{times: NewTimeParser(clk)}
}

// Normalize converts doc. Entries without a link are dropped, the rest keep
// their order and pass through Dedup.
func (n *Normalizer) Normalize(doc *RawFeedDocument) models.NormalizedFeed {
	if doc == nil {
		return models.NormalizedFeed{Entries: []models.NormalizedEntry{}}
	}

	entries := make([]models.NormalizedEntry, 0, len(doc.Entries))
	for _, raw := range doc.Entries {
		if raw.Link == nil {
			continue
		}
		entries = append(entries, n.normalizeEntry(raw))
	}

	return models.NormalizedFeed{
		Title:       doc.Title,
		Link:        doc.Link,
		Description: doc.Description,
		Entries:     Dedup(entries),
	}
}

func (n *Normalizer) normalizeEntry(raw RawEntry) models.NormalizedEntry {
	categories := make([]string, len(raw.Categories))
	copy(categories, raw.Categories)

	return models.NormalizedEntry{
		Title:           valueOr(raw.Title),
		Description:     valueOr(raw.Description),
		Link:            valueOr(raw.Link),
		Author:          valueOr(raw.Author),
		GUID:            valueOr(raw.GUID),
		Categories:      categories,
		PublicationDate: n.times.Resolve(raw.PubDateParsed, raw.PubDate),
	}
}
