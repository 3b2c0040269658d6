package reader

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Parse decodes an RSS, Atom or JSON feed document.
func Parse(data []byte) (*RawFeedDocument, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &FeedReadError{Message: fmt.Sprintf("failed to parse feed: %v", err)}
	}
	return FromGofeed(feed), nil
}

// FromGofeed converts a gofeed document. gofeed reports absent elements as
// empty strings, which are mapped to nil here.
func FromGofeed(feed *gofeed.Feed) *RawFeedDocument {
	if feed == nil {
		return &RawFeedDocument{}
	}

	doc := &RawFeedDocument{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Entries:     make([]RawEntry, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		doc.Entries = append(doc.Entries, RawEntry{
			Title:         optional(item.Title),
			Description:   optional(item.Description),
			Link:          optional(item.Link),
			Author:        optional(extractAuthor(item)),
			GUID:          optional(item.GUID),
			PubDate:       optional(pubDate(item)),
			PubDateParsed: pubDateParsed(item),
			Categories:    item.Categories,
		})
	}

	return doc
}

// pubDate prefers the published date; Atom entries often carry only <updated>.
func pubDate(item *gofeed.Item) string {
	if item.Published != "" {
		return item.Published
	}
	return item.Updated
}

// pubDateParsed takes gofeed's parsed instant with the same preference as
// pubDate.
func pubDateParsed(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func extractAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return formatAuthor(item.Authors[0].Name, item.Authors[0].Email)
	}
	if item.Author != nil {
		return formatAuthor(item.Author.Name, item.Author.Email)
	}
	return ""
}

// formatAuthor renders "email (name)" the way RSS <author> spells it.
func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s (%s)", email, name)
	case name != "":
		return name
	default:
		return email
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
