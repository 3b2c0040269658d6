package models

import "time"

// FeedItem represents a row in the feed_items table.
// The pair (FeedID, GUID) is unique; CreatedAt never changes once the row
// exists while UpdatedAt records the last upsert that touched it.
type FeedItem struct {
	ID              int64      `db:"id" json:"id"`
	FeedID          int64      `db:"feed_id" json:"feed_id"` // ID from the 'feeds' table
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	Link            string     `db:"link" json:"link"`
	Author          string     `db:"author" json:"author"`
	GUID            string     `db:"guid" json:"guid"`
	Categories      Categories `db:"categories" json:"categories"`
	PublicationDate time.Time  `db:"publication_date" json:"publication_date"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
