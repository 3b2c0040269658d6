package models

import (
	"database/sql"
	"time"
)

// Feed statuses
const (
	FeedStatusActive      = "active"
	FeedStatusFailed      = "failed"
	FeedStatusRateLimited = "rate_limited"
)

// Feed represents a row in the 'feeds' table
type Feed struct {
	ID              int64          `db:"id" json:"id"`
	URL             string         `db:"url" json:"url"`
	Title           string         `db:"title" json:"title"`
	Link            string         `db:"link" json:"link"`
	Description     string         `db:"description" json:"description"`
	Comments        sql.NullString `db:"comments" json:"-"`
	Language        sql.NullString `db:"language" json:"-"`
	Status          string         `db:"status" json:"status"`
	FailuresCount   int            `db:"failures_count" json:"failures_count"`
	LastError       sql.NullString `db:"last_error" json:"-"`
	LastRetrievedAt sql.NullTime   `db:"last_retrieved_at" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt       sql.NullTime   `db:"deleted_at" json:"-"`
}

// NewFeed creates a new active Feed stamped with now
func NewFeed(now time.Time) *Feed {
	return &Feed{
		Status:    FeedStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
