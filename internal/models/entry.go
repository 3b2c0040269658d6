package models

import "time"

// NormalizedFeed is a feed document reduced to the fields that are stored.
// Entries keep the source order minus adjacent duplicates.
type NormalizedFeed struct {
	Title       string
	Link        string
	Description string
	Entries     []NormalizedEntry
}

// NormalizedEntry is one feed entry with every optional field resolved.
type NormalizedEntry struct {
	Title           string
	Description     string
	Link            string
	Author          string
	GUID            string
	Categories      []string
	PublicationDate time.Time
}
