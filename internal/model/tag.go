package model

import "time"

// Tag is an entry in the shared, append-only tag vocabulary.
//
// Name is stored normalized (trimmed, lower-cased) and is unique — messages
// reference tags by name, not by ID, so the vocabulary is shared across all
// posts. Frequency counts how many times the name has been attached to a
// created post since its first use; tags are never deleted.
//
// IsTrending is persisted but not yet computed by anything — it's a flag for
// a future trending job to flip.
type Tag struct {
	ID         string    `json:"id"         db:"id"`
	Name       string    `json:"name"       db:"name"`
	Frequency  int64     `json:"frequency"  db:"frequency"`
	IsTrending bool      `json:"isTrending" db:"is_trending"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	LastUsed   time.Time `json:"lastUsed"   db:"last_used"`
}
