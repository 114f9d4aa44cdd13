package model

import "time"

// Message lifecycle statuses. Only StatusInPool is assigned today; the status
// field exists for the reply workflow that consumes posts out of the pool.
const (
	StatusInPool = "in pool"
)

// Message represents a single post in the pool.
//
// A message is immutable after creation except for two things:
//   - SeenBy entries, which are added monotonically (never removed) as
//     viewers consume the post
//   - Status / LastActionAt / RepliedBy, reserved for the reply workflow
//
// SEEN-BY MAP:
// SeenBy maps a viewer's user ID to true once that viewer has consumed the
// post. The author is seeded into the map at creation time — you always
// "have seen" your own post. In SQLite the map lives in a separate
// message_seen table; the repository folds it back into this field on reads.
type Message struct {
	ID           string          `json:"id"           db:"id"`
	Content      string          `json:"content"      db:"content"`
	Tags         []string        `json:"tags"         db:"tags"` // normalized tag names, not tag IDs
	AuthorID     string          `json:"authorId"     db:"author_id"`
	Status       string          `json:"status"       db:"status"`
	ImageURL     string          `json:"imageUrl"     db:"image_url"`
	CreatedAt    time.Time       `json:"createdAt"    db:"created_at"`
	LastActionAt *time.Time      `json:"lastActionAt" db:"last_action_at"` // nil until the reply workflow touches it
	RepliedBy    *string         `json:"repliedBy"    db:"replied_by"`     // nil until replied to
	SeenBy       map[string]bool `json:"seenBy"`
}
