// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// PASSWORD HANDLING:
// PasswordHash holds the bcrypt hash, never the plain-text password.
// The `json:"-"` tag tells encoding/json to NEVER serialize this field,
// so a User can be written straight into an API response without leaking
// the credential.
//
// TotalPosts is denormalized — a counter maintained alongside the messages
// table, not computed from it. It can drift if a count increment fails after
// a message insert; that window is accepted (the increment is best-effort,
// see service.FeedService.CreateMessage).
type User struct {
	ID               string    `json:"id"               db:"id"`
	Username         string    `json:"username"         db:"username"`
	Email            string    `json:"email"            db:"email"` // unique across all users
	PasswordHash     string    `json:"-"                db:"password_hash"`
	ProfilePic       string    `json:"profilePic"       db:"profile_pic"`
	Bio              string    `json:"bio"              db:"bio"`
	PreferredTags    []string  `json:"preferredTags"    db:"preferred_tags"`     // reserved for feed personalisation
	NotPreferredTags []string  `json:"notPreferredTags" db:"not_preferred_tags"` // reserved for feed personalisation
	TotalPosts       int64     `json:"totalPosts"       db:"total_posts"`
	CreatedAt        time.Time `json:"createdAt"        db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt"        db:"updated_at"`
}
