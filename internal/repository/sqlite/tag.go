package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

// compile-time check that *DB implements repository.TagRepository
var _ repository.TagRepository = (*DB)(nil)

// Upsert records one usage of a (already normalized) tag name: first use
// creates the row with frequency 1, every later use increments it and
// refreshes last_used.
//
// THE RACE THIS CLOSES:
// "SELECT the tag, bump frequency in Go, save it back" has a window where two
// concurrent posts carrying the same tag both read frequency N and both write
// N+1 — one usage is lost. ON CONFLICT ... DO UPDATE SET frequency =
// frequency + 1 moves the increment into the database, where it's a single
// atomic statement, so concurrent usages always all count.
func (db *DB) Upsert(ctx context.Context, name string) error {
	now := time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (id, name, frequency, is_trending, created_at, last_used)
		 VALUES (?, ?, 1, 0, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		 	frequency = frequency + 1,
		 	last_used = excluded.last_used`,
		xid.New().String(), name, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording usage of tag %q: %w", name, err)
	}
	return nil
}

// Top returns the n most-used tags, descending by frequency.
// Ties are left to the store's natural order, which is stable across calls.
func (db *DB) Top(ctx context.Context, n int) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, frequency, is_trending, created_at, last_used
		 FROM tags
		 ORDER BY frequency DESC
		 LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing top tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0, n)
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(
			&tag.ID, &tag.Name, &tag.Frequency, &tag.IsTrending,
			&tag.CreatedAt, &tag.LastUsed,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}

	return tags, nil
}
