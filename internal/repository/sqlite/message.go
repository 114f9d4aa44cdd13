package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

// compile-time check that *DB implements repository.MessageRepository
var _ repository.MessageRepository = (*DB)(nil)

// messageColumns is the SELECT list shared by every message query, so Scan
// call sites stay in lockstep with one definition.
const messageColumns = `id, content, tags, author_id, status, image_url, created_at, last_action_at, replied_by`

// Create inserts a new message and seeds its visibility map with the author.
//
// The author entry means "you have always seen your own post" — the feed
// selector must never serve a post back to the person who wrote it.
//
// The message row and the author's seen-marker are two statements without a
// wrapping transaction; a crash between them could leave a post the author
// sees in their own feed once. That matches the source system's best-effort
// semantics, and the marker insert is idempotent so a repair pass can re-run it.
func (db *DB) Create(ctx context.Context, msg *model.Message) error {
	msg.ID = xid.New().String()
	msg.CreatedAt = time.Now()
	if msg.Status == "" {
		msg.Status = model.StatusInPool
	}

	tags, err := encodeStrings(msg.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding message tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO messages (id, content, tags, author_id, status, image_url, created_at, last_action_at, replied_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.Content,
		tags,
		msg.AuthorID,
		msg.Status,
		msg.ImageURL,
		msg.CreatedAt,
		msg.LastActionAt,
		msg.RepliedBy,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating message: %w", err)
	}

	if err := db.MarkSeen(ctx, msg.ID, msg.AuthorID); err != nil {
		return fmt.Errorf("sqlite: seeding author visibility for message %s: %w", msg.ID, err)
	}

	if msg.SeenBy == nil {
		msg.SeenBy = map[string]bool{}
	}
	msg.SeenBy[msg.AuthorID] = true

	return nil
}

// GetByID retrieves a single message with its visibility map.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Message, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)

	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("message", id)
		}
		return nil, fmt.Errorf("sqlite: getting message %s: %w", id, err)
	}

	if err := db.loadSeenBy(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListRecent returns messages newest-first.
//
// ORDERING:
// created_at alone is not a total order — two posts written in the same
// instant share a timestamp. The id is the tie-break: xid values are
// time-ordered, so "id DESC" agrees with creation order and, crucially, is
// DETERMINISTIC. Without it, successive ordinal reads over the unseen set
// could skip or repeat a post whenever the store reshuffled equal timestamps.
func (db *DB) ListRecent(ctx context.Context, opts repository.ListOptions) ([]model.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}

	for i := range messages {
		if err := db.loadSeenBy(ctx, &messages[i]); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

// NthUnseen returns the message at the given zero-based position in the
// viewer's unseen set, ordered newest-first.
//
// The unseen set is recomputed from scratch on EVERY call — that's the
// contract, not an inefficiency to optimise away. The position indexes into
// "whatever the viewer has not seen right now", so the set must reflect every
// mark-seen and every newly created post since the previous call. The NOT
// EXISTS anti-join on message_seen is the indexed equivalent of fetching all
// messages and filtering the visibility map in memory.
func (db *DB) NthUnseen(ctx context.Context, viewerID string, position int) (*model.Message, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m
		 WHERE NOT EXISTS (
		 	SELECT 1 FROM message_seen s
		 	WHERE s.message_id = m.id AND s.viewer_id = ?
		 )
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1 OFFSET ?`,
		viewerID, position,
	)

	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NoMoreUnseen()
		}
		return nil, fmt.Errorf("sqlite: selecting unseen message at %d for viewer %s: %w", position, viewerID, err)
	}

	if err := db.loadSeenBy(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkSeen records that viewerID has seen messageID.
//
// INSERT OR IGNORE against the (message_id, viewer_id) primary key makes the
// operation idempotent and atomic in one statement — marking twice is a
// no-op, entries are never removed, and concurrent marks can't conflict.
// OR IGNORE only suppresses the key conflict; an unknown message ID still
// trips the message_id foreign key, which is the only FK on this table, so
// that failure translates directly to "no such message".
func (db *DB) MarkSeen(ctx context.Context, messageID, viewerID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO message_seen (message_id, viewer_id) VALUES (?, ?)`,
		messageID, viewerID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("message", messageID)
		}
		return fmt.Errorf("sqlite: marking message %s seen by %s: %w", messageID, viewerID, err)
	}
	return nil
}

// loadSeenBy folds the message_seen rows back into the message's map field.
func (db *DB) loadSeenBy(ctx context.Context, msg *model.Message) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT viewer_id FROM message_seen WHERE message_id = ?`, msg.ID)
	if err != nil {
		return fmt.Errorf("sqlite: loading seen-by for message %s: %w", msg.ID, err)
	}
	defer rows.Close()

	msg.SeenBy = map[string]bool{}
	for rows.Next() {
		var viewerID string
		if err := rows.Scan(&viewerID); err != nil {
			return fmt.Errorf("sqlite: scanning seen-by row: %w", err)
		}
		msg.SeenBy[viewerID] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating seen-by rows: %w", err)
	}
	return nil
}

// rowScanner lets scanMessage accept both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		msg  model.Message
		tags string
	)
	err := row.Scan(
		&msg.ID,
		&msg.Content,
		&tags,
		&msg.AuthorID,
		&msg.Status,
		&msg.ImageURL,
		&msg.CreatedAt,
		&msg.LastActionAt,
		&msg.RepliedBy,
	)
	if err != nil {
		return nil, err
	}

	if msg.Tags, err = decodeStrings(tags); err != nil {
		return nil, fmt.Errorf("decoding tags for message %s: %w", msg.ID, err)
	}
	return &msg, nil
}
