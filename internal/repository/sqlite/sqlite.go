// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Single-server deployments (which is most apps, honestly)
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// ATOMIC MUTATIONS:
// Requests are served concurrently and the database is the only shared state,
// so every counter and flag mutation in this package is a single SQL
// statement the database applies atomically:
//   - tag usage:      INSERT ... ON CONFLICT(name) DO UPDATE SET frequency = frequency + 1
//   - post counts:    UPDATE users SET total_posts = total_posts + 1
//   - seen markers:   INSERT OR IGNORE INTO message_seen
//   - email unique:   UNIQUE constraint on users.email
// Read-modify-write ("fetch the row, bump the field, save it back") would
// lose updates under concurrency, so none of it appears here.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// BLANK IMPORT:
	// The sqlite package's init() function registers itself with database/sql
	// as a driver named "sqlite". After this import, sql.Open("sqlite", ...)
	// knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.UserRepository, MessageRepository and TagRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/rigel.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads WHILE a write is happening — critical
	// for a web server where many requests hit the DB at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// We need them for messages → users and message_seen → messages.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this next to New().
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// so it's safe to run on every startup.
//
// The per-viewer visibility map of a message is the message_seen table —
// SQLite has no map column type, and a join table gives us both an atomic,
// idempotent "mark seen" (INSERT OR IGNORE against the primary key) and an
// indexed anti-join for the unseen-set query.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			username           TEXT NOT NULL,
			email              TEXT NOT NULL UNIQUE,
			password_hash      TEXT NOT NULL,
			profile_pic        TEXT NOT NULL DEFAULT '',
			bio                TEXT NOT NULL DEFAULT '',
			preferred_tags     TEXT NOT NULL DEFAULT '[]',
			not_preferred_tags TEXT NOT NULL DEFAULT '[]',
			total_posts        INTEGER NOT NULL DEFAULT 0,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id             TEXT PRIMARY KEY,
			content        TEXT NOT NULL,
			tags           TEXT NOT NULL DEFAULT '[]',
			author_id      TEXT NOT NULL REFERENCES users(id),
			status         TEXT NOT NULL DEFAULT 'in pool',
			image_url      TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_action_at DATETIME,
			replied_by     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

		CREATE TABLE IF NOT EXISTS message_seen (
			message_id TEXT NOT NULL REFERENCES messages(id),
			viewer_id  TEXT NOT NULL,
			PRIMARY KEY (message_id, viewer_id)
		);
		CREATE INDEX IF NOT EXISTS idx_message_seen_viewer ON message_seen(viewer_id);
	`)
	if err != nil {
		return fmt.Errorf("creating messages tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			frequency   INTEGER NOT NULL DEFAULT 1,
			is_trending INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tags_frequency ON tags(frequency);
	`)
	if err != nil {
		return fmt.Errorf("creating tags table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// on the given column ("table.column"). modernc.org/sqlite doesn't export a
// typed error for this, so we match the well-known message text.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY
// constraint failure. modernc.org/sqlite exposes no typed error either, so
// the message text is the contract here too.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
