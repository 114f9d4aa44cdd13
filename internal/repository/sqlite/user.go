package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user.
//
// EMAIL UNIQUENESS:
// There is deliberately no "SELECT first to check" here. Two concurrent
// registrations with the same email would both pass such a pre-check and both
// insert. The UNIQUE constraint on users.email makes the database the
// arbiter: the loser of the race gets a constraint error, which we translate
// to apperror.ErrConflict so callers can decide whether to retry with a new
// value (the seeder does) or surface a 409 (the register endpoint does).
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	preferred, err := encodeStrings(user.PreferredTags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferred tags: %w", err)
	}
	notPreferred, err := encodeStrings(user.NotPreferredTags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding not-preferred tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, profile_pic, bio,
		                    preferred_tags, not_preferred_tags, total_posts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfilePic,
		user.Bio,
		preferred,
		notPreferred,
		user.TotalPosts,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("user", "email "+user.Email)
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a single user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a single user by email (used by login).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		user         model.User
		preferred    string
		notPreferred string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, profile_pic, bio,
		        preferred_tags, not_preferred_tags, total_posts, created_at, updated_at
		 FROM users `+where,
		arg,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePic,
		&user.Bio,
		&preferred,
		&notPreferred,
		&user.TotalPosts,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if user.PreferredTags, err = decodeStrings(preferred); err != nil {
		return nil, fmt.Errorf("sqlite: decoding preferred tags for user %s: %w", user.ID, err)
	}
	if user.NotPreferredTags, err = decodeStrings(notPreferred); err != nil {
		return nil, fmt.Errorf("sqlite: decoding not-preferred tags for user %s: %w", user.ID, err)
	}

	return &user, nil
}

// IncrementPostCount bumps a user's denormalized post counter by one.
//
// The increment happens inside the database (total_posts = total_posts + 1),
// never as a read-modify-write in Go — concurrent post creations by the same
// author must both count.
func (db *DB) IncrementPostCount(ctx context.Context, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET total_posts = total_posts + 1, updated_at = ? WHERE id = ?`,
		time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing post count for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}

	return nil
}

// encodeStrings / decodeStrings store a string slice as a JSON TEXT column.
// A nil slice round-trips as an empty one — callers never see NULL-ish nils.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
