package repository

import (
	"context"

	"github.com/rigelhq/rigel/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists accounts. CreateUser must enforce email uniqueness
// with a store-level constraint (returning apperror.ErrConflict on collision),
// and IncrementPostCount must be a single server-side increment — both are
// race-prone as check-then-act patterns.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IncrementPostCount(ctx context.Context, userID string) error
}

// MessageRepository persists posts and their per-viewer visibility map.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// ListRecent returns messages ordered by descending creation time
	// (message ID as the deterministic tie-break).
	ListRecent(ctx context.Context, opts ListOptions) ([]model.Message, error)
	// NthUnseen returns the message at the given zero-based position in the
	// viewer's unseen set (same ordering as ListRecent), or
	// apperror.ErrNotFound when the set is exhausted.
	NthUnseen(ctx context.Context, viewerID string, position int) (*model.Message, error)
	// MarkSeen idempotently records that viewerID has seen messageID.
	MarkSeen(ctx context.Context, messageID, viewerID string) error
}

// TagRepository maintains the shared tag vocabulary. Upsert must be a single
// atomic create-or-increment so concurrent usages of the same name never lose
// counts.
type TagRepository interface {
	Upsert(ctx context.Context, name string) error
	Top(ctx context.Context, n int) ([]model.Tag, error)
}
