package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

const (
	MaxContentLength = 5000
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// FeedService owns the post pool: creating posts (with their tag and
// post-count bookkeeping), listing recent posts, serving the per-viewer
// unseen feed, and acknowledging consumption.
type FeedService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	tags     *TagService
	logger   *slog.Logger
}

func NewFeedService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	tags *TagService,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		messages: messages,
		users:    users,
		tags:     tags,
		logger:   logger,
	}
}

// CreateMessage validates and persists a new post, then performs the two
// pieces of bookkeeping it triggers.
//
// ORDER AND FAILURE SEMANTICS:
// 1. message insert          — the source of truth; failure fails the call
// 2. tag usage recording     — best-effort
// 3. author post-count bump  — best-effort
//
// There is no transaction spanning the three. Once the message row exists it
// stays; if step 2 or 3 fails, the derived counters drift behind the message
// store until something reconciles them. That window is accepted — the
// counters are display state, the message is the record. Failures there are
// logged, not returned.
func (s *FeedService) CreateMessage(ctx context.Context, content string, tags []string, authorID, imageURL string) (*model.Message, error) {
	content = strings.TrimSpace(content)

	if content == "" {
		return nil, apperror.ValidationFailed("content", "message content is required")
	}
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("message content must be %d characters or less", MaxContentLength))
	}
	if len(tags) == 0 {
		return nil, apperror.ValidationFailed("tags", "at least one tag is required")
	}
	if authorID == "" {
		return nil, apperror.ValidationFailed("authorId", "author is required")
	}

	// Tags are stored on the message in normalized form so the post and the
	// ledger agree on what a tag is called. Occurrences are preserved as-is —
	// the ledger counts occurrences, not distinct names.
	normalized := make([]string, 0, len(tags))
	for _, raw := range tags {
		if name := NormalizeTag(raw); name != "" {
			normalized = append(normalized, name)
		}
	}
	if len(normalized) == 0 {
		return nil, apperror.ValidationFailed("tags", "at least one non-empty tag is required")
	}

	msg := &model.Message{
		Content:  content,
		Tags:     normalized,
		AuthorID: authorID,
		Status:   model.StatusInPool,
		ImageURL: imageURL,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error("failed to create message",
			slog.String("authorId", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating message: %w", err)
	}

	// Best-effort bookkeeping from here on.
	if err := s.tags.RecordUsage(ctx, normalized); err != nil {
		s.logger.Error("message created but tag ledger update failed",
			slog.String("messageId", msg.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.users.IncrementPostCount(ctx, authorID); err != nil {
		s.logger.Error("message created but post-count increment failed",
			slog.String("messageId", msg.ID),
			slog.String("authorId", authorID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("message created",
		slog.String("id", msg.ID),
		slog.String("authorId", authorID),
		slog.Int("tags", len(normalized)),
	)

	return msg, nil
}

// ListRecent returns a page of posts, newest first.
// page is 1-based; limit is clamped to [1, MaxPageLimit], defaulting to 10.
func (s *FeedService) ListRecent(ctx context.Context, page, limit int) ([]model.Message, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	messages, err := s.messages.ListRecent(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list messages", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	return messages, nil
}

// NextUnseen returns the post at the given zero-based position in the
// viewer's unseen set, newest first.
//
// The position is a STABLE LOGICAL INDEX into "whatever this viewer has not
// seen right now", not a pagination cursor. The unseen set is recomputed on
// every call because it legitimately changes between calls: marking a post
// seen shifts everything up, a new post shifts everything down. Two calls
// with the same position returning different posts is correct behaviour,
// not a bug.
//
// NextUnseen never mutates anything. Acknowledging consumption is the
// caller's separate MarkSeen call, so fetch and acknowledge stay
// independently retryable.
func (s *FeedService) NextUnseen(ctx context.Context, viewerID string, position int) (*model.Message, error) {
	if viewerID == "" {
		return nil, apperror.ValidationFailed("viewerId", "viewer is required")
	}
	if position < 0 {
		return nil, apperror.ValidationFailed("position", "position must be zero or greater")
	}

	msg, err := s.messages.NthUnseen(ctx, viewerID, position)
	if err != nil {
		// Feed exhaustion is a normal outcome, not a store failure — don't log it.
		return nil, err
	}

	return msg, nil
}

// MarkSeen idempotently records that the viewer has seen the message.
// Marking an already-seen message succeeds; entries are never removed.
func (s *FeedService) MarkSeen(ctx context.Context, messageID, viewerID string) error {
	if messageID == "" {
		return apperror.ValidationFailed("id", "message ID is required")
	}
	if viewerID == "" {
		return apperror.ValidationFailed("viewerId", "viewer is required")
	}

	if err := s.messages.MarkSeen(ctx, messageID, viewerID); err != nil {
		// An unknown message ID is client input, not a store failure.
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to mark message seen",
			slog.String("messageId", messageID),
			slog.String("viewerId", viewerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("marking message seen: %w", err)
	}

	return nil
}
