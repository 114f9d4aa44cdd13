// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept repository INTERFACES, not concrete types — the tests in
// this package inject in-memory mocks, and main.go injects the SQLite
// implementation, without either side changing a line of service code.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

const (
	DefaultTopTags = 10
	MaxTopTags     = 100
)

// TagService maintains the tag ledger: a shared, append-only vocabulary of
// normalized tag names with usage frequencies.
type TagService struct {
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{
		tags:   tags,
		logger: logger,
	}
}

// NormalizeTag maps a raw tag string to its canonical ledger form:
// trimmed and lower-cased. "A", "a " and " A" are all the tag "a".
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// RecordUsage records one ledger usage per element of names.
//
// COUNT SEMANTICS, NOT SET SEMANTICS:
// The input is treated as a list of occurrences. If the caller passes the
// same name (after normalization) three times, the frequency goes up by
// three. Deduplicating here would make the ledger undercount relative to
// what callers actually attached to posts.
//
// Each name is recorded independently with an atomic create-or-increment;
// a failure on one name aborts the rest and surfaces to the caller.
// Names that normalize to the empty string are skipped.
func (s *TagService) RecordUsage(ctx context.Context, names []string) error {
	for _, raw := range names {
		name := NormalizeTag(raw)
		if name == "" {
			continue
		}
		if err := s.tags.Upsert(ctx, name); err != nil {
			s.logger.Error("failed to record tag usage",
				slog.String("tag", name),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("recording tag usage: %w", err)
		}
	}
	return nil
}

// Top returns the n most-used tags, descending by frequency.
// n is clamped to [1, MaxTopTags]; non-positive values get the default (10).
func (s *TagService) Top(ctx context.Context, n int) ([]model.Tag, error) {
	if n <= 0 {
		n = DefaultTopTags
	}
	if n > MaxTopTags {
		n = MaxTopTags
	}

	tags, err := s.tags.Top(ctx, n)
	if err != nil {
		s.logger.Error("failed to list top tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing top tags: %w", err)
	}

	return tags, nil
}
