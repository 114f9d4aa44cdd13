package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces, in place of a
// real database. The services only see interfaces, so they can't tell the
// difference — which is the point.

// ---------------------------------------------------------------------------
// mockTagRepo

type mockTagRepo struct {
	tags  map[string]*model.Tag
	order []string // first-use order, the stable tie-break in Top
	err   error    // if set, every call fails with it
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[string]*model.Tag)}
}

func (m *mockTagRepo) Upsert(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	now := time.Now()
	if tag, ok := m.tags[name]; ok {
		tag.Frequency++
		tag.LastUsed = now
		return nil
	}
	m.tags[name] = &model.Tag{
		ID:        fmt.Sprintf("tag-%d", len(m.tags)+1),
		Name:      name,
		Frequency: 1,
		CreatedAt: now,
		LastUsed:  now,
	}
	m.order = append(m.order, name)
	return nil
}

func (m *mockTagRepo) Top(_ context.Context, n int) ([]model.Tag, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]model.Tag, 0, len(m.tags))
	for _, name := range m.order {
		result = append(result, *m.tags[name])
	}
	// Insertion sort by descending frequency, keeping first-use order on ties.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].Frequency > result[j-1].Frequency; j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	if n < len(result) {
		result = result[:n]
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// mockMessageRepo

type mockMessageRepo struct {
	messages []*model.Message // insertion order == creation order
	nextID   int
	err      error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(_ context.Context, msg *model.Message) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	msg.ID = fmt.Sprintf("msg-%d", m.nextID)
	msg.CreatedAt = time.Now()
	if msg.Status == "" {
		msg.Status = model.StatusInPool
	}
	msg.SeenBy = map[string]bool{msg.AuthorID: true}
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id string) (*model.Message, error) {
	for _, msg := range m.messages {
		if msg.ID == id {
			result := *msg
			return &result, nil
		}
	}
	return nil, apperror.NotFound("message", id)
}

func (m *mockMessageRepo) ListRecent(_ context.Context, opts repository.ListOptions) ([]model.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	newestFirst := make([]model.Message, 0, len(m.messages))
	for i := len(m.messages) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, *m.messages[i])
	}
	if opts.Offset >= len(newestFirst) {
		return []model.Message{}, nil
	}
	newestFirst = newestFirst[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(newestFirst) {
		newestFirst = newestFirst[:opts.Limit]
	}
	return newestFirst, nil
}

func (m *mockMessageRepo) NthUnseen(_ context.Context, viewerID string, position int) (*model.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	unseen := make([]*model.Message, 0, len(m.messages))
	for i := len(m.messages) - 1; i >= 0; i-- {
		if !m.messages[i].SeenBy[viewerID] {
			unseen = append(unseen, m.messages[i])
		}
	}
	if position >= len(unseen) {
		return nil, apperror.NoMoreUnseen()
	}
	result := *unseen[position]
	return &result, nil
}

func (m *mockMessageRepo) MarkSeen(_ context.Context, messageID, viewerID string) error {
	if m.err != nil {
		return m.err
	}
	for _, msg := range m.messages {
		if msg.ID == messageID {
			msg.SeenBy[viewerID] = true
			return nil
		}
	}
	return apperror.NotFound("message", messageID)
}

// ---------------------------------------------------------------------------
// mockUserRepo

type mockUserRepo struct {
	users        map[string]*model.User
	nextID       int
	incrementErr error // lets tests fail only the post-count bump
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return apperror.Conflict("user", "email "+user.Email)
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) IncrementPostCount(_ context.Context, userID string) error {
	if m.incrementErr != nil {
		return m.incrementErr
	}
	user, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	user.TotalPosts++
	return nil
}

// ---------------------------------------------------------------------------
// shared helpers

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	feed     *FeedService
	tags     *TagService
	tagRepo  *mockTagRepo
	msgRepo  *mockMessageRepo
	userRepo *mockUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tagRepo := newMockTagRepo()
	msgRepo := newMockMessageRepo()
	userRepo := newMockUserRepo()
	logger := testLogger()

	tags := NewTagService(tagRepo, logger)
	return &testEnv{
		feed:     NewFeedService(msgRepo, userRepo, tags, logger),
		tags:     tags,
		tagRepo:  tagRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

// addUser registers a bare user directly against the mock repo.
func (e *testEnv) addUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Username: "u", Email: email, PasswordHash: "x"}
	if err := e.userRepo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("adding user: %v", err)
	}
	return user
}
