// Package seed populates the database with themed fake users and posts.
//
// The generated data exercises the same service paths as real traffic: posts
// go through FeedService.CreateMessage, so the tag ledger and the authors'
// post counters are maintained exactly as they would be in production.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/auth"
	"github.com/rigelhq/rigel/internal/model"
	"github.com/rigelhq/rigel/internal/repository"
	"github.com/rigelhq/rigel/internal/service"
	"github.com/rigelhq/rigel/internal/upload"
)

const (
	// Generated content is grown to at least minContentLength characters and
	// clamped to maxContentLength.
	minContentLength = 400
	maxContentLength = 499

	// DefaultProfilePic is the fallback when the cat image service is down.
	DefaultProfilePic = "/profile_pics/default.jpg"

	catImageURL  = "https://cataas.com/cat?json=true"
	postImageURL = "https://picsum.photos/200/300"

	// How many fresh emails to try when the generator collides with an
	// existing account.
	maxEmailAttempts = 5
)

// theme pairs a content generator with the tag pool its posts draw from.
type theme struct {
	name     string
	generate func(f *gofakeit.Faker) string
	tags     []string
}

var elements = []string{
	"hydrogen", "helium", "lithium", "carbon", "nitrogen",
	"oxygen", "sodium", "silicon", "iron", "copper",
}

var themes = []theme{
	{
		name:     "Commerce",
		generate: func(f *gofakeit.Faker) string { return f.ProductDescription() },
		tags:     []string{"shopping", "products", "sales", "discounts", "deals"},
	},
	{
		name:     "Company",
		generate: func(f *gofakeit.Faker) string { return f.Slogan() },
		tags:     []string{"business", "startup", "growth", "innovation", "leadership"},
	},
	{
		name:     "Music",
		generate: func(f *gofakeit.Faker) string { return f.SongName() },
		tags:     []string{"songs", "artists", "genres", "albums", "music"},
	},
	{
		name:     "Science",
		generate: func(f *gofakeit.Faker) string { return elements[f.Number(0, len(elements)-1)] },
		tags:     []string{"chemistry", "biology", "research", "innovation", "discovery"},
	},
	{
		name:     "Hacker",
		generate: func(f *gofakeit.Faker) string { return f.HackerPhrase() },
		tags:     []string{"cybersecurity", "technology", "coding", "hacking", "data"},
	},
}

// Seeder generates users and posts. The image service URLs are fields so
// tests can point them at local servers.
type Seeder struct {
	users     repository.UserRepository
	feed      *service.FeedService
	passwords *auth.PasswordService
	client    *http.Client
	faker     *gofakeit.Faker
	logger    *slog.Logger

	CatImageURL  string
	PostImageURL string
}

// New creates a Seeder. A nil client gets a default with a 10 second timeout
// so a slow image service can't stall the whole run.
func New(
	users repository.UserRepository,
	feed *service.FeedService,
	passwords *auth.PasswordService,
	client *http.Client,
	logger *slog.Logger,
) *Seeder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Seeder{
		users:        users,
		feed:         feed,
		passwords:    passwords,
		client:       client,
		faker:        gofakeit.New(0),
		logger:       logger,
		CatImageURL:  catImageURL,
		PostImageURL: postImageURL,
	}
}

// Run creates userCount users with postsPerUser posts each.
func (s *Seeder) Run(ctx context.Context, userCount, postsPerUser int) error {
	s.logger.Info("seeding started",
		slog.Int("users", userCount),
		slog.Int("postsPerUser", postsPerUser),
	)

	for i := 0; i < userCount; i++ {
		user, err := s.seedUser(ctx)
		if err != nil {
			return fmt.Errorf("seeding user %d: %w", i+1, err)
		}

		for j := 0; j < postsPerUser; j++ {
			if err := s.seedPost(ctx, user.ID); err != nil {
				return fmt.Errorf("seeding post %d for user %s: %w", j+1, user.Username, err)
			}
		}

		s.logger.Info("seeded user",
			slog.String("username", user.Username),
			slog.Int("posts", postsPerUser),
		)
	}

	s.logger.Info("seeding complete")
	return nil
}

// seedUser creates one account. The email generator can collide with an
// existing account; the store's uniqueness constraint reports that as a
// conflict and we retry with a fresh address.
func (s *Seeder) seedUser(ctx context.Context) (*model.User, error) {
	hash, err := s.passwords.Hash(s.faker.Password(true, true, true, false, false, 12))
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	bio, _ := s.themedContent()

	user := &model.User{
		Username:         s.faker.Username(),
		PasswordHash:     hash,
		ProfilePic:       s.profileImage(ctx),
		Bio:              bio,
		PreferredTags:    []string{},
		NotPreferredTags: []string{},
	}

	for attempt := 0; attempt < maxEmailAttempts; attempt++ {
		user.Email = s.faker.Email()
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Warn("duplicate email, retrying", slog.String("email", user.Email))
	}

	return nil, fmt.Errorf("no unique email after %d attempts: %w", maxEmailAttempts, err)
}

func (s *Seeder) seedPost(ctx context.Context, authorID string) error {
	content, th := s.themedContent()
	tags := s.pickTags(th)
	imageURL := s.postImage(ctx)

	_, err := s.feed.CreateMessage(ctx, content, tags, authorID, imageURL)
	return err
}

// themedContent picks a random theme and grows its generator output to at
// least minContentLength characters, clamped to maxContentLength.
func (s *Seeder) themedContent() (string, theme) {
	th := themes[s.faker.Number(0, len(themes)-1)]

	content := th.generate(s.faker)
	for len([]rune(content)) < minContentLength {
		content += " " + th.generate(s.faker)
	}
	if runes := []rune(content); len(runes) > maxContentLength {
		content = string(runes[:maxContentLength])
	}

	return content, th
}

// pickTags draws 1–4 tags from the theme's pool, without duplicates. Fewer
// than the drawn count can come back when the same tag is hit twice.
func (s *Seeder) pickTags(th theme) []string {
	count := s.faker.Number(1, 4)

	selected := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tag := th.tags[s.faker.Number(0, len(th.tags)-1)]
		if !contains(selected, tag) {
			selected = append(selected, tag)
		}
	}
	return selected
}

// profileImage fetches a random cat picture URL, falling back to the bundled
// default when the service is unreachable.
func (s *Seeder) profileImage(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.CatImageURL, nil)
	if err != nil {
		return DefaultProfilePic
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("cat image service unavailable", slog.String("error", err.Error()))
		return DefaultProfilePic
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DefaultProfilePic
	}

	var cat struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil || cat.ID == "" {
		return DefaultProfilePic
	}

	return "https://cataas.com/cat/" + cat.ID
}

// postImage fetches a random post image, returning the final URL after
// redirects. Falls back to the default post image.
func (s *Seeder) postImage(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PostImageURL, nil)
	if err != nil {
		return upload.DefaultImageURL
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("post image service unavailable", slog.String("error", err.Error()))
		return upload.DefaultImageURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upload.DefaultImageURL
	}

	return resp.Request.URL.String()
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
