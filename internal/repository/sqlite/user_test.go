package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$12$fakehash",
		ProfilePic:   "/uploads/cat.jpg",
		Bio:          "first programmer",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Username != "ada" {
		t.Errorf("Username = %q, want %q", got.Username, "ada")
	}
	if got.TotalPosts != 0 {
		t.Errorf("TotalPosts = %d, want 0", got.TotalPosts)
	}
	// Tag preference slices round-trip as empty, never nil.
	if got.PreferredTags == nil || got.NotPreferredTags == nil {
		t.Error("tag preference slices should decode as empty slices, not nil")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{Username: "a", Email: "dup@example.com", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The UNIQUE constraint, not a pre-check, rejects the second insert.
	second := &model.User{Username: "b", Email: "dup@example.com", PasswordHash: "y"}
	err := db.CreateUser(context.Background(), second)
	if err == nil {
		t.Fatal("Create() should reject a duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.GetUserByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}

	_, err = db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestIncrementPostCount(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := db.IncrementPostCount(context.Background(), user.ID); err != nil {
			t.Fatalf("IncrementPostCount() #%d error = %v", i, err)
		}
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.TotalPosts != 3 {
		t.Errorf("TotalPosts = %d, want 3", got.TotalPosts)
	}
}

func TestIncrementPostCount_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.IncrementPostCount(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
