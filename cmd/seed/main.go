// Package main populates the database with fake users and posts.
//
// Usage:
//
//	go run ./cmd/seed                      # defaults from env / .env
//	SEED_USERS=20 SEED_POSTS_PER_USER=5 go run ./cmd/seed
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rigelhq/rigel/internal/auth"
	"github.com/rigelhq/rigel/internal/config"
	"github.com/rigelhq/rigel/internal/repository/sqlite"
	"github.com/rigelhq/rigel/internal/seed"
	"github.com/rigelhq/rigel/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	tags := service.NewTagService(db, logger)
	feed := service.NewFeedService(db, db, tags, logger)

	seeder := seed.New(db, feed, auth.NewPasswordService(), nil, logger)
	if err := seeder.Run(context.Background(), cfg.SeedUsers, cfg.SeedPostsPerUser); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
