// Package config loads application configuration from the environment.
//
// A .env file in the working directory is loaded first (if present) so local
// development doesn't need a wall of exports; real environment variables
// always win because godotenv.Load never overrides existing ones.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server and the seeder need to start.
type Config struct {
	Port       int
	DBPath     string
	JWTSecret  string
	UploadDir  string
	CORSOrigin string

	// Seeder knobs (cmd/seed only).
	SeedUsers        int
	SeedPostsPerUser int
}

// Load reads configuration from the environment, applying defaults.
//
// JWT_SECRET has no default on purpose — the caller decides whether a missing
// secret is fatal (the server fails fast without one, the seeder doesn't
// care).
func Load() Config {
	// Best-effort: a missing .env file is not an error.
	_ = godotenv.Load()

	return Config{
		Port:             envInt("PORT", 5000),
		DBPath:           envString("DB_PATH", "data/rigel.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		UploadDir:        envString("UPLOAD_DIR", "uploads"),
		CORSOrigin:       envString("CORS_ORIGIN", "http://localhost:3000"),
		SeedUsers:        envInt("SEED_USERS", 5),
		SeedPostsPerUser: envInt("SEED_POSTS_PER_USER", 10),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
