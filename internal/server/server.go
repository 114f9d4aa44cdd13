// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it assembles the database, the
// services, the handlers, and the middleware chain in one place, so the rest
// of the codebase only ever receives its dependencies through constructors.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rigelhq/rigel/internal/auth"
	"github.com/rigelhq/rigel/internal/config"
	"github.com/rigelhq/rigel/internal/handler"
	"github.com/rigelhq/rigel/internal/middleware"
	sqliteRepo "github.com/rigelhq/rigel/internal/repository/sqlite"
	"github.com/rigelhq/rigel/internal/service"
	"github.com/rigelhq/rigel/internal/upload"
)

// Server owns the router, the database connection, and the upload store. The
// database is closed during graceful shutdown so the WAL is flushed and the
// file lock released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the full dependency chain:
//
//	sqlite.DB → services (via repository interfaces) → handlers → routes
//
// Handlers never touch the database directly and services never touch HTTP.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// ROUTE STRUCTURE:
//
//	POST /auth/register             → Create an account, returns 201 + user
//	POST /auth/login                → Exchange credentials for a JWT
//	GET  /tags/top?n=               → Most-used tags, descending frequency
//	GET  /messages?page=&limit=     → Recent posts, newest first
//	GET  /messages/{position}       → Nth unseen post for the caller   [auth]
//	PUT  /messages/{id}/seen        → Mark a post seen for the caller  [auth]
//	POST /messages                  → Create a post (multipart form)   [auth]
//	GET  /uploads/*                 → Uploaded images
//
// Middleware order: RequestID, RealIP, Recoverer, request logging, then CORS
// for the browser frontend. The bearer-token gate applies only to the
// authenticated group.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.config.CORSOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	uploads, err := upload.New(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	tagService := service.NewTagService(s.db, s.logger)
	feedService := service.NewFeedService(s.db, s.db, tagService, s.logger)
	userService := service.NewUserService(s.db, tokens, passwords, s.logger)

	authHandler := handler.NewAuthHandler(userService, s.logger)
	tagHandler := handler.NewTagHandler(tagService, s.logger)
	messageHandler := handler.NewMessageHandler(feedService, uploads, s.logger)

	// Uploaded images are served straight off disk. Directory requests are
	// refused — http.FileServer would otherwise render a listing of every
	// uploaded file.
	fileServer := noDirListing(http.FileServer(http.Dir(uploads.Dir())))
	s.router.Handle(upload.URLPrefix+"/*", http.StripPrefix(upload.URLPrefix+"/", fileServer))

	s.router.Post("/auth/register", authHandler.HandleRegister)
	s.router.Post("/auth/login", authHandler.HandleLogin)

	s.router.Get("/tags/top", tagHandler.HandleTop)
	s.router.Get("/messages", messageHandler.HandleList)

	// Everything below requires a valid bearer token.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/messages/{position}", messageHandler.HandleNextUnseen)
		r.Put("/messages/{id}/seen", messageHandler.HandleMarkSeen)
		r.Post("/messages", messageHandler.HandleCreate)
	})

	return nil
}

// noDirListing returns 404 for directory requests (paths ending in "/",
// including the stripped prefix root) instead of letting http.FileServer
// enumerate the directory.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30 seconds
// to finish, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
