package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rigelhq/rigel/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := config.Config{
		Port:       0,
		DBPath:     ":memory:",
		JWTSecret:  "test-secret-at-least-16-chars!!",
		UploadDir:  t.TempDir(),
		CORSOrigin: "http://localhost:3000",
	}

	srv, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.db.Close() })

	return srv
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	t.Run("preflight from the frontend origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/messages", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want the frontend origin", got)
		}
	})

	t.Run("simple request carries the allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/messages", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want the frontend origin", got)
		}
	})

	t.Run("other origins are not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/messages", nil)
		req.Header.Set("Origin", "http://evil.example")
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
		}
	})
}

func TestUploadsServing(t *testing.T) {
	srv := newTestServer(t)

	if err := os.WriteFile(filepath.Join(srv.config.UploadDir, "pic.png"), []byte("png bytes"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	t.Run("serves an uploaded file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/pic.png", nil)
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if rr.Body.String() != "png bytes" {
			t.Errorf("body = %q, want the file content", rr.Body.String())
		}
	})

	t.Run("refuses the directory listing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/", nil)
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
		}
	})

	t.Run("unknown file is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil)
		rr := httptest.NewRecorder()

		srv.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
		}
	})
}
