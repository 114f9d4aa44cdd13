package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rigelhq/rigel/internal/apperror"
	"github.com/rigelhq/rigel/internal/auth"
	"github.com/rigelhq/rigel/internal/service"
	"github.com/rigelhq/rigel/internal/upload"
)

// maxUploadBytes bounds how much of a multipart body is held in memory while
// parsing; larger file parts spill to temp files.
const maxUploadBytes = 10 << 20 // 10 MiB

// MessageHandler exposes the post pool: public listing, the per-viewer
// unseen feed, seen acknowledgements, and post creation with image upload.
type MessageHandler struct {
	feed    *service.FeedService
	uploads *upload.Store
	logger  *slog.Logger
}

func NewMessageHandler(feed *service.FeedService, uploads *upload.Store, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{feed: feed, uploads: uploads, logger: logger}
}

// HandleList returns a page of posts, newest first.
//
// HTTP: GET /messages?page=1&limit=10
// Both parameters are optional; bad values fall back to the defaults.
func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	messages, err := h.feed.ListRecent(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// HandleNextUnseen returns the post at an ordinal position in the caller's
// unseen set.
//
// HTTP: GET /messages/{position}   (bearer token required)
//
// The position is an index into the CURRENT unseen set, not a store offset —
// it shifts as posts are marked seen and as new posts arrive. 404 means the
// set is exhausted at that position.
func (h *MessageHandler) HandleNextUnseen(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("no token found"))
		return
	}

	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil || position < 0 {
		writeError(w, apperror.ValidationFailed("position", "invalid position value"))
		return
	}

	msg, err := h.feed.NextUnseen(r.Context(), viewerID, position)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// HandleMarkSeen records that the caller has seen a post.
//
// HTTP: PUT /messages/{id}/seen   (bearer token required)
// Idempotent — marking twice is a 200 both times.
func (h *MessageHandler) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("no token found"))
		return
	}

	id := r.PathValue("id")
	if err := h.feed.MarkSeen(r.Context(), id, viewerID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Post marked as seen."})
}

// HandleCreate stores a new post.
//
// HTTP: POST /messages   (bearer token required)
// REQUEST: multipart/form-data with fields:
//   - content: the post text (required)
//   - tags:    either a JSON array string (`["a","b"]`) or the field repeated
//   - image:   optional file, jpeg/jpg/png/gif only
//
// ORDER MATTERS: the image is validated and stored BEFORE the message is
// created, so a disallowed file (say, an .exe) rejects the whole request
// while the store is still untouched.
func (h *MessageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	authorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("no token found"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("body", "expected multipart form data"))
		return
	}

	content := r.FormValue("content")
	tags, err := parseTags(r)
	if err != nil {
		writeError(w, err)
		return
	}

	imageURL := upload.DefaultImageURL
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		imageURL, err = h.uploads.Save(file, header)
		if err != nil {
			writeError(w, err)
			return
		}
	case errors.Is(err, http.ErrMissingFile):
		// No image — keep the default.
	default:
		writeError(w, apperror.ValidationFailed("image", "malformed image upload"))
		return
	}

	msg, err := h.feed.CreateMessage(r.Context(), content, tags, authorID, imageURL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Message stored successfully",
		"poolData": msg,
	})
}

// parseTags accepts the two shapes clients send tags in:
//   - a single form value holding a JSON array: tags=["music","songs"]
//   - the field repeated: tags=music&tags=songs
func parseTags(r *http.Request) ([]string, error) {
	values := r.Form["tags"]
	if len(values) == 0 {
		return nil, apperror.ValidationFailed("tags", "at least one tag is required")
	}

	if len(values) == 1 {
		raw := values[0]
		if len(raw) > 0 && raw[0] == '[' {
			var tags []string
			if err := json.Unmarshal([]byte(raw), &tags); err != nil {
				return nil, apperror.ValidationFailed("tags", "invalid tags format")
			}
			return tags, nil
		}
	}

	return values, nil
}

// queryInt reads an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
