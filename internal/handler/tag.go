package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rigelhq/rigel/internal/service"
)

// TagHandler exposes the tag ledger's query surface.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// HandleTop returns the most-used tags, descending by frequency.
//
// HTTP: GET /tags/top?n=10
// n defaults to 10; a non-numeric n also falls back to the default rather
// than erroring — the parameter is a display knob, not an input worth a 400.
func (h *TagHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}

	tags, err := h.tags.Top(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}
