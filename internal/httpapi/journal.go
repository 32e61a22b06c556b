// internal/httpapi/journal.go
package httpapi

import (
	"net/http"
	"strconv"

	"libralend/internal/port"

	"github.com/go-chi/chi/v5"
)

const maxJournalPage = 500

// JournalHandler exposes the audit journal as a cursor-paged feed.
type JournalHandler struct {
	journal port.Journal
}

func NewJournalHandler(journal port.Journal) *JournalHandler {
	return &JournalHandler{journal: journal}
}

func (h *JournalHandler) Routes(r chi.Router) {
	r.Get("/journal", h.handleStream)
}

func (h *JournalHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > maxJournalPage {
		limit = 100
	}

	events, err := h.journal.Stream(r.Context(), after, limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, List(events))
}
