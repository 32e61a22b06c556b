// internal/cart/handler.go
package cart

import (
	"net/http"

	"libralend/internal/domain"
	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionCookie carries the opaque cart session id.
const SessionCookie = "LIBRALEND_SESSION"

// SessionID returns the caller's session id, issuing a new cookie when the
// request has none.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type Handler struct {
	sessions *Sessions
}

func NewHandler(sessions *Sessions) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.handleView)
		r.Post("/items/{isbn}/{qty}", h.handleAdd)
		r.Put("/items/{isbn}/{qty}", h.handleSetQuantity)
		r.Delete("/items/{isbn}", h.handleRemove)
		r.Post("/session/end", h.handleEnd)
	})
}

type view struct {
	Session string        `json:"session"`
	Holds   []domain.Hold `json:"holds"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, id string, op func(c *Cart) error) {
	var holds []domain.Hold
	err := h.sessions.Do(r.Context(), id, func(c *Cart) error {
		if err := op(c); err != nil {
			return err
		}
		holds = c.Contents()
		return nil
	})
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, view{Session: id, Holds: holds})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, SessionID(w, r), func(*Cart) error { return nil })
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	id := SessionID(w, r)
	qty, err := httpapi.Quantity(chi.URLParam(r, "qty"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	isbn := chi.URLParam(r, "isbn")
	h.respond(w, r, id, func(c *Cart) error { return c.Add(r.Context(), isbn, qty) })
}

func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id := SessionID(w, r)
	qty, err := httpapi.Quantity(chi.URLParam(r, "qty"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	isbn := chi.URLParam(r, "isbn")
	h.respond(w, r, id, func(c *Cart) error { return c.SetQuantity(r.Context(), isbn, qty) })
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	h.respond(w, r, SessionID(w, r), func(c *Cart) error { return c.Remove(r.Context(), isbn) })
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := SessionID(w, r)
	if err := h.sessions.OnSessionEnd(r.Context(), id); err != nil {
		httpapi.Error(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}
