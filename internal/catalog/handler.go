// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"

	"libralend/internal/domain"
	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/titles", func(r chi.Router) {
		r.Post("/", h.handleAddTitle)
		r.Get("/", h.handleListTitles)
		r.Get("/{isbn}", h.handleGetTitle)
		r.Put("/{isbn}", h.handleUpdateTitle)
		r.Delete("/{isbn}", h.handleRemoveTitle)
		r.Get("/author/{name}", h.handleTitlesByAuthor)
		r.Get("/{isbn}/authors", h.handleTitleAuthors)
		r.Put("/{isbn}/authors/{id}", h.handleLinkAuthor)
		r.Delete("/{isbn}/authors/{id}", h.handleUnlinkAuthor)
	})
	r.Route("/authors", func(r chi.Router) {
		r.Post("/", h.handleAddAuthor)
		r.Get("/", h.handleListAuthors)
		r.Get("/{id}", h.handleGetAuthor)
		r.Delete("/{id}", h.handleRemoveAuthor)
	})
}

// authorID reads the {id} path parameter. A malformed id names no author.
func authorID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("author %s: %w", raw, domain.ErrNotFound)
	}
	return id, nil
}

func (h *Handler) handleAddTitle(w http.ResponseWriter, r *http.Request) {
	var req domain.Title
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var title *domain.Title
	var err error
	if author := r.URL.Query().Get("author"); author != "" {
		title, err = h.service.AddTitleByAuthor(r.Context(), req, author)
	} else {
		title, err = h.service.AddTitle(r.Context(), req)
	}
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusCreated, title)
}

func (h *Handler) handleListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitles(r.Context())
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(titles))
}

func (h *Handler) handleGetTitle(w http.ResponseWriter, r *http.Request) {
	title, err := h.service.GetTitle(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, title)
}

func (h *Handler) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	var req domain.Title
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.ISBN = chi.URLParam(r, "isbn")

	title, err := h.service.UpdateTitle(r.Context(), req)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, title)
}

func (h *Handler) handleRemoveTitle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveTitle(r.Context(), chi.URLParam(r, "isbn")); err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTitlesByAuthor(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitlesByAuthor(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(titles))
}

func (h *Handler) handleTitleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.TitleAuthors(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(authors))
}

func (h *Handler) handleLinkAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := authorID(r)
	if err == nil {
		err = h.service.LinkAuthor(r.Context(), chi.URLParam(r, "isbn"), id)
	}
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnlinkAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := authorID(r)
	if err == nil {
		err = h.service.UnlinkAuthor(r.Context(), chi.URLParam(r, "isbn"), id)
	}
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddAuthor(w http.ResponseWriter, r *http.Request) {
	var req domain.Author
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	author, err := h.service.AddAuthor(r.Context(), req.Name)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, author)
}

func (h *Handler) handleListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context())
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(authors))
}

func (h *Handler) handleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := authorID(r)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, author)
}

func (h *Handler) handleRemoveAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := authorID(r)
	if err == nil {
		err = h.service.RemoveAuthor(r.Context(), id)
	}
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
