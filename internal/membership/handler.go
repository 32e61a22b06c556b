// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"net/http"

	"libralend/internal/domain"
	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/borrowers", func(r chi.Router) {
		r.Post("/", h.handleRegister)
		r.Get("/", h.handleList)
		r.Get("/{dni}", h.handleGet)
		r.Put("/{dni}", h.handleUpdate)
		r.Delete("/{dni}", h.handleRemove)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.Borrower
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	borrower, err := h.service.RegisterBorrower(r.Context(), req)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusCreated, borrower)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.service.ListBorrowers(r.Context())
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(borrowers))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	borrower, err := h.service.GetBorrower(r.Context(), chi.URLParam(r, "dni"))
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, borrower)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.Borrower
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.DNI = chi.URLParam(r, "dni")

	borrower, err := h.service.UpdateBorrower(r.Context(), req)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, borrower)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveBorrower(r.Context(), chi.URLParam(r, "dni")); err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
