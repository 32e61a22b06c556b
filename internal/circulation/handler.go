// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"net/http"

	"libralend/internal/cart"
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
	r.Post("/loans", h.HandleCheckout)
	r.Post("/loans/returns/{borrower}", h.HandleReturn)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	borrower := r.URL.Query().Get("borrower")
	if borrower == "" {
		http.Error(w, "missing borrower", http.StatusBadRequest)
		return
	}

	loans, err := h.service.Checkout(r.Context(), cart.SessionID(w, r), borrower)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusCreated, loans)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var lines []ReturnLine
	if err := json.NewDecoder(r.Body).Decode(&lines); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	invoice, err := h.service.Return(r.Context(), chi.URLParam(r, "borrower"), lines)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, invoice)
}
