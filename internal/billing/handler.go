// internal/billing/handler.go
package billing

import (
	"net/http"

	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/payments", h.handleList)
	r.Get("/payments/{id}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	payments, err := h.engine.ListPayments(r.Context())
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(payments))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid payment ID", http.StatusBadRequest)
		return
	}
	payment, err := h.engine.GetPayment(r.Context(), id)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, payment)
}
