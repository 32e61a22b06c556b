// internal/stock/handler.go
package stock

import (
	"context"
	"net/http"

	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/stock/{isbn}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/decrease", h.handleAdjust(h.ledger.Decrease))
		r.Put("/increase", h.handleAdjust(h.ledger.Increase))
	})
}

type level struct {
	ISBN    string `json:"isbn"`
	OnShelf int    `json:"on_shelf"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	n, err := h.ledger.OnShelf(r.Context(), isbn)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, level{ISBN: isbn, OnShelf: n})
}

func (h *Handler) handleAdjust(apply func(ctx context.Context, isbn string, qty int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		isbn := chi.URLParam(r, "isbn")
		qty, err := httpapi.Quantity(r.URL.Query().Get("qty"))
		if err != nil {
			httpapi.Error(w, r, err)
			return
		}
		if err := apply(r.Context(), isbn, qty); err != nil {
			httpapi.Error(w, r, err)
			return
		}
		h.handleGet(w, r)
	}
}
