// internal/loan/handler.go
package loan

import (
	"net/http"

	"libralend/internal/domain"
	"libralend/internal/httpapi"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/loans", h.handleList)
	r.Get("/loans/{id}", h.handleGet)
	r.Delete("/loans/{id}", h.handleRemove)
	r.Get("/loans/title/{isbn}", h.handleListByTitle)
	r.Get("/loans/borrower/{dni}", h.handleListByBorrower)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid loan ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	loan, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, loan)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Remove(r.Context(), id); err != nil {
		httpapi.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	loans, err := h.ledger.List(r.Context())
	writeLoans(w, r, loans, err)
}

func (h *Handler) handleListByTitle(w http.ResponseWriter, r *http.Request) {
	loans, err := h.ledger.ListByTitle(r.Context(), chi.URLParam(r, "isbn"))
	writeLoans(w, r, loans, err)
}

func (h *Handler) handleListByBorrower(w http.ResponseWriter, r *http.Request) {
	loans, err := h.ledger.ListByBorrower(r.Context(), chi.URLParam(r, "dni"))
	writeLoans(w, r, loans, err)
}

func writeLoans(w http.ResponseWriter, r *http.Request, loans []domain.Loan, err error) {
	if err != nil {
		httpapi.Error(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, httpapi.List(loans))
}
