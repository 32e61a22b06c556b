// internal/httpapi/respond.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"libralend/internal/domain"

	"github.com/rs/zerolog/log"
)

// StatusFor maps a business error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOwnershipMismatch):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrAlreadyReturned),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOverReturn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBillingFailure):
		return http.StatusPaymentRequired
	}
	var coded interface{ HTTPStatus() int }
	if errors.As(err, &coded) {
		return coded.HTTPStatus()
	}
	return http.StatusInternalServerError
}

type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) HTTPStatus() int { return e.status }

// NewStatusError returns a sentinel error that renders with the given status.
func NewStatusError(status int, msg string) error {
	return &statusError{status: status, msg: msg}
}

// Error writes err with the status StatusFor picks for it. Server errors are
// logged and replaced by a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = http.StatusText(status)
	}
	JSON(w, status, map[string]string{"error": msg})
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// List makes empty listings encode as [] instead of null.
func List[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Quantity parses a positive or negative integer path or query value.
func Quantity(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidQuantity, err)
	}
	return n, nil
}
