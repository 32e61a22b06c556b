// internal/membership/domain.go
package membership

import (
	"net/http"

	"libralend/internal/httpapi"
)

var (
	ErrRateLimited      = httpapi.NewStatusError(http.StatusTooManyRequests, "rate limit exceeded")
	ErrInvalidBorrower  = httpapi.NewStatusError(http.StatusBadRequest, "borrower needs a DNI, first name and last name")
	ErrBorrowerHasLoans = httpapi.NewStatusError(http.StatusConflict, "borrower has active loans")
)

// BorrowerRegisteredEvent is journaled when a borrower registers.
type BorrowerRegisteredEvent struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// BorrowerUpdatedEvent is journaled when a borrower's contact details change.
type BorrowerUpdatedEvent struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`
}

// BorrowerRemovedEvent is journaled when a borrower leaves the directory.
type BorrowerRemovedEvent struct {
	DNI string `json:"dni"`
}
