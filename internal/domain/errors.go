// internal/domain/errors.go
package domain

import "errors"

// Business outcomes shared by every component. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrOwnershipMismatch = errors.New("loan belongs to another borrower")
	ErrAlreadyReturned   = errors.New("loan already returned")
	ErrOverReturn        = errors.New("return exceeds borrowed quantity")
	ErrBillingFailure    = errors.New("billing failure")
)

// Storage-level outcomes.
var (
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict marks a transaction that lost a race and may be retried.
	ErrConflict = errors.New("concurrent modification")
)
