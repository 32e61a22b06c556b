// internal/domain/loan.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the lifecycle state of a loan. A loan is "partially returned"
// when it is active and 0 < QuantityReturned < Quantity.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

// Loan is a committed borrowing of Quantity copies of one title.
type Loan struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ISBN             string     `json:"isbn" db:"isbn"`
	BorrowerDNI      string     `json:"borrower_dni" db:"borrower_dni"`
	Quantity         int        `json:"quantity" db:"quantity"`
	QuantityReturned int        `json:"quantity_returned" db:"quantity_returned"`
	StartDate        time.Time  `json:"start_date" db:"start_date"`
	EndDate          *time.Time `json:"end_date,omitempty" db:"end_date"`
	Status           LoanStatus `json:"status" db:"status"`
	Version          int        `json:"version" db:"version"`
}

// NewLoan opens an active loan for a held title.
func NewLoan(isbn, borrowerDNI string, qty int, start time.Time) Loan {
	return Loan{
		ID:          uuid.New(),
		ISBN:        isbn,
		BorrowerDNI: borrowerDNI,
		Quantity:    qty,
		StartDate:   start,
		Status:      LoanActive,
		Version:     1,
	}
}

// Outstanding is the number of copies still out with the borrower.
func (l Loan) Outstanding() int {
	if l.Status == LoanReturned {
		return 0
	}
	return l.Quantity - l.QuantityReturned
}

// PartiallyReturned reports whether some, but not all, copies came back.
func (l Loan) PartiallyReturned() bool {
	return l.Status == LoanActive && l.QuantityReturned > 0 && l.QuantityReturned < l.Quantity
}

// RecordReturn advances the loan by qty returned copies on behalf of requester.
// Checks run in a fixed order: ownership, status, quantity, over-return.
func (l *Loan) RecordReturn(qty int, requester string, on time.Time) error {
	if l.BorrowerDNI != requester {
		return fmt.Errorf("loan %s: %w", l.ID, ErrOwnershipMismatch)
	}
	if l.Status != LoanActive {
		return fmt.Errorf("loan %s: %w", l.ID, ErrAlreadyReturned)
	}
	if qty <= 0 {
		return fmt.Errorf("loan %s: return of %d copies: %w", l.ID, qty, ErrInvalidQuantity)
	}
	if qty+l.QuantityReturned > l.Quantity {
		return fmt.Errorf("loan %s: returning %d with %d of %d back: %w",
			l.ID, qty, l.QuantityReturned, l.Quantity, ErrOverReturn)
	}

	l.QuantityReturned += qty
	if l.QuantityReturned == l.Quantity {
		end := on
		l.EndDate = &end
		l.Status = LoanReturned
	}
	return nil
}
