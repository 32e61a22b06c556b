// internal/domain/borrower.go
package domain

import "time"

// Borrower is a registered library patron, keyed by national id (DNI).
type Borrower struct {
	DNI       string    `json:"dni" db:"dni"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Address   string    `json:"address,omitempty" db:"address"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
