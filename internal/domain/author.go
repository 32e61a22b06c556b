// internal/domain/author.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Author is credited on any number of titles. Names are unique regardless
// of case.
type Author struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
