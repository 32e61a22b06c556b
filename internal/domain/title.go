// internal/domain/title.go
package domain

import "time"

// Title is a catalog entry. OnShelf is only ever changed by the stock ledger.
type Title struct {
	ISBN          string    `json:"isbn" db:"isbn"`
	Name          string    `json:"name" db:"name"`
	Publisher     string    `json:"publisher,omitempty" db:"publisher"`
	Edition       string    `json:"edition,omitempty" db:"edition"`
	PublishedYear int       `json:"published_year,omitempty" db:"published_year"`
	OnShelf       int       `json:"on_shelf" db:"on_shelf"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Hold is a provisional reservation of copies inside a cart.
type Hold struct {
	ISBN     string `json:"isbn"`
	Quantity int    `json:"quantity"`
}
