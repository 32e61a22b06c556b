// internal/membership/service.go
package membership

import (
	"context"

	"libralend/internal/domain"
)

// Service defines the interface for the borrower directory.
type Service interface {
	RegisterBorrower(ctx context.Context, b domain.Borrower) (*domain.Borrower, error)
	GetBorrower(ctx context.Context, dni string) (*domain.Borrower, error)
	FindBorrower(ctx context.Context, dni string) (domain.Borrower, error)
	ListBorrowers(ctx context.Context) ([]domain.Borrower, error)
	UpdateBorrower(ctx context.Context, b domain.Borrower) (*domain.Borrower, error)
	RemoveBorrower(ctx context.Context, dni string) error
}
