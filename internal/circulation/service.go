// internal/circulation/service.go
package circulation

import (
	"context"

	"libralend/internal/domain"
)

// Service defines the flows that span the cart, loan, stock and billing components.
type Service interface {
	Checkout(ctx context.Context, sessionID, borrowerDNI string) ([]domain.Loan, error)
	Return(ctx context.Context, borrowerDNI string, lines []ReturnLine) (*domain.Invoice, error)
}
