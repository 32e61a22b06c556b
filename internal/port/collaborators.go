// internal/port/collaborators.go
package port

import (
	"context"
	"time"

	"libralend/internal/domain"
)

// BorrowerDirectory resolves borrowers for loan commits.
type BorrowerDirectory interface {
	FindBorrower(ctx context.Context, dni string) (domain.Borrower, error)
}

// Publisher delivers integration events to other services.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Clock is injected wherever dates feed business rules.
type Clock func() time.Time
