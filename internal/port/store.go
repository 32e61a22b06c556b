// internal/port/store.go
package port

import (
	"context"

	"libralend/internal/domain"

	"github.com/google/uuid"
)

// Store is the durable store. Repository calls made with a context returned
// inside WithinTx take part in that transaction; calls made with any other
// context run on their own.
type Store interface {
	// WithinTx runs fn in a transaction. A nested call joins the outer one.
	// Any error returned by fn rolls back every change made through ctx.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	Titles() TitleRepository
	Authors() AuthorRepository
	Borrowers() BorrowerRepository
	Loans() LoanRepository
	Payments() PaymentRepository
	Journal() Journal
}

type TitleRepository interface {
	Create(ctx context.Context, t domain.Title) error
	Get(ctx context.Context, isbn string) (domain.Title, error)
	List(ctx context.Context) ([]domain.Title, error)
	// Update writes the descriptive fields; OnShelf is left untouched.
	Update(ctx context.Context, t domain.Title) error
	Delete(ctx context.Context, isbn string) error
	// AdjustOnShelf adds delta to the on-shelf count and returns the new count.
	// It fails with domain.ErrInsufficientStock rather than go below zero.
	AdjustOnShelf(ctx context.Context, isbn string, delta int) (int, error)
}

// AuthorRepository keeps authors and their links to titles. Removing a title
// or an author drops its links.
type AuthorRepository interface {
	Create(ctx context.Context, a domain.Author) error
	Get(ctx context.Context, id uuid.UUID) (domain.Author, error)
	// FindByName matches the whole name, ignoring case.
	FindByName(ctx context.Context, name string) (domain.Author, error)
	List(ctx context.Context) ([]domain.Author, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Link credits the author on the title. Both must exist; linking twice
	// yields domain.ErrAlreadyExists.
	Link(ctx context.Context, isbn string, authorID uuid.UUID) error
	Unlink(ctx context.Context, isbn string, authorID uuid.UUID) error
	ListByTitle(ctx context.Context, isbn string) ([]domain.Author, error)
	ListTitles(ctx context.Context, authorID uuid.UUID) ([]domain.Title, error)
}

type BorrowerRepository interface {
	Create(ctx context.Context, b domain.Borrower) error
	Get(ctx context.Context, dni string) (domain.Borrower, error)
	List(ctx context.Context) ([]domain.Borrower, error)
	// Update writes the contact fields; DNI and CreatedAt never change.
	Update(ctx context.Context, b domain.Borrower) error
	Delete(ctx context.Context, dni string) error
}

type LoanRepository interface {
	Create(ctx context.Context, l domain.Loan) error
	Get(ctx context.Context, id uuid.UUID) (domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ListByTitle(ctx context.Context, isbn string) ([]domain.Loan, error)
	ListByBorrower(ctx context.Context, dni string) ([]domain.Loan, error)
	// Update persists l if the stored version still equals l.Version and bumps
	// it; a mismatch yields domain.ErrConflict.
	Update(ctx context.Context, l *domain.Loan) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveByTitle(ctx context.Context, isbn string) (int, error)
	CountActiveByBorrower(ctx context.Context, dni string) (int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment) error
	Get(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
}

// Journal is the append-only audit log.
type Journal interface {
	Append(ctx context.Context, events ...domain.Event) error
	Stream(ctx context.Context, afterID int64, limit int) ([]domain.Event, error)
}
