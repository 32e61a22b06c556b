// internal/catalog/service.go
package catalog

import (
	"context"

	"libralend/internal/domain"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddTitle(ctx context.Context, t domain.Title) (*domain.Title, error)
	GetTitle(ctx context.Context, isbn string) (*domain.Title, error)
	FindTitle(ctx context.Context, isbn string) (domain.Title, error)
	UpdateTitle(ctx context.Context, t domain.Title) (*domain.Title, error)
	RemoveTitle(ctx context.Context, isbn string) error
	ListTitles(ctx context.Context) ([]domain.Title, error)

	// AddTitleByAuthor adds t credited to the named author, creating the
	// author when the name is new.
	AddTitleByAuthor(ctx context.Context, t domain.Title, authorName string) (*domain.Title, error)
	ListTitlesByAuthor(ctx context.Context, authorName string) ([]domain.Title, error)

	AddAuthor(ctx context.Context, name string) (*domain.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*domain.Author, error)
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	RemoveAuthor(ctx context.Context, id uuid.UUID) error
	LinkAuthor(ctx context.Context, isbn string, authorID uuid.UUID) error
	UnlinkAuthor(ctx context.Context, isbn string, authorID uuid.UUID) error
	TitleAuthors(ctx context.Context, isbn string) ([]domain.Author, error)
}
