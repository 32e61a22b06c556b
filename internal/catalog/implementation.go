// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// service implements the Service interface.
type service struct {
	store port.Store
	log   zerolog.Logger
}

// NewService creates a new catalog service instance.
func NewService(store port.Store, log zerolog.Logger) Service {
	return &service{store: store, log: log}
}

// ValidISBN reports whether isbn is a 13 digit ISBN with a 978 or 979 prefix.
func ValidISBN(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	if !strings.HasPrefix(isbn, "978") && !strings.HasPrefix(isbn, "979") {
		return false
	}
	for _, c := range isbn {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validAuthorName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= 2 && n <= 100
}

// AddTitle creates a title with OnShelf initial copies.
func (s *service) AddTitle(ctx context.Context, t domain.Title) (*domain.Title, error) {
	return s.addTitle(ctx, t, "")
}

func (s *service) AddTitleByAuthor(ctx context.Context, t domain.Title, authorName string) (*domain.Title, error) {
	authorName = strings.TrimSpace(authorName)
	if !validAuthorName(authorName) {
		return nil, ErrInvalidAuthor
	}
	return s.addTitle(ctx, t, authorName)
}

func (s *service) addTitle(ctx context.Context, t domain.Title, authorName string) (*domain.Title, error) {
	t.ISBN = strings.TrimSpace(t.ISBN)
	t.Name = strings.TrimSpace(t.Name)
	if !ValidISBN(t.ISBN) || t.Name == "" || t.OnShelf < 0 {
		return nil, ErrInvalidTitle
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		var events []domain.Event
		var author domain.Author
		if authorName != "" {
			var err error
			author, events, err = s.findOrCreateAuthor(ctx, authorName)
			if err != nil {
				return err
			}
		}

		if err := s.store.Titles().Create(ctx, t); err != nil {
			return err
		}
		event, err := domain.NewEvent("title", t.ISBN, domain.EventTitleAdded, TitleAddedEvent{
			ISBN:    t.ISBN,
			Name:    t.Name,
			OnShelf: t.OnShelf,
		})
		if err != nil {
			return err
		}
		events = append(events, event)

		if authorName != "" {
			credit, err := s.link(ctx, t.ISBN, author.ID)
			if err != nil {
				return err
			}
			events = append(events, credit)
		}
		return s.store.Journal().Append(ctx, events...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add title: %w", err)
	}

	s.log.Info().Str("isbn", t.ISBN).Int("on_shelf", t.OnShelf).Str("author", authorName).Msg("title added")
	return s.GetTitle(ctx, t.ISBN)
}

// GetTitle retrieves a title by ISBN.
func (s *service) GetTitle(ctx context.Context, isbn string) (*domain.Title, error) {
	t, err := s.FindTitle(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *service) FindTitle(ctx context.Context, isbn string) (domain.Title, error) {
	return s.store.Titles().Get(ctx, isbn)
}

// UpdateTitle rewrites the descriptive fields. The on-shelf count belongs to
// the stock ledger and is ignored here.
func (s *service) UpdateTitle(ctx context.Context, t domain.Title) (*domain.Title, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, ErrInvalidTitle
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Titles().Update(ctx, t); err != nil {
			return err
		}
		event, err := domain.NewEvent("title", t.ISBN, domain.EventTitleUpdated, TitleUpdatedEvent{
			ISBN:          t.ISBN,
			Name:          t.Name,
			Publisher:     t.Publisher,
			Edition:       t.Edition,
			PublishedYear: t.PublishedYear,
		})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTitle(ctx, t.ISBN)
}

// RemoveTitle retires a title that has nothing out on loan.
func (s *service) RemoveTitle(ctx context.Context, isbn string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.store.Titles().Get(ctx, isbn)
		if err != nil {
			return err
		}
		active, err := s.store.Loans().CountActiveByTitle(ctx, isbn)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("title %s: %w", isbn, ErrTitleOnLoan)
		}
		if err := s.store.Titles().Delete(ctx, isbn); err != nil {
			return err
		}
		event, err := domain.NewEvent("title", isbn, domain.EventTitleRemoved, TitleRemovedEvent{ISBN: isbn, OnShelf: t.OnShelf})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
}

func (s *service) ListTitles(ctx context.Context) ([]domain.Title, error) {
	titles, err := s.store.Titles().List(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Title{}, nil
	}
	return titles, err
}

// findOrCreateAuthor returns the author called name, adding one if needed.
// The returned events must be journaled by the caller.
func (s *service) findOrCreateAuthor(ctx context.Context, name string) (domain.Author, []domain.Event, error) {
	a, err := s.store.Authors().FindByName(ctx, name)
	if err == nil {
		return a, nil, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return a, nil, err
	}

	a = domain.Author{ID: uuid.New(), Name: name}
	if err := s.store.Authors().Create(ctx, a); err != nil {
		return a, nil, err
	}
	event, err := domain.NewEvent("author", a.ID.String(), domain.EventAuthorAdded, AuthorAddedEvent{ID: a.ID.String(), Name: a.Name})
	if err != nil {
		return a, nil, err
	}
	return a, []domain.Event{event}, nil
}

func (s *service) link(ctx context.Context, isbn string, authorID uuid.UUID) (domain.Event, error) {
	if err := s.store.Authors().Link(ctx, isbn, authorID); err != nil {
		return domain.Event{}, err
	}
	return domain.NewEvent("title", isbn, domain.EventAuthorLinked, AuthorCreditEvent{ISBN: isbn, AuthorID: authorID.String()})
}

// AddAuthor registers an author. Names are unique regardless of case.
func (s *service) AddAuthor(ctx context.Context, name string) (*domain.Author, error) {
	name = strings.TrimSpace(name)
	if !validAuthorName(name) {
		return nil, ErrInvalidAuthor
	}

	a := domain.Author{ID: uuid.New(), Name: name}
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Authors().Create(ctx, a); err != nil {
			return err
		}
		event, err := domain.NewEvent("author", a.ID.String(), domain.EventAuthorAdded, AuthorAddedEvent{ID: a.ID.String(), Name: a.Name})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add author: %w", err)
	}

	s.log.Info().Str("author", a.Name).Stringer("id", a.ID).Msg("author added")
	return s.GetAuthor(ctx, a.ID)
}

func (s *service) GetAuthor(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	a, err := s.store.Authors().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *service) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return s.store.Authors().List(ctx)
}

// RemoveAuthor deletes the author and withdraws every credit they had.
func (s *service) RemoveAuthor(ctx context.Context, id uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.store.Authors().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.Authors().Delete(ctx, id); err != nil {
			return err
		}
		event, err := domain.NewEvent("author", id.String(), domain.EventAuthorRemoved, AuthorRemovedEvent{ID: id.String(), Name: a.Name})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
}

// LinkAuthor credits an existing author on an existing title.
func (s *service) LinkAuthor(ctx context.Context, isbn string, authorID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.link(ctx, isbn, authorID)
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
}

func (s *service) UnlinkAuthor(ctx context.Context, isbn string, authorID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Authors().Unlink(ctx, isbn, authorID); err != nil {
			return err
		}
		event, err := domain.NewEvent("title", isbn, domain.EventAuthorUnlinked, AuthorCreditEvent{ISBN: isbn, AuthorID: authorID.String()})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
}

// TitleAuthors lists the authors credited on isbn.
func (s *service) TitleAuthors(ctx context.Context, isbn string) ([]domain.Author, error) {
	if _, err := s.store.Titles().Get(ctx, isbn); err != nil {
		return nil, err
	}
	return s.store.Authors().ListByTitle(ctx, isbn)
}

// ListTitlesByAuthor lists the titles credited to the author with exactly
// that name, ignoring case. An unknown author has no titles.
func (s *service) ListTitlesByAuthor(ctx context.Context, authorName string) ([]domain.Title, error) {
	a, err := s.store.Authors().FindByName(ctx, strings.TrimSpace(authorName))
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Title{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.Authors().ListTitles(ctx, a.ID)
}
