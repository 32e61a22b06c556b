// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	store       port.Store
	rateLimiter *rate.Limiter
	log         zerolog.Logger
}

// NewService creates a new borrower directory. Registrations are limited to
// perMinute per minute, with bursts of the same size.
func NewService(store port.Store, perMinute int, log zerolog.Logger) Service {
	if perMinute <= 0 {
		perMinute = 5
	}
	return &service{
		store:       store,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		log:         log,
	}
}

// RegisterBorrower adds a borrower to the directory.
func (s *service) RegisterBorrower(ctx context.Context, b domain.Borrower) (*domain.Borrower, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	b.DNI = strings.TrimSpace(b.DNI)
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.LastName = strings.TrimSpace(b.LastName)
	if b.DNI == "" || b.FirstName == "" || b.LastName == "" {
		return nil, ErrInvalidBorrower
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Borrowers().Create(ctx, b); err != nil {
			return err
		}
		event, err := domain.NewEvent("borrower", b.DNI, domain.EventBorrowerRegistered, BorrowerRegisteredEvent{
			DNI:       b.DNI,
			FirstName: b.FirstName,
			LastName:  b.LastName,
			Email:     b.Email,
		})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register borrower: %w", err)
	}

	s.log.Info().Str("dni", b.DNI).Msg("borrower registered")
	return s.GetBorrower(ctx, b.DNI)
}

// GetBorrower retrieves a borrower by DNI.
func (s *service) GetBorrower(ctx context.Context, dni string) (*domain.Borrower, error) {
	b, err := s.store.Borrowers().Get(ctx, dni)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBorrower satisfies port.BorrowerDirectory.
func (s *service) FindBorrower(ctx context.Context, dni string) (domain.Borrower, error) {
	return s.store.Borrowers().Get(ctx, dni)
}

func (s *service) ListBorrowers(ctx context.Context) ([]domain.Borrower, error) {
	borrowers, err := s.store.Borrowers().List(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Borrower{}, nil
	}
	return borrowers, err
}

// UpdateBorrower rewrites a borrower's names and contact details. The DNI
// identifies the borrower and cannot change.
func (s *service) UpdateBorrower(ctx context.Context, b domain.Borrower) (*domain.Borrower, error) {
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.LastName = strings.TrimSpace(b.LastName)
	if b.FirstName == "" || b.LastName == "" {
		return nil, ErrInvalidBorrower
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.Borrowers().Update(ctx, b); err != nil {
			return err
		}
		event, err := domain.NewEvent("borrower", b.DNI, domain.EventBorrowerUpdated, BorrowerUpdatedEvent{
			DNI:       b.DNI,
			FirstName: b.FirstName,
			LastName:  b.LastName,
			Phone:     b.Phone,
			Address:   b.Address,
			Email:     b.Email,
		})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("dni", b.DNI).Msg("borrower updated")
	return s.GetBorrower(ctx, b.DNI)
}

// RemoveBorrower deletes a borrower who has nothing on loan.
func (s *service) RemoveBorrower(ctx context.Context, dni string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.store.Loans().CountActiveByBorrower(ctx, dni)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("borrower %s: %w", dni, ErrBorrowerHasLoans)
		}
		if err := s.store.Borrowers().Delete(ctx, dni); err != nil {
			return err
		}
		event, err := domain.NewEvent("borrower", dni, domain.EventBorrowerRemoved, BorrowerRemovedEvent{DNI: dni})
		if err != nil {
			return err
		}
		return s.store.Journal().Append(ctx, event)
	})
}
