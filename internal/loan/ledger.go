// internal/loan/ledger.go
package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Basket is what checkout needs from a cart.
type Basket interface {
	Contents() []domain.Hold
	Clear()
}

// Ledger records committed loans and their returns.
type Ledger struct {
	store     port.Store
	borrowers port.BorrowerDirectory
	now       port.Clock
	log       zerolog.Logger
}

func NewLedger(store port.Store, borrowers port.BorrowerDirectory, now port.Clock, log zerolog.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, borrowers: borrowers, now: now, log: log}
}

type committedEvent struct {
	LoanID      uuid.UUID `json:"loan_id"`
	ISBN        string    `json:"isbn"`
	BorrowerDNI string    `json:"borrower_dni"`
	Quantity    int       `json:"quantity"`
}

type returnEvent struct {
	LoanID           uuid.UUID         `json:"loan_id"`
	Quantity         int               `json:"quantity"`
	QuantityReturned int               `json:"quantity_returned"`
	Status           domain.LoanStatus `json:"status"`
}

// Commit turns every hold in basket into an active loan for borrowerDNI and
// then empties the basket. Stock is not touched: the copies left the shelf
// when they were added to the cart.
func (l *Ledger) Commit(ctx context.Context, basket Basket, borrowerDNI string) ([]domain.Loan, error) {
	holds := basket.Contents()
	if len(holds) == 0 {
		return nil, fmt.Errorf("checkout of an empty cart: %w", domain.ErrInvalidQuantity)
	}

	// The directory may be remote; no transaction is held while asking it.
	if _, err := l.borrowers.FindBorrower(ctx, borrowerDNI); err != nil {
		return nil, fmt.Errorf("failed to get borrower: %w", err)
	}

	var loans []domain.Loan
	err := l.store.WithinTx(ctx, func(ctx context.Context) error {
		loans = loans[:0]
		start := l.now().UTC()
		for _, h := range holds {
			loan := domain.NewLoan(h.ISBN, borrowerDNI, h.Quantity, start)
			if err := l.store.Loans().Create(ctx, loan); err != nil {
				return err
			}
			event, err := domain.NewEvent("loan", loan.ID.String(), domain.EventLoanCommitted, committedEvent{
				LoanID: loan.ID, ISBN: loan.ISBN, BorrowerDNI: borrowerDNI, Quantity: loan.Quantity,
			})
			if err != nil {
				return err
			}
			if err := l.store.Journal().Append(ctx, event); err != nil {
				return err
			}
			loans = append(loans, loan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	basket.Clear()
	l.log.Info().Str("borrower", borrowerDNI).Int("loans", len(loans)).Msg("loans committed")
	return loans, nil
}

// ApplyReturn records qty copies of loan id coming back from requesterDNI and
// returns the updated loan. It is not idempotent: every call counts.
func (l *Ledger) ApplyReturn(ctx context.Context, id uuid.UUID, qty int, requesterDNI string) (domain.Loan, error) {
	var loan domain.Loan
	err := l.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loan, err = l.store.Loans().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := loan.RecordReturn(qty, requesterDNI, l.now().UTC()); err != nil {
			return err
		}
		if err := l.store.Loans().Update(ctx, &loan); err != nil {
			return err
		}
		event, err := domain.NewEvent("loan", id.String(), domain.EventLoanReturnRecorded, returnEvent{
			LoanID: id, Quantity: qty, QuantityReturned: loan.QuantityReturned, Status: loan.Status,
		})
		if err != nil {
			return err
		}
		return l.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return domain.Loan{}, err
	}
	return loan, nil
}

// Remove deletes a loan record. It is an administrative correction and does
// not reconcile stock.
func (l *Ledger) Remove(ctx context.Context, id uuid.UUID) error {
	return l.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.store.Loans().Delete(ctx, id); err != nil {
			return err
		}
		event, err := domain.NewEvent("loan", id.String(), domain.EventLoanRemoved, map[string]uuid.UUID{"loan_id": id})
		if err != nil {
			return err
		}
		return l.store.Journal().Append(ctx, event)
	})
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (domain.Loan, error) {
	return l.store.Loans().Get(ctx, id)
}

func (l *Ledger) List(ctx context.Context) ([]domain.Loan, error) {
	return emptyOnNotFound(l.store.Loans().List(ctx))
}

func (l *Ledger) ListByTitle(ctx context.Context, isbn string) ([]domain.Loan, error) {
	return emptyOnNotFound(l.store.Loans().ListByTitle(ctx, isbn))
}

func (l *Ledger) ListByBorrower(ctx context.Context, dni string) ([]domain.Loan, error) {
	return emptyOnNotFound(l.store.Loans().ListByBorrower(ctx, dni))
}

func emptyOnNotFound(loans []domain.Loan, err error) ([]domain.Loan, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Loan{}, nil
	}
	return loans, err
}
