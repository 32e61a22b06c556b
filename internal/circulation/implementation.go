// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"time"

	"libralend/internal/billing"
	"libralend/internal/cart"
	"libralend/internal/domain"
	"libralend/internal/events"
	"libralend/internal/loan"
	"libralend/internal/port"
	"libralend/internal/stock"

	"github.com/rs/zerolog"
)

// service implements the Service interface.
type service struct {
	store     port.Store
	sessions  *cart.Sessions
	loans     *loan.Ledger
	stock     *stock.Ledger
	billing   *billing.Engine
	publisher port.Publisher
	now       port.Clock
	log       zerolog.Logger
}

// Deps groups the collaborators of the circulation service.
type Deps struct {
	Store     port.Store
	Sessions  *cart.Sessions
	Loans     *loan.Ledger
	Stock     *stock.Ledger
	Billing   *billing.Engine
	Publisher port.Publisher
	Clock     port.Clock
	Logger    zerolog.Logger
}

// NewService creates a new circulation service instance.
func NewService(d Deps) Service {
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &service{
		store:     d.Store,
		sessions:  d.Sessions,
		loans:     d.Loans,
		stock:     d.Stock,
		billing:   d.Billing,
		publisher: d.Publisher,
		now:       d.Clock,
		log:       d.Logger,
	}
}

// Checkout commits the session's cart as loans for the borrower and closes
// the session.
func (s *service) Checkout(ctx context.Context, sessionID, borrowerDNI string) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := s.sessions.Do(ctx, sessionID, func(c *cart.Cart) error {
		var err error
		loans, err = s.loans.Commit(ctx, c, borrowerDNI)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	// The cart is empty now, so ending the session releases nothing.
	if err := s.sessions.OnSessionEnd(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("failed to close session after checkout")
	}

	s.publish(ctx, events.LoansCommitted, LoansCommittedEvent{
		BorrowerDNI: borrowerDNI,
		Loans:       loans,
		CommittedAt: s.now().UTC(),
	})
	return loans, nil
}

// Return processes every line as one unit: advance the loan, put the copies
// back on the shelf, charge for them. The invoice is settled inside the same
// transaction, so a failure anywhere leaves no trace.
func (s *service) Return(ctx context.Context, borrowerDNI string, lines []ReturnLine) (*domain.Invoice, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("return with no lines: %w", domain.ErrInvalidQuantity)
	}

	var invoice *domain.Invoice
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		returnedAt := s.now().UTC()
		invoice = domain.NewInvoice(borrowerDNI, returnedAt)

		for i, line := range lines {
			l, err := s.loans.ApplyReturn(ctx, line.LoanID, line.Quantity, borrowerDNI)
			if err != nil {
				return fmt.Errorf("return line %d: %w", i+1, err)
			}
			if err := s.stock.Increase(ctx, l.ISBN, line.Quantity); err != nil {
				return fmt.Errorf("return line %d: %w", i+1, err)
			}
			payment, err := s.billing.ChargeForReturn(ctx, l, returnedAt, line.Quantity)
			if err != nil {
				return fmt.Errorf("return line %d: %w", i+1, err)
			}
			invoice.Add(l, payment)
		}
		return s.billing.FinalizeInvoice(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.billing.RecordSettled(ctx, invoice)
	s.log.Info().
		Str("borrower", borrowerDNI).
		Int("lines", len(lines)).
		Str("total", invoice.Total.StringFixed(2)).
		Msg("return processed")
	s.publish(ctx, events.LoansReturned, LoansReturnedEvent{
		BorrowerDNI: borrowerDNI,
		Lines:       lines,
		Total:       invoice.Total,
		ReturnedAt:  invoice.IssuedAt,
	})
	return invoice, nil
}

// publish is best effort; the state change has already committed.
func (s *service) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.log.Warn().Err(err).Str("routing_key", key).Msg("failed to publish event")
	}
}
