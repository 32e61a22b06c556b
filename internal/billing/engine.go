// internal/billing/engine.go
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Fees prices a return: days out x rate x copies + flat fee.
type Fees struct {
	RatePerDay decimal.Decimal
	Flat       decimal.Decimal
}

func DefaultFees() Fees {
	return Fees{RatePerDay: decimal.NewFromInt(2), Flat: decimal.NewFromInt(1)}
}

// Engine registers payments for returns and settles invoices.
type Engine struct {
	store   port.Store
	fees    Fees
	log     zerolog.Logger
	charged metric.Float64Counter
}

type Option func(*options)

type options struct {
	meter metric.Meter
}

// WithMeter replaces the global meter provider's meter.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

func NewEngine(store port.Store, fees Fees, log zerolog.Logger, opts ...Option) *Engine {
	o := options{meter: otel.Meter("libralend/billing")}
	for _, opt := range opts {
		opt(&o)
	}
	charged, err := o.meter.Float64Counter("billing.charged_amount",
		metric.WithDescription("Sum of settled invoice totals"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("billing metrics disabled")
		charged = noop.Float64Counter{}
	}
	return &Engine{store: store, fees: fees, log: log, charged: charged}
}

// DaysOut counts whole calendar days between the loan start and the return,
// comparing dates in UTC. A return dated before the start counts as zero.
func DaysOut(start, returned time.Time) int {
	y1, m1, d1 := start.UTC().Date()
	y2, m2, d2 := returned.UTC().Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	return max(days, 0)
}

// Amount is the fee for qty copies kept for days.
func (f Fees) Amount(days, qty int) decimal.Decimal {
	return f.RatePerDay.
		Mul(decimal.NewFromInt(int64(days))).
		Mul(decimal.NewFromInt(int64(qty))).
		Add(f.Flat)
}

// ChargeForReturn registers a pending payment for qty copies of loan
// returned on returnDate.
func (e *Engine) ChargeForReturn(ctx context.Context, loan domain.Loan, returnDate time.Time, qty int) (domain.Payment, error) {
	if qty <= 0 {
		return domain.Payment{}, fmt.Errorf("charge for loan %s x%d: %w", loan.ID, qty, domain.ErrInvalidQuantity)
	}

	days := DaysOut(loan.StartDate, returnDate)
	payment := domain.Payment{
		ID:       uuid.New(),
		LoanID:   loan.ID,
		PaidAt:   returnDate.UTC(),
		Quantity: qty,
		Amount:   e.fees.Amount(days, qty),
		Status:   domain.PaymentPending,
	}

	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := e.store.Payments().Create(ctx, payment); err != nil {
			return err
		}
		event, err := domain.NewEvent("payment", payment.ID.String(), domain.EventPaymentRegistered, payment)
		if err != nil {
			return err
		}
		return e.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	e.log.Debug().
		Str("loan", loan.ID.String()).
		Int("days", days).
		Int("quantity", qty).
		Str("amount", payment.Amount.StringFixed(2)).
		Msg("payment registered")
	return payment, nil
}

// FinalizeInvoice completes every payment on the invoice. Failures are logged
// with their cause and reported as domain.ErrBillingFailure only.
func (e *Engine) FinalizeInvoice(ctx context.Context, inv *domain.Invoice) error {
	err := e.store.WithinTx(ctx, func(ctx context.Context) error {
		for _, line := range inv.Lines {
			if err := e.store.Payments().SetStatus(ctx, line.PaymentID, domain.PaymentCompleted); err != nil {
				return err
			}
			event, err := domain.NewEvent("payment", line.PaymentID.String(), domain.EventPaymentCompleted,
				map[string]uuid.UUID{"payment_id": line.PaymentID, "loan_id": line.LoanID})
			if err != nil {
				return err
			}
			if err := e.store.Journal().Append(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Conflicts must reach the store so the surrounding transaction is retried.
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		e.log.Error().Err(err).Str("borrower", inv.BorrowerDNI).Int("payments", len(inv.Lines)).Msg("invoice finalization failed")
		return domain.ErrBillingFailure
	}

	inv.MarkCompleted()
	return nil
}

// RecordSettled counts a settled invoice. Call it once the transaction that
// finalized inv has committed.
func (e *Engine) RecordSettled(ctx context.Context, inv *domain.Invoice) {
	e.charged.Add(ctx, inv.Total.InexactFloat64())
}

func (e *Engine) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return e.store.Payments().Get(ctx, id)
}

func (e *Engine) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	payments, err := e.store.Payments().List(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Payment{}, nil
	}
	return payments, err
}
