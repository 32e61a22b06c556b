// internal/stock/ledger.go
package stock

import (
	"context"
	"fmt"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Ledger is the single writer of a title's on-shelf count.
type Ledger struct {
	store       port.Store
	log         zerolog.Logger
	adjustments metric.Int64Counter
}

type adjustedEvent struct {
	ISBN    string `json:"isbn"`
	Delta   int    `json:"delta"`
	OnShelf int    `json:"on_shelf"`
}

func NewLedger(store port.Store, log zerolog.Logger) *Ledger {
	counter, err := otel.Meter("libralend/stock").Int64Counter("stock.adjusted_copies",
		metric.WithDescription("Copies moved on or off the shelf"),
		metric.WithUnit("{copy}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("stock metrics disabled")
		counter = noop.Int64Counter{}
	}
	return &Ledger{store: store, log: log, adjustments: counter}
}

// Decrease takes qty copies off the shelf. It fails with
// domain.ErrInsufficientStock instead of leaving the count negative.
func (l *Ledger) Decrease(ctx context.Context, isbn string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrease %s by %d: %w", isbn, qty, domain.ErrInvalidQuantity)
	}
	return l.adjust(ctx, isbn, -qty)
}

// Increase puts qty copies back on the shelf.
func (l *Ledger) Increase(ctx context.Context, isbn string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increase %s by %d: %w", isbn, qty, domain.ErrInvalidQuantity)
	}
	return l.adjust(ctx, isbn, qty)
}

func (l *Ledger) adjust(ctx context.Context, isbn string, delta int) error {
	var onShelf int
	err := l.store.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		onShelf, err = l.store.Titles().AdjustOnShelf(ctx, isbn, delta)
		if err != nil {
			return err
		}
		event, err := domain.NewEvent("title", isbn, domain.EventStockAdjusted, adjustedEvent{ISBN: isbn, Delta: delta, OnShelf: onShelf})
		if err != nil {
			return err
		}
		return l.store.Journal().Append(ctx, event)
	})
	if err != nil {
		return err
	}

	direction := "increase"
	magnitude := delta
	if delta < 0 {
		direction, magnitude = "decrease", -delta
	}
	l.adjustments.Add(ctx, int64(magnitude), metric.WithAttributes(attribute.String("direction", direction)))
	l.log.Debug().Str("isbn", isbn).Int("delta", delta).Int("on_shelf", onShelf).Msg("stock adjusted")
	return nil
}

// HasSufficientStock reports whether requested copies can be held by a cart
// that already holds alreadyHeld of them.
func (l *Ledger) HasSufficientStock(ctx context.Context, isbn string, requested, alreadyHeld int) (bool, error) {
	onShelf, err := l.OnShelf(ctx, isbn)
	if err != nil {
		return false, err
	}
	return onShelf+alreadyHeld >= requested, nil
}

func (l *Ledger) OnShelf(ctx context.Context, isbn string) (int, error) {
	t, err := l.store.Titles().Get(ctx, isbn)
	if err != nil {
		return 0, err
	}
	return t.OnShelf, nil
}
