// internal/cart/cart.go
package cart

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"libralend/internal/domain"
)

// Stock is the part of the stock ledger a cart debits and credits.
type Stock interface {
	HasSufficientStock(ctx context.Context, isbn string, requested, alreadyHeld int) (bool, error)
	Decrease(ctx context.Context, isbn string, qty int) error
	Increase(ctx context.Context, isbn string, qty int) error
}

// Cart holds copies for one session. Every hold is already debited from the
// shelf. A Cart is not safe for concurrent use; Sessions serializes access.
type Cart struct {
	stock Stock
	holds map[string]int
}

func New(stock Stock) *Cart {
	return &Cart{stock: stock, holds: make(map[string]int)}
}

// Add reserves qty copies of isbn. For a title already in the cart, qty
// becomes the new held quantity.
func (c *Cart) Add(ctx context.Context, isbn string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("add %s x%d: %w", isbn, qty, domain.ErrInvalidQuantity)
	}
	if _, held := c.holds[isbn]; held {
		return c.SetQuantity(ctx, isbn, qty)
	}

	ok, err := c.stock.HasSufficientStock(ctx, isbn, qty, 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("add %s x%d: %w", isbn, qty, domain.ErrInsufficientStock)
	}
	if err := c.stock.Decrease(ctx, isbn, qty); err != nil {
		return err
	}
	c.holds[isbn] = qty
	return nil
}

// Remove drops the hold on isbn and puts its copies back on the shelf.
func (c *Cart) Remove(ctx context.Context, isbn string) error {
	qty, held := c.holds[isbn]
	if !held {
		return fmt.Errorf("cart has no %s: %w", isbn, domain.ErrNotFound)
	}
	if err := c.stock.Increase(ctx, isbn, qty); err != nil {
		return err
	}
	delete(c.holds, isbn)
	return nil
}

// SetQuantity moves the hold on isbn to newQty, debiting or crediting only
// the difference. A non-positive newQty removes the hold.
func (c *Cart) SetQuantity(ctx context.Context, isbn string, newQty int) error {
	current, held := c.holds[isbn]
	if !held {
		return fmt.Errorf("cart has no %s: %w", isbn, domain.ErrNotFound)
	}
	if newQty <= 0 {
		return c.Remove(ctx, isbn)
	}

	ok, err := c.stock.HasSufficientStock(ctx, isbn, newQty, current)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("set %s to %d: %w", isbn, newQty, domain.ErrInsufficientStock)
	}

	switch delta := newQty - current; {
	case delta > 0:
		err = c.stock.Decrease(ctx, isbn, delta)
	case delta < 0:
		err = c.stock.Increase(ctx, isbn, -delta)
	}
	if err != nil {
		return err
	}
	c.holds[isbn] = newQty
	return nil
}

// Contents lists the holds ordered by ISBN.
func (c *Cart) Contents() []domain.Hold {
	out := make([]domain.Hold, 0, len(c.holds))
	for isbn, qty := range c.holds {
		out = append(out, domain.Hold{ISBN: isbn, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b domain.Hold) int { return cmp.Compare(a.ISBN, b.ISBN) })
	return out
}

func (c *Cart) Len() int { return len(c.holds) }

// ReleaseAll credits every hold back to the shelf and empties the cart.
// Holds whose credit fails stay in the cart so a later call can retry them.
func (c *Cart) ReleaseAll(ctx context.Context) error {
	var errs []error
	for _, h := range c.Contents() {
		if err := c.stock.Increase(ctx, h.ISBN, h.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("release %s x%d: %w", h.ISBN, h.Quantity, err))
			continue
		}
		delete(c.holds, h.ISBN)
	}
	return errors.Join(errs...)
}

// Clear forgets every hold without touching stock. Checkout uses it once the
// held copies have become loans.
func (c *Cart) Clear() {
	clear(c.holds)
}
