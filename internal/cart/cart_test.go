package cart_test

import (
	"testing"

	"libralend/internal/cart"
	"libralend/internal/domain"
	"libralend/internal/stock"
	"libralend/internal/store/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	titleA = "9780141439518"
	titleB = "9780451524935"
)

type fixture struct {
	store  *memory.Store
	ledger *stock.Ledger
}

func newFixture(t *testing.T, shelves map[string]int) fixture {
	t.Helper()
	s := memory.New()
	for isbn, n := range shelves {
		require.NoError(t, s.Titles().Create(t.Context(), domain.Title{ISBN: isbn, Name: isbn, OnShelf: n}))
	}
	return fixture{store: s, ledger: stock.NewLedger(s, zerolog.Nop())}
}

func (f fixture) onShelf(t *testing.T, isbn string) int {
	t.Helper()
	n, err := f.ledger.OnShelf(t.Context(), isbn)
	require.NoError(t, err)
	return n
}

func TestAddAndSetQuantityMoveStock(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3})
	c := cart.New(f.ledger)

	require.NoError(t, c.Add(t.Context(), titleA, 3))
	assert.Equal(t, 0, f.onShelf(t, titleA))

	require.NoError(t, c.SetQuantity(t.Context(), titleA, 1))
	assert.Equal(t, 2, f.onShelf(t, titleA))
	assert.Equal(t, []domain.Hold{{ISBN: titleA, Quantity: 1}}, c.Contents())

	require.NoError(t, c.SetQuantity(t.Context(), titleA, 3))
	assert.Equal(t, 0, f.onShelf(t, titleA))
}

func TestAddOnHeldTitleSetsAbsoluteQuantity(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 5})
	c := cart.New(f.ledger)

	require.NoError(t, c.Add(t.Context(), titleA, 2))
	require.NoError(t, c.Add(t.Context(), titleA, 4))

	assert.Equal(t, []domain.Hold{{ISBN: titleA, Quantity: 4}}, c.Contents())
	assert.Equal(t, 1, f.onShelf(t, titleA))
}

func TestAddRejections(t *testing.T) {
	tests := []struct {
		name    string
		isbn    string
		qty     int
		wantErr error
	}{
		{name: "zero quantity", isbn: titleA, qty: 0, wantErr: domain.ErrInvalidQuantity},
		{name: "negative quantity", isbn: titleA, qty: -2, wantErr: domain.ErrInvalidQuantity},
		{name: "unknown title", isbn: "9780000000000", qty: 1, wantErr: domain.ErrNotFound},
		{name: "more than on shelf", isbn: titleA, qty: 3, wantErr: domain.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]int{titleA: 2})
			c := cart.New(f.ledger)

			require.ErrorIs(t, c.Add(t.Context(), tt.isbn, tt.qty), tt.wantErr)
			assert.Zero(t, c.Len())
			assert.Equal(t, 2, f.onShelf(t, titleA))
		})
	}
}

func TestSetQuantityBeyondShelfKeepsHold(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3})
	c := cart.New(f.ledger)
	require.NoError(t, c.Add(t.Context(), titleA, 2))

	require.ErrorIs(t, c.SetQuantity(t.Context(), titleA, 4), domain.ErrInsufficientStock)
	assert.Equal(t, []domain.Hold{{ISBN: titleA, Quantity: 2}}, c.Contents())
	assert.Equal(t, 1, f.onShelf(t, titleA))
}

func TestSetQuantityNonPositiveRemoves(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3})
	c := cart.New(f.ledger)
	require.NoError(t, c.Add(t.Context(), titleA, 2))

	require.NoError(t, c.SetQuantity(t.Context(), titleA, 0))
	assert.Zero(t, c.Len())
	assert.Equal(t, 3, f.onShelf(t, titleA))

	require.ErrorIs(t, c.SetQuantity(t.Context(), titleA, 1), domain.ErrNotFound)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3, titleB: 1})
	c := cart.New(f.ledger)
	require.NoError(t, c.Add(t.Context(), titleA, 2))
	require.NoError(t, c.Add(t.Context(), titleB, 1))

	require.NoError(t, c.Remove(t.Context(), titleA))
	assert.Equal(t, 3, f.onShelf(t, titleA))
	assert.Equal(t, []domain.Hold{{ISBN: titleB, Quantity: 1}}, c.Contents())

	require.ErrorIs(t, c.Remove(t.Context(), titleA), domain.ErrNotFound)
}

func TestReleaseAllIsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3, titleB: 2})
	c := cart.New(f.ledger)
	require.NoError(t, c.Add(t.Context(), titleA, 1))
	require.NoError(t, c.Add(t.Context(), titleB, 2))

	require.NoError(t, c.ReleaseAll(t.Context()))
	assert.Equal(t, 3, f.onShelf(t, titleA))
	assert.Equal(t, 2, f.onShelf(t, titleB))

	require.NoError(t, c.ReleaseAll(t.Context()))
	assert.Equal(t, 3, f.onShelf(t, titleA))
	assert.Equal(t, 2, f.onShelf(t, titleB))
	assert.Zero(t, c.Len())
}

func TestClearKeepsStockDebited(t *testing.T) {
	f := newFixture(t, map[string]int{titleA: 3})
	c := cart.New(f.ledger)
	require.NoError(t, c.Add(t.Context(), titleA, 2))

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, 1, f.onShelf(t, titleA))
}
