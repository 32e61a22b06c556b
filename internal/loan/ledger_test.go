package loan_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"libralend/internal/domain"
	"libralend/internal/httpapi"
	"libralend/internal/loan"
	"libralend/internal/store/memory"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type directory map[string]domain.Borrower

func (d directory) FindBorrower(_ context.Context, dni string) (domain.Borrower, error) {
	b, ok := d[dni]
	if !ok {
		return domain.Borrower{}, fmt.Errorf("borrower %s: %w", dni, domain.ErrNotFound)
	}
	return b, nil
}

type basket struct {
	holds   []domain.Hold
	cleared bool
}

func (b *basket) Contents() []domain.Hold { return b.holds }
func (b *basket) Clear()                  { b.holds, b.cleared = nil, true }

var day0 = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newLedger() *loan.Ledger {
	dir := directory{"30111222": {DNI: "30111222", FirstName: "Ana", LastName: "Pérez"}}
	return loan.NewLedger(memory.New(), dir, func() time.Time { return day0 }, zerolog.Nop())
}

func TestCommit(t *testing.T) {
	ledger := newLedger()
	b := &basket{holds: []domain.Hold{{ISBN: "9780141439518", Quantity: 2}, {ISBN: "9780451524935", Quantity: 1}}}

	loans, err := ledger.Commit(t.Context(), b, "30111222")
	require.NoError(t, err)
	assert.True(t, b.cleared)

	want := []domain.Loan{
		{ISBN: "9780141439518", BorrowerDNI: "30111222", Quantity: 2, StartDate: day0, Status: domain.LoanActive, Version: 1},
		{ISBN: "9780451524935", BorrowerDNI: "30111222", Quantity: 1, StartDate: day0, Status: domain.LoanActive, Version: 1},
	}
	if diff := cmp.Diff(want, loans, cmpopts.IgnoreFields(domain.Loan{}, "ID")); diff != "" {
		t.Errorf("loans mismatch (-want +got):\n%s", diff)
	}

	stored, err := ledger.ListByBorrower(t.Context(), "30111222")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCommitRejections(t *testing.T) {
	tests := []struct {
		name     string
		holds    []domain.Hold
		borrower string
		wantErr  error
	}{
		{name: "empty cart", borrower: "30111222", wantErr: domain.ErrInvalidQuantity},
		{name: "unknown borrower", holds: []domain.Hold{{ISBN: "9780141439518", Quantity: 1}}, borrower: "999", wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newLedger()
			b := &basket{holds: tt.holds}

			_, err := ledger.Commit(t.Context(), b, tt.borrower)
			require.ErrorIs(t, err, tt.wantErr)
			assert.False(t, b.cleared, "a failed checkout keeps the cart")

			all, err := ledger.List(t.Context())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func commitOne(t *testing.T, ledger *loan.Ledger, qty int) domain.Loan {
	t.Helper()
	loans, err := ledger.Commit(t.Context(), &basket{holds: []domain.Hold{{ISBN: "9780141439518", Quantity: qty}}}, "30111222")
	require.NoError(t, err)
	return loans[0]
}

func TestApplyReturn(t *testing.T) {
	ledger := newLedger()
	l := commitOne(t, ledger, 3)

	got, err := ledger.ApplyReturn(t.Context(), l.ID, 2, "30111222")
	require.NoError(t, err)
	assert.Equal(t, 2, got.QuantityReturned)
	assert.True(t, got.PartiallyReturned())

	_, err = ledger.ApplyReturn(t.Context(), l.ID, 2, "30111222")
	require.ErrorIs(t, err, domain.ErrOverReturn)

	_, err = ledger.ApplyReturn(t.Context(), l.ID, 1, "40999888")
	require.ErrorIs(t, err, domain.ErrOwnershipMismatch)

	got, err = ledger.ApplyReturn(t.Context(), l.ID, 1, "30111222")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanReturned, got.Status)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, day0, *got.EndDate)

	_, err = ledger.ApplyReturn(t.Context(), l.ID, 1, "30111222")
	require.ErrorIs(t, err, domain.ErrAlreadyReturned)

	_, err = ledger.ApplyReturn(t.Context(), uuid.New(), 1, "30111222")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveAndListings(t *testing.T) {
	ledger := newLedger()
	l := commitOne(t, ledger, 1)

	byTitle, err := ledger.ListByTitle(t.Context(), "9780141439518")
	require.NoError(t, err)
	assert.Len(t, byTitle, 1)

	none, err := ledger.ListByTitle(t.Context(), "9780000000000")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, ledger.Remove(t.Context(), l.ID))
	require.ErrorIs(t, ledger.Remove(t.Context(), l.ID), domain.ErrNotFound)
	_, err = ledger.Get(t.Context(), l.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandler(t *testing.T) {
	ledger := newLedger()
	l := commitOne(t, ledger, 2)
	router := httpapi.NewRouter(zerolog.Nop(), loan.NewHandler(ledger))

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/loans", http.StatusOK},
		{http.MethodGet, "/loans/" + l.ID.String(), http.StatusOK},
		{http.MethodGet, "/loans/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/loans/" + uuid.NewString(), http.StatusNotFound},
		{http.MethodGet, "/loans/title/9780141439518", http.StatusOK},
		{http.MethodGet, "/loans/borrower/nobody", http.StatusOK},
		{http.MethodDelete, "/loans/" + l.ID.String(), http.StatusNoContent},
		{http.MethodDelete, "/loans/" + l.ID.String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.wantStatus, rec.Code, "%s %s", tt.method, tt.path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans/borrower/nobody", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// storeCheckingDirectory answers lookups only after confirming that another
// caller can still use the store.
type storeCheckingDirectory struct {
	directory
	store      *memory.Store
	storeReady bool
}

func (d *storeCheckingDirectory) FindBorrower(ctx context.Context, dni string) (domain.Borrower, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.store.Loans().List(context.Background())
	}()
	select {
	case <-done:
		d.storeReady = true
	case <-time.After(200 * time.Millisecond):
	}
	return d.directory.FindBorrower(ctx, dni)
}

func TestCommitLooksUpBorrowerOutsideTransaction(t *testing.T) {
	store := memory.New()
	dir := &storeCheckingDirectory{
		directory: directory{"30111222": {DNI: "30111222", FirstName: "Ana", LastName: "Pérez"}},
		store:     store,
	}
	ledger := loan.NewLedger(store, dir, func() time.Time { return day0 }, zerolog.Nop())

	_, err := ledger.Commit(t.Context(), &basket{holds: []domain.Hold{{ISBN: "9780141439518", Quantity: 1}}}, "30111222")
	require.NoError(t, err)
	assert.True(t, dir.storeReady, "the store stays usable while the borrower is looked up")
}
