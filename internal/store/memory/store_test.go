package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"libralend/internal/domain"
	"libralend/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func seedTitle(t *testing.T, s *memory.Store, isbn string, onShelf int) {
	t.Helper()
	require.NoError(t, s.Titles().Create(t.Context(), domain.Title{ISBN: isbn, Name: "Title " + isbn, OnShelf: onShelf}))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := memory.New()
	seedTitle(t, s, "9780000000001", 3)
	boom := errors.New("boom")

	err := s.WithinTx(t.Context(), func(ctx context.Context) error {
		_, err := s.Titles().AdjustOnShelf(ctx, "9780000000001", -2)
		require.NoError(t, err)
		require.NoError(t, s.Loans().Create(ctx, domain.NewLoan("9780000000001", "111", 2, time.Now())))
		return boom
	})
	require.ErrorIs(t, err, boom)

	title, err := s.Titles().Get(t.Context(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, title.OnShelf)

	loans, err := s.Loans().List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestWithinTxJoinsOuterTransaction(t *testing.T) {
	s := memory.New()
	seedTitle(t, s, "9780000000001", 3)

	err := s.WithinTx(t.Context(), func(ctx context.Context) error {
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Titles().AdjustOnShelf(ctx, "9780000000001", -1)
			return err
		}))
		return errors.New("outer failure")
	})
	require.Error(t, err)

	title, err := s.Titles().Get(t.Context(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, title.OnShelf, "inner work must roll back with the outer transaction")
}

func TestAdjustOnShelfNeverGoesNegative(t *testing.T) {
	s := memory.New()
	seedTitle(t, s, "9780000000001", 1)

	_, err := s.Titles().AdjustOnShelf(t.Context(), "9780000000001", -2)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = s.Titles().AdjustOnShelf(t.Context(), "9780000000404", 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err := s.Titles().AdjustOnShelf(t.Context(), "9780000000001", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConcurrentAdjustmentsAreSerialized(t *testing.T) {
	s := memory.New()
	seedTitle(t, s, "9780000000001", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Titles().AdjustOnShelf(context.Background(), "9780000000001", -1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	title, err := s.Titles().Get(t.Context(), "9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 0, title.OnShelf)
}

func TestLoanUpdateDetectsStaleVersion(t *testing.T) {
	s := memory.New()
	loan := domain.NewLoan("9780000000001", "111", 2, time.Now())
	require.NoError(t, s.Loans().Create(t.Context(), loan))

	first := loan
	require.NoError(t, first.RecordReturn(1, "111", time.Now()))
	require.NoError(t, s.Loans().Update(t.Context(), &first))
	assert.Equal(t, 2, first.Version)

	stale := loan
	require.NoError(t, stale.RecordReturn(2, "111", time.Now()))
	require.ErrorIs(t, s.Loans().Update(t.Context(), &stale), domain.ErrConflict)
}

func TestJournalStreamsAfterCursor(t *testing.T) {
	s := memory.New()
	for _, typ := range []string{"A", "B", "C"} {
		e, err := domain.NewEvent("test", "1", typ, map[string]string{"k": typ})
		require.NoError(t, err)
		require.NoError(t, s.Journal().Append(t.Context(), e))
	}

	events, err := s.Journal().Stream(t.Context(), 1, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "B", events[0].EventType)
	assert.Equal(t, int64(2), events[0].ID)
}
