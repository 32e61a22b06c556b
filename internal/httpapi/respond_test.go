package httpapi_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"libralend/internal/domain"
	"libralend/internal/httpapi"
	"libralend/internal/store/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrOwnershipMismatch, http.StatusForbidden},
		{domain.ErrInsufficientStock, http.StatusConflict},
		{domain.ErrAlreadyReturned, http.StatusConflict},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrOverReturn, http.StatusUnprocessableEntity},
		{domain.ErrBillingFailure, http.StatusPaymentRequired},
		{fmt.Errorf("loan x: %w", domain.ErrOverReturn), http.StatusUnprocessableEntity},
		{httpapi.NewStatusError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", httpapi.NewStatusError(http.StatusTeapot, "tea")), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, httpapi.StatusFor(tt.err))
		})
	}
}

func TestErrorHidesServerFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	httpapi.Error(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	httpapi.Error(rec, httptest.NewRequest(http.MethodGet, "/x", nil), fmt.Errorf("title 1: %w", domain.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"title 1: not found"}`, rec.Body.String())
}

func TestQuantity(t *testing.T) {
	n, err := httpapi.Quantity("-3")
	require.NoError(t, err)
	assert.Equal(t, -3, n)

	_, err = httpapi.Quantity("three")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestJournalHandler(t *testing.T) {
	s := memory.New()
	for i := range 3 {
		e, err := domain.NewEvent("title", fmt.Sprint(i), domain.EventTitleAdded, map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, s.Journal().Append(t.Context(), e))
	}
	router := httpapi.NewRouter(zerolog.Nop(), httpapi.NewJournalHandler(s.Journal()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/journal?after=1&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"aggregate_id":"1"`)
	assert.NotContains(t, rec.Body.String(), `"aggregate_id":"2"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
