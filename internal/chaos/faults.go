// internal/chaos/faults.go
package chaos

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
)

var ErrInjected = errors.New("injected fault")

// FaultyStore wraps a store and fails or slows it down on demand.
type FaultyStore struct {
	port.Store
	failPayments atomic.Bool
	latency      atomic.Int64
	injected     atomic.Int64
}

func NewFaultyStore(s port.Store) *FaultyStore {
	return &FaultyStore{Store: s}
}

// FailPayments makes every payment status change fail while on.
func (f *FaultyStore) FailPayments(on bool) { f.failPayments.Store(on) }

// SetLatency delays the start of every transaction by d.
func (f *FaultyStore) SetLatency(d time.Duration) { f.latency.Store(int64(d)) }

// Injected counts the faults handed out so far.
func (f *FaultyStore) Injected() int64 { return f.injected.Load() }

func (f *FaultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if d := time.Duration(f.latency.Load()); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return f.Store.WithinTx(ctx, fn)
}

func (f *FaultyStore) Payments() port.PaymentRepository {
	return faultyPayments{PaymentRepository: f.Store.Payments(), f: f}
}

type faultyPayments struct {
	port.PaymentRepository
	f *FaultyStore
}

func (p faultyPayments) SetStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	if p.f.failPayments.Load() {
		p.f.injected.Add(1)
		return ErrInjected
	}
	return p.PaymentRepository.SetStatus(ctx, id, status)
}
