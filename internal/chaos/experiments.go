// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"libralend/internal/cart"
	"libralend/internal/circulation"
	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
)

// Target is the system under test. Store is the real store used for
// measurements; the service must be built on top of Faults.
type Target struct {
	Store    port.Store
	Faults   *FaultyStore
	Service  circulation.Service
	Sessions *cart.Sessions
}

// Drill names the title and borrowers an experiment may use. The title must
// exist with Copies on the shelf and nothing on loan.
type Drill struct {
	ISBN        string
	Copies      int
	Borrowers   []string
	Duration    time.Duration
	SampleEvery time.Duration
}

// RegisterExperiments registers all predefined drills with the engine.
func (e *Engine) RegisterExperiments(t Target, d Drill) {
	e.Register(
		LastCopyContention(t, d),
		BillingOutage(t, d),
		TransactionLatency(t, d, 50*time.Millisecond),
	)
}

// copiesUnaccounted measures how far the drill title is from conserving its
// copies once no cart holds any of them.
func copiesUnaccounted(t Target, d Drill) Metric {
	return Metric{
		Name: "copies_unaccounted",
		Query: func(ctx context.Context) (float64, error) {
			title, err := t.Store.Titles().Get(ctx, d.ISBN)
			if err != nil {
				return 0, err
			}
			loans, err := t.Store.Loans().ListByTitle(ctx, d.ISBN)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return 0, err
			}
			out := 0
			for _, l := range loans {
				out += l.Outstanding()
			}
			return float64(d.Copies - title.OnShelf - out), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func negativeShelves(t Target) Metric {
	return Metric{
		Name: "negative_shelves",
		Query: func(ctx context.Context) (float64, error) {
			titles, err := t.Store.Titles().List(ctx)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, title := range titles {
				if title.OnShelf < 0 {
					n++
				}
			}
			return float64(n), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

// activeLoans counts the drill title's active loans. Drills lend one copy
// per loan.
func activeLoans(t Target, d Drill) Metric {
	return Metric{
		Name: "active_loans",
		Query: func(ctx context.Context) (float64, error) {
			n, err := t.Store.Loans().CountActiveByTitle(ctx, d.ISBN)
			return float64(n), err
		},
		Threshold: Threshold{Operator: "<=", Value: float64(d.Copies)},
	}
}

// checkout reserves qty copies in a fresh session and commits them.
func checkout(ctx context.Context, t Target, isbn, borrower string, qty int) ([]domain.Loan, error) {
	session := uuid.NewString()
	err := t.Sessions.Do(ctx, session, func(c *cart.Cart) error {
		return c.Add(ctx, isbn, qty)
	})
	if err == nil {
		var loans []domain.Loan
		if loans, err = t.Service.Checkout(ctx, session, borrower); err == nil {
			return loans, nil
		}
	}
	// Whatever is still held goes back to the shelf.
	_ = t.Sessions.OnSessionEnd(context.WithoutCancel(ctx), session)
	return nil, err
}

// loanBook remembers the loans a drill made so rollback can return them.
type loanBook struct {
	mu    sync.Mutex
	loans []domain.Loan
}

func (b *loanBook) add(loans ...domain.Loan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loans = append(b.loans, loans...)
}

func (b *loanBook) returnAll(ctx context.Context, svc circulation.Service) error {
	b.mu.Lock()
	loans := b.loans
	b.loans = nil
	b.mu.Unlock()

	var errs []error
	for _, l := range loans {
		_, err := svc.Return(ctx, l.BorrowerDNI, []circulation.ReturnLine{{LoanID: l.ID, Quantity: l.Quantity}})
		if err != nil {
			errs = append(errs, fmt.Errorf("return loan %s: %w", l.ID, err))
		}
	}
	return errors.Join(errs...)
}

// LastCopyContention has every drill borrower race for one copy each.
func LastCopyContention(t Target, d Drill) Experiment {
	book := &loanBook{}
	return Experiment{
		Name:       "last-copy-contention",
		Hypothesis: "Concurrent checkouts never lend more copies than the shelf holds",
		SteadyState: []Metric{
			negativeShelves(t),
			activeLoans(t, d),
			copiesUnaccounted(t, d),
		},
		Method: []Action{{
			Type:   "concurrent-requests",
			Target: "circulation",
			Execute: func(ctx context.Context) error {
				var (
					wg   sync.WaitGroup
					mu   sync.Mutex
					errs []error
				)
				for _, dni := range d.Borrowers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						loans, err := checkout(ctx, t, d.ISBN, dni, 1)
						if err == nil {
							book.add(loans...)
							return
						}
						if !errors.Is(err, domain.ErrInsufficientStock) {
							mu.Lock()
							errs = append(errs, err)
							mu.Unlock()
						}
					}()
				}
				wg.Wait()
				return errors.Join(errs...)
			},
		}},
		Rollback: []Action{{
			Type:    "return-loans",
			Target:  "circulation",
			Execute: func(ctx context.Context) error { return book.returnAll(ctx, t.Service) },
		}},
		Validation: []Assertion{
			{
				Metric:    "negative_shelves",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No shelf count may go negative",
			},
			{
				Metric:    "active_loans",
				Condition: func(v float64) bool { return v <= float64(d.Copies) },
				Message:   "No more copies may be lent than exist",
			},
			{
				Metric:    "copies_unaccounted",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Every copy is on the shelf or on loan",
			},
		},
		Duration:    d.Duration,
		SampleEvery: d.SampleEvery,
	}
}

// BillingOutage fails invoice settlement and expects returns to roll back
// completely.
func BillingOutage(t Target, d Drill) Experiment {
	book := &loanBook{}
	surfaced := 0
	return Experiment{
		Name:       "billing-outage",
		Hypothesis: "A return whose invoice cannot be settled leaves loans and shelves untouched",
		SteadyState: []Metric{
			copiesUnaccounted(t, d),
			{
				Name:      "billing_failures_surfaced",
				Query:     func(context.Context) (float64, error) { return float64(surfaced), nil },
				Threshold: Threshold{Operator: ">=", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "checkout",
				Target: "circulation",
				Execute: func(ctx context.Context) error {
					if len(d.Borrowers) == 0 {
						return errors.New("drill has no borrowers")
					}
					loans, err := checkout(ctx, t, d.ISBN, d.Borrowers[0], 1)
					if err != nil {
						return err
					}
					book.add(loans...)
					return nil
				},
			},
			{
				Type:   "fail-payments",
				Target: "billing",
				Execute: func(ctx context.Context) error {
					t.Faults.FailPayments(true)
					book.mu.Lock()
					loans := append([]domain.Loan(nil), book.loans...)
					book.mu.Unlock()
					for _, l := range loans {
						_, err := t.Service.Return(ctx, l.BorrowerDNI, []circulation.ReturnLine{{LoanID: l.ID, Quantity: l.Quantity}})
						if !errors.Is(err, domain.ErrBillingFailure) {
							return fmt.Errorf("return during outage: got %v, want %w", err, domain.ErrBillingFailure)
						}
						surfaced++
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "restore-payments",
				Target:  "billing",
				Execute: func(context.Context) error { t.Faults.FailPayments(false); return nil },
			},
			{
				Type:    "return-loans",
				Target:  "circulation",
				Execute: func(ctx context.Context) error { return book.returnAll(ctx, t.Service) },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "copies_unaccounted",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "A failed return must not put copies back on the shelf",
			},
			{
				Metric:    "billing_failures_surfaced",
				Condition: func(v float64) bool { return v >= 1 },
				Message:   "The outage must reach the caller as a billing failure",
			},
		},
		Duration:    d.Duration,
		SampleEvery: d.SampleEvery,
	}
}

// TransactionLatency slows every transaction down while borrowers race.
func TransactionLatency(t Target, d Drill, latency time.Duration) Experiment {
	exp := LastCopyContention(t, d)
	exp.Name = "transaction-latency"
	exp.Hypothesis = "Slow transactions do not weaken stock accounting"
	exp.Method = append([]Action{{
		Type:    "inject-latency",
		Target:  "store",
		Execute: func(context.Context) error { t.Faults.SetLatency(latency); return nil },
	}}, exp.Method...)
	exp.Rollback = append([]Action{{
		Type:    "remove-latency",
		Target:  "store",
		Execute: func(context.Context) error { t.Faults.SetLatency(0); return nil },
	}}, exp.Rollback...)
	return exp
}
