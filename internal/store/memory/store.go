// internal/store/memory/store.go
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"libralend/internal/domain"
	"libralend/internal/port"

	"github.com/google/uuid"
)

// Store keeps everything in process memory. Transactions are serialized
// behind one mutex and rolled back by restoring a snapshot of the state.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	titles      map[string]domain.Title
	authors     map[uuid.UUID]domain.Author
	credits     map[credit]struct{}
	borrowers   map[string]domain.Borrower
	loans       map[uuid.UUID]domain.Loan
	payments    map[uuid.UUID]domain.Payment
	events      []domain.Event
	nextEventID int64
}

// credit links a title to one of its authors.
type credit struct {
	isbn   string
	author uuid.UUID
}

type txKey struct{}

var _ port.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		titles:    make(map[string]domain.Title),
		authors:   make(map[uuid.UUID]domain.Author),
		credits:   make(map[credit]struct{}),
		borrowers: make(map[string]domain.Borrower),
		loans:     make(map[uuid.UUID]domain.Loan),
		payments:  make(map[uuid.UUID]domain.Payment),
	}}
}

func (s *state) clone() *state {
	return &state{
		titles:      maps.Clone(s.titles),
		authors:     maps.Clone(s.authors),
		credits:     maps.Clone(s.credits),
		borrowers:   maps.Clone(s.borrowers),
		loans:       maps.Clone(s.loans),
		payments:    maps.Clone(s.payments),
		events:      slices.Clone(s.events),
		nextEventID: s.nextEventID,
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// run executes fn against the live state, taking the lock unless ctx already
// belongs to one of this store's transactions.
func (s *Store) run(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
		s.mu.Unlock()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Titles() port.TitleRepository       { return titleRepo{s} }
func (s *Store) Authors() port.AuthorRepository     { return authorRepo{s} }
func (s *Store) Borrowers() port.BorrowerRepository { return borrowerRepo{s} }
func (s *Store) Loans() port.LoanRepository         { return loanRepo{s} }
func (s *Store) Payments() port.PaymentRepository   { return paymentRepo{s} }
func (s *Store) Journal() port.Journal              { return journal{s} }
