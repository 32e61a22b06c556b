// internal/cart/sessions.go
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const releaseTimeout = 10 * time.Second

// Sessions owns the carts, keyed by session id. A session that ends, idles
// past its TTL or is evicted for capacity has its holds released. A cart
// whose release fails is parked until ending the session, a retry sweep or
// the owner's next request picks it up again.
type Sessions struct {
	stock Stock
	log   zerolog.Logger

	mu    sync.Mutex // serializes get-or-create
	carts *expirable.LRU[string, *session]

	// pendingMu is taken under the cache's lock; never call into the cache
	// while holding it.
	pendingMu sync.Mutex
	pending   map[string][]*session
}

type session struct {
	mu     sync.Mutex
	cart   *Cart
	closed bool
}

// NewSessions keeps at most capacity carts (0 for no limit), each living
// ttl after its last use.
func NewSessions(stock Stock, ttl time.Duration, capacity int, log zerolog.Logger) *Sessions {
	s := &Sessions{stock: stock, log: log, pending: make(map[string][]*session)}
	s.carts = expirable.NewLRU[string, *session](capacity, s.evicted, ttl)
	return s
}

// evicted runs under the cache's lock and must not call back into it.
func (s *Sessions) evicted(id string, sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.close(ctx, sess); err != nil {
		s.park(id, sess)
		s.log.Error().Err(err).Str("session", id).Msg("failed to release expired cart, parked for retry")
		return
	}
	s.log.Debug().Str("session", id).Msg("cart session closed")
}

func (s *Sessions) close(ctx context.Context, sess *session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil
	}
	if err := sess.cart.ReleaseAll(ctx); err != nil {
		return err
	}
	sess.closed = true
	return nil
}

func (s *Sessions) park(id string, sess *session) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[id] = append(s.pending[id], sess)
}

// unpark removes and returns every parked cart of id.
func (s *Sessions) unpark(id string) []*session {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	parked := s.pending[id]
	delete(s.pending, id)
	return parked
}

// resume takes one parked cart of id back, if there is one.
func (s *Sessions) resume(id string) *session {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	parked := s.pending[id]
	if len(parked) == 0 {
		return nil
	}
	sess := parked[len(parked)-1]
	if len(parked) == 1 {
		delete(s.pending, id)
	} else {
		s.pending[id] = parked[:len(parked)-1]
	}
	return sess
}

func (s *Sessions) acquire(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.carts.Get(id); ok {
		s.carts.Add(id, sess) // renews the TTL
		return sess
	}
	// An expired entry may still be cached; removing it fires the release,
	// which parks the cart if the release fails.
	s.carts.Remove(id)
	sess := s.resume(id)
	if sess == nil {
		sess = &session{cart: New(s.stock)}
	} else {
		s.log.Info().Str("session", id).Msg("resumed parked cart")
	}
	s.carts.Add(id, sess)
	return sess
}

// Do runs fn with exclusive access to the session's cart, creating the cart
// on first use.
func (s *Sessions) Do(ctx context.Context, id string, fn func(c *Cart) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sess := s.acquire(id)
		sess.mu.Lock()
		if sess.closed {
			sess.mu.Unlock()
			continue
		}
		err := fn(sess.cart)
		sess.mu.Unlock()
		return err
	}
}

// OnSessionEnd releases every hold of the session's cart, parked ones
// included, and discards it. Ending an unknown session is a no-op. If
// releasing fails the cart is kept so the call can be repeated.
func (s *Sessions) OnSessionEnd(ctx context.Context, id string) error {
	if sess, ok := s.carts.Peek(id); ok {
		if err := s.close(ctx, sess); err != nil {
			return err
		}
	}
	s.carts.Remove(id)

	var errs []error
	for _, sess := range s.unpark(id) {
		if err := s.close(ctx, sess); err != nil {
			s.park(id, sess)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RetryParked tries once more to release every parked cart. Carts that
// still fail stay parked.
func (s *Sessions) RetryParked(ctx context.Context) error {
	s.pendingMu.Lock()
	parked := s.pending
	s.pending = make(map[string][]*session)
	s.pendingMu.Unlock()

	var errs []error
	for id, list := range parked {
		for _, sess := range list {
			if err := s.close(ctx, sess); err != nil {
				s.park(id, sess)
				errs = append(errs, err)
				continue
			}
			s.log.Info().Str("session", id).Msg("released parked cart")
		}
	}
	return errors.Join(errs...)
}

// RunRetries calls RetryParked every interval until ctx is done.
func (s *Sessions) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RetryParked(ctx); err != nil {
				s.log.Warn().Err(err).Msg("parked carts still held")
			}
		}
	}
}

// Len reports how many carts are open.
func (s *Sessions) Len() int {
	return s.carts.Len()
}

// Parked reports how many carts await a release retry.
func (s *Sessions) Parked() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	n := 0
	for _, list := range s.pending {
		n += len(list)
	}
	return n
}
