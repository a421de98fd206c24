package cart

import (
	"context"
	"sync"
	"time"
)

// Store owns the carts of all live sessions. Each cart is scoped to one
// session key and mutations are serialized per key, so two requests from the
// same session (e.g. two browser tabs) cannot interleave a read-modify-write
// and lose an add or remove.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionCart
	ttl      time.Duration
}

type sessionCart struct {
	mu       sync.Mutex
	cart     *Cart
	lastUsed time.Time
}

// NewStore creates a Store whose carts expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*sessionCart),
		ttl:      ttl,
	}
}

// WithCart runs fn against the session's cart under the per-session lock,
// creating an empty cart on first touch. Every mutation therefore applies
// atomically against the then-current cart state, never a stale read.
func (s *Store) WithCart(key string, fn func(c *Cart) error) error {
	sc := s.get(key)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	return fn(sc.cart)
}

// Destroy drops the session's cart, if any. Called at session end.
func (s *Store) Destroy(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

func (s *Store) get(key string) *sessionCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.sessions[key]
	if !ok {
		sc = &sessionCart{cart: New()}
		s.sessions[key] = sc
	}
	sc.lastUsed = time.Now()
	return sc
}

// evict removes carts idle for longer than the TTL.
func (s *Store) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, sc := range s.sessions {
		if now.Sub(sc.lastUsed) >= s.ttl {
			delete(s.sessions, key)
		}
	}
}

// StartEviction launches a background goroutine that periodically evicts
// idle carts. It stops when ctx is cancelled.
func (s *Store) StartEviction(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now)
			}
		}
	}()
}
