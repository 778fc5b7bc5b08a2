package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/ledger"
	"fintrack/internal/remote"
)

// Sessions hands out one coordinator per authenticated owner. Construction
// is lazy: the first request for an owner loads their accounts and selects
// the first one.
type Sessions struct {
	store ledger.Store
	bus   remote.Bus
	now   func() time.Time

	mu     sync.Mutex
	coords map[string]*Coordinator
}

func NewSessions(store ledger.Store, bus remote.Bus) *Sessions {
	return &Sessions{
		store:  store,
		bus:    bus,
		now:    time.Now,
		coords: make(map[string]*Coordinator),
	}
}

// For returns the owner's coordinator, constructing and loading it on
// first use.
func (s *Sessions) For(ctx context.Context, owner string) (*Coordinator, error) {
	s.mu.Lock()
	if c, ok := s.coords[owner]; ok {
		s.mu.Unlock()
		return c, nil
	}
	c := New(owner, s.store, s.bus, WithClock(s.now))
	s.coords[owner] = c
	s.mu.Unlock()

	if err := c.LoadOwner(ctx); err != nil {
		s.mu.Lock()
		delete(s.coords, owner)
		s.mu.Unlock()
		c.Close()
		return nil, fmt.Errorf("load owner %s: %w", owner, err)
	}
	return c, nil
}

// Close tears down every session's subscriptions.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coords {
		c.Close()
	}
	s.coords = make(map[string]*Coordinator)
}
