// Package membus is an in-process snapshot bus. Published snapshots are
// queued and handed to subscribers on Flush, which keeps delivery order
// deterministic in tests; Run pumps the queue continuously in production.
package membus

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type subscription struct {
	key string
	fn  remote.SnapshotHandler
}

type Bus struct {
	mu    sync.Mutex
	subs  []*subscription
	queue []remote.Snapshot
	wake  chan struct{}
}

var _ remote.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{wake: make(chan struct{}, 1)}
}

func scopeKey(owner, accountID string, kind core.EntityKind) string {
	return fmt.Sprintf("%s|%s|%s", owner, accountID, kind)
}

func (b *Bus) PublishSnapshot(_ context.Context, s remote.Snapshot) error {
	b.mu.Lock()
	b.queue = append(b.queue, s)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

func (b *Bus) Subscribe(owner, accountID string, kind core.EntityKind, fn remote.SnapshotHandler) (remote.Unsubscribe, error) {
	sub := &subscription{key: scopeKey(owner, accountID, kind), fn: fn}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}, nil
}

// Flush delivers every queued snapshot, in publish order, to the handlers
// subscribed to its scope. Handlers run on the calling goroutine. Returns
// the number of snapshots delivered to at least one handler.
func (b *Bus) Flush() int {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	subs := append([]*subscription(nil), b.subs...)
	b.mu.Unlock()

	delivered := 0
	for _, snap := range pending {
		key := scopeKey(snap.Owner, snap.BankAccountID, snap.Kind)
		hit := false
		for _, sub := range subs {
			if sub.key == key {
				sub.fn(snap)
				hit = true
			}
		}
		if hit {
			delivered++
		}
	}
	return delivered
}

// Run pumps queued snapshots until the context is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.wake:
			b.Flush()
		}
	}
}
