// Package remote models the asynchronous snapshot channel of the shared
// data store. The channel delivers full-collection snapshots, not deltas:
// a later snapshot always supersedes an earlier one for its collection.
package remote

import (
	"context"

	"fintrack/internal/core"
)

type (
	// SnapshotHandler receives one full-collection snapshot. Handlers run
	// on the bus delivery goroutine and must not block indefinitely.
	SnapshotHandler func(Snapshot)

	// Unsubscribe tears down a subscription. Safe to call more than once.
	Unsubscribe func()

	Bus interface {
		PublishSnapshot(ctx context.Context, s Snapshot) error

		// Subscribe registers a handler for the collection identified by
		// owner, account and kind. Delivery is per-collection FIFO.
		Subscribe(owner, accountID string, kind core.EntityKind, fn SnapshotHandler) (Unsubscribe, error)
	}
)
