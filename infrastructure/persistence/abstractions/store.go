// Package abstractions defines the storage contract the memory engine is
// written against. Two implementations exist: a durable per-user append-only
// log on local disk, and a per-user list in a shared Redis instance. The
// backend is chosen once at process start from configuration; everything
// above this interface is backend-agnostic.
package abstractions

import (
	"context"

	"memoryd/domain/memory"
)

// KeepFunc decides which entries survive a Delete. Entries for which it
// returns false are removed.
type KeepFunc func(*memory.Entry) bool

// Store is the uniform append/load/delete contract over a user's log.
//
// Append is all-or-nothing for a single entry. Load returns a fresh,
// independent snapshot in insertion order on every call, together with the
// number of stored records that could not be parsed (skipped, non-fatal).
// Delete removes every entry the keep function rejects and reports the
// exact count removed.
type Store interface {
	Append(ctx context.Context, entry *memory.Entry) error
	Load(ctx context.Context, userID string) (entries []*memory.Entry, skipped int, err error)
	Delete(ctx context.Context, userID string, keep KeepFunc) (removed int, err error)

	// Ping reports whether the backend is reachable; used by the
	// readiness probe, never by engine operations.
	Ping(ctx context.Context) error

	// Name identifies the backend in logs and errors
	Name() string
}
