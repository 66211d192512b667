// Package repository defines the event store interface and errors.
package repository

import (
	"context"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// Store is the single source of truth for usage events.
//
// Reads hand out copies; writers replace the whole collection. Every
// successful mutation bumps the version so derived values computed from an
// older snapshot can be recognized as stale.
type Store interface {
	// Insert appends an event. Returns ErrDuplicateID if the id exists.
	Insert(ctx context.Context, e model.UsageEvent) error

	// Get returns one event. Returns ErrEventNotFound if absent.
	Get(ctx context.Context, id string) (model.UsageEvent, error)

	// Remove deletes one event without touching any other.
	// Returns ErrEventNotFound if absent.
	Remove(ctx context.Context, id string) error

	// Snapshot returns a copy of all events in insertion order and the
	// version it was taken at.
	Snapshot(ctx context.Context) (model.Snapshot, uint64)

	// Replace swaps in snap if the store is still at version. The new snapshot
	// must hold exactly the same ids; only times may differ.
	Replace(ctx context.Context, snap model.Snapshot, version uint64) error

	// Version returns the current mutation counter.
	Version(ctx context.Context) uint64

	// Count returns the number of stored events.
	Count(ctx context.Context) int
}
