package repository

import (
	"errors"

	"github.com/okian/cdtimeline/internal/domain/propagation"
)

// Sentinel kinds for event store errors.
var (
	// ErrEventNotFound is shared with the propagator so callers check one kind.
	ErrEventNotFound = propagation.ErrEventNotFound
	ErrDuplicateID   = errors.New("duplicate event id")
	ErrStaleSnapshot = errors.New("stale snapshot")
	ErrShapeChanged  = errors.New("snapshot adds or drops events")
)
