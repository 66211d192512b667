package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/pkg/metrics"
)

// MemoryStore is an in-memory Store. The zero value is not usable; call
// NewMemoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	events  model.Snapshot
	version uint64

	capacity int
	seed     []model.UsageEvent
}

// NewMemoryStore creates an empty store with options applied.
func NewMemoryStore(_ context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(model.Snapshot, 0, s.capacity)
	for _, e := range s.seed {
		if s.events.Index(e.ID) < 0 {
			s.events = append(s.events, e)
		}
	}
	s.seed = nil
	metrics.UpdateTrackedEvents(len(s.events))
	return s
}

// Insert appends e.
func (s *MemoryStore) Insert(_ context.Context, e model.UsageEvent) error {
	defer observe(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events.Index(e.ID) >= 0 {
		return fmt.Errorf("insert %q: %w", e.ID, ErrDuplicateID)
	}
	s.events = append(s.events, e)
	s.bump()
	return nil
}

// Get returns the event with id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.UsageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events.Find(id)
	if !ok {
		return model.UsageEvent{}, fmt.Errorf("get %q: %w", id, ErrEventNotFound)
	}
	return e, nil
}

// Remove deletes the event with id. Other events keep their stored fields.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	defer observe(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.events.Index(id)
	if i < 0 {
		return fmt.Errorf("remove %q: %w", id, ErrEventNotFound)
	}
	next := make(model.Snapshot, 0, len(s.events)-1)
	next = append(next, s.events[:i]...)
	next = append(next, s.events[i+1:]...)
	s.events = next
	s.bump()
	return nil
}

// Snapshot returns a copy of all events and the current version.
func (s *MemoryStore) Snapshot(_ context.Context) (model.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Clone(), s.version
}

// Replace swaps in snap when version is current and the id set is unchanged.
func (s *MemoryStore) Replace(_ context.Context, snap model.Snapshot, version uint64) error {
	defer observe(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return fmt.Errorf("replace at version %d (current %d): %w", version, s.version, ErrStaleSnapshot)
	}
	if len(snap) != len(s.events) {
		return fmt.Errorf("replace: %w", ErrShapeChanged)
	}
	for _, e := range s.events {
		if snap.Index(e.ID) < 0 {
			return fmt.Errorf("replace: %q missing: %w", e.ID, ErrShapeChanged)
		}
	}
	s.events = snap.Clone()
	s.bump()
	return nil
}

// Version returns the mutation counter.
func (s *MemoryStore) Version(_ context.Context) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Count returns the number of stored events.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// bump advances the version. Must be called with s.mu held.
func (s *MemoryStore) bump() {
	s.version++
	metrics.UpdateTrackedEvents(len(s.events))
}

func observe(start time.Time) {
	metrics.RecordStoreLatency(float64(time.Since(start).Microseconds()) / 1000)
}
