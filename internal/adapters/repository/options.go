package repository

import "github.com/okian/cdtimeline/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCapacity pre-sizes the backing slice.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithSeed loads events at construction, in order. Later duplicates of an
// id are dropped.
func WithSeed(events ...model.UsageEvent) Option {
	return func(s *MemoryStore) {
		s.seed = append(s.seed, events...)
	}
}
