package service

import (
	repository "github.com/okian/cdtimeline/internal/adapters/repository"
	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAbilities seeds the registry, in order.
func WithAbilities(abilities ...model.Ability) Option {
	return func(s *Service) {
		s.abilities = append(s.abilities, abilities...)
	}
}

// WithTimelineLength sets the encounter length in seconds.
func WithTimelineLength(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.timelineLength = seconds
		}
	}
}

// WithIdempotencyCacheSize bounds the number of remembered idempotency keys.
func WithIdempotencyCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithTimelineCache enables or disables memoized timeline reads.
func WithTimelineCache(enabled bool) Option {
	return func(s *Service) {
		s.cacheTimelines = enabled
	}
}

// WithStore replaces the default in-memory event store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}
