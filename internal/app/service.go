// Package service hosts one timeline session: the ability registry, the
// event store and the derived timelines, behind the operations the HTTP API
// depends on.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/cdtimeline/internal/adapters/repository"
	"github.com/okian/cdtimeline/internal/domain/charges"
	"github.com/okian/cdtimeline/internal/domain/cooldown"
	"github.com/okian/cdtimeline/internal/domain/dedupe"
	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/internal/domain/propagation"
	"github.com/okian/cdtimeline/internal/domain/registry"
	"github.com/okian/cdtimeline/internal/domain/timeline"
	"github.com/okian/cdtimeline/pkg/logger"
	"github.com/okian/cdtimeline/pkg/metrics"
)

const (
	defaultTimelineLength  = 300
	defaultIdempotencySize = 10_000
)

// cachedTimeline is valid while the store version and charge count match.
type cachedTimeline struct {
	version uint64
	charges int
	entries []model.TimelineEntry
}

// Service implements the timeline operations. All mutations are serialized.
type Service struct {
	mu sync.RWMutex

	registry *registry.Registry
	store    repository.Store
	deduper  dedupe.Deduper

	// Configuration
	abilities       []model.Ability
	timelineLength  int
	idempotencySize int
	cacheTimelines  bool

	cacheMu sync.Mutex
	cache   map[string]cachedTimeline

	logger logger.Logger
}

// New constructs a Service seeded with the configured abilities.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{
		timelineLength:  defaultTimelineLength,
		idempotencySize: defaultIdempotencySize,
		cacheTimelines:  true,
		cache:           make(map[string]cachedTimeline),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	reg, err := registry.New(s.abilities...)
	if err != nil {
		return nil, fmt.Errorf("seed registry: %w", err)
	}
	s.registry = reg
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))

	metrics.UpdateRegisteredAbilities(s.registry.Len())
	metrics.UpdateTimelineLength(s.timelineLength)
	s.logger.Info(ctx, "timeline session ready",
		logger.Int("abilities", s.registry.Len()),
		logger.Int("timelineLength", s.timelineLength),
		logger.Bool("cacheTimelines", s.cacheTimelines),
	)
	return s, nil
}

// RegisterAbility inserts or replaces an ability. A replaced ability keeps its
// reduction eligibility; a new one is eligible. Existing events keep the
// cooldown they were created with.
func (s *Service) RegisterAbility(ctx context.Context, name string, baseCooldown, maxCharges int) error {
	eligible := true
	if prev, err := s.registry.ByName(name); err == nil {
		eligible = prev.ReductionEligible
	}
	_, err := s.DefineAbility(ctx, model.Ability{
		Name:              name,
		BaseCooldown:      baseCooldown,
		MaxCharges:        maxCharges,
		ReductionEligible: eligible,
	})
	return err
}

// DefineAbility registers a as given and returns the stored, clamped value.
func (s *Service) DefineAbility(ctx context.Context, a model.Ability) (model.Ability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.registry.Register(ctx, a)
	if err != nil {
		return model.Ability{}, fmt.Errorf("register ability: %w", err)
	}
	s.invalidate()
	metrics.UpdateRegisteredAbilities(s.registry.Len())
	s.logger.Info(ctx, "ability registered",
		logger.String("ability", stored.Name),
		logger.Int("baseCooldown", stored.BaseCooldown),
		logger.Int("maxCharges", stored.MaxCharges),
		logger.Bool("reductionEligible", stored.ReductionEligible),
	)
	return stored, nil
}

// Abilities lists registered abilities in registration order.
func (s *Service) Abilities(_ context.Context) []model.Ability {
	return s.registry.All()
}

// AddEvent appends a use of abilityName at the earliest time the ability is
// ready again, or at zero for its first use.
func (s *Service) AddEvent(ctx context.Context, abilityName string) (model.UsageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(ctx, abilityName)
}

// AddEventOnce is AddEvent keyed by a client idempotency key. A repeated key
// returns the event created the first time and replayed=true, as long as
// that event still exists. An empty key behaves like AddEvent.
func (s *Service) AddEventOnce(ctx context.Context, key, abilityName string) (model.UsageEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		e, err := s.addLocked(ctx, abilityName)
		return e, false, err
	}
	if id, ok := s.deduper.Recall(ctx, key); ok {
		e, err := s.store.Get(ctx, id)
		if err == nil {
			metrics.RecordIdempotentReplay()
			s.logger.Debug(ctx, "idempotent add replayed", logger.String("key", key), logger.String("id", id))
			return e, true, nil
		}
		// The event was removed since; the key is free again.
		s.deduper.Forget(ctx, key)
	}

	e, err := s.addLocked(ctx, abilityName)
	if err != nil {
		return model.UsageEvent{}, false, err
	}
	s.deduper.Remember(ctx, key, e.ID)
	return e, false, nil
}

func (s *Service) addLocked(ctx context.Context, abilityName string) (model.UsageEvent, error) {
	ability, err := s.registry.ByName(abilityName)
	if err != nil {
		s.fail(ctx, "add", err)
		return model.UsageEvent{}, fmt.Errorf("add event: %w", err)
	}

	snap, _ := s.store.Snapshot(ctx)
	// Not bounded by the timeline length: spacing wins, as in the cascade.
	e := model.UsageEvent{
		ID:                uuid.NewString(),
		AbilityName:       ability.Name,
		Time:              propagation.SuggestTime(ability.Name, snap),
		BaseCooldown:      ability.BaseCooldown,
		ReductionEligible: ability.ReductionEligible,
	}
	if err := s.store.Insert(ctx, e); err != nil {
		s.fail(ctx, "add", err)
		return model.UsageEvent{}, fmt.Errorf("add event: %w", err)
	}
	s.invalidate()

	metrics.RecordEventAdded(ability.Name)
	s.logger.Info(ctx, "event added",
		logger.String("id", e.ID),
		logger.String("ability", e.AbilityName),
		logger.Int("time", e.Time),
	)
	return e, nil
}

// UpdateEventTime moves event id to requestedSeconds and returns every event
// after the cascade.
func (s *Service) UpdateEventTime(ctx context.Context, id string, requestedSeconds int) ([]model.UsageEvent, error) {
	_, events, err := s.Reschedule(ctx, id, requestedSeconds)
	return events, err
}

// Reschedule is UpdateEventTime that also returns what the edit did.
// The request is clamped into [0, TimelineLength] first; cascade pushes may
// still land past the end.
func (s *Service) Reschedule(ctx context.Context, id string, requestedSeconds int) (propagation.Report, []model.UsageEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bounded := min(max(requestedSeconds, 0), s.timelineLength)
	snap, version := s.store.Snapshot(ctx)
	next, report, err := propagation.UpdateTime(snap, id, bounded)
	if err != nil {
		s.fail(ctx, "update", err)
		return propagation.Report{}, nil, fmt.Errorf("update event time: %w", err)
	}
	if err := s.store.Replace(ctx, next, version); err != nil {
		s.fail(ctx, "update", err)
		return propagation.Report{}, nil, fmt.Errorf("update event time: %w", err)
	}
	s.invalidate()
	report.Requested = requestedSeconds

	e, _ := next.Find(id)
	metrics.RecordTimeUpdate(e.AbilityName, report.Clamped, len(report.Shifted))
	s.logger.Info(ctx, "event time updated",
		logger.String("id", id),
		logger.String("ability", e.AbilityName),
		logger.Int("requested", requestedSeconds),
		logger.Int("applied", report.Applied),
		logger.Bool("clamped", report.Clamped),
		logger.Int("shifted", len(report.Shifted)),
	)
	return report, []model.UsageEvent(next), nil
}

// RemoveEvent deletes event id. Other events are not moved.
func (s *Service) RemoveEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.store.Get(ctx, id)
	if err == nil {
		err = s.store.Remove(ctx, id)
	}
	if err != nil {
		s.fail(ctx, "remove", err)
		return fmt.Errorf("remove event: %w", err)
	}
	s.invalidate()

	metrics.RecordEventRemoved(e.AbilityName)
	s.logger.Info(ctx, "event removed", logger.String("id", id), logger.String("ability", e.AbilityName))
	return nil
}

// Events returns every stored event in insertion order.
func (s *Service) Events(ctx context.Context) []model.UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, _ := s.store.Snapshot(ctx)
	return snap
}

// Timeline returns the derived entries of abilityName in time order.
func (s *Service) Timeline(ctx context.Context, abilityName string) ([]model.TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ability, err := s.registry.ByName(abilityName)
	if err != nil {
		s.fail(ctx, "timeline", err)
		return nil, fmt.Errorf("timeline: %w", err)
	}
	snap, version := s.store.Snapshot(ctx)
	return s.derive(ability, snap, version), nil
}

// Overlaps reports, per event id of abilityName, whether its interval
// collides with another use on the same charge.
func (s *Service) Overlaps(ctx context.Context, abilityName string) (map[string]bool, error) {
	entries, err := s.Timeline(ctx, abilityName)
	if err != nil {
		return nil, err
	}
	return timeline.Overlaps(entries), nil
}

// Snapshot returns every registered ability with its timeline, in
// registration order.
func (s *Service) Snapshot(ctx context.Context) []model.AbilityTimeline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, version := s.store.Snapshot(ctx)
	abilities := s.registry.All()
	out := make([]model.AbilityTimeline, 0, len(abilities))
	for _, a := range abilities {
		out = append(out, model.AbilityTimeline{Ability: a, Entries: s.derive(a, snap, version)})
	}
	return out
}

// TimelineLength returns the encounter length in seconds.
func (s *Service) TimelineLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timelineLength
}

// SetTimelineLength changes the encounter length. Existing events are not
// moved.
func (s *Service) SetTimelineLength(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("set timeline length %d: %w", seconds, ErrInvalidTimelineLength)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineLength = seconds
	metrics.UpdateTimelineLength(seconds)
	s.logger.Info(ctx, "timeline length changed", logger.Int("timelineLength", seconds))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	s.cacheMu.Lock()
	cached := len(s.cache)
	s.cacheMu.Unlock()

	events := s.store.Count(ctx)
	metrics.UpdateTrackedEvents(events)
	return map[string]interface{}{
		"events":          events,
		"abilities":       s.registry.Len(),
		"timelineLength":  s.timelineLength,
		"storeVersion":    s.store.Version(ctx),
		"idempotencyKeys": s.deduper.Size(),
		"cachedTimelines": cached,
		"cacheEnabled":    s.cacheTimelines,
	}
}

// derive computes (or reuses) the entries for one ability at version.
func (s *Service) derive(ability model.Ability, snap model.Snapshot, version uint64) []model.TimelineEntry {
	if s.cacheTimelines {
		s.cacheMu.Lock()
		c, ok := s.cache[ability.Name]
		s.cacheMu.Unlock()
		if ok && c.version == version && c.charges == ability.MaxCharges {
			metrics.RecordTimelineCacheHit()
			return cloneEntries(c.entries)
		}
		metrics.RecordTimelineCacheMiss()
	}

	start := time.Now()
	var entries []model.TimelineEntry
	if ability.MultiCharge() {
		entries = charges.Timeline(ability.Name, ability.MaxCharges, snap)
	} else {
		events := snap.ByAbility(ability.Name)
		adjusted := cooldown.Chain(events)
		entries = make([]model.TimelineEntry, len(events))
		for i, e := range events {
			entries[i] = model.TimelineEntry{Event: e, AdjustedCooldown: adjusted[i]}
		}
	}
	metrics.RecordTimelineCompute(float64(time.Since(start).Microseconds()) / 1000)

	fallbacks := 0
	for _, e := range entries {
		if e.Fallback {
			fallbacks++
		}
	}
	metrics.RecordChargeFallbacks(ability.Name, fallbacks)

	if s.cacheTimelines {
		s.cacheMu.Lock()
		s.cache[ability.Name] = cachedTimeline{version: version, charges: ability.MaxCharges, entries: entries}
		s.cacheMu.Unlock()
		return cloneEntries(entries)
	}
	return entries
}

// invalidate drops every cached timeline.
func (s *Service) invalidate() {
	s.cacheMu.Lock()
	clear(s.cache)
	s.cacheMu.Unlock()
}

// fail logs and counts a failed operation by error kind.
func (s *Service) fail(ctx context.Context, op string, err error) {
	kind := "internal"
	switch {
	case errors.Is(err, ErrUnknownAbility):
		kind = "unknown_ability"
	case errors.Is(err, ErrEventNotFound):
		kind = "not_found"
	case errors.Is(err, repository.ErrStaleSnapshot):
		kind = "stale_snapshot"
	}
	metrics.RecordErrorByComponent("service", kind)
	s.logger.Warn(ctx, "operation failed", logger.String("op", op), logger.String("kind", kind), logger.Error(err))
}

func cloneEntries(in []model.TimelineEntry) []model.TimelineEntry {
	if in == nil {
		return nil
	}
	out := make([]model.TimelineEntry, len(in))
	copy(out, in)
	return out
}
