// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/internal/domain/propagation"
)

// maxBodyBytes caps request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 16

// AbilityDependencies covers the ability registry.
type AbilityDependencies interface {
	Abilities(ctx context.Context) []model.Ability
	DefineAbility(ctx context.Context, a model.Ability) (model.Ability, error)
}

// EventDependencies covers event creation and edits.
type EventDependencies interface {
	AddEventOnce(ctx context.Context, key, abilityName string) (model.UsageEvent, bool, error)
	Reschedule(ctx context.Context, id string, requestedSeconds int) (propagation.Report, []model.UsageEvent, error)
	RemoveEvent(ctx context.Context, id string) error
	Events(ctx context.Context) []model.UsageEvent
}

// TimelineDependencies covers derived timelines and the session bounds.
type TimelineDependencies interface {
	Timeline(ctx context.Context, abilityName string) ([]model.TimelineEntry, error)
	Overlaps(ctx context.Context, abilityName string) (map[string]bool, error)
	Snapshot(ctx context.Context) []model.AbilityTimeline
	TimelineLength() int
	SetTimelineLength(ctx context.Context, seconds int) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AbilityDependencies
	EventDependencies
	TimelineDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	abilitiesHandler *AbilitiesHandler
	eventsHandler    *EventsHandler
	timelineHandler  *TimelineHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		abilitiesHandler: NewAbilitiesHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		timelineHandler:  NewTimelineHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/abilities", MetricsMiddleware(s.abilitiesHandler.HandleList, "abilities"))
	mux.HandleFunc("/abilities/", MetricsMiddleware(s.abilitiesHandler.HandlePut, "ability"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleCollection, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleEvent, "event"))
	mux.HandleFunc("/timeline", MetricsMiddleware(s.timelineHandler.HandleSession, "timeline"))
	mux.HandleFunc("/timeline/", MetricsMiddleware(s.timelineHandler.HandleAbility, "timeline_ability"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if rw, ok := w.(*responseWriter); ok {
		rw.code = code
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}

// decodeJSON reads exactly one JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// pathParam returns the single segment after prefix, or "" if there is none
// or more than one.
func pathParam(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
