package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// IdempotencyKeyHeader lets clients retry POST /events safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	Ability string `json:"ability"`
}

// moveRequest mirrors the OpenAPI schema for PATCH /events/{id}.
type moveRequest struct {
	Time *int `json:"time"`
}

type createdResponse struct {
	Event    model.UsageEvent `json:"event"`
	Replayed bool             `json:"replayed"`
}

type moveResponse struct {
	ID        string             `json:"id"`
	Requested int                `json:"requested"`
	Applied   int                `json:"applied"`
	Clamped   bool               `json:"clamped"`
	Shifted   []string           `json:"shifted"`
	Events    []model.UsageEvent `json:"events"`
}

// HandleCollection handles GET and POST /events.
func (h *EventsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Events(r.Context()))
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Ability) == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing ability")))
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	e, replayed, err := h.deps.AddEventOnce(r.Context(), key, req.Ability)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, createdResponse{Event: e, Replayed: replayed})
}

// HandleEvent handles PATCH and DELETE /events/{id}.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r.URL.Path, "/events/")
	switch r.Method {
	case http.MethodPatch:
		h.handleMove(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventsHandler) handleMove(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.move_event"
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Time == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing time")))
		return
	}

	report, events, err := h.deps.Reschedule(r.Context(), id, *req.Time)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	shifted := report.Shifted
	if shifted == nil {
		shifted = []string{}
	}
	writeJSON(w, http.StatusOK, moveResponse{
		ID:        report.ID,
		Requested: report.Requested,
		Applied:   report.Applied,
		Clamped:   report.Clamped,
		Shifted:   shifted,
		Events:    events,
	})
}

func (h *EventsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.delete_event"
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.RemoveEvent(r.Context(), id); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
