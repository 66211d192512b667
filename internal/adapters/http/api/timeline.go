package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// TimelineHandler serves derived timelines.
type TimelineHandler struct {
	deps TimelineDependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps TimelineDependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

// entryView is a timeline entry with its interval end spelled out.
type entryView struct {
	model.TimelineEntry
	ReadyAt int `json:"ready_at"`
}

type abilityTimelineView struct {
	Ability model.Ability `json:"ability"`
	Entries []entryView   `json:"entries"`
}

type sessionResponse struct {
	Length    int                   `json:"length"`
	Abilities []abilityTimelineView `json:"abilities"`
}

type lengthRequest struct {
	Length *int `json:"length"`
}

type overlapsResponse struct {
	Ability     string   `json:"ability"`
	Overlapping []string `json:"overlapping"`
}

func views(entries []model.TimelineEntry) []entryView {
	out := make([]entryView, len(entries))
	for i, e := range entries {
		out[i] = entryView{TimelineEntry: e, ReadyAt: e.ReadyAt()}
	}
	return out
}

// HandleSession handles GET and PUT /timeline.
func (h *TimelineHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := h.deps.Snapshot(r.Context())
		resp := sessionResponse{Length: h.deps.TimelineLength(), Abilities: make([]abilityTimelineView, len(snap))}
		for i, tl := range snap {
			resp.Abilities[i] = abilityTimelineView{Ability: tl.Ability, Entries: views(tl.Entries)}
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPut:
		const op = "api.put_timeline"
		var req lengthRequest
		if err := decodeJSON(r, &req); err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		if req.Length == nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing length")))
			return
		}
		if err := h.deps.SetTimelineLength(r.Context(), *req.Length); err != nil {
			writeFailure(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"length": h.deps.TimelineLength()})
	default:
		http.NotFound(w, r)
	}
}

// HandleAbility handles GET /timeline/{ability} and
// GET /timeline/{ability}/overlaps.
func (h *TimelineHandler) HandleAbility(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_timeline"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/timeline/")
	name, overlaps := strings.CutSuffix(rest, "/overlaps")
	if name == "" || strings.Contains(name, "/") {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.Timeline(r.Context(), name)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if !overlaps {
		writeJSON(w, http.StatusOK, views(entries))
		return
	}

	flagged, err := h.deps.Overlaps(r.Context(), name)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	resp := overlapsResponse{Ability: name, Overlapping: []string{}}
	for _, e := range entries {
		if flagged[e.Event.ID] {
			resp.Overlapping = append(resp.Overlapping, e.Event.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
