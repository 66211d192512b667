package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// AbilitiesHandler handles the ability registry routes.
type AbilitiesHandler struct {
	deps AbilityDependencies
}

// NewAbilitiesHandler creates a new abilities handler.
func NewAbilitiesHandler(deps AbilityDependencies) *AbilitiesHandler {
	return &AbilitiesHandler{deps: deps}
}

// abilityRequest mirrors the OpenAPI schema for PUT /abilities/{name}.
type abilityRequest struct {
	BaseCooldown      *int  `json:"base_cooldown"`
	MaxCharges        int   `json:"max_charges"`
	ReductionEligible *bool `json:"reduction_eligible"`
}

// HandleList handles GET /abilities.
func (h *AbilitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Abilities(r.Context()))
}

// HandlePut handles PUT /abilities/{name}. Omitting reduction_eligible keeps
// the current setting, or true for a new ability.
func (h *AbilitiesHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_ability"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimSpace(pathParam(r.URL.Path, "/abilities/"))
	if name == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	var req abilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.BaseCooldown == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing base_cooldown")))
		return
	}

	eligible := true
	if req.ReductionEligible != nil {
		eligible = *req.ReductionEligible
	} else {
		for _, a := range h.deps.Abilities(r.Context()) {
			if a.Name == name {
				eligible = a.ReductionEligible
			}
		}
	}

	stored, err := h.deps.DefineAbility(r.Context(), model.Ability{
		Name:              name,
		BaseCooldown:      *req.BaseCooldown,
		MaxCharges:        req.MaxCharges,
		ReductionEligible: eligible,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
