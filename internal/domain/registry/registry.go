// Package registry holds the definitions of the abilities a timeline can use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// Sentinel kinds for registry errors.
var (
	ErrUnknownAbility = errors.New("unknown ability")
	ErrInvalidAbility = errors.New("invalid ability")
)

// Charge count bounds.
const (
	minCharges = 1
	maxCharges = 2
)

// Registry is a lookup table of abilities keyed by name.
// Listing order is registration order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]model.Ability
	order  []string
}

// New creates a registry seeded with abilities.
func New(abilities ...model.Ability) (*Registry, error) {
	r := &Registry{byName: make(map[string]model.Ability)}
	for _, a := range abilities {
		if _, err := r.Register(context.Background(), a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register inserts or replaces an ability. Charges are clamped into [1, 2]
// and a negative cooldown becomes zero. Events created earlier keep the
// cooldown they were created with.
func (r *Registry) Register(_ context.Context, a model.Ability) (model.Ability, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return model.Ability{}, fmt.Errorf("%w: empty name", ErrInvalidAbility)
	}
	a.BaseCooldown = max(a.BaseCooldown, 0)
	a.MaxCharges = min(max(a.MaxCharges, minCharges), maxCharges)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[a.Name]; !exists {
		r.order = append(r.order, a.Name)
	}
	r.byName[a.Name] = a
	return a, nil
}

// ByName returns the ability registered under name.
func (r *Registry) ByName(name string) (model.Ability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	if !ok {
		return model.Ability{}, fmt.Errorf("%w: %q", ErrUnknownAbility, name)
	}
	return a, nil
}

// All returns every ability in registration order.
func (r *Registry) All() []model.Ability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Ability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered abilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
