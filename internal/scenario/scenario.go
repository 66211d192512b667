// Package scenario replays a scripted session against a running server and
// checks that every ability's uses stay spaced by their adjusted cooldowns.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Step actions.
const (
	ActionRegister = "register"
	ActionAdd      = "add"
	ActionMove     = "move"
	ActionRemove   = "remove"
)

// Error constants.
var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrLoadScenario    = errors.New("load scenario failed")
)

// Scenario is a named list of steps plus optional expected times.
type Scenario struct {
	Name  string `koanf:"name"`
	Steps []Step `koanf:"steps"`
	// Expect maps an ability name to the event times it should end up with,
	// sorted ascending.
	Expect map[string][]int `koanf:"expect"`
}

// Step is one action. Ref labels the event an add creates so later move and
// remove steps can address it.
type Step struct {
	Action            string `koanf:"action"`
	Ability           string `koanf:"ability"`
	Ref               string `koanf:"ref"`
	Time              *int   `koanf:"time"`
	BaseCooldown      *int   `koanf:"base_cooldown"`
	MaxCharges        int    `koanf:"max_charges"`
	ReductionEligible *bool  `koanf:"reduction_eligible"`
}

// Load reads a YAML scenario from path.
func Load(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadScenario, path, err)
	}
	var s Scenario
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadScenario, path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step is complete and that refs resolve to an
// earlier add.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	refs := make(map[string]bool)
	for i, st := range s.Steps {
		switch strings.ToLower(st.Action) {
		case ActionRegister:
			if st.Ability == "" || st.BaseCooldown == nil {
				return fmt.Errorf("%w: step %d: register needs ability and base_cooldown", ErrInvalidScenario, i)
			}
		case ActionAdd:
			if st.Ability == "" {
				return fmt.Errorf("%w: step %d: add needs ability", ErrInvalidScenario, i)
			}
			if st.Ref != "" {
				if refs[st.Ref] {
					return fmt.Errorf("%w: step %d: duplicate ref %q", ErrInvalidScenario, i, st.Ref)
				}
				refs[st.Ref] = true
			}
		case ActionMove:
			if st.Time == nil {
				return fmt.Errorf("%w: step %d: move needs time", ErrInvalidScenario, i)
			}
			if !refs[st.Ref] {
				return fmt.Errorf("%w: step %d: unknown ref %q", ErrInvalidScenario, i, st.Ref)
			}
		case ActionRemove:
			if !refs[st.Ref] {
				return fmt.Errorf("%w: step %d: unknown ref %q", ErrInvalidScenario, i, st.Ref)
			}
		default:
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScenario, i, st.Action)
		}
	}
	return nil
}
