// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load(ctx) layers file and env on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// Default ability set.
const (
	ForceOfNature     = "Force of Nature"
	ConvokeTheSpirits = "Convoke the Spirits"
	WhirlingStars     = "Whirling Stars"
)

// Ability describes one registry entry as it appears in the config file.
type Ability struct {
	Name         string `koanf:"name"`
	BaseCooldown int    `koanf:"base_cooldown"`
	MaxCharges   int    `koanf:"max_charges"`

	// ReductionEligible defaults to true when omitted.
	ReductionEligible *bool `koanf:"reduction_eligible"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TimelineLength is the encounter length in seconds.
	TimelineLength int `koanf:"timeline_length"`

	// IdempotencyCacheSize bounds the Idempotency-Key cache.
	IdempotencyCacheSize int `koanf:"idempotency_cache_size"`

	// CacheTimelines enables memoized timeline reads.
	CacheTimelines bool `koanf:"cache_timelines"`

	// Abilities seeds the registry.
	Abilities []Ability `koanf:"abilities"`

	// CooldownOverrides replaces the base cooldown of a named ability.
	CooldownOverrides map[string]int `koanf:"cooldown_overrides"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		TimelineLength:       300,
		IdempotencyCacheSize: 10_000,
		CacheTimelines:       true,
		Abilities: []Ability{
			{Name: ForceOfNature, BaseCooldown: 60, MaxCharges: 1},
			{Name: ConvokeTheSpirits, BaseCooldown: 120, MaxCharges: 1},
			{Name: WhirlingStars, BaseCooldown: 100, MaxCharges: 2},
		},
	}
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.TimelineLength <= 0 {
		return fmt.Errorf("%w: timeline_length must be positive, got %d", ErrInvalidConfig, c.TimelineLength)
	}
	if c.IdempotencyCacheSize <= 0 {
		return fmt.Errorf("%w: idempotency_cache_size must be positive, got %d", ErrInvalidConfig, c.IdempotencyCacheSize)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	seen := make(map[string]struct{}, len(c.Abilities))
	for i, a := range c.Abilities {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return fmt.Errorf("%w: abilities[%d] has no name", ErrInvalidConfig, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: ability %q listed twice", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
		if a.BaseCooldown < 0 {
			return fmt.Errorf("%w: ability %q has negative base_cooldown", ErrInvalidConfig, name)
		}
		if a.MaxCharges < 0 || a.MaxCharges > 2 {
			return fmt.Errorf("%w: ability %q max_charges must be 1 or 2", ErrInvalidConfig, name)
		}
	}
	for name, cd := range c.CooldownOverrides {
		if _, ok := seen[strings.TrimSpace(name)]; !ok {
			return fmt.Errorf("%w: cooldown override for unknown ability %q", ErrInvalidConfig, name)
		}
		if cd < 0 {
			return fmt.Errorf("%w: cooldown override for %q is negative", ErrInvalidConfig, name)
		}
	}
	return nil
}

// RegistryAbilities returns the configured abilities with overrides applied.
// Missing max_charges means one charge.
func (c *Config) RegistryAbilities() []model.Ability {
	out := make([]model.Ability, 0, len(c.Abilities))
	overrides := make(map[string]int, len(c.CooldownOverrides))
	for name, cd := range c.CooldownOverrides {
		overrides[strings.TrimSpace(name)] = cd
	}
	for _, a := range c.Abilities {
		name := strings.TrimSpace(a.Name)
		ab := model.Ability{
			Name:              name,
			BaseCooldown:      a.BaseCooldown,
			MaxCharges:        a.MaxCharges,
			ReductionEligible: a.ReductionEligible == nil || *a.ReductionEligible,
		}
		if ab.MaxCharges == 0 {
			ab.MaxCharges = 1
		}
		if cd, ok := overrides[name]; ok {
			ab.BaseCooldown = cd
		}
		out = append(out, ab)
	}
	return out
}
