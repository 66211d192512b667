// Package model contains domain models passed between layers.
package model

import "sort"

// Ability is a named recurring action with a base cooldown and charge count.
type Ability struct {
	Name              string `json:"name"`               // unique key, e.g. "Whirling Stars"
	BaseCooldown      int    `json:"base_cooldown"`      // seconds
	MaxCharges        int    `json:"max_charges"`        // 1 or 2
	ReductionEligible bool   `json:"reduction_eligible"` // whether the idle-time reduction applies
}

// MultiCharge reports whether uses of the ability are assigned to charge slots.
func (a Ability) MultiCharge() bool {
	return a.MaxCharges > 1
}

// UsageEvent is one use of an ability on the timeline.
// BaseCooldown and ReductionEligible are copied from the Ability at creation
// so later configuration changes do not alter existing events.
type UsageEvent struct {
	ID                string `json:"id"`
	AbilityName       string `json:"ability"`
	Time              int    `json:"time"`
	BaseCooldown      int    `json:"base_cooldown"`
	ReductionEligible bool   `json:"reduction_eligible"`
}

// TimelineEntry is a usage event with its derived values attached.
type TimelineEntry struct {
	Event            UsageEvent `json:"event"`
	AdjustedCooldown int        `json:"adjusted_cooldown"`
	// ChargeSlot is 1 or 2 for multi-charge abilities and 0 otherwise.
	ChargeSlot int `json:"charge_slot,omitempty"`
	// Fallback is set when no charge slot was free and slot 1 was used anyway.
	Fallback bool `json:"fallback,omitempty"`
}

// ReadyAt returns the end of the interval [Time, ReadyAt) the use occupies.
func (e TimelineEntry) ReadyAt() int {
	return e.Event.Time + e.AdjustedCooldown
}

// AbilityTimeline is one ability with its derived entries.
type AbilityTimeline struct {
	Ability Ability         `json:"ability"`
	Entries []TimelineEntry `json:"entries"`
}

// Snapshot is the event collection in insertion order.
type Snapshot []UsageEvent

// Clone returns a copy that shares no backing array with s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Index returns the position of the event with id, or -1.
func (s Snapshot) Index(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the event with id.
func (s Snapshot) Find(id string) (UsageEvent, bool) {
	if i := s.Index(id); i >= 0 {
		return s[i], true
	}
	return UsageEvent{}, false
}

// ByAbility returns the events of one ability sorted by time.
// Equal times keep insertion order.
func (s Snapshot) ByAbility(name string) []UsageEvent {
	var out []UsageEvent
	for _, e := range s {
		if e.AbilityName == name {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// IndexOf returns the position of id within a per-ability slice, or -1.
func IndexOf(events []UsageEvent, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}
