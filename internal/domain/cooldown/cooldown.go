// Package cooldown derives adjusted cooldowns from the chain of preceding
// same-ability events.
package cooldown

import "github.com/okian/cdtimeline/internal/domain/model"

// MaxReduction is the largest idle-time bonus, in seconds. A first use always
// receives it.
const MaxReduction = 15

// Reduction returns the bonus earned by sitting idle for idle seconds.
func Reduction(idle int) int {
	if idle < 0 {
		return 0
	}
	return min(MaxReduction, idle)
}

// apply shrinks base by reduction without going below zero.
func apply(e model.UsageEvent, reduction int) int {
	if !e.ReductionEligible {
		reduction = 0
	}
	return max(0, e.BaseCooldown-reduction)
}

// Chain returns the adjusted cooldown of every event in a time-sorted,
// same-ability slice. Element i depends only on elements 0..i.
func Chain(events []model.UsageEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		if i == 0 {
			out[i] = First(e)
			continue
		}
		out[i] = Next(events[i-1], out[i-1], e)
	}
	return out
}

// First returns the adjusted cooldown of a use with no predecessor.
func First(e model.UsageEvent) int {
	return apply(e, MaxReduction)
}

// Next returns the adjusted cooldown of e given its immediate predecessor
// and the predecessor's adjusted cooldown.
func Next(prev model.UsageEvent, prevAdjusted int, e model.UsageEvent) int {
	earliestReady := prev.Time + prevAdjusted
	return apply(e, Reduction(e.Time-earliestReady))
}

// Adjusted returns the effective cooldown of event within snap. Only events of
// the same ability up to and including event are considered. An event missing
// from snap is treated as a first use.
func Adjusted(event model.UsageEvent, snap model.Snapshot) int {
	events := snap.ByAbility(event.AbilityName)
	i := model.IndexOf(events, event.ID)
	if i < 0 {
		return First(event)
	}
	return Chain(events[:i+1])[i]
}
