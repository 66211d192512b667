// Package charges assigns uses of a multi-charge ability to charge slots.
package charges

import (
	"github.com/okian/cdtimeline/internal/domain/cooldown"
	"github.com/okian/cdtimeline/internal/domain/model"
)

// MaxSlots is the largest number of charges an ability can bank.
const MaxSlots = 2

// Assign walks time-sorted events of one ability and picks a slot for each.
// The first slot whose recovery time is not after the use wins. When every
// slot is still recovering the use goes to the first slot and the entry is
// marked Fallback; the overlap is not rejected.
func Assign(events []model.UsageEvent, slots int) []model.TimelineEntry {
	slots = min(max(slots, 1), MaxSlots)
	adjusted := cooldown.Chain(events)
	readyAt := make([]int, slots)

	out := make([]model.TimelineEntry, 0, len(events))
	for i, e := range events {
		slot, free := 0, false
		for s := range readyAt {
			if readyAt[s] <= e.Time {
				slot, free = s, true
				break
			}
		}
		readyAt[slot] = e.Time + adjusted[i]
		out = append(out, model.TimelineEntry{
			Event:            e,
			AdjustedCooldown: adjusted[i],
			ChargeSlot:       slot + 1,
			Fallback:         !free,
		})
	}
	return out
}

// Timeline returns the charge-annotated timeline of one ability in snap.
func Timeline(abilityName string, slots int, snap model.Snapshot) []model.TimelineEntry {
	return Assign(snap.ByAbility(abilityName), slots)
}
