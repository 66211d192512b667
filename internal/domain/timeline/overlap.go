// Package timeline holds read-side helpers over computed timeline entries.
package timeline

import "github.com/okian/cdtimeline/internal/domain/model"

// Overlaps returns the ids of entries whose cooldown interval collides with
// another entry of the same charge slot. An entry occupies [Time, ReadyAt).
// Entries of single-charge abilities all share slot 0. Charges recover
// independently, so entries on different slots never collide.
func Overlaps(entries []model.TimelineEntry) map[string]bool {
	out := make(map[string]bool)
	for i, a := range entries {
		start, end := a.Event.Time, a.ReadyAt()
		for j, b := range entries {
			if i == j || a.ChargeSlot != b.ChargeSlot {
				continue
			}
			startsInside := b.Event.Time >= start && b.Event.Time < end
			covers := b.Event.Time <= start && b.ReadyAt() > start
			if startsInside || covers {
				out[a.Event.ID] = true
				break
			}
		}
	}
	return out
}
