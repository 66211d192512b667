// Package propagation enforces minimum spacing between same-ability events
// when an event time is edited.
package propagation

import (
	"errors"
	"fmt"

	"github.com/okian/cdtimeline/internal/domain/cooldown"
	"github.com/okian/cdtimeline/internal/domain/model"
)

// ErrEventNotFound is returned when an id does not match any event.
var ErrEventNotFound = errors.New("event not found")

// Report describes what an update did.
type Report struct {
	ID        string
	Requested int
	Applied   int
	// Clamped is set when the edited event was moved later than requested.
	Clamped bool
	// Shifted lists later events pushed forward by the cascade, in order.
	Shifted []string
}

// UpdateTime moves event id to requested, clamped to its earliest legal time,
// then pushes every later same-ability event that became too early. The input
// snapshot is not modified.
//
// The cascade visits the ability's events in the order they had before the
// edit, but each minimum is measured against the working snapshot with every
// earlier move already applied, so a moved event's cooldown reflects its new
// neighbours.
func UpdateTime(snap model.Snapshot, id string, requested int) (model.Snapshot, Report, error) {
	pos := snap.Index(id)
	if pos < 0 {
		return nil, Report{}, fmt.Errorf("update %q: %w", id, ErrEventNotFound)
	}

	events := snap.ByAbility(snap[pos].AbilityName)
	i := model.IndexOf(events, id)

	minTime := 0
	if i > 0 {
		minTime = events[i-1].Time + cooldown.Chain(events[:i])[i-1]
	}
	applied := max(requested, minTime)
	report := Report{ID: id, Requested: requested, Applied: applied, Clamped: applied > requested}

	work := snap.Clone()
	work[pos].Time = applied
	events[i].Time = applied

	for j := i + 1; j < len(events); j++ {
		prev := events[j-1]
		minTime = prev.Time + cooldown.Adjusted(prev, work)
		if events[j].Time >= minTime {
			continue
		}
		events[j].Time = minTime
		work[work.Index(events[j].ID)].Time = minTime
		report.Shifted = append(report.Shifted, events[j].ID)
	}
	return work, report, nil
}

// SuggestTime returns the earliest legal time for a new use of abilityName:
// zero for the first use, otherwise when the latest use is ready again.
func SuggestTime(abilityName string, snap model.Snapshot) int {
	events := snap.ByAbility(abilityName)
	if len(events) == 0 {
		return 0
	}
	adjusted := cooldown.Chain(events)
	last := len(events) - 1
	return events[last].Time + adjusted[last]
}

// Normalized reports whether every same-ability pair in snap satisfies
// next.Time >= prev.Time + adjusted(prev).
func Normalized(snap model.Snapshot) bool {
	seen := make(map[string]bool)
	for _, e := range snap {
		if seen[e.AbilityName] {
			continue
		}
		seen[e.AbilityName] = true
		events := snap.ByAbility(e.AbilityName)
		adjusted := cooldown.Chain(events)
		for j := 1; j < len(events); j++ {
			if events[j].Time < events[j-1].Time+adjusted[j-1] {
				return false
			}
		}
	}
	return true
}
