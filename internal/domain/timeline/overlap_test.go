package timeline_test

import (
	"testing"

	"github.com/okian/cdtimeline/internal/domain/charges"
	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

func entry(id string, t, cd, slot int) model.TimelineEntry {
	return model.TimelineEntry{Event: model.UsageEvent{ID: id, Time: t}, AdjustedCooldown: cd, ChargeSlot: slot}
}

func TestOverlaps(t *testing.T) {
	Convey("Given back-to-back uses", t, func() {
		got := timeline.Overlaps([]model.TimelineEntry{entry("a", 0, 45, 0), entry("b", 45, 60, 0)})

		Convey("Then touching intervals do not overlap", func() {
			So(got, ShouldBeEmpty)
		})
	})

	Convey("Given a use inside another's cooldown", t, func() {
		got := timeline.Overlaps([]model.TimelineEntry{entry("a", 0, 45, 0), entry("b", 30, 60, 0)})

		Convey("Then both are flagged", func() {
			So(got["a"], ShouldBeTrue)
			So(got["b"], ShouldBeTrue)
		})
	})

	Convey("Given uses on different charge slots", t, func() {
		got := timeline.Overlaps([]model.TimelineEntry{entry("a", 0, 85, 1), entry("b", 0, 100, 2)})

		Convey("Then they do not collide", func() {
			So(got, ShouldBeEmpty)
		})
	})

	Convey("Given both charges spent at the same moment", t, func() {
		star := func(id string, t int) model.UsageEvent {
			return model.UsageEvent{ID: id, AbilityName: "Whirling Stars", Time: t, BaseCooldown: 100, ReductionEligible: true}
		}
		entries := charges.Timeline("Whirling Stars", 2, model.Snapshot{star("a", 0), star("b", 0)})

		Convey("Then each charge recovers on its own and neither is flagged", func() {
			So(entries[0].ChargeSlot, ShouldEqual, 1)
			So(entries[1].ChargeSlot, ShouldEqual, 2)
			So(timeline.Overlaps(entries), ShouldBeEmpty)
		})
	})

	Convey("Given a fallback charge use", t, func() {
		star := func(id string, t int) model.UsageEvent {
			return model.UsageEvent{ID: id, AbilityName: "Whirling Stars", Time: t, BaseCooldown: 100, ReductionEligible: true}
		}
		entries := charges.Timeline("Whirling Stars", 2, model.Snapshot{star("a", 0), star("b", 0), star("c", 50)})
		got := timeline.Overlaps(entries)

		Convey("Then it collides with the first slot's use", func() {
			So(got["c"], ShouldBeTrue)
			So(got["a"], ShouldBeTrue)
			So(got["b"], ShouldBeFalse)
		})
	})
}
