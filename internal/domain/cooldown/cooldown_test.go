package cooldown_test

import (
	"testing"

	"github.com/okian/cdtimeline/internal/domain/cooldown"
	"github.com/okian/cdtimeline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func use(id string, t, base int) model.UsageEvent {
	return model.UsageEvent{ID: id, AbilityName: "Force of Nature", Time: t, BaseCooldown: base, ReductionEligible: true}
}

func TestReduction(t *testing.T) {
	Convey("Given idle durations", t, func() {
		So(cooldown.Reduction(-5), ShouldEqual, 0)
		So(cooldown.Reduction(0), ShouldEqual, 0)
		So(cooldown.Reduction(7), ShouldEqual, 7)
		So(cooldown.Reduction(15), ShouldEqual, 15)
		So(cooldown.Reduction(1000), ShouldEqual, cooldown.MaxReduction)
	})
}

func TestAdjusted(t *testing.T) {
	Convey("Given a single first use", t, func() {
		first := use("a", 0, 60)
		snap := model.Snapshot{first}

		Convey("Then it should receive the maximum reduction", func() {
			So(cooldown.Adjusted(first, snap), ShouldEqual, 45)
		})
	})

	Convey("Given the spacing scenario with base cooldown 60", t, func() {
		snap := model.Snapshot{use("a", 0, 60), use("b", 45, 60), use("c", 200, 60)}

		Convey("Then the first use is reduced by 15", func() {
			So(cooldown.Adjusted(snap[0], snap), ShouldEqual, 45)
		})

		Convey("And a use exactly at the ready time gets no reduction", func() {
			So(cooldown.Adjusted(snap[1], snap), ShouldEqual, 60)
		})

		Convey("And a long idle gap is capped at 15", func() {
			So(cooldown.Adjusted(snap[2], snap), ShouldEqual, 45)
		})
	})

	Convey("Given a partial idle gap", t, func() {
		snap := model.Snapshot{use("a", 0, 60), use("b", 52, 60)}

		Convey("Then the reduction equals the idle seconds", func() {
			// ready at 45, used at 52: 7 idle seconds
			So(cooldown.Adjusted(snap[1], snap), ShouldEqual, 53)
		})
	})

	Convey("Given a base cooldown below the cap", t, func() {
		first := use("a", 0, 10)

		Convey("Then the adjusted cooldown bottoms out at zero", func() {
			So(cooldown.Adjusted(first, model.Snapshot{first}), ShouldEqual, 0)
		})
	})

	Convey("Given an event that is not reduction eligible", t, func() {
		first := use("a", 0, 60)
		first.ReductionEligible = false

		Convey("Then the base cooldown is used unchanged", func() {
			So(cooldown.Adjusted(first, model.Snapshot{first}), ShouldEqual, 60)
		})
	})

	Convey("Given events of other abilities in the snapshot", t, func() {
		other := model.UsageEvent{ID: "x", AbilityName: "Convoke the Spirits", Time: 0, BaseCooldown: 120, ReductionEligible: true}
		snap := model.Snapshot{other, use("a", 0, 60), use("b", 45, 60)}

		Convey("Then they should not affect the chain", func() {
			So(cooldown.Adjusted(snap[2], snap), ShouldEqual, 60)
			So(cooldown.Adjusted(other, snap), ShouldEqual, 105)
		})
	})

	Convey("Given an event missing from the snapshot", t, func() {
		Convey("Then it is treated as a first use", func() {
			So(cooldown.Adjusted(use("z", 30, 60), model.Snapshot{use("a", 0, 60)}), ShouldEqual, 45)
		})
	})

	Convey("Given an arbitrary chain", t, func() {
		snap := model.Snapshot{use("a", 0, 60), use("b", 10, 60), use("c", 300, 20), use("d", 301, 5)}
		events := snap.ByAbility("Force of Nature")
		chain := cooldown.Chain(events)

		Convey("Then every adjusted value stays within [0, base]", func() {
			for i, e := range events {
				So(chain[i], ShouldBeGreaterThanOrEqualTo, 0)
				So(chain[i], ShouldBeLessThanOrEqualTo, e.BaseCooldown)
				So(cooldown.Adjusted(e, snap), ShouldEqual, chain[i])
			}
		})
	})
}
