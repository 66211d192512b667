package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	repository "github.com/okian/cdtimeline/internal/adapters/repository"
	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/internal/domain/propagation"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(id, ability string, t int) model.UsageEvent {
	return model.UsageEvent{ID: id, AbilityName: ability, Time: t, BaseCooldown: 60, ReductionEligible: true}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := repository.NewMemoryStore(ctx, repository.WithCapacity(8))

		Convey("Then it should start at version zero", func() {
			So(s.Count(ctx), ShouldEqual, 0)
			So(s.Version(ctx), ShouldEqual, 0)
		})

		Convey("When inserting events", func() {
			So(s.Insert(ctx, ev("a", "Force of Nature", 0)), ShouldBeNil)
			So(s.Insert(ctx, ev("b", "Force of Nature", 45)), ShouldBeNil)

			Convey("Then they are retrievable in insertion order", func() {
				snap, version := s.Snapshot(ctx)
				So(version, ShouldEqual, 2)
				So(len(snap), ShouldEqual, 2)
				So(snap[0].ID, ShouldEqual, "a")

				e, err := s.Get(ctx, "b")
				So(err, ShouldBeNil)
				So(e.Time, ShouldEqual, 45)
			})

			Convey("And a duplicate id is rejected", func() {
				err := s.Insert(ctx, ev("a", "Force of Nature", 90))
				So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 2)
			})

			Convey("And snapshots are copies", func() {
				snap, _ := s.Snapshot(ctx)
				snap[0].Time = 999
				e, _ := s.Get(ctx, "a")
				So(e.Time, ShouldEqual, 0)
			})
		})

		Convey("When reading a missing id", func() {
			_, err := s.Get(ctx, "nope")

			Convey("Then ErrEventNotFound is returned", func() {
				So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)
				So(errors.Is(err, propagation.ErrEventNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a seeded store", t, func() {
		s := repository.NewMemoryStore(ctx, repository.WithSeed(
			ev("a", "Force of Nature", 0),
			ev("b", "Force of Nature", 45),
			ev("c", "Force of Nature", 200),
			ev("a", "Force of Nature", 7),
		))

		Convey("Then duplicate seed ids are dropped", func() {
			So(s.Count(ctx), ShouldEqual, 3)
			e, _ := s.Get(ctx, "a")
			So(e.Time, ShouldEqual, 0)
		})

		Convey("When removing the middle event", func() {
			So(s.Remove(ctx, "b"), ShouldBeNil)

			Convey("Then the others keep their stored fields", func() {
				snap, _ := s.Snapshot(ctx)
				So(snap, ShouldResemble, model.Snapshot{ev("a", "Force of Nature", 0), ev("c", "Force of Nature", 200)})
			})

			Convey("And removing it again fails", func() {
				So(errors.Is(s.Remove(ctx, "b"), repository.ErrEventNotFound), ShouldBeTrue)
			})
		})

		Convey("When replacing with an updated snapshot", func() {
			snap, version := s.Snapshot(ctx)
			snap[1].Time = 60

			So(s.Replace(ctx, snap, version), ShouldBeNil)

			Convey("Then the new times are stored", func() {
				e, _ := s.Get(ctx, "b")
				So(e.Time, ShouldEqual, 60)
				So(s.Version(ctx), ShouldEqual, version+1)
			})

			Convey("And replacing from the old version fails", func() {
				err := s.Replace(ctx, snap, version)
				So(errors.Is(err, repository.ErrStaleSnapshot), ShouldBeTrue)
			})
		})

		Convey("When replacing with a snapshot that drops an event", func() {
			snap, version := s.Snapshot(ctx)
			err := s.Replace(ctx, snap[:2], version)

			Convey("Then ErrShapeChanged is returned", func() {
				So(errors.Is(err, repository.ErrShapeChanged), ShouldBeTrue)
			})
		})

		Convey("When replacing with a snapshot that swaps an id", func() {
			snap, version := s.Snapshot(ctx)
			snap[2].ID = "z"
			err := s.Replace(ctx, snap, version)

			Convey("Then ErrShapeChanged is returned", func() {
				So(errors.Is(err, repository.ErrShapeChanged), ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	Convey("Given a store with concurrent writers", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		const writers = 8
		const perWriter = 50

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					_ = s.Insert(ctx, ev(fmt.Sprintf("%d-%d", w, i), "Force of Nature", i))
					_, _ = s.Snapshot(ctx)
				}
			}(w)
		}
		wg.Wait()

		Convey("Then every insert is stored exactly once", func() {
			So(s.Count(ctx), ShouldEqual, writers*perWriter)
			So(s.Version(ctx), ShouldEqual, writers*perWriter)
		})
	})
}
