package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	service "github.com/okian/cdtimeline/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

func TestKindErrors(t *testing.T) {
	Convey("Given errors from the service layer", t, func() {
		unknown := fmt.Errorf("add event: %w", service.ErrUnknownAbility)
		missing := fmt.Errorf("remove event: %w", service.ErrEventNotFound)
		length := fmt.Errorf("set: %w", service.ErrInvalidTimelineLength)

		Convey("When wrapped by an operation", func() {
			err := Wrap("api.post_event", unknown)

			Convey("Then both the kind and the cause match", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, service.ErrUnknownAbility), ShouldBeTrue)
				So(err.Error(), ShouldStartWith, "api.post_event: not found: ")
			})
		})

		Convey("Then kinds map to status codes", func() {
			status, code := statusOf(Wrap("op", missing))
			So(status, ShouldEqual, http.StatusNotFound)
			So(code, ShouldEqual, "not_found")

			status, _ = statusOf(Wrap("op", length))
			So(status, ShouldEqual, http.StatusBadRequest)

			status, _ = statusOf(Wrap("op", errors.New("disk on fire")))
			So(status, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Then an explicit kind wins over the cause", func() {
			err := WrapKind("op", ErrBadRequest, missing)
			status, _ := statusOf(err)
			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then nil stays nil and NewKind has no cause", func() {
			So(Wrap("op", nil), ShouldBeNil)
			So(WrapKind("op", ErrInternal, nil), ShouldBeNil)
			So(NewKind("op", ErrBadRequest).Error(), ShouldEqual, "op: bad request")
		})
	})
}
