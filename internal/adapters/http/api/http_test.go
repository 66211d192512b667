package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/okian/cdtimeline/internal/adapters/http/api"
	service "github.com/okian/cdtimeline/internal/app"
	"github.com/okian/cdtimeline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const forceOfNature = "Force of Nature"

func newMux(ctx context.Context) (*http.ServeMux, *service.Service) {
	svc, err := service.New(ctx, service.WithAbilities(
		model.Ability{Name: forceOfNature, BaseCooldown: 60, MaxCharges: 1, ReductionEligible: true},
		model.Ability{Name: "Whirling Stars", BaseCooldown: 100, MaxCharges: 2, ReductionEligible: true},
	))
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func abilityPath(name string) string {
	return "/timeline/" + url.PathEscape(name)
}

type created struct {
	Event    model.UsageEvent `json:"event"`
	Replayed bool             `json:"replayed"`
}

func postEvent(mux *http.ServeMux, ability string, headers ...string) (created, int) {
	w := do(mux, http.MethodPost, "/events", `{"ability":"`+ability+`"}`, headers...)
	var c created
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	return c, w.Code
}

func TestServer_Register(t *testing.T) {
	ctx := context.Background()

	Convey("Given a registered API server", t, func() {
		mux, _ := newMux(ctx)

		Convey("Then health serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["abilities"], ShouldEqual, float64(2))
		})

		Convey("Then abilities are listed in registration order", func() {
			w := do(mux, http.MethodGet, "/abilities", "")
			var abilities []model.Ability
			So(json.Unmarshal(w.Body.Bytes(), &abilities), ShouldBeNil)
			So(len(abilities), ShouldEqual, 2)
			So(abilities[1].MaxCharges, ShouldEqual, 2)
		})

		Convey("Then unknown paths and wrong methods are 404", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPut, "/events", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	ctx := context.Background()

	Convey("Given an API server", t, func() {
		mux, svc := newMux(ctx)

		Convey("When posting two uses", func() {
			first, code1 := postEvent(mux, forceOfNature)
			second, code2 := postEvent(mux, forceOfNature)

			Convey("Then both are created back to back", func() {
				So(code1, ShouldEqual, http.StatusCreated)
				So(code2, ShouldEqual, http.StatusCreated)
				So(first.Event.Time, ShouldEqual, 0)
				So(second.Event.Time, ShouldEqual, 45)
			})

			Convey("And moving the second earlier is clamped", func() {
				w := do(mux, http.MethodPatch, "/events/"+second.Event.ID, `{"time":40}`)
				So(w.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Applied int      `json:"applied"`
					Clamped bool     `json:"clamped"`
					Shifted []string `json:"shifted"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Applied, ShouldEqual, 45)
				So(resp.Clamped, ShouldBeTrue)
				So(resp.Shifted, ShouldBeEmpty)
			})

			Convey("And moving the first later cascades", func() {
				w := do(mux, http.MethodPatch, "/events/"+first.Event.ID, `{"time":30}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, second.Event.ID)

				events := svc.Events(ctx)
				So(events[1].Time, ShouldEqual, 75)
			})

			Convey("And deleting one leaves the other", func() {
				w := do(mux, http.MethodDelete, "/events/"+first.Event.ID, "")
				So(w.Code, ShouldEqual, http.StatusNoContent)

				w = do(mux, http.MethodGet, "/events", "")
				var events []model.UsageEvent
				So(json.Unmarshal(w.Body.Bytes(), &events), ShouldBeNil)
				So(events, ShouldResemble, []model.UsageEvent{second.Event})

				So(do(mux, http.MethodDelete, "/events/"+first.Event.ID, "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When retrying a post with the same idempotency key", func() {
			a, codeA := postEvent(mux, forceOfNature, api.IdempotencyKeyHeader, "retry-1")
			b, codeB := postEvent(mux, forceOfNature, api.IdempotencyKeyHeader, "retry-1")

			Convey("Then the retry replays the first result", func() {
				So(codeA, ShouldEqual, http.StatusCreated)
				So(codeB, ShouldEqual, http.StatusOK)
				So(b.Replayed, ShouldBeTrue)
				So(b.Event, ShouldResemble, a.Event)
				So(len(svc.Events(ctx)), ShouldEqual, 1)
			})
		})

		Convey("When posting bad input", func() {
			Convey("Then an empty body is a bad request", func() {
				So(do(mux, http.MethodPost, "/events", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then malformed JSON is a bad request", func() {
				So(do(mux, http.MethodPost, "/events", `{"ability":`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then unknown fields are a bad request", func() {
				So(do(mux, http.MethodPost, "/events", `{"ability":"x","when":3}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then an unknown ability is not found", func() {
				w := do(mux, http.MethodPost, "/events", `{"ability":"Starfall"}`)
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_found"`)
			})
			Convey("Then a move without time is a bad request", func() {
				e, _ := postEvent(mux, forceOfNature)
				So(do(mux, http.MethodPatch, "/events/"+e.Event.ID, `{}`).Code, ShouldEqual, http.StatusBadRequest)
			})
			Convey("Then moving an unknown id is not found", func() {
				So(do(mux, http.MethodPatch, "/events/nope", `{"time":3}`).Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAbilitiesHandler(t *testing.T) {
	ctx := context.Background()

	Convey("Given an API server", t, func() {
		mux, svc := newMux(ctx)

		Convey("When changing an ability's cooldown", func() {
			w := do(mux, http.MethodPut, "/abilities/"+url.PathEscape(forceOfNature), `{"base_cooldown":45}`)

			Convey("Then the stored ability is returned with defaults applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var a model.Ability
				So(json.Unmarshal(w.Body.Bytes(), &a), ShouldBeNil)
				So(a, ShouldResemble, model.Ability{Name: forceOfNature, BaseCooldown: 45, MaxCharges: 1, ReductionEligible: true})
			})
		})

		Convey("When registering an ineligible ability", func() {
			w := do(mux, http.MethodPut, "/abilities/Incarnation", `{"base_cooldown":180,"max_charges":1,"reduction_eligible":false}`)

			Convey("Then it is added last", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				all := svc.Abilities(ctx)
				So(all[len(all)-1].Name, ShouldEqual, "Incarnation")
				So(all[len(all)-1].ReductionEligible, ShouldBeFalse)
			})
		})

		Convey("When the cooldown is missing", func() {
			w := do(mux, http.MethodPut, "/abilities/Incarnation", `{"max_charges":1}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestTimelineHandler(t *testing.T) {
	ctx := context.Background()

	Convey("Given an API server with two uses", t, func() {
		mux, _ := newMux(ctx)
		postEvent(mux, forceOfNature)
		postEvent(mux, forceOfNature)

		Convey("When reading the ability timeline", func() {
			w := do(mux, http.MethodGet, abilityPath(forceOfNature), "")

			Convey("Then entries carry adjusted cooldown and ready time", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []struct {
					Event            model.UsageEvent `json:"event"`
					AdjustedCooldown int              `json:"adjusted_cooldown"`
					ReadyAt          int              `json:"ready_at"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].AdjustedCooldown, ShouldEqual, 45)
				So(entries[0].ReadyAt, ShouldEqual, 45)
				So(entries[1].ReadyAt, ShouldEqual, 105)
			})
		})

		Convey("When reading overlaps", func() {
			w := do(mux, http.MethodGet, abilityPath(forceOfNature)+"/overlaps", "")

			Convey("Then none are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"overlapping":[]`)
			})
		})

		Convey("When reading the whole session", func() {
			w := do(mux, http.MethodGet, "/timeline", "")

			Convey("Then every ability is present with the length", func() {
				var resp struct {
					Length    int `json:"length"`
					Abilities []struct {
						Ability model.Ability     `json:"ability"`
						Entries []json.RawMessage `json:"entries"`
					} `json:"abilities"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Length, ShouldEqual, 300)
				So(len(resp.Abilities), ShouldEqual, 2)
				So(len(resp.Abilities[0].Entries), ShouldEqual, 2)
				So(resp.Abilities[1].Entries, ShouldBeEmpty)
			})
		})

		Convey("When changing the length", func() {
			ok := do(mux, http.MethodPut, "/timeline", `{"length":600}`)
			bad := do(mux, http.MethodPut, "/timeline", `{"length":0}`)

			Convey("Then positive values are accepted and others rejected", func() {
				So(ok.Code, ShouldEqual, http.StatusOK)
				So(ok.Body.String(), ShouldContainSubstring, `"length":600`)
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking for an unknown ability", func() {
			So(do(mux, http.MethodGet, "/timeline/Starfall", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/timeline/Starfall/overlaps", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/timeline/a/b/c", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
