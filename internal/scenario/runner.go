package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/cdtimeline/internal/domain/model"
	"github.com/okian/cdtimeline/pkg/logger"
)

const defaultAddAttempts = 2

// Violation is a pair of same-ability uses closer than the earlier one's
// adjusted cooldown, or a mismatch against the scenario's expected times.
type Violation struct {
	Ability string
	Detail  string
}

// Result summarizes one run.
type Result struct {
	Steps      int
	Added      int
	Replayed   int
	Moved      int
	Clamped    int
	Shifted    int
	Removed    int
	Timelines  []model.AbilityTimeline
	Violations []Violation
	Duration   time.Duration
}

// OK reports whether the run finished without violations.
func (r *Result) OK() bool { return len(r.Violations) == 0 }

// Runner replays scenarios through a Client.
type Runner struct {
	client      *Client
	log         logger.Logger
	addAttempts int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for progress output.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithAddAttempts sets how many times an add is sent before giving up.
func WithAddAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.addAttempts = n
		}
	}
}

// NewRunner creates a runner around client.
func NewRunner(client *Client, opts ...Option) *Runner {
	r := &Runner{client: client, log: logger.Nop(), addAttempts: defaultAddAttempts}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks health, applies every step in order, then fetches the session and
// verifies spacing. A failing step aborts the run; violations do not.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if err := r.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	r.log.Info(ctx, "service is healthy", logger.String("scenario", s.Name))

	ids := make(map[string]string)
	for i, st := range s.Steps {
		if err := r.step(ctx, st, ids, res); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, st.Action, err)
		}
		res.Steps++
	}

	session, err := r.client.FetchSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}
	res.Timelines = session.Abilities
	res.Violations = append(Verify(session.Abilities), expectations(s, session.Abilities)...)
	res.Duration = time.Since(start)

	r.log.Info(ctx, "scenario finished",
		logger.String("scenario", s.Name),
		logger.Int("steps", res.Steps),
		logger.Int("added", res.Added),
		logger.Int("moved", res.Moved),
		logger.Int("shifted", res.Shifted),
		logger.Int("removed", res.Removed),
		logger.Int("violations", len(res.Violations)),
		logger.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) step(ctx context.Context, st Step, ids map[string]string, res *Result) error {
	switch strings.ToLower(st.Action) {
	case ActionRegister:
		a, err := r.client.PutAbility(ctx, st)
		if err != nil {
			return err
		}
		r.log.Debug(ctx, "ability registered", logger.String("ability", a.Name), logger.Int("baseCooldown", a.BaseCooldown))
	case ActionAdd:
		e, replayed, err := r.client.AddEvent(ctx, st.Ability, r.addAttempts)
		if err != nil {
			return err
		}
		if st.Ref != "" {
			ids[st.Ref] = e.ID
		}
		res.Added++
		if replayed {
			res.Replayed++
		}
		r.log.Debug(ctx, "event added", logger.String("id", e.ID), logger.String("ability", e.AbilityName), logger.Int("time", e.Time))
	case ActionMove:
		m, err := r.client.MoveEvent(ctx, ids[st.Ref], *st.Time)
		if err != nil {
			return err
		}
		res.Moved++
		res.Shifted += len(m.Shifted)
		if m.Clamped {
			res.Clamped++
		}
		r.log.Debug(ctx, "event moved", logger.String("ref", st.Ref), logger.Int("applied", m.Applied), logger.Int("shifted", len(m.Shifted)))
	case ActionRemove:
		if err := r.client.RemoveEvent(ctx, ids[st.Ref]); err != nil {
			return err
		}
		delete(ids, st.Ref)
		res.Removed++
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidScenario, st.Action)
	}
	return nil
}

// Verify returns a violation for every consecutive pair of uses where the
// later one starts before the earlier one is ready again.
func Verify(timelines []model.AbilityTimeline) []Violation {
	var out []Violation
	for _, tl := range timelines {
		for j := 1; j < len(tl.Entries); j++ {
			prev, next := tl.Entries[j-1], tl.Entries[j]
			if next.Event.Time < prev.ReadyAt() {
				out = append(out, Violation{
					Ability: tl.Ability.Name,
					Detail: fmt.Sprintf("%s at %d starts before %s is ready at %d",
						next.Event.ID, next.Event.Time, prev.Event.ID, prev.ReadyAt()),
				})
			}
		}
	}
	return out
}

func expectations(s *Scenario, timelines []model.AbilityTimeline) []Violation {
	var out []Violation
	for name, want := range s.Expect {
		var got []int
		for _, tl := range timelines {
			if tl.Ability.Name != name {
				continue
			}
			for _, e := range tl.Entries {
				got = append(got, e.Event.Time)
			}
		}
		if !slices.Equal(got, want) {
			out = append(out, Violation{Ability: name, Detail: fmt.Sprintf("times %v, want %v", got, want)})
		}
	}
	slices.SortFunc(out, func(a, b Violation) int { return strings.Compare(a.Ability, b.Ability) })
	return out
}
