package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cdtimeline/internal/domain/model"
)

// ErrStatus is returned when the server answers with an unexpected status.
var ErrStatus = errors.New("unexpected status")

// Client talks to the timeline HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type addResponse struct {
	Event    model.UsageEvent `json:"event"`
	Replayed bool             `json:"replayed"`
}

// MoveResult is the server's report for a move.
type MoveResult struct {
	Applied int      `json:"applied"`
	Clamped bool     `json:"clamped"`
	Shifted []string `json:"shifted"`
}

// Session is every ability's derived timeline.
type Session struct {
	Length    int                     `json:"length"`
	Abilities []model.AbilityTimeline `json:"abilities"`
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// PutAbility registers or replaces an ability.
func (c *Client) PutAbility(ctx context.Context, st Step) (model.Ability, error) {
	body := map[string]any{"base_cooldown": *st.BaseCooldown}
	if st.MaxCharges != 0 {
		body["max_charges"] = st.MaxCharges
	}
	if st.ReductionEligible != nil {
		body["reduction_eligible"] = *st.ReductionEligible
	}
	var out model.Ability
	err := c.do(ctx, http.MethodPut, "/abilities/"+url.PathEscape(st.Ability), body, &out, http.StatusOK)
	return out, err
}

// AddEvent creates a use of ability. The same key is sent on every attempt
// so a retry after a lost response does not create a second use.
func (c *Client) AddEvent(ctx context.Context, ability string, attempts int) (model.UsageEvent, bool, error) {
	key := uuid.NewString()
	var (
		out addResponse
		err error
	)
	for i, n := 0, max(attempts, 1); i < n; i++ {
		err = c.doWithKey(ctx, key, http.MethodPost, "/events", map[string]string{"ability": ability}, &out,
			http.StatusCreated, http.StatusOK)
		if err == nil || errors.Is(err, ErrStatus) {
			break
		}
	}
	return out.Event, out.Replayed, err
}

// MoveEvent requests a new time for event id.
func (c *Client) MoveEvent(ctx context.Context, id string, seconds int) (MoveResult, error) {
	var out MoveResult
	err := c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(id), map[string]int{"time": seconds}, &out, http.StatusOK)
	return out, err
}

// RemoveEvent deletes event id.
func (c *Client) RemoveEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// FetchSession fetches every ability's derived timeline.
func (c *Client) FetchSession(ctx context.Context) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodGet, "/timeline", nil, &out, http.StatusOK)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, want ...int) error {
	return c.doWithKey(ctx, "", method, path, in, out, want...)
}

func (c *Client) doWithKey(ctx context.Context, key, method, path string, in, out any, want ...int) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	ok := false
	for _, code := range want {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		return fmt.Errorf("%w: %s %s: %d: %s", ErrStatus, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", method, path, err)
	}
	return nil
}

