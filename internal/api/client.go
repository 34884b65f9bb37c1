// Package api issues the imperative pull requests against the portal
// backend: fetch tickets, start or resume processing, approve a review
// checkpoint. Results are fed back through the reconciliation engine; this
// client never touches the ticket store itself.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwatch/tickwatch/internal/model"
)

// Client is a thin REST client. Calls are not retried automatically; the
// user retries failed actions by hand.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// StatusError reports a non-2xx response. All non-2xx statuses are treated
// uniformly as failure regardless of body.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
}

type ticketsResponse struct {
	Tickets []model.Ticket `json:"tickets"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// FetchAll pulls the full ticket collection. The caller merges it through
// the engine's snapshot path, so an empty result leaves existing state
// alone there.
func (c *Client) FetchAll(ctx context.Context) ([]model.Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tickets", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tickets: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: "fetch tickets", Status: resp.StatusCode}
	}

	var out ticketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch tickets: decode: %w", err)
	}
	c.log.Debug().Int("count", len(out.Tickets)).Msg("fetched tickets")
	return out.Tickets, nil
}

// FetchTicket pulls a single ticket record.
func (c *Client) FetchTicket(ctx context.Context, id string) (model.Ticket, error) {
	u := c.baseURL + "/api/tickets/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Ticket{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("fetch ticket %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Ticket{}, &StatusError{Op: "fetch ticket " + id, Status: resp.StatusCode}
	}

	var t model.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return model.Ticket{}, fmt.Errorf("fetch ticket %s: decode: %w", id, err)
	}
	return t, nil
}

// Process triggers a pipeline advance for a not-started or in-progress
// ticket. The actual outcome arrives later over the push channel; the
// returned message is only an immediate acknowledgment.
func (c *Client) Process(ctx context.Context, id string) (string, error) {
	return c.post(ctx, id, "process")
}

// ApproveReview advances the pipeline past a review checkpoint.
func (c *Client) ApproveReview(ctx context.Context, id string) (string, error) {
	return c.post(ctx, id, "approve-review")
}

func (c *Client) post(ctx context.Context, id, action string) (string, error) {
	u := c.baseURL + "/api/tickets/" + url.PathEscape(id) + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", action, id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Op: action + " " + id, Status: resp.StatusCode}
	}

	var out messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// A missing or odd body is not a failure; the status code is the
		// contract.
		return "", nil
	}
	return out.Message, nil
}
