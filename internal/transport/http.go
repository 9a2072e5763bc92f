package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurawell/companion/internal/config"
	"github.com/aurawell/companion/internal/observability"
	"github.com/aurawell/companion/internal/protocol"
)

// Client issues the wellness backend's HTTP calls. It owns connection-level
// retry and timeout policy; it never touches session state.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	retry      *retryPolicy
	breaker    breaker
	logger     zerolog.Logger
}

// breaker is the slice of the circuit breaker the client needs
type breaker interface {
	Call(fn func() error) error
}

type noopBreaker struct{}

func (noopBreaker) Call(fn func() error) error { return fn() }

// NewClient creates a backend HTTP client from configuration
func NewClient(cfg *config.Config, cb breaker) *Client {
	if cb == nil {
		cb = noopBreaker{}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		retry: &retryPolicy{
			maxAttempts:    cfg.RetryMaxAttempts,
			initialBackoff: time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		},
		breaker: cb,
		logger:  observability.GetLogger().With().Str("component", "transport").Logger(),
	}
}

// CreateSession starts a new wellness session and returns the assigned session
// ID. The call is bounded by the configured deadline (the backend may cold
// start) and transient network failures are retried with backoff.
func (c *Client) CreateSession(ctx context.Context, profile protocol.Profile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CreateSessionDeadline())
	defer cancel()

	var resp protocol.StartSessionResponse
	err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/start-session", profile, &resp)
	})
	if err != nil {
		return "", err
	}

	if resp.Status != "ok" || resp.SessionID == "" {
		return "", &Error{
			Kind:     KindBadBody,
			Endpoint: "/start-session",
			Err:      fmt.Errorf("backend rejected session: status=%q message=%q", resp.Status, resp.Message),
		}
	}

	c.logger.Info().Str("session_id", resp.SessionID).Str("user", resp.UserName).Msg("Session created")
	return resp.SessionID, nil
}

// PollOrchestration performs a single readiness check for a session. Repeat
// scheduling and the overall cap belong to the caller.
func (c *Client) PollOrchestration(ctx context.Context, sessionID string) (protocol.OrchestrationStatus, error) {
	var status protocol.OrchestrationStatus
	err := c.guarded(func() error {
		return c.doJSON(ctx, http.MethodGet, "/session-status/"+sessionID, nil, &status)
	})
	return status, err
}

// WellnessChat sends one text message on an existing session. It is the
// non-voice fallback surface, outside the live session core.
func (c *Client) WellnessChat(ctx context.Context, sessionID, message string) (protocol.ChatResponse, error) {
	req := protocol.ChatRequest{SessionID: sessionID, Message: message}
	var resp protocol.ChatResponse
	err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/wellness-chat", req, &resp)
	})
	return resp, err
}

// EventsNearMe looks up nearby events for social suggestions
func (c *Client) EventsNearMe(ctx context.Context, query protocol.EventsQuery) ([]protocol.EventSummary, error) {
	var resp protocol.EventsResponse
	err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/events-near-me", query, &resp)
	})
	return resp.Events, err
}

// SocialEvents looks up social gatherings matching the user's interests
func (c *Client) SocialEvents(ctx context.Context, query protocol.EventsQuery) ([]protocol.EventSummary, error) {
	var resp protocol.EventsResponse
	err := c.withRetry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/social-events", query, &resp)
	})
	return resp.Events, err
}

// HealthCheck probes backend liveness
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	err := c.guarded(func() error {
		return c.doJSON(ctx, http.MethodGet, "/health-check", nil, nil)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// doJSON performs one HTTP exchange and classifies every failure mode
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindBadBody, Endpoint: path, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindNetwork, Endpoint: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		terr := classify(path, err)
		observability.RecordTransportRequest(path, terr.Kind.String(), latency)
		return terr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.RecordTransportRequest(path, KindBadStatus.String(), latency)
		return &Error{Kind: KindBadStatus, Endpoint: path, Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			observability.RecordTransportRequest(path, KindBadBody.String(), latency)
			return &Error{Kind: KindBadBody, Endpoint: path, Err: err}
		}
	}

	observability.RecordTransportRequest(path, "ok", latency)
	return nil
}
