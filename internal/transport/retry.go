package transport

import (
	"context"
	"errors"
	"time"

	"github.com/aurawell/companion/internal/observability"
	"github.com/aurawell/companion/internal/resilience"
)

type retryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
}

// withRetry runs fn under the circuit breaker with bounded exponential
// backoff. Only connection-level failures are retried; timeouts, HTTP status
// failures and undecodable bodies surface immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	cfg := &resilience.RetryConfig{
		MaxAttempts:       c.retry.maxAttempts,
		InitialBackoff:    c.retry.initialBackoff,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}

	return resilience.Retry(ctx, func() error {
		return c.guarded(fn)
	}, cfg, isTransient)
}

// guarded runs fn through the circuit breaker and refreshes the breaker state
// gauge afterwards, when the call may just have tripped or closed it
func (c *Client) guarded(fn func() error) error {
	err := c.breaker.Call(fn)
	if cb, ok := c.breaker.(*resilience.CircuitBreaker); ok {
		observability.UpdateCircuitBreakerState(cb.Name(), int(cb.State()))
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return KindOf(err) == KindNetwork
}
