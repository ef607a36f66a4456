package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"medreport-backend/internal/shared/telemetry"
)

// GuardOptions configures the protective wrapper around a provider client.
// Zero values disable the corresponding guard.
type GuardOptions struct {
	Name             string
	RatePerSecond    float64
	FailureThreshold uint32
	OpenTimeout      time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
}

// Guarded rate-limits, circuit-breaks and optionally retries calls to a Client.
type Guarded struct {
	base    Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	opts    GuardOptions
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewGuarded(base Client, opts GuardOptions) *Guarded {
	if opts.Name == "" {
		opts.Name = "llm"
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 300 * time.Millisecond
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	g := &Guarded{base: base, opts: opts, sleep: sleepContext}
	if opts.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	if opts.FailureThreshold > 0 {
		threshold := opts.FailureThreshold
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        opts.Name,
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: breakerSuccess,
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				telemetry.Warn("llm.breaker.state_change", map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		})
	}
	return g
}

// Complete sends the request through the configured guards.
func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := g.opts.RetryBaseDelay << (attempt - 1)
			telemetry.Warn("llm.retry", map[string]any{
				"attempt":  attempt,
				"delay_ms": delay.Milliseconds(),
				"error":    lastErr.Error(),
			})
			if err := g.sleep(ctx, delay); err != nil {
				return "", lastErr
			}
		}
		out, err := g.once(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil || !ShouldRetry(err) {
			break
		}
	}
	return "", lastErr
}

func (g *Guarded) once(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm rate limit wait: %w", err)
		}
	}
	if g.breaker == nil {
		return g.base.Complete(ctx, req)
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.base.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &ExternalServiceError{StatusCode: http.StatusServiceUnavailable, Err: err}
		}
		return "", err
	}
	return out.(string), nil
}

// breakerSuccess keeps caller mistakes (bad key, bad request) from opening the circuit.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var extErr *ExternalServiceError
	if errors.As(err, &extErr) && extErr.StatusCode >= 400 && extErr.StatusCode < 500 {
		return extErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Client = (*Guarded)(nil)
