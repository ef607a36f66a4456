package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

// ErrEmptyCompletion is wrapped when the provider answered without usable content.
var ErrEmptyCompletion = errors.New("no content returned from llm")

// ExternalServiceError is a failed or non-success exchange with the provider.
// StatusCode is zero when no HTTP response was received.
type ExternalServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Err != nil:
		return fmt.Sprintf("llm http status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("llm http status %d: %s", e.StatusCode, truncate(e.Body, 500))
	case e.Err != nil:
		return "llm request failed: " + e.Err.Error()
	default:
		return "llm request failed"
	}
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Transient reports whether the same request could succeed if sent again.
func (e *ExternalServiceError) Transient() bool {
	if e.StatusCode == 0 {
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, ErrEmptyCompletion)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ShouldRetry classifies provider errors worth another attempt.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var extErr *ExternalServiceError
	if errors.As(err, &extErr) {
		return extErr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "unexpected eof")
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
