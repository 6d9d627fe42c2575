package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors returned by the pipeline stages.
var (
	// ErrCircuitOpen is returned without performing I/O while a breaker is
	// open or while its half-open trial call is in flight.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned when the rate limiter has no token.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt exceeds its time budget.
	ErrTimeout = errors.New("resilience: attempt timed out")

	// ErrInvalidPolicy is wrapped by Policy.Validate.
	ErrInvalidPolicy = errors.New("resilience: invalid policy")
)

// UpstreamError reports a completed HTTP exchange whose status was not 2xx.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("resilience: upstream returned %d", e.StatusCode)
	}
	return fmt.Sprintf("resilience: upstream returned %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether err is worth retrying and counts against a
// circuit breaker: 5xx and 408 responses, attempt timeouts and network
// failures. Everything else (4xx, ErrCircuitOpen, caller cancellation) is
// final.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode >= 500 || upErr.StatusCode == http.StatusRequestTimeout
	}

	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrRateLimitExceeded),
		errors.Is(err, ErrBulkheadFull), errors.Is(err, context.Canceled):
		return false
	}

	// *url.Error and *net.OpError both satisfy net.Error.
	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode
	}
	return 0
}
