// Package outcome defines the tagged result returned by the outbound
// clients, so callers branch on a closed set of kinds instead of raw codes.
package outcome

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/pokedex/resilience"
)

// Kind classifies how a call ended.
type Kind int

const (
	Success Kind = iota
	// NotFound: the upstream reported an unknown identifier.
	NotFound
	// Upstream: any other non-transient upstream status (e.g. 400, 429).
	Upstream
	// Transient: 5xx, connection failure or unreadable payload, after retries.
	Transient
	// Timeout: the last attempt exceeded its budget.
	Timeout
	// CircuitOpen: rejected by the breaker without I/O.
	CircuitOpen
	// InvalidInput: rejected locally before any I/O.
	InvalidInput
	// RateLimited: rejected by the local call quota without I/O.
	RateLimited
)

var kindNames = [...]string{
	Success:      "success",
	NotFound:     "not_found",
	Upstream:     "upstream_error",
	Transient:    "transient",
	Timeout:      "timeout",
	CircuitOpen:  "circuit_open",
	InvalidInput: "invalid_input",
	RateLimited:  "rate_limited",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Result carries either a value or a classified failure with the HTTP
// status the failure maps to.
type Result[T any] struct {
	Value  T
	Kind   Kind
	Status int
	Err    error
}

// OK wraps a successful value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Kind: Success, Status: http.StatusOK}
}

// Invalid builds an InvalidInput failure.
func Invalid[T any](err error) Result[T] {
	return Result[T]{Kind: InvalidInput, Status: http.StatusBadRequest, Err: err}
}

// Fail classifies err.
func Fail[T any](err error) Result[T] {
	kind, status := Classify(err)
	return Result[T]{Kind: kind, Status: status, Err: err}
}

// Ok reports whether the call succeeded.
func (r Result[T]) Ok() bool { return r.Kind == Success }

// Classify maps an error from the resilience pipeline to a Kind and the
// status code surfaced to inbound callers. Upstream statuses pass through
// verbatim; local failures map to 503 (circuit open, rate limited), 504
// (timeout) and 502 (connection or payload failure).
func Classify(err error) (Kind, int) {
	if err == nil {
		return Success, http.StatusOK
	}

	if code := resilience.StatusCode(err); code != 0 {
		switch {
		case code == http.StatusNotFound:
			return NotFound, code
		case resilience.IsTransient(err):
			return Transient, code
		default:
			return Upstream, code
		}
	}

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return CircuitOpen, http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrRateLimitExceeded), errors.Is(err, resilience.ErrBulkheadFull):
		return RateLimited, http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout, http.StatusGatewayTimeout
	default:
		return Transient, http.StatusBadGateway
	}
}
