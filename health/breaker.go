package health

import (
	"context"
	"time"

	"github.com/jonwraymond/pokedex/resilience"
)

// Severity says how much a dependency matters to overall health.
type Severity int

const (
	// Critical dependencies have no fallback; losing one fails requests.
	Critical Severity = iota
	// Optional dependencies have a fallback; losing one degrades responses.
	Optional
)

// BreakerChecker reports the state of a dependency's circuit breaker.
type BreakerChecker struct {
	breaker  *resilience.CircuitBreaker
	severity Severity
}

// NewBreakerChecker creates a checker named after the breaker.
func NewBreakerChecker(cb *resilience.CircuitBreaker, severity Severity) *BreakerChecker {
	return &BreakerChecker{breaker: cb, severity: severity}
}

// Name returns "breaker:<dependency>".
func (c *BreakerChecker) Name() string {
	return "breaker:" + c.breaker.Name()
}

// Check maps Closed to healthy and HalfOpen to degraded. Open is unhealthy
// for critical dependencies and degraded for optional ones.
func (c *BreakerChecker) Check(context.Context) Result {
	snap := c.breaker.Snapshot()
	details := map[string]any{
		"state":    snap.State.String(),
		"failures": snap.Failures,
		"opened":   snap.Opened,
	}

	switch snap.State {
	case resilience.StateOpen:
		details["open_until"] = snap.OpenUntil.UTC().Format(time.RFC3339)
		if c.severity == Critical {
			return Unhealthy(snap.Name+" circuit open", ErrCircuitOpen).WithDetails(details)
		}
		return Degraded(snap.Name + " circuit open, serving fallback").WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded(snap.Name + " circuit probing").WithDetails(details)
	default:
		return Healthy(snap.Name + " circuit closed").WithDetails(details)
	}
}
