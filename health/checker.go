package health

import (
	"context"
	"time"
)

// Status represents the health status of a component.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Error    error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is a single health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkerFunc struct {
	name string
	fn   func(context.Context) Result
}

// CheckerFunc adapts a function into a Checker.
func CheckerFunc(name string, fn func(context.Context) Result) Checker {
	return checkerFunc{name: name, fn: fn}
}

func (f checkerFunc) Name() string                     { return f.name }
func (f checkerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// PingChecker reports unhealthy when ping fails. It suits backends such as
// the Redis cache that expose a Ping method.
func PingChecker(name string, severity Severity, ping func(context.Context) error) Checker {
	return CheckerFunc(name, func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			if severity == Optional {
				return Degraded(name + " unreachable").WithDetails(map[string]any{"error": err.Error()})
			}
			return Unhealthy(name+" unreachable", err)
		}
		return Healthy(name + " reachable")
	})
}
