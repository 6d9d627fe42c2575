// Package resilience wraps outbound calls in retry, circuit breaking and
// per-attempt timeouts.
//
// A Pipeline is built once per dependency, normally with FromPolicy, and
// shared by every request to that dependency:
//
//	p := resilience.FromPolicy("metadata", resilience.Policy{
//	    RetryDelays:      []time.Duration{time.Second, 2 * time.Second},
//	    FailureThreshold: 5,
//	    BreakDuration:    30 * time.Second,
//	    Timeout:          10 * time.Second,
//	}, resilience.Hooks{})
//
//	err := p.Execute(ctx, func(ctx context.Context) error {
//	    return callDependency(ctx)
//	})
//
// Only transient failures are retried and counted by the breaker (see
// IsTransient). Operations signal an unsuccessful HTTP status by returning
// an *UpstreamError.
package resilience
