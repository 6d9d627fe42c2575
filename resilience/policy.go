package resilience

import (
	"fmt"
	"time"
)

// Policy is the resilience configuration shared by every outbound
// dependency. It is built once at start-up and passed by value.
type Policy struct {
	// RetryDelays is the ordered list of waits between attempts. A call is
	// tried at most len(RetryDelays)+1 times. Empty disables retries.
	RetryDelays []time.Duration

	// FailureThreshold is the number of consecutive transient failures
	// that opens a breaker.
	FailureThreshold int

	// BreakDuration is how long a breaker stays open before it lets a
	// single trial call through.
	BreakDuration time.Duration

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxConcurrent caps in-flight calls per dependency. Zero means no cap.
	MaxConcurrent int
}

// DefaultPolicy mirrors the production defaults of the service.
func DefaultPolicy() Policy {
	return Policy{
		RetryDelays:      []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		FailureThreshold: 5,
		BreakDuration:    30 * time.Second,
		Timeout:          10 * time.Second,
	}
}

// Attempts returns the maximum number of attempts the policy allows.
func (p Policy) Attempts() int {
	return len(p.RetryDelays) + 1
}

// Validate reports the first invalid field.
func (p Policy) Validate() error {
	for i, d := range p.RetryDelays {
		if d < 0 {
			return fmt.Errorf("%w: retry_delays[%d] must not be negative", ErrInvalidPolicy, i)
		}
	}
	if p.FailureThreshold < 1 {
		return fmt.Errorf("%w: failure_threshold must be at least 1", ErrInvalidPolicy)
	}
	if p.BreakDuration <= 0 {
		return fmt.Errorf("%w: break_duration must be positive", ErrInvalidPolicy)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidPolicy)
	}
	if p.MaxConcurrent < 0 {
		return fmt.Errorf("%w: max_concurrent must not be negative", ErrInvalidPolicy)
	}
	return nil
}

func (p Policy) clone() Policy {
	p.RetryDelays = append([]time.Duration(nil), p.RetryDelays...)
	return p
}
