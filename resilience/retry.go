package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy generates a delay schedule when no explicit list is set.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry stage.
type RetryConfig struct {
	// Delays is the ordered list of waits between attempts. When set it
	// takes precedence over the generated schedule below.
	Delays []time.Duration

	// MaxAttempts is the number of attempts (including the first) of the
	// generated schedule.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the first generated delay.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps generated delays.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is used by BackoffExponential.
	// Default: 2.0
	Multiplier float64

	Strategy BackoffStrategy

	// Jitter adds up to 25% to each delay.
	Jitter bool

	// RetryIf decides whether a failure is retried.
	// Default: IsTransient
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-issues a failed call following a delay schedule.
type Retry struct {
	config RetryConfig
	delays []time.Duration
}

// NewRetry creates a retry stage. A non-nil, empty Delays slice disables
// retries entirely.
func NewRetry(config RetryConfig) *Retry {
	if config.RetryIf == nil {
		config.RetryIf = IsTransient
	}

	r := &Retry{config: config}
	if config.Delays != nil {
		r.delays = append([]time.Duration(nil), config.Delays...)
		return r
	}

	if r.config.MaxAttempts <= 0 {
		r.config.MaxAttempts = 3
	}
	if r.config.InitialDelay <= 0 {
		r.config.InitialDelay = 100 * time.Millisecond
	}
	if r.config.MaxDelay <= 0 {
		r.config.MaxDelay = 30 * time.Second
	}
	if r.config.Multiplier <= 0 {
		r.config.Multiplier = 2.0
	}
	r.delays = r.schedule()
	return r
}

// Execute runs op, retrying handled failures. After the schedule is
// exhausted the last failure is returned unchanged.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !r.config.RetryIf(err) || attempt > len(r.delays) {
			return err
		}

		delay := r.jitter(r.delays[attempt-1])
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Delays returns the schedule in use.
func (r *Retry) Delays() []time.Duration {
	return append([]time.Duration(nil), r.delays...)
}

func (r *Retry) schedule() []time.Duration {
	out := make([]time.Duration, 0, r.config.MaxAttempts-1)
	for attempt := 1; attempt < r.config.MaxAttempts; attempt++ {
		var delay time.Duration
		switch r.config.Strategy {
		case BackoffConstant:
			delay = r.config.InitialDelay
		case BackoffLinear:
			delay = r.config.InitialDelay * time.Duration(attempt)
		default:
			factor := math.Pow(r.config.Multiplier, float64(attempt-1))
			delay = time.Duration(float64(r.config.InitialDelay) * factor)
		}
		out = append(out, min(delay, r.config.MaxDelay))
	}
	return out
}

func (r *Retry) jitter(delay time.Duration) time.Duration {
	if !r.config.Jitter || delay < 4 {
		return delay
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return delay + time.Duration(rand.Int64N(int64(delay/4)))
}
