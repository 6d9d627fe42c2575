package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds a single attempt. When the budget is exceeded the
// attempt's context is cancelled and ErrTimeout is returned immediately,
// even if op has not yet observed the cancellation.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout stage. Non-positive durations default to
// 30 seconds.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the per-attempt budget.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op with the attempt budget applied.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrTimeout
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTimeout
	}
}
