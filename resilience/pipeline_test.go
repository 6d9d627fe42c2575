package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		RetryDelays:      []time.Duration{0, 0},
		FailureThreshold: 2,
		BreakDuration:    30 * time.Second,
		Timeout:          50 * time.Millisecond,
	}
}

func TestPipeline_SuccessAfterRetriesCountsOnce(t *testing.T) {
	p := FromPolicy("metadata", testPolicy(), Hooks{})

	for round := 0; round < 3; round++ {
		calls := 0
		err := p.Execute(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errUnavailable
			}
			return nil
		})
		if err != nil {
			t.Fatalf("round %d: Execute() error = %v", round, err)
		}
		if calls != 3 {
			t.Errorf("round %d: calls = %d, want 3", round, calls)
		}
	}

	if got := p.Breaker().Snapshot(); got.State != StateClosed || got.Failures != 0 {
		t.Errorf("breaker = %+v, want closed with 0 failures", got)
	}
}

func TestPipeline_BreakerCountsExhaustedRetrySequences(t *testing.T) {
	clock := newFakeClock()
	p := FromPolicy("rewrite", testPolicy(), Hooks{Now: clock.Now})
	ctx := context.Background()

	var calls int
	failing := func(context.Context) error {
		calls++
		return errUnavailable
	}

	_ = p.Execute(ctx, failing)
	if calls != 3 {
		t.Errorf("calls after first request = %d, want 3", calls)
	}
	if p.Breaker().State() != StateClosed {
		t.Fatalf("state after one exhausted sequence = %v, want closed", p.Breaker().State())
	}

	_ = p.Execute(ctx, failing)
	if p.Breaker().State() != StateOpen {
		t.Fatalf("state after two exhausted sequences = %v, want open", p.Breaker().State())
	}

	calls = 0
	if err := p.Execute(ctx, failing); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() while open = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("calls while open = %d, want 0", calls)
	}

	clock.Advance(30 * time.Second)
	if err := p.Execute(ctx, succeed); err != nil {
		t.Errorf("trial Execute() = %v, want nil", err)
	}
	if p.Breaker().State() != StateClosed {
		t.Errorf("state after trial = %v, want closed", p.Breaker().State())
	}
}

func TestPipeline_NotFoundPassesThroughWithoutRetry(t *testing.T) {
	p := FromPolicy("metadata", testPolicy(), Hooks{})
	notFound := &UpstreamError{StatusCode: 404}

	var calls int
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		return notFound
	})
	if err != notFound {
		t.Errorf("Execute() error = %v, want %v", err, notFound)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPipeline_TimeoutPerAttemptIsRetried(t *testing.T) {
	var retries []error
	p := FromPolicy("metadata", testPolicy(), Hooks{
		OnRetry: func(dep string, attempt int, err error, _ time.Duration) {
			if dep != "metadata" {
				t.Errorf("OnRetry dependency = %q, want metadata", dep)
			}
			retries = append(retries, err)
		},
	})

	var calls atomic.Int32
	err := p.Execute(context.Background(), func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if len(retries) != 1 || !errors.Is(retries[0], ErrTimeout) {
		t.Errorf("retries = %v, want [ErrTimeout]", retries)
	}
}

func TestPipeline_RateLimitRejectionDoesNotTrip(t *testing.T) {
	clock := newFakeClock()
	policy := testPolicy()
	policy.FailureThreshold = 1
	p := FromPolicy("rewrite", policy, Hooks{},
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Limit: 1, Per: time.Hour, Now: clock.Now})))

	_ = p.Execute(context.Background(), succeed)
	for i := 0; i < 3; i++ {
		if err := p.Execute(context.Background(), succeed); !errors.Is(err, ErrRateLimitExceeded) {
			t.Errorf("Execute() = %v, want ErrRateLimitExceeded", err)
		}
	}
	if p.Breaker().State() != StateClosed {
		t.Errorf("state = %v, want closed", p.Breaker().State())
	}
}

func TestPipeline_StateChangeHook(t *testing.T) {
	var got []State
	policy := testPolicy()
	policy.RetryDelays = nil
	policy.FailureThreshold = 1
	p := FromPolicy("metadata", policy, Hooks{
		OnStateChange: func(dep string, from, to State) { got = append(got, to) },
	})

	_ = p.Execute(context.Background(), fail)
	if len(got) != 1 || got[0] != StateOpen {
		t.Errorf("transitions = %v, want [open]", got)
	}
}

func TestPipeline_BulkheadFromPolicy(t *testing.T) {
	policy := testPolicy()
	policy.MaxConcurrent = 1
	policy.RetryDelays = nil
	policy.Timeout = 5 * time.Second
	p := FromPolicy("metadata", policy, Hooks{})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = p.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	if err := p.Execute(context.Background(), succeed); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() = %v, want ErrBulkheadFull", err)
	}
}

func TestNewPipeline_NoStages(t *testing.T) {
	p := NewPipeline("bare")
	if p.Breaker() != nil {
		t.Error("Breaker() != nil for bare pipeline")
	}
	if err := p.Execute(context.Background(), fail); err != errUnavailable {
		t.Errorf("Execute() = %v, want %v", err, errUnavailable)
	}
}
