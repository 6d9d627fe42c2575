package resilience

import (
	"context"
	"time"
)

// Pipeline composes the resilience stages for one outbound dependency.
//
// Stages nest from the outside in:
//
//	rate limiter > bulkhead > circuit breaker > retry > per-attempt timeout
//
// The breaker therefore records one outcome per logical call, after the
// retry schedule has run its course, and rejections from the rate limiter
// or bulkhead never count against it.
type Pipeline struct {
	name        string
	breaker     *CircuitBreaker
	retry       *Retry
	rateLimiter *RateLimiter
	bulkhead    *Bulkhead
	timeout     *Timeout
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// NewPipeline creates a pipeline from the given stages. Unset stages are
// skipped.
func NewPipeline(name string, opts ...Option) *Pipeline {
	p := &Pipeline{name: name}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Hooks observe pipeline activity. Nil hooks are ignored.
type Hooks struct {
	OnRetry       func(dependency string, attempt int, err error, delay time.Duration)
	OnStateChange func(dependency string, from, to State)
	// Now overrides the breaker clock.
	Now func() time.Time
}

// FromPolicy builds the standard pipeline for a dependency: a dedicated
// breaker, the policy's retry schedule and per-attempt timeout, plus a
// bulkhead when MaxConcurrent is set. Extra options are applied last.
func FromPolicy(name string, policy Policy, hooks Hooks, opts ...Option) *Pipeline {
	policy = policy.clone()

	retryCfg := RetryConfig{
		Delays:  append([]time.Duration{}, policy.RetryDelays...),
		RetryIf: IsTransient,
	}
	if hooks.OnRetry != nil {
		retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			hooks.OnRetry(name, attempt, err, delay)
		}
	}

	base := []Option{
		WithCircuitBreaker(NewCircuitBreaker(BreakerConfig{
			Name:             name,
			FailureThreshold: policy.FailureThreshold,
			BreakDuration:    policy.BreakDuration,
			OnStateChange:    hooks.OnStateChange,
			Now:              hooks.Now,
		})),
		WithRetry(NewRetry(retryCfg)),
		WithTimeout(policy.Timeout),
	}
	if policy.MaxConcurrent > 0 {
		base = append(base, WithBulkhead(NewBulkhead(policy.MaxConcurrent, 0)))
	}

	return NewPipeline(name, append(base, opts...)...)
}

// WithCircuitBreaker sets the breaker stage.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Pipeline) { p.breaker = cb }
}

// WithRetry sets the retry stage.
func WithRetry(r *Retry) Option {
	return func(p *Pipeline) { p.retry = r }
}

// WithRateLimiter sets the rate limiting stage.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(p *Pipeline) { p.rateLimiter = rl }
}

// WithBulkhead sets the concurrency cap.
func WithBulkhead(b *Bulkhead) Option {
	return func(p *Pipeline) { p.bulkhead = b }
}

// WithTimeout sets the per-attempt budget.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = NewTimeout(d) }
}

// Name returns the dependency name.
func (p *Pipeline) Name() string { return p.name }

// Breaker returns the breaker stage, or nil.
func (p *Pipeline) Breaker() *CircuitBreaker { return p.breaker }

// Execute runs op through every configured stage.
func (p *Pipeline) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op

	if p.timeout != nil {
		call = wrap(p.timeout.Execute, call)
	}
	if p.retry != nil {
		call = wrap(p.retry.Execute, call)
	}
	if p.breaker != nil {
		call = wrap(p.breaker.Execute, call)
	}
	if p.bulkhead != nil {
		call = wrap(p.bulkhead.Execute, call)
	}
	if p.rateLimiter != nil {
		call = wrap(p.rateLimiter.Execute, call)
	}

	return call(ctx)
}

type stage func(context.Context, func(context.Context) error) error

func wrap(s stage, inner func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error { return s(ctx, inner) }
}
