package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket that refills Limit tokens
// every Per.
type RateLimiterConfig struct {
	// Limit is the number of calls allowed per window.
	Limit int

	// Per is the refill window.
	// Default: 1 second
	Per time.Duration

	// Burst caps the bucket. Default: Limit
	Burst int

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// RateLimiter rejects calls once the bucket is empty. It never waits: a
// rejected call fails with ErrRateLimitExceeded so callers can degrade.
type RateLimiter struct {
	config RateLimiterConfig
	rate   float64 // tokens per nanosecond

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = 1
	}
	if config.Per <= 0 {
		config.Per = time.Second
	}
	if config.Burst <= 0 {
		config.Burst = config.Limit
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RateLimiter{
		config: config,
		rate:   float64(config.Limit) / float64(config.Per),
		tokens: float64(config.Burst),
		last:   config.Now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Execute runs op when a token is available.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

// Remaining returns the whole tokens currently available.
func (rl *RateLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return int(rl.tokens)
}

func (rl *RateLimiter) refillLocked() {
	now := rl.config.Now()
	elapsed := now.Sub(rl.last)
	if elapsed <= 0 {
		return
	}
	rl.last = now
	rl.tokens = min(rl.tokens+float64(elapsed)*rl.rate, float64(rl.config.Burst))
}
