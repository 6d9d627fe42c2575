package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed lets calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls until the break duration has elapsed.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// Name identifies the guarded dependency in hooks and snapshots.
	Name string

	// FailureThreshold is the number of consecutive handled failures that
	// opens the circuit.
	// Default: 5
	FailureThreshold int

	// BreakDuration is how long the circuit stays open.
	// Default: 30 seconds
	BreakDuration time.Duration

	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether an outcome counts against the breaker.
	// Outcomes it rejects reset the consecutive-failure counter.
	// Default: IsTransient
	IsFailure func(err error) bool

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// CircuitBreaker guards one outbound dependency. All state is protected by
// a mutex so a single instance is shared by every request to that
// dependency.
type CircuitBreaker struct {
	config BreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	openUntil time.Time
	trialBusy bool
	opened    int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = IsTransient
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{config: config}
}

// Name returns the dependency name the breaker was created with.
func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// Execute runs op unless the circuit is open. While open, or while the
// half-open trial is in flight, it returns ErrCircuitOpen without calling op.
// A call abandoned by its caller counts neither as a success nor as a
// failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}

	err = op(ctx)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		cb.release(trial)
		return err
	}
	cb.record(trial, err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset forces the circuit closed and clears the failure counter.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.stateLocked()
	cb.failures = 0
	cb.trialBusy = false
	cb.openUntil = time.Time{}
	cb.transitionLocked(from, StateClosed)
}

func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if cb.trialBusy {
			return false, ErrCircuitOpen
		}
		cb.trialBusy = true
		return true, nil
	default:
		return false, nil
	}
}

// release frees the trial slot without deciding the circuit, so the next
// call becomes the trial.
func (cb *CircuitBreaker) release(trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial && cb.state == StateHalfOpen {
		cb.trialBusy = false
	}
}

func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)

	if trial && cb.state == StateHalfOpen {
		cb.trialBusy = false
		if failed {
			cb.tripLocked(StateHalfOpen)
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateHalfOpen, StateClosed)
		return
	}

	// A call admitted while closed may finish after a concurrent call has
	// already opened the circuit; its outcome no longer matters.
	if cb.state != StateClosed {
		return
	}

	if !failed {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.failures >= cb.config.FailureThreshold {
		cb.tripLocked(StateClosed)
	}
}

func (cb *CircuitBreaker) tripLocked(from State) {
	cb.failures = 0
	cb.openUntil = cb.config.Now().Add(cb.config.BreakDuration)
	cb.opened++
	cb.transitionLocked(from, StateOpen)
}

// stateLocked lazily moves Open to HalfOpen once openUntil has passed.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && !cb.config.Now().Before(cb.openUntil) {
		cb.trialBusy = false
		cb.transitionLocked(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(from, to State) {
	cb.state = to
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// Snapshot returns a consistent view of the breaker.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerSnapshot{
		Name:      cb.config.Name,
		State:     cb.stateLocked(),
		Failures:  cb.failures,
		OpenUntil: cb.openUntil,
		Opened:    cb.opened,
	}
}

// BreakerSnapshot is a point-in-time copy of a breaker's state.
type BreakerSnapshot struct {
	Name      string
	State     State
	Failures  int
	OpenUntil time.Time
	// Opened counts how many times the circuit has tripped.
	Opened int64
}
