package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/pokedex/resilience"
)

func trippedBreaker(name string, now func() time.Time) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:             name,
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
		Now:              now,
	})
	_ = cb.Execute(context.Background(), func(context.Context) error {
		return &resilience.UpstreamError{StatusCode: 500}
	})
	return cb
}

func TestBreakerChecker(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	now := func() time.Time { return clock }

	tests := []struct {
		name     string
		severity Severity
		advance  time.Duration
		tripped  bool
		want     Status
	}{
		{"closed critical", Critical, 0, false, StatusHealthy},
		{"open critical", Critical, 0, true, StatusUnhealthy},
		{"open optional", Optional, 0, true, StatusDegraded},
		{"half-open critical", Critical, time.Minute, true, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = base
			cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{Name: "metadata", Now: now})
			if tt.tripped {
				cb = trippedBreaker("metadata", now)
			}
			clock = clock.Add(tt.advance)

			r := NewBreakerChecker(cb, tt.severity).Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
		})
	}
}

func TestBreakerChecker_NameAndError(t *testing.T) {
	cb := trippedBreaker("metadata", nil)
	c := NewBreakerChecker(cb, Critical)

	if c.Name() != "breaker:metadata" {
		t.Errorf("Name() = %q", c.Name())
	}
	r := c.Check(context.Background())
	if !errors.Is(r.Error, ErrCircuitOpen) {
		t.Errorf("Error = %v, want ErrCircuitOpen", r.Error)
	}
	if r.Details["state"] != "open" {
		t.Errorf("Details[state] = %v, want open", r.Details["state"])
	}
}
