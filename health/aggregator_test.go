package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return CheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(
		fixed("a", Healthy("ok")),
		fixed("b", Degraded("slow")),
	)

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %v, want degraded", results["b"].Status)
	}
	if got := Overall(results); got != StatusDegraded {
		t.Errorf("Overall() = %v, want degraded", got)
	}
}

func TestAggregator_RegisterReplaces(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register(fixed("a", Unhealthy("down", nil)))
	agg.Register(fixed("a", Healthy("up")), fixed("b", Healthy("up")))

	if names := agg.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if got := agg.CheckAll(context.Background())["a"].Status; got != StatusHealthy {
		t.Errorf("a = %v, want healthy", got)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)

	agg.Register(CheckerFunc("stuck", func(context.Context) Result {
		<-block
		return Healthy("late")
	}))

	r := agg.CheckAll(context.Background())["stuck"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("stuck = %+v, want unhealthy timeout", r)
	}
}

func TestOverall(t *testing.T) {
	if got := Overall(nil); got != StatusHealthy {
		t.Errorf("Overall(nil) = %v, want healthy", got)
	}
	got := Overall(map[string]Result{
		"a": Degraded(""),
		"b": Unhealthy("", nil),
		"c": Healthy(""),
	})
	if got != StatusUnhealthy {
		t.Errorf("Overall() = %v, want unhealthy", got)
	}
}

func TestPingChecker(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	down := func(context.Context) error { return boom }
	up := func(context.Context) error { return nil }

	if got := PingChecker("cache", Critical, down).Check(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("critical down = %v, want unhealthy", got)
	}
	if got := PingChecker("cache", Optional, down).Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("optional down = %v, want degraded", got)
	}
	if got := PingChecker("cache", Critical, up).Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("up = %v, want healthy", got)
	}
}
