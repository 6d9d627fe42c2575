package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryChecker compares the live heap against a byte budget.
type MemoryChecker struct {
	maxAlloc uint64
	warn     float64
	critical float64
	read     func(*runtime.MemStats)
}

// NewMemoryChecker creates a checker that degrades at warn and fails at
// critical, both fractions of maxAlloc. A zero maxAlloc uses the memory
// obtained from the OS as the budget.
func NewMemoryChecker(maxAlloc uint64, warn, critical float64) *MemoryChecker {
	if warn <= 0 || warn >= 1 {
		warn = 0.8
	}
	if critical <= warn || critical > 1 {
		critical = min(warn+0.15, 0.99)
	}
	return &MemoryChecker{maxAlloc: maxAlloc, warn: warn, critical: critical, read: runtime.ReadMemStats}
}

// Name returns "memory".
func (m *MemoryChecker) Name() string { return "memory" }

// Check reads runtime memory statistics.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.read(&stats)

	budget := m.maxAlloc
	if budget == 0 {
		budget = stats.Sys
	}
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	ratio := float64(stats.HeapAlloc) / float64(budget)
	details := map[string]any{
		"heap_alloc":    stats.HeapAlloc,
		"budget":        budget,
		"usage_percent": ratio * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	switch {
	case ratio >= m.critical:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.warn:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
