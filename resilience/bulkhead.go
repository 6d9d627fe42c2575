package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// Bulkhead caps the number of in-flight calls to one dependency.
type Bulkhead struct {
	sem     chan struct{}
	maxWait time.Duration

	active   atomic.Int64
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead with maxConcurrent slots. A caller waits
// at most maxWait for a slot; zero fails fast.
func NewBulkhead(maxConcurrent int, maxWait time.Duration) *Bulkhead {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Bulkhead{
		sem:     make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return op(ctx)
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		b.active.Add(1)
		return nil
	default:
	}

	if b.maxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.active.Add(1)
		return nil
	case <-timer.C:
		b.rejected.Add(1)
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	b.active.Add(-1)
	<-b.sem
}

// Active returns the number of calls currently holding a slot.
func (b *Bulkhead) Active() int { return int(b.active.Load()) }

// Rejected returns how many calls were turned away.
func (b *Bulkhead) Rejected() int64 { return b.rejected.Load() }

// Capacity returns the slot count.
func (b *Bulkhead) Capacity() int { return cap(b.sem) }
