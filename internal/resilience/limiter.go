package resilience

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of agent calls in flight across all queries
// served by the process.
type Limiter struct {
	sem      *semaphore.Weighted
	limit    int
	inFlight atomic.Int64
}

// NewLimiter returns a Limiter admitting at most limit concurrent calls.
// Limits below 1 are raised to 1.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Do waits for a free slot, runs fn and releases the slot. It returns
// ctx.Err() without calling fn if the context ends while waiting.
// A nil Limiter runs fn directly.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Acquire waits for a free slot and returns the func that frees it. The slot
// stays held until release is called, so work that outlives its caller keeps
// counting against the limit. Release is idempotent.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.inFlight.Add(-1)
			l.sem.Release(1)
		})
	}, nil
}

// InFlight returns the number of calls currently holding a slot.
func (l *Limiter) InFlight() int {
	if l == nil {
		return 0
	}
	return int(l.inFlight.Load())
}

// Limit returns the configured capacity.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.limit
}
