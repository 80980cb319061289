package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterCapsConcurrency(t *testing.T) {
	const limit = 2
	const callers = 8
	l := NewLimiter(limit)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > limit {
		t.Errorf("peak concurrency = %d, want <= %d", p, limit)
	}
	if l.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all calls returned", l.InFlight())
	}
}

func TestLimiterCanceledWhileWaiting(t *testing.T) {
	l := NewLimiter(1)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.Do(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Do(ctx, func() error {
		t.Error("fn must not run without a slot")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
}

func TestLimiterPropagatesError(t *testing.T) {
	l := NewLimiter(1)
	boom := errors.New("boom")
	if err := l.Do(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Do() = %v, want boom", err)
	}
}

func TestLimiterClampAndNil(t *testing.T) {
	if got := NewLimiter(0).Limit(); got != 1 {
		t.Errorf("Limit() = %d, want 1", got)
	}

	var l *Limiter
	called := false
	if err := l.Do(context.Background(), func() error { called = true; return nil }); err != nil || !called {
		t.Errorf("nil limiter: called=%v err=%v", called, err)
	}
}

func TestLimiterSlotHeldUntilReleased(t *testing.T) {
	l := NewLimiter(1)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	finished := make(chan struct{})
	// Work that ignores its caller keeps the slot until it returns.
	go func() {
		defer release()
		time.Sleep(50 * time.Millisecond)
		close(finished)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire while held = %v, want context.DeadlineExceeded", err)
	}
	if got := l.InFlight(); got != 1 {
		t.Errorf("InFlight() = %d, want 1", got)
	}

	<-finished
	again, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
	again()
	release()
	if got := l.InFlight(); got != 0 {
		t.Errorf("InFlight() = %d after double release, want 0", got)
	}
}
