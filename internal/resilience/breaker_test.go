package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errTest = errors.New("service unavailable")

func trip(b *Breaker, n int) {
	for range n {
		_ = b.Execute(func() error { return errTest })
	}
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if b.State() != StateClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	trip(b, 3)

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.Healthy() {
		t.Error("open breaker should not be healthy")
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second).WithClock(func() time.Time { return now })
	trip(b, 2)

	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half_open after timeout, got %s", b.State())
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe should pass, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("successful probe should close, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second).WithClock(func() time.Time { return now })
	trip(b, 2)

	now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return errTest })

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("failed probe should reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)
	trip(b, 2)
	_ = b.Execute(func() error { return nil })
	trip(b, 2)

	if b.State() != StateClosed {
		t.Errorf("non-consecutive failures should not open, got %s", b.State())
	}
}

func TestCancellationNotCounted(t *testing.T) {
	b := NewBreaker(1, time.Second)
	err := b.Execute(func() error { return fmt.Errorf("call: %w", context.Canceled) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation passthrough, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("cancellation should not trip the breaker, got %s", b.State())
	}
}
