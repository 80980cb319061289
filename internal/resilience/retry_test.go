package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBadInput = errors.New("bad input")

func fastPolicy(n int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     n,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	v, attempts, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errTest
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if v != "ok" || attempts != 2 {
		t.Errorf("expected ok after 2 attempts, got %q after %d", v, attempts)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	_, attempts, err := Retry(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		return 0, errTest
	})
	if !errors.Is(err, errTest) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPermanentNotRetried(t *testing.T) {
	p := fastPolicy(5)
	p.Permanent = func(err error) bool { return errors.Is(err, errBadInput) }

	_, attempts, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		return 0, errBadInput
	})
	if !errors.Is(err, errBadInput) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("permanent error should stop after 1 attempt, got %d", attempts)
	}
}

func TestRetrySingleAttempt(t *testing.T) {
	_, attempts, err := Retry(context.Background(), RetryPolicy{}, func(context.Context) (int, error) {
		return 0, errTest
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("zero policy means one attempt, got %d", attempts)
	}
}

func TestRetryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, _, err := Retry(ctx, fastPolicy(4), func(ctx context.Context) (int, error) {
		attempts++
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts > 1 {
		t.Errorf("canceled context should not retry, got %d attempts", attempts)
	}
}

func TestRetryOnRetryHook(t *testing.T) {
	p := fastPolicy(3)
	var seen []int
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { seen = append(seen, attempt) }

	_, _, _ = Retry(context.Background(), p, func(context.Context) (int, error) { return 0, errTest })

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected hooks after attempts 1 and 2, got %v", seen)
	}
}
