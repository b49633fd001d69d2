package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", 2, 10*time.Second)
	cb.now = func() time.Time { return *now }
	return cb
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Call(ctx, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected operation error, got %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	called := false
	if err := cb.Call(ctx, func() error { called = true; return nil }); !errors.Is(err, ErrBreakerOpen) || called {
		t.Fatalf("open breaker must reject without calling, got %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	ctx := context.Background()
	boom := errors.New("boom")

	_ = cb.Call(ctx, func() error { return boom })
	_ = cb.Call(ctx, func() error { return boom })

	now = now.Add(11 * time.Second)
	if err := cb.Call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("expected trial call to pass, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful trial, got %s", cb.GetState())
	}
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	ctx := context.Background()
	boom := errors.New("boom")

	_ = cb.Call(ctx, func() error { return boom })
	_ = cb.Call(ctx, func() error { return boom })

	now = now.Add(11 * time.Second)
	_ = cb.Call(ctx, func() error { return boom })

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after failed trial, got %s", cb.GetState())
	}
}

func TestBreakerIgnoresCanceledContext(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_ = cb.Call(ctx, func() error { return ctx.Err() })
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("canceled calls must not open the breaker")
	}
}
