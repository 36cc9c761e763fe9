package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	ctx := context.Background()
	calls := 0

	err := Do(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	ctx := context.Background()
	calls := 0
	permanent := errors.New("bad input")

	err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func(context.Context) error {
		calls++
		return permanent
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("permanent error should stop after first attempt, got %d", calls)
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error in chain, got %v", err)
	}
}

func TestDoExhaustionAggregatesAttempts(t *testing.T) {
	ctx := context.Background()
	calls := 0

	err := Do(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil, func(context.Context) error {
		calls++
		return errors.New("smtp unreachable")
	})
	if err == nil {
		t.Fatal("expected terminal error after exhaustion")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if got := strings.Count(err.Error(), "smtp unreachable"); got != 3 {
		t.Fatalf("expected 3 aggregated attempt errors, got %d in %q", got, err.Error())
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Policy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}, nil, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("cancellation should stop retries, got %d attempts", calls)
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	if p.MaxAttempts != 1 {
		t.Fatalf("expected single attempt default, got %d", p.MaxAttempts)
	}
	if p.BaseDelay != 500*time.Millisecond {
		t.Fatalf("expected 500ms base delay default, got %v", p.BaseDelay)
	}
}
