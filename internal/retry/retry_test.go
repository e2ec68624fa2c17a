package retry

import (
	"context"
	"testing"
	"time"

	"github.com/parleyhq/parley/internal/errors"
)

// fakeClock records requested sleep durations without sleeping.
type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func TestDoValue_SuccessFirstTry(t *testing.T) {
	clock := &fakeClock{}
	opts := Options{MaxRetries: 3, Sleep: clock.sleep}

	calls := 0
	v, err := DoValue(context.Background(), opts, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("value = %q, want ok", v)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(clock.slept) != 0 {
		t.Errorf("unexpected backoff: %v", clock.slept)
	}
}

func TestDoValue_RetriesTransientWithExponentialBackoff(t *testing.T) {
	clock := &fakeClock{}
	opts := Options{MaxRetries: 2, BaseDelay: time.Second, Sleep: clock.sleep}

	calls := 0
	_, err := DoValue(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.ErrRateLimited
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(clock.slept) != len(want) {
		t.Fatalf("slept %v, want %v", clock.slept, want)
	}
	for i := range want {
		if clock.slept[i] != want[i] {
			t.Errorf("slept[%d] = %v, want %v", i, clock.slept[i], want[i])
		}
	}
}

func TestDoValue_ExhaustedReturnsLastError(t *testing.T) {
	clock := &fakeClock{}
	opts := Options{MaxRetries: 2, Sleep: clock.sleep}

	calls := 0
	_, err := DoValue(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.ErrRateLimited
	})
	if !errors.Is(err, errors.ErrRateLimited) {
		t.Fatalf("error = %v, want rate limited", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestDoValue_NonRetryableFailsImmediately(t *testing.T) {
	clock := &fakeClock{}
	opts := Options{MaxRetries: 5, Sleep: clock.sleep}

	boom := errors.New("boom")
	calls := 0
	_, err := DoValue(context.Background(), opts, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(clock.slept) != 0 {
		t.Errorf("unexpected backoff: %v", clock.slept)
	}
}

func TestDoValue_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := Options{
		MaxRetries: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := DoValue(ctx, opts, func(ctx context.Context) (int, error) {
		return 0, errors.ErrRateLimited
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDo(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 1, Sleep: clock.sleep}, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.ErrRateLimited
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
