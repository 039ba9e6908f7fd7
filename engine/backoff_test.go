package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestIntraCallDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1000 * time.Millisecond},
		{2, 2000 * time.Millisecond},
		{3, 4000 * time.Millisecond},
		{4, 8000 * time.Millisecond},
		{0, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := IntraCallDelay(time.Second, tt.attempt); got != tt.want {
			t.Errorf("IntraCallDelay(1s, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIntraCallDelay_Saturates(t *testing.T) {
	ceiling := time.Duration(math.MaxInt64)
	tests := []struct {
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{time.Second, 35, ceiling},
		{time.Second, 64, ceiling},
		{time.Second, 1000, ceiling},
		{time.Nanosecond, 63, 1 << 62},
		{0, 10, 0},
		{-time.Second, 3, 0},
	}

	for _, tt := range tests {
		if got := IntraCallDelay(tt.base, tt.attempt); got != tt.want {
			t.Errorf("IntraCallDelay(%v, %d) = %v, want %v", tt.base, tt.attempt, got, tt.want)
		}
	}
}

func TestInterRoundDelay(t *testing.T) {
	for round := 1; round <= 5; round++ {
		want := time.Duration(round*10000) * time.Millisecond
		if got := InterRoundDelay(DefaultRoundStep, round); got != want {
			t.Errorf("InterRoundDelay(10s, %d) = %v, want %v", round, got, want)
		}
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var slept []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := Retry(context.Background(), sleep, 3, time.Second, "navigate", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestRetry_ReturnsLastErrorWithoutTrailingSleep(t *testing.T) {
	sleeps := 0
	sleep := func(_ context.Context, _ time.Duration) error {
		sleeps++
		return nil
	}

	calls := 0
	err := Retry(context.Background(), sleep, 3, time.Millisecond, "navigate", func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Retry error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if sleeps != 2 {
		t.Errorf("slept %d times, want 2", sleeps)
	}
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, nil, 5, time.Hour, "navigate", func() error {
		calls++
		cancel()
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times after cancel, want 1", calls)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on cancelled ctx = %v, want context.Canceled", err)
	}
}
