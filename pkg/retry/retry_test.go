package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoExhaustsAttempts(t *testing.T) {
	var waits []time.Duration
	p := New(3, Linear(2*time.Second))
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	calls := 0
	boom := errors.New("boom")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	// Linear backoff between attempts, none after the last.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestDoSucceedsMidway(t *testing.T) {
	var waits []time.Duration
	p := New(5, Linear(2*time.Second))
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 waits, got %v", waits)
	}
}

func TestDoFirstAttemptSuccess(t *testing.T) {
	p := New(3, Linear(time.Second))
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatal("should not wait after a success")
		return nil
	}

	calls := 0
	if err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestDoCanceledDuringBackoff(t *testing.T) {
	p := New(3, Linear(time.Second))
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt before cancel, got %d", calls)
	}
}

func TestNewClampsAttempts(t *testing.T) {
	p := New(0, nil)
	if p.Attempts != 1 {
		t.Fatalf("expected at least 1 attempt, got %d", p.Attempts)
	}
}
