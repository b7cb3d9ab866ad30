package framerate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoopStopsOnTickError(t *testing.T) {
	loop := New(Options{Interval: time.Millisecond}, zerolog.Nop())
	boom := errors.New("boom")

	calls := 0
	err := loop.Run(context.Background(), func(ctx context.Context, now time.Time) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want tick error", err)
	}
	if calls != 3 {
		t.Fatalf("tick called %d times, want 3", calls)
	}
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	loop := New(Options{Interval: time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	err := loop.Run(ctx, func(ctx context.Context, now time.Time) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoopStartupDelayCancellable(t *testing.T) {
	loop := New(Options{Interval: time.Millisecond, StartupDelay: time.Minute}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Run(ctx, func(ctx context.Context, now time.Time) error {
		t.Fatal("tick must not run before the startup delay")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
