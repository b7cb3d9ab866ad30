package framerate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per frame interval.
type TickFunc func(ctx context.Context, now time.Time) error

// Options tune the frame loop.
type Options struct {
	// Interval is the frame period, the inverse of the capture rate.
	Interval     time.Duration
	StartupDelay time.Duration
}

// Loop drives the pipeline at a fixed frame rate when samples come from a
// local source rather than a camera callback. Each tick must complete well
// inside the frame budget; the loop does not queue missed frames.
type Loop struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a frame loop.
func New(opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		panic("frame interval must be positive")
	}
	return &Loop{opts: opts, logger: logger.With().Str("component", "framerate").Logger()}
}

// Run blocks, invoking tick every frame interval until ctx is cancelled or
// tick returns an error.
func (l *Loop) Run(ctx context.Context, tick TickFunc) error {
	if l.opts.StartupDelay > 0 {
		timer := time.NewTimer(l.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			start := time.Now()
			if err := tick(ctx, now); err != nil {
				return err
			}
			if elapsed := time.Since(start); elapsed > l.opts.Interval {
				l.logger.Warn().
					Dur("elapsed", elapsed).
					Dur("budget", l.opts.Interval).
					Msg("frame processing exceeded frame budget")
			}
		}
	}
}
