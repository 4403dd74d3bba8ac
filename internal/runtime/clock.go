package runtime

import (
	"context"
	"time"
)

// Clock supplies time to the main loop.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until deadline or ctx is done. A deadline in the
	// past returns immediately.
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// SleepUntil waits on a timer.
func (SystemClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
