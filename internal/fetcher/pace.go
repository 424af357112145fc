package fetcher

import (
	"context"
	"time"

	"reposift/internal/logging"
)

// Pace applies the courtesy throttle after a logical request. Once the
// consecutive-success counter reaches MaxConsecutive it sleeps LongPause and
// resets the counter. Otherwise it sleeps a uniform random delay in
// [MinDelay, MaxDelay] unless last is true.
func (f *Fetcher) Pace(ctx context.Context, last bool) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	if f.opts.MaxConsecutive > 0 && f.consecutive >= f.opts.MaxConsecutive {
		count := f.consecutive
		f.consecutive = 0
		f.mu.Unlock()
		f.logger.Info("long pause after consecutive requests",
			logging.Int("consecutive", count),
			logging.Duration("pause", f.opts.LongPause),
		)
		return f.sleep(ctx, f.opts.LongPause)
	}
	if last {
		f.mu.Unlock()
		return nil
	}
	delay := f.randomDelay()
	f.mu.Unlock()

	f.logger.Debug("inter-request delay", logging.Duration("delay", delay))
	return f.sleep(ctx, delay)
}

// Consecutive reports the current consecutive-success count.
func (f *Fetcher) Consecutive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consecutive
}

// randomDelay must be called with mu held.
func (f *Fetcher) randomDelay() time.Duration {
	lo, hi := f.opts.MinDelay, f.opts.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(f.float64()*float64(hi-lo))
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
