package mlops

import (
	"context"
	"sync"
	"time"
)

// slidingLimiter allows n calls per sliding window and makes the next
// caller sleep until the oldest recorded call leaves the window. Unlike a
// token bucket, a burst of n calls blocks the n+1th for the full remainder
// of the window, which is the contract GitHub applies to its secondary rate
// limits.
type slidingLimiter struct {
	mu     sync.Mutex
	n      int
	window time.Duration
	calls  []time.Time

	// Overridable for deterministic tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func newSlidingLimiter(n int, window time.Duration) *slidingLimiter {
	return &slidingLimiter{
		n:      n,
		window: window,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// wait blocks until a call slot is free, then records the call. A limiter
// with n <= 0 never limits.
func (l *slidingLimiter) wait(ctx context.Context) error {
	if l.n <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.now()

		kept := l.calls[:0]
		for _, c := range l.calls {
			if now.Sub(c) < l.window {
				kept = append(kept, c)
			}
		}
		l.calls = kept

		if len(l.calls) < l.n {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		wakeAt := l.calls[0].Add(l.window)
		l.mu.Unlock()

		if err := l.sleep(ctx, wakeAt.Sub(now)); err != nil {
			return err
		}
	}
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
