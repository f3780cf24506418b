package mlops

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// PollState describes the outcome of one readiness check.
type PollState int

const (
	// PollPending means the operation is still in progress.
	PollPending PollState = iota
	// PollSucceeded means the operation reached its terminal success state.
	PollSucceeded
	// PollFailed means the operation reached a terminal failure state.
	PollFailed
)

// CheckFunc reports the state of an awaited operation. A returned error
// counts as transient: it consumes one interval and polling continues, so a
// throttled Describe call does not abort a creation that is still healthy.
type CheckFunc func(ctx context.Context) (PollState, string, error)

// AwaitConfig tunes the polling loop. Zero values fall back to the
// defaults below.
type AwaitConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// AwaitResult is the final outcome of a polling loop.
type AwaitResult struct {
	State  PollState
	Reason string
	// TimedOut is set when the budget ran out while the operation was
	// still pending. The server-side operation keeps running; callers
	// report it as accepted instead of failed.
	TimedOut bool
}

const (
	defaultPollInterval = 10 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// Await polls check at a fixed interval until it reports a terminal state,
// the timeout budget runs out, or ctx is canceled. The first check runs
// immediately. Await never cancels the operation it is watching.
func Await(ctx context.Context, cfg AwaitConfig, check CheckFunc) (AwaitResult, error) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Burst 1 with a full bucket makes the first check immediate; every
	// later Wait blocks one interval. Wait also refuses to sleep past the
	// deadline, which ends the loop as soon as no further check can run.
	pace := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := pace.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return AwaitResult{}, errors.Wrap(ctx.Err(), "awaiting operation")
			}
			return AwaitResult{State: PollPending, TimedOut: true}, nil
		}

		state, reason, err := check(pollCtx)
		if err != nil {
			continue
		}

		if state == PollSucceeded || state == PollFailed {
			return AwaitResult{State: state, Reason: reason}, nil
		}
	}
}
