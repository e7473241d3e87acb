// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"time"
)

// Clock abstracts the time operations used by the engine.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once d has elapsed. A
	// non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a one-shot timer firing after d. Callers that
	// may abandon the wait must call Stop.
	NewTimer(d time.Duration) *Timer
}

// Timer is a one-shot timer. Read the fire time from C.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped a pending timer.
func (t *Timer) Stop() bool { return t.stop() }

// Sleep waits for d on the given clock or until ctx is done. It
// returns ctx.Err() when the wait was cut short and nil otherwise.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := c.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
