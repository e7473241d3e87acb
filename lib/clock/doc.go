// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that every timer
// in the live session engine (metadata refresh interval, reconnect
// backoff, stream retry backoff, send-result reclamation) can be driven
// deterministically in tests.
//
// Production code holds a Clock and never calls time.Now, time.After
// or time.NewTimer directly:
//
//	type Session struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production pass [Real]. In tests pass [Fake] and drive it:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go session.Run(ctx)
//	fake.WaitForTimers(1)      // the loop is now parked on its interval
//	fake.Advance(5 * time.Second)
//
// WaitForTimers removes the race between a goroutine arming a timer and
// the test advancing time. Stopped timers are not counted, so code that
// abandons a wait (for example on context cancellation) should use
// NewTimer and Stop rather than After.
package clock
