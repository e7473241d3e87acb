// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backoff computes capped, jittered exponential retry delays.
// The session reconnect loop, the per-topic stream retry loop and the
// producer's per-send retries all share this policy so that clients
// hammering an unhealthy cluster spread their retries out instead of
// arriving in lockstep.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Policy describes a retry schedule. The nth delay (zero-based) is
// Initial * 2^n capped at Max, then scaled by a uniform factor in
// [1-Jitter, 1+Jitter].
type Policy struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

// DefaultPolicy starts at one second, caps at thirty and jitters by
// twenty percent either way.
var DefaultPolicy = Policy{
	Initial: time.Second,
	Max:     30 * time.Second,
	Jitter:  0.2,
}

// Backoff walks a Policy. It is not safe for concurrent use; each
// retry loop owns its own.
type Backoff struct {
	policy  Policy
	current time.Duration
	attempt int

	// random returns a value in [0, 1). Replaced in tests.
	random func() float64
}

// New returns a Backoff positioned at the first delay of policy.
// Missing fields fall back to DefaultPolicy.
func New(policy Policy) *Backoff {
	if policy.Initial <= 0 {
		policy.Initial = DefaultPolicy.Initial
	}
	if policy.Max < policy.Initial {
		policy.Max = max(DefaultPolicy.Max, policy.Initial)
	}
	if policy.Jitter < 0 || policy.Jitter >= 1 {
		policy.Jitter = DefaultPolicy.Jitter
	}
	return &Backoff{
		policy:  policy,
		current: policy.Initial,
		random:  rand.Float64,
	}
}

// Next returns the delay to wait before the next attempt and advances
// the schedule.
func (b *Backoff) Next() time.Duration {
	base := b.current
	b.attempt++
	if b.current < b.policy.Max {
		b.current = min(b.current*2, b.policy.Max)
	}

	if b.policy.Jitter == 0 {
		return base
	}
	factor := 1 - b.policy.Jitter + 2*b.policy.Jitter*b.random()
	return time.Duration(float64(base) * factor)
}

// Attempts returns how many delays Next has handed out since the last
// Reset.
func (b *Backoff) Attempts() int { return b.attempt }

// Reset returns the schedule to its first delay. Call after a success.
func (b *Backoff) Reset() {
	b.current = b.policy.Initial
	b.attempt = 0
}

// Bounds returns the smallest and largest delay the nth (zero-based)
// call to Next can produce.
func (p Policy) Bounds(n int) (time.Duration, time.Duration) {
	base := p.Initial
	for index := 0; index < n && base < p.Max; index++ {
		base = min(base*2, p.Max)
	}
	low := time.Duration(float64(base) * (1 - p.Jitter))
	high := time.Duration(float64(base) * (1 + p.Jitter))
	return low, high
}
