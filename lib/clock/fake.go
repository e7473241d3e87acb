// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock set to initial. Time only moves when
// Advance is called. FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{now: initial}
	fake.armed = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a deterministic Clock for tests.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	armed   *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	channel  chan time.Time
	done     bool
}

// Now returns the current fake time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After arms a timer and returns its channel.
func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	return f.NewTimer(d).C
}

// NewTimer arms a one-shot timer. A non-positive d fires before
// NewTimer returns and is never counted as pending.
func (f *FakeClock) NewTimer(d time.Duration) *Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	timer := &fakeTimer{
		deadline: f.now.Add(d),
		channel:  make(chan time.Time, 1),
	}
	if d <= 0 {
		timer.done = true
		timer.channel <- f.now
	} else {
		f.pending = append(f.pending, timer)
		f.armed.Broadcast()
	}

	return &Timer{
		C: timer.channel,
		stop: func() bool {
			f.mu.Lock()
			defer f.mu.Unlock()
			if timer.done {
				return false
			}
			timer.done = true
			f.prune()
			return true
		},
	}
}

// Advance moves time forward by d and fires, in deadline order, every
// timer whose deadline is not after the new time.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	for _, timer := range f.pending {
		if !timer.done && !timer.deadline.After(now) {
			timer.done = true
			due = append(due, timer)
		}
	}
	f.prune()
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, timer := range due {
		timer.channel <- now
	}
}

// WaitForTimers blocks until at least n timers are pending.
func (f *FakeClock) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) < n {
		f.armed.Wait()
	}
}

// Pending returns the number of armed, unfired, unstopped timers.
func (f *FakeClock) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// prune drops finished timers. Caller holds f.mu.
func (f *FakeClock) prune() {
	kept := f.pending[:0]
	for _, timer := range f.pending {
		if !timer.done {
			kept = append(kept, timer)
		}
	}
	for index := len(kept); index < len(f.pending); index++ {
		f.pending[index] = nil
	}
	f.pending = kept
}
