// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HeatDecayDuration is how long a record glows after it arrives.
// Heat starts at 1.0 and decays linearly to 0.0 over this duration.
const HeatDecayDuration = 3 * time.Second

// HeatTickInterval is the re-render interval while anything is hot.
const HeatTickInterval = 100 * time.Millisecond

// HeatKind selects the glow color.
type HeatKind int

const (
	// HeatArrival marks a record read from the broker.
	HeatArrival HeatKind = iota
	// HeatProduced marks a record this session sent.
	HeatProduced
)

type heatEntry struct {
	ignition time.Time
	kind     HeatKind
}

// HeatTracker maps row keys to ignition times. Keys are whatever the
// caller uses to identify a row, such as "topic/partition/offset".
type HeatTracker struct {
	entries map[string]heatEntry
}

// NewHeatTracker creates an empty heat tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{entries: make(map[string]heatEntry)}
}

// Ignite records an arrival. Igniting a key that is already hot
// restarts its decay.
func (tracker *HeatTracker) Ignite(key string, kind HeatKind, now time.Time) {
	tracker.entries[key] = heatEntry{ignition: now, kind: kind}
}

// Heat returns 1.0 at ignition decaying linearly to 0.0 over
// [HeatDecayDuration], and 0.0 for unknown keys.
func (tracker *HeatTracker) Heat(key string, now time.Time) float64 {
	entry, exists := tracker.entries[key]
	if !exists {
		return 0.0
	}
	elapsed := now.Sub(entry.ignition)
	if elapsed >= HeatDecayDuration || elapsed < 0 {
		return 0.0
	}
	return 1.0 - float64(elapsed)/float64(HeatDecayDuration)
}

// Background returns the tint for a row, or false when it is cold.
// Rows glow at full tint for the first half of the decay and lose it
// after that; 256-color terminals have no smooth fade between two
// background codes.
func (tracker *HeatTracker) Background(theme Theme, key string, now time.Time) (lipgloss.Color, bool) {
	if tracker.Heat(key, now) < 0.5 {
		return "", false
	}
	if tracker.entries[key].kind == HeatProduced {
		return theme.HotAccentProduced, true
	}
	return theme.HotAccentArrival, true
}

// HasHot reports whether anything still glows, so the caller knows to
// keep ticking. Fully decayed entries are dropped.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	hot := false
	for key, entry := range tracker.entries {
		if now.Sub(entry.ignition) < HeatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.entries, key)
	}
	return hot
}

// Len returns the number of tracked keys, hot or not yet collected.
func (tracker *HeatTracker) Len() int {
	return len(tracker.entries)
}
