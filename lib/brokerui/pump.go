// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// Engine is what the model reads and drives. *engine.Engine satisfies
// it.
type Engine interface {
	Snapshot() livestate.Snapshot
	Changed() <-chan struct{}
	Done() <-chan struct{}
	Submit(engine.Command) error
}

// snapshotMsg carries a fresh snapshot and the channel that closes on
// the next change after it.
type snapshotMsg struct {
	snapshot livestate.Snapshot
	next     <-chan struct{}
}

// engineDoneMsg reports that the engine shut down underneath the UI.
type engineDoneMsg struct{}

// snapshotPump turns store change notifications into snapshotMsgs,
// coalescing bursts so the model repaints at most limit times a
// second. Only one wait is outstanding at a time, so changes that land
// while the model is busy collapse into a single snapshot.
type snapshotPump struct {
	source  Engine
	limiter *rate.Limiter
}

func newSnapshotPump(source Engine, perSecond float64) *snapshotPump {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &snapshotPump{source: source, limiter: rate.NewLimiter(limit, 1)}
}

// read takes the change channel before the snapshot so a change that
// lands between the two is never missed.
func (pump *snapshotPump) read() snapshotMsg {
	next := pump.source.Changed()
	return snapshotMsg{snapshot: pump.source.Snapshot(), next: next}
}

func (pump *snapshotPump) first() tea.Cmd {
	return func() tea.Msg {
		pump.limiter.Allow()
		return pump.read()
	}
}

func (pump *snapshotPump) wait(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changed:
		case <-pump.source.Done():
			return engineDoneMsg{}
		}
		if err := pump.limiter.Wait(context.Background()); err != nil {
			return engineDoneMsg{}
		}
		return pump.read()
	}
}
