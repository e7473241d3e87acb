// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package livestate

import (
	"slices"
	"sync"
)

// Snapshot is an immutable, consistent copy of the shared state at one
// version. Slices and maps in a snapshot may be shared with other
// snapshots of the same version; treat them as read-only.
type Snapshot struct {
	Version    uint64
	Connection Connection

	// Topics is sorted by name.
	Topics  []TopicSummary
	Brokers []Broker
	Groups  []ConsumerGroup

	// OpenTopic is the focused topic ("" when none) and
	// OpenTopicDetail its partition detail, nil until fetched.
	OpenTopic       string
	OpenTopicDetail *TopicDetail

	// Buffers holds each open topic's records, oldest first.
	Buffers map[string][]MessageRecord
	Streams map[string]StreamStatus

	// PendingSends lists tracked sends in submission order, including
	// terminal ones not yet reclaimed.
	PendingSends []SendResult
}

// Topic looks up a topic in the catalog.
func (snapshot Snapshot) Topic(name string) (TopicSummary, bool) {
	for _, topic := range snapshot.Topics {
		if topic.Name == name {
			return topic, true
		}
	}
	return TopicSummary{}, false
}

// Send looks up a tracked send by request id.
func (snapshot Snapshot) Send(id string) (SendResult, bool) {
	for _, send := range snapshot.PendingSends {
		if send.ID == id {
			return send, true
		}
	}
	return SendResult{}, false
}

// Store owns the shared state. All access is serialized by one mutex;
// the critical section of a read is the copy, the critical section of
// a write is the mutation function.
type Store struct {
	mu      sync.Mutex
	state   State
	version uint64
	changed chan struct{}

	// cached is the snapshot of the current version, built lazily.
	cached *Snapshot
}

// NewStore returns an empty store at version 0 with the connection
// Disconnected.
func NewStore() *Store {
	store := &Store{changed: make(chan struct{})}
	store.state.init()
	return store
}

// Apply runs mutation under the store lock. If mutation reports a
// change the version is bumped and waiters on [Store.Changed] are
// released. Mutations must be short and must not block.
func (store *Store) Apply(mutation func(*State) bool) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	if !mutation(&store.state) {
		return false
	}
	store.version++
	store.cached = nil
	close(store.changed)
	store.changed = make(chan struct{})
	return true
}

// Read runs inspect under the store lock without changing anything.
func (store *Store) Read(inspect func(*State)) {
	store.mu.Lock()
	defer store.mu.Unlock()
	inspect(&store.state)
}

// Version returns the current version.
func (store *Store) Version() uint64 {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.version
}

// Changed returns a channel that is closed on the next version bump.
func (store *Store) Changed() <-chan struct{} {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.changed
}

// Snapshot returns a consistent copy of the current state. Repeated
// calls at the same version return the same cached copy.
func (store *Store) Snapshot() Snapshot {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.cached == nil {
		snapshot := store.state.snapshot(store.version)
		store.cached = &snapshot
	}
	return *store.cached
}

func (state *State) snapshot(version uint64) Snapshot {
	snapshot := Snapshot{
		Version:    version,
		Connection: state.Connection(),
		Topics:     slices.Clone(state.topics),
		Brokers:    slices.Clone(state.brokers),
		Groups:     make([]ConsumerGroup, len(state.groups)),
		OpenTopic:  state.openTopic,
		Buffers:    make(map[string][]MessageRecord, len(state.streams)),
		Streams:    make(map[string]StreamStatus, len(state.streams)),
	}
	for i, group := range state.groups {
		group.Members = slices.Clone(group.Members)
		snapshot.Groups[i] = group
	}
	if state.detail != nil {
		detail := *state.detail
		detail.Partitions = slices.Clone(detail.Partitions)
		snapshot.OpenTopicDetail = &detail
	}
	for topic, stream := range state.streams {
		snapshot.Streams[topic] = stream.status
		snapshot.Buffers[topic] = stream.records.Slice()
	}
	snapshot.PendingSends = make([]SendResult, 0, len(state.sendOrder))
	for _, id := range state.sendOrder {
		snapshot.PendingSends = append(snapshot.PendingSends, *state.sends[id])
	}
	return snapshot
}
