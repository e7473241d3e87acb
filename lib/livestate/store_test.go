// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package livestate

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/brokerview/lib/testutil"
)

func record(partition int32, offset int64) MessageRecord {
	return MessageRecord{Partition: partition, Offset: offset, Value: []byte("v")}
}

func offsets(records []MessageRecord) []int64 {
	out := make([]int64, len(records))
	for i, record := range records {
		out[i] = record.Offset
	}
	return out
}

func TestApplyBumpsVersionOnlyOnChange(t *testing.T) {
	store := NewStore()
	if store.Version() != 0 {
		t.Fatalf("initial version = %d, want 0", store.Version())
	}

	if store.Apply(func(*State) bool { return false }) {
		t.Fatal("Apply reported a change for a no-op mutation")
	}
	if store.Version() != 0 {
		t.Fatalf("version after no-op = %d, want 0", store.Version())
	}

	store.Apply(func(state *State) bool { return state.Transition(Connecting) })
	if store.Version() != 1 {
		t.Fatalf("version after transition = %d, want 1", store.Version())
	}

	// Same transition again is not a change.
	store.Apply(func(state *State) bool { return state.Transition(Connecting) })
	if store.Version() != 1 {
		t.Fatalf("version after repeated transition = %d, want 1", store.Version())
	}
}

func TestChangedClosesOnBump(t *testing.T) {
	store := NewStore()
	changed := store.Changed()

	select {
	case <-changed:
		t.Fatal("Changed closed before any mutation")
	default:
	}

	store.Apply(func(state *State) bool { return state.SetTarget([]string{"a:9092"}, "") })
	testutil.RequireClosed(t, changed, time.Second, "Changed after mutation")

	if store.Changed() == changed {
		t.Fatal("Changed returned the already-closed channel after a bump")
	}
}

func TestSnapshotIsCachedAndIsolated(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool {
		return state.ReplaceTopics([]TopicSummary{{Name: "b"}, {Name: "a"}}, time.Unix(10, 0))
	})

	first := store.Snapshot()
	second := store.Snapshot()
	if first.Version != second.Version || &first.Topics[0] != &second.Topics[0] {
		t.Fatal("snapshots at the same version should share the cached copy")
	}
	if first.Topics[0].Name != "a" || first.Topics[1].Name != "b" {
		t.Fatalf("topics not sorted: %+v", first.Topics)
	}

	store.Apply(func(state *State) bool {
		return state.ReplaceTopics([]TopicSummary{{Name: "c"}}, time.Unix(20, 0))
	})
	if len(first.Topics) != 2 || first.Topics[0].Name != "a" {
		t.Fatalf("older snapshot changed after mutation: %+v", first.Topics)
	}
	third := store.Snapshot()
	if third.Version <= first.Version {
		t.Fatalf("version did not increase: %d then %d", first.Version, third.Version)
	}
	if len(third.Topics) != 1 || third.Topics[0].Name != "c" {
		t.Fatalf("new snapshot topics = %+v", third.Topics)
	}
}

// TestReplaceCatalogReportsChanges checks that topic, broker and group
// replacement only bump the version when something visible differs.
func TestReplaceCatalogReportsChanges(t *testing.T) {
	state := &State{}
	state.init()
	topics := []TopicSummary{{Name: "orders", Partitions: 3}, {Name: "audit"}}
	refreshed := time.Unix(10, 0)

	if !state.ReplaceTopics(topics, refreshed) {
		t.Fatal("first topic catalog should be a change")
	}
	if state.ReplaceTopics(slices.Clone(topics), refreshed) {
		t.Fatal("identical catalog and refresh time should not be a change")
	}
	if !state.ReplaceTopics(topics, refreshed.Add(time.Second)) {
		t.Fatal("a newer refresh time should be a change")
	}
	if !state.ReplaceTopics([]TopicSummary{{Name: "orders", Partitions: 6}}, refreshed.Add(time.Second)) {
		t.Fatal("a different catalog should be a change")
	}

	brokers := []Broker{{ID: 2, Host: "b"}, {ID: 1, Host: "a"}}
	if !state.ReplaceBrokers(brokers) || state.ReplaceBrokers(slices.Clone(brokers)) {
		t.Fatal("broker replacement should report only the first install")
	}

	groups := []ConsumerGroup{{Name: "viewer", State: "Stable", Members: []GroupMember{{MemberID: "m1"}}}}
	if !state.ReplaceGroups(groups) {
		t.Fatal("first group list should be a change")
	}
	if state.ReplaceGroups([]ConsumerGroup{{Name: "viewer", State: "Stable", Members: []GroupMember{{MemberID: "m1"}}}}) {
		t.Fatal("identical group list should not be a change")
	}
	if !state.ReplaceGroups([]ConsumerGroup{{Name: "viewer", State: "Empty"}}) {
		t.Fatal("a group state change should be a change")
	}
}

func TestConnectionTransitions(t *testing.T) {
	tests := []struct {
		from, to ConnectionState
		allowed  bool
	}{
		{Disconnected, Connecting, true},
		{Disconnected, Connected, false},
		{Disconnected, Failing, false},
		{Connecting, Connected, true},
		{Connecting, Failing, true},
		{Connecting, Disconnected, true},
		{Connected, Failing, true},
		{Connected, Disconnected, true},
		{Connected, Connecting, false},
		{Failing, Connecting, true},
		{Failing, Connected, false},
		{Failing, Disconnected, true},
		{Connected, Connected, false},
	}
	for _, test := range tests {
		if got := CanTransition(test.from, test.to); got != test.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", test.from, test.to, got, test.allowed)
		}
	}
}

func TestIllegalTransitionLeavesStateAlone(t *testing.T) {
	store := NewStore()
	if store.Apply(func(state *State) bool { return state.Transition(Connected) }) {
		t.Fatal("Disconnected -> Connected should be rejected")
	}
	if got := store.Snapshot().Connection.State; got != Disconnected {
		t.Fatalf("state = %s, want disconnected", got)
	}
}

func TestAppendRecordsDiscardsOutOfOrder(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool { return state.StartStream("orders", 1, 10) })

	var accepted, discarded int
	store.Apply(func(state *State) bool {
		accepted, discarded = state.AppendRecords("orders", 1, []MessageRecord{record(0, 10), record(0, 11), record(0, 12)})
		return accepted > 0
	})
	if accepted != 3 {
		t.Fatalf("accepted = %d, want 3", accepted)
	}

	store.Apply(func(state *State) bool {
		accepted, discarded = state.AppendRecords("orders", 1, []MessageRecord{record(0, 9), record(1, 0)})
		return true
	})
	if accepted != 1 || discarded != 1 {
		t.Fatalf("accepted, discarded = %d, %d; want 1, 1 (offset 9 is stale, partition 1 is new)", accepted, discarded)
	}

	snapshot := store.Snapshot()
	got := offsets(snapshot.Buffers["orders"])
	want := []int64{10, 11, 12, 0}
	if len(got) != len(want) {
		t.Fatalf("buffer offsets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buffer offsets = %v, want %v", got, want)
		}
	}
	status := snapshot.Streams["orders"]
	if status.Discarded != 1 {
		t.Fatalf("Discarded = %d, want 1", status.Discarded)
	}
	for _, buffered := range snapshot.Buffers["orders"] {
		if buffered.Topic != "orders" {
			t.Fatalf("record topic = %q, want orders", buffered.Topic)
		}
	}
}

func TestAppendRecordsEvictsAtCapacity(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool { return state.StartStream("logs", 1, 3) })
	store.Apply(func(state *State) bool {
		batch := make([]MessageRecord, 0, 5)
		for offset := range int64(5) {
			batch = append(batch, record(0, offset))
		}
		accepted, _ := state.AppendRecords("logs", 1, batch)
		return accepted > 0
	})
	snapshot := store.Snapshot()
	if got := offsets(snapshot.Buffers["logs"]); len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("buffer offsets = %v, want [2 3 4]", got)
	}
	if evicted := snapshot.Streams["logs"].Evicted; evicted != 2 {
		t.Fatalf("Evicted = %d, want 2", evicted)
	}
}

func TestStaleGenerationIgnored(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool { return state.StartStream("t", 1, 10) })
	store.Apply(func(state *State) bool { return state.StartStream("t", 2, 10) })

	before := store.Version()
	changed := store.Apply(func(state *State) bool {
		accepted, discarded := state.AppendRecords("t", 1, []MessageRecord{record(0, 1)})
		appended := accepted+discarded > 0
		updated := state.SetStreamState("t", 1, StreamStreaming, 0, "")
		removed := state.RemoveStream("t", 1)
		return appended || updated || removed
	})
	if changed || store.Version() != before {
		t.Fatal("updates from a superseded generation changed state")
	}
	if status := store.Snapshot().Streams["t"]; status.Generation != 2 || status.State != StreamStarting {
		t.Fatalf("stream status = %+v, want generation 2 starting", status)
	}
}

func TestStopStreamReleasesBufferAndRejectsRecords(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool {
		state.StartStream("t", 1, 10)
		state.SetOpenTopic("t")
		state.SetTopicDetail(TopicDetail{Topic: "t"})
		accepted, _ := state.AppendRecords("t", 1, []MessageRecord{record(0, 1)})
		return accepted > 0
	})
	store.Apply(func(state *State) bool { return state.StopStream("t") })

	snapshot := store.Snapshot()
	if len(snapshot.Buffers["t"]) != 0 {
		t.Fatalf("buffer not released: %d records", len(snapshot.Buffers["t"]))
	}
	if snapshot.Streams["t"].State != StreamStopping {
		t.Fatalf("state = %s, want stopping", snapshot.Streams["t"].State)
	}
	if snapshot.OpenTopic != "" || snapshot.OpenTopicDetail != nil {
		t.Fatal("closing the focused topic should clear focus and detail")
	}

	if store.Apply(func(state *State) bool {
		accepted, discarded := state.AppendRecords("t", 1, []MessageRecord{record(0, 2)})
		return accepted+discarded > 0
	}) {
		t.Fatal("records accepted into a stopping stream")
	}
	if !store.Apply(func(state *State) bool { return state.RemoveStream("t", 1) }) {
		t.Fatal("RemoveStream of the current generation should succeed")
	}
	if _, ok := store.Snapshot().Streams["t"]; ok {
		t.Fatal("stream entry still present after removal")
	}
}

func TestResumeOffsets(t *testing.T) {
	store := NewStore()
	var resume map[int32]int64
	store.Apply(func(state *State) bool {
		state.StartStream("t", 1, 10)
		state.AppendRecords("t", 1, []MessageRecord{record(0, 4), record(2, 9)})
		resume = state.ResumeOffsets("t", 1)
		return true
	})
	if resume[0] != 5 || resume[2] != 10 || len(resume) != 2 {
		t.Fatalf("ResumeOffsets = %v, want map[0:5 2:10]", resume)
	}
}

func TestTopicDetailOnlyForFocusedTopic(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool { return state.SetOpenTopic("a") })
	if store.Apply(func(state *State) bool { return state.SetTopicDetail(TopicDetail{Topic: "b"}) }) {
		t.Fatal("detail for an unfocused topic was accepted")
	}
	store.Apply(func(state *State) bool {
		return state.SetTopicDetail(TopicDetail{Topic: "a", Partitions: []PartitionDetail{{ID: 1}, {ID: 0}}})
	})
	detail := store.Snapshot().OpenTopicDetail
	if detail == nil || detail.Partitions[0].ID != 0 {
		t.Fatalf("detail = %+v, want partitions sorted by id", detail)
	}
	store.Apply(func(state *State) bool { return state.SetOpenTopic("b") })
	if store.Snapshot().OpenTopicDetail != nil {
		t.Fatal("detail for the previous topic survived a focus change")
	}
}

func TestSendLifecycleAndReclaim(t *testing.T) {
	store := NewStore()
	start := time.Unix(1000, 0)
	store.Apply(func(state *State) bool {
		state.AddSend(SendResult{ID: "one", Topic: "t", RequestedPartition: AnyPartition, SubmittedAt: start})
		state.AddSend(SendResult{ID: "two", Topic: "t", RequestedPartition: AnyPartition, SubmittedAt: start})
		state.AddSend(SendResult{ID: "three", Topic: "t", RequestedPartition: AnyPartition, SubmittedAt: start})
		return true
	})

	var pending int
	store.Read(func(state *State) { pending = state.PendingCount() })
	if pending != 3 {
		t.Fatalf("PendingCount = %d, want 3", pending)
	}

	store.Apply(func(state *State) bool {
		state.MarkInFlight("one", 1)
		state.MarkDelivered("one", 2, 40, start.Add(time.Second))
		state.MarkFailed("two", "boom", start.Add(2*time.Second))
		return true
	})
	if store.Apply(func(state *State) bool { return state.MarkFailed("one", "late", start) }) {
		t.Fatal("terminal send changed state again")
	}

	one, _ := store.Snapshot().Send("one")
	if one.State != SendDelivered || one.Partition != 2 || one.Offset != 40 || one.Attempts != 1 {
		t.Fatalf("send one = %+v", one)
	}

	// Retention: "one" completed 30s before now, "two" 29s before.
	store.Apply(func(state *State) bool {
		return state.ReclaimSends(start.Add(31*time.Second), 30*time.Second, 10)
	})
	snapshot := store.Snapshot()
	if _, ok := snapshot.Send("one"); ok {
		t.Fatal("send past retention was not reclaimed")
	}
	if _, ok := snapshot.Send("two"); !ok {
		t.Fatal("send within retention was reclaimed")
	}
	if _, ok := snapshot.Send("three"); !ok {
		t.Fatal("queued send was reclaimed")
	}

	// A cap of zero drops every terminal send. Queued sends stay.
	store.Apply(func(state *State) bool { return state.ReclaimSends(start.Add(3*time.Second), time.Hour, 0) })
	snapshot = store.Snapshot()
	if len(snapshot.PendingSends) != 1 || snapshot.PendingSends[0].ID != "three" {
		t.Fatalf("PendingSends = %+v, want only the queued send", snapshot.PendingSends)
	}
}

func TestDeliveredRecordTaggedProduced(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool {
		state.StartStream("t", 1, 10)
		state.AddSend(SendResult{ID: "s", Topic: "t", RequestedPartition: AnyPartition})
		state.MarkDelivered("s", 0, 7, time.Unix(1, 0))
		state.AppendRecords("t", 1, []MessageRecord{record(0, 6), record(0, 7)})
		return true
	})
	buffer := store.Snapshot().Buffers["t"]
	if buffer[0].Origin != OriginConsumed || buffer[1].Origin != OriginProduced {
		t.Fatalf("origins = %s, %s; want consumed, produced", buffer[0].Origin, buffer[1].Origin)
	}
}

func TestConcurrentApplyAndSnapshot(t *testing.T) {
	store := NewStore()
	store.Apply(func(state *State) bool { return state.StartStream("t", 1, 50) })

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for offset := range int64(500) {
			store.Apply(func(state *State) bool {
				accepted, _ := state.AppendRecords("t", 1, []MessageRecord{record(0, offset)})
				return accepted > 0
			})
		}
	}()
	go func() {
		defer wg.Done()
		var last uint64
		for range 500 {
			snapshot := store.Snapshot()
			if snapshot.Version < last {
				t.Errorf("version went backwards: %d after %d", snapshot.Version, last)
				return
			}
			last = snapshot.Version
			buffer := snapshot.Buffers["t"]
			if len(buffer) > 50 {
				t.Errorf("buffer length %d exceeds capacity", len(buffer))
				return
			}
			for i := 1; i < len(buffer); i++ {
				if buffer[i].Offset <= buffer[i-1].Offset {
					t.Errorf("buffer out of order at %d: %v", i, offsets(buffer))
					return
				}
			}
		}
	}()
	wg.Wait()
}
