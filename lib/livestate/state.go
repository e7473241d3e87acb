// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package livestate

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// State is the mutable form of the shared state. It is only reachable
// from inside a [Store.Apply] mutation, and mutation functions must not
// retain the pointer after returning.
//
// Every mutating method reports whether it changed anything so a
// mutation function can return the combined result to Apply.
type State struct {
	connection Connection
	topics     []TopicSummary // sorted by name
	brokers    []Broker
	groups     []ConsumerGroup

	openTopic string
	detail    *TopicDetail

	streams map[string]*topicStream

	sends     map[string]*SendResult
	sendOrder []string // submission order

	// produced maps delivered (topic, partition, offset) positions to
	// the send that wrote them, so the consumer copy of the record can
	// be tagged OriginProduced.
	produced map[recordPosition]string
}

type recordPosition struct {
	topic     string
	partition int32
	offset    int64
}

type topicStream struct {
	status  StreamStatus
	records *Ring[MessageRecord]

	// lastOffset is the highest offset accepted per partition.
	lastOffset map[int32]int64
}

func (state *State) init() {
	state.streams = make(map[string]*topicStream)
	state.sends = make(map[string]*SendResult)
	state.produced = make(map[recordPosition]string)
}

// Connection returns a copy of the connection record.
func (state *State) Connection() Connection {
	connection := state.connection
	connection.Endpoints = slices.Clone(connection.Endpoints)
	return connection
}

// Transition moves the connection to next. Illegal transitions (see
// [CanTransition]) and no-op transitions leave the state unchanged and
// return false.
func (state *State) Transition(next ConnectionState) bool {
	if !CanTransition(state.connection.State, next) {
		return false
	}
	state.connection.State = next
	if next != Connected {
		state.connection.ActiveEndpoint = ""
	}
	return true
}

// SetTarget records the endpoints and group of a connect request.
func (state *State) SetTarget(endpoints []string, group string) bool {
	if slices.Equal(state.connection.Endpoints, endpoints) && state.connection.Group == group {
		return false
	}
	state.connection.Endpoints = slices.Clone(endpoints)
	state.connection.Group = group
	return true
}

// SetActiveEndpoint records which endpoint answered.
func (state *State) SetActiveEndpoint(endpoint string) bool {
	if state.connection.ActiveEndpoint == endpoint {
		return false
	}
	state.connection.ActiveEndpoint = endpoint
	return true
}

// SetConnectionError records the surfaced connection failure. An empty
// message clears it.
func (state *State) SetConnectionError(message string) bool {
	if state.connection.LastError == message {
		return false
	}
	state.connection.LastError = message
	return true
}

// SetConsecutiveFailures records the metadata failure streak.
func (state *State) SetConsecutiveFailures(count int) bool {
	if state.connection.ConsecutiveFailures == count {
		return false
	}
	state.connection.ConsecutiveFailures = count
	return true
}

// ReplaceTopics installs a fresh topic catalog and records the refresh
// time. The catalog is kept sorted by name. A new refresh time counts as
// a change even when the catalog is identical, since the status bar
// shows it.
func (state *State) ReplaceTopics(topics []TopicSummary, refreshedAt time.Time) bool {
	sorted := slices.Clone(topics)
	slices.SortFunc(sorted, func(a, b TopicSummary) int { return strings.Compare(a.Name, b.Name) })
	changed := false
	if !slices.Equal(state.topics, sorted) {
		state.topics = sorted
		changed = true
	}
	if !state.connection.LastRefresh.Equal(refreshedAt) {
		state.connection.LastRefresh = refreshedAt
		changed = true
	}
	return changed
}

// Topic looks up a topic in the catalog.
func (state *State) Topic(name string) (TopicSummary, bool) {
	index, found := slices.BinarySearchFunc(state.topics, name, func(topic TopicSummary, name string) int {
		return strings.Compare(topic.Name, name)
	})
	if !found {
		return TopicSummary{}, false
	}
	return state.topics[index], true
}

// ReplaceBrokers installs the broker list, sorted by id.
func (state *State) ReplaceBrokers(brokers []Broker) bool {
	sorted := slices.Clone(brokers)
	slices.SortFunc(sorted, func(a, b Broker) int { return cmp.Compare(a.ID, b.ID) })
	if slices.EqualFunc(state.brokers, sorted, func(a, b Broker) bool { return a == b }) {
		return false
	}
	state.brokers = sorted
	return true
}

// ReplaceGroups installs the consumer group list, sorted by name.
func (state *State) ReplaceGroups(groups []ConsumerGroup) bool {
	sorted := slices.Clone(groups)
	slices.SortFunc(sorted, func(a, b ConsumerGroup) int { return strings.Compare(a.Name, b.Name) })
	if slices.EqualFunc(state.groups, sorted, func(a, b ConsumerGroup) bool {
		return a.Name == b.Name && a.State == b.State && a.Protocol == b.Protocol &&
			a.ProtocolType == b.ProtocolType && slices.Equal(a.Members, b.Members)
	}) {
		return false
	}
	state.groups = sorted
	return true
}

// OpenTopic returns the focused open topic, or "".
func (state *State) OpenTopic() string { return state.openTopic }

// SetOpenTopic changes the focused topic. Any detail for a different
// topic is evicted.
func (state *State) SetOpenTopic(topic string) bool {
	if state.openTopic == topic {
		return false
	}
	state.openTopic = topic
	if state.detail != nil && state.detail.Topic != topic {
		state.detail = nil
	}
	return true
}

// SetTopicDetail installs partition detail. Detail for anything other
// than the focused topic is dropped.
func (state *State) SetTopicDetail(detail TopicDetail) bool {
	if detail.Topic == "" || detail.Topic != state.openTopic {
		return false
	}
	copied := detail
	copied.Partitions = make([]PartitionDetail, len(detail.Partitions))
	for i, partition := range detail.Partitions {
		partition.Replicas = slices.Clone(partition.Replicas)
		partition.ISR = slices.Clone(partition.ISR)
		copied.Partitions[i] = partition
	}
	slices.SortFunc(copied.Partitions, func(a, b PartitionDetail) int { return cmp.Compare(a.ID, b.ID) })
	state.detail = &copied
	return true
}

// Stream returns the status of topic's stream, if one exists.
func (state *State) Stream(topic string) (StreamStatus, bool) {
	stream, ok := state.streams[topic]
	if !ok {
		return StreamStatus{}, false
	}
	return stream.status, true
}

// StartStream installs a fresh, empty buffer for topic in the Starting
// state, replacing anything left by a previous generation.
func (state *State) StartStream(topic string, generation uint64, capacity int) bool {
	state.streams[topic] = &topicStream{
		status: StreamStatus{
			Topic:      topic,
			State:      StreamStarting,
			Generation: generation,
			Capacity:   capacity,
		},
		records:    NewRing[MessageRecord](capacity),
		lastOffset: make(map[int32]int64),
	}
	return true
}

func (state *State) stream(topic string, generation uint64) *topicStream {
	stream, ok := state.streams[topic]
	if !ok || stream.status.Generation != generation {
		return nil
	}
	return stream
}

// SetStreamState updates the lifecycle of topic's stream. Updates from
// a superseded generation, and updates to a stream already Stopping,
// are ignored.
func (state *State) SetStreamState(topic string, generation uint64, next StreamState, retries int, lastError string) bool {
	stream := state.stream(topic, generation)
	if stream == nil || stream.status.State == StreamStopping {
		return false
	}
	status := &stream.status
	if status.State == next && status.Retries == retries && status.LastError == lastError {
		return false
	}
	status.State = next
	status.Retries = retries
	status.LastError = lastError
	return true
}

// ResumeOffsets returns, per partition, the offset after the last one
// accepted into topic's buffer.
func (state *State) ResumeOffsets(topic string, generation uint64) map[int32]int64 {
	stream := state.stream(topic, generation)
	if stream == nil {
		return nil
	}
	resume := make(map[int32]int64, len(stream.lastOffset))
	for partition, offset := range stream.lastOffset {
		resume[partition] = offset + 1
	}
	return resume
}

// AppendRecords adds consumed records to topic's buffer. Within a
// partition, offsets only move forward: a record whose offset is not
// greater than the last accepted one for its partition is discarded and
// counted. Records for a superseded generation or a Stopping stream
// are ignored entirely. Returns how many records were accepted and how
// many were discarded.
func (state *State) AppendRecords(topic string, generation uint64, records []MessageRecord) (accepted, discarded int) {
	stream := state.stream(topic, generation)
	if stream == nil || stream.status.State == StreamStopping {
		return 0, 0
	}
	for _, record := range records {
		last, seen := stream.lastOffset[record.Partition]
		if seen && record.Offset <= last {
			stream.status.Discarded++
			discarded++
			continue
		}
		stream.lastOffset[record.Partition] = record.Offset
		record.Topic = topic
		if _, ok := state.produced[recordPosition{topic, record.Partition, record.Offset}]; ok {
			record.Origin = OriginProduced
		}
		if stream.records.Push(record) {
			stream.status.Evicted++
		}
		accepted++
	}
	return accepted, discarded
}

// StopStream marks topic's stream Stopping and releases its buffer.
// The entry itself stays until [State.RemoveStream] so a reopen can
// tell a winding-down task from a live one.
func (state *State) StopStream(topic string) bool {
	stream, ok := state.streams[topic]
	if !ok || stream.status.State == StreamStopping {
		return false
	}
	stream.status.State = StreamStopping
	stream.records.Clear()
	stream.lastOffset = nil
	if state.openTopic == topic {
		state.openTopic = ""
		state.detail = nil
	}
	return true
}

// RemoveStream deletes the stream entry of the given generation. A
// Failed stream is kept visible until the topic is closed or reopened.
func (state *State) RemoveStream(topic string, generation uint64) bool {
	stream := state.stream(topic, generation)
	if stream == nil || stream.status.State == StreamFailed {
		return false
	}
	delete(state.streams, topic)
	return true
}

// DropStream deletes topic's stream entry regardless of generation.
func (state *State) DropStream(topic string) bool {
	if _, ok := state.streams[topic]; !ok {
		return false
	}
	delete(state.streams, topic)
	return true
}

// AddSend registers a new produce request.
func (state *State) AddSend(send SendResult) bool {
	if _, exists := state.sends[send.ID]; exists {
		return false
	}
	copied := send
	copied.Key = slices.Clone(send.Key)
	state.sends[send.ID] = &copied
	state.sendOrder = append(state.sendOrder, send.ID)
	return true
}

// Send returns the current record for a produce request.
func (state *State) Send(id string) (SendResult, bool) {
	send, ok := state.sends[id]
	if !ok {
		return SendResult{}, false
	}
	return *send, true
}

// MarkInFlight moves a queued send to InFlight and records the attempt.
func (state *State) MarkInFlight(id string, attempt int) bool {
	send, ok := state.sends[id]
	if !ok || send.State.Terminal() {
		return false
	}
	send.State = SendInFlight
	send.Attempts = attempt
	return true
}

// MarkDelivered records the broker's acknowledgement of a send.
func (state *State) MarkDelivered(id string, partition int32, offset int64, at time.Time) bool {
	send, ok := state.sends[id]
	if !ok || send.State.Terminal() {
		return false
	}
	send.State = SendDelivered
	send.Partition = partition
	send.Offset = offset
	send.Error = ""
	send.CompletedAt = at
	state.produced[recordPosition{send.Topic, partition, offset}] = id
	return true
}

// MarkFailed records the terminal failure of a send.
func (state *State) MarkFailed(id string, reason string, at time.Time) bool {
	send, ok := state.sends[id]
	if !ok || send.State.Terminal() {
		return false
	}
	send.State = SendFailed
	send.Error = reason
	send.CompletedAt = at
	return true
}

// ReclaimSends forgets terminal sends completed longer than retention
// ago, then the oldest terminal sends beyond maxResults. Queued and
// InFlight sends are never reclaimed.
func (state *State) ReclaimSends(now time.Time, retention time.Duration, maxResults int) bool {
	changed := false
	terminal := 0
	for _, id := range state.sendOrder {
		if state.sends[id].State.Terminal() {
			terminal++
		}
	}
	kept := state.sendOrder[:0]
	for _, id := range state.sendOrder {
		send := state.sends[id]
		if send.State.Terminal() && (now.Sub(send.CompletedAt) >= retention || terminal > maxResults) {
			terminal--
			state.forgetSend(send)
			changed = true
			continue
		}
		kept = append(kept, id)
	}
	clear(state.sendOrder[len(kept):])
	state.sendOrder = kept
	return changed
}

func (state *State) forgetSend(send *SendResult) {
	delete(state.sends, send.ID)
	if send.State == SendDelivered {
		delete(state.produced, recordPosition{send.Topic, send.Partition, send.Offset})
	}
}

// EarliestCompletion returns the completion time of the oldest
// terminal send still tracked.
func (state *State) EarliestCompletion() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, send := range state.sends {
		if !send.State.Terminal() {
			continue
		}
		if !found || send.CompletedAt.Before(earliest) {
			earliest = send.CompletedAt
			found = true
		}
	}
	return earliest, found
}

// PendingCount returns the number of Queued plus InFlight sends.
func (state *State) PendingCount() int {
	count := 0
	for _, send := range state.sends {
		if !send.State.Terminal() {
			count++
		}
	}
	return count
}
