// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package livestate

import (
	"fmt"
	"time"
)

// ConnectionState is the liveness of the broker session.
type ConnectionState int

const (
	// Disconnected means no session has been requested or the
	// session was shut down.
	Disconnected ConnectionState = iota
	// Connecting means endpoints are being dialed.
	Connecting
	// Connected means a broker answered and metadata is flowing.
	Connected
	// Failing means the last connect or refresh cycle failed and a
	// retry is scheduled (or, for permanent errors, awaits a new
	// connect request).
	Failing
)

func (state ConnectionState) String() string {
	switch state {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failing:
		return "failing"
	default:
		return fmt.Sprintf("connection_state(%d)", int(state))
	}
}

// CanTransition reports whether the connection state machine allows
// moving from one state to another. Every path into Connected goes
// through Connecting.
func CanTransition(from, to ConnectionState) bool {
	switch from {
	case Disconnected:
		return to == Connecting
	case Connecting:
		return to == Connected || to == Failing || to == Disconnected
	case Connected:
		return to == Failing || to == Disconnected
	case Failing:
		return to == Connecting || to == Disconnected
	}
	return false
}

// Connection describes the one broker session of the process.
type Connection struct {
	Endpoints []string
	Group     string
	State     ConnectionState

	// ActiveEndpoint is the endpoint that answered the last
	// successful connect. Empty unless Connected.
	ActiveEndpoint string

	// LastError is the most recent surfaced failure. Transient
	// metadata errors below the failure threshold are not surfaced.
	LastError string

	// ConsecutiveFailures counts metadata refresh failures since the
	// last success.
	ConsecutiveFailures int

	// LastRefresh is when topic metadata last refreshed successfully.
	LastRefresh time.Time
}

// TopicSummary is one row of the topic catalog.
type TopicSummary struct {
	Name              string
	Partitions        int
	ReplicationFactor int

	// ApproxMessages is the sum over partitions of high minus low
	// watermark. Compacted topics and transaction markers make it an
	// upper bound rather than an exact count.
	ApproxMessages int64

	Internal bool
}

// PartitionDetail describes one partition of the open topic.
type PartitionDetail struct {
	ID       int32
	Leader   int32
	Replicas []int32
	ISR      []int32
	Low      int64
	High     int64
}

// InSyncReplicas returns the number of in-sync replicas.
func (partition PartitionDetail) InSyncReplicas() int { return len(partition.ISR) }

// TopicDetail is the partition-level view of the topic currently open
// in the interface.
type TopicDetail struct {
	Topic      string
	Partitions []PartitionDetail
	FetchedAt  time.Time
}

// Broker is one node of the cluster.
type Broker struct {
	ID   int32
	Host string
	Port int32
	Rack string
}

// Address returns host:port.
func (broker Broker) Address() string {
	return fmt.Sprintf("%s:%d", broker.Host, broker.Port)
}

// GroupMember is one member of a consumer group.
type GroupMember struct {
	MemberID   string
	ClientID   string
	ClientHost string
}

// ConsumerGroup describes a consumer group known to the cluster.
type ConsumerGroup struct {
	Name         string
	State        string
	Protocol     string
	ProtocolType string
	Members      []GroupMember
}

// Origin tags whether a buffered record was first seen through this
// process's own producer or only through the consumer.
type Origin int

const (
	OriginConsumed Origin = iota
	OriginProduced
)

func (origin Origin) String() string {
	if origin == OriginProduced {
		return "produced"
	}
	return "consumed"
}

// MessageRecord is one message held in a topic buffer. Key is nil
// when the message has no key (as opposed to an empty key).
type MessageRecord struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Origin    Origin
}

// StreamState is the lifecycle of one topic's consumer stream. A topic
// with no stream is idle and simply absent from the snapshot.
type StreamState int

const (
	StreamStarting StreamState = iota
	StreamStreaming
	StreamErroring
	StreamStopping
	// StreamFailed means the retry budget ran out. The topic must be
	// reopened explicitly.
	StreamFailed
)

func (state StreamState) String() string {
	switch state {
	case StreamStarting:
		return "starting"
	case StreamStreaming:
		return "streaming"
	case StreamErroring:
		return "erroring"
	case StreamStopping:
		return "stopping"
	case StreamFailed:
		return "failed"
	default:
		return fmt.Sprintf("stream_state(%d)", int(state))
	}
}

// StreamStatus is the visible status of one open topic's stream.
type StreamStatus struct {
	Topic string
	State StreamState

	// Generation distinguishes successive opens of the same topic.
	// Updates from a superseded stream task are ignored.
	Generation uint64

	Capacity  int
	Evicted   uint64 // records dropped from the front of a full buffer
	Discarded uint64 // records rejected for arriving out of offset order
	Retries   int    // consecutive failed attempts
	LastError string
}

// SendState is the lifecycle of one produce request.
type SendState int

const (
	SendQueued SendState = iota
	SendInFlight
	SendDelivered
	SendFailed
)

func (state SendState) String() string {
	switch state {
	case SendQueued:
		return "queued"
	case SendInFlight:
		return "in_flight"
	case SendDelivered:
		return "delivered"
	case SendFailed:
		return "failed"
	default:
		return fmt.Sprintf("send_state(%d)", int(state))
	}
}

// Terminal reports whether the send has reached Delivered or Failed.
func (state SendState) Terminal() bool {
	return state == SendDelivered || state == SendFailed
}

// AnyPartition is the RequestedPartition of a send that lets the
// producer's partitioner choose.
const AnyPartition int32 = -1

// SendResult tracks one produce request from submission to outcome.
type SendResult struct {
	ID    string
	Topic string
	Key   []byte

	// RequestedPartition is AnyPartition unless the operator pinned
	// the message to a partition.
	RequestedPartition int32
	ValueSize          int

	State    SendState
	Attempts int

	// Partition and Offset are set once the broker acknowledged the
	// record.
	Partition int32
	Offset    int64

	// Error is the terminal failure reason.
	Error string

	SubmittedAt time.Time
	CompletedAt time.Time
}
