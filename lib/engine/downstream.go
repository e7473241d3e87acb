// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// Dialer opens broker handles. Each engine component owns the handles
// it opens: the session holds one Cluster, every stream task its own
// Consumer, the dispatcher one Producer.
type Dialer interface {
	// DialCluster connects to a single endpoint and verifies that a
	// broker answers. Failures that retrying cannot fix (rejected
	// credentials, unsupported protocol) are wrapped with [Permanent].
	DialCluster(ctx context.Context, endpoint string) (Cluster, error)

	// OpenConsumer starts reading config.Topic from the position
	// described by config.Start, or from config.Resume for partitions
	// listed there.
	OpenConsumer(ctx context.Context, config ConsumerConfig) (Consumer, error)

	// OpenProducer returns a producer bootstrapped from endpoints.
	OpenProducer(ctx context.Context, endpoints []string) (Producer, error)
}

// Cluster answers metadata questions for the session.
type Cluster interface {
	// ListTopics returns every topic with its watermark-derived
	// message count.
	ListTopics(ctx context.Context) ([]livestate.TopicSummary, error)
	DescribeTopic(ctx context.Context, topic string) (livestate.TopicDetail, error)
	ListBrokers(ctx context.Context) ([]livestate.Broker, error)
	ListGroups(ctx context.Context) ([]livestate.ConsumerGroup, error)
	Close()
}

// ConsumerConfig selects what a Consumer reads.
type ConsumerConfig struct {
	Endpoints []string
	Group     string
	Topic     string
	Start     StartPosition

	// Resume maps partitions to the next offset to read. It
	// overrides Start for the partitions it names.
	Resume map[int32]int64
}

// Consumer yields records from one topic.
type Consumer interface {
	// Fetch blocks until records are available or ctx is done. A
	// poll that ends because ctx expired returns no records and a
	// nil error; only broker failures are errors. Records within a
	// partition arrive in offset order.
	Fetch(ctx context.Context) ([]livestate.MessageRecord, error)
	Close()
}

// ProduceRecord is one message to write. Partition is
// livestate.AnyPartition to let the partitioner choose.
type ProduceRecord struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
}

// Delivery is the broker's acknowledgement of a produced record.
type Delivery struct {
	Partition int32
	Offset    int64
}

// Producer writes records.
type Producer interface {
	// Produce blocks until the broker acknowledges the record or ctx
	// is done.
	Produce(ctx context.Context, record ProduceRecord) (Delivery, error)
	Close()
}
