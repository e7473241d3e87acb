// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

type producer struct {
	client *kgo.Client
}

// Produce writes one record and waits for the acknowledgement.
func (producer *producer) Produce(ctx context.Context, record engine.ProduceRecord) (engine.Delivery, error) {
	kafkaRecord := &kgo.Record{
		Topic: record.Topic,
		Key:   record.Key,
		Value: record.Value,
	}
	if record.Partition != livestate.AnyPartition {
		kafkaRecord.Context = withPartition(ctx, record.Partition)
	}
	produced, err := producer.client.ProduceSync(ctx, kafkaRecord).First()
	if err != nil {
		return engine.Delivery{}, classify(err)
	}
	return engine.Delivery{Partition: produced.Partition, Offset: produced.Offset}, nil
}

func (producer *producer) Close() { producer.client.Close() }

type partitionKey struct{}

func withPartition(ctx context.Context, partition int32) context.Context {
	return context.WithValue(ctx, partitionKey{}, partition)
}

func requestedPartition(record *kgo.Record) (int32, bool) {
	if record.Context == nil {
		return 0, false
	}
	partition, ok := record.Context.Value(partitionKey{}).(int32)
	return partition, ok
}

// explicitPartitioner sends records carrying a requested partition
// there and hands every other record to fallback.
type explicitPartitioner struct {
	fallback kgo.Partitioner
}

func (partitioner explicitPartitioner) ForTopic(topic string) kgo.TopicPartitioner {
	return &explicitTopicPartitioner{fallback: partitioner.fallback.ForTopic(topic)}
}

type explicitTopicPartitioner struct {
	fallback kgo.TopicPartitioner
}

func (partitioner *explicitTopicPartitioner) RequiresConsistency(record *kgo.Record) bool {
	if _, ok := requestedPartition(record); ok {
		return true
	}
	return partitioner.fallback.RequiresConsistency(record)
}

// Partition returns a requested partition even when it is out of
// range so that kgo fails the record instead of placing it elsewhere.
func (partitioner *explicitTopicPartitioner) Partition(record *kgo.Record, partitions int) int {
	if partition, ok := requestedPartition(record); ok {
		return int(partition)
	}
	return partitioner.fallback.Partition(record, partitions)
}

// OnNewBatch lets a sticky fallback move keyless records to a new
// partition when a batch fills.
func (partitioner *explicitTopicPartitioner) OnNewBatch() {
	if sticky, ok := partitioner.fallback.(kgo.TopicPartitionerOnNewBatch); ok {
		sticky.OnNewBatch()
	}
}
