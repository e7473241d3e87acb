// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

type consumer struct {
	client *kgo.Client
	topic  string
}

// Fetch polls once. A poll cut short by ctx returns no records and no
// error. The first partition error fails the fetch; records from the
// same poll are dropped and re-read when the stream resumes.
func (consumer *consumer) Fetch(ctx context.Context) ([]livestate.MessageRecord, error) {
	fetches := consumer.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, engine.Permanent(kgo.ErrClientClosed)
	}

	var fetchErr error
	fetches.EachError(func(topic string, partition int32, err error) {
		if fetchErr != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		fetchErr = classify(fmt.Errorf("fetch %s/%d: %w", topic, partition, err))
	})
	if fetchErr != nil {
		return nil, fetchErr
	}

	records := make([]livestate.MessageRecord, 0, fetches.NumRecords())
	fetches.EachRecord(func(record *kgo.Record) {
		records = append(records, livestate.MessageRecord{
			Topic:     record.Topic,
			Partition: record.Partition,
			Offset:    record.Offset,
			Key:       record.Key,
			Value:     record.Value,
			Timestamp: record.Timestamp,
			Origin:    livestate.OriginConsumed,
		})
	})
	return records, nil
}

func (consumer *consumer) Close() { consumer.client.Close() }

// resolveStarts lists the topic's partitions and picks each one's
// starting offset.
func resolveStarts(ctx context.Context, admin *kadm.Client, config engine.ConsumerConfig) (map[int32]kgo.Offset, error) {
	details, err := admin.ListTopics(ctx, config.Topic)
	if err != nil {
		return nil, classify(fmt.Errorf("list partitions of %q: %w", config.Topic, err))
	}
	detail, ok := details[config.Topic]
	if !ok {
		return nil, engine.Permanent(fmt.Errorf("topic %q: %w", config.Topic, kerr.UnknownTopicOrPartition))
	}
	if detail.Err != nil {
		return nil, classify(fmt.Errorf("topic %q: %w", config.Topic, detail.Err))
	}
	partitions := make([]int32, 0, len(detail.Partitions))
	for id := range detail.Partitions {
		partitions = append(partitions, id)
	}

	var committed map[int32]int64
	if config.Start.Mode == engine.StartCommitted && config.Group != "" {
		committed, err = committedOffsets(ctx, admin, config.Group, config.Topic)
		if err != nil {
			return nil, err
		}
	}
	return partitionStarts(config.Start, partitions, committed, config.Resume), nil
}

func committedOffsets(ctx context.Context, admin *kadm.Client, group, topic string) (map[int32]int64, error) {
	responses, err := admin.FetchOffsets(ctx, group)
	if err != nil {
		return nil, classify(fmt.Errorf("fetch committed offsets of group %q: %w", group, err))
	}
	committed := make(map[int32]int64)
	for partition, response := range responses[topic] {
		if response.Err == nil && response.At >= 0 {
			committed[partition] = response.At
		}
	}
	return committed, nil
}

// partitionStarts maps each partition to its kgo start offset. Resume
// offsets win, then committed offsets, then the start mode.
func partitionStarts(start engine.StartPosition, partitions []int32, committed, resume map[int32]int64) map[int32]kgo.Offset {
	starts := make(map[int32]kgo.Offset, len(partitions))
	for _, partition := range partitions {
		if offset, ok := resume[partition]; ok {
			starts[partition] = kgo.NewOffset().At(offset)
			continue
		}
		if offset, ok := committed[partition]; ok {
			starts[partition] = kgo.NewOffset().At(offset)
			continue
		}
		switch start.Mode {
		case engine.StartEarliest:
			starts[partition] = kgo.NewOffset().AtStart()
		case engine.StartOffset:
			starts[partition] = kgo.NewOffset().At(start.Value)
		case engine.StartLookback:
			starts[partition] = kgo.NewOffset().AtEnd().Relative(-start.Value)
		default:
			starts[partition] = kgo.NewOffset().AtEnd()
		}
	}
	return starts
}
