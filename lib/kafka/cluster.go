// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/bureau-foundation/brokerview/lib/livestate"
)

type cluster struct {
	admin *kadm.Client
}

func (cluster *cluster) Close() { cluster.admin.Close() }

// ListTopics lists every topic, internal ones included, and sums each
// topic's high minus low watermarks.
func (cluster *cluster) ListTopics(ctx context.Context) ([]livestate.TopicSummary, error) {
	details, err := cluster.admin.ListTopicsWithInternal(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("list topics: %w", err))
	}
	names := make([]string, 0, len(details))
	for name, detail := range details {
		if detail.Err == nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	low, high, err := cluster.watermarks(ctx, names...)
	if err != nil {
		return nil, err
	}

	topics := make([]livestate.TopicSummary, 0, len(names))
	for _, name := range names {
		detail := details[name]
		summary := livestate.TopicSummary{
			Name:              name,
			Partitions:        len(detail.Partitions),
			ReplicationFactor: detail.Partitions.NumReplicas(),
			Internal:          detail.IsInternal,
		}
		for partition := range detail.Partitions {
			start, startOK := low.Lookup(name, partition)
			end, endOK := high.Lookup(name, partition)
			if startOK && endOK && start.Err == nil && end.Err == nil && end.Offset > start.Offset {
				summary.ApproxMessages += end.Offset - start.Offset
			}
		}
		topics = append(topics, summary)
	}
	return topics, nil
}

func (cluster *cluster) watermarks(ctx context.Context, topics ...string) (low, high kadm.ListedOffsets, err error) {
	low, err = cluster.admin.ListStartOffsets(ctx, topics...)
	if err != nil {
		return nil, nil, classify(fmt.Errorf("list start offsets: %w", err))
	}
	high, err = cluster.admin.ListEndOffsets(ctx, topics...)
	if err != nil {
		return nil, nil, classify(fmt.Errorf("list end offsets: %w", err))
	}
	return low, high, nil
}

// DescribeTopic returns leader, replicas, ISR and watermarks for every
// partition of topic.
func (cluster *cluster) DescribeTopic(ctx context.Context, topic string) (livestate.TopicDetail, error) {
	details, err := cluster.admin.ListTopics(ctx, topic)
	if err != nil {
		return livestate.TopicDetail{}, classify(fmt.Errorf("describe topic %q: %w", topic, err))
	}
	detail, ok := details[topic]
	if !ok {
		return livestate.TopicDetail{}, fmt.Errorf("describe topic %q: %w", topic, kerr.UnknownTopicOrPartition)
	}
	if detail.Err != nil {
		return livestate.TopicDetail{}, classify(fmt.Errorf("describe topic %q: %w", topic, detail.Err))
	}

	low, high, err := cluster.watermarks(ctx, topic)
	if err != nil {
		return livestate.TopicDetail{}, err
	}

	result := livestate.TopicDetail{Topic: topic}
	for id, partition := range detail.Partitions {
		described := livestate.PartitionDetail{
			ID:       id,
			Leader:   partition.Leader,
			Replicas: partition.Replicas,
			ISR:      partition.ISR,
		}
		if start, ok := low.Lookup(topic, id); ok && start.Err == nil {
			described.Low = start.Offset
		}
		if end, ok := high.Lookup(topic, id); ok && end.Err == nil {
			described.High = end.Offset
		}
		result.Partitions = append(result.Partitions, described)
	}
	sort.Slice(result.Partitions, func(i, j int) bool { return result.Partitions[i].ID < result.Partitions[j].ID })
	return result, nil
}

func (cluster *cluster) ListBrokers(ctx context.Context) ([]livestate.Broker, error) {
	details, err := cluster.admin.ListBrokers(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("list brokers: %w", err))
	}
	brokers := make([]livestate.Broker, 0, len(details))
	for _, detail := range details {
		broker := livestate.Broker{ID: detail.NodeID, Host: detail.Host, Port: detail.Port}
		if detail.Rack != nil {
			broker.Rack = *detail.Rack
		}
		brokers = append(brokers, broker)
	}
	return brokers, nil
}

// ListGroups lists consumer groups and describes their members. A
// group whose description fails is still listed, without members.
func (cluster *cluster) ListGroups(ctx context.Context) ([]livestate.ConsumerGroup, error) {
	listed, err := cluster.admin.ListGroups(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("list groups: %w", err))
	}
	if len(listed) == 0 {
		return nil, nil
	}
	described, err := cluster.admin.DescribeGroups(ctx, listed.Groups()...)
	if err != nil {
		return nil, classify(fmt.Errorf("describe groups: %w", err))
	}

	groups := make([]livestate.ConsumerGroup, 0, len(listed))
	for name, summary := range listed {
		group := livestate.ConsumerGroup{
			Name:         name,
			State:        summary.State,
			ProtocolType: summary.ProtocolType,
		}
		if description, ok := described[name]; ok && description.Err == nil {
			group.State = description.State
			group.Protocol = description.Protocol
			group.ProtocolType = description.ProtocolType
			for _, member := range description.Members {
				group.Members = append(group.Members, livestate.GroupMember{
					MemberID:   member.MemberID,
					ClientID:   member.ClientID,
					ClientHost: member.ClientHost,
				})
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}
