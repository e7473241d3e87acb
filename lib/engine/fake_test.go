// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/brokerview/lib/clock"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

var errUnreachable = errors.New("dial tcp: connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

// waitForSnapshot blocks until condition holds for the store's
// snapshot, failing the test after a real-time safety timeout.
func waitForSnapshot(t *testing.T, store *livestate.Store, what string, condition func(livestate.Snapshot) bool) livestate.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second) //nolint:realclock test hang prevention
	for {
		changed := store.Changed()
		snapshot := store.Snapshot()
		if condition(snapshot) {
			return snapshot
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("timed out waiting for %s (version %d, connection %+v, streams %+v)",
				what, snapshot.Version, snapshot.Connection, snapshot.Streams)
		}
	}
}

// fakeDialer serves fakeClusters by endpoint. Endpoints without a
// cluster are unreachable.
type fakeDialer struct {
	mu        sync.Mutex
	clusters  map[string]*fakeCluster
	permanent bool
	dials     []string

	// consumerErrs, when non-empty, fails OpenConsumer calls in
	// order before consumers are handed out again.
	consumerErrs []error
	consumers    chan *fakeConsumer

	producer      *fakeProducer
	producerOpens int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		clusters:  make(map[string]*fakeCluster),
		consumers: make(chan *fakeConsumer, 16),
		producer:  newFakeProducer(),
	}
}

func (dialer *fakeDialer) setCluster(endpoint string, cluster *fakeCluster) {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	if cluster == nil {
		delete(dialer.clusters, endpoint)
		return
	}
	dialer.clusters[endpoint] = cluster
}

func (dialer *fakeDialer) dialCount() int {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	return len(dialer.dials)
}

func (dialer *fakeDialer) DialCluster(ctx context.Context, endpoint string) (Cluster, error) {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	dialer.dials = append(dialer.dials, endpoint)
	cluster, ok := dialer.clusters[endpoint]
	if !ok {
		if dialer.permanent {
			return nil, Permanent(errors.New("SASL authentication failed"))
		}
		return nil, errUnreachable
	}
	return cluster, nil
}

func (dialer *fakeDialer) OpenConsumer(ctx context.Context, config ConsumerConfig) (Consumer, error) {
	dialer.mu.Lock()
	if len(dialer.consumerErrs) > 0 {
		err := dialer.consumerErrs[0]
		dialer.consumerErrs = dialer.consumerErrs[1:]
		dialer.mu.Unlock()
		return nil, err
	}
	dialer.mu.Unlock()

	consumer := &fakeConsumer{
		config:   config,
		results:  make(chan fetchResult, 16),
		fetching: make(chan struct{}, 16),
		closed:   make(chan struct{}),
	}
	dialer.consumers <- consumer
	return consumer, nil
}

func (dialer *fakeDialer) OpenProducer(ctx context.Context, endpoints []string) (Producer, error) {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	dialer.producerOpens++
	return dialer.producer, nil
}

// fakeCluster answers metadata calls from its fields.
type fakeCluster struct {
	mu        sync.Mutex
	topics    []livestate.TopicSummary
	brokers   []livestate.Broker
	groups    []livestate.ConsumerGroup
	details   map[string]livestate.TopicDetail
	listErr   error
	groupsErr error
	closed    bool
}

func newFakeCluster(topics ...string) *fakeCluster {
	cluster := &fakeCluster{
		brokers: []livestate.Broker{{ID: 1, Host: "b", Port: 9092}},
		details: make(map[string]livestate.TopicDetail),
	}
	for _, name := range topics {
		cluster.topics = append(cluster.topics, livestate.TopicSummary{Name: name, Partitions: 3, ReplicationFactor: 1})
		cluster.details[name] = livestate.TopicDetail{
			Topic: name,
			Partitions: []livestate.PartitionDetail{
				{ID: 0, Leader: 1}, {ID: 1, Leader: 1}, {ID: 2, Leader: 1},
			},
		}
	}
	return cluster
}

func (cluster *fakeCluster) setListErr(err error) {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	cluster.listErr = err
}

func (cluster *fakeCluster) ListTopics(ctx context.Context) ([]livestate.TopicSummary, error) {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	if cluster.listErr != nil {
		return nil, cluster.listErr
	}
	return cluster.topics, nil
}

func (cluster *fakeCluster) DescribeTopic(ctx context.Context, topic string) (livestate.TopicDetail, error) {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	detail, ok := cluster.details[topic]
	if !ok {
		return livestate.TopicDetail{}, errors.New("unknown topic")
	}
	return detail, nil
}

func (cluster *fakeCluster) ListBrokers(ctx context.Context) ([]livestate.Broker, error) {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	return cluster.brokers, nil
}

func (cluster *fakeCluster) ListGroups(ctx context.Context) ([]livestate.ConsumerGroup, error) {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	if cluster.groupsErr != nil {
		return nil, cluster.groupsErr
	}
	return cluster.groups, nil
}

func (cluster *fakeCluster) Close() {
	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	cluster.closed = true
}

type fetchResult struct {
	records []livestate.MessageRecord
	err     error
}

// fakeConsumer hands out whatever the test pushes into results. Each
// Fetch signals fetching on entry.
type fakeConsumer struct {
	config    ConsumerConfig
	results   chan fetchResult
	fetching  chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func (consumer *fakeConsumer) Fetch(ctx context.Context) ([]livestate.MessageRecord, error) {
	select {
	case consumer.fetching <- struct{}{}:
	default:
	}
	select {
	case result := <-consumer.results:
		return result.records, result.err
	case <-ctx.Done():
		return nil, nil
	}
}

func (consumer *fakeConsumer) Close() {
	consumer.closeOnce.Do(func() { close(consumer.closed) })
}

func (consumer *fakeConsumer) push(records ...livestate.MessageRecord) {
	consumer.results <- fetchResult{records: records}
}

// produceCall is one Produce invocation awaiting the test's answer.
type produceCall struct {
	record ProduceRecord
	reply  chan produceReply
}

type produceReply struct {
	delivery Delivery
	err      error
}

func (call *produceCall) deliver(partition int32, offset int64) {
	call.reply <- produceReply{delivery: Delivery{Partition: partition, Offset: offset}}
}

func (call *produceCall) fail(err error) {
	call.reply <- produceReply{err: err}
}

type fakeProducer struct {
	calls  chan *produceCall
	closed chan struct{}
	once   sync.Once
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{calls: make(chan *produceCall, 256), closed: make(chan struct{})}
}

func (producer *fakeProducer) Produce(ctx context.Context, record ProduceRecord) (Delivery, error) {
	call := &produceCall{record: record, reply: make(chan produceReply, 1)}
	producer.calls <- call
	select {
	case reply := <-call.reply:
		return reply.delivery, reply.err
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

func (producer *fakeProducer) Close() {
	producer.once.Do(func() { close(producer.closed) })
}

func messageAt(partition int32, offset int64) livestate.MessageRecord {
	return livestate.MessageRecord{Partition: partition, Offset: offset, Value: []byte("payload")}
}

func bufferOffsets(snapshot livestate.Snapshot, topic string) []int64 {
	var offsets []int64
	for _, record := range snapshot.Buffers[topic] {
		offsets = append(offsets, record.Offset)
	}
	return offsets
}
