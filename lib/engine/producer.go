// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/brokerview/lib/backoff"
	"github.com/bureau-foundation/brokerview/lib/clock"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// SendRequest is one message to publish. A nil Key means the message
// has no key; a nil Partition lets the partitioner choose.
type SendRequest struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition *int32
}

// Dispatcher delivers produce requests. Requests are reserved
// synchronously by [Dispatcher.Reserve], which enforces the in-flight
// ceiling, and handed to delivery by [Dispatcher.Enqueue]. Sends
// sharing a key are delivered one at a time in submission order; all
// others proceed concurrently.
type Dispatcher struct {
	dialer Dialer
	store  *livestate.Store
	clock  clock.Clock
	logger *slog.Logger
	config Config
	newID  func() string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	queue    []job
	requests map[string]SendRequest // reserved, not yet enqueued
	lanes    map[string]*lane
	wake     chan struct{}

	producerMu        sync.Mutex
	producer          Producer
	producerEndpoints []string

	loopDone chan struct{}
	workers  sync.WaitGroup
}

type job struct {
	id      string
	request SendRequest
}

// lane serializes sends sharing one key.
type lane struct {
	jobs []job
}

// NewDispatcher returns a dispatcher and starts its dispatch loop.
func NewDispatcher(dialer Dialer, store *livestate.Store, clk clock.Clock, logger *slog.Logger, config Config) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &Dispatcher{
		dialer:   dialer,
		store:    store,
		clock:    clk,
		logger:   logger,
		config:   config.withDefaults(),
		newID:    uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
		requests: make(map[string]SendRequest),
		lanes:    make(map[string]*lane),
		wake:     make(chan struct{}, 1),
		loopDone: make(chan struct{}),
	}
	go dispatcher.loop()
	return dispatcher
}

// Submit reserves and enqueues a send in one step.
func (dispatcher *Dispatcher) Submit(request SendRequest) (string, error) {
	id, err := dispatcher.Reserve(request)
	if err != nil {
		return "", err
	}
	dispatcher.Enqueue(id)
	return id, nil
}

// Reserve records request as Queued and returns its id, or fails with
// *[BackpressureError] when MaxInFlight sends are already Queued or
// InFlight. A rejected request leaves no trace in the store.
func (dispatcher *Dispatcher) Reserve(request SendRequest) (string, error) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.closed {
		return "", ErrShutdown
	}

	now := dispatcher.clock.Now()
	send := livestate.SendResult{
		ID:                 dispatcher.newID(),
		Topic:              request.Topic,
		Key:                request.Key,
		RequestedPartition: livestate.AnyPartition,
		ValueSize:          len(request.Value),
		State:              livestate.SendQueued,
		SubmittedAt:        now,
	}
	if request.Partition != nil {
		send.RequestedPartition = *request.Partition
	}

	var rejected *BackpressureError
	dispatcher.store.Apply(func(state *livestate.State) bool {
		changed := state.ReclaimSends(now, dispatcher.config.ResultRetention, dispatcher.config.MaxResults)
		if pending := state.PendingCount(); pending >= dispatcher.config.MaxInFlight {
			rejected = &BackpressureError{Pending: pending, Limit: dispatcher.config.MaxInFlight}
			return changed
		}
		return state.AddSend(send) || changed
	})
	if rejected != nil {
		return "", rejected
	}
	dispatcher.requests[send.ID] = request
	return send.ID, nil
}

// Enqueue hands a reserved send to the dispatch loop. Unknown ids are
// ignored.
func (dispatcher *Dispatcher) Enqueue(id string) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	request, ok := dispatcher.requests[id]
	if !ok || dispatcher.closed {
		return
	}
	delete(dispatcher.requests, id)
	dispatcher.queue = append(dispatcher.queue, job{id: id, request: request})
	dispatcher.signal()
}

// Close stops accepting sends, cancels deliveries in progress, waits
// for every worker and closes the producer. Sends that never reached
// the broker are marked Failed.
func (dispatcher *Dispatcher) Close() {
	dispatcher.mu.Lock()
	if dispatcher.closed {
		dispatcher.mu.Unlock()
		return
	}
	dispatcher.closed = true
	abandoned := make([]string, 0, len(dispatcher.requests)+len(dispatcher.queue))
	for id := range dispatcher.requests {
		abandoned = append(abandoned, id)
	}
	for _, queued := range dispatcher.queue {
		abandoned = append(abandoned, queued.id)
	}
	dispatcher.requests = nil
	dispatcher.queue = nil
	dispatcher.mu.Unlock()

	dispatcher.cancel()
	<-dispatcher.loopDone
	dispatcher.workers.Wait()

	now := dispatcher.clock.Now()
	dispatcher.store.Apply(func(state *livestate.State) bool {
		changed := false
		for _, id := range abandoned {
			changed = state.MarkFailed(id, ErrShutdown.Error(), now) || changed
		}
		return changed
	})

	dispatcher.producerMu.Lock()
	if dispatcher.producer != nil {
		dispatcher.producer.Close()
		dispatcher.producer = nil
	}
	dispatcher.producerMu.Unlock()
}

func (dispatcher *Dispatcher) signal() {
	select {
	case dispatcher.wake <- struct{}{}:
	default:
	}
}

// loop routes queued jobs to lanes and workers in FIFO order and
// reclaims expired results. Its reclaim timer is armed only while
// terminal results exist.
func (dispatcher *Dispatcher) loop() {
	defer close(dispatcher.loopDone)
	var sweep *clock.Timer
	var sweepC <-chan time.Time
	for {
		select {
		case <-dispatcher.ctx.Done():
			if sweep != nil {
				sweep.Stop()
			}
			return
		case <-dispatcher.wake:
		case <-sweepC:
			sweep, sweepC = nil, nil
		}

		dispatcher.route()

		now := dispatcher.clock.Now()
		var earliest time.Time
		var pending bool
		dispatcher.store.Apply(func(state *livestate.State) bool {
			changed := state.ReclaimSends(now, dispatcher.config.ResultRetention, dispatcher.config.MaxResults)
			earliest, pending = state.EarliestCompletion()
			return changed
		})
		if sweep == nil && pending {
			sweep = dispatcher.clock.NewTimer(earliest.Add(dispatcher.config.ResultRetention).Sub(now))
			sweepC = sweep.C
		}
	}
}

func (dispatcher *Dispatcher) route() {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.closed {
		return
	}
	for _, next := range dispatcher.queue {
		if next.request.Key == nil {
			dispatcher.workers.Add(1)
			go func() {
				defer dispatcher.workers.Done()
				dispatcher.deliver(next)
			}()
			continue
		}
		key := string(next.request.Key)
		if existing, ok := dispatcher.lanes[key]; ok {
			existing.jobs = append(existing.jobs, next)
			continue
		}
		dispatcher.lanes[key] = &lane{jobs: []job{next}}
		dispatcher.workers.Add(1)
		go func() {
			defer dispatcher.workers.Done()
			dispatcher.runLane(key)
		}()
	}
	clear(dispatcher.queue)
	dispatcher.queue = dispatcher.queue[:0]
}

// runLane delivers a key's jobs one by one and retires the lane when
// it drains.
func (dispatcher *Dispatcher) runLane(key string) {
	for {
		dispatcher.mu.Lock()
		current := dispatcher.lanes[key]
		if len(current.jobs) == 0 {
			delete(dispatcher.lanes, key)
			dispatcher.mu.Unlock()
			return
		}
		next := current.jobs[0]
		current.jobs = slices.Delete(current.jobs, 0, 1)
		dispatcher.mu.Unlock()

		dispatcher.deliver(next)
	}
}

func (dispatcher *Dispatcher) deliver(next job) {
	defer dispatcher.signal()

	request := next.request
	if err := dispatcher.validate(request); err != nil {
		dispatcher.fail(next, 0, err)
		return
	}
	record := ProduceRecord{
		Topic:     request.Topic,
		Key:       request.Key,
		Value:     request.Value,
		Partition: livestate.AnyPartition,
	}
	if request.Partition != nil {
		record.Partition = *request.Partition
	}

	retry := backoff.New(dispatcher.config.SendBackoff)
	for attempt := 1; ; attempt++ {
		dispatcher.store.Apply(func(state *livestate.State) bool {
			return state.MarkInFlight(next.id, attempt)
		})

		delivery, err := dispatcher.produce(record)
		if err == nil {
			now := dispatcher.clock.Now()
			dispatcher.store.Apply(func(state *livestate.State) bool {
				return state.MarkDelivered(next.id, delivery.Partition, delivery.Offset, now)
			})
			dispatcher.logger.Debug("message delivered",
				"id", next.id, "topic", request.Topic, "partition", delivery.Partition, "offset", delivery.Offset)
			return
		}
		if dispatcher.ctx.Err() != nil {
			dispatcher.fail(next, attempt, ErrShutdown)
			return
		}
		if IsPermanent(err) || attempt > dispatcher.config.SendRetries {
			dispatcher.fail(next, attempt, err)
			return
		}
		delay := retry.Next()
		dispatcher.logger.Debug("send failed, retrying",
			"id", next.id, "topic", request.Topic, "attempt", attempt, "error", err, "backoff", delay)
		if clock.Sleep(dispatcher.ctx, dispatcher.clock, delay) != nil {
			dispatcher.fail(next, attempt, ErrShutdown)
			return
		}
	}
}

// validate rejects sends the broker would refuse anyway.
func (dispatcher *Dispatcher) validate(request SendRequest) error {
	if size := len(request.Value); size > dispatcher.config.MaxMessageBytes {
		return fmt.Errorf("message is %d bytes, limit is %d", size, dispatcher.config.MaxMessageBytes)
	}
	if request.Partition == nil {
		return nil
	}
	partition := *request.Partition
	if partition < 0 {
		return fmt.Errorf("partition %d is negative", partition)
	}
	var topic livestate.TopicSummary
	var known bool
	dispatcher.store.Read(func(state *livestate.State) { topic, known = state.Topic(request.Topic) })
	if known && int(partition) >= topic.Partitions {
		return fmt.Errorf("partition %d out of range, topic %q has %d partitions", partition, request.Topic, topic.Partitions)
	}
	return nil
}

func (dispatcher *Dispatcher) fail(failed job, attempts int, err error) {
	sendErr := &SendError{ID: failed.id, Topic: failed.request.Topic, Attempts: attempts, Err: err}
	now := dispatcher.clock.Now()
	dispatcher.store.Apply(func(state *livestate.State) bool {
		return state.MarkFailed(failed.id, sendErr.Error(), now)
	})
	dispatcher.logger.Warn("send failed", "id", failed.id, "topic", failed.request.Topic, "error", sendErr)
}

func (dispatcher *Dispatcher) produce(record ProduceRecord) (Delivery, error) {
	producer, err := dispatcher.currentProducer()
	if err != nil {
		return Delivery{}, err
	}
	ctx, cancel := context.WithTimeout(dispatcher.ctx, dispatcher.config.CallTimeout)
	defer cancel()
	return producer.Produce(ctx, record)
}

// currentProducer returns the producer for the session's current
// endpoints, opening (or replacing) it as needed.
func (dispatcher *Dispatcher) currentProducer() (Producer, error) {
	var endpoints []string
	dispatcher.store.Read(func(state *livestate.State) { endpoints = state.Connection().Endpoints })
	if len(endpoints) == 0 {
		return nil, ErrNotConnected
	}

	dispatcher.producerMu.Lock()
	defer dispatcher.producerMu.Unlock()
	if dispatcher.producer != nil && slices.Equal(dispatcher.producerEndpoints, endpoints) {
		return dispatcher.producer, nil
	}

	ctx, cancel := context.WithTimeout(dispatcher.ctx, dispatcher.config.CallTimeout)
	defer cancel()
	producer, err := dispatcher.dialer.OpenProducer(ctx, endpoints)
	if err != nil {
		return nil, fmt.Errorf("open producer: %w", err)
	}
	if dispatcher.producer != nil {
		dispatcher.producer.Close()
	}
	dispatcher.producer = producer
	dispatcher.producerEndpoints = endpoints
	return producer, nil
}
