// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/brokerview/lib/backoff"
	"github.com/bureau-foundation/brokerview/lib/clock"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// StreamController runs one consumer task per open topic. Each task
// owns its Consumer and writes only its topic's buffer and stream
// status.
type StreamController struct {
	dialer Dialer
	store  *livestate.Store
	clock  clock.Clock
	logger *slog.Logger
	config Config

	mu         sync.Mutex
	active     map[string]*streamTask
	generation uint64
	tasks      sync.WaitGroup
}

type streamTask struct {
	topic      string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewStreamController returns a controller with no open topics.
func NewStreamController(dialer Dialer, store *livestate.Store, clk clock.Clock, logger *slog.Logger, config Config) *StreamController {
	return &StreamController{
		dialer: dialer,
		store:  store,
		clock:  clk,
		logger: logger,
		config: config.withDefaults(),
		active: make(map[string]*streamTask),
	}
}

// Open starts streaming topic from start and focuses it. When a task
// for topic is already active it returns *[AlreadyOpenError] and
// changes nothing. A topic whose previous task is still winding down
// after Close, or which ended Failed, may be opened again.
func (controller *StreamController) Open(topic string, start StartPosition) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if _, exists := controller.active[topic]; exists {
		return &AlreadyOpenError{Topic: topic}
	}

	var connection livestate.Connection
	controller.store.Read(func(state *livestate.State) { connection = state.Connection() })

	controller.generation++
	generation := controller.generation
	controller.store.Apply(func(state *livestate.State) bool {
		state.StartStream(topic, generation, controller.config.BufferCapacity)
		state.SetOpenTopic(topic)
		return true
	})

	if len(connection.Endpoints) == 0 {
		err := &StreamError{Topic: topic, Op: "open", Err: Permanent(ErrNotConnected)}
		controller.store.Apply(func(state *livestate.State) bool {
			return state.SetStreamState(topic, generation, livestate.StreamFailed, 0, err.Error())
		})
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &streamTask{topic: topic, generation: generation, cancel: cancel, done: make(chan struct{})}
	controller.active[topic] = task

	config := ConsumerConfig{
		Endpoints: connection.Endpoints,
		Group:     connection.Group,
		Topic:     topic,
		Start:     start,
	}
	controller.tasks.Add(1)
	go func() {
		defer controller.tasks.Done()
		defer close(task.done)
		controller.run(ctx, task, config)
	}()
	controller.logger.Info("topic opened", "topic", topic, "start", start.String(), "generation", generation)
	return nil
}

// Close cancels topic's task, marks it Stopping and releases its
// buffer at once. The task exits after its in-progress fetch returns,
// at which point the stream entry disappears from the store. Closing a
// topic with no task returns a *[CommandError] and changes nothing,
// except that a Failed topic's status is cleared.
func (controller *StreamController) Close(topic string) error {
	controller.mu.Lock()
	task, exists := controller.active[topic]
	if exists {
		delete(controller.active, topic)
	}
	controller.mu.Unlock()

	if !exists {
		cleared := controller.store.Apply(func(state *livestate.State) bool {
			status, ok := state.Stream(topic)
			if !ok || status.State != livestate.StreamFailed {
				return false
			}
			state.DropStream(topic)
			if state.OpenTopic() == topic {
				state.SetOpenTopic("")
			}
			return true
		})
		if cleared {
			return nil
		}
		return &CommandError{Command: "close topic", Reason: "topic " + topic + " is not open"}
	}

	task.cancel()
	controller.store.Apply(func(state *livestate.State) bool {
		return state.StopStream(topic)
	})
	controller.logger.Info("topic closed", "topic", topic, "generation", task.generation)
	return nil
}

// CloseAll closes every open topic and waits for all tasks to exit.
func (controller *StreamController) CloseAll() {
	controller.mu.Lock()
	topics := make([]string, 0, len(controller.active))
	for topic := range controller.active {
		topics = append(topics, topic)
	}
	controller.mu.Unlock()

	for _, topic := range topics {
		controller.Close(topic)
	}
	controller.tasks.Wait()
}

// Done returns a channel closed when the task for topic exits, or nil
// if topic has no active task.
func (controller *StreamController) Done(topic string) <-chan struct{} {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if task, ok := controller.active[topic]; ok {
		return task.done
	}
	return nil
}

func (controller *StreamController) run(ctx context.Context, task *streamTask, config ConsumerConfig) {
	defer controller.finish(task)

	retry := backoff.New(controller.config.Backoff)
	failures := 0
	for {
		err := controller.consume(ctx, task, config, func() {
			if failures > 0 {
				failures = 0
				retry.Reset()
			}
		})
		if ctx.Err() != nil {
			return
		}

		failures++
		if IsPermanent(err) || failures >= controller.config.StreamMaxRetries {
			controller.setState(task, livestate.StreamFailed, failures, err.Error())
			controller.logger.Error("stream failed", "topic", task.topic, "error", err, "failures", failures)
			return
		}
		delay := retry.Next()
		controller.setState(task, livestate.StreamErroring, failures, err.Error())
		controller.logger.Warn("stream interrupted, retrying", "topic", task.topic, "error", err, "failures", failures, "backoff", delay)
		if clock.Sleep(ctx, controller.clock, delay) != nil {
			return
		}

		// Resume where the buffer left off rather than re-applying
		// the start position.
		controller.store.Read(func(state *livestate.State) {
			config.Resume = state.ResumeOffsets(task.topic, task.generation)
		})
		controller.setState(task, livestate.StreamStarting, failures, err.Error())
	}
}

// consume opens a consumer and fetches until ctx is cancelled or a
// fetch fails. healthy runs after every successful fetch.
func (controller *StreamController) consume(ctx context.Context, task *streamTask, config ConsumerConfig, healthy func()) error {
	openCtx, cancel := context.WithTimeout(ctx, controller.config.CallTimeout)
	consumer, err := controller.dialer.OpenConsumer(openCtx, config)
	cancel()
	if err != nil {
		return &StreamError{Topic: task.topic, Op: "open consumer", Err: err}
	}
	defer consumer.Close()

	streaming := false
	for ctx.Err() == nil {
		// The fetch is not cancelled by Close: cancellation is
		// observed between fetches, and PollTimeout bounds each one.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), controller.config.PollTimeout)
		records, err := consumer.Fetch(fetchCtx)
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return &StreamError{Topic: task.topic, Op: "fetch", Err: err}
		}
		if !streaming {
			streaming = true
			healthy()
			controller.setState(task, livestate.StreamStreaming, 0, "")
		}
		if len(records) == 0 {
			continue
		}

		var discarded int
		controller.store.Apply(func(state *livestate.State) bool {
			var accepted int
			accepted, discarded = state.AppendRecords(task.topic, task.generation, records)
			return accepted+discarded > 0
		})
		if discarded > 0 {
			controller.logger.Debug("discarded out-of-order records", "topic", task.topic, "count", discarded)
		}
	}
	return ctx.Err()
}

func (controller *StreamController) setState(task *streamTask, next livestate.StreamState, failures int, lastError string) {
	controller.store.Apply(func(state *livestate.State) bool {
		return state.SetStreamState(task.topic, task.generation, next, failures, lastError)
	})
}

// finish removes the task's bookkeeping. A Failed stream keeps its
// store entry so the failure stays visible until the topic is closed
// or reopened.
func (controller *StreamController) finish(task *streamTask) {
	controller.mu.Lock()
	if controller.active[task.topic] == task {
		delete(controller.active, task.topic)
	}
	controller.mu.Unlock()

	controller.store.Apply(func(state *livestate.State) bool {
		return state.RemoveStream(task.topic, task.generation)
	})
}
