// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/brokerview/lib/clock"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// Options configures [New].
type Options struct {
	Dialer Dialer
	Config Config

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine ties the session, stream controller and dispatcher to one
// store and one command queue.
type Engine struct {
	store      *livestate.Store
	session    *Session
	streams    *StreamController
	dispatcher *Dispatcher
	config     Config
	logger     *slog.Logger

	queue        *commandQueue
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// New builds the engine and starts its command dispatch goroutine.
// Nothing connects until a [Connect] command arrives.
func New(options Options) *Engine {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	config := options.Config.withDefaults()
	store := livestate.NewStore()

	ctx, cancel := context.WithCancel(context.Background())
	engine := &Engine{
		store:      store,
		session:    NewSession(options.Dialer, store, clk, logger.With("component", "session"), config),
		streams:    NewStreamController(options.Dialer, store, clk, logger.With("component", "streams"), config),
		dispatcher: NewDispatcher(options.Dialer, store, clk, logger.With("component", "producer"), config),
		config:     config,
		logger:     logger,
		queue:      newCommandQueue(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go engine.dispatch(ctx)
	return engine
}

// Snapshot returns the current state. Safe to call from any goroutine
// at any rate.
func (engine *Engine) Snapshot() livestate.Snapshot { return engine.store.Snapshot() }

// Changed returns a channel closed on the next state change.
func (engine *Engine) Changed() <-chan struct{} { return engine.store.Changed() }

// Done is closed once shutdown has completed.
func (engine *Engine) Done() <-chan struct{} { return engine.done }

// Submit queues a command. It never blocks. After shutdown it returns
// [ErrShutdown]. A [SendMessage] is reserved immediately, so a
// *[BackpressureError] is returned here rather than observed later.
func (engine *Engine) Submit(command Command) error {
	if send, ok := command.(SendMessage); ok {
		_, err := engine.Send(send)
		return err
	}
	return engine.queue.push(command)
}

// Send queues a message and returns its request id. The outcome
// appears in Snapshot().PendingSends under that id.
func (engine *Engine) Send(message SendMessage) (string, error) {
	if message.Topic == "" {
		return "", &CommandError{Command: message.commandName(), Reason: "topic is empty"}
	}
	id, err := engine.dispatcher.Reserve(SendRequest(message))
	if err != nil {
		return "", err
	}
	if err := engine.queue.push(enqueuedSend{id: id, topic: message.Topic}); err != nil {
		return "", err
	}
	return id, nil
}

// Shutdown queues a [Shutdown] command and waits for it to complete or
// for ctx to end. Calling it again after shutdown just waits.
func (engine *Engine) Shutdown(ctx context.Context) error {
	if err := engine.queue.push(Shutdown{}); err != nil && !errors.Is(err, ErrShutdown) {
		return err
	}
	select {
	case <-engine.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (engine *Engine) dispatch(ctx context.Context) {
	for {
		command, ok := engine.queue.pop(ctx)
		if !ok {
			return
		}
		if _, stop := command.(Shutdown); stop {
			engine.shutdown()
			return
		}
		if err := engine.handle(command); err != nil {
			engine.logCommandError(command, err)
		}
	}
}

func (engine *Engine) handle(command Command) error {
	switch command := command.(type) {
	case Connect:
		if len(command.Endpoints) == 0 {
			return &CommandError{Command: command.commandName(), Reason: "no endpoints given"}
		}
		engine.session.Start(command.Endpoints, command.Group)
	case RefreshTopics:
		engine.session.RequestRefresh()
	case OpenTopic:
		if command.Name == "" {
			return &CommandError{Command: command.commandName(), Reason: "topic is empty"}
		}
		start := engine.config.DefaultStart
		if command.Start != nil {
			start = *command.Start
		}
		if err := engine.streams.Open(command.Name, start); err != nil {
			return err
		}
		// Fetch partition detail for the newly focused topic.
		engine.session.RequestRefresh()
	case CloseTopic:
		return engine.streams.Close(command.Name)
	case enqueuedSend:
		engine.dispatcher.Enqueue(command.id)
	default:
		return &CommandError{Command: command.commandName(), Reason: "unsupported command"}
	}
	return nil
}

// logCommandError reports failures the snapshot already reflects (or
// that change nothing) at a level matching how surprising they are.
func (engine *Engine) logCommandError(command Command, err error) {
	var alreadyOpen *AlreadyOpenError
	var commandErr *CommandError
	switch {
	case errors.As(err, &alreadyOpen), errors.As(err, &commandErr):
		engine.logger.Debug("command ignored", "command", command.commandName(), "reason", err)
	default:
		engine.logger.Warn("command failed", "command", command.commandName(), "error", err)
	}
}

// shutdown stops accepting commands, then stops streams, the session
// and the dispatcher in that order.
func (engine *Engine) shutdown() {
	engine.shutdownOnce.Do(func() {
		dropped := engine.queue.close()
		if len(dropped) > 0 {
			engine.logger.Debug("dropping commands queued behind shutdown", "count", len(dropped))
		}
		engine.streams.CloseAll()
		engine.session.Stop()
		engine.dispatcher.Close()
		engine.cancel()
		engine.logger.Info("engine shut down")
		close(engine.done)
	})
}
