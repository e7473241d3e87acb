// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sync"
)

// Command is an intent from the presentation layer. The concrete
// types are [Connect], [RefreshTopics], [OpenTopic], [CloseTopic],
// [SendMessage] and [Shutdown].
type Command interface {
	commandName() string
}

// Connect replaces the session target and starts connecting.
type Connect struct {
	Endpoints []string
	Group     string
}

// RefreshTopics asks for an immediate metadata refresh.
type RefreshTopics struct{}

// OpenTopic starts streaming a topic and focuses it. A nil Start uses
// the configured default.
type OpenTopic struct {
	Name  string
	Start *StartPosition
}

// CloseTopic stops streaming a topic and releases its buffer.
type CloseTopic struct {
	Name string
}

// SendMessage publishes one message. A nil Key means no key; a nil
// Partition lets the partitioner choose.
type SendMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition *int32
}

// Shutdown stops every component. Commands queued behind it are
// dropped.
type Shutdown struct{}

func (Connect) commandName() string       { return "connect" }
func (RefreshTopics) commandName() string { return "refresh topics" }
func (OpenTopic) commandName() string     { return "open topic" }
func (CloseTopic) commandName() string    { return "close topic" }
func (SendMessage) commandName() string   { return "send message" }
func (Shutdown) commandName() string      { return "shutdown" }

// enqueuedSend is the queue's form of SendMessage: the send has already
// been reserved with the dispatcher and only needs releasing to it in
// order.
type enqueuedSend struct {
	id    string
	topic string
}

func (enqueuedSend) commandName() string { return "send message" }

// commandQueue is an unbounded FIFO. push never blocks.
type commandQueue struct {
	mu     sync.Mutex
	items  []Command
	closed bool
	ready  chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{ready: make(chan struct{}, 1)}
}

func (queue *commandQueue) push(command Command) error {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.closed {
		return ErrShutdown
	}
	queue.items = append(queue.items, command)
	select {
	case queue.ready <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a command is available or ctx is done.
func (queue *commandQueue) pop(ctx context.Context) (Command, bool) {
	for {
		queue.mu.Lock()
		if len(queue.items) > 0 {
			command := queue.items[0]
			queue.items[0] = nil
			queue.items = queue.items[1:]
			queue.mu.Unlock()
			return command, true
		}
		queue.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, false
		case <-queue.ready:
		}
	}
}

// close rejects further pushes and drops anything still queued.
func (queue *commandQueue) close() []Command {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.closed = true
	dropped := queue.items
	queue.items = nil
	return dropped
}
