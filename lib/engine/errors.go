// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShutdown is returned for commands submitted after shutdown.
	ErrShutdown = errors.New("engine is shut down")

	// ErrNotConnected means no Connect command has supplied endpoints
	// yet, or the session has no live cluster handle.
	ErrNotConnected = errors.New("not connected")
)

// PermanentError marks a downstream failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a
// [PermanentError].
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}

// EndpointError is one endpoint's contribution to a ConnectionError.
type EndpointError struct {
	Endpoint string
	Err      error
}

// ConnectionError reports that no endpoint could be reached.
type ConnectionError struct {
	Endpoints []EndpointError
}

func (e *ConnectionError) Error() string {
	if len(e.Endpoints) == 0 {
		return "connect: no endpoints configured"
	}
	parts := make([]string, len(e.Endpoints))
	for i, failure := range e.Endpoints {
		parts[i] = failure.Endpoint + ": " + failure.Err.Error()
	}
	return fmt.Sprintf("connect: all %d endpoints unreachable (%s)", len(e.Endpoints), strings.Join(parts, "; "))
}

func (e *ConnectionError) Unwrap() []error {
	errs := make([]error, len(e.Endpoints))
	for i, failure := range e.Endpoints {
		errs[i] = failure.Err
	}
	return errs
}

// Permanent reports whether every endpoint failed permanently (or
// there were no endpoints at all). The session stops retrying such a
// failure until a new connect request arrives.
func (e *ConnectionError) Permanent() bool {
	for _, failure := range e.Endpoints {
		if !IsPermanent(failure.Err) {
			return false
		}
	}
	return true
}

// MetadataError reports a failed metadata refresh.
type MetadataError struct {
	Op  string
	Err error
}

func (e *MetadataError) Error() string { return "refresh metadata: " + e.Op + ": " + e.Err.Error() }
func (e *MetadataError) Unwrap() error { return e.Err }

// StreamError reports a failed consumer operation on one topic.
type StreamError struct {
	Topic string
	Op    string
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %q: %s: %v", e.Topic, e.Op, e.Err)
}
func (e *StreamError) Unwrap() error { return e.Err }

// AlreadyOpenError is returned when opening a topic that already has
// an active stream task.
type AlreadyOpenError struct {
	Topic string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("topic %q is already open", e.Topic)
}

// BackpressureError rejects a send because the in-flight ceiling is
// reached. The rejected send was never queued.
type BackpressureError struct {
	Pending int
	Limit   int
}

func (e *BackpressureError) Error() string {
	return fmt.Sprintf("send rejected: %d sends pending, limit is %d", e.Pending, e.Limit)
}

// SendError is the terminal failure of one produce request.
type SendError struct {
	ID       string
	Topic    string
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("send to %q: %v", e.Topic, e.Err)
	}
	return fmt.Sprintf("send to %q failed after %d attempts: %v", e.Topic, e.Attempts, e.Err)
}
func (e *SendError) Unwrap() error { return e.Err }

// CommandError describes a malformed or contradictory command. The
// engine logs it and otherwise treats the command as a no-op.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return e.Command + ": " + e.Reason
}
