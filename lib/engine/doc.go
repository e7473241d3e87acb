// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the live session engine behind the broker browser.
// It owns the broker connection, keeps topic metadata fresh, streams
// consumed messages into bounded per-topic buffers and dispatches
// produced messages, publishing everything through a [livestate.Store].
//
// Four components run as independent goroutines:
//
//   - [Session] connects to the first reachable endpoint and refreshes
//     metadata on a fixed interval, reconnecting with backoff when the
//     cluster stops answering.
//   - [StreamController] runs one consumer task per open topic.
//   - [Dispatcher] delivers produce requests with per-key ordering and
//     a bounded number of requests outstanding.
//   - [Engine] reads intents from an unbounded command queue and routes
//     them to the other three, strictly in submission order.
//
// The presentation layer never touches the components directly. It
// submits commands and reads [Engine.Snapshot], waiting on
// [Engine.Changed] between frames.
//
// The broker protocol itself sits behind the [Dialer], [Cluster],
// [Consumer] and [Producer] interfaces; lib/kafka implements them on
// franz-go. Tests substitute in-memory fakes and drive every timer
// through [clock.FakeClock].
package engine
