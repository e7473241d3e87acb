// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package livestate is the shared state store of the live session
// engine: the single place where connection status, the topic catalog,
// per-topic message buffers and producer outcomes live.
//
// Two operations make up the whole surface:
//
//   - [Store.Snapshot] returns an immutable, internally consistent copy
//     of everything plus its version number. The presentation layer
//     calls it every frame; when nothing changed since the last call
//     the cached copy is returned without touching state.
//   - [Store.Apply] runs a mutation function under the store's single
//     mutex. The function receives a *[State] whose methods keep the
//     invariants (ring capacity, per-partition offset order, legal
//     connection transitions) and reports whether it changed anything.
//     The version is bumped only for real changes.
//
// [Store.Changed] returns a channel closed on the next version bump,
// so readers can wait for change instead of polling.
//
// Data flow:
//
//	session / streams / producer
//	        | Apply(func(*State) bool)
//	     [Store] -- version++ --> Changed()
//	        | Snapshot()
//	   presentation layer
//
// Byte slices inside records (keys and values) are shared between the
// store and snapshots. Nothing in this package mutates them after a
// record is created, and callers must not either.
package livestate
