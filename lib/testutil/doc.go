// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the few helpers that need a wall-clock
// timeout in tests. [RequireReceive] and [RequireClosed] wrap the
// select-with-deadline pattern so a hung goroutine fails the test with
// a message instead of stalling the whole run. Everything else in the
// test suite drives time through lib/clock.
package testutil
