// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kafka implements the engine's downstream interfaces on
// franz-go. [Dialer] hands out three kinds of handle, each backed by
// its own kgo.Client:
//
//   - cluster handles (kadm) for topic, watermark, broker and group
//     metadata,
//   - consumers that read one topic through direct partition
//     assignment, never joining a consumer group, so browsing never
//     moves a group's committed offsets,
//   - producers with a partitioner that honors an explicitly requested
//     partition and otherwise hashes the key.
//
// Broker error codes are classified with kerr: codes that retrying
// cannot fix (oversized or invalid records, authorization and SASL
// failures, unsupported versions) come back wrapped with
// engine.Permanent so the engine fails fast instead of burning its
// retry budget.
package kafka
