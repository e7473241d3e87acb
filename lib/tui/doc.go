// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides terminal building blocks for brokerview's
// bubbletea interface: the color theme, a scrollbar, a floating menu
// and the overlay splicing it needs, fuzzy matching for filters, and
// the heat tracker that makes new arrivals glow and fade.
//
// Nothing here knows about Kafka or the engine; state colors are keyed
// by the display strings the caller passes in.
package tui
