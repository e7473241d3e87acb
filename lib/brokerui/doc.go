// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package brokerui is the bubbletea front end for brokerview.
//
// The model never talks to a broker. It renders the engine's latest
// snapshot and turns keystrokes into engine commands. Snapshots are
// pulled when the engine signals a change, no more often than the
// configured redraw rate, so a busy topic cannot starve input handling.
//
// Three tabs: Topics (a filterable list; a selected topic has Info,
// Messages and Send pages), Groups and Brokers. A [TUILogHandler]
// routes warnings from background components into the status bar
// because writing to stderr would corrupt the alternate screen.
package brokerui
