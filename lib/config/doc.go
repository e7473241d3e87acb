// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads brokerview configuration.
//
// Configuration comes from a single file named either by the
// BROKERVIEW_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery of ~/.config or any
// other location. Running without a file is fine: [Default] is a
// complete configuration and command-line flags override it.
//
// Files are YAML. Files ending in .json or .jsonc are accepted too;
// comments and trailing commas are stripped before parsing.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. Durations are
// written as strings ("5s", "250ms").
//
// Key exports:
//
//   - [Config] -- cluster, session, backoff, consumer, producer, ui
//   - [Default] -- the stock configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Engine] -- conversion to the engine's tuning knobs
package config
