// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which brokerview build is running.
//
// Four package-level variables are injected at build time via
// -ldflags -X: [GitCommit], [GitDirty], [BuildTime] and [Version].
// When a binary is built without them (go install, go run), the VCS
// stamp the Go toolchain embeds is used instead.
//
//   - [Info] -- "0.1.0-dev (abc1234, 2026-02-10T...)" for --version
//   - [Full] -- Info plus Go version, platform and franz-go version
//   - [Short] -- just the version number
package version
