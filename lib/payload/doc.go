// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package payload turns raw message bytes into something an operator
// can read. [Decode] peels off a zstd or lz4 frame if one is present,
// then recognizes JSON, CBOR (rendered as JSON) and UTF-8 text, falling
// back to a hex dump. Every preview carries a short BLAKE3 fingerprint
// of the original bytes so identical payloads are easy to spot.
package payload
