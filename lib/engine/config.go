// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"time"

	"github.com/bureau-foundation/brokerview/lib/backoff"
)

// Config holds the engine's tuning knobs. Zero fields take the
// defaults from [DefaultConfig].
type Config struct {
	// RefreshInterval is the metadata refresh period.
	RefreshInterval time.Duration

	// CallTimeout bounds every blocking downstream call.
	CallTimeout time.Duration

	// PollTimeout bounds a single consumer fetch. Closing a topic
	// takes effect after the in-progress fetch returns, so this is
	// the close latency bound.
	PollTimeout time.Duration

	// MetadataFailureThreshold is the number of consecutive refresh
	// failures after which the connection goes Failing and the
	// session reconnects.
	MetadataFailureThreshold int

	// Backoff paces session reconnects, silent metadata retries and
	// stream restarts.
	Backoff backoff.Policy

	BufferCapacity int
	DefaultStart   StartPosition

	// StreamMaxRetries is the number of consecutive stream failures
	// after which the topic is marked Failed.
	StreamMaxRetries int

	// MaxInFlight caps Queued plus InFlight sends.
	MaxInFlight int

	// SendRetries is the number of retries after the first attempt,
	// for transient failures only. Negative disables retries.
	SendRetries     int
	SendBackoff     backoff.Policy
	MaxMessageBytes int

	// ResultRetention is how long terminal send results stay
	// visible; MaxResults caps how many are kept.
	ResultRetention time.Duration
	MaxResults      int
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:          5 * time.Second,
		CallTimeout:              10 * time.Second,
		PollTimeout:              3 * time.Second,
		MetadataFailureThreshold: 3,
		Backoff:                  backoff.DefaultPolicy,
		BufferCapacity:           1000,
		DefaultStart:             Tail,
		StreamMaxRetries:         5,
		MaxInFlight:              100,
		SendRetries:              3,
		SendBackoff:              backoff.Policy{Initial: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
		MaxMessageBytes:          1 << 20,
		ResultRetention:          30 * time.Second,
		MaxResults:               256,
	}
}

func (config Config) withDefaults() Config {
	defaults := DefaultConfig()
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = defaults.RefreshInterval
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaults.CallTimeout
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = defaults.PollTimeout
	}
	config.PollTimeout = min(config.PollTimeout, config.CallTimeout)
	if config.MetadataFailureThreshold <= 0 {
		config.MetadataFailureThreshold = defaults.MetadataFailureThreshold
	}
	if config.Backoff == (backoff.Policy{}) {
		config.Backoff = defaults.Backoff
	}
	if config.BufferCapacity <= 0 {
		config.BufferCapacity = defaults.BufferCapacity
	}
	if config.StreamMaxRetries <= 0 {
		config.StreamMaxRetries = defaults.StreamMaxRetries
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = defaults.MaxInFlight
	}
	switch {
	case config.SendRetries == 0:
		config.SendRetries = defaults.SendRetries
	case config.SendRetries < 0:
		config.SendRetries = 0
	}
	if config.SendBackoff == (backoff.Policy{}) {
		config.SendBackoff = defaults.SendBackoff
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if config.ResultRetention <= 0 {
		config.ResultRetention = defaults.ResultRetention
	}
	if config.MaxResults <= 0 {
		config.MaxResults = defaults.MaxResults
	}
	return config
}
