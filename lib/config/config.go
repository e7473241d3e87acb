// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/brokerview/lib/backoff"
	"github.com/bureau-foundation/brokerview/lib/engine"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "BROKERVIEW_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local clusters.
	Development Environment = "development"
	// Production is for shared clusters.
	Production Environment = "production"
)

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses strings such as "5s" or "250ms".
func (duration *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"5s\"", node.Line)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*duration = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (duration Duration) MarshalYAML() (any, error) {
	return time.Duration(duration).String(), nil
}

// Std returns the value as a time.Duration.
func (duration Duration) Std() time.Duration { return time.Duration(duration) }

// Config is the master configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	Cluster  ClusterConfig  `yaml:"cluster"`
	Session  SessionConfig  `yaml:"session"`
	Backoff  BackoffConfig  `yaml:"backoff"`
	Consumer ConsumerConfig `yaml:"consumer"`
	Producer ProducerConfig `yaml:"producer"`
	UI       UIConfig       `yaml:"ui"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds per-environment replacements. Zero fields leave the
// base value alone.
type Overrides struct {
	Cluster  *ClusterConfig  `yaml:"cluster,omitempty"`
	Session  *SessionConfig  `yaml:"session,omitempty"`
	Backoff  *BackoffConfig  `yaml:"backoff,omitempty"`
	Consumer *ConsumerConfig `yaml:"consumer,omitempty"`
	Producer *ProducerConfig `yaml:"producer,omitempty"`
	UI       *UIConfig       `yaml:"ui,omitempty"`
}

// ClusterConfig says what to connect to.
type ClusterConfig struct {
	// Brokers are bootstrap endpoints, tried in order.
	Brokers []string `yaml:"brokers"`

	// Group is used only to look up committed offsets.
	Group string `yaml:"group"`

	ClientID string `yaml:"client_id"`

	// Compression is the producer codec: none, gzip, snappy, lz4 or
	// zstd.
	Compression string `yaml:"compression"`
}

// SessionConfig tunes the metadata session.
type SessionConfig struct {
	RefreshInterval          Duration `yaml:"refresh_interval"`
	CallTimeout              Duration `yaml:"call_timeout"`
	PollTimeout              Duration `yaml:"poll_timeout"`
	MetadataFailureThreshold int      `yaml:"metadata_failure_threshold"`
}

// BackoffConfig is the reconnect and stream-restart schedule.
type BackoffConfig struct {
	Initial Duration `yaml:"initial"`
	Max     Duration `yaml:"max"`
	Jitter  float64  `yaml:"jitter"`
}

// ConsumerConfig tunes topic streams.
type ConsumerConfig struct {
	BufferCapacity int `yaml:"buffer_capacity"`

	// Start is tail, earliest, committed, offset or lookback. The
	// last two take their argument from Offset and Lookback, or
	// inline as "offset:100".
	Start    string `yaml:"start"`
	Offset   int64  `yaml:"offset"`
	Lookback int64  `yaml:"lookback"`

	MaxRetries int `yaml:"max_retries"`
}

// ProducerConfig tunes the send dispatcher.
type ProducerConfig struct {
	MaxInFlight     int      `yaml:"max_in_flight"`
	Retries         int      `yaml:"retries"`
	RetryInitial    Duration `yaml:"retry_initial"`
	RetryMax        Duration `yaml:"retry_max"`
	MaxMessageBytes int      `yaml:"max_message_bytes"`
	ResultRetention Duration `yaml:"result_retention"`
	MaxResults      int      `yaml:"max_results"`
}

// UIConfig tunes the terminal interface.
type UIConfig struct {
	// MaxRedrawPerSecond caps how often snapshot changes repaint.
	MaxRedrawPerSecond float64 `yaml:"max_redraw_per_second"`

	// Color is auto, always or never.
	Color string `yaml:"color"`
}

// Default returns the stock configuration. Engine tuning values
// mirror [engine.DefaultConfig].
func Default() *Config {
	defaults := engine.DefaultConfig()
	return &Config{
		Environment: Development,
		Cluster: ClusterConfig{
			Brokers:     []string{"localhost:9092"},
			ClientID:    "brokerview",
			Compression: "none",
		},
		Session: SessionConfig{
			RefreshInterval:          Duration(defaults.RefreshInterval),
			CallTimeout:              Duration(defaults.CallTimeout),
			PollTimeout:              Duration(defaults.PollTimeout),
			MetadataFailureThreshold: defaults.MetadataFailureThreshold,
		},
		Backoff: BackoffConfig{
			Initial: Duration(defaults.Backoff.Initial),
			Max:     Duration(defaults.Backoff.Max),
			Jitter:  defaults.Backoff.Jitter,
		},
		Consumer: ConsumerConfig{
			BufferCapacity: defaults.BufferCapacity,
			Start:          defaults.DefaultStart.String(),
			MaxRetries:     defaults.StreamMaxRetries,
		},
		Producer: ProducerConfig{
			MaxInFlight:     defaults.MaxInFlight,
			Retries:         defaults.SendRetries,
			RetryInitial:    Duration(defaults.SendBackoff.Initial),
			RetryMax:        Duration(defaults.SendBackoff.Max),
			MaxMessageBytes: defaults.MaxMessageBytes,
			ResultRetention: Duration(defaults.ResultRetention),
			MaxResults:      defaults.MaxResults,
		},
		UI: UIConfig{
			MaxRedrawPerSecond: 30,
			Color:              "auto",
		},
	}
}

// Load loads configuration from the file named by BROKERVIEW_CONFIG.
// It fails when the variable is unset; callers that can run without a
// file check the variable first.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your brokerview.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path over
// [Default] and applies the matching environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// JSON is a subset of YAML once comments, trailing commas and
	// tab indentation are gone.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		var compact bytes.Buffer
		if err := json.Compact(&compact, jsonc.ToJSON(data)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		data = compact.Bytes()
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if o := overrides.Cluster; o != nil {
		if len(o.Brokers) > 0 {
			c.Cluster.Brokers = o.Brokers
		}
		override(&c.Cluster.Group, o.Group)
		override(&c.Cluster.ClientID, o.ClientID)
		override(&c.Cluster.Compression, o.Compression)
	}
	if o := overrides.Session; o != nil {
		override(&c.Session.RefreshInterval, o.RefreshInterval)
		override(&c.Session.CallTimeout, o.CallTimeout)
		override(&c.Session.PollTimeout, o.PollTimeout)
		override(&c.Session.MetadataFailureThreshold, o.MetadataFailureThreshold)
	}
	if o := overrides.Backoff; o != nil {
		override(&c.Backoff.Initial, o.Initial)
		override(&c.Backoff.Max, o.Max)
		override(&c.Backoff.Jitter, o.Jitter)
	}
	if o := overrides.Consumer; o != nil {
		override(&c.Consumer.BufferCapacity, o.BufferCapacity)
		override(&c.Consumer.Start, o.Start)
		override(&c.Consumer.Offset, o.Offset)
		override(&c.Consumer.Lookback, o.Lookback)
		override(&c.Consumer.MaxRetries, o.MaxRetries)
	}
	if o := overrides.Producer; o != nil {
		override(&c.Producer.MaxInFlight, o.MaxInFlight)
		override(&c.Producer.Retries, o.Retries)
		override(&c.Producer.RetryInitial, o.RetryInitial)
		override(&c.Producer.RetryMax, o.RetryMax)
		override(&c.Producer.MaxMessageBytes, o.MaxMessageBytes)
		override(&c.Producer.ResultRetention, o.ResultRetention)
		override(&c.Producer.MaxResults, o.MaxResults)
	}
	if o := overrides.UI; o != nil {
		override(&c.UI.MaxRedrawPerSecond, o.MaxRedrawPerSecond)
		override(&c.UI.Color, o.Color)
	}
}

func override[T comparable](field *T, value T) {
	var zero T
	if value != zero {
		*field = value
	}
}

// StartPosition resolves the consumer start settings.
func (c *Config) StartPosition() (engine.StartPosition, error) {
	start := strings.TrimSpace(c.Consumer.Start)
	switch start {
	case "offset":
		start += ":" + strconv.FormatInt(c.Consumer.Offset, 10)
	case "lookback":
		start += ":" + strconv.FormatInt(c.Consumer.Lookback, 10)
	}
	return engine.ParseStartPosition(start)
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}
var colorModes = []string{"auto", "always", "never"}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if len(c.Cluster.Brokers) == 0 {
		errs = append(errs, errors.New("cluster.brokers needs at least one endpoint"))
	}
	for index, broker := range c.Cluster.Brokers {
		if strings.TrimSpace(broker) == "" {
			errs = append(errs, fmt.Errorf("cluster.brokers[%d] is empty", index))
		}
	}
	if c.Cluster.Compression != "" && !contains(compressions, strings.ToLower(c.Cluster.Compression)) {
		errs = append(errs, fmt.Errorf("cluster.compression must be one of: %v", compressions))
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"session.refresh_interval", c.Session.RefreshInterval.Std()},
		{"session.call_timeout", c.Session.CallTimeout.Std()},
		{"session.poll_timeout", c.Session.PollTimeout.Std()},
		{"backoff.initial", c.Backoff.Initial.Std()},
		{"backoff.max", c.Backoff.Max.Std()},
		{"producer.retry_initial", c.Producer.RetryInitial.Std()},
		{"producer.retry_max", c.Producer.RetryMax.Std()},
		{"producer.result_retention", c.Producer.ResultRetention.Std()},
	}
	for _, field := range positive {
		if field.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", field.name))
		}
	}
	if c.Backoff.Max < c.Backoff.Initial {
		errs = append(errs, errors.New("backoff.max must not be less than backoff.initial"))
	}
	if c.Producer.RetryMax < c.Producer.RetryInitial {
		errs = append(errs, errors.New("producer.retry_max must not be less than producer.retry_initial"))
	}
	if c.Backoff.Jitter < 0 || c.Backoff.Jitter >= 1 {
		errs = append(errs, errors.New("backoff.jitter must be in [0, 1)"))
	}

	counts := []struct {
		name  string
		value int
	}{
		{"session.metadata_failure_threshold", c.Session.MetadataFailureThreshold},
		{"consumer.buffer_capacity", c.Consumer.BufferCapacity},
		{"consumer.max_retries", c.Consumer.MaxRetries},
		{"producer.max_in_flight", c.Producer.MaxInFlight},
		{"producer.max_message_bytes", c.Producer.MaxMessageBytes},
		{"producer.max_results", c.Producer.MaxResults},
	}
	for _, field := range counts {
		if field.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", field.name))
		}
	}
	if c.Producer.Retries < 0 {
		errs = append(errs, errors.New("producer.retries must not be negative"))
	}

	if _, err := c.StartPosition(); err != nil {
		errs = append(errs, fmt.Errorf("consumer.start: %w", err))
	}

	if c.UI.MaxRedrawPerSecond <= 0 {
		errs = append(errs, errors.New("ui.max_redraw_per_second must be positive"))
	}
	if !contains(colorModes, c.UI.Color) {
		errs = append(errs, fmt.Errorf("ui.color must be one of: %v", colorModes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Engine converts the configuration into engine tuning knobs. It
// validates first.
func (c *Config) Engine() (engine.Config, error) {
	if err := c.Validate(); err != nil {
		return engine.Config{}, err
	}
	start, err := c.StartPosition()
	if err != nil {
		return engine.Config{}, err
	}
	retries := c.Producer.Retries
	if retries == 0 {
		// The engine reads zero as "use the default".
		retries = -1
	}
	return engine.Config{
		RefreshInterval:          c.Session.RefreshInterval.Std(),
		CallTimeout:              c.Session.CallTimeout.Std(),
		PollTimeout:              c.Session.PollTimeout.Std(),
		MetadataFailureThreshold: c.Session.MetadataFailureThreshold,
		Backoff: backoff.Policy{
			Initial: c.Backoff.Initial.Std(),
			Max:     c.Backoff.Max.Std(),
			Jitter:  c.Backoff.Jitter,
		},
		BufferCapacity:   c.Consumer.BufferCapacity,
		DefaultStart:     start,
		StreamMaxRetries: c.Consumer.MaxRetries,
		MaxInFlight:      c.Producer.MaxInFlight,
		SendRetries:      retries,
		SendBackoff: backoff.Policy{
			Initial: c.Producer.RetryInitial.Std(),
			Max:     c.Producer.RetryMax.Std(),
			Jitter:  c.Backoff.Jitter,
		},
		MaxMessageBytes: c.Producer.MaxMessageBytes,
		ResultRetention: c.Producer.ResultRetention.Std(),
		MaxResults:      c.Producer.MaxResults,
	}, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
