// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/bureau-foundation/brokerview/lib/engine"
)

// Options configures every client the Dialer creates.
type Options struct {
	// ClientID is sent to brokers with every request.
	ClientID string

	// Compression is the producer batch codec: none, gzip, snappy,
	// lz4 or zstd.
	Compression string

	// DialTimeout bounds each TCP connection attempt.
	DialTimeout time.Duration

	// DeliveryTimeout bounds how long the producer keeps a record
	// buffered before failing it.
	DeliveryTimeout time.Duration

	Logger *slog.Logger
}

// Dialer implements engine.Dialer on franz-go.
type Dialer struct {
	options     Options
	compression kgo.CompressionCodec
}

var _ engine.Dialer = (*Dialer)(nil)

// NewDialer validates options and returns a Dialer.
func NewDialer(options Options) (*Dialer, error) {
	compression, err := ParseCompression(options.Compression)
	if err != nil {
		return nil, err
	}
	if options.ClientID == "" {
		options.ClientID = "brokerview"
	}
	if options.DialTimeout <= 0 {
		options.DialTimeout = 10 * time.Second
	}
	if options.DeliveryTimeout <= 0 {
		options.DeliveryTimeout = 10 * time.Second
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Dialer{options: options, compression: compression}, nil
}

// ParseCompression maps a codec name to its kgo codec. Empty means
// none.
func ParseCompression(name string) (kgo.CompressionCodec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return kgo.NoCompression(), nil
	case "gzip":
		return kgo.GzipCompression(), nil
	case "snappy":
		return kgo.SnappyCompression(), nil
	case "lz4":
		return kgo.Lz4Compression(), nil
	case "zstd":
		return kgo.ZstdCompression(), nil
	}
	return kgo.CompressionCodec{}, fmt.Errorf("unknown compression %q (want none, gzip, snappy, lz4 or zstd)", name)
}

func (dialer *Dialer) baseOptions(endpoints []string) []kgo.Opt {
	return []kgo.Opt{
		kgo.SeedBrokers(endpoints...),
		kgo.ClientID(dialer.options.ClientID),
		kgo.DialTimeout(dialer.options.DialTimeout),
		kgo.WithLogger(slogLogger{logger: dialer.options.Logger}),
	}
}

func (dialer *Dialer) newClient(endpoints []string, extra ...kgo.Opt) (*kgo.Client, error) {
	client, err := kgo.NewClient(append(dialer.baseOptions(endpoints), extra...)...)
	if err != nil {
		// Option validation failures never succeed on retry.
		return nil, engine.Permanent(fmt.Errorf("create kafka client: %w", err))
	}
	return client, nil
}

// DialCluster connects to endpoint and pings it.
func (dialer *Dialer) DialCluster(ctx context.Context, endpoint string) (engine.Cluster, error) {
	client, err := dialer.newClient([]string{endpoint})
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, classify(err)
	}
	return &cluster{admin: kadm.NewClient(client)}, nil
}

// OpenConsumer resolves the topic's partitions and starting offsets
// with a short-lived admin client, then starts a consumer client
// assigned to those partitions.
func (dialer *Dialer) OpenConsumer(ctx context.Context, config engine.ConsumerConfig) (engine.Consumer, error) {
	client, err := dialer.newClient(config.Endpoints)
	if err != nil {
		return nil, err
	}
	admin := kadm.NewClient(client)
	starts, err := resolveStarts(ctx, admin, config)
	admin.Close()
	if err != nil {
		return nil, err
	}

	consumerClient, err := dialer.newClient(config.Endpoints,
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{config.Topic: starts}),
	)
	if err != nil {
		return nil, err
	}
	return &consumer{client: consumerClient, topic: config.Topic}, nil
}

// OpenProducer returns a producer for endpoints.
func (dialer *Dialer) OpenProducer(ctx context.Context, endpoints []string) (engine.Producer, error) {
	client, err := dialer.newClient(endpoints,
		kgo.ProducerBatchCompression(dialer.compression),
		kgo.RecordPartitioner(explicitPartitioner{fallback: kgo.StickyKeyPartitioner(nil)}),
		kgo.RecordDeliveryTimeout(dialer.options.DeliveryTimeout),
	)
	if err != nil {
		return nil, err
	}
	return &producer{client: client}, nil
}
