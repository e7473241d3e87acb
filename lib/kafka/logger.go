// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// slogLogger routes franz-go's internal logging into slog. Client
// chatter is demoted one level: kgo's info is our debug, and kgo's
// debug is dropped.
type slogLogger struct {
	logger *slog.Logger
}

func (adapter slogLogger) Level() kgo.LogLevel {
	ctx := context.Background()
	switch {
	case adapter.logger.Enabled(ctx, slog.LevelDebug):
		return kgo.LogLevelInfo
	case adapter.logger.Enabled(ctx, slog.LevelWarn):
		return kgo.LogLevelWarn
	case adapter.logger.Enabled(ctx, slog.LevelError):
		return kgo.LogLevelError
	default:
		return kgo.LogLevelNone
	}
}

func (adapter slogLogger) Log(level kgo.LogLevel, message string, keyvals ...any) {
	var slogLevel slog.Level
	switch level {
	case kgo.LogLevelError:
		slogLevel = slog.LevelError
	case kgo.LogLevelWarn:
		slogLevel = slog.LevelWarn
	case kgo.LogLevelInfo:
		slogLevel = slog.LevelDebug
	default:
		return
	}
	adapter.logger.Log(context.Background(), slogLevel, message, keyvals...)
}
