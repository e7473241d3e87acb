// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the model for display in the
// status bar.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears a log line from the status bar. Serial
// matches the record it fades so a newer record is not cleared early.
type logRecordFadeMsg struct {
	Serial uint64
}

// logRecordFadeDelay is how long log messages stay in the status bar.
const logRecordFadeDelay = 5 * time.Second

// sender is the part of *tea.Program the handler uses.
type sender interface {
	Send(tea.Msg)
}

// TUILogHandler is a slog.Handler that routes records into a bubbletea
// program as messages. Records below the configured level are dropped,
// as are records arriving before SetProgram.
//
// Handlers derived via WithAttrs/WithGroup share the program pointer,
// so one SetProgram call reaches all of them.
type TUILogHandler struct {
	level   slog.Level
	program *atomic.Pointer[sender]
	attrs   []slog.Attr
	groups  []string
}

// NewTUILogHandler creates a handler that delivers records at or above
// level. Call SetProgram after creating the tea.Program.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level:   level,
		program: &atomic.Pointer[sender]{},
	}
}

// SetProgram sets the program that receives log messages. Safe to call
// from any goroutine.
func (handler *TUILogHandler) SetProgram(program *tea.Program) {
	handler.setSender(program)
}

func (handler *TUILogHandler) setSender(target sender) {
	handler.program.Store(&target)
}

// Enabled reports whether the handler wants records at level.
func (handler *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends it.
func (handler *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	target := handler.program.Load()
	if target == nil {
		return nil
	}

	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}

	var parts []string
	for _, attr := range handler.attrs {
		parts = appendAttr(parts, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = appendAttr(parts, prefix, attr)
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*target).Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

// appendAttr flattens group attributes into dotted keys.
func appendAttr(parts []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return parts
	}
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			parts = appendAttr(parts, groupPrefix, member)
		}
		return parts
	}
	return append(parts, prefix+attr.Key+"="+attr.Value.String())
}

// WithAttrs returns a handler with attrs appended. Attributes added
// inside a group carry the group prefix.
func (handler *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := &TUILogHandler{
		level:   handler.level,
		program: handler.program,
		attrs:   slices.Clone(handler.attrs),
		groups:  slices.Clone(handler.groups),
	}
	if len(handler.groups) == 0 {
		derived.attrs = append(derived.attrs, attrs...)
		return derived
	}
	members := make([]any, len(attrs))
	for index, attr := range attrs {
		members[index] = attr
	}
	derived.attrs = append(derived.attrs, slog.Group(strings.Join(handler.groups, "."), members...))
	return derived
}

// WithGroup returns a handler that prefixes later attributes with name.
func (handler *TUILogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	return &TUILogHandler{
		level:   handler.level,
		program: handler.program,
		attrs:   slices.Clone(handler.attrs),
		groups:  append(slices.Clone(handler.groups), name),
	}
}
