// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// StartMode selects where a newly opened stream begins reading.
type StartMode int

const (
	// StartTail reads only records produced after the stream opens.
	StartTail StartMode = iota
	// StartEarliest reads from the low watermark.
	StartEarliest
	// StartOffset reads every partition from a fixed offset.
	StartOffset
	// StartLookback reads the last N records of every partition.
	StartLookback
	// StartCommitted reads from the consumer group's committed
	// offsets, falling back to tail for partitions without one.
	StartCommitted
)

// StartPosition is a StartMode plus its argument.
type StartPosition struct {
	Mode StartMode

	// Value is the offset for StartOffset and the record count for
	// StartLookback.
	Value int64
}

// Tail is the default start position.
var Tail = StartPosition{Mode: StartTail}

func (position StartPosition) String() string {
	switch position.Mode {
	case StartTail:
		return "tail"
	case StartEarliest:
		return "earliest"
	case StartOffset:
		return "offset:" + strconv.FormatInt(position.Value, 10)
	case StartLookback:
		return "lookback:" + strconv.FormatInt(position.Value, 10)
	case StartCommitted:
		return "committed"
	default:
		return fmt.Sprintf("start_mode(%d)", int(position.Mode))
	}
}

// ParseStartPosition parses "tail", "earliest", "committed",
// "offset:N" or "lookback:N".
func ParseStartPosition(text string) (StartPosition, error) {
	name, argument, hasArgument := strings.Cut(strings.TrimSpace(text), ":")
	switch name {
	case "tail", "latest", "":
		if hasArgument {
			break
		}
		return Tail, nil
	case "earliest":
		if hasArgument {
			break
		}
		return StartPosition{Mode: StartEarliest}, nil
	case "committed":
		if hasArgument {
			break
		}
		return StartPosition{Mode: StartCommitted}, nil
	case "offset", "lookback":
		value, err := strconv.ParseInt(argument, 10, 64)
		if !hasArgument || err != nil || value < 0 {
			return StartPosition{}, fmt.Errorf("start position %q: %s needs a non-negative integer, as in %s:100", text, name, name)
		}
		mode := StartOffset
		if name == "lookback" {
			mode = StartLookback
		}
		return StartPosition{Mode: mode, Value: value}, nil
	}
	return StartPosition{}, fmt.Errorf("start position %q: want tail, earliest, committed, offset:N or lookback:N", text)
}
