// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderScrollbar produces a single-column scrollbar of the given
// height. The thumb marks the visible window within totalItems. When
// everything fits the column is blank so short lists stay quiet.
func RenderScrollbar(theme Theme, height, totalItems, visibleItems, scrollOffset int) string {
	if height <= 0 {
		return ""
	}

	lines := make([]string, height)
	if totalItems <= visibleItems || totalItems <= 0 {
		for index := range lines {
			lines[index] = " "
		}
		return strings.Join(lines, "\n")
	}

	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(theme.Accent)

	thumbSize := max(height*visibleItems/totalItems, 1)
	scrollableRange := totalItems - visibleItems
	trackRange := height - thumbSize
	thumbOffset := 0
	if trackRange > 0 {
		thumbOffset = min(scrollOffset, scrollableRange) * trackRange / scrollableRange
	}

	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
