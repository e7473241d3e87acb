// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// SpliceOverlay replaces a rectangular region of a rendered view with
// overlay lines placed at (anchorX, anchorY). Truncation is ANSI-aware
// so styling on either side of the overlay survives.
func SpliceOverlay(view string, overlayLines []string, anchorX, anchorY int) string {
	if len(overlayLines) == 0 {
		return view
	}

	viewLines := strings.Split(view, "\n")
	overlayWidth := ansi.StringWidth(overlayLines[0])

	for index, overlayLine := range overlayLines {
		row := anchorY + index
		if row < 0 || row >= len(viewLines) {
			continue
		}
		viewLine := viewLines[row]

		var line strings.Builder
		if anchorX > 0 {
			prefix := ansi.Truncate(viewLine, anchorX, "")
			line.WriteString(prefix)
			// Short lines need padding so the overlay lands in its
			// column.
			if gap := anchorX - ansi.StringWidth(prefix); gap > 0 {
				line.WriteString(strings.Repeat(" ", gap))
			}
		}
		line.WriteString("\x1b[0m")
		line.WriteString(overlayLine)
		line.WriteString("\x1b[0m")

		if suffixStart := anchorX + overlayWidth; suffixStart < ansi.StringWidth(viewLine) {
			line.WriteString(ansi.TruncateLeft(viewLine, suffixStart, ""))
		}
		viewLines[row] = line.String()
	}

	return strings.Join(viewLines, "\n")
}

// CenterOverlay splices overlay lines into the middle of a view of the
// given dimensions.
func CenterOverlay(view string, overlayLines []string, width, height int) string {
	if len(overlayLines) == 0 {
		return view
	}
	anchorX := max((width-ansi.StringWidth(overlayLines[0]))/2, 0)
	anchorY := max((height-len(overlayLines))/2, 0)
	return SpliceOverlay(view, overlayLines, anchorX, anchorY)
}
