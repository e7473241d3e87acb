// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// MenuOption is a single selectable item in a [Menu].
type MenuOption struct {
	Label string // Display text.
	Value string // What the caller acts on.
}

// Menu is a floating pick-one list. The model owns it and routes keys
// to it while it is open.
type Menu struct {
	Title   string
	Options []MenuOption
	Cursor  int

	// Target identifies what the selection applies to, such as a
	// topic name.
	Target string
}

// MoveUp moves the cursor up by one, wrapping to the bottom.
func (menu *Menu) MoveUp() {
	menu.Cursor--
	if menu.Cursor < 0 {
		menu.Cursor = len(menu.Options) - 1
	}
}

// MoveDown moves the cursor down by one, wrapping to the top.
func (menu *Menu) MoveDown() {
	menu.Cursor++
	if menu.Cursor >= len(menu.Options) {
		menu.Cursor = 0
	}
}

// Selected returns the highlighted option.
func (menu *Menu) Selected() MenuOption {
	return menu.Options[menu.Cursor]
}

// Width returns the rendered width in columns.
func (menu *Menu) Width() int {
	widest := ansi.StringWidth(menu.Title)
	for _, option := range menu.Options {
		widest = max(widest, ansi.StringWidth(option.Label)+2)
	}
	return widest + 2
}

// Render produces equal-width lines for [SpliceOverlay] or
// [CenterOverlay]: a title row followed by one row per option.
func (menu *Menu) Render(theme Theme) []string {
	totalWidth := menu.Width()
	innerWidth := totalWidth - 2

	base := lipgloss.NewStyle().Background(theme.MenuBackground).Foreground(theme.NormalText)
	title := base.Foreground(theme.HeaderForeground).Bold(true)
	selected := lipgloss.NewStyle().Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)

	pad := func(content string) string {
		return " " + content + strings.Repeat(" ", max(innerWidth-ansi.StringWidth(content), 0)) + " "
	}

	lines := []string{title.Render(pad(menu.Title))}
	for index, option := range menu.Options {
		if index == menu.Cursor {
			lines = append(lines, selected.Render(pad("> "+option.Label)))
			continue
		}
		lines = append(lines, base.Render(pad("  "+option.Label)))
	}
	return lines
}
