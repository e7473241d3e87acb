// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette. All colors use lipgloss ANSI
// 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Health colors shared by connections, streams and sends.
	Good    lipgloss.Color
	Pending lipgloss.Color
	Warning lipgloss.Color
	Bad     lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color

	// Animation accents: background tint for recently arrived
	// records. HotAccentProduced marks records this session sent.
	HotAccentArrival  lipgloss.Color
	HotAccentProduced lipgloss.Color

	// Filter match highlighting.
	MatchForeground lipgloss.Color

	// Floating menus.
	MenuBackground lipgloss.Color
}

// StateColor maps the display name of a connection, stream or send
// state to a health color. Unknown names are faint.
func (theme Theme) StateColor(state string) lipgloss.Color {
	switch state {
	case "connected", "streaming", "delivered":
		return theme.Good
	case "connecting", "starting", "queued", "in_flight", "stopping":
		return theme.Pending
	case "erroring":
		return theme.Warning
	case "failing", "failed":
		return theme.Bad
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	Good:    lipgloss.Color("114"), // green
	Pending: lipgloss.Color("220"), // amber
	Warning: lipgloss.Color("208"), // orange
	Bad:     lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("75"),

	HotAccentArrival:  lipgloss.Color("58"), // dark amber
	HotAccentProduced: lipgloss.Color("23"), // dark teal

	MatchForeground: lipgloss.Color("220"),

	MenuBackground: lipgloss.Color("237"),
}
