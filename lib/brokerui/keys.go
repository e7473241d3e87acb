// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings. Navigation is context-sensitive:
// the same keys move the topic list cursor, scroll messages, or walk
// the group and broker lists.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Back     key.Binding // Leave the topic pages for the list.
	Open     key.Binding // Open the selected topic.
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Tab switching.
	TabTopics  key.Binding
	TabGroups  key.Binding
	TabBrokers key.Binding
	NextTab    key.Binding

	// Topic pages.
	NextPage  key.Binding // Info -> Messages -> Send.
	OpenFrom  key.Binding // Pick a start position, then open.
	EditSend  key.Binding // Focus the send form.
	ToggleRaw key.Binding // Show the selected record as hex.

	FilterActivate key.Binding
	Refresh        key.Binding
	Quit           key.Binding // Also "back" on topic pages.
}

// DefaultKeyMap is the built-in key binding set: vim-style movement
// alongside arrows.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Back: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "back"),
	),
	Open: key.NewBinding(
		key.WithKeys("l", "right", "enter"),
		key.WithHelp("l/⏎", "open"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "first"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "last"),
	),
	TabTopics: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "topics"),
	),
	TabGroups: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "groups"),
	),
	TabBrokers: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "brokers"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next page"),
	),
	OpenFrom: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open from…"),
	),
	EditSend: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "send"),
	),
	ToggleRaw: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "hex"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "back/quit"),
	),
}
