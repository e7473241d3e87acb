// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

// startChoices are offered by the "open from" menu.
var startChoices = []struct {
	label    string
	position engine.StartPosition
}{
	{"new records only", engine.Tail},
	{"last 10 per partition", engine.StartPosition{Mode: engine.StartLookback, Value: 10}},
	{"last 100 per partition", engine.StartPosition{Mode: engine.StartLookback, Value: 100}},
	{"last 1000 per partition", engine.StartPosition{Mode: engine.StartLookback, Value: 1000}},
	{"earliest", engine.StartPosition{Mode: engine.StartEarliest}},
	{"group's committed offsets", engine.StartPosition{Mode: engine.StartCommitted}},
}

// applyFilter recomputes the visible topic list from the snapshot and
// the filter text, keeping the cursor on the selected topic when it is
// still visible.
func (model *Model) applyFilter() {
	names := make([]string, len(model.snapshot.Topics))
	for index, topic := range model.snapshot.Topics {
		names[index] = topic.Name
	}
	pattern := model.filter.Value()
	model.visibleTopics = tui.FilterRanked(names, pattern, model.slab)

	model.highlights = nil
	if pattern != "" {
		model.highlights = make(map[string][]int, len(model.visibleTopics))
		runes := []rune(pattern)
		for _, index := range model.visibleTopics {
			model.highlights[names[index]] = tui.FuzzyMatch(names[index], runes, model.slab).Positions
		}
	}

	model.topicCursor = 0
	for position, index := range model.visibleTopics {
		if names[index] == model.selectedTopic {
			model.topicCursor = position
			break
		}
	}
	model.syncSelectedTopic()
	model.ensureTopicVisible()
}

func (model *Model) syncSelectedTopic() {
	if len(model.visibleTopics) == 0 {
		model.topicCursor = 0
		return
	}
	model.topicCursor = min(max(model.topicCursor, 0), len(model.visibleTopics)-1)
	model.selectedTopic = model.snapshot.Topics[model.visibleTopics[model.topicCursor]].Name
}

func (model *Model) ensureTopicVisible() {
	visible := model.contentHeight() - 1
	if model.topicCursor < model.topicOffset {
		model.topicOffset = model.topicCursor
	}
	if model.topicCursor >= model.topicOffset+visible {
		model.topicOffset = model.topicCursor - visible + 1
	}
	model.topicOffset = max(model.topicOffset, 0)
}

func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		model.filter.Reset()
		model.filter.Blur()
		model.focus = FocusNormal
		model.applyFilter()
		return model, nil
	case tea.KeyEnter:
		model.filter.Blur()
		model.focus = FocusNormal
		return model, nil
	case tea.KeyUp, tea.KeyDown:
		model.topicCursor = moveCursor(model.keys, message, model.topicCursor, len(model.visibleTopics), 1)
		model.syncSelectedTopic()
		model.ensureTopicVisible()
		return model, nil
	}

	var cmd tea.Cmd
	model.filter, cmd = model.filter.Update(message)
	model.applyFilter()
	return model, cmd
}

func (model Model) handleTopicListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		if message.Type == tea.KeyEsc && model.filter.Value() != "" {
			model.filter.Reset()
			model.applyFilter()
			return model, nil
		}
		return model, tea.Quit

	case key.Matches(message, model.keys.FilterActivate):
		model.focus = FocusFilter
		return model, model.filter.Focus()

	case key.Matches(message, model.keys.Open):
		if model.selectedTopic == "" {
			return model, nil
		}
		return model, model.openSelected(nil)

	case key.Matches(message, model.keys.OpenFrom):
		if model.selectedTopic == "" {
			return model, nil
		}
		menu := &tui.Menu{Title: "Open " + model.selectedTopic + " from", Target: model.selectedTopic}
		for _, choice := range startChoices {
			menu.Options = append(menu.Options, tui.MenuOption{Label: choice.label, Value: choice.position.String()})
		}
		model.menu = menu
		model.focus = FocusMenu
		return model, nil

	case key.Matches(message, model.keys.Back):
		return model, nil
	}

	model.topicCursor = moveCursor(model.keys, message, model.topicCursor, len(model.visibleTopics), model.contentHeight()-1)
	model.syncSelectedTopic()
	model.ensureTopicVisible()
	return model, nil
}

func (model Model) handleMenuKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	menu := model.menu
	switch {
	case message.Type == tea.KeyEsc || message.String() == "q":
		model.menu = nil
		model.focus = FocusNormal
	case key.Matches(message, model.keys.Up):
		menu.MoveUp()
	case key.Matches(message, model.keys.Down):
		menu.MoveDown()
	case message.Type == tea.KeyEnter:
		start, err := engine.ParseStartPosition(menu.Selected().Value)
		model.menu = nil
		model.focus = FocusNormal
		if err != nil {
			return model, model.showNotice(err.Error())
		}
		return model, model.openSelected(&start)
	}
	return model, nil
}

// openSelected opens the selected topic, closing whichever topic was
// open before.
func (model *Model) openSelected(start *engine.StartPosition) tea.Cmd {
	name := model.selectedTopic
	var commands []tea.Cmd
	if model.openTopic != "" && model.openTopic != name {
		commands = append(commands, model.submit(engine.CloseTopic{Name: model.openTopic}))
	}
	commands = append(commands, model.submit(engine.OpenTopic{Name: name, Start: start}))

	model.openTopic = name
	model.page = PageInfo
	model.resetMessages()
	model.sendForm.reset(name)
	return tea.Batch(commands...)
}

// closeOpen closes the open topic and returns to the list.
func (model *Model) closeOpen() tea.Cmd {
	name := model.openTopic
	model.openTopic = ""
	model.page = PageList
	model.focus = FocusNormal
	model.sendForm.blur()
	model.resetMessages()
	if name == "" {
		return nil
	}
	return model.submit(engine.CloseTopic{Name: name})
}

func (model *Model) resetMessages() {
	model.seen = make(map[int32]int64)
	model.heat = tui.NewHeatTracker()
	model.summaries = nil
	model.follow = true
	model.selected = recordKey{}
	model.messageCursor = 0
	model.messageOffset = 0
	model.detail = ""
	model.detailKey = recordKey{}
	model.showRaw = false
}

func (model Model) handleTopicPageKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit), key.Matches(message, model.keys.Back):
		return model, model.closeOpen()

	case key.Matches(message, model.keys.NextPage):
		switch model.page {
		case PageInfo:
			model.page = PageMessages
		case PageMessages:
			model.page = PageSend
		default:
			model.page = PageInfo
		}
		return model, nil

	case message.Type == tea.KeyShiftTab:
		switch model.page {
		case PageInfo:
			model.page = PageSend
		case PageMessages:
			model.page = PageInfo
		default:
			model.page = PageMessages
		}
		return model, nil
	}

	switch model.page {
	case PageMessages:
		if key.Matches(message, model.keys.ToggleRaw) {
			model.showRaw = !model.showRaw
			model.detail = ""
			model.refreshDetail()
			return model, nil
		}
		model.moveMessageCursor(message)
	case PageSend:
		if key.Matches(message, model.keys.EditSend) || message.Type == tea.KeyEnter {
			model.focus = FocusSendForm
			return model, model.sendForm.focus(fieldMessage)
		}
	}
	return model, nil
}

func (model Model) handleSendFormKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := &model.sendForm
	switch message.Type {
	case tea.KeyEsc:
		form.blur()
		model.focus = FocusNormal
		return model, nil
	case tea.KeyTab, tea.KeyDown:
		return model, form.focus(form.focused + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return model, form.focus(form.focused - 1)
	case tea.KeyEnter:
		if form.focused != fieldMessage {
			return model, form.focus(form.focused + 1)
		}
		request, ok, err := form.request()
		if err != nil {
			form.err = err.Error()
			return model, nil
		}
		if !ok {
			return model, nil
		}
		if err := model.source.Submit(request); err != nil {
			form.err = err.Error()
			return model, nil
		}
		form.reset(model.openTopic)
		return model, form.focus(fieldMessage)
	}
	return model, form.update(message)
}
