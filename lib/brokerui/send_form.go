// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

// Send form fields, in tab order.
const (
	fieldMessage = iota
	fieldKey
	fieldPartition
	fieldCount
)

var fieldLabels = [fieldCount]string{"Message", "Key", "Partition"}

// sendForm collects one message to publish: a value, an optional key
// and an optional explicit partition.
type sendForm struct {
	topic   string
	fields  [fieldCount]textinput.Model
	focused int
	err     string
}

func newSendForm() sendForm {
	var form sendForm
	placeholders := [fieldCount]string{
		"message value",
		"none",
		"any (partitioner decides)",
	}
	for index := range form.fields {
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = placeholders[index]
		form.fields[index] = input
	}
	form.fields[fieldPartition].CharLimit = 10
	return form
}

// reset clears every field and retargets the form.
func (form *sendForm) reset(topic string) {
	form.topic = topic
	form.err = ""
	for index := range form.fields {
		form.fields[index].Reset()
	}
}

// focus moves the cursor to field and returns the blink command.
func (form *sendForm) focus(field int) tea.Cmd {
	form.focused = (field + fieldCount) % fieldCount
	for index := range form.fields {
		form.fields[index].Blur()
	}
	return form.fields[form.focused].Focus()
}

func (form *sendForm) blur() {
	for index := range form.fields {
		form.fields[index].Blur()
	}
}

// update routes a key to the focused field. The partition field only
// takes digits.
func (form *sendForm) update(message tea.KeyMsg) tea.Cmd {
	if form.focused == fieldPartition && message.Type == tea.KeyRunes {
		for _, character := range message.Runes {
			if !unicode.IsDigit(character) {
				return nil
			}
		}
	}
	form.err = ""
	var cmd tea.Cmd
	form.fields[form.focused], cmd = form.fields[form.focused].Update(message)
	return cmd
}

// request builds the send command. ok is false when there is nothing
// to send.
func (form *sendForm) request() (engine.SendMessage, bool, error) {
	value := form.fields[fieldMessage].Value()
	if value == "" {
		return engine.SendMessage{}, false, nil
	}
	message := engine.SendMessage{Topic: form.topic, Value: []byte(value)}
	if keyText := form.fields[fieldKey].Value(); keyText != "" {
		message.Key = []byte(keyText)
	}
	if partitionText := strings.TrimSpace(form.fields[fieldPartition].Value()); partitionText != "" {
		partition, err := strconv.ParseInt(partitionText, 10, 32)
		if err != nil {
			return engine.SendMessage{}, false, fmt.Errorf("partition %q is not a number", partitionText)
		}
		explicit := int32(partition)
		message.Partition = &explicit
	}
	return message, true, nil
}

func (form sendForm) view(theme tui.Theme, width int, editing bool) []string {
	labelStyle := lipgloss.NewStyle().Foreground(theme.FaintText)
	activeLabel := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)

	lines := []string{""}
	for index, field := range form.fields {
		field.Width = max(width-14, 10)
		label := labelStyle
		marker := "  "
		if editing && index == form.focused {
			label = activeLabel
			marker = "▸ "
		}
		lines = append(lines, marker+label.Render(fmt.Sprintf("%-10s", fieldLabels[index]))+" "+field.View())
	}
	lines = append(lines, "")
	if form.err != "" {
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(theme.Bad).Render(form.err))
	} else if editing {
		lines = append(lines, "  "+labelStyle.Render("⏎ on Message sends · Tab next field · Esc stop editing"))
	} else {
		lines = append(lines, "  "+labelStyle.Render("press s or ⏎ to edit"))
	}
	return lines
}
