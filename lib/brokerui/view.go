// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/brokerview/lib/livestate"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

var tabLabels = [tabCount]string{"1:Topics", "2:Groups", "3:Brokers"}

// View implements tea.Model: header, content, separator, status bar.
func (model Model) View() string {
	if !model.loaded || model.width == 0 {
		return "Loading..."
	}

	var content []string
	switch model.activeTab {
	case TabTopics:
		if model.page == PageList {
			content = model.renderTopicList()
		} else {
			content = model.renderTopicPage()
		}
	case TabGroups:
		content = model.renderGroups()
	case TabBrokers:
		content = model.renderBrokers()
	}

	height := model.contentHeight()
	lines := make([]string, 0, height+3)
	lines = append(lines, model.renderHeader())
	for index := range height {
		line := ""
		if index < len(content) {
			line = content[index]
		}
		lines = append(lines, fitLine(line, model.width))
	}
	lines = append(lines,
		lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.Repeat("─", model.width)),
		model.renderStatus())
	output := strings.Join(lines, "\n")

	if model.menu != nil {
		output = tui.CenterOverlay(output, model.menu.Render(model.theme), model.width, model.height)
	}
	return output
}

// fitLine truncates or pads a styled line to exactly width columns.
func fitLine(line string, width int) string {
	lineWidth := ansi.StringWidth(line)
	if lineWidth > width {
		return ansi.Truncate(line, width, "…")
	}
	return line + strings.Repeat(" ", width-lineWidth)
}

// renderHeader draws the tab bar embedded in a rule, with the
// connection summary on the right:
//
//	─── 1:Topics ─── 2:Groups ─── 3:Brokers ─── 42 topics  3 brokers ─
func (model Model) renderHeader() string {
	if model.focus == FocusFilter || (model.activeTab == TabTopics && model.page == PageList && model.filter.Value() != "") {
		return fitLine(model.filter.View()+lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render(fmt.Sprintf("  %d of %d", len(model.visibleTopics), len(model.snapshot.Topics))), model.width)
	}

	separator := lipgloss.NewStyle().Foreground(model.theme.BorderColor)
	active := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	var builder strings.Builder
	used := 0
	builder.WriteString(separator.Render("───"))
	used += 3
	for index, label := range tabLabels {
		style := inactive
		if Tab(index) == model.activeTab {
			style = active
		}
		builder.WriteString(" " + style.Render(label) + " ")
		used += ansi.StringWidth(label) + 2
		if index < len(tabLabels)-1 {
			builder.WriteString(separator.Render("───"))
			used += 3
		}
	}

	stats := fmt.Sprintf("%d topics  %d groups  %d brokers",
		len(model.snapshot.Topics), len(model.snapshot.Groups), len(model.snapshot.Brokers))
	fill := max(model.width-used-ansi.StringWidth(stats)-3, 1)
	builder.WriteString(separator.Render(strings.Repeat("─", fill)))
	builder.WriteString(" " + inactive.Render(stats) + " " + separator.Render("─"))
	return builder.String()
}

func (model Model) renderTopicList() []string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if len(model.snapshot.Topics) == 0 {
		return []string{"", faint.Render("  no topics yet; waiting for metadata (r refreshes)")}
	}

	nameWidth := 10
	for _, index := range model.visibleTopics {
		nameWidth = max(nameWidth, ansi.StringWidth(model.snapshot.Topics[index].Name))
	}
	nameWidth = min(nameWidth, max(model.width-40, 10))

	lines := []string{faint.Render(fmt.Sprintf("  %-*s %10s %9s %14s", nameWidth, "TOPIC", "PARTITIONS", "REPLICAS", "~MESSAGES"))}
	rows := model.contentHeight() - 1
	end := min(model.topicOffset+rows, len(model.visibleTopics))

	var body []string
	for position := model.topicOffset; position < end; position++ {
		topic := model.snapshot.Topics[model.visibleTopics[position]]
		name := model.highlightName(topic.Name, nameWidth)
		if topic.Internal {
			name = faint.Render(ansi.Strip(name))
		}
		marker := "  "
		if topic.Name == model.openTopic {
			marker = lipgloss.NewStyle().Foreground(model.theme.Good).Render("● ")
		}
		row := fmt.Sprintf("%s%s %10d %9d %14s", marker, name, topic.Partitions, topic.ReplicationFactor, humanize.Comma(topic.ApproxMessages))
		if position == model.topicCursor {
			row = lipgloss.NewStyle().Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground).
				Render(fitLine(ansi.Strip(row), model.width-2))
		}
		body = append(body, row)
	}
	if len(body) == 0 {
		body = append(body, faint.Render("  no topics match the filter"))
	}

	bar := strings.Split(tui.RenderScrollbar(model.theme, len(body), len(model.visibleTopics), rows, model.topicOffset), "\n")
	for index, row := range body {
		lines = append(lines, fitLine(row, model.width-1)+bar[index])
	}
	return lines
}

// highlightName pads name to width and colors the characters the
// filter matched.
func (model Model) highlightName(name string, width int) string {
	padding := strings.Repeat(" ", max(width-ansi.StringWidth(name), 0))
	positions := model.highlights[name]
	if len(positions) == 0 {
		return name + padding
	}
	match := lipgloss.NewStyle().Foreground(model.theme.MatchForeground).Bold(true)
	var builder strings.Builder
	for index, character := range []rune(name) {
		if slices.Contains(positions, index) {
			builder.WriteString(match.Render(string(character)))
		} else {
			builder.WriteRune(character)
		}
	}
	return builder.String() + padding
}

func (model Model) renderTopicPage() []string {
	lines := []string{model.renderPageBar()}
	switch model.page {
	case PageInfo:
		lines = append(lines, model.renderInfo()...)
	case PageMessages:
		lines = append(lines, model.renderMessages()...)
	case PageSend:
		lines = append(lines, model.renderSend()...)
	}
	return lines
}

// renderPageBar shows the open topic, its pages and its stream status.
func (model Model) renderPageBar() string {
	active := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Underline(true)
	inactive := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.Accent)

	parts := []string{" " + title.Render(model.openTopic)}
	for _, entry := range []struct {
		page  Page
		label string
	}{{PageInfo, "Info"}, {PageMessages, "Messages"}, {PageSend, "Send"}} {
		if entry.page == model.page {
			parts = append(parts, active.Render(entry.label))
		} else {
			parts = append(parts, inactive.Render(entry.label))
		}
	}

	if status, ok := model.snapshot.Streams[model.openTopic]; ok {
		state := lipgloss.NewStyle().Foreground(model.theme.StateColor(status.State.String())).Render(status.State.String())
		buffered := len(model.snapshot.Buffers[model.openTopic])
		summary := fmt.Sprintf("%s  %s/%s buffered", state, humanize.Comma(int64(buffered)), humanize.Comma(int64(status.Capacity)))
		if status.Evicted > 0 {
			summary += fmt.Sprintf("  %s evicted", humanize.Comma(int64(status.Evicted)))
		}
		if status.Discarded > 0 {
			summary += fmt.Sprintf("  %s out of order", humanize.Comma(int64(status.Discarded)))
		}
		if status.Retries > 0 {
			summary += fmt.Sprintf("  retry %d", status.Retries)
		}
		if status.LastError != "" {
			summary += "  " + lipgloss.NewStyle().Foreground(model.theme.Bad).Render(status.LastError)
		}
		parts = append(parts, "  "+summary)
	}
	return strings.Join(parts, "  ")
}

func (model Model) renderInfo() []string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	detail := model.snapshot.OpenTopicDetail
	if detail == nil || detail.Topic != model.openTopic {
		return []string{"", faint.Render("  fetching partition detail…")}
	}

	lines := []string{
		"",
		faint.Render(fmt.Sprintf("  %9s %7s %-18s %-18s %14s %14s %12s", "PARTITION", "LEADER", "REPLICAS", "ISR", "LOW", "HIGH", "MESSAGES")),
	}
	var total int64
	for _, partition := range detail.Partitions {
		isr := formatIDs(partition.ISR)
		if partition.InSyncReplicas() < len(partition.Replicas) {
			isr = lipgloss.NewStyle().Foreground(model.theme.Warning).Render(fmt.Sprintf("%-18s", isr))
		} else {
			isr = fmt.Sprintf("%-18s", isr)
		}
		count := max(partition.High-partition.Low, 0)
		total += count
		lines = append(lines, fmt.Sprintf("  %9d %7d %-18s %s %14d %14d %12s",
			partition.ID, partition.Leader, formatIDs(partition.Replicas), isr,
			partition.Low, partition.High, humanize.Comma(count)))
	}
	lines = append(lines, "", faint.Render(fmt.Sprintf("  %d partitions, %s messages, fetched %s",
		len(detail.Partitions), humanize.Comma(total), humanize.RelTime(detail.FetchedAt, model.now(), "ago", "from now"))))
	return lines
}

func formatIDs(ids []int32) string {
	parts := make([]string, len(ids))
	for index, id := range ids {
		parts[index] = fmt.Sprint(id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (model Model) renderMessages() []string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	records := model.snapshot.Buffers[model.openTopic]
	if len(records) == 0 {
		return []string{"", faint.Render("  waiting for records…  (o on the topic list opens from an earlier position)")}
	}

	rows := model.messageRows()
	end := min(model.messageOffset+rows, len(records))
	now := model.now()

	var body []string
	for index := model.messageOffset; index < end; index++ {
		record := records[index]
		position := recordKey{partition: record.Partition, offset: record.Offset}
		keyText := "-"
		if record.Key != nil {
			keyText = string(record.Key)
		}
		row := fmt.Sprintf(" p%-3d %10d  %-16s %s  %s",
			record.Partition, record.Offset, ansi.Truncate(strings.Join(strings.Fields(keyText), " "), 16, "…"),
			record.Timestamp.Format("15:04:05.000"), model.summaries[position])
		row = ansi.Strip(fitLine(row, model.width-1))

		style := lipgloss.NewStyle()
		if background, hot := model.heat.Background(model.theme, position.String(), now); hot {
			style = style.Background(background)
		}
		if index == model.messageCursor {
			style = style.Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground)
		}
		body = append(body, style.Render(row))
	}

	bar := strings.Split(tui.RenderScrollbar(model.theme, len(body), len(records), rows, model.messageOffset), "\n")
	lines := make([]string, 0, len(body)+1)
	for index, row := range body {
		lines = append(lines, row+bar[index])
	}
	follow := ""
	if model.follow {
		follow = "  following"
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.BorderColor).
		Render(fmt.Sprintf("── %d/%d%s ", model.messageCursor+1, len(records), follow)+strings.Repeat("─", model.width)))
	lines = append(lines, strings.Split(model.detail, "\n")...)
	return lines
}

func (model Model) renderSend() []string {
	lines := model.sendForm.view(model.theme, model.width, model.focus == FocusSendForm)

	var sends []livestate.SendResult
	for _, send := range model.snapshot.PendingSends {
		if send.Topic == model.openTopic {
			sends = append(sends, send)
		}
	}
	if len(sends) == 0 {
		return lines
	}

	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	lines = append(lines, "", faint.Render("  RECENT SENDS"))
	// Newest first.
	for index := len(sends) - 1; index >= 0; index-- {
		send := sends[index]
		state := lipgloss.NewStyle().Foreground(model.theme.StateColor(send.State.String())).Render(fmt.Sprintf("%-10s", send.State))
		where := ""
		switch send.State {
		case livestate.SendDelivered:
			where = fmt.Sprintf("p%d @%d", send.Partition, send.Offset)
		case livestate.SendFailed:
			where = send.Error
		default:
			if send.Attempts > 1 {
				where = fmt.Sprintf("attempt %d", send.Attempts)
			}
		}
		lines = append(lines, fmt.Sprintf("  %s %s  %8s  %s", state, send.ID[:min(8, len(send.ID))], humanize.Bytes(uint64(send.ValueSize)), where))
	}
	return lines
}

func (model Model) renderGroups() []string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	groups := model.snapshot.Groups
	if len(groups) == 0 {
		return []string{"", faint.Render("  no consumer groups")}
	}

	lines := []string{faint.Render(fmt.Sprintf("  %-40s %-20s %-24s %8s", "GROUP", "STATE", "PROTOCOL", "MEMBERS"))}
	rows := max(model.contentHeight()/2-1, 1)
	offset := max(model.groupCursor-rows+1, 0)
	for index := offset; index < min(offset+rows, len(groups)); index++ {
		group := groups[index]
		protocol := group.ProtocolType
		if group.Protocol != "" {
			protocol += "/" + group.Protocol
		}
		row := fmt.Sprintf("  %-40s %-20s %-24s %8d", group.Name, group.State, protocol, len(group.Members))
		if index == model.groupCursor {
			row = lipgloss.NewStyle().Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground).Render(fitLine(row, model.width))
		}
		lines = append(lines, row)
	}

	selected := groups[min(model.groupCursor, len(groups)-1)]
	lines = append(lines, "", faint.Render(fmt.Sprintf("  MEMBERS OF %s", selected.Name)))
	if len(selected.Members) == 0 {
		lines = append(lines, faint.Render("  (none)"))
	}
	for _, member := range selected.Members {
		lines = append(lines, fmt.Sprintf("  %-48s %-24s %s", member.MemberID, member.ClientID, member.ClientHost))
	}
	return lines
}

func (model Model) renderBrokers() []string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	brokers := model.snapshot.Brokers
	if len(brokers) == 0 {
		return []string{"", faint.Render("  no brokers known")}
	}

	lines := []string{faint.Render(fmt.Sprintf("  %6s %-40s %s", "ID", "ADDRESS", "RACK"))}
	rows := model.contentHeight() - 1
	offset := max(model.brokerCursor-rows+1, 0)
	for index := offset; index < min(offset+rows, len(brokers)); index++ {
		broker := brokers[index]
		rack := broker.Rack
		if rack == "" {
			rack = "-"
		}
		row := fmt.Sprintf("  %6d %-40s %s", broker.ID, broker.Address(), rack)
		if broker.Address() == model.snapshot.Connection.ActiveEndpoint {
			row += "  " + lipgloss.NewStyle().Foreground(model.theme.Good).Render("(bootstrap)")
		}
		if index == model.brokerCursor {
			row = lipgloss.NewStyle().Background(model.theme.SelectedBackground).Foreground(model.theme.SelectedForeground).Render(fitLine(ansi.Strip(row), model.width))
		}
		lines = append(lines, row)
	}
	return lines
}

// renderStatus draws the bottom line: connection, snapshot version,
// then whichever is most pressing of a command notice, a log record,
// the last connection error, or key help.
func (model Model) renderStatus() string {
	connection := model.snapshot.Connection
	state := connection.State.String()
	stateStyle := lipgloss.NewStyle().Foreground(model.theme.StateColor(state)).Bold(true)

	left := " " + stateStyle.Render("● "+state)
	if connection.ActiveEndpoint != "" {
		left += " " + connection.ActiveEndpoint
	} else if len(connection.Endpoints) > 0 {
		left += " " + strings.Join(connection.Endpoints, ",")
	}
	if connection.ConsecutiveFailures > 0 {
		left += lipgloss.NewStyle().Foreground(model.theme.Warning).
			Render(fmt.Sprintf(" (%d refresh failures)", connection.ConsecutiveFailures))
	}
	if !connection.LastRefresh.IsZero() {
		left += lipgloss.NewStyle().Foreground(model.theme.FaintText).
			Render("  refreshed " + humanize.RelTime(connection.LastRefresh, model.now(), "ago", "from now"))
	}
	left += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(fmt.Sprintf("  v%d", model.snapshot.Version))

	var right string
	switch {
	case model.notice != "":
		right = lipgloss.NewStyle().Foreground(model.theme.Bad).Bold(true).Render(model.notice)
	case model.logLine != "":
		color := model.theme.Warning
		if model.logLevel >= slog.LevelError {
			color = model.theme.Bad
		}
		right = lipgloss.NewStyle().Foreground(color).Render(model.logLine)
	case connection.LastError != "" && connection.State != livestate.Connected:
		right = lipgloss.NewStyle().Foreground(model.theme.Bad).Render(connection.LastError)
	default:
		right = lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(model.helpText())
	}
	return fitLine(left+"  "+right, model.width)
}

func (model Model) helpText() string {
	switch {
	case model.focus == FocusFilter:
		return "type to filter  ↑↓ move  ⏎ done  Esc clear"
	case model.focus == FocusSendForm:
		return "⏎ send  Tab field  Esc stop editing"
	case model.focus == FocusMenu:
		return "↑↓ choose  ⏎ open  Esc cancel"
	case model.activeTab == TabTopics && model.page == PageMessages:
		return "q back  Tab page  j/k move  g/G first/last  x hex  r refresh"
	case model.activeTab == TabTopics && model.page == PageSend:
		return "q back  Tab page  s edit  r refresh"
	case model.activeTab == TabTopics && model.page == PageInfo:
		return "q back  Tab page  r refresh"
	case model.activeTab == TabTopics:
		return "q quit  j/k move  ⏎ open  o open from  / filter  1-3 tabs  r refresh"
	default:
		return "q topics  j/k move  1-3 tabs  r refresh"
	}
}
