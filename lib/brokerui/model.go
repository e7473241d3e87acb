// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/livestate"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

// Tab identifies the top-level view.
type Tab int

const (
	TabTopics Tab = iota
	TabGroups
	TabBrokers
	tabCount
)

// Page identifies what the Topics tab shows.
type Page int

const (
	// PageList is the topic list.
	PageList Page = iota
	// PageInfo shows partition leaders, replicas and watermarks.
	PageInfo
	// PageMessages shows the streamed records.
	PageMessages
	// PageSend shows the send form and recent send results.
	PageSend
)

// FocusRegion identifies where keystrokes go.
type FocusRegion int

const (
	FocusNormal FocusRegion = iota
	// FocusFilter routes keys to the topic filter input.
	FocusFilter
	// FocusSendForm routes keys to the send form.
	FocusSendForm
	// FocusMenu routes keys to the start position menu.
	FocusMenu
)

// heatTickMsg drives the arrival glow while anything is hot.
type heatTickMsg struct{}

// noticeFadeMsg clears a command error from the status bar.
type noticeFadeMsg struct {
	serial uint64
}

const noticeFadeDelay = 4 * time.Second

// Options configures a Model.
type Options struct {
	// MaxRedrawPerSecond caps snapshot-driven repaints. Zero means
	// unlimited.
	MaxRedrawPerSecond float64

	// Theme overrides tui.DefaultTheme when non-nil.
	Theme *tui.Theme

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// recordKey identifies a record within the open topic.
type recordKey struct {
	partition int32
	offset    int64
}

func (key recordKey) String() string {
	return strconv.FormatInt(int64(key.partition), 10) + "/" + strconv.FormatInt(key.offset, 10)
}

// Model is the bubbletea model. It holds the latest snapshot plus
// purely presentational state: cursors, the filter, the send form.
type Model struct {
	source Engine
	pump   *snapshotPump
	theme  tui.Theme
	keys   KeyMap
	now    func() time.Time

	snapshot livestate.Snapshot
	loaded   bool
	width    int
	height   int

	activeTab Tab
	page      Page
	focus     FocusRegion

	// Topic list. visibleTopics indexes snapshot.Topics in display
	// order; selectedTopic keeps the cursor on the same topic across
	// refreshes and filter changes.
	filter        textinput.Model
	slab          *util.Slab
	visibleTopics []int
	topicCursor   int
	topicOffset   int
	selectedTopic string
	highlights    map[string][]int

	// Open topic. The UI focuses at most one topic at a time.
	openTopic     string
	seen          map[int32]int64
	heat          *tui.HeatTracker
	tickRunning   bool
	follow        bool
	selected      recordKey
	messageCursor int
	messageOffset int
	summaries     map[recordKey]string
	detail        string
	detailKey     recordKey
	showRaw       bool

	sendForm sendForm
	menu     *tui.Menu

	groupCursor  int
	brokerCursor int

	// Status bar messages.
	logLine      string
	logLevel     slog.Level
	logSerial    uint64
	notice       string
	noticeSerial uint64
}

// NewModel creates a Model reading from source.
func NewModel(source Engine, options Options) Model {
	theme := tui.DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter topics"

	return Model{
		source:   source,
		pump:     newSnapshotPump(source, options.MaxRedrawPerSecond),
		theme:    theme,
		keys:     DefaultKeyMap,
		now:      now,
		filter:   filter,
		slab:     tui.NewSlab(),
		heat:     tui.NewHeatTracker(),
		seen:     make(map[int32]int64),
		follow:   true,
		sendForm: newSendForm(),
	}
}

// Init implements tea.Model. It fetches the first snapshot; every
// later one arrives through the pump.
func (model Model) Init() tea.Cmd {
	return model.pump.first()
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ensureTopicVisible()
		model.ensureMessageVisible()

	case snapshotMsg:
		return model.handleSnapshot(message)

	case engineDoneMsg:
		return model, tea.Quit

	case heatTickMsg:
		if model.heat.HasHot(model.now()) {
			return model, scheduleHeatTick()
		}
		model.tickRunning = false

	case logRecordMsg:
		model.logSerial++
		model.logLine = message.Summary
		model.logLevel = message.Level
		serial := model.logSerial
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{Serial: serial}
		})

	case logRecordFadeMsg:
		if message.Serial == model.logSerial {
			model.logLine = ""
		}

	case noticeFadeMsg:
		if message.serial == model.noticeSerial {
			model.notice = ""
		}

	case tea.KeyMsg:
		return model.handleKey(message)

	default:
		// Cursor blink and similar messages belong to whichever
		// input has focus.
		return model.forwardToInput(message)
	}
	return model, nil
}

func (model Model) forwardToInput(message tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch model.focus {
	case FocusFilter:
		model.filter, cmd = model.filter.Update(message)
	case FocusSendForm:
		field := model.sendForm.focused
		model.sendForm.fields[field], cmd = model.sendForm.fields[field].Update(message)
	}
	return model, cmd
}

func (model Model) handleSnapshot(message snapshotMsg) (tea.Model, tea.Cmd) {
	model.snapshot = message.snapshot
	model.loaded = true

	model.applyFilter()
	model.syncOpenTopic()
	model.clampCursors()

	commands := []tea.Cmd{model.pump.wait(message.next)}
	if !model.tickRunning && model.heat.HasHot(model.now()) {
		model.tickRunning = true
		commands = append(commands, scheduleHeatTick())
	}
	return model, tea.Batch(commands...)
}

func scheduleHeatTick() tea.Cmd {
	return tea.Tick(tui.HeatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// submit sends a command to the engine. Rejections (backpressure,
// shutdown) show briefly in the status bar.
func (model *Model) submit(command engine.Command) tea.Cmd {
	if err := model.source.Submit(command); err != nil {
		return model.showNotice(err.Error())
	}
	return nil
}

func (model *Model) showNotice(text string) tea.Cmd {
	model.noticeSerial++
	model.notice = text
	serial := model.noticeSerial
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{serial: serial}
	})
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if message.Type == tea.KeyCtrlC {
		return model, tea.Quit
	}

	switch model.focus {
	case FocusFilter:
		return model.handleFilterKeys(message)
	case FocusSendForm:
		return model.handleSendFormKeys(message)
	case FocusMenu:
		return model.handleMenuKeys(message)
	}

	// Tab switching is available everywhere except inside a topic,
	// where Tab cycles pages.
	inTopic := model.activeTab == TabTopics && model.page != PageList
	switch {
	case key.Matches(message, model.keys.TabTopics):
		model.activeTab = TabTopics
		return model, nil
	case key.Matches(message, model.keys.TabGroups):
		model.activeTab = TabGroups
		return model, nil
	case key.Matches(message, model.keys.TabBrokers):
		model.activeTab = TabBrokers
		return model, nil
	case !inTopic && key.Matches(message, model.keys.NextTab):
		model.activeTab = (model.activeTab + 1) % tabCount
		return model, nil
	case key.Matches(message, model.keys.Refresh):
		return model, model.submit(engine.RefreshTopics{})
	}

	switch model.activeTab {
	case TabTopics:
		if inTopic {
			return model.handleTopicPageKeys(message)
		}
		return model.handleTopicListKeys(message)
	case TabGroups:
		if key.Matches(message, model.keys.Quit) {
			model.activeTab = TabTopics
			return model, nil
		}
		model.groupCursor = moveCursor(model.keys, message, model.groupCursor, len(model.snapshot.Groups), model.contentHeight()/2)
	case TabBrokers:
		if key.Matches(message, model.keys.Quit) {
			model.activeTab = TabTopics
			return model, nil
		}
		model.brokerCursor = moveCursor(model.keys, message, model.brokerCursor, len(model.snapshot.Brokers), model.contentHeight())
	}
	return model, nil
}

// moveCursor applies a navigation key to a cursor over count items.
func moveCursor(keys KeyMap, message tea.KeyMsg, cursor, count, page int) int {
	if count == 0 {
		return 0
	}
	page = max(page, 1)
	switch {
	case key.Matches(message, keys.Up):
		cursor--
	case key.Matches(message, keys.Down):
		cursor++
	case key.Matches(message, keys.PageUp):
		cursor -= page
	case key.Matches(message, keys.PageDown):
		cursor += page
	case key.Matches(message, keys.Home):
		cursor = 0
	case key.Matches(message, keys.End):
		cursor = count - 1
	}
	return min(max(cursor, 0), count-1)
}

func (model *Model) clampCursors() {
	model.groupCursor = min(max(model.groupCursor, 0), max(len(model.snapshot.Groups)-1, 0))
	model.brokerCursor = min(max(model.brokerCursor, 0), max(len(model.snapshot.Brokers)-1, 0))
}

// contentHeight is the number of rows between the header and the
// status bar.
func (model Model) contentHeight() int {
	return max(model.height-3, 1)
}
