// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/brokerview/lib/engine"
	"github.com/bureau-foundation/brokerview/lib/livestate"
	"github.com/bureau-foundation/brokerview/lib/testutil"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

// fakeEngine records submitted commands and serves a settable snapshot.
type fakeEngine struct {
	mutex     sync.Mutex
	snapshot  livestate.Snapshot
	changed   chan struct{}
	done      chan struct{}
	submitted []engine.Command
	submitErr error
}

func newFakeEngine(snapshot livestate.Snapshot) *fakeEngine {
	return &fakeEngine{
		snapshot: snapshot,
		changed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (fake *fakeEngine) Snapshot() livestate.Snapshot {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.snapshot
}

func (fake *fakeEngine) Changed() <-chan struct{} {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return fake.changed
}

func (fake *fakeEngine) Done() <-chan struct{} { return fake.done }

func (fake *fakeEngine) Submit(command engine.Command) error {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	if fake.submitErr != nil {
		return fake.submitErr
	}
	fake.submitted = append(fake.submitted, command)
	return nil
}

// publish replaces the snapshot and wakes waiters.
func (fake *fakeEngine) publish(snapshot livestate.Snapshot) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.snapshot = snapshot
	close(fake.changed)
	fake.changed = make(chan struct{})
}

func (fake *fakeEngine) commands() []engine.Command {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]engine.Command(nil), fake.submitted...)
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() livestate.Snapshot {
	return livestate.Snapshot{
		Version: 3,
		Connection: livestate.Connection{
			Endpoints:      []string{"localhost:9092"},
			State:          livestate.Connected,
			ActiveEndpoint: "localhost:9092",
			LastRefresh:    testEpoch.Add(-2 * time.Second),
		},
		Topics: []livestate.TopicSummary{
			{Name: "order-events", Partitions: 3, ReplicationFactor: 1, ApproxMessages: 1200},
			{Name: "orders", Partitions: 6, ReplicationFactor: 3, ApproxMessages: 42},
			{Name: "payments", Partitions: 1, ReplicationFactor: 1},
		},
		Brokers: []livestate.Broker{{ID: 1, Host: "localhost", Port: 9092}},
		Groups: []livestate.ConsumerGroup{
			{Name: "billing", State: "Stable", ProtocolType: "consumer", Protocol: "range",
				Members: []livestate.GroupMember{{MemberID: "m-1", ClientID: "billing-1", ClientHost: "/10.0.0.4"}}},
		},
	}
}

// testModel builds a sized model with the test snapshot loaded and a
// fixed clock.
func testModel(t *testing.T, fake *fakeEngine, now *time.Time) Model {
	t.Helper()
	model := NewModel(fake, Options{Now: func() time.Time { return *now }})
	model = update(t, model, tea.WindowSizeMsg{Width: 120, Height: 30})
	return update(t, model, snapshotMsg{snapshot: fake.Snapshot(), next: make(chan struct{})})
}

func update(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	updated, _ := model.Update(message)
	result, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return result
}

func runes(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func typeText(t *testing.T, model Model, text string) Model {
	t.Helper()
	for _, character := range text {
		model = update(t, model, runes(string(character)))
	}
	return model
}

func withRecords(snapshot livestate.Snapshot, topic string, records ...livestate.MessageRecord) livestate.Snapshot {
	snapshot.Version++
	snapshot.OpenTopic = topic
	snapshot.Buffers = map[string][]livestate.MessageRecord{topic: records}
	snapshot.Streams = map[string]livestate.StreamStatus{
		topic: {Topic: topic, State: livestate.StreamStreaming, Capacity: 100},
	}
	return snapshot
}

func record(offset int64, value string) livestate.MessageRecord {
	return livestate.MessageRecord{
		Topic:     "orders",
		Partition: 0,
		Offset:    offset,
		Value:     []byte(value),
		Timestamp: testEpoch,
	}
}

// TestModelFilter verifies that typing a filter narrows the topic list,
// and that Esc restores it.
func TestModelFilter(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)

	if len(model.visibleTopics) != 3 {
		t.Fatalf("visible topics = %d, want 3", len(model.visibleTopics))
	}

	model = update(t, model, runes("/"))
	if model.focus != FocusFilter {
		t.Fatalf("focus after / = %v, want FocusFilter", model.focus)
	}
	model = typeText(t, model, "ord")
	if len(model.visibleTopics) != 2 {
		t.Fatalf("visible topics for %q = %d, want 2", "ord", len(model.visibleTopics))
	}
	for _, index := range model.visibleTopics {
		if name := model.snapshot.Topics[index].Name; !strings.HasPrefix(name, "order") {
			t.Errorf("filter kept %q", name)
		}
	}
	if len(model.highlights["orders"]) != 3 {
		t.Errorf("highlight positions for orders = %v, want 3 positions", model.highlights["orders"])
	}

	// q is filter text while the filter has focus, not quit.
	model = update(t, model, runes("q"))
	if len(model.visibleTopics) != 0 {
		t.Errorf("visible topics for %q = %d, want 0", "ordq", len(model.visibleTopics))
	}

	model = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if model.focus != FocusNormal || model.filter.Value() != "" {
		t.Errorf("after Esc: focus %v, filter %q", model.focus, model.filter.Value())
	}
	if len(model.visibleTopics) != 3 {
		t.Errorf("visible topics after Esc = %d, want 3", len(model.visibleTopics))
	}
}

// TestModelOpenAndCloseTopic verifies that Enter opens the selected
// topic on the info page and q closes it again.
func TestModelOpenAndCloseTopic(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)

	model = update(t, model, runes("j"))
	if model.selectedTopic != "orders" {
		t.Fatalf("selected topic = %q, want orders", model.selectedTopic)
	}
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.page != PageInfo || model.openTopic != "orders" {
		t.Fatalf("after Enter: page %v, open %q", model.page, model.openTopic)
	}

	model = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	if model.page != PageMessages {
		t.Errorf("Tab from info = %v, want PageMessages", model.page)
	}
	if model.activeTab != TabTopics {
		t.Errorf("Tab inside a topic switched tabs to %v", model.activeTab)
	}

	model = update(t, model, runes("q"))
	if model.page != PageList || model.openTopic != "" {
		t.Errorf("after q: page %v, open %q", model.page, model.openTopic)
	}

	commands := fake.commands()
	if len(commands) != 2 {
		t.Fatalf("submitted %d commands, want 2: %#v", len(commands), commands)
	}
	open, ok := commands[0].(engine.OpenTopic)
	if !ok || open.Name != "orders" || open.Start != nil {
		t.Errorf("first command = %#v, want OpenTopic{orders} with default start", commands[0])
	}
	if closed, ok := commands[1].(engine.CloseTopic); !ok || closed.Name != "orders" {
		t.Errorf("second command = %#v, want CloseTopic{orders}", commands[1])
	}
}

// TestModelOpenFromMenu verifies that the start position menu opens a
// topic with the chosen lookback.
func TestModelOpenFromMenu(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)

	model = update(t, model, runes("o"))
	if model.menu == nil || model.focus != FocusMenu {
		t.Fatal("o should open the start position menu")
	}
	if view := model.View(); !strings.Contains(view, "last 100 per partition") {
		t.Error("menu overlay missing from view")
	}

	model = update(t, model, runes("j"))
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.menu != nil || model.focus != FocusNormal {
		t.Error("Enter should close the menu")
	}

	commands := fake.commands()
	if len(commands) != 1 {
		t.Fatalf("submitted %d commands, want 1", len(commands))
	}
	open, ok := commands[0].(engine.OpenTopic)
	if !ok || open.Start == nil {
		t.Fatalf("command = %#v, want OpenTopic with a start", commands[0])
	}
	want := engine.StartPosition{Mode: engine.StartLookback, Value: 10}
	if *open.Start != want {
		t.Errorf("start = %v, want %v", *open.Start, want)
	}
}

// openSendForm opens "order-events" and starts editing its send form.
func openSendForm(t *testing.T, model Model) Model {
	t.Helper()
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model = update(t, model, tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.page != PageSend {
		t.Fatalf("Shift+Tab from info = %v, want PageSend", model.page)
	}
	model = update(t, model, runes("s"))
	if model.focus != FocusSendForm {
		t.Fatalf("s on the send page: focus %v, want FocusSendForm", model.focus)
	}
	return model
}

// TestModelSendForm verifies that the send form submits the value, key
// and partition, rejects non-digit partitions and clears after sending.
func TestModelSendForm(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := openSendForm(t, testModel(t, fake, &now))

	model = typeText(t, model, "hello q")
	model = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	model = typeText(t, model, "k1")
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter}) // to partition
	model = typeText(t, model, "2x")
	if got := model.sendForm.fields[fieldPartition].Value(); got != "2" {
		t.Errorf("partition field = %q, want digits only", got)
	}

	// Enter off the message field only advances.
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.sendForm.focused != fieldMessage {
		t.Fatalf("focused field = %d, want message", model.sendForm.focused)
	}
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	commands := fake.commands()
	send, ok := commands[len(commands)-1].(engine.SendMessage)
	if !ok {
		t.Fatalf("last command = %#v, want SendMessage", commands[len(commands)-1])
	}
	if send.Topic != "order-events" || string(send.Value) != "hello q" || string(send.Key) != "k1" {
		t.Errorf("send = topic %q value %q key %q", send.Topic, send.Value, send.Key)
	}
	if send.Partition == nil || *send.Partition != 2 {
		t.Errorf("partition = %v, want 2", send.Partition)
	}
	for index, field := range model.sendForm.fields {
		if field.Value() != "" {
			t.Errorf("field %s not cleared after send: %q", fieldLabels[index], field.Value())
		}
	}
	if model.focus != FocusSendForm {
		t.Error("form should stay in edit mode after sending")
	}

	// An empty message sends nothing.
	before := len(fake.commands())
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if after := len(fake.commands()); after != before {
		t.Errorf("empty message submitted a command")
	}

	model = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if model.focus != FocusNormal || model.page != PageSend {
		t.Errorf("Esc: focus %v page %v, want normal focus on the send page", model.focus, model.page)
	}
}

// TestModelSendBackpressure verifies that a rejected send keeps the
// typed message and shows the rejection in the form.
func TestModelSendBackpressure(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := openSendForm(t, testModel(t, fake, &now))

	fake.submitErr = &engine.BackpressureError{Pending: 64, Limit: 64}
	model = typeText(t, model, "payload")
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(model.sendForm.err, "64 sends pending") {
		t.Errorf("form error = %q, want the backpressure message", model.sendForm.err)
	}
	if got := model.sendForm.fields[fieldMessage].Value(); got != "payload" {
		t.Errorf("message field = %q, want it kept", got)
	}
	if view := model.View(); !strings.Contains(view, "send rejected") {
		t.Error("backpressure error missing from view")
	}
}

// TestModelRefreshRejected verifies that a command the engine refuses
// shows as a notice that fades.
func TestModelRefreshRejected(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)

	fake.submitErr = engine.ErrShutdown
	updated, command := model.Update(runes("r"))
	model = updated.(Model)
	if model.notice != engine.ErrShutdown.Error() || command == nil {
		t.Fatalf("notice = %q, want %q with a fade command", model.notice, engine.ErrShutdown)
	}

	model = update(t, model, noticeFadeMsg{serial: model.noticeSerial})
	if model.notice != "" {
		t.Errorf("notice after fade = %q, want empty", model.notice)
	}
}

// TestModelHeatIgnition verifies that records ignite once when they
// first arrive, with produced records glowing in their own color.
func TestModelHeatIgnition(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)
	model = update(t, model, runes("j"))
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})

	produced := record(1, `{"id":2}`)
	produced.Origin = livestate.OriginProduced
	snapshot := withRecords(testSnapshot(), "orders", record(0, `{"id":1}`), produced)
	model = update(t, model, snapshotMsg{snapshot: snapshot, next: make(chan struct{})})

	color, hot := model.heat.Background(model.theme, "0/0", now)
	if !hot || color != model.theme.HotAccentArrival {
		t.Errorf("consumed record background = %q hot=%v, want arrival accent", color, hot)
	}
	color, hot = model.heat.Background(model.theme, "0/1", now)
	if !hot || color != model.theme.HotAccentProduced {
		t.Errorf("produced record background = %q hot=%v, want produced accent", color, hot)
	}
	if !model.tickRunning {
		t.Error("heat tick should be running while records glow")
	}

	// The same records in a later snapshot do not re-ignite.
	now = now.Add(tui.HeatDecayDuration)
	model = update(t, model, snapshotMsg{snapshot: snapshot, next: make(chan struct{})})
	if heat := model.heat.Heat("0/0", now); heat != 0 {
		t.Errorf("heat of an old record = %v, want 0", heat)
	}

	snapshot = withRecords(testSnapshot(), "orders", record(0, `{"id":1}`), produced, record(2, "three"))
	model = update(t, model, snapshotMsg{snapshot: snapshot, next: make(chan struct{})})
	if heat := model.heat.Heat("0/2", now); heat != 1 {
		t.Errorf("heat of a new record = %v, want 1", heat)
	}
}

// TestModelFollowAndEviction verifies that the cursor follows the tail
// until moved, stays on its record as new ones arrive, and lands on
// the oldest survivor when its record is evicted.
func TestModelFollowAndEviction(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)
	model = update(t, model, runes("j"))
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model = update(t, model, tea.KeyMsg{Type: tea.KeyTab})

	records := func(from, to int64) []livestate.MessageRecord {
		var result []livestate.MessageRecord
		for offset := from; offset <= to; offset++ {
			result = append(result, record(offset, "value"))
		}
		return result
	}
	deliver := func(model Model, from, to int64) Model {
		snapshot := withRecords(testSnapshot(), "orders", records(from, to)...)
		return update(t, model, snapshotMsg{snapshot: snapshot, next: make(chan struct{})})
	}

	model = deliver(model, 0, 4)
	if model.messageCursor != 4 || !model.follow {
		t.Fatalf("cursor %d follow %v, want 4 following", model.messageCursor, model.follow)
	}

	model = update(t, model, runes("k"))
	if model.follow || model.selected.offset != 3 {
		t.Fatalf("after k: follow %v selected %v, want offset 3 not following", model.follow, model.selected)
	}

	model = deliver(model, 2, 7)
	if model.selected.offset != 3 || model.messageCursor != 1 {
		t.Errorf("after new records: selected %v at %d, want offset 3 at index 1", model.selected, model.messageCursor)
	}
	if !strings.Contains(model.detail, "offset 3") {
		t.Errorf("detail does not describe offset 3:\n%s", model.detail)
	}

	model = deliver(model, 5, 9)
	if model.selected.offset != 5 || model.messageCursor != 0 {
		t.Errorf("after eviction: selected %v at %d, want offset 5 at index 0", model.selected, model.messageCursor)
	}

	model = update(t, model, runes("G"))
	if !model.follow || model.selected.offset != 9 {
		t.Errorf("after G: follow %v selected %v, want following at offset 9", model.follow, model.selected)
	}
	model = deliver(model, 5, 11)
	if model.selected.offset != 11 {
		t.Errorf("following cursor at offset %d, want 11", model.selected.offset)
	}
}

// TestModelRawToggle verifies that x switches the detail pane to a hex
// dump and back.
func TestModelRawToggle(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)
	model = update(t, model, runes("j"))
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	snapshot := withRecords(testSnapshot(), "orders", record(0, "hello"))
	model = update(t, model, snapshotMsg{snapshot: snapshot, next: make(chan struct{})})

	if !strings.HasSuffix(model.detail, "hello") {
		t.Errorf("text detail:\n%s", model.detail)
	}
	model = update(t, model, runes("x"))
	if !strings.Contains(model.detail, "68 65 6c 6c 6f") {
		t.Errorf("raw detail lacks hex bytes:\n%s", model.detail)
	}
	model = update(t, model, runes("x"))
	if strings.Contains(model.detail, "68 65 6c 6c 6f") {
		t.Error("second x should leave raw mode")
	}
}

// TestModelTabs verifies tab switching and the groups and brokers
// views.
func TestModelTabs(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := testModel(t, fake, &now)

	model = update(t, model, runes("2"))
	if model.activeTab != TabGroups {
		t.Fatalf("tab after 2 = %v, want groups", model.activeTab)
	}
	view := model.View()
	for _, want := range []string{"billing", "consumer/range", "billing-1"} {
		if !strings.Contains(view, want) {
			t.Errorf("groups view missing %q", want)
		}
	}

	model = update(t, model, tea.KeyMsg{Type: tea.KeyTab})
	if model.activeTab != TabBrokers {
		t.Fatalf("tab after Tab = %v, want brokers", model.activeTab)
	}
	if view := model.View(); !strings.Contains(view, "localhost:9092") || !strings.Contains(view, "(bootstrap)") {
		t.Error("brokers view missing the bootstrap broker")
	}

	updated, command := model.Update(runes("q"))
	model = updated.(Model)
	if model.activeTab != TabTopics || command != nil {
		t.Errorf("q on brokers: tab %v, command %v; want topics without quitting", model.activeTab, command)
	}
}

// TestModelView verifies the topic list and status bar contents.
func TestModelView(t *testing.T) {
	now := testEpoch
	fake := newFakeEngine(testSnapshot())
	model := NewModel(fake, Options{Now: func() time.Time { return now }})
	if view := model.View(); view != "Loading..." {
		t.Errorf("view before the first snapshot = %q", view)
	}

	model = testModel(t, fake, &now)
	view := model.View()
	lines := strings.Split(view, "\n")
	if len(lines) != 30 {
		t.Errorf("view has %d lines, want 30", len(lines))
	}
	for _, want := range []string{"order-events", "1,200", "connected", "localhost:9092", "refreshed 2 seconds ago", "3 topics"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

// TestModelQuit verifies that q on the topic list quits.
func TestModelQuit(t *testing.T) {
	now := testEpoch
	model := testModel(t, newFakeEngine(testSnapshot()), &now)

	_, command := model.Update(runes("q"))
	if command == nil {
		t.Fatal("q should return a command")
	}
	if _, isQuit := command().(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg")
	}

	_, command = model.Update(engineDoneMsg{})
	if command == nil {
		t.Fatal("engine shutdown should return a command")
	}
	if _, isQuit := command().(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg after engine shutdown")
	}
}

// TestSnapshotPump verifies that the pump delivers the snapshot current
// after a change, and reports engine shutdown.
func TestSnapshotPump(t *testing.T) {
	fake := newFakeEngine(testSnapshot())
	pump := newSnapshotPump(fake, 0)

	first, ok := pump.first()().(snapshotMsg)
	if !ok || first.snapshot.Version != 3 {
		t.Fatalf("first message = %#v", first)
	}

	results := make(chan tea.Msg, 1)
	go func() { results <- pump.wait(first.next)() }()

	// Two changes before the waiter reads collapse into one message
	// carrying the newer snapshot.
	next := testSnapshot()
	next.Version = 4
	fake.mutex.Lock()
	fake.snapshot = next
	fake.mutex.Unlock()
	next.Version = 5
	fake.publish(next)

	message := testutil.RequireReceive[tea.Msg](t, results, 5*time.Second, "waiting for pump")
	snapshot, ok := message.(snapshotMsg)
	if !ok || snapshot.snapshot.Version != 5 {
		t.Fatalf("pump delivered %#v, want version 5", message)
	}

	go func() { results <- pump.wait(snapshot.next)() }()
	close(fake.done)
	message = testutil.RequireReceive[tea.Msg](t, results, 5*time.Second, "waiting for shutdown")
	if _, ok := message.(engineDoneMsg); !ok {
		t.Errorf("pump delivered %T after shutdown, want engineDoneMsg", message)
	}
}

// fakeSender captures messages the log handler sends.
type fakeSender struct {
	mutex    sync.Mutex
	messages []tea.Msg
}

func (fake *fakeSender) Send(message tea.Msg) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.messages = append(fake.messages, message)
}

// TestTUILogHandler verifies level filtering, attribute flattening and
// that records before the program is set are dropped.
func TestTUILogHandler(t *testing.T) {
	handler := NewTUILogHandler(slog.LevelWarn)
	logger := slog.New(handler).With("topic", "orders").WithGroup("fetch")

	logger.Warn("dropped before SetProgram")

	target := &fakeSender{}
	handler.setSender(target)
	logger.Info("below level")
	logger.Warn("fetch failed", "partition", 3, "err", errors.New("timeout"))

	if len(target.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(target.messages))
	}
	record, ok := target.messages[0].(logRecordMsg)
	if !ok {
		t.Fatalf("message type %T", target.messages[0])
	}
	want := "fetch failed (topic=orders, fetch.partition=3, fetch.err=timeout)"
	if record.Summary != want {
		t.Errorf("summary = %q, want %q", record.Summary, want)
	}
	if record.Level != slog.LevelWarn {
		t.Errorf("level = %v, want WARN", record.Level)
	}

	model := testModel(t, newFakeEngine(testSnapshot()), &testEpoch)
	model = update(t, model, record)
	if !strings.Contains(model.View(), "fetch failed") {
		t.Error("log line missing from status bar")
	}
	model = update(t, model, logRecordFadeMsg{Serial: model.logSerial})
	if model.logLine != "" {
		t.Errorf("log line after fade = %q", model.logLine)
	}
}
