// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package brokerui

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/brokerview/lib/livestate"
	"github.com/bureau-foundation/brokerview/lib/payload"
	"github.com/bureau-foundation/brokerview/lib/tui"
)

// summaryWidth caps the one-line preview kept per record.
const summaryWidth = 240

// syncOpenTopic folds a new snapshot into the open topic's view state:
// new records are ignited, one-line previews are built for them, and
// the cursor follows the tail or stays on the selected record.
func (model *Model) syncOpenTopic() {
	if model.openTopic == "" {
		return
	}
	records := model.snapshot.Buffers[model.openTopic]
	now := model.now()

	summaries := make(map[recordKey]string, len(records))
	for _, record := range records {
		position := recordKey{partition: record.Partition, offset: record.Offset}
		if summary, ok := model.summaries[position]; ok {
			summaries[position] = summary
		} else {
			summaries[position] = summarize(record.Value)
		}

		last, seen := model.seen[record.Partition]
		if !seen || record.Offset > last {
			model.seen[record.Partition] = record.Offset
			kind := tui.HeatArrival
			if record.Origin == livestate.OriginProduced {
				kind = tui.HeatProduced
			}
			model.heat.Ignite(position.String(), kind, now)
		}
	}
	model.summaries = summaries

	if len(records) == 0 {
		model.messageCursor = 0
		model.follow = true
		model.refreshDetail()
		return
	}
	if model.follow {
		model.messageCursor = len(records) - 1
	} else {
		// The selected record may have been evicted from the front of
		// the buffer; land on the oldest survivor.
		model.messageCursor = 0
		for index, record := range records {
			if record.Partition == model.selected.partition && record.Offset == model.selected.offset {
				model.messageCursor = index
				break
			}
		}
	}
	model.selectCurrent(records)
	model.ensureMessageVisible()
	model.refreshDetail()
}

func (model *Model) selectCurrent(records []livestate.MessageRecord) {
	if len(records) == 0 {
		return
	}
	model.messageCursor = min(max(model.messageCursor, 0), len(records)-1)
	record := records[model.messageCursor]
	model.selected = recordKey{partition: record.Partition, offset: record.Offset}
}

func (model *Model) moveMessageCursor(message tea.KeyMsg) {
	records := model.snapshot.Buffers[model.openTopic]
	if len(records) == 0 {
		return
	}
	model.messageCursor = moveCursor(model.keys, message, model.messageCursor, len(records), model.messageRows())
	// Resting on the newest record re-enables following.
	model.follow = model.messageCursor == len(records)-1 || key.Matches(message, model.keys.End)
	model.selectCurrent(records)
	model.ensureMessageVisible()
	model.refreshDetail()
}

// messageRows is the height of the record list; the rest of the page
// shows the selected record.
func (model Model) messageRows() int {
	return max((model.contentHeight()-1)/2, 1)
}

func (model *Model) ensureMessageVisible() {
	rows := model.messageRows()
	if model.messageCursor < model.messageOffset {
		model.messageOffset = model.messageCursor
	}
	if model.messageCursor >= model.messageOffset+rows {
		model.messageOffset = model.messageCursor - rows + 1
	}
	model.messageOffset = max(model.messageOffset, 0)
}

// refreshDetail re-renders the selected record's full preview when the
// selection changed.
func (model *Model) refreshDetail() {
	records := model.snapshot.Buffers[model.openTopic]
	if len(records) == 0 {
		model.detail = ""
		model.detailKey = recordKey{}
		return
	}
	if model.detail != "" && model.detailKey == model.selected {
		return
	}
	record := records[min(model.messageCursor, len(records)-1)]
	model.detailKey = model.selected
	model.detail = renderDetail(record, model.showRaw)
}

// summarize produces the one-line preview shown in the record list.
func summarize(value []byte) string {
	preview := payload.Decode(value)
	var text string
	switch preview.Kind {
	case payload.KindEmpty:
		text = "(empty)"
	case payload.KindBinary:
		text = fmt.Sprintf("(%s binary)", humanize.Bytes(uint64(preview.Size)))
	default:
		text = strings.Join(strings.Fields(preview.Text), " ")
	}
	if preview.Compression != "" {
		text = "[" + preview.Compression + "] " + text
	}
	if runes := []rune(text); len(runes) > summaryWidth {
		text = string(runes[:summaryWidth])
	}
	return text
}

// renderDetail renders a record's metadata and decoded value. JSON
// and CBOR values are syntax highlighted.
func renderDetail(record livestate.MessageRecord, raw bool) string {
	preview := payload.Decode(record.Value)

	var builder strings.Builder
	fmt.Fprintf(&builder, "partition %d  offset %d  %s\n", record.Partition, record.Offset, record.Timestamp.Format("2006-01-02 15:04:05.000"))
	keyText := "(none)"
	if record.Key != nil {
		keyText = strings.Join(strings.Fields(payload.Decode(record.Key).Text), " ")
		if keyText == "" {
			keyText = `""`
		}
	}
	kind := preview.Kind.String()
	if preview.Compression != "" {
		kind = preview.Compression + "+" + kind
	}
	fmt.Fprintf(&builder, "key %s  %s  %s  blake3:%s  %s\n\n",
		keyText, kind, humanize.Bytes(uint64(preview.Size)), preview.Fingerprint, record.Origin)

	switch {
	case raw:
		builder.WriteString(hexDump(record.Value))
	case preview.Kind == payload.KindJSON || preview.Kind == payload.KindCBOR:
		builder.WriteString(highlightJSON(preview.Text))
	default:
		builder.WriteString(preview.Text)
	}
	return builder.String()
}

func hexDump(value []byte) string {
	if len(value) == 0 {
		return "(empty)"
	}
	return payload.HexDump(value)
}

// highlightJSON colors JSON with chroma, falling back to plain text.
func highlightJSON(text string) string {
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, text, "json", "terminal256", "monokai"); err != nil {
		return text
	}
	return buffer.String()
}
