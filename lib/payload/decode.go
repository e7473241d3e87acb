// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Kind is what Decode recognized the payload as.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindJSON
	KindCBOR
	KindBinary
)

func (kind Kind) String() string {
	switch kind {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	case KindCBOR:
		return "cbor"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", int(kind))
	}
}

// MaxDecompressed caps how much a compressed payload may expand to
// for preview.
const MaxDecompressed = 4 << 20

// Preview is a readable rendering of a payload.
type Preview struct {
	Kind Kind

	// Compression names the frame Decode removed ("zstd", "lz4"),
	// or is empty.
	Compression string

	// Text is the rendering: indented JSON for JSON and CBOR, the
	// text itself, or a hex dump.
	Text string

	// Size is the length of the original bytes.
	Size int

	// Fingerprint is the first 8 bytes of the BLAKE3 hash of the
	// original bytes, hex encoded.
	Fingerprint string
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var zstdDecoder *zstd.Decoder

// cborDecMode keeps the default map[any]any map type so integer-keyed
// maps decode.
var cborDecMode cbor.DecMode

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxDecompressed),
	)
	if err != nil {
		panic("payload: zstd decoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("payload: cbor decoder initialization failed: " + err.Error())
	}
}

// Decode renders value for display. It never fails: anything it cannot
// interpret is shown as hex.
func Decode(value []byte) Preview {
	preview := Preview{Size: len(value), Fingerprint: Fingerprint(value)}
	if len(value) == 0 {
		preview.Kind = KindEmpty
		return preview
	}

	body := value
	if compression, decompressed, ok := decompress(value); ok {
		preview.Compression = compression
		body = decompressed
	}

	switch {
	case json.Valid(body):
		preview.Kind = KindJSON
		var indented bytes.Buffer
		if err := json.Indent(&indented, body, "", "  "); err == nil {
			preview.Text = indented.String()
		} else {
			preview.Text = string(body)
		}
	case isText(body):
		preview.Kind = KindText
		preview.Text = string(body)
	default:
		if text, ok := decodeCBOR(body); ok {
			preview.Kind = KindCBOR
			preview.Text = text
			return preview
		}
		preview.Kind = KindBinary
		preview.Text = HexDump(body)
	}
	return preview
}

// MaxHexDump caps how many bytes [HexDump] renders.
const MaxHexDump = 64 << 10

// HexDump renders value in hex.Dump format, truncated to MaxHexDump
// bytes with a trailing note when longer.
func HexDump(value []byte) string {
	if len(value) <= MaxHexDump {
		return hex.Dump(value)
	}
	return hex.Dump(value[:MaxHexDump]) + fmt.Sprintf("... %d more bytes\n", len(value)-MaxHexDump)
}

// Fingerprint returns the first 8 bytes of BLAKE3(value) in hex.
func Fingerprint(value []byte) string {
	sum := blake3.Sum256(value)
	return hex.EncodeToString(sum[:8])
}

func decompress(value []byte) (string, []byte, bool) {
	switch {
	case bytes.HasPrefix(value, zstdMagic):
		decoded, err := zstdDecoder.DecodeAll(value, nil)
		if err != nil || len(decoded) > MaxDecompressed {
			return "", nil, false
		}
		return "zstd", decoded, true
	case bytes.HasPrefix(value, lz4Magic):
		reader := lz4.NewReader(bytes.NewReader(value))
		decoded, err := io.ReadAll(io.LimitReader(reader, MaxDecompressed+1))
		if err != nil || len(decoded) > MaxDecompressed {
			return "", nil, false
		}
		return "lz4", decoded, true
	}
	return "", nil, false
}

// isText reports whether body is valid UTF-8 made of printable
// characters and ordinary whitespace.
func isText(body []byte) bool {
	if !utf8.Valid(body) {
		return false
	}
	for _, r := range string(body) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// decodeCBOR accepts only a single top-level map or array. Almost any
// byte string parses as some CBOR scalar, so scalars are not evidence
// of CBOR.
func decodeCBOR(body []byte) (string, bool) {
	var value any
	if err := cborDecMode.Unmarshal(body, &value); err != nil {
		return "", false
	}
	switch value.(type) {
	case map[any]any, []any:
	default:
		return "", false
	}
	rendered, err := json.MarshalIndent(normalizeValue(value), "", "  ")
	if err != nil {
		return "", false
	}
	return string(rendered), true
}

// normalizeValue converts CBOR-decoded values to JSON-compatible
// types: map[any]any becomes map[string]any with fmt.Sprint'd keys and
// byte strings become hex.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case map[any]any:
		result := make(map[string]any, len(value))
		for key, element := range value {
			result[fmt.Sprint(key)] = normalizeValue(element)
		}
		return result
	case []any:
		for index, element := range value {
			value[index] = normalizeValue(element)
		}
		return value
	case []byte:
		return hex.EncodeToString(value)
	default:
		return v
	}
}
