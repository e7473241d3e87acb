// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func TestDecodeKinds(t *testing.T) {
	cborMap, err := cbor.Marshal(map[string]any{"id": 7, "name": "widget"})
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}

	tests := []struct {
		name     string
		value    []byte
		kind     Kind
		contains string
	}{
		{"empty", nil, KindEmpty, ""},
		{"json object", []byte(`{"a":1}`), KindJSON, "\"a\": 1"},
		{"json scalar", []byte(`42`), KindJSON, "42"},
		{"text", []byte("hello, world\n"), KindText, "hello, world"},
		{"cbor map", cborMap, KindCBOR, "\"name\": \"widget\""},
		{"binary", []byte{0x00, 0x01, 0xff, 0xfe}, KindBinary, "00 01 ff fe"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			preview := Decode(test.value)
			if preview.Kind != test.kind {
				t.Fatalf("Kind = %v, want %v (text %q)", preview.Kind, test.kind, preview.Text)
			}
			if !strings.Contains(preview.Text, test.contains) {
				t.Errorf("Text = %q, want it to contain %q", preview.Text, test.contains)
			}
			if preview.Size != len(test.value) {
				t.Errorf("Size = %d, want %d", preview.Size, len(test.value))
			}
			if preview.Compression != "" {
				t.Errorf("Compression = %q, want none", preview.Compression)
			}
		})
	}
}

// TestDecodeCBORScalarIsBinary verifies that bytes which happen to
// parse as a lone CBOR scalar are not labeled CBOR.
func TestDecodeCBORScalarIsBinary(t *testing.T) {
	// 0x1a followed by four bytes is a CBOR uint32.
	preview := Decode([]byte{0x1a, 0x00, 0x01, 0x02, 0x03})
	if preview.Kind != KindBinary {
		t.Errorf("Kind = %v, want binary", preview.Kind)
	}
}

func TestDecodeZstd(t *testing.T) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer encoder.Close()
	compressed := encoder.EncodeAll([]byte(`{"compressed":true}`), nil)

	preview := Decode(compressed)
	if preview.Compression != "zstd" {
		t.Fatalf("Compression = %q, want zstd", preview.Compression)
	}
	if preview.Kind != KindJSON {
		t.Errorf("Kind = %v, want json", preview.Kind)
	}
	if preview.Size != len(compressed) {
		t.Errorf("Size = %d, want compressed length %d", preview.Size, len(compressed))
	}
}

func TestDecodeLZ4(t *testing.T) {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := writer.Write([]byte("plain text inside lz4")); err != nil {
		t.Fatalf("lz4 Write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("lz4 Close: %v", err)
	}

	preview := Decode(compressed.Bytes())
	if preview.Compression != "lz4" {
		t.Fatalf("Compression = %q, want lz4", preview.Compression)
	}
	if preview.Kind != KindText || preview.Text != "plain text inside lz4" {
		t.Errorf("preview = %v %q, want text", preview.Kind, preview.Text)
	}
}

// TestDecodeCorruptFrame verifies that a payload with a zstd magic
// number but a corrupt body is shown as-is rather than dropped.
func TestDecodeCorruptFrame(t *testing.T) {
	value := append([]byte{0x28, 0xb5, 0x2f, 0xfd}, 0xde, 0xad, 0xbe, 0xef)
	preview := Decode(value)
	if preview.Compression != "" {
		t.Errorf("Compression = %q, want none", preview.Compression)
	}
	if preview.Kind != KindBinary {
		t.Errorf("Kind = %v, want binary", preview.Kind)
	}
}

func TestFingerprint(t *testing.T) {
	first := Fingerprint([]byte("same"))
	if len(first) != 16 {
		t.Fatalf("Fingerprint length = %d, want 16", len(first))
	}
	if Fingerprint([]byte("same")) != first {
		t.Error("Fingerprint is not deterministic")
	}
	if Fingerprint([]byte("different")) == first {
		t.Error("different payloads share a fingerprint")
	}
	if Decode([]byte("same")).Fingerprint != first {
		t.Error("Decode fingerprint differs from Fingerprint")
	}
}

func TestHexDumpTruncates(t *testing.T) {
	value := bytes.Repeat([]byte{0xab}, MaxHexDump+10)
	dump := HexDump(value)
	if !strings.HasSuffix(dump, "... 10 more bytes\n") {
		t.Errorf("HexDump tail = %q, want truncation note", dump[len(dump)-40:])
	}
}
