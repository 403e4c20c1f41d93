// Package payload keeps bounded copies of message payloads and renders them for display.
package payload

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

// TruncatedMarker is appended to payloads that were cut at the size limit
const TruncatedMarker = "…truncated"

// Payload is a possibly truncated copy of a message body
type Payload struct {
	data []byte
	size int
}

// Truncate keeps at most limit bytes of b and reports the original length.
// A limit <= 0 keeps everything.
func Truncate(b []byte, limit int) ([]byte, int) {
	size := len(b)
	if limit > 0 && size > limit {
		return b[:limit], size
	}
	return b, size
}

// New copies b, keeping at most limit bytes
func New(b []byte, limit int) Payload {
	kept, size := Truncate(b, limit)
	return Payload{data: bytes.Clone(kept), size: size}
}

// Unlimited wraps b without truncation
func Unlimited(b []byte) Payload {
	return Payload{data: b, size: len(b)}
}

// Bytes returns the kept bytes
func (p Payload) Bytes() []byte {
	return p.data
}

// Size returns the original size in bytes
func (p Payload) Size() int {
	return p.size
}

// Truncated reports whether bytes were dropped
func (p Payload) Truncated() bool {
	return len(p.data) < p.size
}

// String renders the payload the non-pretty way
func (p Payload) String() string {
	return Render(p, false)
}

// Render formats the payload for display.
// Truncated payloads are never parsed since structured formats need the full content.
func Render(p Payload, pretty bool) string {
	if p.Truncated() {
		return fmt.Sprintf("%s\n%s (kept %d of %d bytes)", Lossy(p.data), TruncatedMarker, len(p.data), p.size)
	}
	if !pretty {
		return Lossy(p.data)
	}

	if utf8.Valid(p.data) {
		if formatted, ok := prettyJSON(p.data); ok {
			return formatted
		}
		return string(p.data)
	}

	if diag, err := cbor.Diagnose(p.data); err == nil {
		return diag
	}
	return hex.Dump(p.data)
}

// Lossy converts b to text, replacing invalid UTF-8 sequences
func Lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// RawForSink returns what to write for a sink: exact bytes unless it is a terminal
func RawForSink(b []byte, terminal bool) []byte {
	if terminal {
		return []byte(Lossy(b))
	}
	return b
}

// JSONValue returns a value that embeds the payload in a JSON document
func JSONValue(p Payload) any {
	if !p.Truncated() && len(p.data) > 0 && json.Valid(p.data) {
		return json.RawMessage(p.data)
	}
	if utf8.Valid(p.data) {
		return string(p.data)
	}
	return p.data
}

func prettyJSON(b []byte) (string, bool) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", false
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "  "); err != nil {
		return "", false
	}
	return out.String(), true
}
