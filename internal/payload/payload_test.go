package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate_ShorterThanLimit(t *testing.T) {
	kept, size := Truncate([]byte("21.5"), 100)
	assert.Equal(t, []byte("21.5"), kept)
	assert.Equal(t, 4, size)
}

func TestTruncate_ExactlyLimit(t *testing.T) {
	kept, size := Truncate([]byte("abc"), 3)
	assert.Equal(t, []byte("abc"), kept)
	assert.Equal(t, 3, size)
}

func TestTruncate_LongerThanLimit(t *testing.T) {
	kept, size := Truncate([]byte("hello"), 3)
	assert.Equal(t, []byte("hel"), kept)
	assert.Equal(t, 5, size)
}

func TestTruncate_NoLimit(t *testing.T) {
	kept, size := Truncate([]byte("hello"), 0)
	assert.Equal(t, []byte("hello"), kept)
	assert.Equal(t, 5, size)
}

func TestNew_CopiesInput(t *testing.T) {
	in := []byte("abc")
	p := New(in, 10)
	in[0] = 'x'
	assert.Equal(t, []byte("abc"), p.Bytes())
}

func TestRender_TruncatedIsNotParsed(t *testing.T) {
	p := New([]byte(`{"a": 1}`), 3)
	out := Render(p, true)
	assert.True(t, strings.HasPrefix(out, `{"a`))
	assert.Contains(t, out, TruncatedMarker)
	assert.Contains(t, out, "kept 3 of 8 bytes")

	hello := Render(New([]byte("hello"), 3), true)
	assert.True(t, strings.HasPrefix(hello, "hel\n"))
	assert.Contains(t, hello, TruncatedMarker)
}

func TestRender_PrettyJSON(t *testing.T) {
	out := Render(Unlimited([]byte(`{"temp":21.5,"unit":"C"}`)), true)
	assert.Equal(t, "{\n  \"temp\": 21.5,\n  \"unit\": \"C\"\n}", out)
}

func TestRender_PlainText(t *testing.T) {
	assert.Equal(t, "hello world", Render(Unlimited([]byte("hello world")), true))
	assert.Equal(t, `{"a":1}`, Render(Unlimited([]byte(`{"a":1}`)), false))
}

func TestRender_CBOR(t *testing.T) {
	b, err := cbor.Marshal(map[string]any{"t": -1.5, "ok": []byte{0xff}})
	require.NoError(t, err)

	out := Render(Unlimited(b), true)
	assert.Contains(t, out, `"t"`)
	assert.NotContains(t, out, "00000000")
}

func TestRender_BinaryFallsBackToHex(t *testing.T) {
	b := []byte{0xff, 0xfe, 0xfd}
	out := Render(Unlimited(b), true)
	assert.Contains(t, out, "ff fe fd")
}

func TestRender_LossyNonPretty(t *testing.T) {
	out := Render(Unlimited([]byte{'a', 0xff, 'b'}), false)
	assert.Equal(t, "a�b", out)
}

func TestRawForSink(t *testing.T) {
	b := []byte{'a', 0xff}
	assert.Equal(t, b, RawForSink(b, false))
	assert.Equal(t, []byte("a�"), RawForSink(b, true))
}

func TestJSONValue(t *testing.T) {
	doc := map[string]any{
		"json":   JSONValue(Unlimited([]byte(`{"a":1}`))),
		"text":   JSONValue(Unlimited([]byte("hi"))),
		"binary": JSONValue(Unlimited([]byte{0xff})),
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"json":{"a":1},"text":"hi","binary":"/w=="}`, string(b))
}
