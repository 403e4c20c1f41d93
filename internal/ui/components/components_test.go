package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Deleted 2 topics ", stripTags("[yellow]Deleted 2 topics[white] "))
	assert.Equal(t, " q  Quit", stripTags("[black:gray:b] q [-:-:-] Quit"))
	assert.Equal(t, "plain", stripTags("plain"))
}

func TestStatus(t *testing.T) {
	assert.Contains(t, Status(true, "", false), "Connected")
	assert.Contains(t, Status(false, "", false), "Disconnected")
	assert.Contains(t, Status(true, "subscribe room/**: timeout", true), "subscribe room/**: timeout")
}

func TestFooterInfoFitsRoom(t *testing.T) {
	f := NewFooter("1.2.0", "nats://localhost:4222 kvui")

	assert.Equal(t, " kvui 1.2.0 @ nats://localhost:4222 kvui ", f.info(100))
	assert.Equal(t, " nats://localhost:4222 kvui ", f.info(30))
	assert.Equal(t, " kvui 1.2.0 ", f.info(15))
	assert.Empty(t, f.info(5))
}
