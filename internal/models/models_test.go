package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleTime() time.Time {
	return time.Date(1996, 12, 19, 16, 39, 57, 0, time.Local)
}

func TestTimestamp_LocalString(t *testing.T) {
	assert.Equal(t, "16:39:57.000", LocalTime(exampleTime()).String())
}

func TestTimestamp_SingleDigitHourIsPadded(t *testing.T) {
	ts := LocalTime(time.Date(2024, 1, 2, 9, 4, 5, 123_000_000, time.Local))
	assert.Equal(t, " 9:04:05.123", ts.String())
}

func TestTimestamp_Unknown(t *testing.T) {
	ts := UnknownTime()
	assert.True(t, ts.IsUnknown())
	assert.Equal(t, "UNKNOWN", ts.String())
	assert.Equal(t, "UNKNOWN     ", ts.Padded())

	_, ok := ts.Time()
	assert.False(t, ok)
}

func TestTimestamp_JSON(t *testing.T) {
	b, err := json.Marshal(UnknownTime())
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(LocalTime(exampleTime()))
	require.NoError(t, err)
	assert.Contains(t, string(b), "1996-12-19T16:39:57")
}

func TestTimestampFor_DeleteIsUnknown(t *testing.T) {
	now := exampleTime()
	assert.True(t, TimestampFor(KindDelete, now).IsUnknown())

	got, ok := TimestampFor(KindWrite, now).Time()
	require.True(t, ok)
	assert.Equal(t, now, got)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "Write", KindWrite.String())
	assert.Equal(t, "Delete", KindDelete.String())

	b, err := json.Marshal(KindDelete)
	require.NoError(t, err)
	assert.Equal(t, `"Delete"`, string(b))
}

func TestNewHistoryEntry_Truncates(t *testing.T) {
	entry := NewHistoryEntry(KindWrite, exampleTime(), []byte("hello"), 3)
	assert.Equal(t, 5, entry.PayloadSize)
	assert.Equal(t, []byte("hel"), entry.Payload.Bytes())
	assert.True(t, entry.Payload.Truncated())
}

func TestIsBelow(t *testing.T) {
	assert.True(t, IsBelow("a/b", "a/b"))
	assert.True(t, IsBelow("a/b/c", "a/b"))
	assert.False(t, IsBelow("a/bb", "a/b"))
	assert.False(t, IsBelow("a/bbb/c", "a/b"))
	assert.False(t, IsBelow("a", "a/b"))
}

func TestSegmentsAndParent(t *testing.T) {
	assert.Equal(t, []string{"room", "temp"}, Segments("room/temp"))
	assert.Nil(t, Segments(""))
	assert.Equal(t, "room", Parent("room/temp"))
	assert.Equal(t, "", Parent("room"))
}
