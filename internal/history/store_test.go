package history

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(data string) models.HistoryEntry {
	return models.NewHistoryEntry(models.KindWrite, time.Now(), []byte(data), 100)
}

func TestStore_AddKeepsArrivalOrder(t *testing.T) {
	s := NewStore()
	s.Add("room/temp", write("1"))
	s.Add("room/temp", write("2"))
	s.Add("room/humidity", write("40"))

	entries := s.Entries("room/temp")
	require.Len(t, entries, 2)
	assert.Equal(t, "1", string(entries[0].Payload.Bytes()))
	assert.Equal(t, "2", string(entries[1].Payload.Bytes()))
	assert.Equal(t, []string{"room/humidity", "room/temp"}, s.Topics())
	assert.Equal(t, 4, s.PayloadBytes())
}

func TestStore_WriteThenDeleteScenario(t *testing.T) {
	s := NewStore()
	s.Add("room/temp", models.NewHistoryEntry(models.KindWrite, time.Now(), []byte("21.5"), 100))
	s.Add("room/temp", models.NewHistoryEntry(models.KindDelete, time.Now(), nil, 100))

	entries := s.Entries("room/temp")
	require.Len(t, entries, 2)

	assert.Equal(t, models.KindWrite, entries[0].Kind)
	assert.Equal(t, 4, entries[0].PayloadSize)
	assert.False(t, entries[0].Payload.Truncated())

	assert.Equal(t, models.KindDelete, entries[1].Kind)
	assert.True(t, entries[1].Time.IsUnknown())
	assert.Empty(t, entries[1].Payload.Bytes())
}

func TestStore_TopicsBelowIsSegmentWise(t *testing.T) {
	s := NewStore()
	for _, topic := range []string{"a/b", "a/b/c", "a/bb", "a/bbb", "a/b/c/d", "b"} {
		s.Add(topic, write("x"))
	}

	assert.Equal(t, []string{"a/b", "a/b/c", "a/b/c/d"}, s.TopicsBelow("a/b"))
	assert.Equal(t, []string{"a/bb"}, s.TopicsBelow("a/bb"))
	assert.Empty(t, s.TopicsBelow("a/bbbb"))
	assert.Len(t, s.TopicsBelow("a"), 5)
}

func TestStore_TopicsBelowRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	segments := []string{"a", "b", "bb", "c"}
	s := NewStore()
	var all []string
	for i := 0; i < 200; i++ {
		depth := 1 + rng.Intn(3)
		topic := segments[rng.Intn(len(segments))]
		for d := 1; d < depth; d++ {
			topic += "/" + segments[rng.Intn(len(segments))]
		}
		s.Add(topic, write("x"))
		all = append(all, topic)
	}

	for _, prefix := range []string{"a", "a/b", "b/bb", "c/a/b"} {
		want := map[string]bool{}
		for _, topic := range all {
			if topic == prefix || len(topic) > len(prefix) && topic[:len(prefix)+1] == prefix+"/" {
				want[topic] = true
			}
		}
		got := s.TopicsBelow(prefix)
		assert.Len(t, got, len(want), "prefix %s", prefix)
		for _, topic := range got {
			assert.True(t, want[topic], "unexpected %s below %s", topic, prefix)
		}
	}
}

func TestStore_UncacheTopicEntry(t *testing.T) {
	s := NewStore()
	for i := 0; i < 4; i++ {
		s.Add("t", write(fmt.Sprint(i)))
	}

	removed, ok := s.UncacheTopicEntry("t", 1)
	require.True(t, ok)
	assert.Equal(t, "1", string(removed.Payload.Bytes()))

	var rest []string
	for _, e := range s.Entries("t") {
		rest = append(rest, string(e.Payload.Bytes()))
	}
	assert.Equal(t, []string{"0", "2", "3"}, rest)
	assert.Equal(t, 3, s.PayloadBytes())
}

func TestStore_UncacheOutOfRange(t *testing.T) {
	s := NewStore()
	s.Add("t", write("0"))

	_, ok := s.UncacheTopicEntry("t", 1)
	assert.False(t, ok)
	_, ok = s.UncacheTopicEntry("t", -1)
	assert.False(t, ok)
	_, ok = s.UncacheTopicEntry("unknown", 0)
	assert.False(t, ok)

	assert.Len(t, s.Entries("t"), 1)
	assert.NotContains(t, s.Topics(), "unknown")
}

func TestStore_UncacheDoesNotTouchOtherTopics(t *testing.T) {
	s := NewStore()
	s.Add("a", write("a0"))
	s.Add("b", write("b0"))

	_, ok := s.UncacheTopicEntry("a", 0)
	require.True(t, ok)
	assert.Empty(t, s.Entries("a"))
	assert.Contains(t, s.Topics(), "a", "an emptied topic stays known")
	assert.Len(t, s.Entries("b"), 1)
}

func TestStore_Summary(t *testing.T) {
	s := NewStore()
	s.Add("room", write("r"))
	s.Add("room/temp", write("1"))
	s.Add("room/temp", write("2"))
	s.Add("room/humidity", write("3"))
	s.Add("roomba", write("4"))

	summary := s.Summary("room")
	assert.Equal(t, 3, summary.Topics)
	assert.Equal(t, 4, summary.Entries)
	require.NotNil(t, summary.Last)
	assert.Equal(t, "r", string(summary.Last.Payload.Bytes()))

	assert.Nil(t, s.Summary("nothing").Last)
}
