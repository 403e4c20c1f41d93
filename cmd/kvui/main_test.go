package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// announcingSession reports each subscription once it is in place
type announcingSession struct {
	*broker.MemorySession
	subscribed chan string
}

func newAnnouncingSession() *announcingSession {
	return &announcingSession{
		MemorySession: broker.NewMemorySession(),
		subscribed:    make(chan string, 8),
	}
}

func (s *announcingSession) Subscribe(ctx context.Context, pattern string) (broker.Subscription, error) {
	sub, err := s.MemorySession.Subscribe(ctx, pattern)
	s.subscribed <- pattern
	return sub, err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := strings.TrimRight(b.buf.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func runLog(t *testing.T, asJSON bool) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := newAnnouncingSession()
	defer session.Close()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- logSamples(ctx, session, []string{"room/**"}, asJSON, &out, zerolog.Nop())
	}()
	<-session.subscribed

	require.NoError(t, session.Publish(ctx, "room/temp", []byte("21")))
	require.NoError(t, session.Delete(ctx, "room/temp"))
	require.Eventually(t, func() bool { return len(out.Lines()) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	return out.Lines()
}

func TestLogText(t *testing.T) {
	lines := runLog(t, false)

	assert.Contains(t, lines[0], " Kind:Write  room/temp ")
	assert.True(t, strings.HasSuffix(lines[0], "Payload(  2): 21"), lines[0])

	assert.True(t, strings.HasPrefix(lines[1], "UNKNOWN      Kind:Delete room/temp "), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "Payload(  0): "), lines[1])
}

func TestLogJSON(t *testing.T) {
	lines := runLog(t, true)

	var write map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &write))
	assert.Equal(t, "Write", write["kind"])
	assert.Equal(t, "room/temp", write["topic"])
	assert.Equal(t, float64(2), write["size"])
	assert.Equal(t, float64(21), write["payload"])
	assert.NotNil(t, write["time"])

	var del map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &del))
	assert.Equal(t, "Delete", del["kind"])
	assert.Nil(t, del["time"])
	assert.Equal(t, float64(0), del["size"])
}

func TestReadOneSkipsDeletes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		pretty  bool
		payload string
		want    string
	}{
		{"raw", false, `{"on":true}`, `{"on":true}`},
		{"pretty", true, `{"on":true}`, "{\n  \"on\": true\n}\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			session := newAnnouncingSession()
			defer session.Close()

			var out, errOut syncBuffer
			done := make(chan error, 1)
			go func() {
				done <- readOne(ctx, session, []string{"room/**", "hall/**"}, tc.pretty, false, &out, &errOut, zerolog.Nop())
			}()
			<-session.subscribed
			<-session.subscribed

			require.NoError(t, session.Delete(ctx, "room/lamp"))
			go func() { _ = session.Publish(ctx, "room/lamp", []byte(tc.payload)) }()

			require.NoError(t, <-done)
			assert.Equal(t, tc.want, out.buf.String())
			assert.Equal(t, "room/lamp\n", errOut.buf.String())
		})
	}
}

func TestCleanDryRun(t *testing.T) {
	ctx := context.Background()
	session := broker.NewMemorySession()
	defer session.Close()

	require.NoError(t, session.Publish(ctx, "room/temp", []byte("1")))
	require.NoError(t, session.Publish(ctx, "room/lamp", []byte("on")))

	var out bytes.Buffer
	require.NoError(t, clean(ctx, session, "room/temp", true, &out))
	assert.Equal(t, "Dry run: would put empty payload and delete room/temp\n", out.String())

	out.Reset()
	require.NoError(t, clean(ctx, session, "room/*", true, &out))
	assert.Equal(t, "Dry run: would delete key expression room/*\n  room/lamp\n  room/temp\n", out.String())

	topics, err := session.Topics(ctx, "**")
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestCleanTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := broker.NewMemorySession()
	defer session.Close()

	sub, err := session.Subscribe(ctx, "**")
	require.NoError(t, err)
	defer sub.Stop()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- clean(ctx, session, "room/temp", false, &out) }()

	first, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.KindWrite, first.Kind)
	assert.Empty(t, first.Payload)

	second, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.KindDelete, second.Kind)
	assert.Equal(t, "room/temp", second.Topic)

	require.NoError(t, <-done)
	assert.Equal(t, "Cleaned room/temp\n", out.String())
}

func TestCleanPattern(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := broker.NewMemorySession()
	defer session.Close()
	require.NoError(t, session.Publish(ctx, "room/temp", []byte("1")))
	require.NoError(t, session.Publish(ctx, "garden/soil", []byte("2")))

	var out bytes.Buffer
	require.NoError(t, clean(ctx, session, "room/**", false, &out))
	assert.Equal(t, "Deleted key expression room/**\n", out.String())

	topics, err := session.Topics(ctx, "**")
	require.NoError(t, err)
	assert.Equal(t, []string{"garden/soil"}, topics)
}

func TestCleanAndPublishRejectInvalidTopics(t *testing.T) {
	ctx := context.Background()
	session := broker.NewMemorySession()
	defer session.Close()

	assert.Error(t, clean(ctx, session, "room//temp", false, &bytes.Buffer{}))
	assert.Error(t, publish(ctx, session, "room/*", []byte("x")))
	assert.Error(t, publish(ctx, session, "", []byte("x")))
	assert.NoError(t, publish(ctx, session, "room/temp", []byte("x")))
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"c", "l", "r", "read", "p", "pub", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.NotEqual(t, rootCmd, cmd, name)
	}

	flag := rootCmd.PersistentFlags().Lookup("payload-size-limit")
	require.NotNil(t, flag)
	assert.Equal(t, "-1", flag.DefValue)
}
