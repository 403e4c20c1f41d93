package broker

import (
	"context"
	"testing"
	"time"

	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"**", "a", true},
		{"**", "a/b/c", true},
		{"a/*", "a/b", true},
		{"a/*", "a/b/c", false},
		{"a/*", "a", false},
		{"a/**", "a", true},
		{"a/**", "a/b/c", true},
		{"a/**/c", "a/c", true},
		{"a/**/c", "a/b/x/c", true},
		{"a/**/c", "a/b/x/d", false},
		{"a/b", "a/b", true},
		{"a/b", "a/bb", false},
		{"*/temp", "room/temp", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Match(tc.pattern, tc.topic), "%s vs %s", tc.pattern, tc.topic)
	}
}

func TestHasWildcardAndValidTopic(t *testing.T) {
	assert.True(t, HasWildcard("room/**"))
	assert.True(t, HasWildcard("*/temp"))
	assert.False(t, HasWildcard("room/temp*"))

	assert.True(t, ValidTopic("room/temp"))
	assert.False(t, ValidTopic("room//temp"))
	assert.False(t, ValidTopic("room/*"))
	assert.False(t, ValidTopic(""))
}

func TestMemorySession_PublishSubscribe(t *testing.T) {
	s := NewMemorySession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := s.Subscribe(ctx, "room/**")
	require.NoError(t, err)
	defer sub.Stop()

	go func() {
		_ = s.Publish(ctx, "garden/soil", []byte("dry"))
		_ = s.Publish(ctx, "room/temp", []byte("21.5"))
		_ = s.Delete(ctx, "room/temp")
	}()

	first, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Sample{Topic: "room/temp", Kind: models.KindWrite, Payload: []byte("21.5")}, first)

	second, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "room/temp", second.Topic)
	assert.Equal(t, models.KindDelete, second.Kind)
	assert.Empty(t, second.Payload)
}

func TestMemorySession_DeletePattern(t *testing.T) {
	s := NewMemorySession()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Publish(ctx, "room/temp", []byte("1")))
	require.NoError(t, s.Publish(ctx, "room/humidity", []byte("2")))
	require.NoError(t, s.Publish(ctx, "garden/soil", []byte("3")))

	sub, err := s.Subscribe(ctx, "**")
	require.NoError(t, err)
	defer sub.Stop()

	go func() { _ = s.Delete(ctx, "room/*") }()

	deleted := map[string]bool{}
	for i := 0; i < 2; i++ {
		sample, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.KindDelete, sample.Kind)
		deleted[sample.Topic] = true
	}
	assert.Equal(t, map[string]bool{"room/temp": true, "room/humidity": true}, deleted)
}

func TestMemorySession_Topics(t *testing.T) {
	s := NewMemorySession()
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Publish(ctx, "room/temp", []byte("1")))
	require.NoError(t, s.Publish(ctx, "room/lamp/state", []byte("on")))
	require.NoError(t, s.Publish(ctx, "garden/soil", []byte("3")))

	topics, err := s.Topics(ctx, "room/**")
	require.NoError(t, err)
	assert.Equal(t, []string{"room/lamp/state", "room/temp"}, topics)

	require.NoError(t, s.Delete(ctx, "room/temp"))
	topics, err = s.Topics(ctx, "**")
	require.NoError(t, err)
	assert.Equal(t, []string{"garden/soil", "room/lamp/state"}, topics)
}

func TestMemorySession_ClosedSubscription(t *testing.T) {
	s := NewMemorySession()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := s.Subscribe(ctx, "**")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
