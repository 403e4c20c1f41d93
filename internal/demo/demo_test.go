package demo

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSession struct {
	broker.Session

	mu      sync.Mutex
	writes  map[string][]byte
	deletes []string
}

func (s *recordingSession) Publish(ctx context.Context, topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writes == nil {
		s.writes = map[string][]byte{}
	}
	s.writes[topic] = payload
	return nil
}

func (s *recordingSession) Delete(ctx context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, topic)
	return nil
}

func TestPopulate(t *testing.T) {
	session := &recordingSession{}
	sim := NewSimulator(session, zerolog.Nop(), 1)

	require.NoError(t, sim.Populate(context.Background()))

	var event Event
	require.NoError(t, json.Unmarshal(session.writes["orders/process/2"], &event))
	assert.Equal(t, "orders/process", event.Source)

	value, err := strconv.ParseFloat(string(session.writes["room/kitchen/temperature"]), 64)
	require.NoError(t, err)
	assert.InDelta(t, 21, value, 1)

	var reading Reading
	require.NoError(t, cbor.Unmarshal(session.writes["binary/door"], &reading))
	assert.Equal(t, "door", reading.Sensor)
	assert.Equal(t, uint64(1), reading.Seq)

	assert.Equal(t, []string{"control/leader"}, session.deletes)
	for topic := range session.writes {
		assert.True(t, broker.ValidTopic(topic), topic)
	}
}

func TestStepStaysInRange(t *testing.T) {
	session := &recordingSession{}
	sim := NewSimulator(session, zerolog.Nop(), 7)

	for i := 0; i < 500; i++ {
		require.NoError(t, sim.Step(context.Background()))
	}
	for _, sn := range sim.sensors {
		assert.GreaterOrEqual(t, sn.value, sn.low, sn.topic)
		assert.LessOrEqual(t, sn.value, sn.high, sn.topic)
	}
}
