// Package demo writes sample topics to a session so the dashboard has
// something to show.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
)

// Event is the JSON document written to the event topics
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Data      string    `json:"data"`
	Priority  int       `json:"priority"`
}

// Reading is the CBOR document written to the binary topics
type Reading struct {
	Sensor string  `cbor:"sensor"`
	Value  float64 `cbor:"value"`
	Unit   string  `cbor:"unit"`
	Seq    uint64  `cbor:"seq"`
}

// sensor is a numeric topic that drifts over time
type sensor struct {
	topic string
	value float64
	step  float64
	low   float64
	high  float64
}

var eventSources = []string{
	"events/user",
	"orders/process",
	"payments/tx",
	"notifications/send",
	"audit/logs",
}

var messageTypes = []string{"info", "warning", "error", "debug", "trace"}

// Simulator publishes sample data to a session
type Simulator struct {
	session broker.Session
	logger  zerolog.Logger
	rnd     *rand.Rand
	sensors []*sensor
	seq     uint64
}

// NewSimulator creates a simulator seeded with seed
func NewSimulator(session broker.Session, logger zerolog.Logger, seed int64) *Simulator {
	return &Simulator{
		session: session,
		logger:  logger.With().Str("component", "demo").Logger(),
		rnd:     rand.New(rand.NewSource(seed)),
		sensors: []*sensor{
			{topic: "room/kitchen/temperature", value: 21, step: 0.4, low: 15, high: 30},
			{topic: "room/kitchen/humidity", value: 45, step: 2, low: 20, high: 80},
			{topic: "room/office/temperature", value: 23, step: 0.3, low: 15, high: 30},
			{topic: "room/office/co2", value: 600, step: 40, low: 400, high: 2000},
			{topic: "garden/soil/moisture", value: 0.31, step: 0.02, low: 0, high: 1},
		},
	}
}

// Populate writes one round of every kind of sample: JSON documents,
// plain numbers, CBOR readings and a deleted topic
func (s *Simulator) Populate(ctx context.Context) error {
	for _, source := range eventSources {
		for i := 0; i < 3; i++ {
			if err := s.publishEvent(ctx, fmt.Sprintf("%s/%d", source, i+1), source); err != nil {
				return err
			}
		}
	}
	if err := s.Step(ctx); err != nil {
		return err
	}
	if err := s.session.Publish(ctx, "control/leader", []byte("node-1")); err != nil {
		return errors.Wrap(err, "publish control/leader")
	}
	if err := s.session.Delete(ctx, "control/leader"); err != nil {
		return errors.Wrap(err, "delete control/leader")
	}
	s.logger.Info().Msg("demo data populated")
	return nil
}

// Run keeps updating the sensors every interval until ctx is done
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Step moves every sensor one step and publishes the new values
func (s *Simulator) Step(ctx context.Context) error {
	for _, sn := range s.sensors {
		sn.value += (s.rnd.Float64() - 0.5) * 2 * sn.step
		sn.value = min(max(sn.value, sn.low), sn.high)

		value := []byte(fmt.Sprintf("%.2f", sn.value))
		if err := s.session.Publish(ctx, sn.topic, value); err != nil {
			return errors.Wrapf(err, "publish %s", sn.topic)
		}
	}

	s.seq++
	reading := Reading{Sensor: "door", Value: float64(s.rnd.Intn(2)), Unit: "state", Seq: s.seq}
	data, err := cbor.Marshal(reading)
	if err != nil {
		return errors.Wrap(err, "encode reading")
	}
	if err := s.session.Publish(ctx, "binary/door", data); err != nil {
		return errors.Wrap(err, "publish binary/door")
	}
	return nil
}

func (s *Simulator) publishEvent(ctx context.Context, topic, source string) error {
	event := Event{
		ID:        fmt.Sprintf("%s-%d", source, s.rnd.Intn(10000)),
		Timestamp: time.Now().Add(-time.Duration(s.rnd.Intn(3600)) * time.Second),
		Type:      messageTypes[s.rnd.Intn(len(messageTypes))],
		Source:    source,
		Data:      s.randomData(),
		Priority:  s.rnd.Intn(10),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := s.session.Publish(ctx, topic, data); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}
	return nil
}

func (s *Simulator) randomData() string {
	switch s.rnd.Intn(6) {
	case 0:
		return fmt.Sprintf("Database query executed in %dms", s.rnd.Intn(500))
	case 1:
		return fmt.Sprintf("Cache hit for key: key_%d", s.rnd.Intn(1000))
	case 2:
		return fmt.Sprintf("External service called: response time %dms", s.rnd.Intn(2000))
	case 3:
		fields := []string{"email", "username", "password", "firstName", "lastName"}
		return fmt.Sprintf("Validation error: field %s is required", fields[s.rnd.Intn(len(fields))])
	case 4:
		return "Message queued for processing"
	default:
		return "User action completed successfully"
	}
}
