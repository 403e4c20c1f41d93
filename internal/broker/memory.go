package broker

import (
	"context"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/models"
)

const (
	memoryTopic    = "kvui.samples"
	metadataTopic  = "topic"
	metadataKind   = "kind"
	kindNameDelete = "delete"
	kindNameWrite  = "write"
)

// MemorySession is an in-process bus. Every sample goes through one watermill
// topic and subscriptions filter by pattern themselves.
type MemorySession struct {
	pubsub *gochannel.GoChannel

	mu    sync.Mutex
	known map[string]struct{}
}

// NewMemorySession creates an empty in-process bus
func NewMemorySession() *MemorySession {
	return &MemorySession{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			// keeps publish order per subscriber
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NopLogger{}),
		known: make(map[string]struct{}),
	}
}

// Subscribe starts receiving samples for pattern
func (s *MemorySession) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	messages, err := s.pubsub.Subscribe(ctx, memoryTopic)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "subscribe %s", pattern)
	}
	return &memorySubscription{pattern: pattern, messages: messages, cancel: cancel}, nil
}

// Publish writes payload to topic
func (s *MemorySession) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidTopic(topic) {
		return errors.Errorf("invalid topic %q", topic)
	}
	s.mu.Lock()
	s.known[topic] = struct{}{}
	s.mu.Unlock()
	return s.send(topic, kindNameWrite, payload)
}

// Topics lists the live topics matching pattern
func (s *MemorySession) Topics(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var topics []string
	for topic := range s.known {
		if Match(pattern, topic) {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// Delete removes topic, or every known topic matching a wildcard pattern
func (s *MemorySession) Delete(ctx context.Context, topicOrPattern string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var topics []string
	s.mu.Lock()
	if HasWildcard(topicOrPattern) {
		for topic := range s.known {
			if Match(topicOrPattern, topic) {
				topics = append(topics, topic)
			}
		}
	} else {
		topics = []string{topicOrPattern}
	}
	for _, topic := range topics {
		delete(s.known, topic)
	}
	s.mu.Unlock()

	for _, topic := range topics {
		if err := s.send(topic, kindNameDelete, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemorySession) send(topic, kind string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataTopic, topic)
	msg.Metadata.Set(metadataKind, kind)
	if err := s.pubsub.Publish(memoryTopic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}
	return nil
}

// Describe names the session
func (s *MemorySession) Describe() string {
	return "memory"
}

// Close shuts the bus down, ending every subscription
func (s *MemorySession) Close() error {
	return s.pubsub.Close()
}

type memorySubscription struct {
	pattern  string
	messages <-chan *message.Message
	cancel   context.CancelFunc
}

func (s *memorySubscription) Next(ctx context.Context) (Sample, error) {
	for {
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case msg, ok := <-s.messages:
			if !ok {
				return Sample{}, ErrClosed
			}
			msg.Ack()

			topic := msg.Metadata.Get(metadataTopic)
			if !Match(s.pattern, topic) {
				continue
			}
			sample := Sample{Topic: topic, Kind: models.KindWrite, Payload: msg.Payload}
			if msg.Metadata.Get(metadataKind) == kindNameDelete {
				sample.Kind = models.KindDelete
			}
			return sample, nil
		}
	}
}

func (s *memorySubscription) Stop() error {
	s.cancel()
	return nil
}
