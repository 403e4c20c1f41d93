// Package broker defines what the inspector needs from a pub/sub session.
package broker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shubhamrasal/kvui/internal/models"
)

// ErrClosed is returned by subscriptions whose stream has ended
var ErrClosed = errors.New("subscription closed")

// Sample is one event received from the network
type Sample struct {
	Topic   string
	Kind    models.EventKind
	Payload []byte
}

// Subscription is a live stream of samples for one pattern
type Subscription interface {
	// Next blocks until the next sample arrives or the stream fails
	Next(ctx context.Context) (Sample, error)
	Stop() error
}

// Session is a connection to the pub/sub network
type Session interface {
	Subscribe(ctx context.Context, pattern string) (Subscription, error)
	Publish(ctx context.Context, topic string, payload []byte) error
	// Delete removes a topic, or every topic matching a wildcard pattern
	Delete(ctx context.Context, topicOrPattern string) error
	// Describe returns a short human readable description of the connection
	Describe() string
	Close() error
}

// Lister is implemented by sessions that can enumerate live topics
type Lister interface {
	Topics(ctx context.Context, pattern string) ([]string, error)
}
