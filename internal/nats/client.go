package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/config"
	"github.com/shubhamrasal/kvui/internal/models"
)

// Client wraps the NATS connection and the Key-Value bucket being inspected
type Client struct {
	conn   *nats.Conn
	kv     nats.KeyValue
	logger zerolog.Logger
}

var _ broker.Session = (*Client)(nil)

// NewClient connects to NATS and opens the context's bucket, creating it when missing
func NewClient(ctx *config.Context, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("component", "nats").Str("server", ctx.Server).Logger()

	// Build connection options
	opts := []nats.Option{
		nats.Name("kvui"),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
	}

	// Add token authentication if provided
	if ctx.Token != "" {
		opts = append(opts, nats.Token(ctx.Token))
	}

	// Add credentials file if provided
	if ctx.Creds != "" {
		opts = append(opts, nats.UserCredentials(ctx.Creds))
	}

	nc, err := nats.Connect(ctx.Server, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to NATS")
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "failed to create JetStream context")
	}

	kv, err := openBucket(js, ctx.Bucket, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Client{
		conn:   nc,
		kv:     kv,
		logger: logger,
	}, nil
}

func openBucket(js nats.JetStreamContext, bucket string, logger zerolog.Logger) (nats.KeyValue, error) {
	kv, err := js.KeyValue(bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, errors.Wrapf(err, "failed to open bucket %s", bucket)
	}

	logger.Info().Str("bucket", bucket).Msg("creating bucket")
	kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create bucket %s", bucket)
	}
	return kv, nil
}

// Close closes the NATS connection
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// IsConnected returns true if the client is connected to NATS
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// ServerInfo returns the URL of the server in use
func (c *Client) ServerInfo() (string, error) {
	if c.conn == nil {
		return "", errors.New("not connected")
	}

	if url := c.conn.ConnectedUrl(); url != "" {
		return url, nil
	}

	servers := c.conn.Servers()
	if len(servers) > 0 {
		return servers[0], nil
	}

	return "unknown", nil
}

// Describe returns the server and bucket in use
func (c *Client) Describe() string {
	server, err := c.ServerInfo()
	if err != nil {
		server = "disconnected"
	}
	return fmt.Sprintf("%s bucket=%s", server, c.kv.Bucket())
}

// Subscribe watches every key matching pattern. The current value of each
// key is delivered first, then live updates.
func (c *Client) Subscribe(ctx context.Context, pattern string) (broker.Subscription, error) {
	keys, err := PatternToKeys(pattern)
	if err != nil {
		return nil, err
	}
	w, err := c.kv.WatchFiltered(keys)
	if err != nil {
		return nil, errors.Wrapf(err, "watch %s", pattern)
	}
	c.logger.Debug().Str("pattern", pattern).Strs("keys", keys).Msg("watching")
	return &watchSubscription{watcher: w}, nil
}

// Publish puts payload under topic
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := TopicToKey(topic)
	if err != nil {
		return err
	}
	if _, err := c.kv.Put(key, payload); err != nil {
		return errors.Wrapf(err, "put %s", topic)
	}
	return nil
}

// Delete places a delete marker on topic, or on every key matching a wildcard pattern
func (c *Client) Delete(ctx context.Context, topicOrPattern string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !broker.HasWildcard(topicOrPattern) {
		key, err := TopicToKey(topicOrPattern)
		if err != nil {
			return err
		}
		return errors.Wrapf(c.kv.Delete(key), "delete %s", topicOrPattern)
	}

	keys, err := c.keys(ctx, topicOrPattern)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.kv.Delete(key); err != nil {
			return errors.Wrapf(err, "delete %s", KeyToTopic(key))
		}
	}
	return nil
}

// Topics lists the live topics matching pattern
func (c *Client) Topics(ctx context.Context, pattern string) ([]string, error) {
	keys, err := c.keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(keys))
	for _, key := range keys {
		topics = append(topics, KeyToTopic(key))
	}
	return topics, nil
}

// keys lists the live keys matching pattern
func (c *Client) keys(ctx context.Context, pattern string) ([]string, error) {
	filters, err := PatternToKeys(pattern)
	if err != nil {
		return nil, err
	}
	w, err := c.kv.WatchFiltered(filters, nats.MetaOnly(), nats.IgnoreDeletes())
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", pattern)
	}
	defer func() { _ = w.Stop() }()

	var keys []string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case entry, ok := <-w.Updates():
			if !ok {
				return nil, errors.Wrapf(broker.ErrClosed, "list %s", pattern)
			}
			// nil marks the end of the initial values
			if entry == nil {
				return keys, nil
			}
			keys = append(keys, entry.Key())
		}
	}
}

type watchSubscription struct {
	watcher nats.KeyWatcher
}

func (s *watchSubscription) Next(ctx context.Context) (broker.Sample, error) {
	for {
		select {
		case <-ctx.Done():
			return broker.Sample{}, ctx.Err()
		case entry, ok := <-s.watcher.Updates():
			if !ok {
				return broker.Sample{}, broker.ErrClosed
			}
			if entry == nil {
				continue
			}
			return sampleFromEntry(entry), nil
		}
	}
}

func (s *watchSubscription) Stop() error {
	return s.watcher.Stop()
}

func sampleFromEntry(entry nats.KeyValueEntry) broker.Sample {
	sample := broker.Sample{
		Topic:   KeyToTopic(entry.Key()),
		Kind:    models.KindWrite,
		Payload: entry.Value(),
	}
	switch entry.Operation() {
	case nats.KeyValueDelete, nats.KeyValuePurge:
		sample.Kind = models.KindDelete
		sample.Payload = nil
	}
	return sample
}
