// Package pipeline merges the subscriptions of a session into one stream and
// records every sample in a shared history store.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shubhamrasal/kvui/internal/broker"
	"github.com/shubhamrasal/kvui/internal/history"
	"github.com/shubhamrasal/kvui/internal/metrics"
	"github.com/shubhamrasal/kvui/internal/models"
)

// DeleteResult is the outcome of deleting one topic
type DeleteResult struct {
	Topic string
	Err   error
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger used for subscription failures
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.With().Str("component", "pipeline").Logger()
	}
}

// WithMetrics records ingestion and cleaning counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock replaces time.Now for receive timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline owns the history store and the connectivity flag
type Pipeline struct {
	session  broker.Session
	patterns []string
	limit    int
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu    sync.RWMutex
	store *history.Store

	connMu  sync.RWMutex
	connErr string
	hasErr  bool

	ready chan struct{}
	done  chan struct{}
}

// New creates a pipeline for patterns. Payloads above limit bytes are
// truncated; limit <= 0 keeps them whole.
func New(session broker.Session, patterns []string, limit int, opts ...Option) *Pipeline {
	p := &Pipeline{
		session:  session,
		patterns: patterns,
		limit:    limit,
		logger:   zerolog.Nop(),
		now:      time.Now,
		store:    history.NewStore(),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to every pattern and starts the writer. It returns at once.
func (p *Pipeline) Start(ctx context.Context) {
	var subscribed sync.WaitGroup
	subscribed.Add(len(p.patterns))
	go func() {
		subscribed.Wait()
		close(p.ready)
	}()

	session := trackedSession{Session: p.session, subscribed: &subscribed}
	samples := FanIn(ctx, session, p.patterns, p.subscriptionFailed)
	go p.write(samples)
}

// Ready is closed once every subscribe attempt returned, successful or not
func (p *Pipeline) Ready() <-chan struct{} {
	return p.ready
}

// Done is closed once every subscription ended and the writer drained
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// trackedSession counts finished subscribe calls
type trackedSession struct {
	broker.Session
	subscribed *sync.WaitGroup
}

func (s trackedSession) Subscribe(ctx context.Context, pattern string) (broker.Subscription, error) {
	defer s.subscribed.Done()
	return s.Session.Subscribe(ctx, pattern)
}

// FanIn subscribes to each pattern on its own goroutine and forwards every
// sample to the returned channel. Subscribers block rather than drop. A
// failing subscription reports through onErr and ends; the others carry on.
// The channel is closed once all subscriptions ended.
func FanIn(ctx context.Context, session broker.Session, patterns []string, onErr func(pattern string, err error)) <-chan broker.Sample {
	out := make(chan broker.Sample)

	var wg sync.WaitGroup
	for _, pattern := range patterns {
		wg.Add(1)
		go func(pattern string) {
			defer wg.Done()
			if err := forward(ctx, session, pattern, out); err != nil && onErr != nil {
				onErr(pattern, err)
			}
		}(pattern)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// forward returns nil only when ctx ended
func forward(ctx context.Context, session broker.Session, pattern string, out chan<- broker.Sample) error {
	sub, err := session.Subscribe(ctx, pattern)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrapf(err, "subscribe %s", pattern)
	}
	defer sub.Stop()

	for {
		sample, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "receive %s", pattern)
		}
		select {
		case out <- sample:
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Pipeline) subscriptionFailed(pattern string, err error) {
	p.connMu.Lock()
	p.connErr = err.Error()
	p.hasErr = true
	p.connMu.Unlock()

	p.logger.Warn().Err(err).Str("pattern", pattern).Msg("subscription ended")
	p.metrics.ObserveSubscriptionError(pattern)
}

func (p *Pipeline) write(samples <-chan broker.Sample) {
	defer close(p.done)

	for sample := range samples {
		// any sample counts as proof of connectivity
		p.connMu.Lock()
		p.connErr = ""
		p.hasErr = false
		p.connMu.Unlock()

		entry := models.NewHistoryEntry(sample.Kind, p.now(), sample.Payload, p.limit)

		p.mu.Lock()
		p.store.Add(sample.Topic, entry)
		topics, bytes := p.store.Len(), p.store.PayloadBytes()
		p.mu.Unlock()

		p.metrics.ObserveSample(sample.Kind)
		p.metrics.SetCache(topics, bytes)
	}
	p.logger.Debug().Msg("all subscriptions ended")
}

// ConnectivityStatus returns the last subscription error, if one is pending
func (p *Pipeline) ConnectivityStatus() (string, bool) {
	p.connMu.RLock()
	defer p.connMu.RUnlock()
	return p.connErr, p.hasErr
}

// View runs fn with the store under the read lock. fn must not retain the
// store or slices taken from it.
func (p *Pipeline) View(fn func(*history.Store)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn(p.store)
}

// RemoveCachedEntry drops one entry from the local history. Nothing is sent.
func (p *Pipeline) RemoveCachedEntry(topic string, index int) (models.HistoryEntry, bool) {
	p.mu.Lock()
	entry, ok := p.store.UncacheTopicEntry(topic, index)
	topics, bytes := p.store.Len(), p.store.PayloadBytes()
	p.mu.Unlock()

	if ok {
		p.metrics.SetCache(topics, bytes)
	}
	return entry, ok
}

// DeleteSubtree deletes topic and every known topic below it on the network.
// Each topic gets an empty write followed by a delete. A failure on one topic
// is recorded and the rest are still attempted.
func (p *Pipeline) DeleteSubtree(ctx context.Context, topic string) []DeleteResult {
	var topics []string
	p.View(func(s *history.Store) {
		topics = s.TopicsBelow(topic)
	})

	results := make([]DeleteResult, 0, len(topics))
	for _, t := range topics {
		err := p.deleteTopic(ctx, t)
		if err != nil {
			p.logger.Warn().Err(err).Str("topic", t).Msg("failed to delete topic")
		}
		p.metrics.ObserveClean(err)
		results = append(results, DeleteResult{Topic: t, Err: err})
	}
	return results
}

func (p *Pipeline) deleteTopic(ctx context.Context, topic string) error {
	if err := p.session.Publish(ctx, topic, []byte{}); err != nil {
		return errors.Wrap(err, "empty write")
	}
	if err := p.session.Delete(ctx, topic); err != nil {
		return errors.Wrap(err, "delete")
	}
	return nil
}

// Failed filters results down to the failures
func Failed(results []DeleteResult) []DeleteResult {
	var failed []DeleteResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
