// Package metrics exposes ingestion and cleaning counters in Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shubhamrasal/kvui/internal/models"
)

const namespace = "kvui"

// Metrics holds the collectors for one inspector run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	samples       *prometheus.CounterVec
	subscribeErrs *prometheus.CounterVec
	cleaned       *prometheus.CounterVec
	topics        prometheus.Gauge
	cachedBytes   prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples received from the network, by kind.",
		}, []string{"kind"}),
		subscribeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_errors_total",
			Help:      "Subscriptions that failed or ended, by pattern.",
		}, []string{"pattern"}),
		cleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaned_topics_total",
			Help:      "Topics deleted through the clean action, by result.",
		}, []string{"result"}),
		topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_topics",
			Help:      "Topics currently held in the history cache.",
		}),
		cachedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_payload_bytes",
			Help:      "Payload bytes currently held in the history cache.",
		}),
	}

	m.registry.MustRegister(
		m.samples,
		m.subscribeErrs,
		m.cleaned,
		m.topics,
		m.cachedBytes,
		versioncollector.NewCollector(namespace),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSample counts one received sample
func (m *Metrics) ObserveSample(kind models.EventKind) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(kind.String()).Inc()
}

// ObserveSubscriptionError counts a failed subscription
func (m *Metrics) ObserveSubscriptionError(pattern string) {
	if m == nil {
		return
	}
	m.subscribeErrs.WithLabelValues(pattern).Inc()
}

// ObserveClean counts the outcome of deleting one topic
func (m *Metrics) ObserveClean(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cleaned.WithLabelValues(result).Inc()
}

// SetCache records the current cache size
func (m *Metrics) SetCache(topics, payloadBytes int) {
	if m == nil {
		return
	}
	m.topics.Set(float64(topics))
	m.cachedBytes.Set(float64(payloadBytes))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "failed to serve metrics on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to stop metrics server")
		}
		return nil
	}
}
