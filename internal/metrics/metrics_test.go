package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shubhamrasal/kvui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSample(models.KindWrite)
		m.ObserveSubscriptionError("**")
		m.ObserveClean(nil)
		m.SetCache(1, 2)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveSample(models.KindWrite)
	m.ObserveSample(models.KindWrite)
	m.ObserveSample(models.KindDelete)
	m.ObserveSubscriptionError("room/**")
	m.ObserveClean(nil)
	m.ObserveClean(errors.New("boom"))
	m.SetCache(3, 120)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples.WithLabelValues("Write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues("Delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribeErrs.WithLabelValues("room/**")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleaned.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleaned.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.topics))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.cachedBytes))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSample(models.KindWrite)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `kvui_samples_total{kind="Write"} 1`), body)
	assert.Contains(t, body, "kvui_build_info")
}
