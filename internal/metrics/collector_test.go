package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func TestCounters(t *testing.T) {
	c := newTestCollector(t)

	c.IncJob(StatusSuccess)
	c.IncJob(StatusSuccess)
	c.IncJob(StatusFailed)
	c.IncEvent(StatusSkipped)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsTotal.WithLabelValues(StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues(StatusSkipped)))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.IncJob(StatusSuccess)
		c.IncEvent(StatusFailed)
		c.ObserveConversion(time.Second)
	})
	assert.NotNil(t, c.Handler())
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveConversion(150 * time.Millisecond)
	c.IncJob(StatusSuccess)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pdf_thumbnail_conversion_seconds_count 1")
	assert.Contains(t, body, `pdf_thumbnail_jobs_total{status="success"} 1`)
}
