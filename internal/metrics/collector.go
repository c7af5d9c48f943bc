package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job and event outcomes.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Collector collects and exposes thumbnail metrics.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	jobsTotal   *prometheus.CounterVec
	eventsTotal *prometheus.CounterVec
	conversion  prometheus.Histogram
	gatherer    prometheus.Gatherer
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry creates a collector registered on reg.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	c := &Collector{
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdf_thumbnail_jobs_total",
				Help: "Total number of thumbnail jobs processed",
			},
			[]string{"status"},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdf_thumbnail_events_total",
				Help: "Total number of object-created records handled",
			},
			[]string{"status"},
		),
		conversion: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pdf_thumbnail_conversion_seconds",
				Help:    "Time spent in the rasterizer per job",
				Buckets: prometheus.DefBuckets,
			},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(c.jobsTotal, c.eventsTotal, c.conversion)

	return c
}

// IncJob counts a finished job with the given status.
func (c *Collector) IncJob(status string) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(status).Inc()
}

// IncEvent counts a handled record with the given status.
func (c *Collector) IncEvent(status string) {
	if c == nil {
		return
	}
	c.eventsTotal.WithLabelValues(status).Inc()
}

// ObserveConversion records the duration of one rasterizer run.
func (c *Collector) ObserveConversion(d time.Duration) {
	if c == nil {
		return
	}
	c.conversion.Observe(d.Seconds())
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
