package metrics

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"histoflow/internal/events"
	"histoflow/internal/ledger"
)

// Collector owns the daemon's Prometheus registry and the workflow
// instruments. All workflow metrics are projected from the event stream;
// the collector never reaches into the orchestrator.
type Collector struct {
	registry *prometheus.Registry

	eventsTotal *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
	slidesTotal *prometheus.CounterVec
	deviceSteps *prometheus.CounterVec
	washLoops   prometheus.Histogram
	runSeconds  prometheus.Histogram

	mu       sync.Mutex
	runStart time.Time
}

// NewCollector builds a collector with its own registry, including Go and
// process runtime collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "histoflow_events_total",
			Help: "Total events recorded, by event name.",
		}, []string{"event"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "histoflow_runs_total",
			Help: "Runs observed on the event stream, by lifecycle point.",
		}, []string{"point"}),
		slidesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "histoflow_slides_total",
			Help: "Slide dispositions on final passes.",
		}, []string{"disposition"}),
		deviceSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "histoflow_device_steps_total",
			Help: "Device steps executed, by device.",
		}, []string{"device"}),
		washLoops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "histoflow_wash_loops",
			Help:    "Wash loops used per slide before a terminal quality verdict.",
			Buckets: prometheus.LinearBuckets(0, 1, 6),
		}),
		runSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "histoflow_run_duration_seconds",
			Help:    "Duration of completed runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.eventsTotal,
		c.runsTotal,
		c.slidesTotal,
		c.deviceSteps,
		c.washLoops,
		c.runSeconds,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Sink returns an events.Sink that feeds this collector.
func (c *Collector) Sink() events.Sink {
	return &sink{collector: c}
}

type sink struct {
	collector *Collector
}

func (s *sink) Record(_ context.Context, name string, payload events.Payload) error {
	s.collector.observe(name, payload)
	return nil
}

func (c *Collector) observe(name string, payload events.Payload) {
	c.eventsTotal.WithLabelValues(name).Inc()

	if !strings.HasPrefix(name, "histoflow.") {
		if device, _, found := strings.Cut(name, "."); found {
			c.deviceSteps.WithLabelValues(device).Inc()
		}
	}

	switch name {
	case events.WorkflowStart:
		c.runsTotal.WithLabelValues("started").Inc()
		c.mu.Lock()
		c.runStart = time.Now()
		c.mu.Unlock()

	case events.WorkflowComplete:
		c.runsTotal.WithLabelValues("completed").Inc()
		c.mu.Lock()
		start := c.runStart
		c.runStart = time.Time{}
		c.mu.Unlock()
		if !start.IsZero() {
			c.runSeconds.Observe(time.Since(start).Seconds())
		}

	case events.SlideComplete:
		c.slidesTotal.WithLabelValues("accepted").Inc()
		c.washLoops.Observe(loopsValue(payload))

	case events.SlideFailed:
		reason, _ := payload["reason"].(string)
		if reason == ledger.ReasonMaxWashLoopsExceeded {
			c.slidesTotal.WithLabelValues("rejected").Inc()
			c.washLoops.Observe(loopsValue(payload))
		} else {
			c.slidesTotal.WithLabelValues("failed").Inc()
		}

	case events.SlideAborted:
		c.slidesTotal.WithLabelValues("aborted").Inc()
	}
}

func loopsValue(payload events.Payload) float64 {
	switch v := payload["loops"].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}
