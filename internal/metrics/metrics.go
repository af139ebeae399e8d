package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cartsync"

// Metrics holds the Prometheus collectors for cart sync and the local cart API.
type Metrics struct {
	operations      *prometheus.CounterVec
	cacheFallbacks  prometheus.Counter
	eventsPublished *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// New registers the collectors with registerer, or the default registerer when nil.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Cart operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		cacheFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fallbacks_total",
				Help:      "Cart reads served from the cached snapshot",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events published on the in-process bus",
			},
			[]string{"event"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Requests served by the local cart API",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency of local cart API requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
	}

	registerer.MustRegister(
		m.operations,
		m.cacheFallbacks,
		m.eventsPublished,
		m.httpRequests,
		m.httpLatency,
	)

	return m
}

func (m *Metrics) Operation(name, outcome string) {
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) CacheFallback() {
	m.cacheFallbacks.Inc()
}

func (m *Metrics) EventPublished(name string) {
	m.eventsPublished.WithLabelValues(name).Inc()
}

func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
