package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	providerCalls   *prometheus.CounterVec
	fallbackDepth   prometheus.Histogram
	generationCalls *prometheus.CounterVec
	generationTime  *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
	sweptSessions   prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_poi_provider_calls_total",
			Help: "POI provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		fallbackDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfarer_poi_fallback_depth",
			Help:    "Index of the provider strategy that answered a search",
			Buckets: []float64{0, 1, 2, 3},
		}),
		generationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_generation_calls_total",
			Help: "Text generation calls by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		generationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "wayfarer_generation_duration_seconds",
			Help: "Latency of text generation calls",
		}, []string{"purpose"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfarer_sessions_active",
			Help: "Sessions currently held in memory",
		}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_sessions_swept_total",
			Help: "Idle sessions reclaimed by the TTL sweep",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.providerCalls, m.fallbackDepth, m.generationCalls, m.generationTime,
		m.activeSessions, m.sweptSessions, m.httpRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ProviderCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) FallbackDepth(depth int) {
	if m == nil {
		return
	}
	m.fallbackDepth.Observe(float64(depth))
}

func (m *Metrics) GenerationCall(purpose, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.generationCalls.WithLabelValues(purpose, outcome).Inc()
	m.generationTime.WithLabelValues(purpose).Observe(took.Seconds())
}

func (m *Metrics) SessionsActive(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) SessionsSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.sweptSessions.Add(float64(n))
}

func (m *Metrics) HTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}
