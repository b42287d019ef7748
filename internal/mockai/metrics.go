package mockai

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surgesim/internal/chaos"
)

// Metrics holds the server's Prometheus instruments on a private registry
// so tests can build servers without duplicate-registration panics.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	chaosFlag *prometheus.GaugeVec
	leaked    prometheus.Gauge
	registry  *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surgesim_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surgesim_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		chaosFlag: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "surgesim_chaos_active",
				Help: "Whether a chaos mode is currently active (1/0)",
			},
			[]string{"mode"},
		),
		leaked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "surgesim_leaked_bytes",
				Help: "Bytes held by the simulated memory leak",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.requests, m.latency, m.chaosFlag, m.leaked)
	return m
}

func (m *Metrics) Observe(method, path string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) SetChaos(snap chaos.State) {
	m.chaosFlag.WithLabelValues("memory_leak").Set(boolGauge(snap.MemoryLeakActive))
	m.chaosFlag.WithLabelValues("cpu_stress").Set(boolGauge(snap.CPUStressActive))
	m.chaosFlag.WithLabelValues("latency_spike").Set(boolGauge(snap.LatencyMin >= 3.0))
	m.leaked.Set(float64(snap.LeakedBytes))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
