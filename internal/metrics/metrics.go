package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ClientMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Refreshes *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewClientMetrics() *ClientMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vending",
		Subsystem: "client",
		Name:      "backend_requests_total",
		Help:      "Total number of backend requests.",
	}, []string{"endpoint", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vending",
		Subsystem: "client",
		Name:      "backend_request_duration_ms",
		Help:      "Backend request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"endpoint"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vending",
		Subsystem: "client",
		Name:      "refresh_results_total",
		Help:      "Background refresh outcomes by field.",
	}, []string{"field", "outcome"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(requests, latency, refreshes)
	return &ClientMetrics{
		Requests:  requests,
		LatencyMS: latency,
		Refreshes: refreshes,
		registry:  registry,
	}
}

// ObserveRequest is safe on a nil receiver.
func (m *ClientMetrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(endpoint, label).Inc()
	m.LatencyMS.WithLabelValues(endpoint).Observe(float64(elapsed.Milliseconds()))
}

func (m *ClientMetrics) ObserveRefresh(field, outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(field, outcome).Inc()
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ClientMetrics) Registry() *prometheus.Registry {
	return m.registry
}
