package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics counts calls made to the catalog backend and rate provider.
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Requests sent to upstream services by operation and status.",
	}, []string{"upstream", "operation", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Upstream request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"upstream", "operation"})
	reg.MustRegister(requests, latency)
	return &UpstreamMetrics{requests: requests, latency: latency}
}

// Observe records one upstream call. status 0 means the transport failed.
func (m *UpstreamMetrics) Observe(upstream, operation string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	code := "transport_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(normalizeLabel(upstream), normalizeLabel(operation), code).Inc()
	m.latency.WithLabelValues(normalizeLabel(upstream), normalizeLabel(operation)).Observe(duration.Seconds())
}
