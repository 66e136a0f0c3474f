package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// ShippingMetrics records courier quote fan-out behaviour.
type ShippingMetrics struct {
	fanoutDuration *prometheus.HistogramVec
	courierQuotes  *prometheus.CounterVec
	staleResults   prometheus.Counter
}

// NewShippingMetrics registers the shipping metrics on the provided registerer.
func NewShippingMetrics(reg prometheus.Registerer) *ShippingMetrics {
	if reg == nil {
		return &ShippingMetrics{}
	}
	fanoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipping_quote_fanout_duration_seconds",
		Help:    "Duration of a full courier quote fan-out in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	courierQuotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_courier_quotes_total",
		Help: "Per-courier quote outcomes.",
	}, []string{"courier", "outcome"})
	staleResults := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipping_stale_results_total",
		Help: "Shipping calculations discarded because a newer calculation superseded them.",
	})
	reg.MustRegister(fanoutDuration, courierQuotes, staleResults)
	return &ShippingMetrics{
		fanoutDuration: fanoutDuration,
		courierQuotes:  courierQuotes,
		staleResults:   staleResults,
	}
}

// ObserveFanout records how long a fan-out took and how it ended.
func (m *ShippingMetrics) ObserveFanout(result string, duration time.Duration) {
	if m == nil || m.fanoutDuration == nil {
		return
	}
	m.fanoutDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncCourier increments the outcome counter for a courier.
func (m *ShippingMetrics) IncCourier(courier, outcome string) {
	if m == nil || m.courierQuotes == nil {
		return
	}
	m.courierQuotes.WithLabelValues(normalizeLabel(courier), normalizeLabel(outcome)).Inc()
}

// CourierCounter exposes the outcome counter for assertions.
func (m *ShippingMetrics) CourierCounter(courier, outcome string) prometheus.Counter {
	return m.courierQuotes.WithLabelValues(normalizeLabel(courier), normalizeLabel(outcome))
}

// IncStale counts a discarded, superseded calculation.
func (m *ShippingMetrics) IncStale() {
	if m == nil || m.staleResults == nil {
		return
	}
	m.staleResults.Inc()
}

// StaleCounter exposes the stale discard counter for assertions.
func (m *ShippingMetrics) StaleCounter() prometheus.Counter {
	return m.staleResults
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
