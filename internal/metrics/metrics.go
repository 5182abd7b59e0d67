package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelsTotal tracks the number of channels in the store
	ChannelsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_channels_total",
		Help: "Number of channels in the aggregated set",
	})

	// ChannelsOnline tracks the number of channels currently marked online
	ChannelsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_channels_online",
		Help: "Number of channels whose stream answered the last probe",
	})

	// ProbesTotal tracks probe results by outcome and failure kind
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_probes_total",
		Help: "Total number of stream probes",
	}, []string{"outcome", "kind"})

	// RefreshCycles tracks refresh cycles by result
	RefreshCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_refresh_cycles_total",
		Help: "Total number of refresh cycles",
	}, []string{"result"})

	// RefreshDuration observes how long a full refresh cycle takes
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_refresh_duration_seconds",
		Help:    "Duration of full refresh cycles",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// SubscriptionFetchErrors tracks failed playlist fetches per source
	SubscriptionFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_subscription_fetch_errors_total",
		Help: "Total number of failed subscription playlist fetches",
	}, []string{"source", "kind"})

	// CircuitBreakerState tracks the current state of per-source circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_circuit_breaker_state",
		Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"source"})
)

// RecordProbe increments the probe counter. kind is empty for successful
// probes.
func RecordProbe(available bool, kind string) {
	outcome := "online"
	if !available {
		outcome = "offline"
	}
	ProbesTotal.WithLabelValues(outcome, kind).Inc()
}

// RecordRefresh increments the refresh cycle counter with the given result
// ("ok", "partial" or "failed").
func RecordRefresh(result string) {
	RefreshCycles.WithLabelValues(result).Inc()
}

// RecordFetchError increments the fetch error counter for a source URL
func RecordFetchError(source, kind string) {
	SubscriptionFetchErrors.WithLabelValues(source, kind).Inc()
}

// SetChannelCounts updates the channel gauges after a merge or probe batch
func SetChannelCounts(total, online int) {
	ChannelsTotal.Set(float64(total))
	ChannelsOnline.Set(float64(online))
}

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(source, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(source).Set(value)
}
