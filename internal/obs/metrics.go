package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	broadcastSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocpi_broadcast_sends_total",
			Help: "Per-partner broadcast send attempts by module and result.",
		},
		[]string{"module", "result"},
	)

	handshakeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocpi_handshake_total",
			Help: "Registration handshake operations by result.",
		},
		[]string{"op", "result"},
	)

	partnerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocpi_partner_request_seconds",
			Help:    "Outbound partner request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module"},
	)
)

// Init registers gateway metrics in the default registry.
func Init() {
	prometheus.MustRegister(broadcastSends, handshakeOps, partnerRequestDuration)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// BroadcastSend records one per-partner send attempt.
func BroadcastSend(module string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	broadcastSends.WithLabelValues(module, result).Inc()
}

// HandshakeOp records one handshake operation outcome.
func HandshakeOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	handshakeOps.WithLabelValues(op, result).Inc()
}

// ObservePartnerRequest records the latency of one outbound partner call.
func ObservePartnerRequest(module string, start time.Time) {
	partnerRequestDuration.WithLabelValues(module).Observe(time.Since(start).Seconds())
}
