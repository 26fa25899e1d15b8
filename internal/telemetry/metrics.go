// Package telemetry provides Prometheus metrics for the radio link engine.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "rf24link"

// Metrics holds all Prometheus metrics for one node.
type Metrics struct {
	// Traffic
	PacketsSent      *prometheus.CounterVec
	PacketsReceived  *prometheus.CounterVec
	PacketsDiscarded *prometheus.CounterVec

	// Reliable delivery
	Retries     prometheus.Counter
	RetryDrops  prometheus.Counter
	AcksMatched prometheus.Counter
	QueueDepth  *prometheus.GaugeVec

	// Liveness
	PeerReachable *prometheus.GaugeVec
	Reconnects    prometheus.Counter
}

// NewMetrics registers a fresh set of metrics on reg. Passing a private
// registry per node keeps several nodes in one process apart.
func NewMetrics(reg prometheus.Registerer, role string) *Metrics {
	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"role": role}, reg))
	return &Metrics{
		PacketsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_sent_total",
			Help:      "Packets handed to the transceiver, by type and result.",
		}, []string{"type", "result"}),
		PacketsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_received_total",
			Help:      "Valid packets dispatched, by type.",
		}, []string{"type"}),
		PacketsDiscarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_discarded_total",
			Help:      "Inbound packets dropped before or during dispatch, by reason.",
		}, []string{"reason"}),

		Retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_total",
			Help:      "Resends performed by retry passes.",
		}),
		RetryDrops: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retry_drops_total",
			Help:      "Queued messages dropped after exhausting their retry budget.",
		}),
		AcksMatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "acks_matched_total",
			Help:      "Acknowledgements that removed a queued message.",
		}),
		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "retry_queue_depth",
			Help:      "Unacknowledged messages per peer slot.",
		}, []string{"slot"}),

		PeerReachable: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "peer_reachable",
			Help:      "1 if the peer was heard from within the timeout at the last check.",
		}, []string{"slot"}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_total",
			Help:      "Transceiver power cycles triggered by the liveness monitor.",
		}),
	}
}

// Handler exposes /metrics for reg. Mount it with mux.Handle("/metrics", telemetry.Handler(reg)).
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Slot renders a peer slot as a label value.
func Slot(slot uint8) string { return strconv.Itoa(int(slot)) }
