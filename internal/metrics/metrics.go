// Package metrics provides Prometheus collectors for the hub and the
// reconnecting peer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every collector name.
const Namespace = "wsrelay"

// Hub holds the hub-side collectors.
type Hub struct {
	PeersConnected      prometheus.Gauge
	MessagesReceived    prometheus.Counter
	MessagesMalformed   prometheus.Counter
	MessagesRateLimited prometheus.Counter
	BroadcastsTotal     prometheus.Counter
	BroadcastSkipped    prometheus.Counter
}

// NewHub registers hub collectors with reg. A nil reg gets a private registry.
func NewHub(reg prometheus.Registerer) *Hub {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Hub{
		PeersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "peers_connected",
			Help:      "Number of peers currently registered with the hub",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "messages_received_total",
			Help:      "Well-formed envelopes received from peers",
		}),
		MessagesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "messages_malformed_total",
			Help:      "Frames dropped because they did not decode as an envelope",
		}),
		MessagesRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "messages_rate_limited_total",
			Help:      "Frames dropped by the per-peer rate limiter",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "broadcasts_total",
			Help:      "Operator broadcasts issued",
		}),
		BroadcastSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "hub",
			Name:      "broadcast_skipped_total",
			Help:      "Broadcast deliveries skipped because the peer was gone or saturated",
		}),
	}
}

// Peer holds the reconnecting peer collectors.
type Peer struct {
	ConnectAttempts   prometheus.Counter
	ConnectFailures   prometheus.Counter
	Connected         prometheus.Gauge
	BackoffSeconds    prometheus.Gauge
	MessagesSent      prometheus.Counter
	MessagesReceived  prometheus.Counter
	MessagesMalformed prometheus.Counter
	EchoReplies       prometheus.Counter
}

// NewPeer registers peer collectors with reg. A nil reg gets a private registry.
func NewPeer(reg prometheus.Registerer) *Peer {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Peer{
		ConnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "connect_attempts_total",
			Help:      "Dial attempts made against the configured endpoint",
		}),
		ConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "connect_failures_total",
			Help:      "Dial attempts that failed",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "connected",
			Help:      "1 while the peer holds an open connection",
		}),
		BackoffSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "backoff_seconds",
			Help:      "Delay before the next reconnect attempt",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "messages_sent_total",
			Help:      "Envelopes written to the hub",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "messages_received_total",
			Help:      "Well-formed envelopes read from the hub",
		}),
		MessagesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "messages_malformed_total",
			Help:      "Frames dropped because they did not decode as an envelope",
		}),
		EchoReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "peer",
			Name:      "echo_replies_total",
			Help:      "Echo acknowledgements sent for foreign user messages",
		}),
	}
}
