package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for WebSocket connections and the bus relay.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesRelayed   *prometheus.CounterVec
	RelayErrors       prometheus.Counter
	RejectedOrigins   prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		MessagesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_relayed_total",
			Help:      "Total number of bus messages relayed to WebSocket channels, by channel kind.",
		}, []string{"kind"}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "relay_errors_total",
			Help:      "Total number of bus messages that could not be relayed.",
		}),
		RejectedOrigins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejected_origins_total",
			Help:      "Total number of WebSocket upgrades refused for a disallowed Origin.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesRelayed, m.RelayErrors, m.RejectedOrigins)
	return m
}
