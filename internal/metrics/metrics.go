package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the server's Prometheus collectors. Constructed once per
// process with a dedicated registry so tests can instantiate isolated sets.
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	SessionsEvicted   prometheus.Counter
	MessagesPersisted prometheus.Counter
	EventsDelivered   prometheus.Counter
	EventsDropped     prometheus.Counter
}

// New builds a metric set backed by a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hallway_connections_active",
			Help: "Number of live WebSocket connections.",
		}),
		SessionsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hallway_sessions_evicted_total",
			Help: "Connections force-closed because the user opened a newer session.",
		}),
		MessagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hallway_messages_persisted_total",
			Help: "Chat messages written to the message store.",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "hallway_events_delivered_total",
			Help: "Outbound events handed to connection send buffers.",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hallway_events_dropped_total",
			Help: "Outbound events dropped because a connection was slow or closed.",
		}),
	}
}
