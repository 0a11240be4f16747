package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a Surface server.
type Metrics struct {
	Publishes         *prometheus.CounterVec
	PublishesSkipped  *prometheus.CounterVec
	NodeExecutions    *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
	Reconnects        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surface_publish_total",
				Help: "Total number of component messages sent, by kind (init or data)",
			},
			[]string{"kind", "component_type"},
		),
		PublishesSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surface_publish_skipped_total",
				Help: "Total number of publishes dropped before sending",
			},
			[]string{"reason"},
		),
		NodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surface_node_executions_total",
				Help: "Total number of node executions, by outcome",
			},
			[]string{"component_type", "outcome"},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "surface_active_connections",
				Help: "Number of connected clients",
			},
		),
		Reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "surface_reconnects_total",
				Help: "Total number of connections restored from a snapshot",
			},
		),
	}
	reg.MustRegister(m.Publishes, m.PublishesSkipped, m.NodeExecutions, m.ActiveConnections, m.Reconnects)
	return m
}
