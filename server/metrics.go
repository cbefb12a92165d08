package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the relay's Prometheus metrics.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	TopicsActive      prometheus.Gauge
	FramesTotal       *prometheus.CounterVec
	DeliveredTotal    prometheus.Counter
	DeliveryErrors    prometheus.Counter
}

// NewMetrics registers the relay metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nullchat_relay_connections_active",
			Help: "Currently connected websocket clients",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nullchat_relay_connections_total",
			Help: "Websocket clients accepted since start",
		}),
		TopicsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nullchat_relay_topics_active",
			Help: "Topics with at least one local subscriber",
		}),
		FramesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nullchat_relay_frames_total",
			Help: "Frames received from clients",
		}, []string{"op"}),
		DeliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nullchat_relay_delivered_total",
			Help: "Messages written to subscribers",
		}),
		DeliveryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "nullchat_relay_delivery_errors_total",
			Help: "Messages that could not be written to a subscriber",
		}),
	}
}
