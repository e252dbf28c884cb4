// Package metrics defines the Prometheus instruments exported by the Parlor
// server and the handler that serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlor_rooms_active",
			Help: "Rooms currently live in the store",
		},
	)

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlor_connections_active",
			Help: "WebSocket connections currently joined to a room",
		},
	)

	MessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parlor_messages_total",
			Help: "Chat messages appended to room histories",
		},
	)

	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parlor_broadcasts_dropped_total",
			Help: "Broadcast deliveries dropped because a recipient's buffer was full or the room was empty",
		},
	)

	SnapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parlor_snapshot_failures_total",
			Help: "History snapshot writes that failed",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
