// Package metrics exposes the Prometheus instrumentation surfaces for the
// engine, registered at init() time the way the teacher's
// pkg/metrics/prometheus constructors register against promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coderoom_rooms_active",
		Help: "Number of rooms with live in-memory state.",
	})

	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coderoom_connections_active",
		Help: "Number of open gateway WebSocket connections.",
	})

	ptysActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coderoom_ptys_active",
		Help: "Number of live per-user PTY sessions.",
	})

	syncSuppressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coderoom_sync_suppressions_total",
		Help: "Total writes dropped by the sync arbiter, by origin.",
	}, []string{"origin"})

	fsEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coderoom_fs_events_total",
		Help: "Total filesystem events classified by the FS watcher, by kind.",
	}, []string{"kind"})
)

// RoomMaterialized increments the active room gauge.
func RoomMaterialized() {
	roomsActive.Inc()
}

// RoomTornDown decrements the active room gauge.
func RoomTornDown() {
	roomsActive.Dec()
}

// ConnectionOpened increments the active connection gauge.
func ConnectionOpened() {
	connectionsActive.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func ConnectionClosed() {
	connectionsActive.Dec()
}

// PTYSpawned increments the active PTY gauge.
func PTYSpawned() {
	ptysActive.Inc()
}

// PTYExited decrements the active PTY gauge.
func PTYExited() {
	ptysActive.Dec()
}

// SyncSuppressed records a write dropped by the sync arbiter for origin.
func SyncSuppressed(origin string) {
	syncSuppressionsTotal.WithLabelValues(origin).Inc()
}

// FSEventObserved records a classified filesystem event of kind.
func FSEventObserved(kind string) {
	fsEventsTotal.WithLabelValues(kind).Inc()
}
