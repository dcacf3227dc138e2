// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsCaptured counts foreground-change events persisted by the monitor.
	EventsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracelight",
		Subsystem: "monitor",
		Name:      "events_captured_total",
		Help:      "Foreground-change events persisted to the local store.",
	})

	// SyncAttempts counts individual upload attempts, including retries.
	SyncAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracelight",
		Subsystem: "sync",
		Name:      "attempts_total",
		Help:      "Upload attempts against the collection endpoint.",
	})

	// SyncFailures counts sync operations that failed after retries.
	SyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracelight",
		Subsystem: "sync",
		Name:      "failures_total",
		Help:      "Sync operations that ultimately failed.",
	})

	// EventsSynced counts events acknowledged by the collection endpoint.
	EventsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracelight",
		Subsystem: "sync",
		Name:      "events_synced_total",
		Help:      "Events marked as synced after a successful upload.",
	})
)

// Handler serves the default registry, for the optional debug listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
