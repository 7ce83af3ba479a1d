// Package metrics holds the process-wide prometheus collectors for the
// collaboration hub and document store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kolabdok"

var (
	// ActiveDocuments tracks documents with at least one live subscriber.
	ActiveDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_documents",
		Help:      "Number of documents with a live collaboration session.",
	})

	// ConnectedClients tracks live websocket connections across all documents.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_clients",
		Help:      "Number of live subscriber connections.",
	})

	// ContentChanges counts accepted content mutations.
	ContentChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "content_changes_total",
		Help:      "Total content changes persisted and fanned out.",
	})

	// PersistFailures counts content mutations that failed to persist.
	// Broadcast is suppressed for those, so this is also the count of
	// suppressed fan-outs.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Content changes dropped because persistence failed.",
	})

	// ConcurrentOverwrites counts content changes that replaced another
	// user's write while more than one subscriber was present. With
	// last-writer-wins this is the closest observable signal for a
	// potentially lost update.
	ConcurrentOverwrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "concurrent_overwrites_total",
		Help:      "Writes that replaced another user's content in a live session.",
	})

	// DroppedClients counts subscribers disconnected because their send
	// buffer stayed full.
	DroppedClients = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_clients_total",
		Help:      "Subscribers disconnected due to a full send buffer.",
	})
)
