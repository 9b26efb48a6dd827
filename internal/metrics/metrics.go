package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPublished counts messages accepted into threads
	MessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitlink_messages_published_total",
		Help: "Number of chat messages published.",
	})

	// SnapshotsDelivered counts snapshot deliveries to subscribers
	SnapshotsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitlink_snapshots_delivered_total",
		Help: "Number of thread snapshots delivered to subscribers.",
	})

	// UploadsIssued counts issued media upload slots
	UploadsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitlink_uploads_issued_total",
		Help: "Number of media upload slots issued.",
	})
)
