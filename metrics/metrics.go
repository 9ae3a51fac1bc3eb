package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message update actions.
const (
	ActionEdited          = "edited"
	ActionCreated         = "created"
	ActionEditFailed      = "edit_failed"
	ActionSendFailed      = "send_failed"
	ActionChannelNotFound = "channel_not_found"
)

var (
	MessageUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_message_updates_total",
			Help: "Status message reconcile outcomes",
		},
		[]string{"action"},
	)

	PresenceUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_presence_updates_total",
			Help: "Bot presence update attempts",
		},
		[]string{"result"}, // success|failure
	)

	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "status_tick_duration_seconds",
			Help:    "Duration of scheduled job invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	TicksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_ticks_skipped_total",
			Help: "Ticks skipped because the previous invocation was still running",
		},
		[]string{"job"},
	)

	SnapshotsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_snapshots_received_total",
			Help: "Server snapshots received from Pub/Sub",
		},
		[]string{"result"}, // accepted|invalid|malformed
	)
)

func init() {
	prometheus.MustRegister(MessageUpdatesTotal)
	prometheus.MustRegister(PresenceUpdatesTotal)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(TicksSkippedTotal)
	prometheus.MustRegister(SnapshotsReceivedTotal)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
