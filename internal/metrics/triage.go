package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReportTransitions counts analyst actions by action and outcome
	// (changed, noop, rejected).
	ReportTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicwatch_report_transitions_total",
			Help: "Analyst report actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	IncidentActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicwatch_incident_actions_total",
			Help: "Authority incident actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicwatch_escalations_total",
			Help: "Report escalations by department",
		},
		[]string{"department"},
	)

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicwatch_realtime_subscribers",
		Help: "Currently connected realtime subscribers",
	})

	// RealtimeDropped counts events not delivered because a subscriber buffer was full.
	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civicwatch_realtime_dropped_events_total",
		Help: "Realtime events dropped for slow subscribers",
	})

	// AlertsPublished counts public alert deliveries by channel and outcome
	// (sent, failed).
	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicwatch_alerts_published_total",
			Help: "Public alert deliveries by channel",
		},
		[]string{"channel", "outcome"},
	)

	MediaUploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civicwatch_media_upload_bytes_total",
		Help: "Bytes of evidence uploaded to object storage",
	})
)
